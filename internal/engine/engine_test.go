package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlet-dev/varlet/internal/configstore"
	"github.com/varlet-dev/varlet/internal/event"
	"github.com/varlet-dev/varlet/pkg/types"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(configstore.NewInDir(t.TempDir()), nil, nil)
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestUpdateSources(t *testing.T) {
	e := newTestEngine(t)

	paths, err := e.UpdateSources(context.Background(), []string{"a.yml", "b.yml"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.yml", "b.yml"}, paths)
	assert.Equal(t, []string{"a.yml", "b.yml"}, e.ActiveSources())
}

func TestUpdateSourcesFromFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()

	list := writeFile(t, dir, "sources.json", `["one.yml", "two.yml"]`)
	paths, err := e.UpdateSourcesFromFile(context.Background(), list)
	require.NoError(t, err)
	assert.Equal(t, []string{"one.yml", "two.yml"}, paths)
}

func TestUpdateSourcesFromFileErrors(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.UpdateSourcesFromFile(context.Background(), "/does/not/exist.json")
	assert.Error(t, err)

	bad := writeFile(t, t.TempDir(), "bad.json", `{"not": "a list"}`)
	_, err = e.UpdateSourcesFromFile(context.Background(), bad)
	assert.Error(t, err)
}

func TestSetServiceConfiguration(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	record := types.ServiceConfig{
		ServiceName: "checkout",
		Environment: "dev",
		YAMLPaths:   []string{"application.yml"},
	}

	saved, err := e.SetServiceConfiguration(ctx, record)
	require.NoError(t, err)
	assert.Equal(t, record, saved)

	// Persisted.
	records, err := e.ListConfigurations(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	// Activated: session and source list updated.
	assert.Equal(t, "checkout", e.Session().Service())
	assert.Equal(t, "dev", e.Session().Environment())
	assert.Equal(t, []string{"application.yml"}, e.ActiveSources())
}

func TestSetServiceConfigurationValidation(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	cases := []types.ServiceConfig{
		{Environment: "dev", YAMLPaths: []string{"a.yml"}},
		{ServiceName: "svc", YAMLPaths: []string{"a.yml"}},
		{ServiceName: "svc", Environment: "dev"},
	}
	for _, record := range cases {
		_, err := e.SetServiceConfiguration(ctx, record)
		assert.ErrorIs(t, err, ErrInvalidRecord)
	}

	records, err := e.ListConfigurations(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSetServiceConfigurationFromFile(t *testing.T) {
	e := newTestEngine(t)
	dir := t.TempDir()

	record := types.ServiceConfig{
		ServiceName: "billing",
		Environment: "prod",
		YAMLPaths:   []string{"billing.yml"},
	}
	data, err := json.Marshal(record)
	require.NoError(t, err)
	path := writeFile(t, dir, "record.json", string(data))

	saved, err := e.SetServiceConfigurationFromFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, record, saved)
}

func TestSetServiceConfigurationFromFileMalformed(t *testing.T) {
	e := newTestEngine(t)
	path := writeFile(t, t.TempDir(), "bad.json", `{"serviceName": 42}`)

	_, err := e.SetServiceConfigurationFromFile(context.Background(), path)
	assert.ErrorIs(t, err, ErrInvalidRecord)
}

func TestValidateDocumentWithActiveSources(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := writeFile(t, dir, "app.yml", "host: x\nport: \"80\"\n")
	_, err := e.UpdateSources(ctx, []string{src})
	require.NoError(t, err)

	diags := e.ValidateDocument(ctx, "", "url: {{host}}:{{port}}")
	assert.Empty(t, diags)

	diags = e.ValidateDocument(ctx, "", "{{missing}}")
	require.Len(t, diags, 1)
	assert.Equal(t, types.CodeUndefinedVariable, diags[0].Code)
}

func TestValidateDocumentResolvesByPath(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := writeFile(t, dir, "checkout.yml", "host: resolved\n")
	_, err := e.SetServiceConfiguration(ctx, types.ServiceConfig{
		ServiceName: "checkout",
		Environment: "dev",
		YAMLPaths:   []string{src},
	})
	require.NoError(t, err)

	// Clear the active list so resolution has to kick in.
	_, err = e.UpdateSources(ctx, nil)
	require.NoError(t, err)

	docPath := filepath.Join("/repo", "checkout", "config.tmpl")
	assert.Empty(t, e.ValidateDocument(ctx, docPath, "{{host}}"))
}

func TestValidateDocumentNoConfigurationMeansUndefined(t *testing.T) {
	e := newTestEngine(t)

	diags := e.ValidateDocument(context.Background(), "/nowhere/doc.txt", "{{anything}}")
	require.Len(t, diags, 1)
	assert.Equal(t, types.CodeUndefinedVariable, diags[0].Code)
}

func TestValidateDocumentPublishesDiagnostics(t *testing.T) {
	e := newTestEngine(t)

	var published []event.Event
	unsub := e.Bus().Subscribe(event.DiagnosticsPublished, func(ev event.Event) {
		published = append(published, ev)
	})
	defer unsub()

	e.ValidateDocument(context.Background(), "/doc.txt", "{{missing}}")

	require.Len(t, published, 1)
	data, ok := published[0].Data.(event.DiagnosticsPublishedData)
	require.True(t, ok)
	assert.NotEmpty(t, data.RunID)
	assert.Len(t, data.Diagnostics, 1)
}

func TestRenderDocument(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := writeFile(t, dir, "app.yml", "host: x\nport: \"80\"\n")
	_, err := e.UpdateSources(ctx, []string{src})
	require.NoError(t, err)

	assert.Equal(t, "url: x:80", e.RenderDocument(ctx, "", "url: {{host}}:{{port}}"))
}

func TestRemoveConfiguration(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.SetServiceConfiguration(ctx, types.ServiceConfig{
		ServiceName: "checkout", Environment: "dev", YAMLPaths: []string{"a.yml"},
	})
	require.NoError(t, err)

	removed, err := e.RemoveConfiguration(ctx, "CHECKOUT", "DEV")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	records, err := e.ListConfigurations(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWipeConfigurations(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	for _, svc := range []string{"a", "b", "c"} {
		_, err := e.SetServiceConfiguration(ctx, types.ServiceConfig{
			ServiceName: svc, Environment: "dev", YAMLPaths: []string{"x.yml"},
		})
		require.NoError(t, err)
	}

	require.NoError(t, e.WipeConfigurations(ctx))

	records, err := e.ListConfigurations(ctx)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestImportDiscovered(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, root, "application.yml", "base: \"1\"\n")
	writeFile(t, root, filepath.Join("svcA", "svcA.yml"), "svc: \"2\"\n")

	records, err := e.ImportDiscovered(ctx, root)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "svcA", records[0].ServiceName)
	assert.Equal(t, types.EnvironmentAll, records[0].Environment)

	stored, err := e.ListConfigurations(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestImportDiscoveredMissingRoot(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.ImportDiscovered(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
