package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varlet-dev/varlet/internal/configstore"
	"github.com/varlet-dev/varlet/internal/engine"
	"github.com/varlet-dev/varlet/internal/event"
)

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	return engine.New(configstore.NewInDir(t.TempDir()), nil, nil)
}

func TestNewMissingRootDisablesWatcher(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), newEngine(t))
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestWatcherImportsOnChange(t *testing.T) {
	root := t.TempDir()
	eng := newEngine(t)

	imported := make(chan event.Event, 1)
	eng.Bus().Subscribe(event.SettingsImported, func(e event.Event) {
		select {
		case imported <- e:
		default:
		}
	})

	w, err := New(root, eng)
	require.NoError(t, err)
	require.NotNil(t, w)
	w.Start()
	defer w.Stop()

	// Grow a service into the tree.
	require.NoError(t, os.WriteFile(filepath.Join(root, "application.yml"), []byte("a: 1\n"), 0644))
	svcDir := filepath.Join(root, "svc")
	require.NoError(t, os.MkdirAll(svcDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(svcDir, "svc.yml"), []byte("b: 2\n"), 0644))

	select {
	case <-imported:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a settings import after file changes")
	}

	records, err := eng.ListConfigurations(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, records)
}

func TestStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	w, err := New(root, newEngine(t))
	require.NoError(t, err)
	require.NotNil(t, w)

	w.Start()
	require.NoError(t, w.Stop())
	// Second stop must not panic or deadlock.
	_ = w.Stop()
}
