// Package engine is the facade the CLI and HTTP server drive. It owns
// the config store, the session context, the merger, and the event bus,
// and exposes the two external operations editors call directly:
// UpdateSources and SetServiceConfiguration.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/varlet-dev/varlet/internal/configstore"
	"github.com/varlet-dev/varlet/internal/discover"
	"github.com/varlet-dev/varlet/internal/event"
	"github.com/varlet-dev/varlet/internal/logging"
	"github.com/varlet-dev/varlet/internal/resolve"
	"github.com/varlet-dev/varlet/internal/source"
	"github.com/varlet-dev/varlet/internal/template"
	"github.com/varlet-dev/varlet/internal/validate"
	"github.com/varlet-dev/varlet/pkg/types"
)

// ErrInvalidRecord reports a service configuration that fails field
// validation.
var ErrInvalidRecord = errors.New("invalid service configuration")

// Engine coordinates stores, merging, validation, and events for one
// application instance.
type Engine struct {
	store   *configstore.Store
	merger  *source.Merger
	bus     *event.Bus
	session *resolve.Session

	mu          sync.RWMutex
	activePaths []string
}

// New creates an engine around the given store and bus. A nil bus gets
// a private one; a nil loader means the local filesystem.
func New(store *configstore.Store, bus *event.Bus, loader source.Loader) *Engine {
	if bus == nil {
		bus = event.NewBus()
	}
	return &Engine{
		store:   store,
		merger:  source.NewMerger(loader),
		bus:     bus,
		session: resolve.NewSession(),
	}
}

// Bus returns the engine's event bus.
func (e *Engine) Bus() *event.Bus {
	return e.bus
}

// Session returns the engine's session context.
func (e *Engine) Session() *resolve.Session {
	return e.session
}

// ActiveSources returns the currently active ordered source list.
func (e *Engine) ActiveSources() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, len(e.activePaths))
	copy(out, e.activePaths)
	return out
}

// UpdateSources applies a new ordered source list and returns it. The
// list replaces the active one wholesale.
func (e *Engine) UpdateSources(ctx context.Context, paths []string) ([]string, error) {
	if paths == nil {
		paths = []string{}
	}
	e.mu.Lock()
	e.activePaths = append([]string(nil), paths...)
	e.mu.Unlock()

	logging.Info().Strs("paths", paths).Msg("source list updated")
	e.bus.PublishSync(event.Event{
		Type: event.SourcesUpdated,
		Data: event.SourcesUpdatedData{Paths: paths},
	})
	return paths, nil
}

// UpdateSourcesFromFile reads a JSON array of source paths from listPath
// and applies it.
func (e *Engine) UpdateSourcesFromFile(ctx context.Context, listPath string) ([]string, error) {
	data, err := os.ReadFile(listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read source list %s: %w", listPath, err)
	}
	var paths []string
	if err := json.Unmarshal(data, &paths); err != nil {
		return nil, fmt.Errorf("failed to decode source list %s: %w", listPath, err)
	}
	return e.UpdateSources(ctx, paths)
}

// SetServiceConfiguration validates the record, stores it, and makes it
// the active configuration.
func (e *Engine) SetServiceConfiguration(ctx context.Context, record types.ServiceConfig) (types.ServiceConfig, error) {
	if err := validateRecord(record); err != nil {
		return types.ServiceConfig{}, err
	}

	if err := e.store.Upsert(ctx, record); err != nil {
		// Persistence failures must reach the caller: a swallowed error
		// here means the user believes a save happened that did not.
		return types.ServiceConfig{}, err
	}

	e.activate(record)
	e.bus.PublishSync(event.Event{
		Type: event.ConfigSaved,
		Data: event.ConfigSavedData{Record: record},
	})
	return record, nil
}

// SetServiceConfigurationFromFile reads one record as JSON from path and
// applies it.
func (e *Engine) SetServiceConfigurationFromFile(ctx context.Context, path string) (types.ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ServiceConfig{}, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}
	var record types.ServiceConfig
	if err := json.Unmarshal(data, &record); err != nil {
		return types.ServiceConfig{}, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return e.SetServiceConfiguration(ctx, record)
}

// LoadServiceConfiguration activates a stored record without modifying
// the store.
func (e *Engine) LoadServiceConfiguration(ctx context.Context, service, environment string) (types.ServiceConfig, error) {
	record, ok, err := e.store.Find(ctx, service, environment)
	if err != nil {
		return types.ServiceConfig{}, err
	}
	if !ok {
		return types.ServiceConfig{}, fmt.Errorf("no configuration stored for %s/%s", service, environment)
	}
	e.activate(record)
	return record, nil
}

func (e *Engine) activate(record types.ServiceConfig) {
	e.mu.Lock()
	e.activePaths = append([]string(nil), record.YAMLPaths...)
	e.mu.Unlock()

	e.session.Touch(record.ServiceName, record.Environment)
	e.bus.PublishSync(event.Event{
		Type: event.ConfigActivated,
		Data: event.ConfigActivatedData{
			ServiceName: record.ServiceName,
			Environment: record.Environment,
			YAMLPaths:   record.YAMLPaths,
		},
	})
}

// ListConfigurations returns all stored records.
func (e *Engine) ListConfigurations(ctx context.Context) ([]types.ServiceConfig, error) {
	return e.store.List(ctx)
}

// RemoveConfiguration drops the record for (service, environment),
// compared case-insensitively, and returns how many were removed.
func (e *Engine) RemoveConfiguration(ctx context.Context, service, environment string) (int, error) {
	removed, err := e.store.Remove(ctx, func(r types.ServiceConfig) bool {
		return r.Matches(service, environment)
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		e.bus.PublishSync(event.Event{
			Type: event.ConfigRemoved,
			Data: event.ConfigRemovedData{
				ServiceName: service,
				Environment: environment,
				Removed:     removed,
			},
		})
	}
	return removed, nil
}

// WipeConfigurations empties the store.
func (e *Engine) WipeConfigurations(ctx context.Context) error {
	if err := e.store.WipeAll(ctx); err != nil {
		return err
	}
	e.bus.PublishSync(event.Event{Type: event.ConfigWiped})
	return nil
}

// NamespaceFor merges the namespace that applies to a document. The
// explicitly active source list wins; otherwise the document's path is
// resolved against the store. A document with no configuration gets an
// empty namespace, never an error: validation still runs and reports
// every placeholder as undefined.
func (e *Engine) NamespaceFor(ctx context.Context, docPath string) (source.Namespace, []string) {
	paths := e.ActiveSources()
	if len(paths) == 0 && docPath != "" {
		record, ok, err := resolve.Resolve(ctx, docPath, e.store, e.session)
		if err != nil {
			logging.Error().Err(err).Str("path", docPath).Msg("config resolution failed")
		} else if ok {
			paths = record.YAMLPaths
		}
	}
	return e.merger.Merge(ctx, paths), paths
}

// ValidateDocument checks the document text against its namespace and
// publishes the resulting diagnostics.
func (e *Engine) ValidateDocument(ctx context.Context, docPath, text string) []types.Diagnostic {
	ns, _ := e.NamespaceFor(ctx, docPath)
	diags := validate.Check(text, ns)

	e.bus.PublishSync(event.Event{
		Type: event.DiagnosticsPublished,
		Data: event.DiagnosticsPublishedData{
			RunID:       ulid.Make().String(),
			Path:        docPath,
			Diagnostics: diags,
		},
	})
	return diags
}

// RenderDocument substitutes defined placeholders in the document text.
func (e *Engine) RenderDocument(ctx context.Context, docPath, text string) string {
	ns, _ := e.NamespaceFor(ctx, docPath)
	return template.Render(text, ns)
}

// RenderDocumentDiff renders the document and formats a template-vs-
// rendering diff for preview surfaces.
func (e *Engine) RenderDocumentDiff(ctx context.Context, docPath, text string) string {
	ns, _ := e.NamespaceFor(ctx, docPath)
	return template.RenderDiffText(text, ns)
}

// ResolveDocument returns the stored record applying to a document.
func (e *Engine) ResolveDocument(ctx context.Context, docPath string) (types.ServiceConfig, bool, error) {
	return resolve.Resolve(ctx, docPath, e.store, e.session)
}

// Discover scans a central settings tree without touching the store.
func (e *Engine) Discover(root string) ([]types.ServiceConfig, error) {
	return discover.Scan(root)
}

// ImportDiscovered scans a central settings tree and upserts every
// derived record into the store.
func (e *Engine) ImportDiscovered(ctx context.Context, root string) ([]types.ServiceConfig, error) {
	records, err := discover.Scan(root)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if err := e.store.Upsert(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to import %s: %w", record.ServiceName, err)
		}
	}
	e.bus.PublishSync(event.Event{
		Type: event.SettingsImported,
		Data: event.SettingsImportedData{Root: root, Imported: len(records)},
	})
	logging.Info().Str("root", root).Int("services", len(records)).Msg("central settings imported")
	return records, nil
}

func validateRecord(record types.ServiceConfig) error {
	if record.ServiceName == "" {
		return fmt.Errorf("%w: serviceName is required", ErrInvalidRecord)
	}
	if record.Environment == "" {
		return fmt.Errorf("%w: environment is required", ErrInvalidRecord)
	}
	if record.YAMLPaths == nil {
		return fmt.Errorf("%w: yamlPaths is required", ErrInvalidRecord)
	}
	return nil
}
