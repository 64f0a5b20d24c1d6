package event

import "github.com/varlet-dev/varlet/pkg/types"

// ConfigSavedData is the data for config.saved events.
type ConfigSavedData struct {
	Record types.ServiceConfig `json:"record"`
}

// ConfigActivatedData is the data for config.activated events.
type ConfigActivatedData struct {
	ServiceName string   `json:"serviceName"`
	Environment string   `json:"environment"`
	YAMLPaths   []string `json:"yamlPaths"`
}

// ConfigRemovedData is the data for config.removed events.
type ConfigRemovedData struct {
	ServiceName string `json:"serviceName"`
	Environment string `json:"environment"`
	Removed     int    `json:"removed"`
}

// SourcesUpdatedData is the data for sources.updated events.
type SourcesUpdatedData struct {
	Paths []string `json:"paths"`
}

// DiagnosticsPublishedData is the data for diagnostics.published events.
type DiagnosticsPublishedData struct {
	// RunID is a ULID identifying one validation pass.
	RunID       string             `json:"runID"`
	Path        string             `json:"path"`
	Diagnostics []types.Diagnostic `json:"diagnostics"`
}

// SettingsChangedData is the data for settings.changed events, published
// when the watched central settings tree is modified on disk.
type SettingsChangedData struct {
	Root string `json:"root"`
}

// SettingsImportedData is the data for settings.imported events.
type SettingsImportedData struct {
	Root     string `json:"root"`
	Imported int    `json:"imported"`
}
