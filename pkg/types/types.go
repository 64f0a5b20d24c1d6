// Package types defines the shared data model for varlet: service
// configuration records, placeholder occurrences, and LSP-shaped
// diagnostics exchanged between the engine and editor front-ends.
package types

import "strings"

// EnvironmentAll is the sentinel environment tag used for records that
// bundle every environment layer into a single path list. Records
// produced by central-settings discovery carry this tag; user-saved
// records carry a concrete environment name.
const EnvironmentAll = "all"

// ServiceConfig is one stored (service, environment) configuration: the
// ordered list of source files that make up the service's namespace.
// Later paths override earlier ones during merging.
type ServiceConfig struct {
	ServiceName string   `json:"serviceName"`
	Environment string   `json:"environment"`
	YAMLPaths   []string `json:"yamlPaths"`
}

// Key returns the case-folded identity of the record. Two records with
// equal keys refer to the same (service, environment) slot; storage
// preserves the original casing.
func (c ServiceConfig) Key() string {
	return strings.ToLower(c.ServiceName) + "\x00" + strings.ToLower(c.Environment)
}

// Matches reports whether the record occupies the (service, environment)
// slot, compared case-insensitively.
func (c ServiceConfig) Matches(service, environment string) bool {
	return strings.EqualFold(c.ServiceName, service) &&
		strings.EqualFold(c.Environment, environment)
}

// Occurrence is a single {{...}} span found in a document.
type Occurrence struct {
	// Start and End are byte offsets of the full span, including the
	// delimiters: [Start, End).
	Start int `json:"start"`
	End   int `json:"end"`
	// Raw is the inner text between the delimiters, untrimmed.
	Raw string `json:"raw"`
	// Name is the trimmed inner text, i.e. the variable being referenced.
	Name string `json:"name"`
}

// Position is a zero-based line/character location in a document.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [start, end) span in a document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// DiagnosticSeverity values follow the LSP convention.
const (
	DiagnosticSeverityError       = 1
	DiagnosticSeverityWarning     = 2
	DiagnosticSeverityInformation = 3
	DiagnosticSeverityHint        = 4
)

// Diagnostic codes identifying why a placeholder failed validation.
const (
	CodeSpacesNotAllowed  = "spaces-not-allowed"
	CodeEmptyPlaceholder  = "empty-placeholder"
	CodeInvalidCharacters = "invalid-characters"
	CodeUndefinedVariable = "undefined-variable"
)

// Diagnostic is one validation finding for a placeholder occurrence.
type Diagnostic struct {
	Range    Range  `json:"range"`
	Severity int    `json:"severity"`
	Code     string `json:"code"`
	Source   string `json:"source"`
	Message  string `json:"message"`
}
