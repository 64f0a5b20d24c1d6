// Package deserialize parses raw source text into flat key/value maps
// without ever returning an error. Malformed or structurally invalid
// input yields nil; callers get a single failure branch while the logs
// distinguish parse failures from shape failures.
package deserialize

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/varlet-dev/varlet/internal/logging"
)

// YAML parses text as a YAML mapping. It returns nil on empty input, on
// a syntax error, or when the document's top level is not a mapping.
func YAML(text, label string) map[string]any {
	if strings.TrimSpace(text) == "" {
		logging.Debug().Str("source", label).Msg("empty source, nothing to parse")
		return nil
	}

	var value any
	if err := yaml.Unmarshal([]byte(text), &value); err != nil {
		logging.Error().Err(err).Str("source", label).Msg("failed to parse YAML")
		return nil
	}

	return asMapping(value, label)
}

// JSON parses text as a JSON object. Comments and trailing commas are
// tolerated (JSONC). The nil policy matches YAML.
func JSON(text, label string) map[string]any {
	if strings.TrimSpace(text) == "" {
		logging.Debug().Str("source", label).Msg("empty source, nothing to parse")
		return nil
	}

	var value any
	if err := json.Unmarshal(jsonc.ToJSON([]byte(text)), &value); err != nil {
		logging.Error().Err(err).Str("source", label).Msg("failed to parse JSON")
		return nil
	}

	return asMapping(value, label)
}

// Properties parses text in dotenv/properties form (KEY=value lines).
// The format is flat by construction, so only read failures apply.
func Properties(text, label string) map[string]any {
	if strings.TrimSpace(text) == "" {
		logging.Debug().Str("source", label).Msg("empty source, nothing to parse")
		return nil
	}

	pairs, err := godotenv.Unmarshal(text)
	if err != nil {
		logging.Error().Err(err).Str("source", label).Msg("failed to parse properties")
		return nil
	}

	m := make(map[string]any, len(pairs))
	for k, v := range pairs {
		m[k] = v
	}
	return m
}

// ByExtension parses text using the format implied by the file
// extension of path. Unknown extensions are treated as YAML, the
// dominant format in central settings trees.
func ByExtension(path, text string) map[string]any {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return JSON(text, path)
	case ".properties", ".env":
		return Properties(text, path)
	default:
		return YAML(text, path)
	}
}

// asMapping enforces the shape contract: a successfully parsed document
// whose top level is a scalar, list, or null is not a usable namespace.
func asMapping(value any, label string) map[string]any {
	m, ok := value.(map[string]any)
	if !ok || m == nil {
		logging.Error().Str("source", label).Msg("source did not parse to a key/value mapping")
		return nil
	}
	return m
}
