// Package template finds {{variable}} placeholders in document text and
// renders documents against a merged namespace. The syntax is flat
// substitution only: no nesting, no escaping, no control flow.
package template

import (
	"regexp"
	"strings"

	"github.com/varlet-dev/varlet/pkg/types"
)

// placeholderPattern matches double-open-brace, inner text without
// braces, double-close-brace. Newlines are excluded from the inner text:
// a placeholder cannot span lines, matching the editor-side behavior.
var placeholderPattern = regexp.MustCompile(`\{\{([^{}\r\n]*)\}\}`)

// identifierPattern is the legal variable name charset.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Scan returns all placeholder occurrences in text, in document order.
// Each call scans from scratch; no state is retained between calls.
func Scan(text string) []types.Occurrence {
	matches := placeholderPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	occs := make([]types.Occurrence, 0, len(matches))
	for _, m := range matches {
		raw := text[m[2]:m[3]]
		occs = append(occs, types.Occurrence{
			Start: m[0],
			End:   m[1],
			Raw:   raw,
			Name:  strings.TrimSpace(raw),
		})
	}
	return occs
}

// ValidIdentifier reports whether name is a legal variable name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
