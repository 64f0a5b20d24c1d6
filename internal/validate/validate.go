// Package validate classifies placeholder occurrences against a merged
// namespace and produces editor diagnostics. Diagnostics are the output
// of correct operation, not failures: the checker itself never errors.
package validate

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/varlet-dev/varlet/internal/source"
	"github.com/varlet-dev/varlet/internal/template"
	"github.com/varlet-dev/varlet/pkg/types"
)

// maxSuggestionDistance bounds "did you mean" lookups for undefined
// variables.
const maxSuggestionDistance = 3

// Check scans text and returns one diagnostic per invalid occurrence, in
// document order. Valid occurrences produce nothing. Classification
// precedence, first match wins: spaces, empty, illegal characters,
// undefined in the namespace.
func Check(text string, ns source.Namespace) []types.Diagnostic {
	var diags []types.Diagnostic
	for _, occ := range template.Scan(text) {
		if d, ok := classify(text, occ, ns); ok {
			diags = append(diags, d)
		}
	}
	return diags
}

func classify(text string, occ types.Occurrence, ns source.Namespace) (types.Diagnostic, bool) {
	switch {
	case occ.Raw != occ.Name, strings.ContainsAny(occ.Name, " \t"):
		return diagnostic(text, occ, types.CodeSpacesNotAllowed,
			fmt.Sprintf("spaces are not allowed in placeholder %q", occ.Raw)), true

	case occ.Name == "":
		return diagnostic(text, occ, types.CodeEmptyPlaceholder,
			"empty placeholder"), true

	case !template.ValidIdentifier(occ.Name):
		return diagnostic(text, occ, types.CodeInvalidCharacters,
			fmt.Sprintf("invalid characters in placeholder %q: only letters, digits and underscore are allowed", occ.Name)), true

	case !ns.Has(occ.Name):
		msg := fmt.Sprintf("undefined variable %q", occ.Name)
		if hint, ok := closestKey(occ.Name, ns); ok {
			msg += fmt.Sprintf(" (did you mean %q?)", hint)
		}
		return diagnostic(text, occ, types.CodeUndefinedVariable, msg), true
	}

	return types.Diagnostic{}, false
}

func diagnostic(text string, occ types.Occurrence, code, message string) types.Diagnostic {
	return types.Diagnostic{
		Range:    spanRange(text, occ.Start, occ.End),
		Severity: types.DiagnosticSeverityError,
		Code:     code,
		Source:   "varlet",
		Message:  message,
	}
}

// spanRange converts byte offsets to zero-based line/character
// positions. Placeholders never span lines, so both ends share a line.
func spanRange(text string, start, end int) types.Range {
	line, lineStart := 0, 0
	for i := 0; i < start && i < len(text); i++ {
		if text[i] == '\n' {
			line++
			lineStart = i + 1
		}
	}
	return types.Range{
		Start: types.Position{Line: line, Character: start - lineStart},
		End:   types.Position{Line: line, Character: end - lineStart},
	}
}

// closestKey finds the defined variable closest to name by edit
// distance. Ties resolve to the lexicographically smallest key so the
// suggestion is deterministic.
func closestKey(name string, ns source.Namespace) (string, bool) {
	best, bestDist := "", maxSuggestionDistance+1
	for _, key := range ns.Keys() {
		if d := levenshtein.ComputeDistance(name, key); d < bestDist {
			best, bestDist = key, d
		}
	}
	return best, best != ""
}
