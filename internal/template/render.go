package template

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Render substitutes every defined placeholder in text with its value
// from the namespace. Occurrences that are syntactically invalid or
// undefined are left verbatim so the output stays inspectable.
func Render(text string, ns map[string]any) string {
	occs := Scan(text)
	if len(occs) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, occ := range occs {
		if !ValidIdentifier(occ.Name) {
			continue
		}
		value, ok := ns[occ.Name]
		if !ok {
			continue
		}
		b.WriteString(text[last:occ.Start])
		b.WriteString(fmt.Sprintf("%v", value))
		last = occ.End
	}
	b.WriteString(text[last:])
	return b.String()
}

// RenderDiff renders text and returns a character-level diff between the
// template and its rendering, for preview surfaces.
func RenderDiff(text string, ns map[string]any) []diffmatchpatch.Diff {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(text, Render(text, ns), false)
	return dmp.DiffCleanupSemantic(diffs)
}

// RenderDiffText renders text and formats the diff as colored terminal
// output (insertions green, deletions red).
func RenderDiffText(text string, ns map[string]any) string {
	dmp := diffmatchpatch.New()
	return dmp.DiffPrettyText(RenderDiff(text, ns))
}
