package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanNoPlaceholders(t *testing.T) {
	assert.Empty(t, Scan(""))
	assert.Empty(t, Scan("plain text with no markers"))
	assert.Empty(t, Scan("single {brace} and {another}"))
}

func TestScanSingle(t *testing.T) {
	occs := Scan("url: {{host}}")
	require.Len(t, occs, 1)
	assert.Equal(t, 5, occs[0].Start)
	assert.Equal(t, 13, occs[0].End)
	assert.Equal(t, "host", occs[0].Raw)
	assert.Equal(t, "host", occs[0].Name)
}

func TestScanMultipleAndAdjacent(t *testing.T) {
	occs := Scan("{{a}}{{b}} and {{c}}")
	require.Len(t, occs, 3)
	assert.Equal(t, "a", occs[0].Name)
	assert.Equal(t, "b", occs[1].Name)
	assert.Equal(t, "c", occs[2].Name)
	assert.Equal(t, 0, occs[0].Start)
	assert.Equal(t, 5, occs[1].Start)
}

func TestScanTrimsWhitespace(t *testing.T) {
	occs := Scan("{{  host  }}")
	require.Len(t, occs, 1)
	assert.Equal(t, "  host  ", occs[0].Raw)
	assert.Equal(t, "host", occs[0].Name)
}

func TestScanEmptyPlaceholder(t *testing.T) {
	occs := Scan("{{}}")
	require.Len(t, occs, 1)
	assert.Equal(t, "", occs[0].Raw)
	assert.Equal(t, "", occs[0].Name)
}

func TestScanDoesNotSpanLines(t *testing.T) {
	assert.Empty(t, Scan("{{ho\nst}}"))
}

func TestScanNoNesting(t *testing.T) {
	// The inner pair is picked up; braces never nest.
	occs := Scan("{{{{inner}}}}")
	require.Len(t, occs, 1)
	assert.Equal(t, "inner", occs[0].Name)
}

func TestScanStateless(t *testing.T) {
	text := "{{a}} {{b}}"
	first := Scan(text)
	second := Scan(text)
	assert.Equal(t, first, second)
}

func TestValidIdentifier(t *testing.T) {
	assert.True(t, ValidIdentifier("host"))
	assert.True(t, ValidIdentifier("db_port_2"))
	assert.True(t, ValidIdentifier("X"))
	assert.False(t, ValidIdentifier(""))
	assert.False(t, ValidIdentifier("a b"))
	assert.False(t, ValidIdentifier("a-b"))
	assert.False(t, ValidIdentifier("a.b"))
}
