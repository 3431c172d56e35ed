package diff

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnified(t *testing.T) {
	original := "line one\nOldName.Method()\nline three\n"
	modified := "line one\nNewName.Method()\nline three\n"

	out, err := Unified(original, modified, "a.cs")
	require.NoError(t, err)

	assert.Contains(t, out, "--- a/a.cs")
	assert.Contains(t, out, "+++ b/a.cs")
	assert.Contains(t, out, "-OldName.Method()")
	assert.Contains(t, out, "+NewName.Method()")
	// Unchanged context lines keep their leading space marker.
	assert.Contains(t, out, " line one")
}

func TestUnified_Deterministic(t *testing.T) {
	original := strings.Repeat("keep\n", 10) + "old\n"
	modified := strings.Repeat("keep\n", 10) + "new\n"

	first, err := Unified(original, modified, "f.sql")
	require.NoError(t, err)
	second, err := Unified(original, modified, "f.sql")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestUnified_NoChanges(t *testing.T) {
	out, err := Unified("same\n", "same\n", "x.ts")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "no changes", Summary("abc", "abc"))

	got := Summary("OldName.Method()", "NewName.Method()")
	assert.NotEqual(t, "no changes", got)
	assert.Contains(t, got, "chars")
}
