package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func collect(t *testing.T, w *Walker, root string) []string {
	t.Helper()
	var got []string
	_, err := w.Walk(context.Background(), root, func(path string) error {
		rel, err := filepath.Rel(root, path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	return got
}

func TestWalk_ExcludesFoldersWithoutDescending(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/a.cs":                  "x",
		"src/sub/b.cs":              "x",
		"bin/should_not_appear.cs":  "x",
		"node_modules/pkg/deep.cs":  "x",
		".git/objects/aa/object.cs": "x",
		".hidden/c.cs":              "x",
	})

	w := New(Options{
		ExcludeFolders: map[string]struct{}{"bin": {}, "node_modules": {}},
	})
	got := collect(t, w, root)
	assert.ElementsMatch(t, []string{"src/a.cs", "src/sub/b.cs"}, got)
}

func TestWalk_ExtensionPolicy(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.cs":  "x",
		"b.ts":  "x",
		"c.dll": "x",
		"d.txt": "x",
	})

	w := New(Options{
		IncludeExtensions: map[string]struct{}{".cs": {}, ".ts": {}, ".dll": {}},
		ExcludeExtensions: map[string]struct{}{".dll": {}},
	})
	got := collect(t, w, root)
	assert.ElementsMatch(t, []string{"a.cs", "b.ts"}, got)
}

func TestWalk_IgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"keep.cs":            "x",
		"gen/skip.g.cs":      "x",
		"deep/gen/skip.g.cs": "x",
	})

	w := New(Options{IgnorePatterns: []string{"**/*.g.cs"}})
	got := collect(t, w, root)
	assert.ElementsMatch(t, []string{"keep.cs"}, got)
}

func TestWalk_EachFileExactlyOnce(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.cs":      "x",
		"d1/b.cs":   "x",
		"d1/c.cs":   "x",
		"d2/d.cs":   "x",
		"d2/e/f.cs": "x",
	})

	got := collect(t, New(Options{}), root)
	seen := map[string]int{}
	for _, p := range got {
		seen[p]++
	}
	assert.Len(t, seen, 5)
	for p, n := range seen {
		assert.Equal(t, 1, n, "path %s yielded more than once", p)
	}
}

func TestWalk_SymlinkCountedAsWarning(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"real.cs": "x"})
	require.NoError(t, os.Symlink(filepath.Join(root, "real.cs"), filepath.Join(root, "link.cs")))

	var got []string
	warnings, err := New(Options{}).Walk(context.Background(), root, func(path string) error {
		got = append(got, filepath.Base(path))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, warnings)
	assert.Equal(t, []string{"real.cs"}, got)
}

func TestWalk_Cancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.cs": "x", "b.cs": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{}).Walk(ctx, root, func(string) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
