package source

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lakeshift/internal/testutil"
)

func TestPathLookup_Resolve(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"folder/foo.py": "x = 1",
		"lib/shared.py": "y = 2",
	})
	lookup := NewPathLookup(filepath.Join(root, "folder"), filepath.Join(root, "lib"))

	t.Run("absolute path", func(t *testing.T) {
		resolved, ok := lookup.Resolve(filepath.Join(root, "folder", "foo.py"))
		require.True(t, ok)
		assert.Equal(t, filepath.Join(root, "folder", "foo.py"), resolved)

		_, ok = lookup.Resolve(filepath.Join(root, "missing.py"))
		assert.False(t, ok)
	})

	t.Run("relative to working directory", func(t *testing.T) {
		resolved, ok := lookup.Resolve("foo.py")
		require.True(t, ok)
		assert.Equal(t, filepath.Join(root, "folder", "foo.py"), resolved)
	})

	t.Run("search roots after working directory", func(t *testing.T) {
		resolved, ok := lookup.Resolve("shared.py")
		require.True(t, ok)
		assert.Equal(t, filepath.Join(root, "lib", "shared.py"), resolved)
	})

	t.Run("parent traversal is cleaned", func(t *testing.T) {
		resolved, ok := lookup.Resolve(filepath.Join(root, "folder", "..", "lib", "shared.py"))
		require.True(t, ok)
		assert.Equal(t, filepath.Join(root, "lib", "shared.py"), resolved)
	})

	t.Run("empty path", func(t *testing.T) {
		_, ok := lookup.Resolve("")
		assert.False(t, ok)
	})
}

func TestPathLookup_SharedSearchRoots(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"extra/late.py": "x = 1",
		"sub/":          "",
	})
	lookup := NewPathLookup(root)
	derived := lookup.ChangeDirectory(filepath.Join(root, "sub"))

	// a search root added through a derived lookup is visible everywhere
	derived.AppendPath(filepath.Join(root, "extra"))

	resolved, ok := lookup.Resolve("late.py")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "extra", "late.py"), resolved)

	assert.Equal(t, []string{root, filepath.Join(root, "extra")}, lookup.Paths())
}

func TestPathLookup_PrependPath(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"first/pick.py":  "a = 1",
		"second/pick.py": "b = 2",
	})
	lookup := NewPathLookup(filepath.Join(root, "first"))
	lookup.AppendPath(filepath.Join(root, "second"))
	lookup.PrependPath(filepath.Join(root, "second"))

	// duplicates are kept out, so the earlier append still holds its place
	assert.Len(t, lookup.Paths(), 2)

	// the working directory always wins over search roots
	resolved, ok := lookup.Resolve("pick.py")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "first", "pick.py"), resolved)
}
