package known

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModuleCompatibility(t *testing.T) {
	list := NewKnownList()

	t.Run("clean module", func(t *testing.T) {
		compatibility := list.ModuleCompatibility("requests")
		assert.True(t, compatibility.Known)
		assert.Empty(t, compatibility.Problems)
	})

	t.Run("submodule inherits package verdict", func(t *testing.T) {
		compatibility := list.ModuleCompatibility("requests.adapters.internal")
		assert.True(t, compatibility.Known)
	})

	t.Run("flagged module carries problems", func(t *testing.T) {
		compatibility := list.ModuleCompatibility("s3fs.core")
		require.True(t, compatibility.Known)
		require.Len(t, compatibility.Problems, 1)
		assert.Equal(t, "direct-filesystem-access", compatibility.Problems[0].Code)
	})

	t.Run("specific submodule beats package", func(t *testing.T) {
		assert.Empty(t, list.ModuleCompatibility("pyspark.sql").Problems)
		flagged := list.ModuleCompatibility("pyspark.sql.context")
		require.Len(t, flagged.Problems, 1)
		assert.Equal(t, "legacy-context-in-shared-clusters", flagged.Problems[0].Code)
	})

	t.Run("unknown module", func(t *testing.T) {
		assert.False(t, list.ModuleCompatibility("definitely.not.cataloged").Known)
	})

	t.Run("empty name", func(t *testing.T) {
		assert.False(t, list.ModuleCompatibility("").Known)
	})
}

func TestNewKnownListFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	catalog := `{"internal.toolkit": [], "legacy.client": [{"code": "deprecated-module", "message": "Use the v2 client"}]}`
	require.NoError(t, os.WriteFile(path, []byte(catalog), 0o644))

	list, err := NewKnownListFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, list.Len())
	assert.True(t, list.ModuleCompatibility("internal.toolkit").Known)
	assert.False(t, list.ModuleCompatibility("requests").Known)

	problems := list.ModuleCompatibility("legacy.client").Problems
	require.Len(t, problems, 1)
	assert.Equal(t, "Use the v2 client", problems[0].Message)
}

func TestNewKnownListFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := NewKnownListFromFile(filepath.Join(dir, "absent.json"))
		assert.Error(t, err)
	})

	t.Run("malformed catalog", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
		_, err := NewKnownListFromFile(path)
		assert.Error(t, err)
	})

	t.Run("array instead of object", func(t *testing.T) {
		path := filepath.Join(dir, "array.json")
		require.NoError(t, os.WriteFile(path, []byte(`["os", "sys"]`), 0o644))
		_, err := NewKnownListFromFile(path)
		assert.Error(t, err)
	})
}

func TestEmbeddedCatalogParses(t *testing.T) {
	list := NewKnownList()
	assert.Greater(t, list.Len(), 50)
}
