package linter

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lakeshift/internal/notebook"
	"github.com/vk/lakeshift/internal/pyscan"
	"github.com/vk/lakeshift/internal/source"
	"github.com/vk/lakeshift/internal/testutil"
)

// markerLinter emits one advisory per line containing the marker, plus a
// deprecation per inherited name, so tests can observe dispatch and offsets.
type markerLinter struct {
	marker string
}

func (l markerLinter) Lint(code string, inherited *pyscan.Scan) []Advice {
	var advices []Advice
	if inherited != nil {
		for _, name := range inherited.Names {
			advices = append(advices, Deprecation("inherited-name", "Saw inherited name: "+name, 0, 0))
		}
	}
	for i, line := range strings.Split(code, "\n") {
		if strings.Contains(line, l.marker) {
			advices = append(advices, Advisory("marker-found", "Found marker", i, 0))
		}
	}
	return advices
}

func testContext() *Context {
	return NewContext().RegisterLinter(notebook.Python, markerLinter{marker: "MARK"})
}

func lintFile(t *testing.T, root, name string, inherited *pyscan.Scan) []Advice {
	t.Helper()
	path := filepath.Join(root, name)
	fileLinter := NewFileLinter(path, source.NewPathLookup(root), testContext(), inherited)
	return fileLinter.Lint(testutil.Context(t))
}

func TestFileLinter_PythonFile(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"clean.py":  "x = 1\n",
		"marked.py": "x = 1\ny = MARK\n",
	})

	assert.Empty(t, lintFile(t, root, "clean.py", nil))

	advices := lintFile(t, root, "marked.py", nil)
	require.Len(t, advices, 1)
	assert.Equal(t, "marker-found", advices[0].Code)
	assert.Equal(t, 1, advices[0].StartLine)
	assert.Equal(t, KindAdvisory, advices[0].Kind)
}

func TestFileLinter_InheritedState(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"child.py": "print(value)\n"})
	inherited := pyscan.ScanSource("value = 1\n")

	advices := lintFile(t, root, "child.py", inherited)

	require.Len(t, advices, 1)
	assert.Equal(t, "inherited-name", advices[0].Code)
	assert.Contains(t, advices[0].Message, "value")
}

func TestFileLinter_NotebookCellOffsets(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"nb.py": "# Databricks notebook source\n" + // line 0
			"a = 1\n" + // line 1
			"\n# COMMAND ----------\n\n" +
			"b = MARK\n", // line 5
	})

	advices := lintFile(t, root, "nb.py", nil)

	require.Len(t, advices, 1)
	assert.Equal(t, "marker-found", advices[0].Code)
	assert.Equal(t, 5, advices[0].StartLine)
}

func TestFileLinter_NotebookCellsSeeEarlierCells(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"nb.py": "# Databricks notebook source\n" +
			"shared = 1\n" +
			"\n# COMMAND ----------\n\n" +
			"print(shared)\n",
	})

	advices := lintFile(t, root, "nb.py", nil)

	require.Len(t, advices, 1)
	assert.Equal(t, "inherited-name", advices[0].Code)
	assert.Contains(t, advices[0].Message, "shared")
}

func TestFileLinter_DispatchMatrix(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"notes.md":   "# notes\n",
		"data.json":  "{}\n",
		"main.scala": "object Main\n",
		"run.sh":     "echo hi\n",
		"model.bin":  "\x00\x01",
		"query.sql":  "SELECT 1\n",
	})

	for _, ignorable := range []string{"notes.md", "data.json"} {
		t.Run("ignores "+ignorable, func(t *testing.T) {
			assert.Empty(t, lintFile(t, root, ignorable, nil))
		})
	}

	for _, unsupported := range []string{"main.scala", "run.sh"} {
		t.Run("unsupported language "+unsupported, func(t *testing.T) {
			advices := lintFile(t, root, unsupported, nil)
			require.Len(t, advices, 1)
			assert.Equal(t, "unsupported-language", advices[0].Code)
		})
	}

	t.Run("unknown suffix is an unsupported file", func(t *testing.T) {
		advices := lintFile(t, root, "model.bin", nil)
		require.Len(t, advices, 1)
		assert.Equal(t, "unsupported-file", advices[0].Code)
		assert.Equal(t, KindFailure, advices[0].Kind)
	})

	t.Run("supported language without a registered linter stays silent", func(t *testing.T) {
		assert.Empty(t, lintFile(t, root, "query.sql", nil))
	})
}

func TestLocatedAdvice_String(t *testing.T) {
	located := LocatedAdvice{
		Path:   "/ws/main.py",
		Advice: Advisory("direct-fs", "Use of direct filesystem path", 4, 8),
	}
	assert.Equal(t, "/ws/main.py:5:8: [direct-fs] Use of direct filesystem path", located.String())
}
