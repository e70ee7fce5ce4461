package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/lakeshift/internal/testutil"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCommand(&out, &errOut)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func TestLint_ReportsUnresolvedImport(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"migrate.hcl": "",
		"ws/main.py":  "import missing_mod\n",
	})

	out, err := runCommand(t,
		"lint", filepath.Join(root, "ws"),
		"--config", filepath.Join(root, "migrate.hcl"))

	require.NoError(t, err)
	assert.Contains(t, out, "import-not-found")
	assert.Contains(t, out, "missing_mod")
	assert.Contains(t, out, "1 findings")
}

func TestLint_CleanTreeHasNoFindings(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"migrate.hcl": "",
		"ws/main.py":  "print('fine')\n",
	})

	out, err := runCommand(t,
		"lint", filepath.Join(root, "ws"),
		"--config", filepath.Join(root, "migrate.hcl"))

	require.NoError(t, err)
	assert.Contains(t, out, "No findings.")
}

func TestSequence_JSONOutput(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"src/main.py": "print(1)\n",
	})
	configPath := filepath.Join(root, "migrate.hcl")
	testutilWriteFile(t, configPath, fmt.Sprintf(`
workspace {
  root = %q
}

job "nightly" {
  id = "100"

  task "main" {
    file = "main.py"
  }
}
`, filepath.Join(root, "src")))

	out, err := runCommand(t, "sequence", "--json", "--config", configPath)

	require.NoError(t, err)
	var report struct {
		Steps []struct {
			ObjectType string `json:"object_type"`
			StepNumber int    `json:"step_number"`
		} `json:"steps"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Steps, 3)
	assert.Equal(t, "JOB", report.Steps[0].ObjectType)
	assert.Equal(t, "TASK", report.Steps[2].ObjectType)
}

func TestSequence_SaveAndInspectPlans(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"src/main.py": "print(1)\n",
	})
	configPath := filepath.Join(root, "migrate.hcl")
	testutilWriteFile(t, configPath, fmt.Sprintf(`
workspace {
  root = %q
}

sequencer {
  history_path = %q
}

job "nightly" {
  id = "100"

  task "main" {
    file = "main.py"
  }
}
`, filepath.Join(root, "src"), filepath.Join(root, "plans.db")))

	out, err := runCommand(t, "sequence", "--save", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Saved as plan 00000001")

	out, err = runCommand(t, "plans", "list", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "00000001")
	assert.Contains(t, out, "3 steps")

	out, err = runCommand(t, "plans", "show", "00000001", "--config", configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Plan 00000001")
	assert.Contains(t, out, "Migration plan, 3 steps:")
}

func TestInvalidLogLevelFailsWithUsageError(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{"migrate.hcl": ""})
	var out, errOut bytes.Buffer
	rootCmd := NewRootCommand(&out, &errOut)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"sequence", "--config", filepath.Join(root, "migrate.hcl"), "--log-level", "loud"})

	err := rootCmd.Execute()

	require.Error(t, err)
	exitErr, ok := err.(*ExitError)
	require.True(t, ok)
	assert.Equal(t, 2, exitErr.Code)
}

func testutilWriteFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
