package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenariosDir = "../harness/testdata/scenarios"

func writeScenario(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(body), 0644))
}

func TestTestCommand_Scenarios(t *testing.T) {
	out, err := execute(t, nil, "", "test", scenariosDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ nested_partial_absorption")
	assert.Contains(t, out, "0 failed")
}

func TestTestCommand_JSON(t *testing.T) {
	out, err := execute(t, nil, "", "test", scenariosDir, "--format", "json", "--filter", "in_*")
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.Total)
	assert.Equal(t, 2, resp.Data.Passed)
	for _, s := range resp.Data.Scenarios {
		assert.Contains(t, []string{"in_list", "in_requires_list"}, s.Name)
	}
}

func TestTestCommand_Failure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scenarios")
	writeScenario(t, dir, "wrong", `
name: wrong
description: "expects the operator to stay in the residual"
query:
  a: {$gt: 1}
residual:
  a: {$gt: 1}
`)

	out, err := execute(t, nil, "", "test", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ wrong")
	assert.Contains(t, out, "1 failed")

	out, err = execute(t, nil, "", "test", dir, "--format", "json")
	require.Error(t, err)
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeTestFailed, resp.Error.Code)
}

func TestTestCommand_UpdateThenCompare(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "scenarios")
	writeScenario(t, dir, "gt", `
name: gt
description: "gt becomes a fragment"
query:
  a: {$gt: 1}
residual: {}
fragments:
  - "and bq_jdoc #> '{a}' > '1'::jsonb"
`)

	out, err := execute(t, nil, "", "test", dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ gt (golden updated)")

	golden, err := os.ReadFile(filepath.Join(root, "golden", "gt.golden"))
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"name": "gt"`)

	_, err = execute(t, nil, "", "test", dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "golden", "gt.golden"), []byte("{}\n"), 0644))
	out, err = execute(t, nil, "", "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "golden file mismatch")
}

func TestTestCommand_CommandErrors(t *testing.T) {
	_, err := execute(t, nil, "", "test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = execute(t, nil, "", "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
