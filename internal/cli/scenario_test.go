package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const harnessScenarios = "../harness/testdata/scenarios"

func TestScenario_HarnessSuitePasses(t *testing.T) {
	out, _, err := execute(t, tempDB(t), "scenario", harnessScenarios)
	require.NoError(t, err, out)
	assert.Contains(t, out, "✓ first_purchase")
	assert.Contains(t, out, "✓ shop_completion")
	assert.Contains(t, out, "0 failed")
}

func TestScenario_JSON(t *testing.T) {
	out, _, err := execute(t, tempDB(t), "--format", "json", "scenario", harnessScenarios, "--filter", "first_*")
	require.NoError(t, err)

	resp := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	var result TestResult
	require.NoError(t, json.Unmarshal(resp.Data, &result))
	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Passed)
	assert.Equal(t, "first_purchase", result.Scenarios[0].Name)
}

const clickScenario = `name: three_clicks
steps:
  - do: click
    times: 3
assertions:
  - type: final_state
    expect:
      balance: 3
`

func TestScenario_UpdateThenCompare(t *testing.T) {
	dir := t.TempDir()
	scenarios := filepath.Join(dir, "scenarios")
	require.NoError(t, os.MkdirAll(scenarios, 0755))
	file := filepath.Join(scenarios, "three_clicks.yaml")
	require.NoError(t, os.WriteFile(file, []byte(clickScenario), 0644))

	_, _, err := execute(t, tempDB(t), "scenario", file, "--update")
	require.NoError(t, err)

	golden := filepath.Join(dir, "golden", "three_clicks.golden")
	data, err := os.ReadFile(golden)
	require.NoError(t, err)
	assert.Contains(t, string(data), "achievement_earned first_click")

	_, _, err = execute(t, tempDB(t), "scenario", file)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(golden, []byte("0001 reset\n"), 0644))
	out, _, err := execute(t, tempDB(t), "scenario", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestScenario_FailingAssertion(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bad.yaml")
	bad := `name: bad
steps:
  - do: click
assertions:
  - type: final_state
    expect:
      balance: 2
`
	require.NoError(t, os.WriteFile(file, []byte(bad), 0644))

	out, _, err := execute(t, tempDB(t), "--format", "json", "scenario", file)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeScenarioFailed, resp.Error.Code)
}

func TestScenario_MissingPath(t *testing.T) {
	_, _, err := execute(t, tempDB(t), "scenario", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
