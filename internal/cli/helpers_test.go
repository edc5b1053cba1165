package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const combatYAML = `events:
  - name: damage
    listeners:
      - label: armor
        priority: low
        action: set
        field: reduced
        value: "yes"
      - label: shield
        action: cancel
      - label: logger
        priority: monitor
    dependents:
      - event: bleed
      - event: audit
        cancellation: unshared
  - name: bleed
    listeners:
      - label: tick
        priority: very_low
        ignore_cancelled: true
  - name: audit
    listeners:
      - label: write
`

// chainYAML nests dependents two levels deep: a -> b -> c.
const chainYAML = `events:
  - name: a
    dependents: [{event: b}]
  - name: b
    dependents: [{event: c}]
  - name: c
    listeners: [{label: leaf}]
`

const combatScenario = `name: %s
definition: combat.yaml
raise_id: %s
raises:
  - event: damage
    fields: { amount: "7" }
assertions:
  - type: dispatch_order
    listeners: [bleed/tick, damage/armor, damage/shield, audit/write, damage/logger]
  - type: cancelled
    expect: %t
`

// writeFile writes content to dir/name and returns the path.
func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// execute runs cmd with args and returns stdout, stderr and the error.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// decodeResponse decodes a JSON CLIResponse and its data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}

func textOpts() *RootOptions { return &RootOptions{Format: "text"} }

func jsonOpts() *RootOptions { return &RootOptions{Format: "json"} }
