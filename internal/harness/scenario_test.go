package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_Combat(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/combat.yaml")
	require.NoError(t, err)

	assert.Equal(t, "combat_shield_blocks_damage", s.Name)
	assert.Equal(t, "combat", s.RaiseID)
	assert.Equal(t, filepath.Join("testdata", "scenarios", "..", "definitions", "combat.yaml"), s.Definition)
	require.Len(t, s.Raises, 2)
	assert.True(t, s.Raises[0].runPost())
	assert.False(t, s.Raises[1].runPost())
	assert.True(t, s.Raises[1].Cancelled)
	assert.Equal(t, "12", s.Raises[0].Fields["amount"])
	assert.Len(t, s.Assertions, 12)
}

func TestLoadScenario_InlineEvents(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/guard.yaml")
	require.NoError(t, err)

	assert.Empty(t, s.Definition)
	require.Len(t, s.Events, 1)
	assert.Equal(t, "hit", s.Events[0].Name)
	assert.Len(t, s.Events[0].Listeners, 2)
}

func TestLoadScenarioWithBasePath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
name: based
definition: events.yaml
raises:
  - event: x
`), 0o644))

	s, err := LoadScenarioWithBasePath(path, "/defs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/defs", "events.yaml"), s.Definition)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario("testdata/scenarios/nope.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "missing name",
			yaml: "events: [{name: a}]\nraises: [{event: a}]",
			want: "name is required",
		},
		{
			name: "no definition",
			yaml: "name: x\nraises: [{event: a}]",
			want: "either definition or events is required",
		},
		{
			name: "both definition and events",
			yaml: "name: x\ndefinition: d.yaml\nevents: [{name: a}]\nraises: [{event: a}]",
			want: "mutually exclusive",
		},
		{
			name: "no raises",
			yaml: "name: x\nevents: [{name: a}]",
			want: "raises list is required",
		},
		{
			name: "raise without event",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{fields: {k: v}}]",
			want: "raises[0]: event is required",
		},
		{
			name: "unknown assertion",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: trace_contains}]",
			want: `unknown assertion type "trace_contains"`,
		},
		{
			name: "raise index out of range",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: cancelled, raise: 1, expect: true}]",
			want: "raise 1 out of range",
		},
		{
			name: "dispatch_order without listeners",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: dispatch_order}]",
			want: "dispatch_order requires listeners",
		},
		{
			name: "skipped without listener",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: skipped}]",
			want: "skipped requires listener",
		},
		{
			name: "negative count",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: skipped, listener: l, count: -1}]",
			want: "skipped count must not be negative",
		},
		{
			name: "complete without expect",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: complete}]",
			want: "complete requires expect",
		},
		{
			name: "state without state",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: state}]",
			want: "state requires state",
		},
		{
			name: "field without field",
			yaml: "name: x\nevents: [{name: a}]\nraises: [{event: a}]\nassertions: [{type: field, value: v}]",
			want: "field requires field",
		},
		{
			name: "unknown key",
			yaml: "name: x\nevents: [{name: a}]\nraise: [{event: a}]",
			want: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseScenario_ExplicitZeroCount(t *testing.T) {
	s, err := ParseScenario([]byte(`name: x
events: [{name: a, listeners: [{label: l}]}]
raises: [{event: a}]
assertions:
  - {type: skipped, listener: l, count: 0}
  - {type: skipped, listener: l}
`))
	require.NoError(t, err)
	require.NotNil(t, s.Assertions[0].Count)
	assert.Equal(t, 0, s.Assertions[0].expectedCount(1))
	assert.Equal(t, 1, s.Assertions[1].expectedCount(1))

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "l skip 1 time(s)")
}
