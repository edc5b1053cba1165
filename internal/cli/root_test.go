package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "enki", cmd.Use)
	assert.Contains(t, cmd.Long, "dependent events")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"validate", "raise", "run", "test", "trace"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err, "command %s should exist", name)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	format := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "text", format.DefValue)
}

func TestRootCommand_EnvironmentDefaults(t *testing.T) {
	t.Setenv("ENKI_FORMAT", "json")
	t.Setenv("ENKI_JOURNAL", "/tmp/enki-test.db")

	cmd := NewRootCommand()
	assert.Equal(t, "json", cmd.PersistentFlags().Lookup("format").DefValue)

	for _, name := range []string{"run", "raise", "trace"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, "/tmp/enki-test.db", sub.Flags().Lookup("db").DefValue, name)
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	dir := t.TempDir()
	def := writeFile(t, dir, "combat.yaml", combatYAML)

	_, _, err := execute(NewRootCommand(), "validate", def, "--format", "xml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_InvalidEnvironment(t *testing.T) {
	t.Setenv("ENKI_MAX_DEPTH", "-1")
	dir := t.TempDir()
	def := writeFile(t, dir, "combat.yaml", combatYAML)

	_, _, err := execute(NewRootCommand(), "validate", def)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "invalid environment")
}

func TestRaiseCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	raise, _, err := cmd.Find([]string{"raise"})
	require.NoError(t, err)

	for _, name := range []string{"db", "field", "cancelled", "pre-only"} {
		assert.NotNil(t, raise.Flags().Lookup(name), name)
	}
}
