package cli

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EnkiGaming/EnkiLibFor1.8-sub000/internal/trace"
)

// journaledRun runs the combat scenario into a fresh journal and returns
// its path.
func journaledRun(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "combat.yaml", combatYAML)
	scenario := writeFile(t, dir, "shield.yaml", fmt.Sprintf(combatScenario, "shield", "tr", true))
	db := filepath.Join(dir, "enki.db")

	_, _, err := execute(NewRunCommand(textOpts()), scenario, "--db", db)
	require.NoError(t, err)
	return db
}

func TestTraceCommand_List(t *testing.T) {
	db := journaledRun(t)

	out, _, err := execute(NewTraceCommand(textOpts()), "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "1 raise(s), last seq ")
	assert.Contains(t, out, "tr-1  damage  entries=")
	assert.Contains(t, out, "dispatches=5")
	assert.NotContains(t, out, "incomplete")
}

func TestTraceCommand_Show(t *testing.T) {
	db := journaledRun(t)

	out, _, err := execute(NewTraceCommand(textOpts()), "--db", db, "tr-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Trace for raise: tr-1 (damage)")
	assert.Contains(t, out, "Status: complete (cancelled)")
	assert.Contains(t, out, "damage → bleed (shared)")
	assert.Contains(t, out, "damage → audit (unshared)")
	assert.Contains(t, out, "✓ verified")
}

func TestTraceCommand_ShowJSONFiltered(t *testing.T) {
	db := journaledRun(t)

	out, _, err := execute(NewTraceCommand(jsonOpts()), "--db", db, "tr-1", "--kind", "dispatch")
	require.NoError(t, err)

	var result TraceResult
	resp := decodeResponse(t, out, &result)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "damage", result.RootEvent)
	require.Len(t, result.Timeline, 5)
	for _, e := range result.Timeline {
		assert.Equal(t, trace.KindDispatch, e.Kind)
	}
	assert.Len(t, result.Edges, 2)
	assert.Equal(t, 5, result.Stats.Dispatches)
	assert.Equal(t, 2, result.Stats.Dependents)
	assert.True(t, result.Stats.IsComplete)
	assert.True(t, result.Stats.Cancelled)
	assert.Empty(t, result.Mismatches)
}

func TestTraceCommand_DetectsTampering(t *testing.T) {
	db := journaledRun(t)

	raw, err := sql.Open("sqlite3", db)
	require.NoError(t, err)
	_, err = raw.Exec(`UPDATE entries SET listener = 'forged' WHERE kind = 'dispatch' AND listener = 'shield'`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	out, _, err := execute(NewTraceCommand(textOpts()), "--db", db, "tr-1")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ 1 altered entry(ies)")
}

func TestTraceCommand_Errors(t *testing.T) {
	db := journaledRun(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no db", []string{"tr-1"}, "--db (or ENKI_JOURNAL) is required"},
		{"missing db", []string{"--db", "/nonexistent/enki.db"}, "journal not found"},
		{"unknown raise", []string{"--db", db, "nope"}, "raise not found: nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(NewTraceCommand(textOpts()), tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompleteStatus(t *testing.T) {
	assert.Equal(t, "interrupted", completeStatus(TraceStats{Interrupted: true, IsComplete: true}))
	assert.Equal(t, "incomplete", completeStatus(TraceStats{}))
	assert.Equal(t, "complete", completeStatus(TraceStats{IsComplete: true}))
}
