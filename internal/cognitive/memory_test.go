package cognitive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/cogsim/internal/models"
)

func TestMemoryStore_AppendAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory", "aero.jsonl")
	store := NewMemoryStore(path)

	score := 42.5
	require.NoError(t, store.Append(models.RunResult{
		ExperimentID: "aero-exp-1",
		Status:       models.RunStatusOK,
		Parameters:   map[string]float64{"x": 1.5},
		Outputs:      map[string]float64{"yield": 85.0},
		Score:        &score,
		Notes:        []string{"planner=model_based"},
	}))
	require.NoError(t, store.Append(models.RunResult{
		ExperimentID: "aero-exp-2",
		Status:       models.RunStatusInfeasible,
		Parameters:   map[string]float64{"x": 9.0},
		Outputs:      map[string]float64{"yield": 12.0},
	}))

	history, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.Equal(t, "aero-exp-1", history[0].ExperimentID)
	assert.Equal(t, models.RunStatusOK, history[0].Status)
	require.NotNil(t, history[0].Score)
	assert.Equal(t, 42.5, *history[0].Score)
	assert.Equal(t, []string{"planner=model_based"}, history[0].Notes)

	assert.Equal(t, models.RunStatusInfeasible, history[1].Status)
	assert.Nil(t, history[1].Score)
}

func TestMemoryStore_MissingFileIsEmptyHistory(t *testing.T) {
	store := NewMemoryStore(filepath.Join(t.TempDir(), "never-written.jsonl"))

	history, err := store.LoadAll()
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStore_ToleratesLegacyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.jsonl")

	// Rows written before the parameters field existed, plus a blank line
	legacy := `{"experiment_id":"old-1","status":"ok","outputs":{"yield":50}}

{"experiment_id":"old-2","status":"failed","parameters":{"x":2},"outputs":{}}
`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0644))

	store := NewMemoryStore(path)
	history, err := store.LoadAll()
	require.NoError(t, err)
	require.Len(t, history, 2)

	assert.NotNil(t, history[0].Parameters)
	assert.Empty(t, history[0].Parameters)
	assert.Equal(t, 2.0, history[1].Parameters["x"])
}

func TestMemoryStore_RejectsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{broken\n"), 0644))

	_, err := NewMemoryStore(path).LoadAll()
	assert.Error(t, err)
}
