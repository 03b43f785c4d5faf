package cognitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/cogsim/internal/models"
)

func aeroObjectives() []models.ObjectiveSpec {
	return []models.ObjectiveSpec{
		{Name: "yield", Direction: models.DirectionMaximize, Weight: 1.0},
		{Name: "energy", Direction: models.DirectionMinimize, Weight: 1.0},
	}
}

func TestObjectiveVector_NegatesMinimize(t *testing.T) {
	v := ObjectiveVector(map[string]float64{"yield": 80, "energy": 5}, aeroObjectives())

	assert.Equal(t, 80.0, v["yield"])
	assert.Equal(t, -5.0, v["energy"])
}

func TestDominates(t *testing.T) {
	better := map[string]float64{"yield": 90.0, "energy": -2.0}
	worse := map[string]float64{"yield": 80.0, "energy": -5.0}
	mixed := map[string]float64{"yield": 95.0, "energy": -9.0}

	assert.True(t, Dominates(better, worse))
	assert.False(t, Dominates(worse, better))

	// Trade-offs do not dominate in either direction
	assert.False(t, Dominates(better, mixed))
	assert.False(t, Dominates(mixed, better))

	// Equal vectors never dominate
	assert.False(t, Dominates(better, better))

	// Disjoint vectors never dominate
	assert.False(t, Dominates(map[string]float64{"a": 1}, map[string]float64{"b": 0}))
}

func TestParetoFront(t *testing.T) {
	results := []models.RunResult{
		{ExperimentID: "e1", Status: models.RunStatusOK, Outputs: map[string]float64{"yield": 90, "energy": 2}},
		{ExperimentID: "e2", Status: models.RunStatusOK, Outputs: map[string]float64{"yield": 80, "energy": 5}},  // dominated by e1
		{ExperimentID: "e3", Status: models.RunStatusOK, Outputs: map[string]float64{"yield": 95, "energy": 9}},  // trade-off with e1
		{ExperimentID: "e4", Status: models.RunStatusInfeasible, Outputs: map[string]float64{"yield": 99, "energy": 1}},
		{ExperimentID: "e5", Status: models.RunStatusFailed, Outputs: map[string]float64{}},
	}

	front := ParetoFront(results, aeroObjectives())
	require.Len(t, front, 2)

	ids := []string{front[0].ExperimentID, front[1].ExperimentID}
	assert.Contains(t, ids, "e1")
	assert.Contains(t, ids, "e3")
}

func TestParetoFront_EmptyAndAllInfeasible(t *testing.T) {
	assert.Empty(t, ParetoFront(nil, aeroObjectives()))

	results := []models.RunResult{
		{ExperimentID: "e1", Status: models.RunStatusInfeasible, Outputs: map[string]float64{"yield": 99}},
	}
	assert.Empty(t, ParetoFront(results, aeroObjectives()))
}
