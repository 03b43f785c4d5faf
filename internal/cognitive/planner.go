package cognitive

import (
	"fmt"
	"sort"

	"github.com/ternarybob/cogsim/internal/models"
)

// Planner names accepted by the suggest API.
const (
	PlannerBaseline   = "baseline"
	PlannerModelBased = "model_based"
	PlannerSequential = "optuna_tpe"
)

// GridPlanner is the warm-up planner. Sample i places each parameter at
// lo + (hi-lo) * min(1, step/max(10, step)) with step = len(history)+i+1,
// so the first ten steps fan out linearly toward the upper bound.
//
// Once step >= 10 the fraction saturates at 1 and every later sample sits
// on the upper bound. That collapse is part of the warm-up contract; its
// only job is to produce the first few feasible observations before the
// model-based planner takes over.
type GridPlanner struct{}

// NewGridPlanner creates the warm-up planner.
func NewGridPlanner() *GridPlanner {
	return &GridPlanner{}
}

// Propose produces n grid samples.
func (p *GridPlanner) Propose(domain string, space models.DesignSpace, objectives []models.ObjectiveSpec,
	constraints []models.ConstraintSpec, history []models.RunResult, n int) []models.ExperimentSpec {

	historyCount := len(history)
	specs := make([]models.ExperimentSpec, 0, n)

	for i := 0; i < n; i++ {
		step := historyCount + i + 1
		denom := step
		if denom < 10 {
			denom = 10
		}
		frac := float64(step) / float64(denom)
		if frac > 1.0 {
			frac = 1.0
		}

		params := make(map[string]float64, len(space.Bounds))
		for name, bound := range space.Bounds {
			params[name] = bound.Low + (bound.High-bound.Low)*frac
		}

		specs = append(specs, models.ExperimentSpec{
			ExperimentID: fmt.Sprintf("%s-exp-%d", domain, step),
			Domain:       domain,
			Parameters:   params,
			Objectives:   objectives,
			Constraints:  constraints,
		})
	}
	return specs
}

// sortedBoundNames gives a stable parameter order for deterministic
// candidate sampling.
func sortedBoundNames(space models.DesignSpace) []string {
	names := make([]string, 0, len(space.Bounds))
	for name := range space.Bounds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// scoreOutputs scalarizes outputs against the objectives: per objective
// weight * (value if maximize else -value), summed.
func scoreOutputs(outputs map[string]float64, objectives []models.ObjectiveSpec) float64 {
	total := 0.0
	for _, obj := range objectives {
		val := outputs[obj.Name]
		if obj.Direction == models.DirectionMaximize {
			total += obj.Weight * val
		} else {
			total += obj.Weight * -val
		}
	}
	return total
}
