package cognitive

import (
	"fmt"
	"math"

	"github.com/ternarybob/cogsim/internal/interfaces"
	"github.com/ternarybob/cogsim/internal/models"
)

// SimulatorFunc evaluates a parameter point and returns output metrics.
type SimulatorFunc func(params map[string]float64) map[string]float64

// PenaltyMode controls how infeasible runs are scored.
type PenaltyMode string

const (
	// PenaltyDiscard leaves infeasible runs unscored.
	PenaltyDiscard PenaltyMode = "discard"
	// PenaltySoft assigns -|penaltyValue| so infeasible runs stay ranked.
	PenaltySoft PenaltyMode = "soft"
)

const eqTolerance = 1e-9

// Engine closes the plan-evaluate-record loop for one domain.
type Engine struct {
	domain    string
	planner   interfaces.ExperimentPlanner
	memory    *MemoryStore
	simulator SimulatorFunc
}

// NewEngine wires a planner, a memory store and a simulator for a domain.
func NewEngine(domain string, planner interfaces.ExperimentPlanner, memory *MemoryStore, simulator SimulatorFunc) *Engine {
	return &Engine{
		domain:    domain,
		planner:   planner,
		memory:    memory,
		simulator: simulator,
	}
}

// RunIteration loads history, asks the planner for n proposals, evaluates
// each through the simulator, applies constraints and scoring, and appends
// every result to memory.
func (e *Engine) RunIteration(space models.DesignSpace, objectives []models.ObjectiveSpec,
	constraints []models.ConstraintSpec, n int, penaltyMode PenaltyMode, penaltyValue float64) ([]models.RunResult, error) {

	history, err := e.memory.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to load experiment history: %w", err)
	}

	specs := e.planner.Propose(e.domain, space, objectives, constraints, history, n)

	results := make([]models.RunResult, 0, len(specs))
	for _, spec := range specs {
		outputs := e.simulator(spec.Parameters)
		status := CheckConstraints(outputs, spec.Constraints)

		var score *float64
		switch {
		case status == models.RunStatusOK:
			v := scoreOutputs(outputs, spec.Objectives)
			score = &v
		case penaltyMode == PenaltySoft:
			v := -math.Abs(penaltyValue)
			score = &v
		}

		var notes []string
		if planner := spec.Metadata["planner"]; planner != "" {
			notes = append(notes, "planner="+planner)
		}
		if acq := spec.Metadata["acquisition"]; acq != "" {
			notes = append(notes, "acquisition="+acq)
		}

		result := models.RunResult{
			ExperimentID: spec.ExperimentID,
			Status:       status,
			Parameters:   spec.Parameters,
			Outputs:      outputs,
			Score:        score,
			Notes:        notes,
		}
		if err := e.memory.Append(result); err != nil {
			return nil, fmt.Errorf("failed to record run result: %w", err)
		}
		results = append(results, result)
	}
	return results, nil
}

// CurrentParetoFront returns the non-dominated feasible history.
func (e *Engine) CurrentParetoFront(objectives []models.ObjectiveSpec) ([]models.RunResult, error) {
	history, err := e.memory.LoadAll()
	if err != nil {
		return nil, err
	}
	return ParetoFront(history, objectives), nil
}

// CheckConstraints classifies outputs: a missing constrained field is a
// failed run; a present value outside its bound is infeasible.
func CheckConstraints(outputs map[string]float64, constraints []models.ConstraintSpec) models.RunStatus {
	for _, c := range constraints {
		val, ok := outputs[c.Field]
		if !ok {
			return models.RunStatusFailed
		}
		switch c.Kind {
		case models.ConstraintRange:
			if c.Low != nil && val < *c.Low {
				return models.RunStatusInfeasible
			}
			if c.High != nil && val > *c.High {
				return models.RunStatusInfeasible
			}
		case models.ConstraintLTE:
			if c.Value != nil && val > *c.Value {
				return models.RunStatusInfeasible
			}
		case models.ConstraintGTE:
			if c.Value != nil && val < *c.Value {
				return models.RunStatusInfeasible
			}
		case models.ConstraintEQ:
			if c.Value != nil && math.Abs(val-*c.Value) > eqTolerance {
				return models.RunStatusInfeasible
			}
		}
	}
	return models.RunStatusOK
}
