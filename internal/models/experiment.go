package models

import "fmt"

// Direction of an objective.
const (
	DirectionMinimize = "minimize"
	DirectionMaximize = "maximize"
)

// ObjectiveSpec names a metric to optimize.
type ObjectiveSpec struct {
	Name      string  `json:"name" validate:"required"`
	Direction string  `json:"direction" validate:"required,oneof=minimize maximize"`
	Weight    float64 `json:"weight" validate:"gte=0"`
}

// Constraint kinds.
const (
	ConstraintRange = "range"
	ConstraintLTE   = "lte"
	ConstraintGTE   = "gte"
	ConstraintEQ    = "eq"
)

// ConstraintSpec restricts one field of the run outputs.
// range uses Low/High (either side may be open); lte/gte/eq use Value.
type ConstraintSpec struct {
	Name  string   `json:"name" validate:"required"`
	Kind  string   `json:"kind" validate:"required,oneof=range lte gte eq"`
	Field string   `json:"field" validate:"required"`
	Low   *float64 `json:"low,omitempty"`
	High  *float64 `json:"high,omitempty"`
	Value *float64 `json:"value,omitempty"`
}

// Validate enforces the per-kind field population rule.
func (c *ConstraintSpec) Validate() error {
	switch c.Kind {
	case ConstraintRange:
		if c.Low == nil && c.High == nil {
			return fmt.Errorf("constraint %q: range requires low or high", c.Name)
		}
		if c.Low != nil && c.High != nil && *c.Low > *c.High {
			return fmt.Errorf("constraint %q: low must not exceed high", c.Name)
		}
	case ConstraintLTE, ConstraintGTE, ConstraintEQ:
		if c.Value == nil {
			return fmt.Errorf("constraint %q: %s requires value", c.Name, c.Kind)
		}
	default:
		return fmt.Errorf("constraint %q: unknown kind %q", c.Name, c.Kind)
	}
	return nil
}

// Interval is a closed parameter range.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// DesignSpace bounds each tunable parameter.
type DesignSpace struct {
	Bounds map[string]Interval `json:"bounds"`
}

// NewDesignSpace builds a DesignSpace from {name: [low, high]} pairs.
func NewDesignSpace(raw map[string][]float64) (DesignSpace, error) {
	ds := DesignSpace{Bounds: make(map[string]Interval, len(raw))}
	for name, pair := range raw {
		if len(pair) != 2 {
			return DesignSpace{}, fmt.Errorf("design space %q: expected [low, high]", name)
		}
		if pair[0] > pair[1] {
			return DesignSpace{}, fmt.Errorf("design space %q: low must not exceed high", name)
		}
		ds.Bounds[name] = Interval{Low: pair[0], High: pair[1]}
	}
	if len(ds.Bounds) == 0 {
		return DesignSpace{}, fmt.Errorf("design space must not be empty")
	}
	return ds, nil
}

// ExperimentSpec is one planner proposal.
type ExperimentSpec struct {
	ExperimentID string             `json:"experiment_id"`
	Domain       string             `json:"domain"`
	Parameters   map[string]float64 `json:"parameters"`
	Objectives   []ObjectiveSpec    `json:"objectives"`
	Constraints  []ConstraintSpec   `json:"constraints,omitempty"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
}

// RunStatus is the outcome of evaluating one experiment.
type RunStatus string

const (
	RunStatusOK         RunStatus = "ok"
	RunStatusInfeasible RunStatus = "infeasible"
	RunStatusFailed     RunStatus = "failed"
)

// RunResult is the evaluated outcome of one experiment, the unit stored in
// experiment memory.
type RunResult struct {
	ExperimentID string             `json:"experiment_id"`
	Status       RunStatus          `json:"status"`
	Parameters   map[string]float64 `json:"parameters"`
	Outputs      map[string]float64 `json:"outputs"`
	Score        *float64           `json:"score,omitempty"`
	Notes        []string           `json:"notes,omitempty"`
}
