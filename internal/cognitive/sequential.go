package cognitive

import (
	"github.com/ternarybob/cogsim/internal/models"
)

// SequentialPlanner is the TPE-style sequential planner slot. No suitable
// TPE implementation is wired, so it proposes through the model-based
// planner with EI acquisition and marks each spec so callers can see which
// path produced it.
type SequentialPlanner struct {
	fallback *ModelBasedPlanner
}

// NewSequentialPlanner creates the planner with a deterministic seed.
func NewSequentialPlanner(seed int64) *SequentialPlanner {
	return &SequentialPlanner{
		fallback: NewModelBasedPlanner(AcquisitionEI, seed),
	}
}

// Propose delegates to the EI surrogate and annotates the metadata.
func (p *SequentialPlanner) Propose(domain string, space models.DesignSpace, objectives []models.ObjectiveSpec,
	constraints []models.ConstraintSpec, history []models.RunResult, n int) []models.ExperimentSpec {

	specs := p.fallback.Propose(domain, space, objectives, constraints, history, n)
	for i := range specs {
		if specs[i].Metadata == nil {
			specs[i].Metadata = map[string]string{}
		}
		specs[i].Metadata["planner"] = "optuna_tpe_fallback"
	}
	return specs
}
