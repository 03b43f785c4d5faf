package interfaces

import (
	"github.com/ternarybob/cogsim/internal/models"
)

// ExperimentPlanner proposes the next batch of experiments for a domain.
type ExperimentPlanner interface {
	Propose(domain string, space models.DesignSpace, objectives []models.ObjectiveSpec,
		constraints []models.ConstraintSpec, history []models.RunResult, n int) []models.ExperimentSpec
}
