package cognitive

import (
	"github.com/ternarybob/cogsim/internal/models"
)

// ObjectiveVector converts outputs to a canonical maximization vector:
// minimize objectives are negated so dominance checks only compare upward.
func ObjectiveVector(outputs map[string]float64, objectives []models.ObjectiveSpec) map[string]float64 {
	v := make(map[string]float64, len(objectives))
	for _, o := range objectives {
		raw := outputs[o.Name]
		if o.Direction == models.DirectionMaximize {
			v[o.Name] = raw
		} else {
			v[o.Name] = -raw
		}
	}
	return v
}

// Dominates reports whether a Pareto-dominates b over their shared keys:
// a >= b everywhere and a > b somewhere. Disjoint vectors never dominate.
func Dominates(a, b map[string]float64) bool {
	geAll := true
	gtAny := false
	shared := 0
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			continue
		}
		shared++
		if av < bv {
			geAll = false
			break
		}
		if av > bv {
			gtAny = true
		}
	}
	return shared > 0 && geAll && gtAny
}

// ParetoFront returns the non-dominated feasible (status ok) results.
func ParetoFront(results []models.RunResult, objectives []models.ObjectiveSpec) []models.RunResult {
	var feasible []models.RunResult
	for _, r := range results {
		if r.Status == models.RunStatusOK {
			feasible = append(feasible, r)
		}
	}

	vectors := make([]map[string]float64, len(feasible))
	for i, r := range feasible {
		vectors[i] = ObjectiveVector(r.Outputs, objectives)
	}

	var front []models.RunResult
	for i, ri := range feasible {
		dominated := false
		for j, vj := range vectors {
			if i == j {
				continue
			}
			if Dominates(vj, vectors[i]) {
				dominated = true
				break
			}
		}
		if !dominated {
			front = append(front, ri)
		}
	}
	return front
}
