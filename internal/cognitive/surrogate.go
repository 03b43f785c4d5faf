package cognitive

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/ternarybob/cogsim/internal/models"
)

// AcquisitionKind selects how candidates are ranked.
type AcquisitionKind string

const (
	AcquisitionUCB      AcquisitionKind = "ucb"
	AcquisitionEI       AcquisitionKind = "ei"
	AcquisitionThompson AcquisitionKind = "thompson"
)

const (
	defaultRandomCandidates = 64
	defaultBeta             = 0.6
	defaultSeed             = 7

	// warmupThreshold is the history size below which proposals delegate
	// to the grid planner.
	warmupThreshold = 5
)

// ModelBasedPlanner ranks uniform random candidates by a BO-style
// acquisition over a k-nearest-neighbor surrogate of the history.
type ModelBasedPlanner struct {
	randomCandidates int
	beta             float64
	acquisition      AcquisitionKind
	rng              *rand.Rand
}

// NewModelBasedPlanner creates a planner with the given acquisition and
// deterministic seed.
func NewModelBasedPlanner(acquisition AcquisitionKind, seed int64) *ModelBasedPlanner {
	if acquisition == "" {
		acquisition = AcquisitionUCB
	}
	return &ModelBasedPlanner{
		randomCandidates: defaultRandomCandidates,
		beta:             defaultBeta,
		acquisition:      acquisition,
		rng:              rand.New(rand.NewSource(seed)),
	}
}

// NewDefaultModelBasedPlanner uses UCB with the default seed.
func NewDefaultModelBasedPlanner() *ModelBasedPlanner {
	return NewModelBasedPlanner(AcquisitionUCB, defaultSeed)
}

// Propose returns the top n candidates by acquisition score. With fewer
// than five observations it delegates to the grid planner.
func (p *ModelBasedPlanner) Propose(domain string, space models.DesignSpace, objectives []models.ObjectiveSpec,
	constraints []models.ConstraintSpec, history []models.RunResult, n int) []models.ExperimentSpec {

	if len(history) < warmupThreshold {
		return NewGridPlanner().Propose(domain, space, objectives, constraints, history, n)
	}

	names := sortedBoundNames(space)
	pool := make([]map[string]float64, p.randomCandidates)
	for i := range pool {
		pool[i] = p.samplePoint(space, names)
	}

	bestObserved := bestObservedScore(history, objectives)

	type scored struct {
		params map[string]float64
		value  float64
	}
	ranked := make([]scored, len(pool))
	for i, params := range pool {
		ranked[i] = scored{params: params, value: p.acquisitionValue(params, history, objectives, bestObserved)}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].value > ranked[j].value
	})

	if n > len(ranked) {
		n = len(ranked)
	}
	specs := make([]models.ExperimentSpec, 0, n)
	for i := 0; i < n; i++ {
		specs = append(specs, models.ExperimentSpec{
			ExperimentID: fmt.Sprintf("%s-mb-%d", domain, len(history)+i+1),
			Domain:       domain,
			Parameters:   ranked[i].params,
			Objectives:   objectives,
			Constraints:  constraints,
			Metadata: map[string]string{
				"planner":     "model_based",
				"acquisition": string(p.acquisition),
			},
		})
	}
	return specs
}

func (p *ModelBasedPlanner) samplePoint(space models.DesignSpace, names []string) map[string]float64 {
	point := make(map[string]float64, len(names))
	for _, name := range names {
		bound := space.Bounds[name]
		point[name] = bound.Low + p.rng.Float64()*(bound.High-bound.Low)
	}
	return point
}

func (p *ModelBasedPlanner) acquisitionValue(params map[string]float64, history []models.RunResult,
	objectives []models.ObjectiveSpec, bestObserved float64) float64 {

	mean, std := surrogateMeanStd(params, history, objectives)

	switch p.acquisition {
	case AcquisitionUCB:
		return mean + p.beta*std
	case AcquisitionEI:
		// Positive part of improvement with a small exploration bonus
		improvement := mean - bestObserved
		if improvement < 0 {
			improvement = 0
		}
		return improvement + 0.1*std
	case AcquisitionThompson:
		if std < 1e-6 {
			std = 1e-6
		}
		return p.rng.NormFloat64()*std + mean
	}
	return mean
}

// surrogateMeanStd estimates (mean, std) at params from the k nearest ok
// observations (k = min(7, n)), inverse-distance weighted, with a spatial
// uncertainty term of 0.2 times the mean neighbor distance.
func surrogateMeanStd(params map[string]float64, history []models.RunResult,
	objectives []models.ObjectiveSpec) (float64, float64) {

	type row struct {
		dist  float64
		score float64
	}
	var rows []row
	for _, r := range history {
		if r.Status != models.RunStatusOK {
			continue
		}
		rows = append(rows, row{
			dist:  paramDistance(params, r.Parameters),
			score: scoreOutputs(r.Outputs, objectives),
		})
	}

	if len(rows) == 0 {
		return 0.0, 1.0
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].dist < rows[j].dist })
	k := 7
	if len(rows) < k {
		k = len(rows)
	}
	neigh := rows[:k]

	weights := make([]float64, k)
	wsum := 0.0
	for i, nb := range neigh {
		weights[i] = 1.0 / (nb.dist + 1e-6)
		wsum += weights[i]
	}

	mean := 0.0
	for i, nb := range neigh {
		mean += (weights[i] / wsum) * nb.score
	}
	variance := 0.0
	for i, nb := range neigh {
		diff := nb.score - mean
		variance += (weights[i] / wsum) * diff * diff
	}

	meanDist := 0.0
	for _, nb := range neigh {
		meanDist += nb.dist
	}
	meanDist /= float64(k)

	if variance < 0 {
		variance = 0
	}
	std := math.Sqrt(variance) + 0.2*meanDist
	return mean, std
}

// bestObservedScore is the best scalarized score among ok history entries.
func bestObservedScore(history []models.RunResult, objectives []models.ObjectiveSpec) float64 {
	best := 0.0
	found := false
	for _, r := range history {
		if r.Status != models.RunStatusOK {
			continue
		}
		score := scoreOutputs(r.Outputs, objectives)
		if !found || score > best {
			best = score
			found = true
		}
	}
	return best
}

// paramDistance is the Euclidean distance over the intersecting keys of a
// and b; disjoint parameter sets are treated as a unit distance apart.
func paramDistance(a, b map[string]float64) float64 {
	sum := 0.0
	shared := 0
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			continue
		}
		shared++
		d := av - bv
		sum += d * d
	}
	if shared == 0 {
		return 1.0
	}
	return math.Sqrt(sum)
}
