package schedule

import "math"

// Annealing parameters, tuned by eyeballing schedules rather than theory.
// The Boltzmann constant keeps the acceptance curve extremely steep: in
// practice only strictly-improving moves get taken, but the best state seen
// is tracked separately so a late bad streak cannot lose it.
const (
	coolingSteps    = 100
	coolingFraction = 0.95
	stepsPerTemp    = 100
	boltzmanns      = 1.3806485279e-23
)

// anneal runs simulated annealing over the calendar and returns the
// lowest-cost state observed.
func (p *Planner) anneal(days []*Day) []*Day {
	cur := days
	curCost := cost(cur)
	best := clone(cur)
	bestCost := curCost
	for step := 0; step < coolingSteps; step++ {
		for i := 0; i < stepsPerTemp; i++ {
			next := clone(cur)
			p.transition(next)
			nextCost := cost(next)
			if nextCost.Total < bestCost.Total {
				best = clone(next)
				bestCost = nextCost
			}
			delta := float64(curCost.Total - nextCost.Total)
			merit := math.Exp(delta / boltzmanns / float64(step) * coolingFraction)
			if merit > p.rng.Float64() {
				cur = next
				curCost = nextCost
			}
		}
	}
	return best
}
