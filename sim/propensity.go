package sim

import "math"

// choose returns the binomial coefficient C(n, k) as a float.
func choose(n, k int) float64 {
	if n < k {
		return 0
	}
	out := 1.0
	for i := 0; i < k; i++ {
		out *= float64(n-i) / float64(i+1)
	}
	return out
}

// rateFactor is the global scaling applied to a homogeneous reaction.
func rateFactor(r *Reaction, f FactorsRecord) float64 {
	if r.IsLattice() {
		return 1
	}
	factor := 1.0
	switch r.Order {
	case 0:
		factor *= f.FactorZero
	case 2:
		factor *= f.FactorTwo
	}
	if r.HasDuplicateReactant() {
		factor *= f.FactorDuplicate
	}
	return factor
}

// propensity evaluates one reaction against the given counts and number of
// eligible site anchors. The second result reports whether a negative or NaN
// value had to be clamped to zero.
func propensity(r *Reaction, f FactorsRecord, counts []int, eligible int) (float64, bool) {
	p := r.Rate * rateFactor(r, f)
	for _, s := range r.Reactants {
		p *= choose(counts[s.Species], s.Count)
	}
	if r.IsLattice() {
		p *= float64(eligible)
	}
	if p < 0 || math.IsNaN(p) {
		return 0, true
	}
	return p, false
}
