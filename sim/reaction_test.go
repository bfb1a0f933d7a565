package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSpecies = []Species{
	{ID: 0, Name: "A", Phase: PhaseSolution},
	{ID: 1, Name: "B", Phase: PhaseSolution},
	{ID: 2, Name: "X*", Phase: PhaseLattice},
	{ID: 3, Name: "Y*", Phase: PhaseLattice},
}

func TestNewReaction_Stoichiometry(t *testing.T) {
	r, err := newReaction(ReactionRecord{
		ID: 0, Type: "homogeneous", Reactants: []int{1, 0}, Products: []int{0, 0},
	}, testSpecies, 2)
	require.NoError(t, err)
	assert.Equal(t, []Stoich{{0, 1}, {1, 1}}, r.Reactants)
	assert.Equal(t, []Stoich{{0, 2}}, r.Products)
	assert.Equal(t, []Stoich{{0, 1}, {1, -1}}, r.Net)
	assert.Equal(t, 2, r.Order)
	assert.False(t, r.IsLattice())
	assert.False(t, r.HasDuplicateReactant())
}

func TestNewReaction_NetOmitsCatalysts(t *testing.T) {
	r, err := newReaction(ReactionRecord{
		ID: 0, Type: "homogeneous", Reactants: []int{0, 1}, Products: []int{0},
	}, testSpecies, 1)
	require.NoError(t, err)
	assert.Equal(t, []Stoich{{1, -1}}, r.Net)
}

func TestNewReaction_Validation(t *testing.T) {
	const e = EmptySite
	tests := []struct {
		name string
		rec  ReactionRecord
		rate float64
		ok   bool
	}{
		{"homogeneous", ReactionRecord{Type: "homogeneous", Reactants: []int{0}}, 1, true},
		{"homogeneous with sites", ReactionRecord{Type: "homogeneous", NumberOfSites: 1, SiteReactants: []int{2}, SiteProducts: []int{e}}, 1, false},
		{"three reactants", ReactionRecord{Type: "homogeneous", Reactants: []int{0, 0, 1}}, 1, false},
		{"lattice species in solution", ReactionRecord{Type: "homogeneous", Reactants: []int{2}}, 1, false},
		{"negative rate", ReactionRecord{Type: "homogeneous"}, -1, false},
		{"nan rate", ReactionRecord{Type: "homogeneous"}, math.NaN(), false},
		{"adsorption", ReactionRecord{Type: "adsorption", NumberOfSites: 1, Reactants: []int{0}, SiteReactants: []int{e}, SiteProducts: []int{2}}, 1, true},
		{"adsorption onto occupied", ReactionRecord{Type: "adsorption", NumberOfSites: 1, SiteReactants: []int{3}, SiteProducts: []int{2}}, 1, false},
		{"adsorption without sites", ReactionRecord{Type: "adsorption", Reactants: []int{0}}, 1, false},
		{"desorption", ReactionRecord{Type: "desorption", NumberOfSites: 2, Products: []int{1}, SiteReactants: []int{2, 3}, SiteProducts: []int{e, e}}, 1, true},
		{"desorption leaving species", ReactionRecord{Type: "desorption", NumberOfSites: 1, SiteReactants: []int{2}, SiteProducts: []int{3}}, 1, false},
		{"diffusion", ReactionRecord{Type: "diffusion", NumberOfSites: 2, SiteReactants: []int{2, e}, SiteProducts: []int{e, 2}}, 1, true},
		{"diffusion changing species", ReactionRecord{Type: "diffusion", NumberOfSites: 2, SiteReactants: []int{2, e}, SiteProducts: []int{e, 3}}, 1, false},
		{"diffusion on one site", ReactionRecord{Type: "diffusion", NumberOfSites: 1, SiteReactants: []int{2}, SiteProducts: []int{e}}, 1, false},
		{"charge transfer swap", ReactionRecord{Type: "charge_transfer", NumberOfSites: 1, SiteReactants: []int{2}, SiteProducts: []int{3}}, 1, true},
		{"empty to empty slot", ReactionRecord{Type: "charge_transfer", NumberOfSites: 1, SiteReactants: []int{e}, SiteProducts: []int{e}}, 1, false},
		{"solution species on site", ReactionRecord{Type: "charge_transfer", NumberOfSites: 1, SiteReactants: []int{0}, SiteProducts: []int{e}}, 1, false},
		{"slot count mismatch", ReactionRecord{Type: "adsorption", NumberOfSites: 2, SiteReactants: []int{e}, SiteProducts: []int{2}}, 1, false},
		{"three sites", ReactionRecord{Type: "adsorption", NumberOfSites: 3, SiteReactants: []int{e, e, e}, SiteProducts: []int{2, 2, 2}}, 1, false},
		{"unknown type", ReactionRecord{Type: "teleport"}, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newReaction(tt.rec, testSpecies, tt.rate)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestParseReactionType_RoundTrip(t *testing.T) {
	for typ, name := range reactionTypeNames {
		got, err := ParseReactionType(name)
		require.NoError(t, err)
		assert.Equal(t, typ, got)
		assert.Equal(t, name, typ.String())
	}
}

func TestPropensity(t *testing.T) {
	f := FactorsRecord{FactorZero: 2, FactorTwo: 0.5, FactorDuplicate: 0.1}
	counts := []int{10, 4, 0, 0}
	tests := []struct {
		name     string
		r        Reaction
		eligible int
		want     float64
	}{
		{"zero order", Reaction{Rate: 3, Order: 0}, 0, 3 * 2},
		{"first order", Reaction{Rate: 3, Order: 1, Reactants: []Stoich{{0, 1}}}, 0, 3 * 10},
		{"second order distinct", Reaction{Rate: 1, Order: 2, Reactants: []Stoich{{0, 1}, {1, 1}}}, 0, 0.5 * 10 * 4},
		{"second order duplicate", Reaction{Rate: 1, Order: 2, Reactants: []Stoich{{0, 2}}}, 0, 0.5 * 0.1 * 45},
		{"not enough molecules", Reaction{Rate: 1, Order: 2, Reactants: []Stoich{{2, 2}}}, 0, 0},
		{"lattice", Reaction{Rate: 2, Order: 1, Reactants: []Stoich{{1, 1}}, Sites: []SiteRewrite{{EmptySite, 2}}}, 7, 2 * 4 * 7},
		{"lattice without eligible sites", Reaction{Rate: 2, Sites: []SiteRewrite{{2, EmptySite}}}, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, clamped := propensity(&tt.r, f, counts, tt.eligible)
			assert.False(t, clamped)
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestPropensity_ClampsInvalidValues(t *testing.T) {
	for _, rate := range []float64{-1, math.NaN()} {
		r := Reaction{Rate: rate, Order: 1, Reactants: []Stoich{{0, 1}}}
		got, clamped := propensity(&r, DefaultFactors(), []int{3}, 0)
		assert.True(t, clamped)
		assert.Zero(t, got)
	}
}

func TestChoose(t *testing.T) {
	assert.Equal(t, 1.0, choose(5, 0))
	assert.Equal(t, 5.0, choose(5, 1))
	assert.Equal(t, 10.0, choose(5, 2))
	assert.Equal(t, 0.0, choose(1, 2))
}
