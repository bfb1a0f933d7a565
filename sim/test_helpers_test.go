package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// surfaceRecords is a small surface model exercising every reaction type:
// species 0 A(g), 1 A*, 2 B2(g), 3 B*, 4 C(g).
func surfaceRecords() *ModelRecords {
	const e = EmptySite
	return &ModelRecords{
		Species: []SpeciesRecord{
			{ID: 0, Name: "A(g)", Phase: "solution"},
			{ID: 1, Name: "A*", Phase: "lattice"},
			{ID: 2, Name: "B2(g)", Phase: "solution"},
			{ID: 3, Name: "B*", Phase: "lattice"},
			{ID: 4, Name: "C(g)", Phase: "solution"},
		},
		Reactions: []ReactionRecord{
			{ID: 0, Type: "adsorption", NumberOfSites: 1, Reactants: []int{0},
				SiteReactants: []int{e}, SiteProducts: []int{1}, Rate: 0.01},
			{ID: 1, Type: "desorption", NumberOfSites: 1, Products: []int{0},
				SiteReactants: []int{1}, SiteProducts: []int{e}, Rate: 0.5},
			{ID: 2, Type: "diffusion", NumberOfSites: 2,
				SiteReactants: []int{1, e}, SiteProducts: []int{e, 1}, Rate: 2},
			{ID: 3, Type: "adsorption", NumberOfSites: 2, Reactants: []int{2},
				SiteReactants: []int{e, e}, SiteProducts: []int{3, 3}, Rate: 0.005},
			{ID: 4, Type: "desorption", NumberOfSites: 2, Products: []int{4},
				SiteReactants: []int{1, 3}, SiteProducts: []int{e, e}, Rate: 1},
			{ID: 5, Type: "charge_transfer", NumberOfSites: 1, Products: []int{4},
				SiteReactants: []int{3}, SiteProducts: []int{1},
				ChargeTransfer: &ChargeTransferParams{Prefactor: 0.3, TransferCoefficient: 0.5, Electrons: 1,
					EquilibriumPotential: 0.1, ReorganizationEnergy: 0.4, Direction: Reduction}},
			{ID: 6, Type: "homogeneous", Reactants: []int{4, 4}, Products: []int{2}, Rate: 0.001},
		},
		InitialCounts: []InitialStateRecord{
			{SpeciesID: 0, Count: 200},
			{SpeciesID: 1, Count: 3},
			{SpeciesID: 2, Count: 100},
			{SpeciesID: 3, Count: 0},
			{SpeciesID: 4, Count: 0},
		},
		Factors: DefaultFactors(),
	}
}

func surfaceParameters(addSites bool) LatticeParameters {
	return LatticeParameters{
		LatticeConstant:     1,
		BoxXHi:              4,
		BoxYHi:              4,
		BoxZHi:              2,
		Temperature:         300,
		ElectrodePotential:  0,
		AddSites:            addSites,
		ChargeTransferStyle: ButlerVolmer,
	}
}

func mustSurfaceNetwork(t *testing.T, addSites bool) *ReactionNetwork {
	t.Helper()
	n, err := NewReactionNetwork(surfaceRecords(), surfaceParameters(addSites))
	require.NoError(t, err)
	return n
}
