package testutil

import "github.com/lattice-sim/lattice-sim/sim"

const e = sim.EmptySite

// CO oxidation species ids.
const (
	COAds = iota // CO*
	O2Gas        // O2(g)
	OAds         // O*
	CO2Gas       // CO2(g)
	COGas        // CO(g)
)

// COOxidation returns the reference CO-oxidation model on a static
// 50 × 50 × 2 lattice: 5 species, 9 reactions, 2500 O2 and 15000 CO
// molecules in the gas phase and an empty surface.
func COOxidation() *sim.ModelRecords {
	return &sim.ModelRecords{
		Species: []sim.SpeciesRecord{
			{ID: COAds, Name: "CO*", Phase: "lattice"},
			{ID: O2Gas, Name: "O2(g)", Phase: "solution"},
			{ID: OAds, Name: "O*", Phase: "lattice"},
			{ID: CO2Gas, Name: "CO2(g)", Phase: "solution"},
			{ID: COGas, Name: "CO(g)", Phase: "solution"},
		},
		Reactions: []sim.ReactionRecord{
			// CO(g) + [*] -> [CO*]
			{ID: 0, Type: "adsorption", NumberOfSites: 1, Reactants: []int{COGas},
				SiteReactants: []int{e}, SiteProducts: []int{COAds}, Rate: 1e-6},
			// Eley-Rideal: CO(g) + [O*] -> CO2(g) + [*]
			{ID: 1, Type: "desorption", NumberOfSites: 1, Reactants: []int{COGas}, Products: []int{CO2Gas},
				SiteReactants: []int{OAds}, SiteProducts: []int{e}, Rate: 1e-7},
			// Langmuir-Hinshelwood: [CO*, O*] -> CO2(g) + [*, *]
			{ID: 2, Type: "desorption", NumberOfSites: 2, Products: []int{CO2Gas},
				SiteReactants: []int{COAds, OAds}, SiteProducts: []int{e, e}, Rate: 2.0},
			// [CO*] -> CO(g) + [*]
			{ID: 3, Type: "desorption", NumberOfSites: 1, Products: []int{COGas},
				SiteReactants: []int{COAds}, SiteProducts: []int{e}, Rate: 0.1},
			// O2(g) + [*, *] -> [O*, O*]
			{ID: 4, Type: "adsorption", NumberOfSites: 2, Reactants: []int{O2Gas},
				SiteReactants: []int{e, e}, SiteProducts: []int{OAds, OAds}, Rate: 1e-6},
			// [CO*, *] -> [*, CO*]
			{ID: 5, Type: "diffusion", NumberOfSites: 2,
				SiteReactants: []int{COAds, e}, SiteProducts: []int{e, COAds}, Rate: 10},
			// CO2(g) pumped out of the reactor
			{ID: 6, Type: "homogeneous", Reactants: []int{CO2Gas}, Rate: 1.0},
			// Electro-oxidation: CO(g) + [O*] -> CO2(g) + [*]
			{ID: 7, Type: "charge_transfer", NumberOfSites: 1, Reactants: []int{COGas}, Products: []int{CO2Gas},
				SiteReactants: []int{OAds}, SiteProducts: []int{e},
				ChargeTransfer: &sim.ChargeTransferParams{
					Prefactor: 1e-6, TransferCoefficient: 0.5, Electrons: 1,
					EquilibriumPotential: -0.2, ReorganizationEnergy: 0.8, Direction: sim.Oxidation,
				}},
			// CO(g) pumped out of the reactor
			{ID: 8, Type: "homogeneous", Reactants: []int{COGas}, Rate: 1e-4},
		},
		InitialCounts: []sim.InitialStateRecord{
			{SpeciesID: COAds, Count: 0},
			{SpeciesID: O2Gas, Count: 2500},
			{SpeciesID: OAds, Count: 0},
			{SpeciesID: CO2Gas, Count: 0},
			{SpeciesID: COGas, Count: 15000},
		},
		Factors: sim.DefaultFactors(),
	}
}

// COParameters returns the static-lattice parameters of the CO model.
func COParameters() sim.LatticeParameters {
	return sim.LatticeParameters{
		LatticeConstant:     1,
		BoxXHi:              50,
		BoxYHi:              50,
		BoxZHi:              2,
		Temperature:         300,
		ElectrodePotential:  -0.5,
		ChargeTransferStyle: sim.ButlerVolmer,
	}
}

// SEI growth species ids.
const (
	LiMetal = iota // Li deposited on the electrode
	Li2CO3         // SEI product
	C2H4           // gas released by EC reduction
	LiIon          // Li+ in the electrolyte
	EC             // ethylene carbonate
)

// SEIGrowth returns the reference SEI-growth model on a dynamic lattice:
// lithium plates onto the electrode, grows the lattice upwards, and reduces
// EC into Li2CO3 and C2H4.
func SEIGrowth() *sim.ModelRecords {
	ct := func(e0 float64, dir sim.ChargeTransferDirection) *sim.ChargeTransferParams {
		return &sim.ChargeTransferParams{
			Prefactor: 1e3, TransferCoefficient: 0.5, Electrons: 1,
			EquilibriumPotential: e0, ReorganizationEnergy: 0.5, Direction: dir,
		}
	}
	return &sim.ModelRecords{
		Species: []sim.SpeciesRecord{
			{ID: LiMetal, Name: "Li", Phase: "lattice"},
			{ID: Li2CO3, Name: "Li2CO3", Phase: "lattice"},
			{ID: C2H4, Name: "C2H4", Phase: "solution"},
			{ID: LiIon, Name: "Li+", Phase: "solution"},
			{ID: EC, Name: "EC", Phase: "solution"},
		},
		Reactions: []sim.ReactionRecord{
			// Li+ + [*] -> [Li]
			{ID: 0, Type: "charge_transfer", NumberOfSites: 1, Reactants: []int{LiIon},
				SiteReactants: []int{e}, SiteProducts: []int{LiMetal}, ChargeTransfer: ct(-2.0, sim.Reduction)},
			// [Li] -> Li+ + [*]
			{ID: 1, Type: "charge_transfer", NumberOfSites: 1, Products: []int{LiIon},
				SiteReactants: []int{LiMetal}, SiteProducts: []int{e}, ChargeTransfer: ct(-2.0, sim.Oxidation)},
			// EC supplied by the bulk electrolyte
			{ID: 2, Type: "homogeneous", Products: []int{EC}, Rate: 5},
			// EC + [Li] -> C2H4 + [Li2CO3]
			{ID: 3, Type: "charge_transfer", NumberOfSites: 1, Reactants: []int{EC}, Products: []int{C2H4},
				SiteReactants: []int{LiMetal}, SiteProducts: []int{Li2CO3}, ChargeTransfer: ct(-1.0, sim.Reduction)},
			// [Li, *] -> [*, Li]
			{ID: 4, Type: "diffusion", NumberOfSites: 2,
				SiteReactants: []int{LiMetal, e}, SiteProducts: []int{e, LiMetal}, Rate: 1},
			// C2H4 leaves the cell
			{ID: 5, Type: "homogeneous", Reactants: []int{C2H4}, Rate: 1},
		},
		InitialCounts: []sim.InitialStateRecord{
			{SpeciesID: LiMetal, Count: 0},
			{SpeciesID: Li2CO3, Count: 0},
			{SpeciesID: C2H4, Count: 0},
			{SpeciesID: LiIon, Count: 10000},
			{SpeciesID: EC, Count: 0},
		},
		Factors: sim.DefaultFactors(),
	}
}

// SEIParameters returns the dynamic-lattice parameters of the SEI model.
func SEIParameters() sim.LatticeParameters {
	return sim.LatticeParameters{
		LatticeConstant:     1,
		BoxXHi:              100,
		BoxYHi:              100,
		BoxZHi:              2,
		Temperature:         300,
		ElectrodePotential:  -2.1,
		AddSites:            true,
		ChargeTransferStyle: sim.Marcus,
	}
}

// Quiescent returns a model in which no reaction can ever fire: its only
// reaction consumes a species with zero molecules.
func Quiescent() *sim.ModelRecords {
	return &sim.ModelRecords{
		Species: []sim.SpeciesRecord{
			{ID: 0, Name: "A", Phase: "solution"},
			{ID: 1, Name: "B", Phase: "solution"},
		},
		Reactions: []sim.ReactionRecord{
			{ID: 0, Type: "homogeneous", Reactants: []int{0}, Products: []int{1}, Rate: 1},
		},
		InitialCounts: []sim.InitialStateRecord{{SpeciesID: 0, Count: 0}, {SpeciesID: 1, Count: 7}},
		Factors:       sim.DefaultFactors(),
	}
}

// Dimerization returns a homogeneous model 2A -> B, B -> 2A with n
// molecules of A, used for exact propensity and conservation checks.
func Dimerization(n int) *sim.ModelRecords {
	return &sim.ModelRecords{
		Species: []sim.SpeciesRecord{
			{ID: 0, Name: "A", Phase: "solution"},
			{ID: 1, Name: "B", Phase: "solution"},
		},
		Reactions: []sim.ReactionRecord{
			{ID: 0, Type: "homogeneous", Reactants: []int{0, 0}, Products: []int{1}, Rate: 0.01},
			{ID: 1, Type: "homogeneous", Reactants: []int{1}, Products: []int{0, 0}, Rate: 0.5},
		},
		InitialCounts: []sim.InitialStateRecord{{SpeciesID: 0, Count: n}, {SpeciesID: 1, Count: 0}},
		Factors:       sim.DefaultFactors(),
	}
}

// HomogeneousParameters returns parameters for models without a lattice.
func HomogeneousParameters() sim.LatticeParameters {
	return sim.LatticeParameters{
		LatticeConstant:     1,
		Temperature:         300,
		ChargeTransferStyle: sim.ButlerVolmer,
	}
}
