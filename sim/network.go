package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// ReactionNetwork is the static model of one simulation setup: reactions in
// persisted id order, the initial state, the initial propensities and the
// dependency graph. It is read-only after construction and shared by every
// replica.
type ReactionNetwork struct {
	Species             []Species
	Reactions           []Reaction
	InitialState        LatticeState
	InitialPropensities []float64
	Dependents          *DependencyGraph
	Factors             FactorsRecord
	Parameters          LatticeParameters
}

// NewReactionNetwork builds a network from persisted records. Any invalid
// record aborts construction; no partially built network is returned.
func NewReactionNetwork(records *ModelRecords, params LatticeParameters) (*ReactionNetwork, error) {
	if records == nil {
		return nil, fmt.Errorf("%w: no model records", ErrMalformedRecord)
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("lattice parameters: %w", err)
	}

	species, err := buildSpecies(records.Species)
	if err != nil {
		return nil, err
	}
	if err := validateFactors(records.Factors); err != nil {
		return nil, err
	}
	reactions, err := buildReactions(records.Reactions, species, params)
	if err != nil {
		return nil, err
	}

	state, err := buildInitialState(records, species, reactions, params)
	if err != nil {
		return nil, err
	}

	graph := buildDependencyGraph(reactions, len(species))
	if err := validateDependencyGraph(graph, reactions, len(species)); err != nil {
		return nil, err
	}

	n := &ReactionNetwork{
		Species:      species,
		Reactions:    reactions,
		InitialState: state,
		Dependents:   graph,
		Factors:      records.Factors,
		Parameters:   params,
	}
	elig := newEligibility(reactions, state.Lattice)
	n.InitialPropensities = make([]float64, len(reactions))
	for i := range reactions {
		n.InitialPropensities[i], _ = propensity(&reactions[i], n.Factors, state.Counts, elig.count(i))
		if math.IsInf(n.InitialPropensities[i], 0) {
			return nil, recordErr("reactions", i, ErrPropensityOverflow, "initial propensity overflows")
		}
	}

	logrus.Infof("Built reaction network: %d species, %d reactions, %d sites",
		len(species), len(reactions), n.NumSites())
	return n, nil
}

func buildSpecies(records []SpeciesRecord) ([]Species, error) {
	species := make([]Species, len(records))
	for i, rec := range records {
		if rec.ID != i {
			return nil, recordErr("species", rec.ID, ErrMalformedRecord, "expected id %d (ids must be contiguous from 0)", i)
		}
		phase, err := ParsePhase(rec.Phase)
		if err != nil {
			return nil, recordErr("species", rec.ID, ErrMalformedRecord, "%v", err)
		}
		species[i] = Species{ID: rec.ID, Name: rec.Name, Phase: phase}
	}
	return species, nil
}

func validateFactors(f FactorsRecord) error {
	for _, v := range []float64{f.FactorZero, f.FactorTwo, f.FactorDuplicate} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return recordErr("factors", 0, ErrMalformedRecord, "factor %v must be finite and non-negative", v)
		}
	}
	return nil
}

func buildReactions(records []ReactionRecord, species []Species, params LatticeParameters) ([]Reaction, error) {
	reactions := make([]Reaction, len(records))
	for i, rec := range records {
		if rec.ID != i {
			return nil, recordErr("reactions", rec.ID, ErrMalformedRecord, "expected id %d (ids must be contiguous from 0)", i)
		}
		rate := rec.Rate
		if rec.Type == ReactionChargeTransfer.String() {
			if rec.ChargeTransfer == nil {
				return nil, recordErr("reactions", rec.ID, ErrInvalidReaction, "charge transfer reaction without charge transfer parameters")
			}
			k, err := RateConstant(params.ChargeTransferStyle, *rec.ChargeTransfer, params.ElectrodePotential, params.Temperature)
			if err != nil {
				return nil, recordErr("reactions", rec.ID, ErrInvalidReaction, "%v", err)
			}
			rate = k
		}
		r, err := newReaction(rec, species, rate)
		if err != nil {
			return nil, err
		}
		reactions[i] = r
	}
	return reactions, nil
}

func needsLattice(species []Species, reactions []Reaction) bool {
	for _, s := range species {
		if s.Phase == PhaseLattice {
			return true
		}
	}
	for i := range reactions {
		if reactions[i].IsLattice() {
			return true
		}
	}
	return false
}

// buildInitialState requires one initial_state record per species. Lattice
// species are placed first from initial_sites records, then on the lowest
// numbered empty sites until their count is reached.
func buildInitialState(records *ModelRecords, species []Species, reactions []Reaction, params LatticeParameters) (LatticeState, error) {
	state := LatticeState{Counts: make([]int, len(species))}
	if needsLattice(species, reactions) {
		nx, ny, nz := params.Dimensions()
		l, err := NewLattice(nx, ny, nz, params.LatticeConstant, params.AddSites)
		if err != nil {
			return LatticeState{}, fmt.Errorf("lattice: %w", err)
		}
		state.Lattice = l
	}

	seen := make([]bool, len(species))
	for _, rec := range records.InitialCounts {
		if rec.SpeciesID < 0 || rec.SpeciesID >= len(species) {
			return LatticeState{}, recordErr("initial_state", rec.SpeciesID, ErrUndefinedSpecies, "")
		}
		if seen[rec.SpeciesID] {
			return LatticeState{}, recordErr("initial_state", rec.SpeciesID, ErrMalformedInitialState, "duplicate record")
		}
		if rec.Count < 0 {
			return LatticeState{}, recordErr("initial_state", rec.SpeciesID, ErrMalformedInitialState, "negative count %d", rec.Count)
		}
		seen[rec.SpeciesID] = true
		state.Counts[rec.SpeciesID] = rec.Count
	}
	for id, ok := range seen {
		if !ok {
			return LatticeState{}, recordErr("initial_state", id, ErrMalformedInitialState, "missing record")
		}
	}

	placed := make([]int, len(species))
	for _, rec := range records.InitialSites {
		if state.Lattice == nil || rec.SiteID < 0 || rec.SiteID >= state.Lattice.Len() {
			return LatticeState{}, recordErr("initial_sites", rec.SiteID, ErrMalformedInitialState, "site does not exist")
		}
		if rec.SpeciesID < 0 || rec.SpeciesID >= len(species) {
			return LatticeState{}, recordErr("initial_sites", rec.SiteID, ErrUndefinedSpecies, "species %d", rec.SpeciesID)
		}
		if species[rec.SpeciesID].Phase != PhaseLattice {
			return LatticeState{}, recordErr("initial_sites", rec.SiteID, ErrMalformedInitialState, "species %d is not a lattice species", rec.SpeciesID)
		}
		site := &state.Lattice.Sites[rec.SiteID]
		if site.Occupant != EmptySite {
			return LatticeState{}, recordErr("initial_sites", rec.SiteID, ErrMalformedInitialState, "site listed twice")
		}
		site.Occupant = rec.SpeciesID
		placed[rec.SpeciesID]++
	}

	next := 0
	for _, sp := range species {
		if sp.Phase != PhaseLattice {
			continue
		}
		want := state.Counts[sp.ID]
		if placed[sp.ID] > want {
			return LatticeState{}, recordErr("initial_state", sp.ID, ErrMalformedInitialState,
				"count %d is below the %d sites listed for it", want, placed[sp.ID])
		}
		for remaining := want - placed[sp.ID]; remaining > 0; remaining-- {
			if state.Lattice == nil {
				return LatticeState{}, recordErr("initial_state", sp.ID, ErrMalformedInitialState, "no lattice")
			}
			for next < state.Lattice.Len() && state.Lattice.Sites[next].Occupant != EmptySite {
				next++
			}
			if next == state.Lattice.Len() {
				return LatticeState{}, recordErr("initial_state", sp.ID, ErrMalformedInitialState,
					"count %d exceeds the free sites of the lattice", want)
			}
			state.Lattice.Sites[next].Occupant = sp.ID
		}
	}
	return state, nil
}

// NumSites returns the number of sites of the initial lattice.
func (n *ReactionNetwork) NumSites() int {
	if n.InitialState.Lattice == nil {
		return 0
	}
	return n.InitialState.Lattice.Len()
}

// NewState returns a fresh copy of the initial state for one replica.
func (n *ReactionNetwork) NewState() LatticeState {
	return n.InitialState.Clone()
}

// Replay applies a recorded trajectory to state, reconstructing the state a
// replica had at the last element's step. Elements must be in step order.
func (n *ReactionNetwork) Replay(state *LatticeState, elements []TrajectoryElement) error {
	var changes []siteChange
	for _, e := range elements {
		if e.Reaction < 0 || e.Reaction >= len(n.Reactions) {
			return fmt.Errorf("replay step %d: %w: reaction %d", e.Step, ErrInvalidReaction, e.Reaction)
		}
		var err error
		changes, err = state.apply(&n.Reactions[e.Reaction], e.Sites, changes[:0])
		if err != nil {
			return fmt.Errorf("replay step %d: %w", e.Step, err)
		}
	}
	return nil
}
