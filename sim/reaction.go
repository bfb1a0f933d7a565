package sim

import (
	"fmt"
	"math"
	"sort"
)

// Phase tells where a species lives.
type Phase int

const (
	// PhaseSolution species are counted (gas, electrolyte, bulk).
	PhaseSolution Phase = iota
	// PhaseLattice species occupy lattice sites.
	PhaseLattice
)

var phaseNames = map[Phase]string{
	PhaseSolution: "solution",
	PhaseLattice:  "lattice",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// ParsePhase maps a persisted phase name to a Phase.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseNames {
		if name == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// Species is a chemical species of the network.
type Species struct {
	ID    int
	Name  string
	Phase Phase
}

// ReactionType discriminates how a reaction interacts with the lattice.
type ReactionType int

const (
	ReactionHomogeneous ReactionType = iota
	ReactionAdsorption
	ReactionDesorption
	ReactionDiffusion
	ReactionChargeTransfer
)

var reactionTypeNames = map[ReactionType]string{
	ReactionHomogeneous:    "homogeneous",
	ReactionAdsorption:     "adsorption",
	ReactionDesorption:     "desorption",
	ReactionDiffusion:      "diffusion",
	ReactionChargeTransfer: "charge_transfer",
}

func (t ReactionType) String() string {
	if name, ok := reactionTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ReactionType(%d)", int(t))
}

// ParseReactionType maps a persisted type name to a ReactionType.
func ParseReactionType(s string) (ReactionType, error) {
	for t, name := range reactionTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown reaction type %q", s)
}

// MaxReactionSites is the largest number of sites one reaction acts on.
const MaxReactionSites = 2

// Stoich pairs a solution species with its stoichiometric coefficient.
type Stoich struct {
	Species int
	Count   int
}

// SiteRewrite is what one site slot must hold before a reaction and what it
// holds after. Either side may be EmptySite.
type SiteRewrite struct {
	Before int
	After  int
}

// Reaction is one reaction of the network, immutable after construction.
type Reaction struct {
	ID        int
	Type      ReactionType
	Reactants []Stoich      // solution reactants, sorted by species id
	Products  []Stoich      // solution products, sorted by species id
	Net       []Stoich      // non-zero net change of solution species
	Sites     []SiteRewrite // empty for homogeneous reactions
	Rate      float64
	// Order is the number of solution reactant molecules.
	Order int
}

// IsLattice reports whether the reaction acts on lattice sites.
func (r *Reaction) IsLattice() bool { return len(r.Sites) > 0 }

// HasDuplicateReactant reports whether a reactant species appears more than once.
func (r *Reaction) HasDuplicateReactant() bool {
	for _, s := range r.Reactants {
		if s.Count > 1 {
			return true
		}
	}
	return false
}

func toStoich(ids []int) []Stoich {
	counts := make(map[int]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}
	out := make([]Stoich, 0, len(counts))
	for id, c := range counts {
		out = append(out, Stoich{Species: id, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Species < out[j].Species })
	return out
}

func netChange(reactants, products []Stoich) []Stoich {
	delta := make(map[int]int)
	for _, s := range reactants {
		delta[s.Species] -= s.Count
	}
	for _, s := range products {
		delta[s.Species] += s.Count
	}
	out := make([]Stoich, 0, len(delta))
	for id, d := range delta {
		if d != 0 {
			out = append(out, Stoich{Species: id, Count: d})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Species < out[j].Species })
	return out
}

// newReaction validates a reaction record against the species table and
// builds the runtime Reaction. rate is the resolved rate constant.
func newReaction(rec ReactionRecord, species []Species, rate float64) (Reaction, error) {
	fail := func(err error, format string, args ...any) (Reaction, error) {
		return Reaction{}, recordErr("reactions", rec.ID, err, format, args...)
	}

	typ, err := ParseReactionType(rec.Type)
	if err != nil {
		return fail(ErrInvalidReaction, "%v", err)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return fail(ErrInvalidReaction, "rate constant %v", rate)
	}

	for _, id := range append(append([]int{}, rec.Reactants...), rec.Products...) {
		if id < 0 || id >= len(species) {
			return fail(ErrUndefinedSpecies, "species %d", id)
		}
		if species[id].Phase != PhaseSolution {
			return fail(ErrInvalidReaction, "species %d is a lattice species used as a solution participant", id)
		}
	}
	if len(rec.Reactants) > 2 {
		return fail(ErrInvalidReaction, "%d solution reactant molecules, at most 2 supported", len(rec.Reactants))
	}

	if rec.NumberOfSites < 0 || rec.NumberOfSites > MaxReactionSites {
		return fail(ErrInvalidReaction, "number of sites %d", rec.NumberOfSites)
	}
	if len(rec.SiteReactants) != rec.NumberOfSites || len(rec.SiteProducts) != rec.NumberOfSites {
		return fail(ErrInvalidReaction, "site slots (%d reactants, %d products) do not match number of sites %d",
			len(rec.SiteReactants), len(rec.SiteProducts), rec.NumberOfSites)
	}
	sites := make([]SiteRewrite, rec.NumberOfSites)
	for i := range sites {
		for _, id := range []int{rec.SiteReactants[i], rec.SiteProducts[i]} {
			if id == EmptySite {
				continue
			}
			if id < 0 || id >= len(species) {
				return fail(ErrUndefinedSpecies, "site species %d", id)
			}
			if species[id].Phase != PhaseLattice {
				return fail(ErrInvalidReaction, "species %d is a solution species used on a site", id)
			}
		}
		sites[i] = SiteRewrite{Before: rec.SiteReactants[i], After: rec.SiteProducts[i]}
	}

	switch typ {
	case ReactionHomogeneous:
		if len(sites) != 0 {
			return fail(ErrInvalidReaction, "homogeneous reaction acts on %d sites", len(sites))
		}
	case ReactionAdsorption:
		if len(sites) == 0 {
			return fail(ErrInvalidReaction, "adsorption needs at least one site")
		}
		for _, s := range sites {
			if s.Before != EmptySite {
				return fail(ErrInvalidReaction, "adsorption requires empty sites")
			}
		}
	case ReactionDesorption:
		if len(sites) == 0 {
			return fail(ErrInvalidReaction, "desorption needs at least one site")
		}
		for _, s := range sites {
			if s.After != EmptySite {
				return fail(ErrInvalidReaction, "desorption must leave sites empty")
			}
		}
	case ReactionDiffusion:
		if len(sites) != 2 || sites[0].Before == EmptySite || sites[1].Before != EmptySite ||
			sites[0].After != EmptySite || sites[1].After != sites[0].Before {
			return fail(ErrInvalidReaction, "diffusion must move one species into an empty neighbour")
		}
	case ReactionChargeTransfer:
		// any site pattern
	}
	for _, s := range sites {
		if s.Before == s.After && s.Before == EmptySite {
			return fail(ErrInvalidReaction, "site slot neither consumes nor produces a species")
		}
	}

	reactants := toStoich(rec.Reactants)
	products := toStoich(rec.Products)
	return Reaction{
		ID:        rec.ID,
		Type:      typ,
		Reactants: reactants,
		Products:  products,
		Net:       netChange(reactants, products),
		Sites:     sites,
		Rate:      rate,
		Order:     len(rec.Reactants),
	}, nil
}
