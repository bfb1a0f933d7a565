package sim

import (
	"fmt"
	"sort"
)

// DependencyGraph records which propensities must be recomputed after an
// event. It has two layers, both stored as flat adjacency arenas:
//
//   - reaction layer: reaction A lists reaction B when A changes the count of a
//     solution species that B consumes;
//   - occupant layer: an occupant (species id or EmptySite) lists the lattice
//     reactions that require it in some site slot. When a site changes from
//     occupant X to Y, the lattice reactions listed under X and Y are
//     re-evaluated at that site and its neighbours.
//
// Built once by NewReactionNetwork and immutable thereafter.
type DependencyGraph struct {
	offsets    []int
	targets    []int
	occOffsets []int // indexed by occupant+1, so EmptySite lives at 0
	occTargets []int
}

// Dependents returns the reactions whose propensity may change when reaction
// fires through solution-species counts, in ascending id order.
func (g *DependencyGraph) Dependents(reaction int) []int {
	return g.targets[g.offsets[reaction]:g.offsets[reaction+1]]
}

// SiteDependents returns the lattice reactions that require occupant (a
// species id or EmptySite) in one of their site slots, in ascending id order.
func (g *DependencyGraph) SiteDependents(occupant int) []int {
	i := occupant + 1
	if i < 0 || i+1 >= len(g.occOffsets) {
		return nil
	}
	return g.occTargets[g.occOffsets[i]:g.occOffsets[i+1]]
}

// NumReactions returns the number of reactions in the reaction layer.
func (g *DependencyGraph) NumReactions() int { return len(g.offsets) - 1 }

// buildDependencyGraph indexes consumers by species and unions the consumer
// lists of every species a reaction changes. Cost is proportional to the sum
// of those list lengths, not to the square of the reaction count.
func buildDependencyGraph(reactions []Reaction, numSpecies int) *DependencyGraph {
	consumers := make([][]int, numSpecies)
	for _, r := range reactions {
		for _, s := range r.Reactants {
			consumers[s.Species] = append(consumers[s.Species], r.ID)
		}
	}

	g := &DependencyGraph{offsets: make([]int, 1, len(reactions)+1)}
	stamp := make([]int, len(reactions))
	for i := range stamp {
		stamp[i] = -1
	}
	for _, r := range reactions {
		start := len(g.targets)
		for _, s := range r.Net {
			for _, b := range consumers[s.Species] {
				if stamp[b] != r.ID {
					stamp[b] = r.ID
					g.targets = append(g.targets, b)
				}
			}
		}
		sort.Ints(g.targets[start:])
		g.offsets = append(g.offsets, len(g.targets))
	}

	occupants := make([][]int, numSpecies+1)
	for _, r := range reactions {
		seen := map[int]bool{}
		for _, slot := range r.Sites {
			if !seen[slot.Before] {
				seen[slot.Before] = true
				occupants[slot.Before+1] = append(occupants[slot.Before+1], r.ID)
			}
		}
	}
	g.occOffsets = make([]int, 1, numSpecies+2)
	for _, list := range occupants {
		g.occTargets = append(g.occTargets, list...)
		g.occOffsets = append(g.occOffsets, len(g.occTargets))
	}
	return g
}

// validateDependencyGraph re-derives every required edge from the opposite
// direction (for each consumer, every reaction that changes what it consumes)
// and fails if any is missing from the built graph.
func validateDependencyGraph(g *DependencyGraph, reactions []Reaction, numSpecies int) error {
	if g.NumReactions() != len(reactions) {
		return fmt.Errorf("%w: graph has %d reactions, network has %d", ErrDependencyIncomplete, g.NumReactions(), len(reactions))
	}
	changers := make([][]int, numSpecies)
	for _, r := range reactions {
		for _, s := range r.Net {
			changers[s.Species] = append(changers[s.Species], r.ID)
		}
	}
	for _, b := range reactions {
		for _, s := range b.Reactants {
			for _, a := range changers[s.Species] {
				deps := g.Dependents(a)
				if i := sort.SearchInts(deps, b.ID); i == len(deps) || deps[i] != b.ID {
					return recordErr("reactions", a, ErrDependencyIncomplete,
						"reaction %d changes species %d but does not list reaction %d", a, s.Species, b.ID)
				}
			}
		}
		for _, slot := range b.Sites {
			deps := g.SiteDependents(slot.Before)
			if i := sort.SearchInts(deps, b.ID); i == len(deps) || deps[i] != b.ID {
				return recordErr("reactions", b.ID, ErrDependencyIncomplete,
					"occupant %d does not list lattice reaction %d", slot.Before, b.ID)
			}
		}
	}
	return nil
}
