package sim

import "fmt"

// LatticeState is the mutable state of one replica: a count per species
// (free molecules for solution species, occupied sites for lattice species)
// and the site-occupancy grid. Lattice is nil for purely homogeneous models.
type LatticeState struct {
	Counts  []int
	Lattice *Lattice
}

// Clone returns a deep copy, used to hand each replica its own initial state.
func (s *LatticeState) Clone() LatticeState {
	out := LatticeState{Counts: append([]int(nil), s.Counts...)}
	if s.Lattice != nil {
		out.Lattice = s.Lattice.Clone()
	}
	return out
}

// Take moves the state out of s. Afterwards s holds neither counts nor a
// lattice, so the grid has exactly one owner.
func (s *LatticeState) Take() LatticeState {
	out := *s
	s.Counts = nil
	s.Lattice = nil
	return out
}

// siteChange is one occupancy change produced by applying a reaction.
type siteChange struct {
	Site   int
	Before int // newSite for sites created by the add-sites policy
	After  int
}

const newSite = -2

// apply fires r on the given sites. All preconditions are checked before
// anything is mutated, so a failed apply leaves the state untouched.
func (s *LatticeState) apply(r *Reaction, sites [MaxReactionSites]int, changes []siteChange) ([]siteChange, error) {
	for _, st := range r.Reactants {
		if s.Counts[st.Species] < st.Count {
			return changes, fmt.Errorf("%w: reaction %d needs %d of species %d, have %d",
				ErrNegativeCount, r.ID, st.Count, st.Species, s.Counts[st.Species])
		}
	}
	if r.IsLattice() {
		if s.Lattice == nil {
			return changes, fmt.Errorf("%w: reaction %d acts on sites but the state has no lattice", ErrInvalidReaction, r.ID)
		}
		for i, slot := range r.Sites {
			site := sites[i]
			if site < 0 || site >= s.Lattice.Len() {
				return changes, fmt.Errorf("%w: reaction %d slot %d has site %d", ErrSiteMismatch, r.ID, i, site)
			}
			occ := s.Lattice.Sites[site].Occupant
			if occ == slot.Before {
				continue
			}
			if slot.Before == EmptySite {
				return changes, fmt.Errorf("%w: reaction %d site %d holds species %d", ErrSiteOccupied, r.ID, site, occ)
			}
			return changes, fmt.Errorf("%w: reaction %d site %d holds %d, want %d", ErrSiteMismatch, r.ID, site, occ, slot.Before)
		}
	}

	for _, st := range r.Net {
		s.Counts[st.Species] += st.Count
	}
	for i, slot := range r.Sites {
		site := sites[i]
		s.Lattice.Sites[site].Occupant = slot.After
		if slot.Before != EmptySite {
			s.Counts[slot.Before]--
		}
		if slot.After != EmptySite {
			s.Counts[slot.After]++
		}
		changes = append(changes, siteChange{Site: site, Before: slot.Before, After: slot.After})
	}
	if s.Lattice != nil && s.Lattice.Growable() {
		for i, slot := range r.Sites {
			if slot.Before == EmptySite && slot.After != EmptySite && s.Lattice.IsTop(sites[i]) {
				grown := s.Lattice.growAbove(sites[i])
				changes = append(changes, siteChange{Site: grown, Before: newSite, After: EmptySite})
			}
		}
	}
	return changes, nil
}
