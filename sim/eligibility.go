package sim

// anchorStride separates the neighbour-slot index from the site index in an
// anchor. It must exceed maxNeighbors.
const anchorStride = 8

// anchorSet is an unordered set with O(1) add, remove and uniform indexing.
type anchorSet struct {
	items []int
	pos   map[int]int
}

func newAnchorSet() *anchorSet {
	return &anchorSet{pos: make(map[int]int)}
}

func (a *anchorSet) set(anchor int, eligible bool) {
	if eligible {
		a.add(anchor)
	} else {
		a.remove(anchor)
	}
}

func (a *anchorSet) add(anchor int) {
	if _, ok := a.pos[anchor]; ok {
		return
	}
	a.pos[anchor] = len(a.items)
	a.items = append(a.items, anchor)
}

func (a *anchorSet) remove(anchor int) {
	i, ok := a.pos[anchor]
	if !ok {
		return
	}
	last := a.items[len(a.items)-1]
	a.items[i] = last
	a.pos[last] = i
	a.items = a.items[:len(a.items)-1]
	delete(a.pos, anchor)
}

func (a *anchorSet) Len() int { return len(a.items) }

// eligibility tracks, per lattice reaction, the sites (one-site reactions) or
// ordered neighbour pairs (two-site reactions) that currently satisfy the
// reaction's site preconditions. An anchor is site*anchorStride+k where k is
// the index of the second site in the first site's neighbour list.
type eligibility struct {
	sets []*anchorSet // by reaction id; nil for homogeneous reactions
}

// newEligibility scans the whole lattice once.
func newEligibility(reactions []Reaction, l *Lattice) *eligibility {
	e := &eligibility{sets: make([]*anchorSet, len(reactions))}
	for i := range reactions {
		if !reactions[i].IsLattice() {
			continue
		}
		e.sets[i] = newAnchorSet()
		if l == nil {
			continue
		}
		for site := range l.Sites {
			e.scanFrom(&reactions[i], l, site)
		}
	}
	return e
}

// count returns the number of eligible anchors of reaction r.
func (e *eligibility) count(r int) int {
	if e.sets[r] == nil {
		return 0
	}
	return e.sets[r].Len()
}

// scanFrom evaluates the anchors whose first site is site.
func (e *eligibility) scanFrom(r *Reaction, l *Lattice, site int) {
	set := e.sets[r.ID]
	if len(r.Sites) == 1 {
		set.set(site*anchorStride, l.Sites[site].Occupant == r.Sites[0].Before)
		return
	}
	first := l.Sites[site].Occupant == r.Sites[0].Before
	for k, n := range l.Sites[site].Neighbors {
		set.set(site*anchorStride+k, first && l.Sites[n].Occupant == r.Sites[1].Before)
	}
}

// touch re-evaluates every anchor of r that contains site.
func (e *eligibility) touch(r *Reaction, l *Lattice, site int) {
	e.scanFrom(r, l, site)
	if len(r.Sites) < 2 {
		return
	}
	set := e.sets[r.ID]
	for _, n := range l.Sites[site].Neighbors {
		for k, m := range l.Sites[n].Neighbors {
			if m == site {
				set.set(n*anchorStride+k, l.Sites[n].Occupant == r.Sites[0].Before && l.Sites[site].Occupant == r.Sites[1].Before)
			}
		}
	}
}

// pick returns the sites of the i-th eligible anchor of r.
func (e *eligibility) pick(r *Reaction, l *Lattice, i int) [MaxReactionSites]int {
	anchor := e.sets[r.ID].items[i]
	sites := [MaxReactionSites]int{NoSite, NoSite}
	sites[0] = anchor / anchorStride
	if len(r.Sites) == 2 {
		sites[1] = l.Sites[sites[0]].Neighbors[anchor%anchorStride]
	}
	return sites
}
