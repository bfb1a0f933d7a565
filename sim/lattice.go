package sim

import "fmt"

// SitePhase tags the region a site belongs to.
type SitePhase int

const (
	// SiteSolid sites belong to the initial box (electrode or catalyst).
	SiteSolid SitePhase = iota
	// SiteElectrolyte sites were grown into the electrolyte by the add-sites policy.
	SiteElectrolyte
)

func (p SitePhase) String() string {
	if p == SiteElectrolyte {
		return "electrolyte"
	}
	return "solid"
}

// NoSite fills unused site slots of a trajectory element.
const NoSite = -1

// maxNeighbors bounds the neighbour list of a simple cubic site.
const maxNeighbors = 6

// Coordinate is a position on the integer lattice grid.
type Coordinate struct {
	X, Y, Z int
}

// Site is one lattice site.
type Site struct {
	Coord     Coordinate
	Neighbors []int // site indices, append-only
	Occupant  int   // species id or EmptySite
	Phase     SitePhase
}

// Lattice is a simple cubic grid, periodic in x and y and open in z.
// Sites are never removed; the add-sites policy appends new ones.
type Lattice struct {
	Sites    []Site
	nx, ny   int
	constant float64
	growable bool
	byCoord  map[Coordinate]int
	tops     map[[2]int]int // column (x, y) -> index of its highest site
}

// NewLattice builds an empty nx × ny × nz lattice.
func NewLattice(nx, ny, nz int, latticeConstant float64, growable bool) (*Lattice, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("lattice dimensions must be positive, got %dx%dx%d", nx, ny, nz)
	}
	l := &Lattice{
		Sites:    make([]Site, 0, nx*ny*nz),
		nx:       nx,
		ny:       ny,
		constant: latticeConstant,
		growable: growable,
		byCoord:  make(map[Coordinate]int, nx*ny*nz),
		tops:     make(map[[2]int]int, nx*ny),
	}
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				l.insert(Coordinate{x, y, z}, SiteSolid)
			}
		}
	}
	return l, nil
}

// insert appends a site and links it with every existing neighbour.
func (l *Lattice) insert(c Coordinate, phase SitePhase) int {
	idx := len(l.Sites)
	l.Sites = append(l.Sites, Site{
		Coord:     c,
		Neighbors: make([]int, 0, maxNeighbors),
		Occupant:  EmptySite,
		Phase:     phase,
	})
	l.byCoord[c] = idx
	for _, nc := range l.neighborCoords(c) {
		n, ok := l.byCoord[nc]
		if !ok || n == idx || containsInt(l.Sites[idx].Neighbors, n) {
			continue
		}
		l.Sites[idx].Neighbors = append(l.Sites[idx].Neighbors, n)
		l.Sites[n].Neighbors = append(l.Sites[n].Neighbors, idx)
	}
	col := [2]int{c.X, c.Y}
	if top, ok := l.tops[col]; !ok || l.Sites[top].Coord.Z < c.Z {
		l.tops[col] = idx
	}
	return idx
}

func (l *Lattice) neighborCoords(c Coordinate) []Coordinate {
	wrap := func(v, n int) int { return ((v % n) + n) % n }
	return []Coordinate{
		{wrap(c.X+1, l.nx), c.Y, c.Z},
		{wrap(c.X-1, l.nx), c.Y, c.Z},
		{c.X, wrap(c.Y+1, l.ny), c.Z},
		{c.X, wrap(c.Y-1, l.ny), c.Z},
		{c.X, c.Y, c.Z + 1},
		{c.X, c.Y, c.Z - 1},
	}
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

// Len returns the number of sites.
func (l *Lattice) Len() int { return len(l.Sites) }

// Growable reports whether the add-sites policy is active.
func (l *Lattice) Growable() bool { return l.growable }

// Position returns the Cartesian position of a site.
func (l *Lattice) Position(site int) (x, y, z float64) {
	c := l.Sites[site].Coord
	return float64(c.X) * l.constant, float64(c.Y) * l.constant, float64(c.Z) * l.constant
}

// SiteAt returns the index of the site at c.
func (l *Lattice) SiteAt(c Coordinate) (int, bool) {
	idx, ok := l.byCoord[c]
	return idx, ok
}

// IsTop reports whether site is the highest site of its column.
func (l *Lattice) IsTop(site int) bool {
	c := l.Sites[site].Coord
	return l.tops[[2]int{c.X, c.Y}] == site
}

// growAbove adds an empty electrolyte site on top of site and returns its index.
func (l *Lattice) growAbove(site int) int {
	c := l.Sites[site].Coord
	return l.insert(Coordinate{c.X, c.Y, c.Z + 1}, SiteElectrolyte)
}

// Occupied counts the sites held by each species id.
func (l *Lattice) Occupied(numSpecies int) []int {
	out := make([]int, numSpecies)
	for i := range l.Sites {
		if occ := l.Sites[i].Occupant; occ != EmptySite {
			out[occ]++
		}
	}
	return out
}

// Clone returns a deep copy.
func (l *Lattice) Clone() *Lattice {
	c := &Lattice{
		Sites:    make([]Site, len(l.Sites), cap(l.Sites)),
		nx:       l.nx,
		ny:       l.ny,
		constant: l.constant,
		growable: l.growable,
		byCoord:  make(map[Coordinate]int, len(l.byCoord)),
		tops:     make(map[[2]int]int, len(l.tops)),
	}
	for i, s := range l.Sites {
		s.Neighbors = append(make([]int, 0, maxNeighbors), s.Neighbors...)
		c.Sites[i] = s
	}
	for k, v := range l.byCoord {
		c.byCoord[k] = v
	}
	for k, v := range l.tops {
		c.tops[k] = v
	}
	return c
}
