package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLattice_SizeAndOrder(t *testing.T) {
	l, err := NewLattice(4, 3, 2, 1.5, false)
	require.NoError(t, err)
	assert.Equal(t, 24, l.Len())

	// x varies fastest, then y, then z.
	assert.Equal(t, Coordinate{1, 0, 0}, l.Sites[1].Coord)
	assert.Equal(t, Coordinate{0, 1, 0}, l.Sites[4].Coord)
	assert.Equal(t, Coordinate{0, 0, 1}, l.Sites[12].Coord)

	x, y, z := l.Position(13)
	assert.Equal(t, []float64{1.5, 0, 1.5}, []float64{x, y, z})
}

func TestNewLattice_RejectsEmptyBox(t *testing.T) {
	for _, dims := range [][3]int{{0, 1, 1}, {1, 0, 1}, {1, 1, 0}, {-2, 3, 3}} {
		_, err := NewLattice(dims[0], dims[1], dims[2], 1, false)
		assert.Error(t, err, "dims %v", dims)
	}
}

func TestNewLattice_Neighbors(t *testing.T) {
	l, err := NewLattice(4, 4, 3, 1, false)
	require.NoError(t, err)

	// Periodic in x and y, open in z.
	for i, s := range l.Sites {
		want := 6
		if s.Coord.Z == 0 || s.Coord.Z == 2 {
			want = 5
		}
		assert.Len(t, s.Neighbors, want, "site %d at %v", i, s.Coord)
	}

	corner, ok := l.SiteAt(Coordinate{0, 0, 0})
	require.True(t, ok)
	wrapped, ok := l.SiteAt(Coordinate{3, 0, 0})
	require.True(t, ok)
	assert.Contains(t, l.Sites[corner].Neighbors, wrapped)
}

func TestNewLattice_NeighborsSymmetricAndUnique(t *testing.T) {
	// A 2-wide periodic axis maps +1 and -1 to the same site.
	l, err := NewLattice(2, 1, 2, 1, false)
	require.NoError(t, err)
	for i, s := range l.Sites {
		seen := map[int]bool{}
		for _, n := range s.Neighbors {
			assert.NotEqual(t, i, n, "site %d lists itself", i)
			assert.False(t, seen[n], "site %d lists %d twice", i, n)
			seen[n] = true
			assert.Contains(t, l.Sites[n].Neighbors, i, "neighbour relation not symmetric")
		}
	}
}

func TestLattice_IsTopAndGrowAbove(t *testing.T) {
	l, err := NewLattice(2, 2, 2, 1, true)
	require.NoError(t, err)
	bottom, _ := l.SiteAt(Coordinate{1, 1, 0})
	top, _ := l.SiteAt(Coordinate{1, 1, 1})
	assert.False(t, l.IsTop(bottom))
	assert.True(t, l.IsTop(top))

	grown := l.growAbove(top)
	assert.Equal(t, 8, grown)
	assert.Equal(t, Coordinate{1, 1, 2}, l.Sites[grown].Coord)
	assert.Equal(t, SiteElectrolyte, l.Sites[grown].Phase)
	assert.Equal(t, EmptySite, l.Sites[grown].Occupant)
	assert.True(t, l.IsTop(grown))
	assert.False(t, l.IsTop(top))
	assert.Contains(t, l.Sites[top].Neighbors, grown)
	assert.Contains(t, l.Sites[grown].Neighbors, top)
}

func TestLattice_CloneIsDeep(t *testing.T) {
	l, err := NewLattice(2, 2, 1, 1, true)
	require.NoError(t, err)
	c := l.Clone()
	c.Sites[0].Occupant = 3
	c.growAbove(0)

	assert.Equal(t, EmptySite, l.Sites[0].Occupant)
	assert.Equal(t, 4, l.Len())
	assert.Equal(t, 5, c.Len())
	assert.Len(t, l.Sites[0].Neighbors, 2)
	assert.True(t, l.IsTop(0))
}

func TestLattice_Occupied(t *testing.T) {
	l, err := NewLattice(3, 1, 1, 1, false)
	require.NoError(t, err)
	l.Sites[0].Occupant = 1
	l.Sites[2].Occupant = 1
	assert.Equal(t, []int{0, 2}, l.Occupied(2))
}

func TestLatticeState_TakeMovesOwnership(t *testing.T) {
	l, err := NewLattice(2, 2, 1, 1, false)
	require.NoError(t, err)
	src := LatticeState{Counts: []int{1, 2}, Lattice: l}

	dst := src.Take()
	assert.Same(t, l, dst.Lattice)
	assert.Nil(t, src.Lattice)
	assert.Nil(t, src.Counts)
}
