package geometry

import (
	"fmt"

	"github.com/halo-sim/halo-sim/sim"
)

// RegularGeometry splits a rectangular domain into a uniform grid of
// blocks. When an axis does not divide evenly, the first blocks along it
// get one extra node.
type RegularGeometry struct {
	extent   []int
	counts   []int
	periodic []bool
}

// NewRegularGeometry creates a geometry of the given global extent, cut
// into counts[axis] blocks per axis.
func NewRegularGeometry(extent, counts []int, periodic []bool) (*RegularGeometry, error) {
	if len(counts) != len(extent) {
		return nil, fmt.Errorf("geometry: %d block counts for a %d-D domain", len(counts), len(extent))
	}
	for axis := range extent {
		if extent[axis] < 1 {
			return nil, fmt.Errorf("geometry: extent along axis %d must be positive, got %d", axis, extent[axis])
		}
		if counts[axis] < 1 || counts[axis] > extent[axis] {
			return nil, fmt.Errorf("geometry: %d blocks along axis %d of length %d", counts[axis], axis, extent[axis])
		}
	}
	return &RegularGeometry{
		extent:   append([]int(nil), extent...),
		counts:   append([]int(nil), counts...),
		periodic: padPeriodic(periodic, len(extent)),
	}, nil
}

func padPeriodic(periodic []bool, dim int) []bool {
	out := make([]bool, dim)
	copy(out, periodic)
	return out
}

func (g *RegularGeometry) Dim() int               { return len(g.extent) }
func (g *RegularGeometry) Extent() []int          { return g.extent }
func (g *RegularGeometry) Periodic(axis int) bool { return g.periodic[axis] }

// Blocks returns the decomposition in x-fastest order.
func (g *RegularGeometry) Blocks() []*sim.Block {
	dim := len(g.extent)
	starts := make([][]int, dim)
	sizes := make([][]int, dim)
	for axis := 0; axis < dim; axis++ {
		starts[axis], sizes[axis] = split(g.extent[axis], g.counts[axis])
	}

	total := 1
	for _, n := range g.counts {
		total *= n
	}
	blocks := make([]*sim.Block, 0, total)
	pos := make([]int, dim)
	for i := 0; i < total; i++ {
		rem := i
		for axis := 0; axis < dim; axis++ {
			pos[axis] = rem % g.counts[axis]
			rem /= g.counts[axis]
		}
		loc := make([]int, dim)
		size := make([]int, dim)
		for axis := 0; axis < dim; axis++ {
			loc[axis] = starts[axis][pos[axis]]
			size[axis] = sizes[axis][pos[axis]]
		}
		blocks = append(blocks, sim.NewBlock(loc, size))
	}
	return blocks
}

// split cuts length into n contiguous parts differing by at most one.
func split(length, n int) (starts, sizes []int) {
	base, extra := length/n, length%n
	starts = make([]int, n)
	sizes = make([]int, n)
	at := 0
	for i := 0; i < n; i++ {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
		starts[i] = at
		at += sizes[i]
	}
	return starts, sizes
}
