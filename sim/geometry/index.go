package geometry

import "github.com/halo-sim/halo-sim/sim"

// coordKey addresses the face plane at coordinate coord along axis.
type coordKey struct {
	axis  int
	coord int
}

// coordIndex maps (axis, lower coordinate) to the ids of the blocks whose
// location starts there, in block id order.
type coordIndex map[coordKey][]int

func newCoordIndex(blocks []*sim.Block, dim int) coordIndex {
	idx := make(coordIndex)
	for _, b := range blocks {
		for axis := 0; axis < dim; axis++ {
			key := coordKey{axis: axis, coord: b.Location[axis]}
			idx[key] = append(idx[key], b.ID)
		}
	}
	return idx
}

// startingAt returns the ids of blocks whose lower coordinate on axis is coord.
func (idx coordIndex) startingAt(axis, coord int) []int {
	return idx[coordKey{axis: axis, coord: coord}]
}
