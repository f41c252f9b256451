package sim

// Grid is the discrete velocity set of a lattice model.
type Grid struct {
	Name  string
	Basis [][]int // one vector per distribution, each of length Dim
}

// Dim returns the dimensionality of the grid, or 0 for an empty grid.
func (g *Grid) Dim() int {
	if g == nil || len(g.Basis) == 0 {
		return 0
	}
	return len(g.Basis[0])
}

// Q returns the number of distributions.
func (g *Grid) Q() int {
	if g == nil {
		return 0
	}
	return len(g.Basis)
}

// Crossing returns the number of basis vectors leaving a block through
// face. A nil grid, or one with no vector crossing the face, counts as 1
// so that connector buffers are never empty.
func (g *Grid) Crossing(face Face) int {
	if g == nil {
		return 1
	}
	axis := face.Axis()
	n := 0
	for _, v := range g.Basis {
		if axis >= len(v) {
			continue
		}
		if (face.IsHigh() && v[axis] > 0) || (!face.IsHigh() && v[axis] < 0) {
			n++
		}
	}
	if n == 0 {
		return 1
	}
	return n
}

// MaxComponent returns the largest absolute component over all basis
// vectors, i.e. the distance a distribution travels in one step.
func (g *Grid) MaxComponent() int {
	if g == nil {
		return 0
	}
	m := 0
	for _, v := range g.Basis {
		for _, c := range v {
			if c < 0 {
				c = -c
			}
			m = max(m, c)
		}
	}
	return m
}
