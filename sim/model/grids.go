// Package model provides the lattice models selectable with --model.
package model

import "github.com/halo-sim/halo-sim/sim"

// D2Q9 is the 9-velocity square lattice.
var D2Q9 = &sim.Grid{
	Name: "D2Q9",
	Basis: [][]int{
		{0, 0},
		{1, 0}, {0, 1}, {-1, 0}, {0, -1},
		{1, 1}, {-1, 1}, {-1, -1}, {1, -1},
	},
}

// D3Q19 is the 19-velocity cubic lattice.
var D3Q19 = &sim.Grid{
	Name: "D3Q19",
	Basis: [][]int{
		{0, 0, 0},
		{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1},
		{1, 1, 0}, {-1, 1, 0}, {1, -1, 0}, {-1, -1, 0},
		{1, 0, 1}, {-1, 0, 1}, {1, 0, -1}, {-1, 0, -1},
		{0, 1, 1}, {0, -1, 1}, {0, 1, -1}, {0, -1, -1},
	},
}
