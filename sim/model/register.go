package model

import "github.com/halo-sim/halo-sim/sim"

func init() {
	sim.Models.Register("d2q9", factory(lattice{
		name: "d2q9", grid: D2Q9,
		fields: []string{"rho", "vx", "vy"},
	}))
	sim.Models.Register("d3q19", factory(lattice{
		name: "d3q19", grid: D3Q19,
		fields: []string{"rho", "vx", "vy", "vz"},
	}))
	// Free-energy binary fluid: the chemical potential needs the Laplacian
	// of the order parameter, one node beyond the streaming distance.
	sim.Models.Register("d2q9-fe", factory(lattice{
		name: "d2q9-fe", grid: D2Q9, nonlocality: 2,
		fields: []string{"rho", "phi", "vx", "vy"},
	}))
}
