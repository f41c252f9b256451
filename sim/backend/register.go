package backend

import "github.com/halo-sim/halo-sim/sim"

func init() {
	sim.Backends.Register("host", NewHost)
}
