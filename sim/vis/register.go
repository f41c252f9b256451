package vis

import "github.com/halo-sim/halo-sim/sim"

func init() {
	sim.VisEngines.Register("web", NewWeb)
}
