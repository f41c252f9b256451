package output

import "github.com/halo-sim/halo-sim/sim"

func init() {
	sim.Outputs.Register("none", NewNone)
	sim.Outputs.Register("sqlite", NewSQLite)
}
