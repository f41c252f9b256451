// Package output provides the output sinks selectable with --output-format
// and the visualization wrapper the machine master puts in front of them.
package output

import "github.com/halo-sim/halo-sim/sim"

// None discards everything. It is used when no output is requested.
type None struct{}

// NewNone ignores its arguments.
func NewNone(*sim.Config, int) (sim.OutputSink, error) { return None{}, nil }

func (None) Save(int, map[string][]float64) error { return nil }
func (None) Close() error                         { return nil }
