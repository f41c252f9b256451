package model

import (
	"fmt"

	"github.com/halo-sim/halo-sim/sim"
)

// lattice is a model described entirely by its constants.
type lattice struct {
	name        string
	grid        *sim.Grid
	nonlocality int
	fields      []string
}

func (l *lattice) Name() string     { return l.name }
func (l *lattice) Dim() int         { return l.grid.Dim() }
func (l *lattice) Grid() *sim.Grid  { return l.grid }
func (l *lattice) Nonlocality() int { return l.nonlocality }
func (l *lattice) Fields() []string { return append([]string(nil), l.fields...) }

// factory returns a ModelFactory that rejects domains of the wrong
// dimensionality.
func factory(proto lattice) sim.ModelFactory {
	return func(cfg *sim.Config) (sim.Model, error) {
		if cfg.Dim() != proto.Dim() {
			return nil, fmt.Errorf("model %s is %d-D, domain is %d-D", proto.name, proto.Dim(), cfg.Dim())
		}
		m := proto
		return &m, nil
	}
}
