// Package geometry turns a domain decomposition into a connected block
// topology and provides the domain geometries that produce decompositions.
package geometry

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/halo-sim/halo-sim/sim"
)

// Processor assigns ids to a list of unconnected blocks and connects every
// pair of adjacent blocks, including pairs adjacent through a periodic
// boundary of the global domain.
//
// Thread-safety: NOT thread-safe. Transform mutates the blocks it was
// given and must run before the blocks are handed to workers.
type Processor struct {
	blocks []*sim.Block
	dim    int
	geo    sim.DomainGeometry
	log    logrus.FieldLogger

	index     coordIndex
	connected []bool
}

// NewProcessor creates a Processor for blocks of a dim-dimensional domain.
func NewProcessor(blocks []*sim.Block, dim int, geo sim.DomainGeometry, log logrus.FieldLogger) *Processor {
	return &Processor{blocks: blocks, dim: dim, geo: geo, log: log}
}

// Transform runs identity assignment, direct adjacency, periodic
// wraparound and connectivity validation. grid determines the connector
// element counts and may be nil.
//
// Returns *GeometryError if more than one block exists and any of them has
// no connection.
func (p *Processor) Transform(grid *sim.Grid) ([]*sim.Block, error) {
	if p.dim != 2 && p.dim != 3 {
		return nil, fmt.Errorf("geometry: unsupported dimension %d", p.dim)
	}
	for _, b := range p.blocks {
		if b.Dim() != p.dim {
			return nil, fmt.Errorf("geometry: block at %v has dimension %d, domain has %d", b.Location, b.Dim(), p.dim)
		}
	}

	p.annotate()
	p.index = newCoordIndex(p.blocks, p.dim)
	p.connected = make([]bool, len(p.blocks))

	p.connectDirect(grid)
	for axis := 0; axis < p.dim; axis++ {
		if p.geo.Periodic(axis) {
			p.connectPeriodic(axis, grid)
		}
	}

	if len(p.blocks) > 1 {
		var disconnected []int
		for id, ok := range p.connected {
			if !ok {
				disconnected = append(disconnected, id)
			}
		}
		if len(disconnected) > 0 {
			return nil, &GeometryError{Disconnected: disconnected}
		}
	}
	return p.blocks, nil
}

// annotate assigns each block an id equal to its position in the list.
func (p *Processor) annotate() {
	for i, b := range p.blocks {
		b.ID = i
	}
}

func (p *Processor) tryConnect(b1, b2 *sim.Block, geo sim.DomainGeometry, axis int, grid *sim.Grid) {
	if b1.Connect(b2, geo, axis, grid) {
		p.connected[b1.ID] = true
		p.connected[b2.ID] = true
		if geo != nil {
			p.log.Debugf("Periodic connection along axis %d: %d <-> %d", axis, b1.ID, b2.ID)
		} else {
			p.log.Debugf("Direct connection: %d <-> %d", b1.ID, b2.ID)
		}
	}
}

// connectDirect joins every block with the blocks starting where it ends.
func (p *Processor) connectDirect(grid *sim.Grid) {
	order := make([]*sim.Block, len(p.blocks))
	for axis := 0; axis < p.dim; axis++ {
		copy(order, p.blocks)
		sort.SliceStable(order, func(i, j int) bool {
			return order[i].Location[axis] < order[j].Location[axis]
		})
		for _, b := range order {
			for _, id := range p.index.startingAt(axis, b.End(axis)) {
				p.tryConnect(b, p.blocks[id], nil, -1, grid)
			}
		}
	}
}

// connectPeriodic joins blocks at the lower boundary of a periodic axis
// with the blocks at its upper boundary. A block spanning the whole axis
// wraps onto itself and is marked locally periodic instead.
func (p *Processor) connectPeriodic(axis int, grid *sim.Grid) {
	extent := p.geo.Extent()[axis]
	for _, id := range p.index.startingAt(axis, 0) {
		b := p.blocks[id]
		if b.End(axis) == extent {
			b.EnableLocalPeriodicity(axis)
			p.log.Debugf("Block %d is locally periodic along axis %d", b.ID, axis)
			continue
		}
		for _, candidate := range p.blocks {
			if candidate != b && candidate.End(axis) == extent {
				p.tryConnect(b, candidate, p.geo, axis, grid)
			}
		}
	}
}
