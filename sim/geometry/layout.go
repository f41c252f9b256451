package geometry

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/halo-sim/halo-sim/sim"
)

// Layout is the YAML description of an explicit decomposition:
//
//	size: [128, 64]
//	periodic: [true, false]
//	blocks:
//	  - {location: [0, 0], size: [64, 64]}
//	  - {location: [64, 0], size: [64, 64]}
type Layout struct {
	Size     []int         `yaml:"size"`
	Periodic []bool        `yaml:"periodic"`
	Blocks   []LayoutBlock `yaml:"blocks"`
}

// LayoutBlock is one block entry of a Layout.
type LayoutBlock struct {
	Location []int `yaml:"location"`
	Size     []int `yaml:"size"`
}

// LayoutGeometry serves the blocks of a Layout. Blocks need not tile the
// domain; gaps show up as GeometryError during processing.
type LayoutGeometry struct {
	layout   Layout
	periodic []bool
}

// LoadLayout reads a layout file with strict field checking, so that a
// misspelled key is an error rather than a silently ignored setting.
func LoadLayout(path string) (*LayoutGeometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading layout: %w", err)
	}
	var layout Layout
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&layout); err != nil {
		return nil, fmt.Errorf("parsing layout %s: %w", path, err)
	}
	return NewLayoutGeometry(layout)
}

// NewLayoutGeometry validates a layout and wraps it as a geometry.
func NewLayoutGeometry(layout Layout) (*LayoutGeometry, error) {
	dim := len(layout.Size)
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("layout: size must have 2 or 3 components, got %d", dim)
	}
	if len(layout.Periodic) > dim {
		return nil, fmt.Errorf("layout: %d periodic flags for a %d-D domain", len(layout.Periodic), dim)
	}
	for i, b := range layout.Blocks {
		if len(b.Location) != dim || len(b.Size) != dim {
			return nil, fmt.Errorf("layout: block %d must have %d-component location and size", i, dim)
		}
		for axis := 0; axis < dim; axis++ {
			if b.Size[axis] < 1 {
				return nil, fmt.Errorf("layout: block %d has non-positive size along axis %d", i, axis)
			}
			if b.Location[axis] < 0 || b.Location[axis]+b.Size[axis] > layout.Size[axis] {
				return nil, fmt.Errorf("layout: block %d exceeds the domain along axis %d", i, axis)
			}
		}
	}
	return &LayoutGeometry{layout: layout, periodic: padPeriodic(layout.Periodic, dim)}, nil
}

func (g *LayoutGeometry) Dim() int               { return len(g.layout.Size) }
func (g *LayoutGeometry) Extent() []int          { return g.layout.Size }
func (g *LayoutGeometry) Periodic(axis int) bool { return g.periodic[axis] }

// Blocks returns the blocks in file order.
func (g *LayoutGeometry) Blocks() []*sim.Block {
	blocks := make([]*sim.Block, 0, len(g.layout.Blocks))
	for _, b := range g.layout.Blocks {
		blocks = append(blocks, sim.NewBlock(b.Location, b.Size))
	}
	return blocks
}
