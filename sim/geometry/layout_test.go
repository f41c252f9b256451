package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-sim/halo-sim/sim"
	"github.com/halo-sim/halo-sim/sim/internal/testutil"
)

func TestLoadLayout_Valid(t *testing.T) {
	path := testutil.WriteTemp(t, "layout.yaml", `
size: [40, 20]
periodic: [true]
blocks:
  - {location: [0, 0], size: [20, 20]}
  - {location: [20, 0], size: [20, 20]}
`)
	geo, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Equal(t, []int{40, 20}, geo.Extent())
	assert.True(t, geo.Periodic(0))
	assert.False(t, geo.Periodic(1))
	require.Len(t, geo.Blocks(), 2)
}

func TestLoadLayout_UnknownFieldRejected(t *testing.T) {
	path := testutil.WriteTemp(t, "layout.yaml", `
size: [40, 20]
blocks:
  - {location: [0, 0], size: [40, 20], colour: red}
`)
	_, err := LoadLayout(path)
	assert.Error(t, err)
}

func TestNewLayoutGeometry_Errors(t *testing.T) {
	tests := []struct {
		name   string
		layout Layout
	}{
		{"1-D", Layout{Size: []int{10}}},
		{"block dims", Layout{Size: []int{10, 10}, Blocks: []LayoutBlock{{Location: []int{0}, Size: []int{1, 1}}}}},
		{"outside domain", Layout{Size: []int{10, 10}, Blocks: []LayoutBlock{{Location: []int{5, 0}, Size: []int{6, 1}}}}},
		{"zero size", Layout{Size: []int{10, 10}, Blocks: []LayoutBlock{{Location: []int{0, 0}, Size: []int{0, 1}}}}},
		{"periodic flags", Layout{Size: []int{10, 10}, Periodic: []bool{true, true, true}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLayoutGeometry(tt.layout)
			assert.Error(t, err)
		})
	}
}

func TestFromConfig_SelectsGeometry(t *testing.T) {
	cfg := sim.DefaultConfig()
	cfg.Size = []int{32, 32}
	cfg.Blocks = []int{2, 2}
	geo, err := FromConfig(cfg)
	require.NoError(t, err)
	assert.Len(t, geo.Blocks(), 4)

	cfg.LayoutPath = testutil.WriteTemp(t, "layout.yaml", "size: [8, 8]\nblocks:\n  - {location: [0, 0], size: [8, 8]}\n")
	geo, err = FromConfig(cfg)
	require.NoError(t, err)
	assert.Len(t, geo.Blocks(), 1)
	assert.Equal(t, []int{8, 8}, geo.Extent())
}

func TestApplyLayout_CopiesDomainShape(t *testing.T) {
	cfg := sim.DefaultConfig()
	require.NoError(t, ApplyLayout(cfg), "no layout is a no-op")
	assert.Equal(t, []int{128, 128}, cfg.Size)

	cfg.LayoutPath = testutil.WriteTemp(t, "layout.yaml", "size: [8, 8, 4]\nperiodic: [true]\nblocks:\n  - {location: [0, 0, 0], size: [8, 8, 4]}\n")
	require.NoError(t, ApplyLayout(cfg))
	assert.Equal(t, []int{8, 8, 4}, cfg.Size)
	assert.Equal(t, []bool{true, false, false}, cfg.Periodic)
	assert.Equal(t, 3, cfg.Dim())
}
