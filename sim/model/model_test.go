package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/halo-sim/halo-sim/sim"
)

func TestModels_Registered(t *testing.T) {
	names := sim.Models.Names()
	for _, want := range []string{"d2q9", "d2q9-fe", "d3q19"} {
		assert.Contains(t, names, want)
	}
}

func TestModels_Constants(t *testing.T) {
	tests := []struct {
		name        string
		size        []int
		q           int
		envelope    int
		fieldsCount int
	}{
		{"d2q9", []int{32, 32}, 9, 1, 3},
		{"d3q19", []int{16, 16, 16}, 19, 1, 4},
		{"d2q9-fe", []int{32, 32}, 9, 2, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory, ok := sim.Models.Lookup(tt.name)
			require.True(t, ok)
			cfg := sim.DefaultConfig()
			cfg.Size = tt.size
			m, err := factory(cfg)
			require.NoError(t, err)

			assert.Equal(t, tt.name, m.Name())
			assert.Equal(t, len(tt.size), m.Dim())
			assert.Equal(t, tt.q, m.Grid().Q())
			assert.Equal(t, tt.envelope, max(m.Nonlocality(), m.Grid().MaxComponent()))
			assert.Len(t, m.Fields(), tt.fieldsCount)
		})
	}
}

func TestModels_RejectWrongDimension(t *testing.T) {
	factory, _ := sim.Models.Lookup("d3q19")
	cfg := sim.DefaultConfig() // 2-D
	_, err := factory(cfg)
	assert.Error(t, err)
}

func TestGrids_CrossingCounts(t *testing.T) {
	for f := 0; f < 4; f++ {
		assert.Equal(t, 3, D2Q9.Crossing(sim.Face(f)))
	}
	for f := 0; f < 6; f++ {
		assert.Equal(t, 5, D3Q19.Crossing(sim.Face(f)))
	}
}

func TestFields_ReturnsCopy(t *testing.T) {
	factory, _ := sim.Models.Lookup("d2q9")
	m, err := factory(sim.DefaultConfig())
	require.NoError(t, err)
	f := m.Fields()
	f[0] = "mutated"
	assert.Equal(t, "rho", m.Fields()[0])
}
