package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_DistributesRemainder(t *testing.T) {
	starts, sizes := split(10, 3)
	assert.Equal(t, []int{0, 4, 7}, starts)
	assert.Equal(t, []int{4, 3, 3}, sizes)
}

func TestRegularGeometry_BlocksCoverDomain(t *testing.T) {
	geo, err := NewRegularGeometry([]int{10, 7, 5}, []int{3, 2, 1}, []bool{false, true})
	require.NoError(t, err)
	assert.Equal(t, 3, geo.Dim())
	assert.True(t, geo.Periodic(1))
	assert.False(t, geo.Periodic(2), "missing flags default to false")

	blocks := geo.Blocks()
	require.Len(t, blocks, 6)
	var nodes int64
	for _, b := range blocks {
		nodes += b.NumNodes()
		assert.Equal(t, -1, b.ID)
	}
	assert.Equal(t, int64(10*7*5), nodes)
	// x-fastest ordering
	assert.Equal(t, []int{4, 0, 0}, blocks[1].Location)
	assert.Equal(t, []int{0, 4, 0}, blocks[3].Location)
}

func TestNewRegularGeometry_Errors(t *testing.T) {
	_, err := NewRegularGeometry([]int{10, 10}, []int{2}, nil)
	assert.Error(t, err)
	_, err = NewRegularGeometry([]int{10, 0}, []int{1, 1}, nil)
	assert.Error(t, err)
	_, err = NewRegularGeometry([]int{10, 10}, []int{11, 1}, nil)
	assert.Error(t, err)
}
