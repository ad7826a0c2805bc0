package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialFeatureLayout_LayerMajorOrder(t *testing.T) {
	// GIVEN 2 machines in layer 0, 1 in layer 1, 2 products
	layout := SequentialFeatureLayout([]int{2, 1}, 2)

	// THEN the vector is [h0 h1 b00 b01 h2 b10 b11]
	assert.Equal(t, 7, layout.Width())
	assert.Equal(t, 2, layout.LayerCount())
	assert.Equal(t, []int{0, 1}, layout.MachineIDs(0))
	assert.Equal(t, []int{2}, layout.MachineIDs(1))

	idx, ok := layout.HealthIndex(2)
	assert.True(t, ok)
	assert.Equal(t, 4, idx)
	assert.Equal(t, 2, layout.BufferIndex(0, 0))
	assert.Equal(t, 6, layout.BufferIndex(1, 1))

	layer, ok := layout.LayerOf(1)
	assert.True(t, ok)
	assert.Equal(t, 0, layer)
	_, ok = layout.LayerOf(9)
	assert.False(t, ok)

	assert.Equal(t, []string{
		"health_m0", "health_m1", "buffer_l0_p0", "buffer_l0_p1",
		"health_m2", "buffer_l1_p0", "buffer_l1_p1",
	}, layout.Names())
}

func TestFeatureVector_Clone_IsIndependent(t *testing.T) {
	fv := FeatureVector{1, 2}
	c := fv.Clone()
	c[0] = 9
	assert.Equal(t, 1.0, fv[0])
}
