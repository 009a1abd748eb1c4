package grid

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(width int, h float32) ([]float32, []float32) {
	height := make([]float32, width*width)
	for i := range height {
		height[i] = h
	}
	return height, make([]float32, width*width)
}

func TestNewAliasesSourceBuffers(t *testing.T) {
	height, water := uniform(4, 2)
	g := New(4, height, water)

	require.Equal(t, 16, g.Size)
	g.HeightIn[5] = 9
	g.WaterIn[6] = 3
	assert.Equal(t, float32(9), height[5])
	assert.Equal(t, float32(3), water[6])
	assert.Len(t, g.SedimentOut, 16)
}

func TestSeedSkipsBoundary(t *testing.T) {
	height, water := uniform(5, 10)
	g := New(5, height, water)
	g.SedimentIn[g.Index(2, 2)] = 4

	g.Seed(0, 5, 0.5, 20)

	for z := 0; z < 5; z++ {
		for x := 0; x < 5; x++ {
			i := g.Index(x, z)
			if g.Interior(x, z, 1) {
				assert.InDelta(t, 0.25, g.WaterIn[i], 1e-6)
				assert.Equal(t, g.WaterIn[i], g.WaterOut[i])
				assert.Equal(t, float32(10), g.HeightOut[i])
				assert.Zero(t, g.SedimentIn[i])
			} else {
				assert.Zero(t, g.WaterIn[i], "boundary cell (%d,%d)", x, z)
			}
		}
	}
}

func TestRotateCopiesInteriorOnly(t *testing.T) {
	height, water := uniform(4, 1)
	g := New(4, height, water)
	for i := range g.HeightOut {
		g.HeightOut[i] = 7
		g.WaterOut[i] = 2
	}

	g.Rotate(0, 4)

	assert.Equal(t, float32(7), g.HeightIn[g.Index(1, 1)])
	assert.Equal(t, float32(2), g.WaterIn[g.Index(2, 2)])
	assert.Equal(t, float32(1), g.HeightIn[g.Index(0, 1)])
	assert.Equal(t, float32(1), g.HeightIn[g.Index(3, 3)])
}

func TestSum(t *testing.T) {
	height, water := uniform(6, 1)
	g := New(6, height, water)

	assert.InDelta(t, 36, g.Sum(Height, 0), 1e-9)
	assert.InDelta(t, 16, g.Sum(Height, 1), 1e-9)
	assert.InDelta(t, 4, g.Sum(Height, 2), 1e-9)
	assert.Zero(t, g.Sum(Sediment, 0))
}

func TestAtomicAddConcurrent(t *testing.T) {
	buf := make([]float32, 3)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				AtomicAdd(buf, 1, 0.5)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, float32(4000), buf[1])
	assert.Zero(t, buf[0])
	assert.Zero(t, buf[2])
}

func TestRelease(t *testing.T) {
	height, water := uniform(3, 0)
	g := New(3, height, water)
	assert.False(t, g.Released())

	g.Release()

	assert.True(t, g.Released())
	assert.Len(t, height, 9)
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "height", Height.String())
	assert.Equal(t, "water", Water.String())
	assert.Equal(t, "sediment", Sediment.String())
	assert.Equal(t, "unknown", Field(9).String())
}
