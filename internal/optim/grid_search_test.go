package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	g := NewGridSearch([]string{"a", "b"}, [][]float64{{0, 1, 2, 3}, {-1, 0, 1}})
	require.Equal(t, 12, g.Size())

	res, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		return math.Abs(p["a"]-2) + math.Abs(p["b"]), nil
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"a": 2, "b": 0}, res.Best)
	assert.Zero(t, res.Value)
	assert.Len(t, res.Trials, 12)
}

func TestGridSearchSkipsFailedTrials(t *testing.T) {
	boom := errors.New("boom")
	g := NewGridSearch([]string{"x"}, [][]float64{{1, 2, 3}})

	res, err := g.Search(context.Background(), func(_ context.Context, p map[string]float64) (float64, error) {
		if p["x"] == 1 {
			return 0, boom
		}
		return p["x"], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2.0, res.Best["x"])
	assert.ErrorIs(t, res.Trials[0].Err, boom)

	_, err = g.Search(context.Background(), func(context.Context, map[string]float64) (float64, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestGridSearchCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := NewGridSearch([]string{"x"}, [][]float64{{1, 2, 3, 4}})

	res, err := g.Search(ctx, func(_ context.Context, p map[string]float64) (float64, error) {
		if p["x"] == 2 {
			cancel()
		}
		return p["x"], nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, res.Trials, 2)
}

func TestGridSearchInvalid(t *testing.T) {
	obj := func(context.Context, map[string]float64) (float64, error) { return 0, nil }

	_, err := NewGridSearch(nil, nil).Search(context.Background(), obj)
	assert.ErrorIs(t, err, ErrNoAxes)

	_, err = NewGridSearch([]string{"x"}, [][]float64{{}}).Search(context.Background(), obj)
	assert.ErrorIs(t, err, ErrEmptyAxis)
}

func TestParseAxis(t *testing.T) {
	tests := []struct {
		def    string
		name   string
		values []float64
		err    bool
	}{
		{"kc=0.5,0.75, 1", "kc", []float64{0.5, 0.75, 1}, false},
		{"ks=0:1:5", "ks", []float64{0, 0.25, 0.5, 0.75, 1}, false},
		{"kt=2:9:1", "kt", []float64{2}, false},
		{"kc", "", nil, true},
		{"=1,2", "", nil, true},
		{"kc=a,b", "", nil, true},
		{"kc=0:1:0", "", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			name, values, err := ParseAxis(tt.def)
			if tt.err {
				assert.ErrorIs(t, err, ErrBadAxisDef)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.InDeltaSlice(t, tt.values, values, 1e-12)
		})
	}
}
