package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/erosim/internal/config"
)

func sampleRun(width int) *Run {
	cfg := config.DefaultConfig()
	heights := make([]float32, width*width)
	for i := range heights {
		heights[i] = float32(i%width) * 2.5
	}
	return &Run{
		Backend:     "cpu",
		Terrain:     cfg.Terrain,
		Erosion:     cfg.Erosion,
		Steps:       120,
		Elapsed:     1500 * time.Millisecond,
		ScoreBefore: 0.8,
		ScoreAfter:  0.6,
		Width:       width,
		Heights:     heights,
		History:     []Sample{{Step: 0, Score: 0.8}, {Step: 60, Score: 0.7}, {Step: 120, Score: 0.6}},
		Metrics:     map[string]float64{"material_drift": 0.01},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	run := sampleRun(8)
	runID, err := st.Save(run)
	require.NoError(t, err)
	assert.NotEmpty(t, runID)

	meta, err := st.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "cpu", meta.Backend)
	assert.Equal(t, 120, meta.Steps)
	assert.Equal(t, int64(1500), meta.ElapsedMS)
	assert.Equal(t, float32(0), meta.MinHeight)
	assert.Equal(t, float32(17.5), meta.MaxHeight)
	assert.Equal(t, run.Erosion, meta.Erosion)
	assert.Equal(t, run.Terrain, meta.Terrain)
	assert.Equal(t, run.Metrics, meta.Metrics)

	heights, width, err := st.LoadHeights(runID)
	require.NoError(t, err)
	assert.Equal(t, 8, width)
	assert.Equal(t, run.Heights, heights)

	scores, err := st.LoadScores(runID)
	require.NoError(t, err)
	assert.Equal(t, run.History, scores)

	for _, name := range []string{tiffFile, pngFile} {
		_, err := os.Stat(filepath.Join(st.RunDir(runID), name))
		assert.NoError(t, err, name)
	}
}

func TestStoreSaveRejectsBadSize(t *testing.T) {
	st := New(t.TempDir())
	run := sampleRun(4)
	run.Width = 5
	_, err := st.Save(run)
	assert.Error(t, err)
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	first, err := st.Save(sampleRun(4))
	require.NoError(t, err)
	second, err := st.Save(sampleRun(4))
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "junk"), 0755))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, first, runs[0].ID)
	assert.Equal(t, second, runs[1].ID)
}

func TestStoreListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestLoadHeightsCorrupt(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(sampleRun(4))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(st.RunDir(runID), heightsFile), []byte{1, 2, 3}, 0644))

	_, _, err = st.LoadHeights(runID)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestTIFFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.tiff")
	heights := []float32{
		10, 20, 30,
		40, 50, 60,
		70, 80, 90,
	}
	require.NoError(t, WriteTIFF(path, heights, 3))

	got, width, err := ReadTIFF(path, 10, 90)
	require.NoError(t, err)
	assert.Equal(t, 3, width)
	assert.InDeltaSlice(t, heights, got, 0.01)
}

func TestWritePNGFlat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flat.png")
	require.NoError(t, WritePNG(path, make([]float32, 16), 4))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
