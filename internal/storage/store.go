package storage

import (
	"encoding/binary"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/erosim/internal/config"
)

const (
	metadataFile = "metadata.json"
	heightsFile  = "height.bin"
	tiffFile     = "height.tiff"
	pngFile      = "height.png"
	scoresFile   = "scores.csv"
)

var ErrCorrupt = errors.New("storage: run data is corrupt")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// Sample is one roughness reading taken during a run.
type Sample struct {
	Step  int
	Score float64
}

// Run is everything Save persists about a finished erosion run.
type Run struct {
	Backend     string
	Terrain     config.TerrainConfig
	Erosion     config.ErosionConfig
	Steps       int
	Elapsed     time.Duration
	ScoreBefore float64
	ScoreAfter  float64
	Width       int
	Heights     []float32
	History     []Sample
	Metrics     map[string]float64
}

type RunMetadata struct {
	ID          string               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	Backend     string               `json:"backend"`
	Width       int                  `json:"width"`
	Steps       int                  `json:"steps"`
	ElapsedMS   int64                `json:"elapsed_ms"`
	ScoreBefore float64              `json:"score_before"`
	ScoreAfter  float64              `json:"score_after"`
	MinHeight   float32              `json:"min_height"`
	MaxHeight   float32              `json:"max_height"`
	Terrain     config.TerrainConfig `json:"terrain"`
	Erosion     config.ErosionConfig `json:"erosion"`
	Metrics     map[string]float64   `json:"metrics,omitempty"`
}

// Save writes run into a fresh directory and returns its id.
func (s *Store) Save(run *Run) (string, error) {
	if len(run.Heights) != run.Width*run.Width {
		return "", fmt.Errorf("storage: %d heights for width %d", len(run.Heights), run.Width)
	}
	now := time.Now()
	runID := fmt.Sprintf("%s_%d", run.Backend, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	lo, hi := bounds(run.Heights)
	meta := RunMetadata{
		ID:          runID,
		Timestamp:   now,
		Backend:     run.Backend,
		Width:       run.Width,
		Steps:       run.Steps,
		ElapsedMS:   run.Elapsed.Milliseconds(),
		ScoreBefore: run.ScoreBefore,
		ScoreAfter:  run.ScoreAfter,
		MinHeight:   lo,
		MaxHeight:   hi,
		Terrain:     run.Terrain,
		Erosion:     run.Erosion,
		Metrics:     run.Metrics,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeRaw(filepath.Join(runDir, heightsFile), run.Heights); err != nil {
		return "", err
	}
	if err := WriteTIFF(filepath.Join(runDir, tiffFile), run.Heights, run.Width); err != nil {
		return "", err
	}
	if err := WritePNG(filepath.Join(runDir, pngFile), run.Heights, run.Width); err != nil {
		return "", err
	}
	if err := writeScores(filepath.Join(runDir, scoresFile), run.History); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns the metadata of every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadHeights reads the exact float32 heights of a run.
func (s *Store) LoadHeights(runID string) ([]float32, int, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, 0, err
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, heightsFile))
	if err != nil {
		return nil, 0, err
	}
	n := meta.Width * meta.Width
	if len(data) != n*4 {
		return nil, 0, fmt.Errorf("%w: %s holds %d bytes, want %d", ErrCorrupt, heightsFile, len(data), n*4)
	}
	heights := make([]float32, n)
	if _, err := binary.Decode(data, binary.LittleEndian, heights); err != nil {
		return nil, 0, err
	}
	return heights, meta.Width, nil
}

func (s *Store) LoadScores(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, scoresFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) != 2 {
			continue
		}
		step, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		samples = append(samples, Sample{Step: step, Score: score})
	}
	return samples, nil
}

// RunDir returns where a run's files live.
func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRaw(path string, heights []float32) error {
	buf, err := binary.Append(nil, binary.LittleEndian, heights)
	if err != nil {
		return err
	}
	return os.WriteFile(path, buf, 0644)
}

func writeScores(path string, samples []Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"step", "score"}); err != nil {
		return err
	}
	for _, s := range samples {
		row := []string{strconv.Itoa(s.Step), strconv.FormatFloat(s.Score, 'f', 6, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func bounds(heights []float32) (lo, hi float32) {
	if len(heights) == 0 {
		return 0, 0
	}
	lo, hi = heights[0], heights[0]
	for _, h := range heights[1:] {
		lo = min(lo, h)
		hi = max(hi, h)
	}
	return lo, hi
}
