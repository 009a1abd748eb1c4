package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"os/signal"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/erosim/internal/analysis"
	"github.com/san-kum/erosim/internal/config"
	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/metrics"
	"github.com/san-kum/erosim/internal/storage"
	"github.com/san-kum/erosim/internal/tui"
)

const progressInterval = 500 * time.Millisecond

func runErosion(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	res, err := erodeAndSave(ctx, cfg)
	if err != nil {
		return err
	}
	fmt.Println(tui.Summary("RUN "+res.id, res.rows()))
	return nil
}

// result is a saved run as reported to the user.
type result struct {
	id      string
	dir     string
	backend erosion.Backend
	stats   erosion.Stats
	planned int
	before  float64
	after   float64
	metrics map[string]float64
}

func (r *result) rows() [][2]string {
	return [][2]string{
		{"backend", r.backend.String()},
		{"steps", fmt.Sprintf("%d / %d", r.stats.Steps, r.planned)},
		{"elapsed", r.stats.Elapsed.Round(time.Millisecond).String()},
		{"roughness", fmt.Sprintf("%.4f -> %.4f", r.before, r.after)},
		{"spectral slope", fmt.Sprintf("%.3f -> %.3f", r.metrics["spectral_slope_before"], r.metrics["spectral_slope_after"])},
		{"eroded", fmt.Sprintf("%.1f (max cut %.2f)", r.metrics["eroded"], r.metrics["max_cut"])},
		{"deposited", fmt.Sprintf("%.1f (max fill %.2f)", r.metrics["deposited"], r.metrics["max_fill"])},
		{"material drift", fmt.Sprintf("%.4f%%", 100*r.metrics["material_drift"])},
		{"saved", r.dir},
	}
}

// erodeAndSave generates the terrain for cfg, erodes it and stores the run.
func erodeAndSave(ctx context.Context, cfg *config.Config) (*result, error) {
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}

	land, err := newTerrain(cfg)
	if err != nil {
		return nil, err
	}
	s, err := newSession(cfg, land, true)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	before, err := s.engine.Score()
	if err != nil {
		return nil, fmt.Errorf("score before erosion: %w", err)
	}
	original := slices.Clone(land.Heights())
	history := []storage.Sample{{Step: 0, Score: before}}
	tracked := []metrics.Metric{metrics.NewMaterialDrift(), metrics.NewRelief()}
	observe(tracked, land.Heights())

	fmt.Printf("eroding %dx%d terrain on %s for %d steps...\n", land.Width(), land.Width(), s.backend, cfg.Erosion.Steps)
	start := time.Now()
	history, err = erode(ctx, s, history, tracked)
	if err != nil {
		return nil, err
	}
	observe(tracked, land.Heights())

	after, err := s.engine.Score()
	if err != nil && !errors.Is(err, erosion.ErrFlatTerrain) {
		return nil, err
	}
	stats := s.engine.Stats()
	history = append(history, storage.Sample{Step: stats.Steps, Score: after})

	values, err := runMetrics(original, land.Heights(), land.Width(), tracked)
	if err != nil {
		return nil, err
	}

	runID, err := st.Save(&storage.Run{
		Backend:     s.backend.String(),
		Terrain:     cfg.Terrain,
		Erosion:     cfg.Erosion,
		Steps:       stats.Steps,
		Elapsed:     time.Since(start),
		ScoreBefore: before,
		ScoreAfter:  after,
		Width:       land.Width(),
		Heights:     land.Heights(),
		History:     history,
		Metrics:     values,
	})
	if err != nil {
		return nil, err
	}
	return &result{
		id:      runID,
		dir:     st.RunDir(runID),
		backend: s.backend,
		stats:   stats,
		planned: cfg.Erosion.Steps,
		before:  before,
		after:   after,
		metrics: values,
	}, nil
}

func observe(ms []metrics.Metric, heights []float32) {
	for _, m := range ms {
		m.Observe(heights)
	}
}

// runMetrics gathers everything stored alongside a run's scores.
func runMetrics(before, after []float32, width int, tracked []metrics.Metric) (map[string]float64, error) {
	values := metrics.Collect(tracked...)
	cf, err := metrics.Compare(before, after, 1e-4)
	if err != nil {
		return nil, err
	}
	maps.Copy(values, cf.Values())

	// a flat field has no spectrum, which is not worth failing a run over
	if slope, err := analysis.Slope(before, width); err == nil {
		values["spectral_slope_before"] = slope
	}
	if slope, err := analysis.Slope(after, width); err == nil {
		values["spectral_slope_after"] = slope
	}
	return values, nil
}

// erode runs the session to completion or until ctx is cancelled. CPU runs
// print progress and collect approximate score and metric samples on the
// way.
func erode(ctx context.Context, s *session, history []storage.Sample, tracked []metrics.Metric) ([]storage.Sample, error) {
	if s.backend == erosion.GPU {
		done := make(chan struct{})
		defer close(done)
		go func() {
			select {
			case <-ctx.Done():
				s.engine.Stop()
			case <-done:
			}
		}()
		return history, s.engine.Start(s.backend)
	}

	if err := s.engine.Start(s.backend); err != nil {
		return history, err
	}
	total := s.engine.Params().Steps
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for s.engine.Eroding() {
		select {
		case <-ctx.Done():
			s.engine.Stop()
			fmt.Fprintln(os.Stderr, "\ninterrupted")
		case <-ticker.C:
			step := s.engine.Step()
			if score, err := s.engine.Score(); err == nil {
				history = append(history, storage.Sample{Step: step, Score: score})
			}
			observe(tracked, s.land.Heights())
			fmt.Fprintf(os.Stderr, "\rstep %d / %d", step, total)
		}
	}
	s.engine.Wait()
	fmt.Fprintln(os.Stderr)
	return history, s.engine.LastError()
}

func scoreRun(cmd *cobra.Command, args []string) error {
	st := storage.New(storeDir())
	heights, w, err := st.LoadHeights(args[0])
	if err != nil {
		return err
	}
	score, err := erosion.Roughness(heights, w)
	if err != nil {
		return err
	}
	fmt.Printf("%.6f\n", score)
	return nil
}

func benchBackends(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	rows := make([][2]string, 0, 4)
	for _, b := range []erosion.Backend{erosion.CPU, erosion.GPU} {
		bcfg := *cfg
		bcfg.Backend = b.String()
		elapsed, score, err := benchOne(&bcfg)
		if err != nil {
			return fmt.Errorf("%s: %w", b, err)
		}
		rate := float64(cfg.Erosion.Steps) / elapsed.Seconds()
		rows = append(rows,
			[2]string{b.String(), fmt.Sprintf("%v (%.1f steps/s)", elapsed.Round(time.Millisecond), rate)},
			[2]string{b.String() + " score", fmt.Sprintf("%.4f", score)},
		)
	}
	fmt.Println(tui.Summary(fmt.Sprintf("BENCH %dx%d, %d steps", cfg.Terrain.Width, cfg.Terrain.Width, cfg.Erosion.Steps), rows))
	return nil
}

func benchOne(cfg *config.Config) (time.Duration, float64, error) {
	land, err := newTerrain(cfg)
	if err != nil {
		return 0, 0, err
	}
	s, err := newSession(cfg, land, true)
	if err != nil {
		return 0, 0, err
	}
	defer s.Close()

	if err := s.engine.Start(s.backend); err != nil {
		return 0, 0, err
	}
	s.engine.Wait()
	if err := s.engine.LastError(); err != nil {
		return 0, 0, err
	}
	score, err := s.engine.Score()
	return s.engine.Stats().Elapsed, score, err
}
