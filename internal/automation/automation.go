// Package automation runs scripted batches of erosion runs described in
// YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/erosim/internal/config"
)

var ErrEmptyScenario = errors.New("automation: scenario has no runs")

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Runs        []RunSpec `yaml:"runs"`
}

// RunSpec is a single run in a scenario. Zero fields keep the preset's
// value.
type RunSpec struct {
	Name    string             `yaml:"name"`
	Preset  string             `yaml:"preset"`
	Backend string             `yaml:"backend"`
	Width   int                `yaml:"width"`
	Seed    int64              `yaml:"seed"`
	Params  map[string]float64 `yaml:"params"`
}

// Outcome is what a Runner reports about one finished run.
type Outcome struct {
	Name        string
	RunID       string
	Steps       int
	Elapsed     time.Duration
	ScoreBefore float64
	ScoreAfter  float64
}

// Runner executes one configured run.
type Runner func(ctx context.Context, name string, cfg *config.Config) (Outcome, error)

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("automation: parse %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, ErrEmptyScenario
	}
	return &scenario, nil
}

// Config resolves the run against its preset. dataDir, when set,
// overrides the preset's data directory.
func (r RunSpec) Config(dataDir string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if r.Preset != "" {
		cfg = config.GetPreset(r.Preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
	}
	if r.Backend != "" {
		cfg.Backend = r.Backend
	}
	if r.Width != 0 {
		cfg.Terrain.Width = r.Width
	}
	if r.Seed != 0 {
		cfg.Terrain.Seed = r.Seed
	}
	for k, v := range r.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RunScenario executes every run in order and stops at the first
// failure. Every run is resolved before the first run starts, so a typo
// late in the file fails fast.
func RunScenario(ctx context.Context, scenario *Scenario, dataDir string, run Runner) ([]Outcome, error) {
	configs := make([]*config.Config, len(scenario.Runs))
	for i, rs := range scenario.Runs {
		cfg, err := rs.Config(dataDir)
		if err != nil {
			return nil, fmt.Errorf("run %d (%s): %w", i+1, rs.label(i), err)
		}
		configs[i] = cfg
	}

	results := make([]Outcome, 0, len(scenario.Runs))
	for i, rs := range scenario.Runs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		name := rs.label(i)
		out, err := run(ctx, name, configs[i])
		if err != nil {
			return results, fmt.Errorf("run %d (%s): %w", i+1, name, err)
		}
		out.Name = name
		results = append(results, out)
	}
	return results, nil
}

func (r RunSpec) label(i int) string {
	if r.Name != "" {
		return r.Name
	}
	if r.Preset != "" {
		return r.Preset
	}
	return fmt.Sprintf("run-%d", i+1)
}
