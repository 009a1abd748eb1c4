package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != "cpu" {
		t.Errorf("expected backend cpu, got %s", cfg.Backend)
	}
	if cfg.Erosion.Steps != 2500 {
		t.Errorf("expected 2500 steps, got %d", cfg.Erosion.Steps)
	}
	if cfg.Terrain.Width != DefaultWidth {
		t.Errorf("expected width %d, got %d", DefaultWidth, cfg.Terrain.Width)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("rainy")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Erosion.RainFrequency != 50 {
		t.Errorf("expected rain frequency 50, got %d", cfg.Erosion.RainFrequency)
	}
	if cfg.Terrain.Width != DefaultWidth {
		t.Error("preset should keep untouched defaults")
	}

	// presets must not leak into each other
	cfg.Erosion.Steps = 1
	if GetPreset("rainy").Erosion.Steps == 1 {
		t.Error("GetPreset returned a shared config")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	if len(presets) != len(Presets) {
		t.Fatalf("expected %d presets, got %d", len(Presets), len(presets))
	}
	if presets[0] != "arid" {
		t.Errorf("expected sorted names, got %v", presets)
	}
	for _, name := range presets {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"gpu backend", func(c *Config) { c.Backend = "GPU" }, true},
		{"unknown backend", func(c *Config) { c.Backend = "tpu" }, false},
		{"tiny terrain", func(c *Config) { c.Terrain.Width = 4 }, false},
		{"bad evaporation", func(c *Config) { c.Erosion.KE = 3 }, false},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		err := cfg.Validate()
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate() = %v", tt.name, err)
		}
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "erosim.yaml")
	cfg := GetPreset("quick")
	cfg.Erosion.KS = 0.3
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, cfg)
	}
}

func TestLoadPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("erosion:\n  steps: 42\nbackend: gpu\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Erosion.Steps != 42 || cfg.Backend != "gpu" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Erosion.KC != 0.75 || cfg.Terrain.Octaves != 12 {
		t.Error("missing keys should keep defaults")
	}

	p := cfg.ErosionParams()
	if p.Steps != 42 || p.KC != 0.75 {
		t.Errorf("ErosionParams() = %+v", p)
	}
	if cfg.TerrainParams().Width != DefaultWidth {
		t.Error("TerrainParams() lost the width")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !os.IsNotExist(err) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestSetParam(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.SetParam("kc", 0.25); err != nil {
		t.Fatal(err)
	}
	if err := cfg.SetParam("rain_frequency", 40); err != nil {
		t.Fatal(err)
	}
	if cfg.Erosion.KC != 0.25 || cfg.Erosion.RainFrequency != 40 {
		t.Errorf("unexpected erosion config %+v", cfg.Erosion)
	}
	if cfg.Erosion.KS != DefaultConfig().Erosion.KS {
		t.Error("SetParam changed an unrelated field")
	}
	if err := cfg.SetParam("nope", 1); err == nil {
		t.Error("expected error for unknown parameter")
	}
}
