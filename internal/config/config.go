package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/terrain"
)

const (
	DefaultWidth   = 512
	DefaultBackend = "cpu"
	DefaultDataDir = "data"
)

type Config struct {
	Terrain TerrainConfig `yaml:"terrain" json:"terrain"`
	Erosion ErosionConfig `yaml:"erosion" json:"erosion"`
	Backend string        `yaml:"backend" json:"backend"`
	DataDir string        `yaml:"data_dir" json:"data_dir"`
}

type TerrainConfig struct {
	Width       int     `yaml:"width" json:"width"`
	Seed        int64   `yaml:"seed" json:"seed"`
	Scale       float64 `yaml:"scale" json:"scale"`
	Octaves     int     `yaml:"octaves" json:"octaves"`
	Frequency   float64 `yaml:"frequency" json:"frequency"`
	Amplitude   float64 `yaml:"amplitude" json:"amplitude"`
	Persistence float64 `yaml:"persistence" json:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity" json:"lacunarity"`
	DomainWarp  float64 `yaml:"domain_warp" json:"domain_warp"`
	MinHeight   float64 `yaml:"min_height" json:"min_height"`
}

type ErosionConfig struct {
	Steps         int     `yaml:"steps" json:"steps"`
	Hydraulic     bool    `yaml:"hydraulic" json:"hydraulic"`
	KC            float32 `yaml:"kc" json:"kc"`
	KD            float32 `yaml:"kd" json:"kd"`
	KS            float32 `yaml:"ks" json:"ks"`
	KE            float32 `yaml:"ke" json:"ke"`
	Rain          float32 `yaml:"rain" json:"rain"`
	RainFrequency int     `yaml:"rain_frequency" json:"rain_frequency"`
	Thermal       bool    `yaml:"thermal" json:"thermal"`
	KT            float32 `yaml:"kt" json:"kt"`
	CT            float32 `yaml:"ct" json:"ct"`
}

func DefaultConfig() *Config {
	t := terrain.DefaultParams()
	e := erosion.DefaultParams()
	return &Config{
		Terrain: TerrainConfig{
			Width:       DefaultWidth,
			Seed:        t.Seed,
			Scale:       t.Scale,
			Octaves:     t.Octaves,
			Frequency:   t.Frequency,
			Amplitude:   t.Amplitude,
			Persistence: t.Persistence,
			Lacunarity:  t.Lacunarity,
			DomainWarp:  t.DomainWarp,
			MinHeight:   t.MinHeight,
		},
		Erosion: ErosionConfig{
			Steps:         e.Steps,
			Hydraulic:     e.Hydraulic,
			KC:            e.KC,
			KD:            e.KD,
			KS:            e.KS,
			KE:            e.KE,
			Rain:          e.Rain,
			RainFrequency: e.RainFrequency,
			Thermal:       e.Thermal,
			KT:            e.KT,
			CT:            e.CT,
		},
		Backend: DefaultBackend,
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the parts of the config the engine does not check
// itself.
func (c *Config) Validate() error {
	if c.Terrain.Width < 5 {
		return fmt.Errorf("config: terrain width %d, need at least 5", c.Terrain.Width)
	}
	if _, err := erosion.ParseBackend(c.Backend); err != nil {
		return err
	}
	return c.ErosionParams().Validate()
}

func (c *Config) TerrainParams() terrain.Params {
	t := c.Terrain
	return terrain.Params{
		Width:       t.Width,
		Seed:        t.Seed,
		Scale:       t.Scale,
		Octaves:     t.Octaves,
		Frequency:   t.Frequency,
		Amplitude:   t.Amplitude,
		Persistence: t.Persistence,
		Lacunarity:  t.Lacunarity,
		DomainWarp:  t.DomainWarp,
		MinHeight:   t.MinHeight,
	}
}

func (c *Config) ErosionParams() erosion.Params {
	e := c.Erosion
	return erosion.Params{
		Steps:         e.Steps,
		Hydraulic:     e.Hydraulic,
		KC:            e.KC,
		KD:            e.KD,
		KS:            e.KS,
		KE:            e.KE,
		Rain:          e.Rain,
		RainFrequency: e.RainFrequency,
		Thermal:       e.Thermal,
		KT:            e.KT,
		CT:            e.CT,
	}
}

// SetErosion replaces the erosion section with p.
func (c *Config) SetErosion(p erosion.Params) {
	c.Erosion = ErosionConfig{
		Steps:         p.Steps,
		Hydraulic:     p.Hydraulic,
		KC:            p.KC,
		KD:            p.KD,
		KS:            p.KS,
		KE:            p.KE,
		Rain:          p.Rain,
		RainFrequency: p.RainFrequency,
		Thermal:       p.Thermal,
		KT:            p.KT,
		CT:            p.CT,
	}
}

// SetParam assigns one erosion parameter by name, see erosion.ParamNames.
func (c *Config) SetParam(name string, v float64) error {
	p := c.ErosionParams()
	if err := p.Set(name, v); err != nil {
		return err
	}
	c.SetErosion(p)
	return nil
}
