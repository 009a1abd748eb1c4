package config

import "sort"

var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"rainy": func(c *Config) {
		c.Erosion.Rain = 0.4
		c.Erosion.RainFrequency = 50
		c.Erosion.KE = 0.98
	},
	"arid": func(c *Config) {
		c.Erosion.Rain = 0.05
		c.Erosion.KE = 0.9
		c.Erosion.KT = 0.4
		c.Erosion.CT = 0.1
	},
	"thermal": func(c *Config) {
		c.Erosion.Hydraulic = false
		c.Erosion.KT = 0.3
		c.Erosion.CT = 0.2
		c.Erosion.Steps = 1000
	},
	"quick": func(c *Config) {
		c.Terrain.Width = 128
		c.Terrain.Frequency = 0.02
		c.Terrain.DomainWarp = 100
		c.Erosion.Steps = 200
	},
}

// GetPreset returns a fresh config with the named preset applied to the
// defaults, or nil if no such preset exists.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
