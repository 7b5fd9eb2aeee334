package config

import "sort"

// Presets adjust the startup parameters of DefaultConfig. "gentle" carries
// the lower gains the vehicle was first tuned with.
var Presets = map[string]func(*Config){
	"default": func(c *Config) {},
	"gentle": func(c *Config) {
		c.Params.Kp = 35
		c.Params.Kd = 25
	},
	"aggressive": func(c *Config) {
		c.Params.Kp = 1200
		c.Params.Kd = 90
		c.Params.PWMMax = 1950
	},
	"disabled": func(c *Config) {
		c.Params.Enable = false
	},
	"nose-up": func(c *Config) {
		c.Params.DesiredPitchDeg = 15
		c.Sim.InitPitch = 0
	},
}

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
