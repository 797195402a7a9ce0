package config

import (
	"sort"

	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/physics"
)

func preset(model string, mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Model = model
	mutate(cfg)
	return cfg
}

var Presets = map[string]map[string]*Config{
	physics.ModelCahnHilliardDVDM: {
		"small": preset(physics.ModelCahnHilliardDVDM, func(c *Config) {}),
		"spinodal": preset(physics.ModelCahnHilliardDVDM, func(c *Config) {
			c.Settings = SettingsConfig{N: 40, Dx: 0.25, Dt: 0.1}
			c.Params = map[string]float64{dynamo.ParamGamma: 0.5, dynamo.ParamConst: 1}
			c.Timeset = TimesetConfig{TimeSpan: 500, Brank: 10, Precision: 1}
			c.InitialData = InitialDataConfig{Profile: ProfileCosine, A0: 0.1, Wn: 6}
		}),
		"interface": preset(physics.ModelCahnHilliardDVDM, func(c *Config) {
			c.Settings = SettingsConfig{N: 30, Dx: 0.5, Dt: 0.25}
			c.Timeset = TimesetConfig{TimeSpan: 200, Brank: 20, Precision: 2}
			c.InitialData = InitialDataConfig{Profile: ProfileTanh, A0: 0.9, Center: 17, Width: 3}
		}),
	},
	physics.ModelCahnHilliardForwardEuler: {
		"small": preset(physics.ModelCahnHilliardForwardEuler, func(c *Config) {
			c.Settings.Dt = 0.01
			c.Timeset = TimesetConfig{TimeSpan: 200, Brank: 50, Precision: 2}
		}),
	},
	physics.ModelHeatNeumann: {
		"cosine": preset(physics.ModelHeatNeumann, func(c *Config) {
			c.Settings = SettingsConfig{N: 21, Dx: 0.1, Dt: 0.01}
			c.Params = map[string]float64{dynamo.ParamGamma: 1}
			c.Timeset = TimesetConfig{TimeSpan: 100, Brank: 10, Precision: 2}
			c.InitialData = InitialDataConfig{Profile: ProfileCosine, A0: 1, Wn: 2}
		}),
		"uniform": preset(physics.ModelHeatNeumann, func(c *Config) {
			c.Settings = SettingsConfig{N: 11, Dx: 0.1, Dt: 0.01}
			c.Params = map[string]float64{dynamo.ParamGamma: 1}
			c.Timeset = TimesetConfig{TimeSpan: 20, Brank: 5, Precision: 2}
			c.InitialData = InitialDataConfig{Profile: ProfileConstant, Value: 0.5}
		}),
	},
	physics.ModelHeatReaction: {
		"bistable": preset(physics.ModelHeatReaction, func(c *Config) {
			c.Settings = SettingsConfig{N: 21, Dx: 0.1, Dt: 0.01}
			c.Params = map[string]float64{dynamo.ParamGamma: 1, dynamo.ParamConst: 1}
			c.Timeset = TimesetConfig{TimeSpan: 100, Brank: 10, Precision: 2}
			c.InitialData = InitialDataConfig{Profile: ProfileTanh, A0: 0.5, Center: 10, Width: 2}
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
