package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/physics"
	"github.com/san-kum/dvdm/internal/solver"
)

const (
	DefaultModel     = physics.ModelCahnHilliardDVDM
	DefaultOutput    = "output"
	DefaultN         = 10
	DefaultDx        = 0.5
	DefaultDt        = 0.5
	DefaultGamma     = 2.0
	DefaultConst     = 0.25
	DefaultTimeSpan  = 4
	DefaultBrank     = 1
	DefaultPrecision = 1
	DefaultProfile   = ProfileCosine
	DefaultA0        = 0.01
	DefaultWn        = 4.0
)

// Initial-condition profiles.
const (
	ProfileCosine   = "cosine"
	ProfileConstant = "constant"
	ProfileTanh     = "tanh"
)

type Config struct {
	Model       string             `yaml:"model"`
	Output      string             `yaml:"output"`
	Settings    SettingsConfig     `yaml:"settings"`
	Params      map[string]float64 `yaml:"params"`
	Timeset     TimesetConfig      `yaml:"timeset"`
	InitialData InitialDataConfig  `yaml:"initial_data"`
	Solver      SolverConfig       `yaml:"solver"`
}

type SettingsConfig struct {
	N  int     `yaml:"N"`
	Dx float64 `yaml:"Dx"`
	Dt float64 `yaml:"Dt"`
}

type TimesetConfig struct {
	InitTime  int `yaml:"inittime"`
	TimeSpan  int `yaml:"timespan"`
	Brank     int `yaml:"brank"`
	Precision int `yaml:"precision"`
}

type InitialDataConfig struct {
	Profile string  `yaml:"profile"`
	A0      float64 `yaml:"a0"`
	Wn      float64 `yaml:"wn"`
	Value   float64 `yaml:"value"`
	Center  float64 `yaml:"center"`
	Width   float64 `yaml:"width"`
}

type SolverConfig struct {
	XTol        float64 `yaml:"xtol"`
	FTol        float64 `yaml:"ftol"`
	MaxResidual float64 `yaml:"max_residual"`
	MaxEvals    int     `yaml:"max_evals"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:  DefaultModel,
		Output: DefaultOutput,
		Settings: SettingsConfig{
			N:  DefaultN,
			Dx: DefaultDx,
			Dt: DefaultDt,
		},
		Params: map[string]float64{
			dynamo.ParamGamma: DefaultGamma,
			dynamo.ParamConst: DefaultConst,
		},
		Timeset: TimesetConfig{
			TimeSpan:  DefaultTimeSpan,
			Brank:     DefaultBrank,
			Precision: DefaultPrecision,
		},
		InitialData: InitialDataConfig{
			Profile: DefaultProfile,
			A0:      DefaultA0,
			Wn:      DefaultWn,
			Width:   1,
		},
	}
}

// Load reads a YAML file over the defaults. A params block in the file
// replaces the default coefficients as a whole.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Params = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfiguration, err)
	}
	if cfg.Params == nil {
		cfg.Params = DefaultConfig().Params
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

// Clone returns a deep copy, so presets can be modified safely.
func (c *Config) Clone() *Config {
	out := *c
	out.Params = make(map[string]float64, len(c.Params))
	for k, v := range c.Params {
		out.Params[k] = v
	}
	return &out
}

func (c *Config) Validate() error {
	if _, err := physics.Lookup(c.Model); err != nil {
		return err
	}
	if _, err := c.ParamSet(); err != nil {
		return err
	}
	if err := c.TimesetSpec().Validate(); err != nil {
		return err
	}
	if _, err := c.InitialCondition(); err != nil {
		return err
	}

	build, _ := physics.Lookup(c.Model)
	params, _ := c.ParamSet()
	_, err := build(c.GridSpec(), params, c.Settings.Dt)
	return err
}

func (c *Config) GridSpec() dynamo.Grid {
	return dynamo.Grid{N: c.Settings.N, Dx: c.Settings.Dx}
}

func (c *Config) ParamSet() (dynamo.Params, error) {
	return dynamo.NewParams(c.Params)
}

func (c *Config) TimesetSpec() dynamo.Timeset {
	return dynamo.Timeset{
		InitTime:  c.Timeset.InitTime,
		TimeSpan:  c.Timeset.TimeSpan,
		Brank:     c.Timeset.Brank,
		Dt:        c.Settings.Dt,
		Precision: c.Timeset.Precision,
	}
}

func (c *Config) SolverConfig() solver.Config {
	return solver.Config{
		XTol:        c.Solver.XTol,
		FTol:        c.Solver.FTol,
		MaxResidual: c.Solver.MaxResidual,
		MaxEvals:    c.Solver.MaxEvals,
	}
}

// StateLen is the length of the state vector the model runs on.
func (c *Config) StateLen() int {
	return physics.StateLen(c.Model, c.Settings.N)
}

// InitialCondition builds the configured profile.
func (c *Config) InitialCondition() (dynamo.InitialCondition, error) {
	d := c.InitialData
	switch d.Profile {
	case ProfileCosine, "":
		return physics.Cosine(d.A0, d.Wn, c.StateLen()), nil
	case ProfileConstant:
		return physics.Constant(d.Value), nil
	case ProfileTanh:
		if d.Width <= 0 {
			return nil, dynamo.ConfigErrorf("tanh width must be positive, got %g", d.Width)
		}
		return physics.Tanh(d.A0, d.Center, d.Width), nil
	}
	return nil, dynamo.ConfigErrorf("unknown initial profile %q", d.Profile)
}

// InitialDataMap records the profile for run metadata.
func (c *Config) InitialDataMap() map[string]any {
	d := c.InitialData
	m := map[string]any{"profile": d.Profile}
	switch d.Profile {
	case ProfileConstant:
		m["value"] = d.Value
	case ProfileTanh:
		m["a0"], m["center"], m["width"] = d.A0, d.Center, d.Width
	default:
		m["a0"], m["wn"] = d.A0, d.Wn
	}
	return m
}
