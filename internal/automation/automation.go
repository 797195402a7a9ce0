package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dvdm/internal/config"
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/experiment"
	"github.com/san-kum/dvdm/internal/sim"
	"github.com/san-kum/dvdm/internal/storage"
)

// Scenario defines a scripted sequence of runs.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Output      string         `yaml:"output"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. It starts from a preset (or the defaults) and
// applies Config on top.
type ScenarioStep struct {
	Name   string    `yaml:"name"`
	Preset string    `yaml:"preset"`
	Model  string    `yaml:"model"`
	Config yaml.Node `yaml:"config"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrConfiguration, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, dynamo.ConfigErrorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// Resolve builds the configuration of a step.
func (s ScenarioStep) Resolve() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if s.Model != "" {
		cfg.Model = s.Model
	}
	if s.Preset != "" {
		p := config.GetPreset(cfg.Model, s.Preset)
		if p == nil {
			return nil, dynamo.ConfigErrorf("unknown preset %s/%s", cfg.Model, s.Preset)
		}
		cfg = p
	}
	if !s.Config.IsZero() {
		if err := s.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrConfiguration, err)
		}
	}
	return cfg, nil
}

type StepResult struct {
	Name   string
	Output string
	Result *sim.Result
}

// RunScenario executes the steps in order, each into its own output
// directory. It stops at the first failing step.
func RunScenario(ctx context.Context, scenario *Scenario, registry *experiment.Registry, logger *slog.Logger) ([]StepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.Resolve()
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step%02d-%s", i+1, cfg.Model)
		}
		if scenario.Output != "" {
			cfg.Output = filepath.Join(scenario.Output, name)
		}
		logger.Info("scenario step", "step", i+1, "of", len(scenario.Steps), "name", name, "model", cfg.Model)

		st := storage.New(cfg.Output)
		if err := st.Init(); err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, st)
		exp.SetLogger(logger.With("step", name))
		if err := exp.Setup(registry); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}
		if _, err := exp.Prepare(); err != nil {
			return results, fmt.Errorf("step %d prepare: %w", i+1, err)
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, StepResult{Name: name, Output: cfg.Output, Result: result})
	}

	return results, nil
}

// ParameterSweep runs one configuration across a range of a coefficient.
type ParameterSweep struct {
	Base      *config.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
}

type SweepResult struct {
	ParamValue float64
	FinalState dynamo.State
	Metrics    map[string]float64
	Err        error
}

// RunSweep runs each parameter value in memory. A value whose solve
// diverges is recorded with its error and the sweep continues.
func RunSweep(ctx context.Context, sweep *ParameterSweep, registry *experiment.Registry, logger *slog.Logger) ([]SweepResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if sweep.NumSteps < 1 {
		return nil, dynamo.ConfigErrorf("sweep needs at least one step, got %d", sweep.NumSteps)
	}
	if _, ok := sweep.Base.Params[sweep.ParamName]; !ok {
		return nil, dynamo.ConfigErrorf("parameter %q is not set in the base configuration", sweep.ParamName)
	}

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	results := make([]SweepResult, 0, sweep.NumSteps)
	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep
		cfg := sweep.Base.Clone()
		cfg.Params[sweep.ParamName] = paramVal

		_, result, err := runInMemory(ctx, cfg, registry, logger, nil)
		if err != nil && ctx.Err() != nil {
			return results, ctx.Err()
		}

		sr := SweepResult{ParamValue: paramVal, Err: err}
		if result != nil {
			sr.FinalState = result.Final
			sr.Metrics = result.Metrics
		}
		results = append(results, sr)

		logger.Info("sweep", "step", i+1, "of", sweep.NumSteps, sweep.ParamName, paramVal, "ok", err == nil)
	}

	return results, nil
}

// PerturbationConfig describes runs whose initial profile is disturbed by
// uniform noise of the given amplitude.
type PerturbationConfig struct {
	Base         *config.Config
	Perturbation float64
	NumTrials    int
	Seed         int64
}

type PerturbationResult struct {
	TrialID    int
	InitState  dynamo.State
	FinalState dynamo.State
	// Stable is false when the solve diverged or the state left [-bound, bound].
	Stable  bool
	Metrics map[string]float64
}

const stabilityBound = 1e6

func RunPerturbations(ctx context.Context, cfg *PerturbationConfig, registry *experiment.Registry, logger *slog.Logger) ([]PerturbationResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.NumTrials < 1 {
		return nil, dynamo.ConfigErrorf("perturbations need at least one trial, got %d", cfg.NumTrials)
	}
	if cfg.Perturbation < 0 || math.IsNaN(cfg.Perturbation) || math.IsInf(cfg.Perturbation, 0) {
		return nil, dynamo.ConfigErrorf("perturbation amplitude must be finite and >= 0, got %g", cfg.Perturbation)
	}
	base, err := cfg.Base.InitialCondition()
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	results := make([]PerturbationResult, 0, cfg.NumTrials)
	for trial := 0; trial < cfg.NumTrials; trial++ {
		noise := make([]float64, cfg.Base.StateLen())
		for i := range noise {
			noise[i] = (rng.Float64() - 0.5) * 2 * cfg.Perturbation
		}
		init := func(idx int) float64 { return base(idx) + noise[idx] }

		u0, result, err := runInMemory(ctx, cfg.Base.Clone(), registry, logger, init)
		if err != nil && ctx.Err() != nil {
			return results, ctx.Err()
		}

		pr := PerturbationResult{TrialID: trial, InitState: u0, Stable: err == nil}
		if result != nil {
			pr.FinalState = result.Final
			pr.Metrics = result.Metrics
			for _, v := range result.Final {
				if math.Abs(v) > stabilityBound {
					pr.Stable = false
					break
				}
			}
		}
		results = append(results, pr)

		if (trial+1)%10 == 0 {
			logger.Info("perturbations", "complete", trial+1, "of", cfg.NumTrials)
		}
	}

	return results, nil
}

func PerturbationStats(results []PerturbationResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}

// runInMemory prepares and runs cfg against a memory store. A nil init
// uses the configured profile.
func runInMemory(ctx context.Context, cfg *config.Config, registry *experiment.Registry, logger *slog.Logger, init dynamo.InitialCondition) (dynamo.State, *sim.Result, error) {
	exp := experiment.New(cfg, storage.NewMemory())
	exp.SetLogger(logger)
	if err := exp.Setup(registry); err != nil {
		return nil, nil, err
	}

	var u0 dynamo.State
	var err error
	if init != nil {
		u0, err = exp.PrepareWith(init)
	} else {
		u0, err = exp.Prepare()
	}
	if err != nil {
		return nil, nil, err
	}

	result, err := exp.Run(ctx)
	return u0, result, err
}
