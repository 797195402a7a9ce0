package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/dvdm/internal/config"
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/physics"
	"github.com/san-kum/dvdm/internal/sim"
	"github.com/san-kum/dvdm/internal/storage"
)

// metadataSaver is implemented by stores that record run metadata next to
// the snapshots.
type metadataSaver interface {
	SaveMetadata(meta *storage.RunMetadata) error
}

type metadataLoader interface {
	LoadMetadata() (*storage.RunMetadata, error)
}

// Experiment binds one run configuration to a model, a stepper and a store.
type Experiment struct {
	cfg     *config.Config
	store   dynamo.Store
	logger  *slog.Logger
	model   physics.Model
	stepper *sim.Stepper

	// initialData is the recorded initial condition of a resumed run.
	initialData map[string]any
}

func New(cfg *config.Config, store dynamo.Store) *Experiment {
	return &Experiment{
		cfg:    cfg,
		store:  store,
		logger: slog.Default(),
	}
}

func (e *Experiment) SetLogger(l *slog.Logger) {
	if l != nil {
		e.logger = l
	}
	if e.stepper != nil {
		e.stepper.SetLogger(e.logger)
	}
}

// Setup validates the configuration and builds the model and stepper.
func (e *Experiment) Setup(reg *Registry) error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	params, err := e.cfg.ParamSet()
	if err != nil {
		return err
	}
	model, err := reg.GetModel(e.cfg.Model, e.cfg.GridSpec(), params, e.cfg.Settings.Dt)
	if err != nil {
		return err
	}
	rs, err := reg.GetSolver("hybrid", e.cfg.SolverConfig())
	if err != nil {
		return err
	}
	ms, err := reg.DefaultMetrics(model)
	if err != nil {
		return err
	}

	e.model = model
	e.stepper = sim.New(e.store, rs)
	e.stepper.SetLogger(e.logger)
	for _, m := range ms {
		e.stepper.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Model() physics.Model    { return e.model }
func (e *Experiment) Stepper() *sim.Stepper   { return e.stepper }
func (e *Experiment) Config() *config.Config  { return e.cfg }
func (e *Experiment) Timeset() dynamo.Timeset { return e.cfg.TimesetSpec() }

// Prepare writes the initial snapshot and the run metadata.
func (e *Experiment) Prepare() (dynamo.State, error) {
	if e.stepper == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	init, err := e.cfg.InitialCondition()
	if err != nil {
		return nil, err
	}
	return e.PrepareWith(init)
}

// PrepareWith is Prepare with an explicit initial condition.
func (e *Experiment) PrepareWith(init dynamo.InitialCondition) (dynamo.State, error) {
	if e.stepper == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	u0, err := e.stepper.Prepare(e.model, e.Timeset(), init)
	if err != nil {
		return nil, err
	}
	if err := e.saveMetadata(nil); err != nil {
		return nil, err
	}
	return u0, nil
}

// Run steps from the configured initial time. Prepare must have been
// called, or the initial snapshot must already be in the store.
func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.stepper == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.run(ctx, e.Timeset())
}

// Resume continues a run from the snapshot at label up to the configured
// final step.
func (e *Experiment) Resume(ctx context.Context, label string) (*sim.Result, error) {
	if e.stepper == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	ts := e.Timeset()
	step, err := dynamo.StepOf(label, ts.Dt)
	if err != nil {
		return nil, err
	}
	last := ts.LastStep()
	if step >= last {
		return nil, dynamo.ConfigErrorf("snapshot t=%s is at or past the final step %d", label, last)
	}
	if step < ts.InitTime {
		return nil, dynamo.ConfigErrorf("snapshot t=%s precedes inittime %d", label, ts.InitTime)
	}
	if err := e.checkRecorded(); err != nil {
		return nil, err
	}

	ts.InitTime = step
	ts.TimeSpan = last - step
	e.logger.Info("resuming", "model", e.model.Name(), "from", ts.Label(step), "steps", ts.TimeSpan)
	return e.run(ctx, ts)
}

func (e *Experiment) run(ctx context.Context, ts dynamo.Timeset) (*sim.Result, error) {
	start := time.Now()
	result, err := e.stepper.Run(ctx, e.model, ts)
	if err != nil {
		return result, err
	}
	e.logger.Info("run complete", "model", e.model.Name(), "steps", result.StepsTaken,
		"snapshots", len(result.Labels), "elapsed", time.Since(start).Round(time.Millisecond))
	return result, e.saveMetadata(result.Metrics)
}

// checkRecorded compares the configuration with the metadata of the run
// being resumed. Snapshots stepped under different physics or a different
// grid cannot be continued.
func (e *Experiment) checkRecorded() error {
	ml, ok := e.store.(metadataLoader)
	if !ok {
		return nil
	}
	meta, err := ml.LoadMetadata()
	if errors.Is(err, storage.ErrNotFound) {
		e.logger.Warn("no run metadata, resuming unchecked")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}

	cur := e.Metadata(nil)
	switch {
	case meta.Model != cur.Model:
		return dynamo.ConfigErrorf("run was recorded with model %s, configured %s", meta.Model, cur.Model)
	case meta.N != cur.N:
		return dynamo.ConfigErrorf("run was recorded with N=%d, configured %d", meta.N, cur.N)
	case meta.Dx != cur.Dx:
		return dynamo.ConfigErrorf("run was recorded with Dx=%g, configured %g", meta.Dx, cur.Dx)
	case meta.Dt != cur.Dt:
		return dynamo.ConfigErrorf("run was recorded with Dt=%g, configured %g", meta.Dt, cur.Dt)
	case meta.Precision != cur.Precision:
		return dynamo.ConfigErrorf("run was recorded with precision %d, configured %d", meta.Precision, cur.Precision)
	}
	if len(meta.Params) != len(cur.Params) {
		return dynamo.ConfigErrorf("run was recorded with params %v, configured %v", meta.Params, cur.Params)
	}
	for name, v := range cur.Params {
		if rv, ok := meta.Params[name]; !ok || rv != v {
			return dynamo.ConfigErrorf("run was recorded with params %v, configured %v", meta.Params, cur.Params)
		}
	}

	if meta.InitialData != nil {
		e.initialData = meta.InitialData
	}
	return nil
}

func (e *Experiment) Metadata(m map[string]float64) *storage.RunMetadata {
	params, _ := e.cfg.ParamSet()
	initial := e.initialData
	if initial == nil {
		initial = e.cfg.InitialDataMap()
	}
	var finite map[string]float64
	for name, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			e.logger.Warn("metric not recorded", "metric", name, "value", v)
			continue
		}
		if finite == nil {
			finite = make(map[string]float64, len(m))
		}
		finite[name] = v
	}
	return &storage.RunMetadata{
		Model:       e.cfg.Model,
		Timestamp:   time.Now(),
		N:           e.cfg.Settings.N,
		Dx:          e.cfg.Settings.Dx,
		Dt:          e.cfg.Settings.Dt,
		Precision:   e.cfg.Timeset.Precision,
		InitTime:    e.cfg.Timeset.InitTime,
		TimeSpan:    e.cfg.Timeset.TimeSpan,
		Brank:       e.cfg.Timeset.Brank,
		Params:      params.Values(),
		InitialData: initial,
		Metrics:     finite,
	}
}

func (e *Experiment) saveMetadata(m map[string]float64) error {
	ms, ok := e.store.(metadataSaver)
	if !ok {
		return nil
	}
	if err := ms.SaveMetadata(e.Metadata(m)); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}
