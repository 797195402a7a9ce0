package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/dvdm/internal/automation"
	"github.com/san-kum/dvdm/internal/config"
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/experiment"
	"github.com/san-kum/dvdm/internal/optim"
	"github.com/san-kum/dvdm/internal/sim"
	"github.com/san-kum/dvdm/internal/storage"
	"github.com/san-kum/dvdm/internal/viz"
)

var (
	outputDir  string
	configFile string
	preset     string
	modelName  string
	verbose    bool
	quiet      bool

	gridN     int
	dx        float64
	dt        float64
	gamma     float64
	reaction  float64
	timeSpan  int
	brank     int
	precision int

	profile string
	a0      float64
	wn      float64

	// Sweep and perturbation
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int
	amplitude  float64
	trials     int
	seed       int64

	// Grid search
	gridRanges []string
	metricName string

	// Plot and export
	label     string
	maxCurves int
	jsonOut   string
)

var logger = slog.Default()

func main() {
	rootCmd := &cobra.Command{
		Use:           "dvdm",
		Short:         "structure-preserving Cahn-Hilliard and heat equation stepper",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			slog.SetDefault(logger)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", config.DefaultOutput, "output directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "prepare the initial snapshot and step the configured model",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "continue a run from its latest snapshot",
		Long: `Continue the run in the output directory from its latest snapshot.
The recorded configuration is the starting point; pass --timespan to extend
the run. Flags that change the physics or the grid are rejected.`,
		Args: cobra.NoArgs,
		RunE: resumeSimulation,
	}
	addRunFlags(resumeCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored snapshots",
		Args:  cobra.NoArgs,
		RunE:  listSnapshots,
	}

	plotCmd := &cobra.Command{
		Use:   "plot",
		Short: "plot the profile of a snapshot in the terminal",
		Args:  cobra.NoArgs,
		RunE:  plotSnapshot,
	}
	plotCmd.Flags().StringVar(&label, "label", "", "snapshot label (default latest)")

	exportPNGCmd := &cobra.Command{
		Use:   "export-png [prefix]",
		Short: "save profile and invariant figures",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportPNG,
	}
	exportPNGCmd.Flags().IntVar(&maxCurves, "curves", 6, "maximum number of profiles drawn")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json",
		Short: "export metadata and snapshots as JSON",
		Args:  cobra.NoArgs,
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&jsonOut, "file", "", "output file (default stdout)")

	invariantsCmd := &cobra.Command{
		Use:   "invariants",
		Short: "tabulate discrete mass and energy of stored snapshots",
		Args:  cobra.NoArgs,
		RunE:  showInvariants,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "profile statistics and dominant modes of stored snapshots",
		Args:  cobra.NoArgs,
		RunE:  analyzeRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			models := experiment.NewRegistry().ListModels()
			if len(args) > 0 {
				models = args
			}
			for _, m := range models {
				presets := config.ListPresets(m)
				if len(presets) == 0 {
					fmt.Printf("no presets for model: %s\n", m)
					continue
				}
				fmt.Printf("presets for %s:\n", m)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run the configured model across a range of one coefficient",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", dynamo.ParamGamma, "coefficient to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 1, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 4, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 4, "number of values")

	perturbCmd := &cobra.Command{
		Use:   "perturb",
		Short: "run the configured model from noisy initial profiles",
		Args:  cobra.NoArgs,
		RunE:  runPerturb,
	}
	addRunFlags(perturbCmd)
	perturbCmd.Flags().Float64Var(&amplitude, "amplitude", 0.01, "noise amplitude")
	perturbCmd.Flags().IntVar(&trials, "trials", 10, "number of trials")
	perturbCmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 uses the clock)")

	searchCmd := &cobra.Command{
		Use:   "search",
		Short: "find the coefficients that minimize a metric",
		Args:  cobra.NoArgs,
		RunE:  runSearch,
	}
	addRunFlags(searchCmd)
	searchCmd.Flags().StringArrayVar(&gridRanges, "grid", nil, "coefficient values as name=v1,v2,... (repeatable)")
	searchCmd.Flags().StringVar(&metricName, "metric", "mean_rate", "metric to minimize")

	rootCmd.AddCommand(runCmd, resumeCmd, listCmd, plotCmd, exportPNGCmd, exportJSONCmd,
		invariantsCmd, analyzeCmd, presetsCmd, scenarioCmd, sweepCmd, perturbCmd, searchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.Failure(err))
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().StringVarP(&modelName, "model", "m", config.DefaultModel, "model name")
	cmd.Flags().IntVar(&gridN, "N", config.DefaultN, "number of interior grid points")
	cmd.Flags().Float64Var(&dx, "dx", config.DefaultDx, "grid spacing")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step")
	cmd.Flags().Float64Var(&gamma, "gamma", config.DefaultGamma, "diffusion coefficient Gamma")
	cmd.Flags().Float64Var(&reaction, "const", config.DefaultConst, "potential coefficient const")
	cmd.Flags().IntVar(&timeSpan, "timespan", config.DefaultTimeSpan, "number of steps")
	cmd.Flags().IntVar(&brank, "brank", config.DefaultBrank, "save every brank steps")
	cmd.Flags().IntVar(&precision, "precision", config.DefaultPrecision, "decimal digits of time labels")
	cmd.Flags().StringVar(&profile, "profile", config.DefaultProfile, "initial profile (cosine, constant, tanh)")
	cmd.Flags().Float64Var(&a0, "a0", config.DefaultA0, "initial amplitude")
	cmd.Flags().Float64Var(&wn, "wn", config.DefaultWn, "initial wave number")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no progress bar")
}

// resolveConfig layers a preset, a config file and explicitly set flags,
// in that order.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	return resolveConfigFrom(cmd, config.DefaultConfig())
}

// resolveConfigFrom is resolveConfig starting from base instead of the
// defaults.
func resolveConfigFrom(cmd *cobra.Command, base *config.Config) (*config.Config, error) {
	flags := cmd.Flags()
	cfg := base

	if preset != "" {
		p := config.GetPreset(modelName, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(modelName))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if flags.Changed("model") {
		cfg.Model = modelName
	}
	if flags.Changed("output") || cfg.Output == "" {
		cfg.Output = outputDir
	}
	if flags.Changed("N") {
		cfg.Settings.N = gridN
	}
	if flags.Changed("dx") {
		cfg.Settings.Dx = dx
	}
	if flags.Changed("dt") {
		cfg.Settings.Dt = dt
	}
	if flags.Changed("gamma") {
		cfg.Params[dynamo.ParamGamma] = gamma
	}
	if flags.Changed("const") {
		cfg.Params[dynamo.ParamConst] = reaction
	}
	if flags.Changed("timespan") {
		cfg.Timeset.TimeSpan = timeSpan
	}
	if flags.Changed("brank") {
		cfg.Timeset.Brank = brank
	}
	if flags.Changed("precision") {
		cfg.Timeset.Precision = precision
	}
	if flags.Changed("profile") {
		cfg.InitialData.Profile = profile
	}
	if flags.Changed("a0") {
		cfg.InitialData.A0 = a0
	}
	if flags.Changed("wn") {
		cfg.InitialData.Wn = wn
	}

	return cfg, cfg.Validate()
}

// signalContext cancels on interrupt so a run stops between steps and
// keeps the snapshots written so far.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

// recordedConfig rebuilds the configuration of the run stored in dir, so
// that resume continues it without repeating the original flags.
func recordedConfig(dir string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Output = dir
	meta, err := storage.New(dir).LoadMetadata()
	if errors.Is(err, storage.ErrNotFound) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg.Model = meta.Model
	cfg.Settings = config.SettingsConfig{N: meta.N, Dx: meta.Dx, Dt: meta.Dt}
	cfg.Params = make(map[string]float64, len(meta.Params))
	for k, v := range meta.Params {
		cfg.Params[k] = v
	}
	cfg.Timeset.InitTime = meta.InitTime
	cfg.Timeset.Precision = meta.Precision
	if meta.TimeSpan > 0 {
		cfg.Timeset.TimeSpan = meta.TimeSpan
	}
	if meta.Brank > 0 {
		cfg.Timeset.Brank = meta.Brank
	}
	return cfg, nil
}

func setupExperiment(cmd *cobra.Command, base *config.Config) (*experiment.Experiment, error) {
	cfg, err := resolveConfigFrom(cmd, base)
	if err != nil {
		return nil, err
	}

	st := storage.New(cfg.Output)
	if err := st.Init(); err != nil {
		return nil, err
	}

	exp := experiment.New(cfg, st)
	exp.SetLogger(logger)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return nil, err
	}
	if !quiet {
		exp.Stepper().AddObserver(viz.NewProgress(os.Stdout, exp.Timeset()))
	}
	return exp, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	exp, err := setupExperiment(cmd, config.DefaultConfig())
	if err != nil {
		return err
	}
	if _, err := exp.Prepare(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s into %s...\n", exp.Config().Model, exp.Config().Output)
	start := time.Now()
	result, err := exp.Run(ctx)
	if err != nil {
		reportPartial(result)
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Println(viz.Summary(exp.Config().Model, result.StepsTaken, len(result.Labels), result.Metrics))
	return nil
}

func resumeSimulation(cmd *cobra.Command, args []string) error {
	base, err := recordedConfig(outputDir)
	if err != nil {
		return err
	}
	exp, err := setupExperiment(cmd, base)
	if err != nil {
		return err
	}

	st := storage.New(exp.Config().Output)
	latest, err := st.Latest(dynamo.FieldU)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("resuming %s from t=%s\n", exp.Config().Model, latest)
	result, err := exp.Resume(ctx, latest)
	if err != nil {
		reportPartial(result)
		return err
	}
	fmt.Println(viz.Summary(exp.Config().Model, result.StepsTaken, len(result.Labels), result.Metrics))
	return nil
}

// reportPartial lists what a failed run left in the store.
func reportPartial(result *sim.Result) {
	if result == nil {
		return
	}
	fmt.Printf("completed steps before failure: %d\n", result.StepsTaken)
	if n := len(result.Labels); n > 0 {
		fmt.Printf("last snapshot kept: t=%s\n", result.Labels[n-1])
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	if scenario.Output == "" {
		scenario.Output = outputDir
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", scenario.Name, len(scenario.Steps))
	results, err := automation.RunScenario(ctx, scenario, experiment.NewRegistry(), logger)
	for _, r := range results {
		fmt.Println(viz.Summary(r.Name+" → "+r.Output, r.Result.StepsTaken, len(r.Result.Labels), r.Result.Metrics))
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunSweep(ctx, &automation.ParameterSweep{
		Base:      cfg,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	}, experiment.NewRegistry(), logger)
	if err != nil && len(results) == 0 {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSTATUS\tSTABILITY\tMEAN_RATE\n", sweepParam)
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = "failed"
			if errors.Is(r.Err, dynamo.ErrSolverDivergence) {
				status = "diverged"
			}
		}
		fmt.Fprintf(w, "%.6g\t%s\t%.3f\t%.6e\n", r.ParamValue, status, r.Metrics["stability"], r.Metrics["mean_rate"])
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runPerturb(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	results, err := automation.RunPerturbations(ctx, &automation.PerturbationConfig{
		Base:         cfg,
		Perturbation: amplitude,
		NumTrials:    trials,
		Seed:         seed,
	}, experiment.NewRegistry(), logger)
	if err != nil && len(results) == 0 {
		return err
	}

	stable, unstable := automation.PerturbationStats(results)
	fmt.Printf("trials: %d  %s %d  %s %d\n", len(results),
		viz.StatusOK.Render("stable"), stable, viz.StatusFailed.Render("unstable"), unstable)
	return err
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(gridRanges))
	ranges := make([][]float64, 0, len(gridRanges))
	for _, r := range gridRanges {
		name, values, err := optim.ParseRange(r)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}
	gs, err := optim.NewGridSearch(names, ranges)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	best, err := gs.Search(ctx, cfg, experiment.NewRegistry(), logger, metricName)
	if best != nil {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "PARAMS\t%s\tSTATUS\n", metricName)
		for _, o := range best.Outcomes {
			status := "ok"
			if o.Err != nil {
				status = o.Err.Error()
			}
			fmt.Fprintf(w, "%v\t%.6e\t%s\n", o.Params, o.Value, status)
		}
		if ferr := w.Flush(); ferr != nil {
			return ferr
		}
	}
	if err != nil {
		return err
	}
	fmt.Printf("best %v: %s=%s\n", best.Params, metricName, viz.MetricValue.Render(fmt.Sprintf("%.6e", best.Value)))
	return nil
}
