package main

import (
	"fmt"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/dvdm/internal/config"
	"github.com/san-kum/dvdm/internal/dynamo"
	"github.com/san-kum/dvdm/internal/physics"
	"github.com/san-kum/dvdm/internal/storage"
)

func newRunCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	preset, configFile = "", ""
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatal(err)
	}
	return cmd
}

func TestResolveConfigDefaults(t *testing.T) {
	cfg, err := resolveConfig(newRunCmd(t))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != config.DefaultModel || cfg.Settings.N != config.DefaultN {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestResolveConfigFlagsOverridePreset(t *testing.T) {
	cmd := newRunCmd(t, "--model", "heat-neumann", "--preset", "cosine", "--gamma", "3", "--timespan", "7")
	cfg, err := resolveConfig(cmd)
	if err != nil {
		t.Fatal(err)
	}
	want := config.GetPreset("heat-neumann", "cosine")
	if cfg.Settings != want.Settings {
		t.Errorf("preset settings lost: %+v", cfg.Settings)
	}
	if cfg.Params[dynamo.ParamGamma] != 3 || cfg.Timeset.TimeSpan != 7 {
		t.Errorf("flags not applied: %v %d", cfg.Params, cfg.Timeset.TimeSpan)
	}
}

func TestResolveConfigUnknownPreset(t *testing.T) {
	if _, err := resolveConfig(newRunCmd(t, "--preset", "nope")); err == nil {
		t.Error("expected error for unknown preset")
	}
}

func TestRecordedConfigSeedsResume(t *testing.T) {
	dir := t.TempDir()
	err := storage.New(dir).SaveMetadata(&storage.RunMetadata{
		Model:     physics.ModelHeatReaction,
		N:         12,
		Dx:        0.25,
		Dt:        0.1,
		Precision: 2,
		TimeSpan:  5,
		Brank:     2,
		Params:    map[string]float64{dynamo.ParamGamma: 1, dynamo.ParamConst: 0.5},
	})
	if err != nil {
		t.Fatal(err)
	}

	base, err := recordedConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := resolveConfigFrom(newRunCmd(t, "--timespan", "9"), base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != physics.ModelHeatReaction || cfg.Settings.N != 12 || cfg.Settings.Dt != 0.1 {
		t.Errorf("recorded settings not used: %s %+v", cfg.Model, cfg.Settings)
	}
	if cfg.Params[dynamo.ParamGamma] != 1 || cfg.Timeset.Precision != 2 || cfg.Timeset.Brank != 2 {
		t.Errorf("recorded params or timeset not used: %v %+v", cfg.Params, cfg.Timeset)
	}
	if cfg.Timeset.TimeSpan != 9 || cfg.Output != dir {
		t.Errorf("expected timespan 9 in %s, got %d in %s", dir, cfg.Timeset.TimeSpan, cfg.Output)
	}

	// Explicit flags still win, and the experiment rejects the mismatch.
	cfg, err = resolveConfigFrom(newRunCmd(t, "--gamma", "3"), base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Params[dynamo.ParamGamma] != 3 {
		t.Errorf("expected --gamma to override, got %v", cfg.Params)
	}
}

func TestRecordedConfigWithoutMetadata(t *testing.T) {
	dir := t.TempDir()
	cfg, err := recordedConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != config.DefaultModel || cfg.Output != dir {
		t.Errorf("expected defaults in %s, got %s in %s", dir, cfg.Model, cfg.Output)
	}
}

func TestSample(t *testing.T) {
	labels := []string{"0", "1", "2", "3", "4", "5", "6", "7", "8"}
	tests := []struct {
		n    int
		want string
	}{
		{3, "[0 4 8]"},
		{5, "[0 2 4 6 8]"},
		{20, fmt.Sprint(labels)},
		{1, fmt.Sprint(labels)},
	}
	for _, tt := range tests {
		if got := fmt.Sprint(sample(labels, tt.n)); got != tt.want {
			t.Errorf("sample(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}
