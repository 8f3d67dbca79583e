package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/san-kum/frictionlab/internal/urdf"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.World.Backend != "sandbox" {
		t.Errorf("expected sandbox backend, got %s", cfg.World.Backend)
	}
	if cfg.GUI.Enabled {
		t.Error("gui should be off by default")
	}

	exp, err := cfg.GetExperiment()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(experiment.DefaultConfig(), exp); diff != "" {
		t.Errorf("experiment config mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frictionlab.yaml")

	cfg := GetPreset("extreme")
	cfg.Experiment.Colors = []urdf.RGBA{urdf.Blue, {0.25, 0.5, 0.75, 1}}
	cfg.Log.Level = "debug"
	cfg.World.Integrator = "euler"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGetExperiment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Experiment.Frictions = []float64{0, 1, 2}
	cfg.Experiment.Forces = []float64{5, 10, 15}
	cfg.Experiment.Colors = []urdf.RGBA{urdf.White}
	cfg.GUI.Enabled = true
	cfg.GUI.PauseSeconds = 0.5

	exp, err := cfg.GetExperiment()
	if err != nil {
		t.Fatal(err)
	}

	if len(exp.Cubes) != 3 {
		t.Fatalf("expected 3 cubes, got %d", len(exp.Cubes))
	}
	for i, c := range exp.Cubes {
		if c.Force != float64(5*(i+1)) {
			t.Errorf("cube %d force = %v", i, c.Force)
		}
		if c.Color != urdf.White {
			t.Errorf("cube %d color = %v", i, c.Color)
		}
	}
	if exp.Pause != 500*time.Millisecond {
		t.Errorf("pause = %v, want 500ms", exp.Pause)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no frictions", func(c *Config) { c.Experiment.Frictions = nil }},
		{"force count", func(c *Config) { c.Experiment.Forces = []float64{1, 2} }},
		{"negative friction", func(c *Config) { c.Experiment.Frictions[0] = -1 }},
		{"zero edge", func(c *Config) { c.Experiment.Edge = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"negative pause", func(c *Config) { c.GUI.PauseSeconds = -1 }},
		{"negative steps", func(c *Config) { c.Experiment.Steps = -10 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("coarse")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if diff := cmp.Diff([]float64{0, 25, 50, 75, 100}, cfg.Experiment.Frictions); diff != "" {
		t.Errorf("frictions mismatch (-want +got):\n%s", diff)
	}

	cfg.Experiment.Frictions[0] = 42
	if Presets["coarse"].Frictions[0] != 0 {
		t.Error("preset mutated through returned config")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	want := []string{"coarse", "extreme", "gentle", "linear", "reference"}
	if diff := cmp.Diff(want, ListPresets()); diff != "" {
		t.Errorf("presets mismatch (-want +got):\n%s", diff)
	}
	for _, name := range want {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s invalid: %v", name, err)
		}
	}
}
