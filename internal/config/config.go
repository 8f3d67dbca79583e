package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/frictionlab/internal/experiment"
	"github.com/san-kum/frictionlab/internal/urdf"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid")

const (
	DefaultDataDir  = ".frictionlab"
	DefaultLogLevel = "info"
	DefaultPause    = 5.0
)

type Config struct {
	World      experiment.WorldOptions `yaml:"world"`
	Experiment ExperimentConfig        `yaml:"experiment"`
	Storage    StorageConfig           `yaml:"storage"`
	Log        LogConfig               `yaml:"log"`
	GUI        GUIConfig               `yaml:"gui"`
}

type ExperimentConfig struct {
	Prefix    string    `yaml:"prefix"`
	Mass      float64   `yaml:"mass"`
	Edge      float64   `yaml:"edge"`
	Frictions []float64 `yaml:"frictions"`
	// Forces holds one magnitude per cube, or a single one shared by all.
	Forces []float64 `yaml:"forces"`
	// Colors are assigned in turn; an empty list uses the default palette.
	Colors        []urdf.RGBA `yaml:"colors,omitempty"`
	ForceDuration float64     `yaml:"force_duration"`
	SettleSteps   int         `yaml:"settle_steps"`
	Steps         int         `yaml:"steps"`
	Origin        [3]float64  `yaml:"origin,flow"`
	Spacing       [3]float64  `yaml:"spacing,flow"`
	ChunkSize     int         `yaml:"chunk_size"`
}

type StorageConfig struct {
	DataDir    string `yaml:"data_dir"`
	Trajectory bool   `yaml:"trajectory"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type GUIConfig struct {
	Enabled      bool    `yaml:"enabled"`
	PauseSeconds float64 `yaml:"pause_seconds"`
}

func DefaultConfig() *Config {
	ref := experiment.DefaultConfig()
	return &Config{
		World: experiment.DefaultWorldOptions(),
		Experiment: ExperimentConfig{
			Prefix:        ref.Prefix,
			Mass:          ref.Mass,
			Edge:          ref.Edge,
			Frictions:     append([]float64(nil), experiment.ReferenceFrictions...),
			Forces:        []float64{experiment.DefaultForce},
			ForceDuration: ref.ForceDuration,
			Steps:         ref.Steps,
			Origin:        ref.Origin,
			Spacing:       ref.Spacing,
			ChunkSize:     ref.ChunkSize,
		},
		Storage: StorageConfig{DataDir: DefaultDataDir},
		Log:     LogConfig{Level: DefaultLogLevel},
		GUI:     GUIConfig{PauseSeconds: DefaultPause},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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

func (c *Config) Validate() error {
	e := c.Experiment
	if len(e.Frictions) == 0 {
		return fmt.Errorf("%w: no friction coefficients", ErrInvalidConfig)
	}
	if len(e.Forces) != 1 && len(e.Forces) != len(e.Frictions) {
		return fmt.Errorf("%w: %d forces for %d cubes", ErrInvalidConfig, len(e.Forces), len(e.Frictions))
	}
	if c.GUI.PauseSeconds < 0 {
		return fmt.Errorf("%w: negative gui pause", ErrInvalidConfig)
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	exp, err := c.buildExperiment()
	if err != nil {
		return err
	}
	if err := exp.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// GetExperiment converts the file layout into a driver configuration.
func (c *Config) GetExperiment() (experiment.Config, error) {
	if err := c.Validate(); err != nil {
		return experiment.Config{}, err
	}
	return c.buildExperiment()
}

func (c *Config) buildExperiment() (experiment.Config, error) {
	e := c.Experiment
	exp := experiment.NewConfig(e.Frictions, 0)

	if e.Prefix != "" {
		exp.Prefix = e.Prefix
	}
	exp.Mass = e.Mass
	exp.Edge = e.Edge
	exp.ForceDuration = e.ForceDuration
	exp.SettleSteps = e.SettleSteps
	exp.Steps = e.Steps
	exp.Origin = mgl64.Vec3(e.Origin)
	exp.Spacing = mgl64.Vec3(e.Spacing)
	exp.ChunkSize = e.ChunkSize

	for i := range exp.Cubes {
		if len(e.Forces) == 1 {
			exp.Cubes[i].Force = e.Forces[0]
		} else if i < len(e.Forces) {
			exp.Cubes[i].Force = e.Forces[i]
		}
		if len(e.Colors) > 0 {
			exp.Cubes[i].Color = e.Colors[i%len(e.Colors)]
		}
	}

	if c.GUI.Enabled {
		exp.Pause = time.Duration(c.GUI.PauseSeconds * float64(time.Second))
	}
	return exp, nil
}
