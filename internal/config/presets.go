package config

import "sort"

type Preset struct {
	Description string
	Frictions   []float64
	Forces      []float64
}

// Presets are the coefficient sets explored with the cube scenario. None of
// them is the definitive experiment; reference is only the default.
var Presets = map[string]Preset{
	"reference": {
		Description: "mixed coefficients from frictionless to sticking",
		Frictions:   []float64{0, 0.5, 1, 3, 100},
		Forces:      []float64{20},
	},
	"linear": {
		Description: "evenly spaced low coefficients",
		Frictions:   []float64{0, 1, 2, 3, 4},
		Forces:      []float64{20},
	},
	"coarse": {
		Description: "evenly spaced coefficients up to 100",
		Frictions:   []float64{0, 25, 50, 75, 100},
		Forces:      []float64{20},
	},
	"extreme": {
		Description: "evenly spaced coefficients up to 1000",
		Frictions:   []float64{0, 250, 500, 750, 1000},
		Forces:      []float64{20},
	},
	"gentle": {
		Description: "reference coefficients with a 10 N push",
		Frictions:   []float64{0, 0.5, 1, 3, 100},
		Forces:      []float64{10},
	},
}

// GetPreset returns the default configuration with the preset applied.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Apply(p)
	return cfg
}

// Apply replaces the coefficients and forces of c with those of p.
func (c *Config) Apply(p Preset) {
	c.Experiment.Frictions = append([]float64(nil), p.Frictions...)
	c.Experiment.Forces = append([]float64(nil), p.Forces...)
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
