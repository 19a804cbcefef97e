package main

import (
	"github.com/pthm-cable/galaxy/config"
)

// ParamSpec defines a single tunable galaxy parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all tunable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of tunable parameters, with
// defaults taken from base.
func NewParamVector(base config.GalaxyConfig) *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "velocity_scale", Path: "galaxy.velocity_scale", Min: 0.005, Max: 0.1, Default: base.VelocityScale},
			{Name: "epsilon", Path: "galaxy.epsilon", Min: 0.001, Max: 0.1, Default: base.Epsilon},
			{Name: "speed_noise", Path: "galaxy.speed_noise", Min: 0, Max: 0.3, Default: base.SpeedNoise},
			{Name: "radius", Path: "galaxy.radius", Min: 0.2, Max: 0.6, Default: base.Radius},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg. Order matches Specs.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Galaxy.VelocityScale = clamped[0]
	cfg.Galaxy.Epsilon = clamped[1]
	cfg.Galaxy.SpeedNoise = clamped[2]
	cfg.Galaxy.Radius = clamped[3]
}

// ExtractFromConfig extracts current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Galaxy.VelocityScale,
		cfg.Galaxy.Epsilon,
		cfg.Galaxy.SpeedNoise,
		cfg.Galaxy.Radius,
	}
}
