package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/galaxy/config"
)

func TestParamVectorNormalizeRoundtrip(t *testing.T) {
	cfg, err := config.Defaults()
	require.NoError(t, err)
	pv := NewParamVector(cfg.Galaxy)

	def := pv.DefaultVector()
	assert.Equal(t, pv.ExtractFromConfig(cfg), def)
	assert.InDeltaSlice(t, def, pv.Denormalize(pv.Normalize(def)), 1e-12)

	for i, v := range pv.Normalize(def) {
		assert.GreaterOrEqual(t, v, 0.0, pv.Specs[i].Name)
		assert.LessOrEqual(t, v, 1.0, pv.Specs[i].Name)
	}
}

func TestParamVectorApplyClamps(t *testing.T) {
	cfg, err := config.Defaults()
	require.NoError(t, err)
	pv := NewParamVector(cfg.Galaxy)

	pv.ApplyToConfig(cfg, []float64{1, -1, 0.15, 0.4})
	assert.Equal(t, 0.1, cfg.Galaxy.VelocityScale)
	assert.Equal(t, 0.001, cfg.Galaxy.Epsilon)
	assert.Equal(t, 0.15, cfg.Galaxy.SpeedNoise)
	assert.Equal(t, 0.4, cfg.Galaxy.Radius)
}

func TestEvaluateScoresShortRun(t *testing.T) {
	cfg, err := config.Defaults()
	require.NoError(t, err)
	pv := NewParamVector(cfg.Galaxy)
	fe := NewFitnessEvaluator(pv, 3, 128, seedList(2), cfg)

	fitness := fe.Evaluate(pv.DefaultVector())
	assert.Less(t, fitness, failedFitness)
	assert.GreaterOrEqual(t, fitness, 0.0)
	assert.GreaterOrEqual(t, fe.LastRadiusDrift(), 0.0)
}

func TestCopyConfigLeavesBaseUntouched(t *testing.T) {
	cfg, err := config.Defaults()
	require.NoError(t, err)
	fe := NewFitnessEvaluator(NewParamVector(cfg.Galaxy), 1, 256, seedList(1), cfg)

	run := fe.copyConfig()
	assert.False(t, run.Sim.Wrap)
	assert.Equal(t, uint32(256), run.Derived.InitialN)
	assert.True(t, cfg.Sim.Wrap)
	assert.NotEqual(t, uint32(256), cfg.Derived.InitialN)
}
