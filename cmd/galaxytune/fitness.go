package main

import (
	"fmt"
	"math"
	"sync"

	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/runner"
	"github.com/pthm-cable/galaxy/telemetry"
)

// failedFitness is returned when a run cannot complete.
const failedFitness = 1e6

// Drift component weights.
const (
	weightRadius = 1.0
	weightEnergy = 0.5
	weightCenter = 2.0
)

// FitnessEvaluator runs headless simulations and scores how well the seeded
// discs keep their shape.
type FitnessEvaluator struct {
	params     *ParamVector
	steps      int
	particles  uint32
	seeds      []int64
	baseConfig *config.Config

	mu         sync.Mutex
	lastRadius float64 // mean radius drift from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, steps int, particles uint32, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:     params,
		steps:      steps,
		particles:  particles,
		seeds:      seeds,
		baseConfig: baseCfg,
	}
}

// LastRadiusDrift returns the mean radius drift from the most recent evaluation.
func (fe *FitnessEvaluator) LastRadiusDrift() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastRadius
}

// discDrift compares one disc before and after a run.
type discDrift struct {
	radius float64 // |rms_after/rms_before - 1|
	energy float64 // |ke_after/ke_before - 1|
	center float64 // centroid displacement in disc radii
}

func (d discDrift) fitness() float64 {
	return weightRadius*d.radius + weightEnergy*d.energy + weightCenter*d.center
}

// Evaluate computes fitness for a parameter vector (lower = better): the
// mean drift of both discs over all seeds.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([][2]discDrift, len(fe.seeds))
	errs := make([]error, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			results[idx], errs[idx] = fe.runSimulation(cfg, s)
		}(i, seed)
	}
	wg.Wait()

	var total, radius float64
	for i, r := range results {
		if errs[i] != nil {
			return failedFitness
		}
		for _, d := range r {
			if math.IsNaN(d.fitness()) || math.IsInf(d.fitness(), 0) {
				return failedFitness
			}
			total += d.fitness()
			radius += d.radius
		}
	}

	n := float64(2 * len(fe.seeds))
	fe.mu.Lock()
	fe.lastRadius = radius / n
	fe.mu.Unlock()
	return total / n
}

// runSimulation seeds one galaxy, steps it and measures both discs.
func (fe *FitnessEvaluator) runSimulation(cfg *config.Config, seed int64) ([2]discDrift, error) {
	var out [2]discDrift

	h, err := runner.NewHeadless(cfg, runner.Options{Seed: seed})
	if err != nil {
		return out, err
	}
	defer h.Close()

	before, err := discStats(h)
	if err != nil {
		return out, err
	}
	if err := h.Update(fe.steps); err != nil {
		return out, fmt.Errorf("seed %d: %w", seed, err)
	}
	after, err := discStats(h)
	if err != nil {
		return out, err
	}

	radius := cfg.Galaxy.Radius
	for i := range out {
		out[i] = discDrift{
			radius: math.Abs(ratio(after[i].RadiusRMS, before[i].RadiusRMS) - 1),
			energy: math.Abs(ratio(after[i].KineticEnergy, before[i].KineticEnergy) - 1),
			center: math.Hypot(after[i].CenterX-before[i].CenterX, after[i].CenterY-before[i].CenterY) / radius,
		}
	}
	return out, nil
}

// discStats reads the current region and splits it at the disc boundary.
func discStats(h *runner.Headless) ([2]telemetry.ParticleStats, error) {
	var out [2]telemetry.ParticleStats
	ctrl := h.Controller()
	n := ctrl.Params().N
	pos, vel, err := ctrl.Storage().Snapshot(ctrl.Marker(), n)
	if err != nil {
		return out, err
	}
	half := n / 2
	out[0] = telemetry.ComputeParticleStats(pos[:half], vel[:half])
	out[1] = telemetry.ComputeParticleStats(pos[half:], vel[half:])
	return out, nil
}

func ratio(a, b float64) float64 {
	if b == 0 {
		return math.Inf(1)
	}
	return a / b
}

// copyConfig returns a copy of the base config sized for a tuning run.
// Wrapping is disabled so escaping particles show up as drift.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Sim.Wrap = false
	cfg.Sim.StartPaused = false
	cfg.Sim.InitialParticles = int(fe.particles)
	cfg.Sim.MaxParticles = max(cfg.Sim.MaxParticles, int(fe.particles))
	cfg.Derived.InitialN = fe.particles
	cfg.Derived.MaxParticles = uint32(cfg.Sim.MaxParticles)
	return &cfg
}

// seedList returns n deterministic evaluation seeds.
func seedList(n int) []int64 {
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	return seeds
}
