package runner

import (
	"context"
	"fmt"

	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/engine"
	"github.com/pthm-cable/galaxy/gpu/host"
	"github.com/pthm-cable/galaxy/sim"
	"github.com/pthm-cable/galaxy/telemetry"
)

// Headless runs the simulation on the host backend without a window.
type Headless struct {
	*Session
	steps int
}

// NewHeadless builds a running (never paused) session from cfg on a host
// device.
func NewHeadless(cfg *config.Config, opts Options) (*Headless, error) {
	dev := host.NewDevice()
	kernel := host.NewKernel(dev, cfg.Derived.WorkgroupSize)

	params := sim.ParamsFromConfig(cfg)
	base := params
	params.Paused = false
	shape := sim.ShapeFromConfig(cfg.Galaxy)

	ctrl, err := engine.New(dev, kernel, engine.Options{
		Params: &params,
		Base:   &base,
		Shape:  &shape,
		Seeds:  SeedSequence(opts.Seed),
	})
	if err != nil {
		kernel.Close()
		return nil, fmt.Errorf("starting headless controller: %w", err)
	}

	s, err := NewSession(ctrl, cfg, opts)
	if err != nil {
		ctrl.Close()
		return nil, err
	}
	return &Headless{Session: s}, nil
}

// Steps returns the number of steps run so far.
func (h *Headless) Steps() int { return h.steps }

// Update runs stepsPerUpdate frames.
func (h *Headless) Update(stepsPerUpdate int) error {
	for i := 0; i < max(stepsPerUpdate, 1); i++ {
		perf := h.Perf()
		perf.StartFrame()

		perf.StartPhase(telemetry.PhaseSimulate)
		res, err := h.Frame()
		if err != nil {
			return err
		}
		if res.Stepped {
			h.steps++
		}

		perf.StartPhase(telemetry.PhaseTelemetry)
		if err := h.FlushTelemetry(); err != nil {
			return err
		}
		perf.EndFrame()
	}
	return nil
}

// Run updates until ctx is done or maxSteps steps have run (0 = unlimited).
func (h *Headless) Run(ctx context.Context, maxSteps, stepsPerUpdate int) error {
	h.log.Info("starting headless simulation",
		"n", h.ctrl.Params().N,
		"seed", h.ctrl.Seed(),
		"max_steps", maxSteps,
		"steps_per_update", stepsPerUpdate,
	)
	for {
		if err := ctx.Err(); err != nil {
			h.log.Info("headless simulation interrupted", "steps", h.steps)
			return nil
		}
		if err := h.Update(stepsPerUpdate); err != nil {
			return err
		}
		if maxSteps > 0 && h.steps >= maxSteps {
			h.log.Info("max steps reached", "steps", h.steps)
			return nil
		}
	}
}
