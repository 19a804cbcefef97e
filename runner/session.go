// Package runner wires a controller to its telemetry. The windowed game and
// the headless loop both drive a Session once per frame.
package runner

import (
	"fmt"
	"log/slog"

	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/engine"
	"github.com/pthm-cable/galaxy/logging"
	"github.com/pthm-cable/galaxy/sim"
	"github.com/pthm-cable/galaxy/telemetry"
)

// Options configure a Session.
type Options struct {
	Seed           int64  // First galaxy seed; 0 means time based
	LogStats       bool   // Log window and perf stats via slog
	StatsWindowSec float64
	PerfWindow     int
	OutputDir      string             // Empty disables CSV output
	Metrics        *telemetry.Metrics // nil disables prometheus updates
}

// Session owns a controller and everything that observes it.
type Session struct {
	ctrl *engine.Controller

	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	output        *telemetry.OutputManager
	metrics       *telemetry.Metrics
	logStats      bool

	log *slog.Logger
}

// SeedSequence returns a SeedFunc that yields seed first and time based
// seeds afterwards. A zero seed is time based from the start.
func SeedSequence(seed int64) engine.SeedFunc {
	first := true
	return func() int64 {
		if first && seed != 0 {
			first = false
			return seed
		}
		first = false
		return sim.NewSeed()
	}
}

// NewSession wraps ctrl. cfg is written to the output directory when enabled.
func NewSession(ctrl *engine.Controller, cfg *config.Config, opts Options) (*Session, error) {
	out, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if cfg != nil {
		if err := out.WriteConfig(cfg); err != nil {
			out.Close()
			return nil, fmt.Errorf("writing config snapshot: %w", err)
		}
	}

	s := &Session{
		ctrl:          ctrl,
		collector:     telemetry.NewCollector(opts.StatsWindowSec),
		perfCollector: telemetry.NewPerfCollector(opts.PerfWindow),
		output:        out,
		metrics:       opts.Metrics,
		logStats:      opts.LogStats,
		log:           logging.For("runner"),
	}
	s.publishState()
	return s, nil
}

// Controller returns the wrapped controller.
func (s *Session) Controller() *engine.Controller { return s.ctrl }

// Perf returns the frame phase collector.
func (s *Session) Perf() *telemetry.PerfCollector { return s.perfCollector }

// SimTime returns simulated seconds since the session started.
func (s *Session) SimTime() float64 { return s.collector.SimTime() }

// Apply folds a frame's inputs through the reducer and hands the result to
// the controller. Controller errors are returned after being counted.
func (s *Session) Apply(inputs []sim.Input) error {
	if len(inputs) == 0 {
		return nil
	}
	p, action := sim.Reduce(s.ctrl.Params(), inputs)
	return s.Handle(p, action)
}

// Handle installs p and handles a, recording resets and resizes.
func (s *Session) Handle(p sim.Params, a sim.Action) error {
	if err := s.ctrl.Apply(p, a); err != nil {
		s.event("error")
		return err
	}
	switch {
	case a.Kind == sim.ActionReset:
		s.collector.RecordReset()
		s.event("reset")
	case a.Kind == sim.ActionParameterChanged && a.Change != sim.Same:
		s.collector.RecordResize()
		s.event("resize")
	case a.Kind == sim.ActionResetParameters:
		s.event("reset_params")
	}
	s.publishState()
	return nil
}

// Reload installs a new config as the reset-parameters baseline and galaxy
// shape, then resets the parameters to it.
func (s *Session) Reload(cfg *config.Config) error {
	s.ctrl.SetBase(sim.ParamsFromConfig(cfg))
	s.ctrl.SetShape(sim.ShapeFromConfig(cfg.Galaxy))
	s.log.Info("config reloaded")
	return s.Handle(s.ctrl.Params(), sim.ResetParamsAction)
}

// Frame runs one controller frame and feeds the step to telemetry.
func (s *Session) Frame() (engine.FrameResult, error) {
	res, err := s.ctrl.Frame()
	if err != nil {
		s.event("error")
		return res, err
	}
	if res.Stepped {
		s.collector.RecordStep(s.ctrl.Params().DT)
		if s.metrics != nil {
			s.metrics.Steps.Inc()
			s.metrics.Epoch.Set(float64(res.Epoch))
		}
	}
	return res, nil
}

// FlushTelemetry emits window stats once the stats window has elapsed.
// Reading particles back is a sync point, so it only happens at flush.
func (s *Session) FlushTelemetry() error {
	if !s.collector.ShouldFlush() {
		return nil
	}

	p := s.ctrl.Params()
	pos, vel, err := s.ctrl.Storage().Snapshot(s.ctrl.Marker(), p.N)
	if err != nil {
		return fmt.Errorf("telemetry snapshot: %w", err)
	}
	stats := s.collector.Flush(p.Epoch, p.N, s.ctrl.Storage().Capacity(), s.ctrl.Seed(),
		telemetry.ComputeParticleStats(pos, vel))
	perf := s.perfCollector.Stats()

	if s.logStats {
		s.log.Info("stats", "window", stats)
		s.log.Info("perf", "frame", perf)
	}
	s.metrics.ObserveWindow(stats)
	s.metrics.ObservePerf(perf)

	if err := s.output.WriteTelemetry(stats); err != nil {
		s.log.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WritePerf(perf, p.Epoch); err != nil {
		s.log.Error("failed to write perf", "error", err)
	}
	return nil
}

// Close flushes output files and releases the controller.
func (s *Session) Close() error {
	outErr := s.output.Close()
	if err := s.ctrl.Close(); err != nil {
		return err
	}
	return outErr
}

func (s *Session) event(kind string) {
	if s.metrics != nil {
		s.metrics.Events.WithLabelValues(kind).Inc()
	}
}

func (s *Session) publishState() {
	if s.metrics == nil {
		return
	}
	p := s.ctrl.Params()
	s.metrics.Particles.Set(float64(p.N))
	s.metrics.Capacity.Set(float64(s.ctrl.Storage().Capacity()))
	s.metrics.Epoch.Set(float64(p.Epoch))
}
