// Package game is the windowed front end: it owns the GL device, renderers,
// camera and panels, and drives a runner.Session once per frame.
package game

import (
	"context"
	"fmt"
	"log/slog"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/camera"
	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/engine"
	"github.com/pthm-cable/galaxy/logging"
	"github.com/pthm-cable/galaxy/renderer"
	"github.com/pthm-cable/galaxy/runner"
	"github.com/pthm-cable/galaxy/sim"
	"github.com/pthm-cable/galaxy/telemetry"
	"github.com/pthm-cable/galaxy/ui"
)

// Game holds the complete windowed state. All methods run on the thread that
// owns the GL context.
type Game struct {
	session *runner.Session
	metrics *telemetry.Metrics

	// Rendering
	points     *renderer.PointRenderer
	background *renderer.BackgroundRenderer
	camera     *camera.Camera

	// UI
	hud      *ui.HUD
	controls *ui.ControlsPanel
	frames   *telemetry.FrameTimer
	title    string

	// Config reloads arrive from the watcher goroutine.
	reloads     chan *config.Config
	stopWatcher context.CancelFunc

	screenWidth, screenHeight float32

	log *slog.Logger
}

// NewGame builds the GL backend and the first galaxy. The raylib window must
// already be open.
func NewGame(cfg *config.Config, opts Options) (*Game, error) {
	log := logging.For("game")

	dev := renderer.NewDevice()
	kernel, err := renderer.NewComputeKernel(dev, int(cfg.Derived.WorkgroupSize))
	if err != nil {
		return nil, err
	}

	params := sim.ParamsFromConfig(cfg)
	shape := sim.ShapeFromConfig(cfg.Galaxy)
	ctrl, err := engine.New(dev, kernel, engine.Options{
		Params: &params,
		Shape:  &shape,
		Seeds:  runner.SeedSequence(opts.Seed),
	})
	if err != nil {
		kernel.Close()
		return nil, fmt.Errorf("starting controller: %w", err)
	}

	session, err := runner.NewSession(ctrl, cfg, opts.Options)
	if err != nil {
		ctrl.Close()
		return nil, err
	}

	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	world := params.World
	g := &Game{
		session:      session,
		metrics:      opts.Metrics,
		points:       renderer.NewPointRenderer(float32(cfg.Shader.PointSize)),
		background:   renderer.NewBackgroundRenderer(6, 8, 16),
		camera:       camera.New(w, h, world.Max.X-world.Min.X, world.Max.Y-world.Min.Y),
		hud:          ui.NewHUD(),
		controls:     ui.NewControlsPanel(),
		frames:       telemetry.NewFrameTimer(cfg.Telemetry.FrameTimeFrames),
		title:        cfg.Screen.Title,
		reloads:      make(chan *config.Config, 1),
		screenWidth:  w,
		screenHeight: h,
		log:          log,
	}

	if err := g.points.Init(); err != nil {
		session.Close()
		return nil, err
	}
	g.background.Init()

	if opts.ConfigPath != "" {
		g.watchConfig(opts.ConfigPath)
	}
	return g, nil
}

// watchConfig starts the file watcher. Reloads are applied on the next Update.
func (g *Game) watchConfig(path string) {
	ctx, cancel := context.WithCancel(context.Background())
	g.stopWatcher = cancel
	go func() {
		err := config.Watch(ctx, path, config.DefaultDebounce, func(cfg *config.Config, err error) {
			if err != nil {
				g.log.Warn("config reload failed, keeping current values", "path", path, "error", err)
				return
			}
			// Keep only the newest pending reload
			select {
			case <-g.reloads:
			default:
			}
			g.reloads <- cfg
		})
		if err != nil {
			g.log.Error("config watcher stopped", "error", err)
		}
	}()
}

// Update processes input and reloads, then runs one simulation frame. It
// reports whether a step was dispatched.
func (g *Game) Update() bool {
	perf := g.session.Perf()
	perf.StartFrame()
	g.frames.Tick()

	perf.StartPhase(telemetry.PhaseInput)
	inputs := g.handleInput()

	select {
	case cfg := <-g.reloads:
		config.Set(cfg)
		g.points.SetPointSize(float32(cfg.Shader.PointSize))
		if err := g.session.Reload(cfg); err != nil {
			g.log.Error("applying reloaded config", "error", err)
		}
	default:
	}

	g.apply(inputs)

	perf.StartPhase(telemetry.PhaseSimulate)
	res, err := g.session.Frame()
	if err != nil {
		g.log.Error("frame failed", "epoch", g.session.Controller().Epoch(), "error", err)
	}
	return res.Stepped
}

func (g *Game) apply(inputs []sim.Input) {
	if err := g.session.Apply(inputs); err != nil {
		g.log.Error("applying inputs", "error", err)
	}
}

// Draw renders the galaxy and panels, then records frame telemetry.
func (g *Game) Draw() {
	perf := g.session.Perf()
	ctrl := g.session.Controller()
	p := ctrl.Params()

	perf.StartPhase(telemetry.PhaseRender)
	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	g.background.Draw(g.camera, p.World, p.Wrap)
	if err := g.points.Draw(ctrl.Storage(), ctrl.Marker(), p, g.camera); err != nil {
		g.log.Error("drawing particles", "error", err)
	}

	perf.StartPhase(telemetry.PhaseUI)
	screenW, screenH := int32(g.screenWidth), int32(g.screenHeight)
	stats := perf.Stats()
	g.hud.Draw(ui.HUDData{
		Title:     g.title,
		Backend:   ctrl.Storage().Device().Name(),
		FPS:       g.frames.FPS(),
		FrameTime: g.frames.FrameTime(),
		Epoch:     ctrl.Epoch(),
		SimTime:   g.session.SimTime(),
		Particles: p.N,
		Capacity:  ctrl.Storage().Capacity(),
		Running:   ctrl.State() == engine.Running,
		Seed:      ctrl.Seed(),
		Wrap:      p.Wrap,
		Perf:      &stats,
	}, screenW, screenH)
	panelInputs := g.controls.Draw(p, screenW)
	g.hud.DrawControls(screenH, controlsLegend)
	rl.EndDrawing()

	// Panel widgets report while drawing; they take effect on the next step.
	g.apply(panelInputs)

	perf.StartPhase(telemetry.PhaseTelemetry)
	if err := g.session.FlushTelemetry(); err != nil {
		g.log.Error("flushing telemetry", "error", err)
	}
	perf.EndFrame()

	if g.metrics != nil {
		g.metrics.FrameSeconds.Observe(g.frames.FrameTime().Seconds())
	}
}

// Unload releases all resources.
func (g *Game) Unload() {
	if g.stopWatcher != nil {
		g.stopWatcher()
	}
	g.points.Unload()
	g.background.Unload()
	if err := g.session.Close(); err != nil {
		g.log.Error("closing session", "error", err)
	}
}
