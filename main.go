package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/game"
	"github.com/pthm-cable/galaxy/logging"
	"github.com/pthm-cable/galaxy/runner"
	"github.com/pthm-cable/galaxy/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run on the CPU backend without a window")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in simulated seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "First galaxy seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N steps (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 1, "Steps per update call in headless mode")
	metricsAddr := flag.String("metrics-addr", "", "Serve prometheus metrics on this address (empty = use config)")
	watch := flag.Bool("watch", true, "Reload the config file when it changes")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	logging.Setup(logging.Options{Format: cfg.Log.Format, Spec: cfg.Log.Level})

	// Use config stats window if not overridden by CLI
	statsWindowSec := cfg.Telemetry.StatsWindow
	if *statsWindow > 0 {
		statsWindowSec = *statsWindow
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var metrics *telemetry.Metrics
	addr := cfg.Telemetry.MetricsAddr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		metrics = telemetry.NewMetrics()
		go func() {
			if err := metrics.Serve(ctx, addr); err != nil {
				slog.Error("metrics endpoint failed", "addr", addr, "error", err)
			}
		}()
	}

	opts := runner.Options{
		Seed:           *seed,
		LogStats:       *logStats,
		StatsWindowSec: statsWindowSec,
		PerfWindow:     cfg.Telemetry.PerfWindow,
		OutputDir:      *outputDir,
		Metrics:        metrics,
	}

	if *headless {
		// Headless mode - CPU kernel, no raylib window needed
		h, err := runner.NewHeadless(cfg, opts)
		if err != nil {
			slog.Error("failed to start headless simulation", "error", err)
			os.Exit(1)
		}
		defer h.Close()

		if err := h.Run(ctx, *maxTicks, *stepsPerUpdate); err != nil {
			slog.Error("headless simulation failed", "steps", h.Steps(), "error", err)
			os.Exit(1)
		}
		return
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), cfg.Screen.Title)
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	gameOpts := game.Options{Options: opts}
	if *watch {
		gameOpts.ConfigPath = *configPath
	}
	g, err := game.NewGame(cfg, gameOpts)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer g.Unload()

	steps := 0
	for !rl.WindowShouldClose() && ctx.Err() == nil {
		if g.Update() {
			steps++
		}
		g.Draw()

		if *maxTicks > 0 && steps >= *maxTicks {
			slog.Info("max ticks reached", "steps", steps)
			break
		}
	}
}
