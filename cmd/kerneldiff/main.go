// Kernel diff tool - steps the same galaxy on the GL compute kernel and on the
// CPU kernel and reports how far the two drift apart. Optionally renders the
// GL result to a PNG file for inspection.
//
// Usage: go run -tags opengl43 ./cmd/kerneldiff -n 4096 -steps 100 -out diff.png
package main

import (
	"flag"
	"fmt"
	"math"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"
	"gonum.org/v1/gonum/floats"

	"github.com/pthm-cable/galaxy/camera"
	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/engine"
	"github.com/pthm-cable/galaxy/gpu/host"
	"github.com/pthm-cable/galaxy/renderer"
	"github.com/pthm-cable/galaxy/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	n := flag.Uint("n", 4096, "Particle count")
	steps := flag.Int("steps", 100, "Steps to run on both kernels")
	seed := flag.Int64("seed", 1, "Galaxy seed")
	tolerance := flag.Float64("tolerance", 1e-3, "Max position deviation before failing")
	outPath := flag.String("out", "", "Render the GL result to this PNG (empty = skip)")
	width := flag.Int("width", 512, "Render width")
	height := flag.Int("height", 512, "Render height")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fail("loading config: %v", err)
	}
	params := sim.ParamsFromConfig(cfg)
	params.N = uint32(*n)
	params.MaxN = max(params.MaxN, params.N)
	params.Paused = false
	shape := sim.ShapeFromConfig(cfg.Galaxy)
	opts := engine.Options{
		Params: &params,
		Shape:  &shape,
		Seeds:  func() int64 { return *seed },
	}

	// Initialize raylib with hidden window
	rl.SetConfigFlags(rl.FlagWindowHidden)
	rl.InitWindow(int32(*width), int32(*height), "Kernel Diff")
	defer rl.CloseWindow()

	glDev := renderer.NewDevice()
	glKernel, err := renderer.NewComputeKernel(glDev, int(cfg.Derived.WorkgroupSize))
	if err != nil {
		fail("%v", err)
	}
	glCtrl, err := engine.New(glDev, glKernel, opts)
	if err != nil {
		fail("starting GL controller: %v", err)
	}
	defer glCtrl.Close()

	cpuDev := host.NewDevice()
	cpuCtrl, err := engine.New(cpuDev, host.NewKernel(cpuDev, cfg.Derived.WorkgroupSize), opts)
	if err != nil {
		fail("starting CPU controller: %v", err)
	}
	defer cpuCtrl.Close()

	for i := 0; i < *steps; i++ {
		if _, err := glCtrl.Frame(); err != nil {
			fail("GL step %d: %v", i, err)
		}
		if _, err := cpuCtrl.Frame(); err != nil {
			fail("CPU step %d: %v", i, err)
		}
	}

	glPos, glVel, err := snapshot(glCtrl)
	if err != nil {
		fail("reading GL buffers: %v", err)
	}
	cpuPos, cpuVel, err := snapshot(cpuCtrl)
	if err != nil {
		fail("reading CPU buffers: %v", err)
	}

	posDev := floats.Distance(glPos, cpuPos, math.Inf(1))
	velDev := floats.Distance(glVel, cpuVel, math.Inf(1))
	fmt.Printf("n=%d steps=%d workgroup=%d\n", params.N, *steps, cfg.Derived.WorkgroupSize)
	fmt.Printf("max position deviation: %.3g\n", posDev)
	fmt.Printf("max velocity deviation: %.3g\n", velDev)

	if *outPath != "" {
		if err := render(glCtrl, *outPath, *width, *height); err != nil {
			fail("%v", err)
		}
		fmt.Printf("GL result rendered to: %s (%dx%d)\n", *outPath, *width, *height)
	}

	if posDev > *tolerance {
		fmt.Fprintf(os.Stderr, "deviation %.3g exceeds tolerance %.3g\n", posDev, *tolerance)
		os.Exit(1)
	}
}

// snapshot reads the current region as flat float64 slices.
func snapshot(c *engine.Controller) (pos, vel []float64, err error) {
	p, v, err := c.Storage().Snapshot(c.Marker(), c.Params().N)
	if err != nil {
		return nil, nil, err
	}
	return flatten(p), flatten(v), nil
}

func flatten(vs []sim.Vec2) []float64 {
	out := make([]float64, 0, 2*len(vs))
	for _, v := range vs {
		out = append(out, float64(v.X), float64(v.Y))
	}
	return out
}

// render draws the controller's current region into a texture and exports it.
func render(c *engine.Controller, path string, width, height int) error {
	p := c.Params()
	world := p.World
	cam := camera.New(float32(width), float32(height), world.Max.X-world.Min.X, world.Max.Y-world.Min.Y)

	points := renderer.NewPointRenderer(1.5)
	if err := points.Init(); err != nil {
		return err
	}
	defer points.Unload()

	target := rl.LoadRenderTexture(int32(width), int32(height))
	defer rl.UnloadRenderTexture(target)

	rl.BeginTextureMode(target)
	rl.ClearBackground(rl.Black)
	err := points.Draw(c.Storage(), c.Marker(), p, cam)
	rl.EndTextureMode()
	if err != nil {
		return err
	}

	// Get image from texture and flip it (OpenGL convention)
	img := rl.LoadImageFromTexture(target.Texture)
	rl.ImageFlipVertical(img)
	ok := rl.ExportImage(*img, path)
	rl.UnloadImage(img)
	if !ok {
		return fmt.Errorf("exporting %s failed", path)
	}
	return nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
