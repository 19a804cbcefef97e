// Galaxy preview tool - interactive seeding preview with sliders.
//
// Usage: go run ./cmd/galaxypreview
package main

import (
	"fmt"
	"image/color"
	"math"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/sim"
)

const (
	windowWidth  = 1000
	windowHeight = 720
	previewSize  = 512
	panelWidth   = windowWidth - previewSize - 30
	worldHalf    = 1.0
)

// PreviewParams holds the seeding parameters being tuned.
type PreviewParams struct {
	N             int
	Seed          int64
	Offset        float32
	Radius        float32
	VelocityScale float32
	SpeedNoise    float32
	ShowVelocity  bool
}

func defaults(g config.GalaxyConfig) PreviewParams {
	return PreviewParams{
		N:             20000,
		Seed:          12345,
		Offset:        float32(g.Offset),
		Radius:        float32(g.Radius),
		VelocityScale: float32(g.VelocityScale),
		SpeedNoise:    float32(g.SpeedNoise),
	}
}

func main() {
	cfg, err := config.Defaults()
	if err != nil {
		panic(err)
	}

	rl.InitWindow(windowWidth, windowHeight, "Galaxy Preview")
	defer rl.CloseWindow()
	rl.SetTargetFPS(30)

	params := defaults(cfg.Galaxy)

	img := rl.GenImageColor(previewSize, previewSize, rl.Black)
	texture := rl.LoadTextureFromImage(img)
	rl.UnloadImage(img)
	defer rl.UnloadTexture(texture)

	pixels := make([]color.RGBA, previewSize*previewSize)
	var galaxy sim.Galaxy
	needsRegen := true

	for !rl.WindowShouldClose() {
		if needsRegen {
			galaxy = generate(cfg.Galaxy, params)
			drawGalaxy(pixels, galaxy, params.ShowVelocity)
			rl.UpdateTexture(texture, pixels)
			needsRegen = false
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.RayWhite)

		rl.DrawTexture(texture, 10, 10, rl.White)
		rl.DrawRectangleLines(10, 10, previewSize, previewSize, rl.DarkGray)

		var maxSpeed float32
		for _, v := range galaxy.Velocities {
			maxSpeed = max(maxSpeed, v.X*v.X+v.Y*v.Y)
		}
		statsY := int32(previewSize + 25)
		rl.DrawText(fmt.Sprintf("Particles: %d  Seed: %d", galaxy.Len(), params.Seed), 15, statsY, 16, rl.DarkGray)
		rl.DrawText(fmt.Sprintf("Max speed: %.4f", sqrt(maxSpeed)), 15, statsY+20, 16, rl.DarkGray)

		// Control panel
		panelX := float32(previewSize + 20)
		panelY := float32(10)

		rl.DrawText("Galaxy Parameters", int32(panelX), int32(panelY), 20, rl.DarkGray)
		panelY += 35

		slider := func(label, format string, value, lo, hi float32) float32 {
			rl.DrawText(label, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 18
			v := gui.SliderBar(
				rl.Rectangle{X: panelX, Y: panelY, Width: float32(panelWidth - 80), Height: 20},
				"", "",
				value, lo, hi,
			)
			rl.DrawText(fmt.Sprintf(format, value), int32(panelX+float32(panelWidth-70)), int32(panelY+2), 16, rl.DarkGray)
			panelY += 35
			return v
		}

		if v := slider("Particles", "%.0f", float32(params.N), 1000, 200000); int(v)/1000*1000 != params.N {
			params.N = max(int(v)/1000*1000, 1000)
			needsRegen = true
		}
		if v := slider("Disc offset", "%.2f", params.Offset, 0, 0.9); v != params.Offset {
			params.Offset = v
			needsRegen = true
		}
		if v := slider("Disc radius", "%.2f", params.Radius, 0.05, 1.0); v != params.Radius {
			params.Radius = v
			needsRegen = true
		}
		if v := slider("Velocity scale", "%.3f", params.VelocityScale, 0, 0.2); v != params.VelocityScale {
			params.VelocityScale = v
			needsRegen = true
		}
		if v := slider("Speed noise", "%.2f", params.SpeedNoise, 0, 0.5); v != params.SpeedNoise {
			params.SpeedNoise = v
			needsRegen = true
		}

		if show := gui.CheckBox(rl.Rectangle{X: panelX, Y: panelY, Width: 16, Height: 16}, "Color by speed", params.ShowVelocity); show != params.ShowVelocity {
			params.ShowVelocity = show
			needsRegen = true
		}
		panelY += 35

		if gui.Button(rl.Rectangle{X: panelX, Y: panelY, Width: 120, Height: 30}, "Random Seed") {
			params.Seed = sim.NewSeed()
			needsRegen = true
		}
		if gui.Button(rl.Rectangle{X: panelX + 130, Y: panelY, Width: 120, Height: 30}, "Reset All") {
			params = defaults(cfg.Galaxy)
			needsRegen = true
		}
		panelY += 55

		rl.DrawText("YAML Config:", int32(panelX), int32(panelY), 16, rl.DarkGray)
		panelY += 25
		for _, line := range yamlLines(params) {
			rl.DrawText(line, int32(panelX), int32(panelY), 14, rl.Gray)
			panelY += 16
		}

		rl.DrawText("Press C to copy YAML to clipboard", int32(panelX), int32(windowHeight-30), 12, rl.LightGray)
		if rl.IsKeyPressed(rl.KeyC) {
			var yaml string
			for _, line := range yamlLines(params) {
				yaml += line + "\n"
			}
			rl.SetClipboardText(yaml)
		}

		rl.EndDrawing()
	}
}

func yamlLines(p PreviewParams) []string {
	return []string{
		"galaxy:",
		fmt.Sprintf("  offset: %.2f", p.Offset),
		fmt.Sprintf("  radius: %.2f", p.Radius),
		fmt.Sprintf("  velocity_scale: %.3f", p.VelocityScale),
		fmt.Sprintf("  speed_noise: %.2f", p.SpeedNoise),
	}
}

func generate(base config.GalaxyConfig, p PreviewParams) sim.Galaxy {
	base.Offset = float64(p.Offset)
	base.Radius = float64(p.Radius)
	base.VelocityScale = float64(p.VelocityScale)
	base.SpeedNoise = float64(p.SpeedNoise)
	return sim.ShapeFromConfig(base).Generate(uint32(p.N), p.Seed)
}

// drawGalaxy plots every particle into the pixel buffer, additively so dense
// cores saturate.
func drawGalaxy(pixels []color.RGBA, g sim.Galaxy, bySpeed bool) {
	for i := range pixels {
		pixels[i] = color.RGBA{A: 255}
	}
	var maxSpeed float32
	if bySpeed {
		for _, v := range g.Velocities {
			maxSpeed = max(maxSpeed, sqrt(v.X*v.X+v.Y*v.Y))
		}
	}
	for i, p := range g.Positions {
		x := int((p.X + worldHalf) / (2 * worldHalf) * previewSize)
		y := int((worldHalf - p.Y) / (2 * worldHalf) * previewSize)
		if x < 0 || x >= previewSize || y < 0 || y >= previewSize {
			continue
		}
		c := g.Colors[i]
		if bySpeed && maxSpeed > 0 {
			v := g.Velocities[i]
			t := sqrt(v.X*v.X+v.Y*v.Y) / maxSpeed
			c = sim.Vec4{R: t, G: 0.3, B: 1 - t, A: 1}
		}
		px := &pixels[y*previewSize+x]
		px.R = addChannel(px.R, c.R)
		px.G = addChannel(px.G, c.G)
		px.B = addChannel(px.B, c.B)
	}
}

func addChannel(dst uint8, v float32) uint8 {
	sum := int(dst) + int(v*96)
	if sum > 255 {
		return 255
	}
	return uint8(sum)
}

func sqrt(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
