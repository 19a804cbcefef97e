package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/camera"
	"github.com/pthm-cable/galaxy/shaders"
	"github.com/pthm-cable/galaxy/sim"
)

// BackgroundRenderer renders a vignetted backdrop and the world boundary.
type BackgroundRenderer struct {
	shader        rl.Shader
	resolutionLoc int32
	baseColorLoc  int32

	baseColor   [3]float32
	boundsColor rl.Color
	initialized bool
}

// NewBackgroundRenderer creates a new background renderer.
func NewBackgroundRenderer(baseR, baseG, baseB uint8) *BackgroundRenderer {
	return &BackgroundRenderer{
		baseColor: [3]float32{
			float32(baseR) / 255.0,
			float32(baseG) / 255.0,
			float32(baseB) / 255.0,
		},
		boundsColor: rl.Color{R: 80, G: 90, B: 120, A: 120},
	}
}

// Init initializes the renderer (must be called after raylib window is created).
func (b *BackgroundRenderer) Init() {
	if b.initialized {
		return
	}

	b.shader = rl.LoadShaderFromMemory(shaders.BackdropVertex, shaders.BackdropFragment)
	b.resolutionLoc = rl.GetShaderLocation(b.shader, "resolution")
	b.baseColorLoc = rl.GetShaderLocation(b.shader, "baseColor")
	rl.SetShaderValue(b.shader, b.baseColorLoc, b.baseColor[:], rl.ShaderUniformVec3)

	b.initialized = true
}

// Draw renders the backdrop and, when wrapping is on, the world edges the
// particles wrap around.
func (b *BackgroundRenderer) Draw(cam *camera.Camera, world sim.Bounds, wrap bool) {
	if !b.initialized {
		b.Init()
	}

	w, h := float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight())
	rl.SetShaderValue(b.shader, b.resolutionLoc, []float32{w, h}, rl.ShaderUniformVec2)

	// Draw fullscreen quad
	rl.BeginShaderMode(b.shader)
	rl.DrawRectangle(0, 0, int32(w), int32(h), rl.White)
	rl.EndShaderMode()

	if !wrap {
		return
	}
	x0, y0 := cam.WorldToScreen(world.Min.X, world.Max.Y)
	x1, y1 := cam.WorldToScreen(world.Max.X, world.Min.Y)
	rl.DrawRectangleLinesEx(rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}, 1, b.boundsColor)
}

// Unload frees resources.
func (b *BackgroundRenderer) Unload() {
	if b.initialized {
		rl.UnloadShader(b.shader)
		b.initialized = false
	}
}
