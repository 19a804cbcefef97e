package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/sim"
)

// keyBindings maps pressed keys to simulation inputs.
var keyBindings = []struct {
	key  int32
	kind sim.InputKind
}{
	{rl.KeySpace, sim.TogglePause},
	{rl.KeyS, sim.PressStep},
	{rl.KeyR, sim.PressReset},
	{rl.KeyBackspace, sim.PressResetParams},
	{rl.KeyC, sim.ToggleColorBySpeed},
	{rl.KeyW, sim.ToggleWrap},
}

// handleInput processes keyboard input and returns the simulation inputs it
// produced. Window and camera controls are applied directly.
func (g *Game) handleInput() []sim.Input {
	g.handleResize()

	if rl.IsKeyPressed(rl.KeyF11) {
		rl.ToggleFullscreen()
	}

	if rl.IsKeyPressed(rl.KeyH) {
		g.hud.Toggle()
		g.controls.Toggle()
	}

	var inputs []sim.Input
	for _, b := range keyBindings {
		if rl.IsKeyPressed(b.key) {
			inputs = append(inputs, sim.Input{Kind: b.kind})
		}
	}

	g.handleCameraInput()
	return inputs
}

// handleResize checks for window resize and propagates new dimensions.
func (g *Game) handleResize() {
	if !rl.IsWindowResized() {
		return
	}
	w := float32(rl.GetScreenWidth())
	h := float32(rl.GetScreenHeight())
	if w == g.screenWidth && h == g.screenHeight {
		return
	}
	g.screenWidth = w
	g.screenHeight = h
	g.camera.Resize(w, h)
}

// handleCameraInput processes camera pan/zoom controls.
func (g *Game) handleCameraInput() {
	// Pan in screen pixels so the speed feels the same at any zoom
	const panSpeed = 8

	if rl.IsKeyDown(rl.KeyRight) {
		g.camera.Pan(panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyLeft) {
		g.camera.Pan(-panSpeed, 0)
	}
	if rl.IsKeyDown(rl.KeyDown) {
		g.camera.Pan(0, panSpeed)
	}
	if rl.IsKeyDown(rl.KeyUp) {
		g.camera.Pan(0, -panSpeed)
	}

	// Zoom toward the cursor unless it is over a panel
	mouse := rl.GetMousePosition()
	if wheel := rl.GetMouseWheelMove(); wheel != 0 && !g.controls.Contains(mouse) {
		g.camera.ZoomAt(1+wheel*0.1, mouse.X, mouse.Y)
	}

	if rl.IsKeyPressed(rl.KeyEqual) || rl.IsKeyPressed(rl.KeyKpAdd) {
		g.camera.ZoomBy(1.25)
	}
	if rl.IsKeyPressed(rl.KeyMinus) || rl.IsKeyPressed(rl.KeyKpSubtract) {
		g.camera.ZoomBy(0.8)
	}

	if rl.IsKeyPressed(rl.KeyHome) {
		g.camera.Reset()
	}
}
