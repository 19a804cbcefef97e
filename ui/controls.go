package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/sim"
)

const (
	controlsWidth  = 300
	controlsHeight = 380
	sliderHeight   = 18
	rowSpacing     = 36
	buttonWidth    = 130
	buttonHeight   = 26
)

// ControlsPanel renders the parameter panel and reports changes as inputs.
type ControlsPanel struct {
	renderer *Renderer
	visible  bool
	bounds   rl.Rectangle

	// Particle slider position while dragging. Resizes fire on release.
	pendingN uint32
}

// NewControlsPanel creates a new controls panel.
func NewControlsPanel() *ControlsPanel {
	return &ControlsPanel{
		renderer: NewRenderer(),
		visible:  true,
	}
}

// Toggle switches panel visibility.
func (c *ControlsPanel) Toggle() bool {
	c.visible = !c.visible
	return c.visible
}

// IsVisible returns whether the panel is shown.
func (c *ControlsPanel) IsVisible() bool {
	return c.visible
}

// Contains reports whether a screen point is over the panel, so camera
// controls can ignore it.
func (c *ControlsPanel) Contains(p rl.Vector2) bool {
	return c.visible && rl.CheckCollisionPointRec(p, c.bounds)
}

// Draw renders the panel for the current parameters and returns the inputs
// the user produced this frame.
func (c *ControlsPanel) Draw(p sim.Params, screenW int32) []sim.Input {
	if !c.visible {
		return nil
	}

	r := c.renderer
	x := float32(screenW - controlsWidth - screenMargin)
	y := float32(screenMargin)
	c.bounds = rl.Rectangle{X: x, Y: y, Width: controlsWidth, Height: controlsHeight}
	r.DrawPanel(int32(x), int32(y), controlsWidth, controlsHeight)

	var inputs []sim.Input
	pad := float32(r.Theme.Padding)
	left := x + pad
	width := float32(controlsWidth) - pad*2 - 60
	y += pad

	rl.DrawText("Simulation", int32(left), int32(y), 16, rl.White)
	y += 24

	slider := func(label, format string, value, lo, hi float32) float32 {
		rl.DrawText(label, int32(left), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		v := gui.SliderBar(rl.Rectangle{X: left, Y: y + 14, Width: width, Height: sliderHeight}, "", "", value, lo, hi)
		rl.DrawText(fmt.Sprintf(format, value), int32(left+width+8), int32(y+16), r.Theme.FontSize, r.Theme.ValueColor)
		y += rowSpacing
		return v
	}

	if v := slider("Time step", "%.4f", p.DT, sim.MinDT, sim.MaxDT); v != p.DT {
		inputs = append(inputs, sim.Input{Kind: sim.SetDT, Value: v})
	}
	if v := slider("Gravity", "%.2f", p.G, sim.MinG, sim.MaxG); v != p.G {
		inputs = append(inputs, sim.Input{Kind: sim.SetG, Value: v})
	}
	if v := slider("Softening", "%.3f", p.Softening, sim.MinSoftening, sim.MaxSoftening); v != p.Softening {
		inputs = append(inputs, sim.Input{Kind: sim.SetSoftening, Value: v})
	}
	if v := slider("Damping", "%.4f", p.Damping, sim.MinDamping, sim.MaxDamping); v != p.Damping {
		inputs = append(inputs, sim.Input{Kind: sim.SetDamping, Value: v})
	}

	if c.pendingN == 0 {
		c.pendingN = p.N
	}
	maxN := max(p.MaxN, sim.ParticleStep)
	shown := c.pendingN
	v := slider("Particles", "%.0f", float32(shown), sim.ParticleStep, float32(maxN))
	if v != float32(shown) {
		c.pendingN = sim.QuantizeParticles(v, maxN)
	}
	if !rl.IsMouseButtonDown(rl.MouseButtonLeft) {
		if c.pendingN != p.N {
			inputs = append(inputs, sim.Input{Kind: sim.SetParticles, N: c.pendingN})
		}
		c.pendingN = 0
	}

	box := func(label string, checked bool) bool {
		changed := gui.CheckBox(rl.Rectangle{X: left, Y: y, Width: 16, Height: 16}, label, checked) != checked
		y += 24
		return changed
	}
	if box("Wrap at world edges", p.Wrap) {
		inputs = append(inputs, sim.Input{Kind: sim.ToggleWrap})
	}
	if box("Color by speed", p.ColorBySpeed) {
		inputs = append(inputs, sim.Input{Kind: sim.ToggleColorBySpeed})
	}
	y += 6

	pauseLabel := "Pause"
	if p.Paused {
		pauseLabel = "Run"
	}
	if gui.Button(rl.Rectangle{X: left, Y: y, Width: buttonWidth, Height: buttonHeight}, pauseLabel) {
		inputs = append(inputs, sim.Input{Kind: sim.TogglePause})
	}
	if !p.Paused {
		gui.Disable()
	}
	if gui.Button(rl.Rectangle{X: left + buttonWidth + 10, Y: y, Width: buttonWidth, Height: buttonHeight}, "Step") {
		inputs = append(inputs, sim.Input{Kind: sim.PressStep})
	}
	gui.Enable()
	y += buttonHeight + 8

	if gui.Button(rl.Rectangle{X: left, Y: y, Width: buttonWidth, Height: buttonHeight}, "Reset") {
		inputs = append(inputs, sim.Input{Kind: sim.PressReset})
	}
	if gui.Button(rl.Rectangle{X: left + buttonWidth + 10, Y: y, Width: buttonWidth, Height: buttonHeight}, "Reset params") {
		inputs = append(inputs, sim.Input{Kind: sim.PressResetParams})
	}

	return inputs
}
