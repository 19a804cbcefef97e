package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title     string
	Backend   string
	FPS       float64
	FrameTime time.Duration
	Epoch     uint32
	SimTime   float64
	Particles uint32
	Capacity  uint32
	Running   bool
	Seed      int64
	Wrap      bool
	Perf      *telemetry.PerfStats // nil hides the perf section
}

func hud(data any) HUDData { return data.(HUDData) }

// hudPanel describes the status panel. Fields read from HUDData.
var hudPanel = PanelDescriptor{
	ID:     "hud",
	Width:  240,
	Anchor: AnchorTopLeft,
	Sections: []SectionDescriptor{
		{
			ID: "status",
			Fields: []FieldDescriptor{
				{ID: "fps", Label: "FPS", Widget: WidgetText, TextGetter: func(d any) string {
					h := hud(d)
					return fmt.Sprintf("%.0f (%.2f ms)", h.FPS, float64(h.FrameTime.Microseconds())/1000)
				}},
				{ID: "state", Label: "State", Widget: WidgetText, TextGetter: func(d any) string {
					if hud(d).Running {
						return "running"
					}
					return "PAUSED"
				}, Color: rl.Yellow},
				{ID: "epoch", Label: "Epoch", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", hud(d).Epoch)
				}},
				{ID: "simtime", Label: "Sim time", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%.2f s", hud(d).SimTime)
				}},
				{ID: "seed", Label: "Seed", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", hud(d).Seed)
				}},
				{ID: "wrap", Label: "Edges", Widget: WidgetText, TextGetter: func(d any) string {
					if hud(d).Wrap {
						return "wrap"
					}
					return "open"
				}},
			},
		},
		{
			ID:    "buffers",
			Title: "Buffers",
			Fields: []FieldDescriptor{
				{ID: "backend", Label: "Backend", Widget: WidgetText, TextGetter: func(d any) string {
					return hud(d).Backend
				}},
				{ID: "particles", Label: "Particles", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", hud(d).Particles)
				}},
				{ID: "capacity", Label: "Capacity", Widget: WidgetText, TextGetter: func(d any) string {
					return fmt.Sprintf("%d", hud(d).Capacity)
				}},
				{ID: "usage", Label: "Used", Widget: WidgetBar, Getter: func(d any) float32 {
					h := hud(d)
					if h.Capacity == 0 {
						return 0
					}
					return float32(h.Particles) / float32(h.Capacity)
				}},
			},
		},
		{
			ID:      "perf",
			Title:   "Frame",
			Visible: func(d any) bool { return hud(d).Perf != nil },
			Fields:  perfFields(),
		},
	},
}

func perfFields() []FieldDescriptor {
	phases := []string{
		telemetry.PhaseInput,
		telemetry.PhaseSimulate,
		telemetry.PhaseRender,
		telemetry.PhaseUI,
		telemetry.PhaseTelemetry,
	}
	fields := make([]FieldDescriptor, 0, len(phases))
	for _, phase := range phases {
		fields = append(fields, FieldDescriptor{
			ID:     "perf_" + phase,
			Label:  phase,
			Widget: WidgetText,
			TextGetter: func(d any) string {
				p := hud(d).Perf
				return fmt.Sprintf("%6s %5.1f%%", p.PhaseAvg[phase].Round(time.Microsecond), p.PhasePct[phase])
			},
		})
	}
	return fields
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
	visible  bool
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
		visible:  true,
	}
}

// Toggle switches HUD visibility.
func (h *HUD) Toggle() bool {
	h.visible = !h.visible
	return h.visible
}

// IsVisible returns whether the HUD is shown.
func (h *HUD) IsVisible() bool {
	return h.visible
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData, screenW, screenH int32) {
	if !h.visible {
		return
	}
	panel := hudPanel
	panel.Title = data.Title
	h.renderer.DrawPanelDescriptor(panel, data, screenW, screenH)
}

// DrawControls renders the key legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	if !h.visible {
		return
	}
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
