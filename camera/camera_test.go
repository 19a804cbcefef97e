package camera

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-3
}

func TestNew(t *testing.T) {
	cam := New(1280, 800, 2, 2)

	if cam.X != 0 || cam.Y != 0 {
		t.Errorf("expected camera at origin, got (%f, %f)", cam.X, cam.Y)
	}
	if cam.Zoom != 1.0 {
		t.Errorf("expected zoom 1.0, got %f", cam.Zoom)
	}
	// The limiting axis is the height: 800px over 2 units.
	if got := cam.PixelsPerUnit(); got != 400 {
		t.Errorf("expected 400 px/unit, got %f", got)
	}
}

func TestWorldToScreenCentered(t *testing.T) {
	cam := New(1280, 800, 2, 2)

	sx, sy := cam.WorldToScreen(0, 0)
	if !near(sx, 640) || !near(sy, 400) {
		t.Errorf("expected screen center (640, 400), got (%f, %f)", sx, sy)
	}

	// +Y in world is up on screen.
	_, sy = cam.WorldToScreen(0, 1)
	if !near(sy, 0) {
		t.Errorf("expected world top edge at screen y=0, got %f", sy)
	}
}

func TestScreenToWorldRoundtrip(t *testing.T) {
	cam := New(1280, 800, 2, 2)
	cam.SetZoom(2.5)
	cam.Pan(37, -12)

	testCases := []struct{ sx, sy float32 }{
		{640, 400},  // center
		{100, 100},  // top-left
		{1200, 700}, // near bottom-right
	}

	for _, tc := range testCases {
		wx, wy := cam.ScreenToWorld(tc.sx, tc.sy)
		sx, sy := cam.WorldToScreen(wx, wy)
		if !near(sx, tc.sx) || !near(sy, tc.sy) {
			t.Errorf("roundtrip failed: (%f,%f) -> (%f,%f) -> (%f,%f)",
				tc.sx, tc.sy, wx, wy, sx, sy)
		}
	}
}

func TestPan(t *testing.T) {
	cam := New(800, 800, 2, 2)

	// 400 px/unit, so 200px right moves the center half a unit.
	cam.Pan(200, 0)
	if !near(cam.X, 0.5) {
		t.Errorf("expected X=0.5, got %f", cam.X)
	}

	// Dragging down moves the view down in world space.
	cam.Pan(0, 400)
	if !near(cam.Y, -1) {
		t.Errorf("expected Y=-1, got %f", cam.Y)
	}
}

func TestPanClamped(t *testing.T) {
	cam := New(800, 800, 2, 2)
	cam.Pan(1e6, -1e6)

	if cam.X != 2 || cam.Y != 2 {
		t.Errorf("expected clamped center (2, 2), got (%f, %f)", cam.X, cam.Y)
	}
}

func TestZoomClamping(t *testing.T) {
	cam := New(1280, 800, 2, 2)

	cam.SetZoom(1000)
	if cam.Zoom != cam.MaxZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MaxZoom, cam.Zoom)
	}

	cam.SetZoom(0)
	if cam.Zoom != cam.MinZoom {
		t.Errorf("expected zoom clamped to %f, got %f", cam.MinZoom, cam.Zoom)
	}
}

func TestZoomAtKeepsPointFixed(t *testing.T) {
	cam := New(1280, 800, 2, 2)

	wx, wy := cam.ScreenToWorld(900, 300)
	cam.ZoomAt(2, 900, 300)
	sx, sy := cam.WorldToScreen(wx, wy)

	if !near(sx, 900) || !near(sy, 300) {
		t.Errorf("expected (%f,%f) to stay at (900,300), got (%f,%f)", wx, wy, sx, sy)
	}
	if cam.Zoom != 2 {
		t.Errorf("expected zoom 2, got %f", cam.Zoom)
	}
}

func TestView(t *testing.T) {
	cam := New(1000, 500, 2, 2)

	// 250 px/unit: one world unit spans half the width in NDC terms.
	v := cam.View()
	if v[0] != 0 || v[1] != 0 {
		t.Errorf("expected center (0,0), got (%f,%f)", v[0], v[1])
	}
	if !near(v[2], 0.5) || !near(v[3], 1) {
		t.Errorf("expected scale (0.5, 1), got (%f, %f)", v[2], v[3])
	}
}

func TestIsVisible(t *testing.T) {
	cam := New(800, 800, 2, 2)
	cam.SetZoom(4) // Visible area is [-0.25, 0.25]

	if !cam.IsVisible(0, 0, 0) {
		t.Error("center should be visible")
	}
	if cam.IsVisible(0.5, 0, 0.1) {
		t.Error("point outside view should not be visible")
	}
	if !cam.IsVisible(0.3, 0, 0.1) {
		t.Error("circle overlapping the edge should be visible")
	}
}

func TestReset(t *testing.T) {
	cam := New(1280, 800, 2, 2)
	cam.Pan(100, 100)
	cam.SetZoom(3)
	cam.Reset()

	if cam.X != 0 || cam.Y != 0 || cam.Zoom != 1 {
		t.Errorf("expected reset camera, got (%f, %f) zoom %f", cam.X, cam.Y, cam.Zoom)
	}
}

func TestSetWorldClampsCenter(t *testing.T) {
	cam := New(800, 800, 20, 20)
	cam.X, cam.Y = 15, -15
	cam.SetWorld(2, 2)

	if cam.X != 2 || cam.Y != -2 {
		t.Errorf("expected (2, -2), got (%f, %f)", cam.X, cam.Y)
	}
}
