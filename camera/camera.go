// Package camera provides a 2D camera system for viewport control.
package camera

// Camera controls the viewport into the simulation world. World units are
// the simulation's coordinates with +Y up; screen units are pixels with +Y
// down.
type Camera struct {
	// Position is the camera center in world coordinates
	X, Y float32

	// Zoom level (1.0 = the whole world fits the viewport)
	Zoom float32

	// Viewport dimensions (screen size)
	ViewportW, ViewportH float32

	// World size and center, used for fitting and Reset
	WorldW, WorldH   float32
	CenterX, CenterY float32

	// Zoom constraints
	MinZoom, MaxZoom float32
}

// New creates a camera over a world of the given size centered on the
// origin, zoomed so the whole world is visible.
func New(viewportW, viewportH, worldW, worldH float32) *Camera {
	return &Camera{
		Zoom:      1.0,
		ViewportW: viewportW,
		ViewportH: viewportH,
		WorldW:    worldW,
		WorldH:    worldH,
		MinZoom:   0.1,
		MaxZoom:   100.0,
	}
}

// fit is the pixels per world unit at zoom 1.
func (c *Camera) fit() float32 {
	if c.WorldW <= 0 || c.WorldH <= 0 {
		return 1
	}
	return min(c.ViewportW/c.WorldW, c.ViewportH/c.WorldH)
}

// PixelsPerUnit returns the current scale from world units to pixels.
func (c *Camera) PixelsPerUnit() float32 {
	return c.fit() * c.Zoom
}

// WorldToScreen converts world coordinates to screen coordinates.
func (c *Camera) WorldToScreen(wx, wy float32) (sx, sy float32) {
	s := c.PixelsPerUnit()
	sx = c.ViewportW/2 + (wx-c.X)*s
	sy = c.ViewportH/2 - (wy-c.Y)*s
	return sx, sy
}

// ScreenToWorld converts screen coordinates to world coordinates.
func (c *Camera) ScreenToWorld(sx, sy float32) (wx, wy float32) {
	s := c.PixelsPerUnit()
	wx = c.X + (sx-c.ViewportW/2)/s
	wy = c.Y - (sy-c.ViewportH/2)/s
	return wx, wy
}

// IsVisible returns true if a circle at (wx, wy) with given radius
// could be visible on screen (conservative check for culling).
func (c *Camera) IsVisible(wx, wy, radius float32) bool {
	minX, minY, maxX, maxY := c.VisibleWorldBounds()
	return wx+radius >= minX && wx-radius <= maxX && wy+radius >= minY && wy-radius <= maxY
}

// View returns the transform used by the point shader:
// ndc = (world - center) * scale, packed as (centerX, centerY, scaleX, scaleY).
func (c *Camera) View() [4]float32 {
	s := c.PixelsPerUnit()
	return [4]float32{c.X, c.Y, 2 * s / c.ViewportW, 2 * s / c.ViewportH}
}

// Resize updates viewport dimensions.
func (c *Camera) Resize(viewportW, viewportH float32) {
	c.ViewportW = viewportW
	c.ViewportH = viewportH
}

// SetWorld changes the world size, keeping the camera inside it.
func (c *Camera) SetWorld(worldW, worldH float32) {
	c.WorldW = worldW
	c.WorldH = worldH
	c.clampCenter()
}

// Pan moves the camera by the given delta in screen pixels.
func (c *Camera) Pan(dx, dy float32) {
	s := c.PixelsPerUnit()
	c.X += dx / s
	c.Y -= dy / s
	c.clampCenter()
}

// SetZoom sets the zoom level, clamped to min/max.
func (c *Camera) SetZoom(zoom float32) {
	c.Zoom = clamp(zoom, c.MinZoom, c.MaxZoom)
}

// ZoomBy multiplies the current zoom by the given factor.
func (c *Camera) ZoomBy(factor float32) {
	c.SetZoom(c.Zoom * factor)
}

// ZoomAt zooms by factor keeping the world point under (sx, sy) fixed.
func (c *Camera) ZoomAt(factor, sx, sy float32) {
	wx, wy := c.ScreenToWorld(sx, sy)
	c.ZoomBy(factor)
	nx, ny := c.ScreenToWorld(sx, sy)
	c.X += wx - nx
	c.Y += wy - ny
	c.clampCenter()
}

// Reset returns the camera to the default position and zoom.
func (c *Camera) Reset() {
	c.X = c.CenterX
	c.Y = c.CenterY
	c.Zoom = 1.0
}

// VisibleWorldBounds returns the world-coordinate bounds of the visible area.
// Returns (minX, minY, maxX, maxY) in world coordinates.
func (c *Camera) VisibleWorldBounds() (minX, minY, maxX, maxY float32) {
	s := c.PixelsPerUnit()
	halfW := c.ViewportW / (2 * s)
	halfH := c.ViewportH / (2 * s)

	minX = c.X - halfW
	maxX = c.X + halfW
	minY = c.Y - halfH
	maxY = c.Y + halfH
	return
}

// clampCenter keeps the camera center within one world size of the world
// center so the galaxy cannot be lost off screen.
func (c *Camera) clampCenter() {
	c.X = clamp(c.X, c.CenterX-c.WorldW, c.CenterX+c.WorldW)
	c.Y = clamp(c.Y, c.CenterY-c.WorldH, c.CenterY+c.WorldH)
}

// clamp restricts a value to a range.
func clamp(x, min, max float32) float32 {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}
