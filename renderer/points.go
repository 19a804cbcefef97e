package renderer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/galaxy/camera"
	"github.com/pthm-cable/galaxy/gpu"
	"github.com/pthm-cable/galaxy/shaders"
	"github.com/pthm-cable/galaxy/sim"
)

// Point shader binding points, shared with shaders/points.vert.
const (
	bindPointPositions uint32 = iota
	bindPointColors
	bindPointVelocities
)

// PointRenderer draws every active particle as a soft round sprite straight
// from the device buffers. Nothing is copied to the host.
type PointRenderer struct {
	shader          rl.Shader
	vao             uint32
	viewLoc         int32
	pointSizeLoc    int32
	colorBySpeedLoc int32
	speedScaleLoc   int32

	pointSize   float32 // Sprite diameter in pixels
	speedScale  float32 // 1/speed that maps to the hottest color
	generation  uint64
	initialized bool
}

// NewPointRenderer creates a renderer with the given sprite size in pixels.
func NewPointRenderer(pointSize float32) *PointRenderer {
	return &PointRenderer{
		pointSize:  pointSize,
		speedScale: 2,
	}
}

// Init loads the shader (must be called after raylib window is created).
func (r *PointRenderer) Init() error {
	if r.initialized {
		return nil
	}

	r.shader = rl.LoadShaderFromMemory(shaders.PointsVertex, shaders.PointsFragment)
	if r.shader.ID == 0 {
		return fmt.Errorf("load point shader: %w", ErrNoCompute)
	}
	r.viewLoc = rl.GetShaderLocation(r.shader, "view")
	r.pointSizeLoc = rl.GetShaderLocation(r.shader, "pointSize")
	r.colorBySpeedLoc = rl.GetShaderLocation(r.shader, "colorBySpeed")
	r.speedScaleLoc = rl.GetShaderLocation(r.shader, "speedScale")
	r.vao = rl.LoadVertexArray()

	r.initialized = true
	return nil
}

// SetPointSize changes the sprite diameter in pixels.
func (r *PointRenderer) SetPointSize(px float32) {
	r.pointSize = px
}

// Draw renders the first p.N particles of the region marked current.
func (r *PointRenderer) Draw(storage *gpu.Storage, current sim.BufferMarker, p sim.Params, cam *camera.Camera) error {
	if !r.initialized {
		if err := r.Init(); err != nil {
			return err
		}
	}
	dev, ok := storage.Device().(*Device)
	if !ok {
		return gpu.ErrForeignBuffer
	}
	region := storage.Read(current)
	slots := []struct {
		index uint32
		buf   gpu.Buffer
	}{
		{bindPointPositions, region.Positions},
		{bindPointColors, storage.Colors()},
		{bindPointVelocities, region.Velocities},
	}
	ids := make([]uint32, len(slots))
	for i, s := range slots {
		gb, err := dev.buffer(s.buf)
		if err != nil {
			return fmt.Errorf("point binding %d: %w", s.index, err)
		}
		ids[i] = gb.id
	}
	if gen := storage.Generation(); gen != r.generation {
		dev.log.Debug("point renderer rebound", "generation", gen)
		r.generation = gen
	}

	view := cam.View()
	half := []float32{r.pointSize / cam.ViewportW, r.pointSize / cam.ViewportH}
	colorBySpeed := float32(0)
	if p.ColorBySpeed {
		colorBySpeed = 1
	}

	// Flush raylib's batch so our draw lands in order.
	rl.DrawRenderBatchActive()

	rl.SetShaderValue(r.shader, r.viewLoc, view[:], rl.ShaderUniformVec4)
	rl.SetShaderValue(r.shader, r.pointSizeLoc, half, rl.ShaderUniformVec2)
	rl.SetShaderValue(r.shader, r.colorBySpeedLoc, []float32{colorBySpeed}, rl.ShaderUniformFloat)
	rl.SetShaderValue(r.shader, r.speedScaleLoc, []float32{r.speedScale}, rl.ShaderUniformFloat)

	rl.EnableShader(r.shader.ID)
	for i, s := range slots {
		rl.BindShaderBuffer(ids[i], s.index)
	}
	rl.EnableVertexArray(r.vao)
	rl.DrawVertexArray(0, int32(p.N)*6)
	rl.DisableVertexArray()
	rl.DisableShader()
	return nil
}

// Unload frees resources.
func (r *PointRenderer) Unload() {
	if r.initialized {
		rl.UnloadVertexArray(r.vao)
		rl.UnloadShader(r.shader)
		r.initialized = false
	}
}
