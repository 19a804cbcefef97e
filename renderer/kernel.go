package renderer

import (
	"errors"
	"fmt"
	"sync"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/pthm-cable/galaxy/gpu"
	"github.com/pthm-cable/galaxy/shaders"
)

// ErrNoCompute is returned when the GL context cannot compile compute shaders.
var ErrNoCompute = errors.New("compute shaders unavailable: build with -tags opengl43")

// Kernel binding points, shared with shaders/nbody.comp.
const (
	bindDstPositions uint32 = iota
	bindDstVelocities
	bindSrcPositions
	bindSrcVelocities
	bindColors
	bindUniform
)

// stepBarriers makes a step's SSBO writes visible to the next step, the point
// shader and buffer readback.
const stepBarriers = gl.SHADER_STORAGE_BARRIER_BIT | gl.BUFFER_UPDATE_BARRIER_BIT

var (
	glOnce sync.Once
	glErr  error
)

// loadGL resolves GL entry points rlgl does not wrap. It must run on the
// thread that owns raylib's context.
func loadGL() error {
	glOnce.Do(func() { glErr = gl.Init() })
	return glErr
}

// ComputeKernel is the N-body step compiled as a GL compute program.
type ComputeKernel struct {
	dev           *Device
	program       uint32
	workgroupSize uint32
}

// NewComputeKernel compiles the step for the given workgroup size.
func NewComputeKernel(dev *Device, workgroupSize int) (*ComputeKernel, error) {
	if err := loadGL(); err != nil {
		return nil, fmt.Errorf("load GL entry points: %w", err)
	}
	src, err := shaders.Compute(workgroupSize)
	if err != nil {
		return nil, err
	}
	shader := rl.CompileShader(src, glComputeShader)
	if shader == 0 {
		return nil, fmt.Errorf("compile compute shader: %w", ErrNoCompute)
	}
	program := rl.LoadComputeShaderProgram(shader)
	if program == 0 {
		return nil, fmt.Errorf("link compute program: %w", ErrNoCompute)
	}
	dev.log.Info("compute kernel ready", "program", program, "workgroup", workgroupSize)
	return &ComputeKernel{
		dev:           dev,
		program:       program,
		workgroupSize: uint32(workgroupSize),
	}, nil
}

func (k *ComputeKernel) WorkgroupSize() uint32 { return k.workgroupSize }

// Dispatch binds the step's buffers and queues groups workgroups. Bindings
// are re-applied every dispatch, so reallocated buffers are picked up
// without extra bookkeeping.
func (k *ComputeKernel) Dispatch(b gpu.Bindings, groups uint32) error {
	slots := []struct {
		index uint32
		buf   gpu.Buffer
	}{
		{bindDstPositions, b.Dst.Positions},
		{bindDstVelocities, b.Dst.Velocities},
		{bindSrcPositions, b.Src.Positions},
		{bindSrcVelocities, b.Src.Velocities},
		{bindColors, b.Colors},
		{bindUniform, b.Uniform},
	}
	ids := make([]uint32, len(slots))
	for i, s := range slots {
		gb, err := k.dev.buffer(s.buf)
		if err != nil {
			return fmt.Errorf("binding %d: %w", s.index, err)
		}
		ids[i] = gb.id
	}
	if groups == 0 {
		return nil
	}

	rl.EnableShader(k.program)
	for i, s := range slots {
		rl.BindShaderBuffer(ids[i], s.index)
	}
	rl.ComputeShaderDispatch(groups, 1, 1)
	gl.MemoryBarrier(stepBarriers)
	rl.DisableShader()
	return nil
}

// Close deletes the compute program.
func (k *ComputeKernel) Close() error {
	if k.program != 0 {
		rl.UnloadShaderProgram(k.program)
		k.program = 0
	}
	return nil
}

var _ gpu.Kernel = (*ComputeKernel)(nil)
