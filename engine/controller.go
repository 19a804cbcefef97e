// Package engine drives the simulation one frame at a time: it owns the
// parameters, the current-region marker and the epoch, and turns user
// actions into storage and kernel operations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pthm-cable/galaxy/gpu"
	"github.com/pthm-cable/galaxy/logging"
	"github.com/pthm-cable/galaxy/sim"
)

// Contract violations. These are caller bugs, not device failures.
var (
	ErrStepWhileRunning     = errors.New("engine: step requested while running")
	ErrInvalidParticleCount = errors.New("engine: particle count must be at least 1")
	ErrUnknownAction        = errors.New("engine: unknown action")
)

// State is the run state of the controller.
type State uint8

const (
	Paused State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "paused"
}

// SeedFunc supplies galaxy seeds for resets.
type SeedFunc func() int64

// Options configure a Controller.
type Options struct {
	// Params are the starting parameters. Zero value means sim.DefaultParams.
	Params *sim.Params
	// Base are the values restored by ResetParameters. Defaults to Params.
	Base *sim.Params
	// Shape of the generated galaxy. Defaults to sim.DefaultShape.
	Shape *sim.GalaxyShape
	// Seeds defaults to sim.NewSeed.
	Seeds SeedFunc
}

// FrameResult reports what a frame did.
type FrameResult struct {
	Stepped bool
	Epoch   uint32
	Marker  sim.BufferMarker
}

// Controller is the per-frame simulation state machine. It is driven from a
// single goroutine.
type Controller struct {
	dev     gpu.Device
	kernel  gpu.Kernel
	storage *gpu.Storage

	params sim.Params
	base   sim.Params
	shape  sim.GalaxyShape
	seeds  SeedFunc
	seed   int64

	marker        sim.BufferMarker
	stepRequested bool

	// Last uniform uploaded and the storage generation it went to.
	uniform    sim.PackedUniform
	uniformGen uint64

	log *slog.Logger
}

// New allocates storage for the starting particle count, seeds the first
// galaxy and uploads everything.
func New(dev gpu.Device, kernel gpu.Kernel, opts Options) (*Controller, error) {
	c := &Controller{
		dev:    dev,
		kernel: kernel,
		shape:  sim.DefaultShape(),
		seeds:  sim.NewSeed,
		log:    logging.For("engine"),
	}
	if opts.Params != nil {
		c.params = opts.Params.Clamp()
	} else {
		c.params = sim.DefaultParams()
	}
	c.base = c.params
	if opts.Base != nil {
		c.base = opts.Base.Clamp()
	}
	if opts.Shape != nil {
		c.shape = *opts.Shape
	}
	if opts.Seeds != nil {
		c.seeds = opts.Seeds
	}

	storage, err := gpu.NewStorage(dev, c.params.N)
	if err != nil {
		return nil, fmt.Errorf("create storage: %w", err)
	}
	c.storage = storage

	if err := c.reset(); err != nil {
		storage.Release()
		return nil, err
	}
	c.log.Info("controller ready",
		"device", dev.Name(),
		"n", c.params.N,
		"capacity", storage.Capacity(),
		"workgroup", kernel.WorkgroupSize(),
		"state", c.State(),
	)
	return c, nil
}

// Params returns the current parameters.
func (c *Controller) Params() sim.Params { return c.params }

// Base returns the parameters restored by ResetParameters.
func (c *Controller) Base() sim.Params { return c.base }

// Marker returns the region the next step reads from.
func (c *Controller) Marker() sim.BufferMarker { return c.marker }

// Epoch returns the number of steps since the last reseed.
func (c *Controller) Epoch() uint32 { return c.params.Epoch }

// Seed returns the seed of the current galaxy.
func (c *Controller) Seed() int64 { return c.seed }

// Storage exposes the buffers to the renderer and telemetry.
func (c *Controller) Storage() *gpu.Storage { return c.storage }

// State returns Paused or Running.
func (c *Controller) State() State {
	if c.params.Paused {
		return Paused
	}
	return Running
}

// SetBase replaces the values ResetParameters restores. Used on config reload.
func (c *Controller) SetBase(p sim.Params) {
	c.base = p.Clamp()
}

// SetShape replaces the galaxy shape used by the next reseed.
func (c *Controller) SetShape(s sim.GalaxyShape) {
	c.shape = s
}

// Frame uploads the uniform if it changed and runs one step unless paused
// without a pending step request.
func (c *Controller) Frame() (FrameResult, error) {
	if err := c.syncUniform(); err != nil {
		return FrameResult{Epoch: c.params.Epoch, Marker: c.marker}, err
	}

	stepped := false
	if !c.params.Paused || c.stepRequested {
		c.stepRequested = false
		if err := c.dispatch(); err != nil {
			return FrameResult{Epoch: c.params.Epoch, Marker: c.marker}, err
		}
		stepped = true
	}
	return FrameResult{Stepped: stepped, Epoch: c.params.Epoch, Marker: c.marker}, nil
}

func (c *Controller) dispatch() error {
	groups := gpu.GroupCount(c.params.N, c.kernel.WorkgroupSize())
	if err := c.kernel.Dispatch(c.storage.Bindings(c.marker), groups); err != nil {
		return fmt.Errorf("dispatch step %d: %w", c.params.Epoch, err)
	}
	c.marker = c.marker.Flip()
	c.params.Epoch++
	if c.params.Epoch%1000 == 0 {
		c.log.Log(context.Background(), logging.LevelTrace, "step", "epoch", c.params.Epoch, "marker", c.marker)
	}
	return nil
}

// syncUniform uploads the packed parameters when they differ from what the
// device holds. Reallocation gives a fresh, empty uniform slot.
func (c *Controller) syncUniform() error {
	u := c.params.Pack()
	if u == c.uniform && c.uniformGen == c.storage.Generation() {
		return nil
	}
	if err := c.storage.WriteUniform(u); err != nil {
		return err
	}
	c.uniform = u
	c.uniformGen = c.storage.Generation()
	return nil
}

// Apply installs parameters produced by the UI reducer and then handles the
// action. The epoch stays owned by the controller. A rejected action leaves
// the current parameters untouched.
func (c *Controller) Apply(p sim.Params, a sim.Action) error {
	if a.Kind == sim.ActionParameterChanged && a.Change != sim.Same && p.N == 0 {
		return ErrInvalidParticleCount
	}
	if a.Kind == sim.ActionStep && !p.Paused {
		return ErrStepWhileRunning
	}
	p.Epoch = c.params.Epoch
	p.MaxN = c.params.MaxN
	prevN := c.params.N
	c.params = p.Clamp()
	if a.Kind != sim.ActionParameterChanged || a.Change == sim.Same {
		// Only resizes may change N.
		c.params.N = prevN
	}
	return c.handle(a, prevN)
}

// Handle processes one action against the current parameters.
func (c *Controller) Handle(a sim.Action) error {
	return c.handle(a, c.params.N)
}

// Resize changes the particle count and reseeds.
func (c *Controller) Resize(n uint32) error {
	if n == 0 {
		return ErrInvalidParticleCount
	}
	p := c.params
	p.N = n
	return c.Apply(p, sim.ParameterChanged(sim.CompareN(c.params.N, n)))
}

func (c *Controller) handle(a sim.Action, prevN uint32) error {
	switch a.Kind {
	case sim.ActionNone:
		return nil

	case sim.ActionReset:
		c.log.Info("reset", "n", c.params.N)
		return c.reset()

	case sim.ActionParameterChanged:
		c.params = c.params.Clamp()
		if a.Change == sim.Same {
			c.log.Debug("parameters changed", "params", paramAttrs(c.params))
			return nil
		}
		return c.resize(prevN)

	case sim.ActionStep:
		if !c.params.Paused {
			return ErrStepWhileRunning
		}
		c.stepRequested = true
		return nil

	case sim.ActionResetParameters:
		c.params = c.params.ResetKeepingN(c.base)
		c.log.Info("parameters reset", "params", paramAttrs(c.params))
		if c.params.N != prevN {
			// A lowered particle limit clamped N.
			return c.resize(prevN)
		}
		return nil

	default:
		return fmt.Errorf("%w: %v", ErrUnknownAction, a)
	}
}

// resize grows storage when needed and reseeds. On allocation failure the
// previous particle count is restored; the old buffers are still valid.
func (c *Controller) resize(prevN uint32) error {
	n := c.params.N
	// No step may be using the regions we are about to replace.
	if err := c.dev.Sync(); err != nil {
		c.params.N = prevN
		return fmt.Errorf("sync before resize: %w", err)
	}
	grew, err := c.storage.EnsureCapacity(n)
	if err != nil {
		c.params.N = prevN
		c.log.Error("resize failed, keeping particle count",
			"requested", n,
			"n", prevN,
			"error", err,
		)
		return fmt.Errorf("resize to %d particles: %w", n, err)
	}
	c.log.Info("resize",
		"from", prevN,
		"to", n,
		"capacity", c.storage.Capacity(),
		"grew", grew,
	)
	return c.reset()
}

// reset reseeds the galaxy at the current particle count.
func (c *Controller) reset() error {
	c.seed = c.seeds()
	g := c.shape.Generate(c.params.N, c.seed)
	if err := c.storage.Upload(gpu.UploadData{
		Positions:  g.Positions,
		Velocities: g.Velocities,
		Colors:     g.Colors,
	}); err != nil {
		return fmt.Errorf("upload galaxy: %w", err)
	}
	c.marker = sim.Primary
	c.params.Epoch = 0
	c.stepRequested = false
	if err := c.syncUniform(); err != nil {
		return err
	}
	c.log.Debug("galaxy seeded", "n", c.params.N, "seed", c.seed)
	return nil
}

// Close releases the device buffers and stops the kernel.
func (c *Controller) Close() error {
	c.storage.Release()
	return c.kernel.Close()
}

func paramAttrs(p sim.Params) slog.Value {
	return slog.GroupValue(
		slog.Float64("dt", float64(p.DT)),
		slog.Float64("g", float64(p.G)),
		slog.Float64("softening", float64(p.Softening)),
		slog.Float64("damping", float64(p.Damping)),
		slog.Uint64("n", uint64(p.N)),
		slog.Bool("wrap", p.Wrap),
		slog.Bool("color_by_speed", p.ColorBySpeed),
		slog.Bool("paused", p.Paused),
	)
}
