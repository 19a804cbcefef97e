package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/galaxy/gpu"
	"github.com/pthm-cable/galaxy/gpu/host"
	"github.com/pthm-cable/galaxy/sim"
)

func fixedSeed() int64 { return 42 }

func newController(t *testing.T, dev *host.Device, p sim.Params) *Controller {
	t.Helper()
	c, err := New(dev, host.NewKernel(dev, 64), Options{Params: &p, Seeds: fixedSeed})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func smallParams(n uint32, paused bool) sim.Params {
	p := sim.DefaultParams()
	p.N = n
	p.Paused = paused
	return p
}

func TestNewStartsAtPrimary(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(100, true))

	assert.Equal(t, sim.Primary, c.Marker())
	assert.Zero(t, c.Epoch())
	assert.Equal(t, Paused, c.State())
	assert.Equal(t, uint32(128), c.Storage().Capacity())
	assert.Equal(t, int64(42), c.Seed())
}

func TestRunningStepsAlternateMarker(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, false))

	for k := 1; k <= 7; k++ {
		res, err := c.Frame()
		require.NoError(t, err)
		assert.True(t, res.Stepped)
		assert.Equal(t, uint32(k), c.Epoch())

		want := sim.Primary
		if k%2 == 1 {
			want = sim.Secondary
		}
		assert.Equal(t, want, c.Marker(), "after %d steps", k)
	}
}

func TestPausedFramesDoNothing(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, true))
	before, _, err := c.Storage().Snapshot(sim.Primary, 64)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		res, err := c.Frame()
		require.NoError(t, err)
		assert.False(t, res.Stepped)
	}
	assert.Equal(t, sim.Primary, c.Marker())
	assert.Zero(t, c.Epoch())

	after, _, err := c.Storage().Snapshot(sim.Primary, 64)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestStepWhilePaused(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, true))

	require.NoError(t, c.Handle(sim.StepAction))
	res, err := c.Frame()
	require.NoError(t, err)
	assert.True(t, res.Stepped)
	assert.Equal(t, sim.Secondary, c.Marker())
	assert.Equal(t, uint32(1), c.Epoch())

	// The request is consumed by one frame.
	res, err = c.Frame()
	require.NoError(t, err)
	assert.False(t, res.Stepped)
	assert.Equal(t, uint32(1), c.Epoch())
}

func TestStepWhileRunningRejected(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, false))

	err := c.Handle(sim.StepAction)
	assert.ErrorIs(t, err, ErrStepWhileRunning)
}

func TestApplyStepWhileRunningKeepsParams(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, false))
	before := c.Params()

	next := before
	next.DT = 0.05
	next.G = -20
	err := c.Apply(next, sim.StepAction)

	assert.ErrorIs(t, err, ErrStepWhileRunning)
	assert.Equal(t, before, c.Params())
	assert.Equal(t, Running, c.State())
}

func TestApplyZeroResizeKeepsParams(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, true))
	before := c.Params()

	next := before
	next.N = 0
	next.Softening = 0.5
	err := c.Apply(next, sim.ParameterChanged(sim.Less))

	assert.ErrorIs(t, err, ErrInvalidParticleCount)
	assert.Equal(t, before, c.Params())
}

func TestEpochWrapsOnOverflow(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, false))
	c.params.Epoch = math.MaxUint32

	res, err := c.Frame()
	require.NoError(t, err)

	assert.True(t, res.Stepped)
	assert.Zero(t, res.Epoch)
	assert.Zero(t, c.Epoch())
	assert.Equal(t, sim.Secondary, c.Marker())
}

func TestResetFromAnyState(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, false))
	for i := 0; i < 3; i++ {
		_, err := c.Frame()
		require.NoError(t, err)
	}
	require.Equal(t, sim.Secondary, c.Marker())

	require.NoError(t, c.Handle(sim.ResetAction))
	assert.Equal(t, sim.Primary, c.Marker())
	assert.Zero(t, c.Epoch())

	// Reset reproduces the seeded galaxy.
	g := sim.DefaultShape().Generate(64, fixedSeed())
	pos, vel, err := c.Storage().Snapshot(sim.Primary, 64)
	require.NoError(t, err)
	assert.Equal(t, g.Positions, pos)
	assert.Equal(t, g.Velocities, vel)
}

func TestParameterChangedSameKeepsState(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, false))
	_, err := c.Frame()
	require.NoError(t, err)

	p := c.Params()
	p.G = -5
	p.DT = 99 // clamped
	require.NoError(t, c.Apply(p, sim.ParameterChanged(sim.Same)))

	assert.Equal(t, float32(-5), c.Params().G)
	assert.Equal(t, float32(sim.MaxDT), c.Params().DT)
	assert.Equal(t, sim.Secondary, c.Marker())
	assert.Equal(t, uint32(1), c.Epoch())

	// New values reach the device on the next frame.
	_, err = c.Frame()
	require.NoError(t, err)
	buf := make([]byte, sim.UniformSize)
	require.NoError(t, c.Storage().Device().ReadBuffer(c.Storage().Bindings(c.Marker()).Uniform, 0, buf))
	u, err := sim.DecodeUniform(buf)
	require.NoError(t, err)
	assert.Equal(t, float32(-5), u.G())
}

func TestApplyIgnoresNWithoutResize(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, true))

	p := c.Params()
	p.N = 10
	require.NoError(t, c.Apply(p, sim.ParameterChanged(sim.Same)))
	assert.Equal(t, uint32(64), c.Params().N)
}

func TestResizeLessReseeds(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, false))
	_, err := c.Frame()
	require.NoError(t, err)

	require.NoError(t, c.Resize(10))
	assert.Equal(t, uint32(10), c.Params().N)
	assert.Equal(t, uint32(64), c.Storage().Capacity(), "capacity never shrinks")
	assert.Equal(t, sim.Primary, c.Marker())
	assert.Zero(t, c.Epoch())
}

func TestResizeZeroRejected(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, true))

	assert.ErrorIs(t, c.Resize(0), ErrInvalidParticleCount)

	p := c.Params()
	p.N = 0
	assert.ErrorIs(t, c.Apply(p, sim.ParameterChanged(sim.Less)), ErrInvalidParticleCount)
	assert.Equal(t, uint32(64), c.Params().N)
}

func TestResizeClampsToMax(t *testing.T) {
	p := smallParams(64, true)
	p.MaxN = 100
	c := newController(t, host.NewDevice(), p)

	require.NoError(t, c.Resize(1000))
	assert.Equal(t, uint32(100), c.Params().N)
	assert.Equal(t, uint32(128), c.Storage().Capacity())
}

func TestCapacityMonotonic(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(10, true))

	last := c.Storage().Capacity()
	for _, n := range []uint32{5, 100, 20, 3000, 1, 2500, 4097} {
		require.NoError(t, c.Resize(n))
		capacity := c.Storage().Capacity()
		assert.GreaterOrEqual(t, capacity, last)
		assert.Equal(t, gpu.NextPowerOfTwo(capacity), capacity, "capacity %d is not a power of two", capacity)
		assert.GreaterOrEqual(t, capacity, c.Params().N)
		last = capacity
	}
}

func TestResizeBeyondDefaultLimitClamps(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates ~100MB")
	}
	p := sim.DefaultParams()
	require.Equal(t, uint32(1_000_000), p.MaxN)

	c := newController(t, host.NewDevice(), p)
	next := c.Params()
	next.N = 1_500_000
	require.NoError(t, c.Apply(next, sim.ParameterChanged(sim.More)))

	assert.Equal(t, uint32(1_000_000), c.Params().N)
	assert.Equal(t, uint32(1_048_576), c.Storage().Capacity())
	assert.Equal(t, sim.Primary, c.Marker())
	assert.Zero(t, c.Epoch())
}

// The 1.5M scenario needs sim.max_particles raised above the default limit.
func TestResizeToOnePointFiveMillion(t *testing.T) {
	if testing.Short() {
		t.Skip("allocates ~150MB")
	}
	p := sim.DefaultParams()
	p.MaxN = 2_000_000
	require.Equal(t, uint32(100_000), p.N)
	require.True(t, p.Paused)

	c := newController(t, host.NewDevice(), p)
	require.Equal(t, uint32(131_072), c.Storage().Capacity())

	next := c.Params()
	next.N = 1_500_000
	require.NoError(t, c.Apply(next, sim.ParameterChanged(sim.More)))

	assert.Equal(t, uint32(2_097_152), c.Storage().Capacity())
	assert.Equal(t, uint32(1_500_000), c.Params().N)
	assert.Equal(t, sim.Primary, c.Marker())

	pos, vel, err := c.Storage().Snapshot(sim.Primary, c.Params().N)
	require.NoError(t, err)
	assert.Len(t, pos, 1_500_000)
	assert.Len(t, vel, 1_500_000)
	colors, err := c.Storage().ReadColors(c.Params().N)
	require.NoError(t, err)
	assert.Len(t, colors, 1_500_000)

	// The last particle belongs to the second disc, so it was written.
	assert.NotEqual(t, sim.Vec4{}, colors[1_499_999])
}

func TestResizeAllocationFailureRollsBack(t *testing.T) {
	// Enough memory for 64 particles, not for 4096.
	dev := host.NewDevice(host.WithMemoryLimit(100_000))
	c := newController(t, dev, smallParams(64, false))
	_, err := c.Frame()
	require.NoError(t, err)

	err = c.Resize(4096)
	require.Error(t, err)
	assert.ErrorIs(t, err, gpu.ErrAllocation)

	assert.Equal(t, uint32(64), c.Params().N)
	assert.Equal(t, uint32(64), c.Storage().Capacity())
	assert.Equal(t, sim.Secondary, c.Marker())
	assert.Equal(t, uint32(1), c.Epoch())

	// The session keeps working on the old buffers.
	res, err := c.Frame()
	require.NoError(t, err)
	assert.True(t, res.Stepped)
	assert.Equal(t, uint32(2), c.Epoch())
}

func TestResetParametersKeepsN(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, true))
	require.NoError(t, c.Resize(32))

	p := c.Params()
	p.G = -40
	p.Softening = 0.5
	require.NoError(t, c.Apply(p, sim.ParameterChanged(sim.Same)))

	require.NoError(t, c.Handle(sim.ResetParamsAction))
	assert.Equal(t, uint32(32), c.Params().N)
	assert.Equal(t, c.Base().G, c.Params().G)
	assert.Equal(t, c.Base().Softening, c.Params().Softening)
	assert.True(t, c.Params().Paused)
}

func TestUnknownAction(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(8, true))
	err := c.Handle(sim.Action{Kind: 200})
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestPauseToggleThroughApply(t *testing.T) {
	c := newController(t, host.NewDevice(), smallParams(64, true))

	p, a := sim.Reduce(c.Params(), []sim.Input{{Kind: sim.TogglePause}})
	require.NoError(t, c.Apply(p, a))
	assert.Equal(t, Running, c.State())

	res, err := c.Frame()
	require.NoError(t, err)
	assert.True(t, res.Stepped)
}

func TestFrameDeviceLost(t *testing.T) {
	dev := host.NewDevice()
	c := newController(t, dev, smallParams(64, false))

	dev.Lose()
	_, err := c.Frame()
	assert.ErrorIs(t, err, gpu.ErrDeviceLost)
	assert.Zero(t, c.Epoch())
}

func TestStepsMatchDirectKernel(t *testing.T) {
	// Two controller steps equal two manual dispatches on fresh storage.
	const n = 64
	c := newController(t, host.NewDevice(), smallParams(n, false))
	for i := 0; i < 2; i++ {
		_, err := c.Frame()
		require.NoError(t, err)
	}
	got, _, err := c.Storage().Snapshot(c.Marker(), n)
	require.NoError(t, err)

	dev := host.NewDevice()
	k := host.NewKernel(dev, 64)
	defer k.Close()
	s, err := gpu.NewStorage(dev, n)
	require.NoError(t, err)
	g := sim.DefaultShape().Generate(n, fixedSeed())
	require.NoError(t, s.Upload(gpu.UploadData{Positions: g.Positions, Velocities: g.Velocities, Colors: g.Colors}))
	require.NoError(t, s.WriteUniform(c.Params().Pack()))
	require.NoError(t, k.Dispatch(s.Bindings(sim.Primary), 1))
	require.NoError(t, k.Dispatch(s.Bindings(sim.Secondary), 1))
	want, _, err := s.Snapshot(sim.Primary, n)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}
