package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackFirstVector(t *testing.T) {
	p := DefaultParams()
	p.DT = 0.02
	p.G = -9.81
	p.Softening = 0.1
	p.N = 500

	u, err := DecodeUniform(p.Pack().Bytes())
	require.NoError(t, err)

	assert.Equal(t, [4]float32{0.02, -9.81, 0.1, 500.0}, u[0])
}

func TestPackLayout(t *testing.T) {
	p := Params{
		DT:           0.016,
		G:            -1,
		Softening:    0.02,
		Damping:      0.999,
		N:            1234,
		World:        Bounds{Min: Vec2{-2, -3}, Max: Vec2{4, 5}},
		Wrap:         true,
		ColorBySpeed: false,
	}

	buf := p.Pack().Bytes()
	require.Len(t, buf, UniformSize)

	// Byte offsets are fixed by the kernel's layout.
	float := func(off int) float32 {
		bits := uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
		return math.Float32frombits(bits)
	}
	assert.Equal(t, float32(0.016), float(0))
	assert.Equal(t, float32(1234), float(12))
	assert.Equal(t, float32(0.999), float(16))
	assert.Equal(t, float32(1), float(20), "wrap flag")
	assert.Equal(t, float32(0), float(24), "color_by_speed flag")
	assert.Equal(t, float32(0), float(28), "reserved")
	assert.Equal(t, float32(-2), float(32))
	assert.Equal(t, float32(-3), float(36))
	assert.Equal(t, float32(4), float(40))
	assert.Equal(t, float32(5), float(44))
}

func TestPackReflectsChanges(t *testing.T) {
	p := DefaultParams()
	before := p.Pack()

	p.ColorBySpeed = !p.ColorBySpeed
	after := p.Pack()

	assert.NotEqual(t, before, after)
	assert.Equal(t, p.ColorBySpeed, after.ColorBySpeed())
}

func TestDecodeUniformShort(t *testing.T) {
	_, err := DecodeUniform(make([]byte, UniformSize-1))
	assert.Error(t, err)
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()

	assert.InDelta(t, 0.016, p.DT, 1e-6)
	assert.InDelta(t, 0.999, p.Damping, 1e-6)
	assert.Equal(t, uint32(100_000), p.N)
	assert.Equal(t, uint32(1_000_000), p.MaxN)
	assert.Equal(t, Square(1), p.World)
	assert.True(t, p.Wrap)
	assert.True(t, p.Paused)
	assert.Zero(t, p.Epoch)
}

func TestResetKeepingN(t *testing.T) {
	base := DefaultParams()
	p := base
	p.N = 4242
	p.G = -33
	p.DT = 0.05
	p.Epoch = 17

	got := p.ResetKeepingN(base)

	assert.Equal(t, uint32(4242), got.N)
	assert.Equal(t, base.G, got.G)
	assert.Equal(t, base.DT, got.DT)
	assert.Equal(t, uint32(17), got.Epoch)
}

func TestResetKeepingNTakesLimitFromBase(t *testing.T) {
	p := DefaultParams()
	p.N = 4096
	p.MaxN = 8192

	base := DefaultParams()
	base.MaxN = 2048

	got := p.ResetKeepingN(base)
	assert.Equal(t, uint32(2048), got.MaxN)
	assert.Equal(t, uint32(2048), got.N)

	base.MaxN = 16384
	got = p.ResetKeepingN(base)
	assert.Equal(t, uint32(16384), got.MaxN)
	assert.Equal(t, uint32(4096), got.N)
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name  string
		in    Params
		check func(t *testing.T, p Params)
	}{
		{"dt low", Params{DT: 0}, func(t *testing.T, p Params) { assert.Equal(t, float32(MinDT), p.DT) }},
		{"dt high", Params{DT: 3}, func(t *testing.T, p Params) { assert.Equal(t, float32(MaxDT), p.DT) }},
		{"dt nan", Params{DT: float32(math.NaN())}, func(t *testing.T, p Params) { assert.Equal(t, float32(MinDT), p.DT) }},
		{"g positive", Params{G: 5}, func(t *testing.T, p Params) { assert.Equal(t, float32(MaxG), p.G) }},
		{"softening negative", Params{Softening: -1}, func(t *testing.T, p Params) { assert.Equal(t, float32(0), p.Softening) }},
		{"damping low", Params{Damping: 0.5}, func(t *testing.T, p Params) { assert.Equal(t, float32(MinDamping), p.Damping) }},
		{"n zero", Params{N: 0}, func(t *testing.T, p Params) { assert.Equal(t, uint32(1), p.N) }},
		{"n above max", Params{N: 10, MaxN: 5}, func(t *testing.T, p Params) { assert.Equal(t, uint32(5), p.N) }},
		{"n default max", Params{N: 2_000_000}, func(t *testing.T, p Params) { assert.Equal(t, uint32(DefaultMaxParticles), p.N) }},
		{"empty world", Params{}, func(t *testing.T, p Params) { assert.Equal(t, Square(MinHalfWorld), p.World) }},
		{"world kept", Params{World: Square(2)}, func(t *testing.T, p Params) { assert.Equal(t, Square(2), p.World) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, tt.in.Clamp())
		})
	}
}

func TestMarkerFlip(t *testing.T) {
	assert.Equal(t, Secondary, Primary.Flip())
	assert.Equal(t, Primary, Secondary.Flip())
	assert.Equal(t, 0, Primary.Index())
	assert.Equal(t, 1, Secondary.Other().Other().Index())
	assert.Equal(t, "secondary", Secondary.String())
}

func TestCompareN(t *testing.T) {
	assert.Equal(t, Less, CompareN(10, 5))
	assert.Equal(t, More, CompareN(5, 10))
	assert.Equal(t, Same, CompareN(7, 7))
}

func TestActionString(t *testing.T) {
	assert.Equal(t, "parameter_changed(more)", ParameterChanged(More).String())
	assert.Equal(t, "step", StepAction.String())
}

func TestGenerateLengths(t *testing.T) {
	for _, n := range []uint32{0, 1, 2, 3, 100, 1001} {
		g := Generate(n, 7)
		assert.Len(t, g.Positions, int(n))
		assert.Len(t, g.Velocities, int(n))
		assert.Len(t, g.Colors, int(n))
	}
}

func TestGenerateEmpty(t *testing.T) {
	g := Generate(0, 1)
	assert.Empty(t, g.Positions)
	assert.Empty(t, g.Velocities)
	assert.Empty(t, g.Colors)
	assert.Equal(t, 0, g.Len())
}

func TestGenerateDeterministic(t *testing.T) {
	a := Generate(100, 12345)
	b := Generate(100, 12345)
	assert.Equal(t, a, b)

	c := Generate(100, 54321)
	var diff float64
	for i := range a.Positions {
		dx := float64(a.Positions[i].X - c.Positions[i].X)
		dy := float64(a.Positions[i].Y - c.Positions[i].Y)
		diff += math.Hypot(dx, dy)
	}
	assert.Greater(t, diff/100, 0.01, "different seeds should give visibly different galaxies")
}

func TestGenerateDiscs(t *testing.T) {
	shape := DefaultShape()
	const n = 2001
	g := shape.Generate(n, 99)
	half := n / 2

	check := func(from, to int, d Disc) {
		for i := from; i < to; i++ {
			p := g.Positions[i]
			dx, dy := p.X-d.Center.X, p.Y-d.Center.Y
			r := float32(math.Hypot(float64(dx), float64(dy)))
			require.LessOrEqual(t, r, shape.Radius+1e-5, "particle %d outside its disc", i)

			// Velocity is tangential: perpendicular to the radius vector.
			v := g.Velocities[i]
			if r > 1e-3 {
				dot := (dx*v.X + dy*v.Y) / r
				assert.InDelta(t, 0, dot, 1e-4, "particle %d velocity not tangential", i)
			}

			// Sign of the angular momentum gives the rotation direction.
			l := dx*v.Y - dy*v.X
			if r > 1e-3 {
				assert.Equal(t, d.Rotation > 0, l > 0, "particle %d rotates the wrong way", i)
			}

			assert.Equal(t, float32(1), g.Colors[i].A)
		}
	}
	check(0, half, shape.Discs[0])
	check(half, n, shape.Discs[1])
}

func TestGenerateAreaUniform(t *testing.T) {
	// With r = sqrt(U)*R, a quarter of the particles fall inside R/2.
	shape := DefaultShape()
	const n = 20000
	g := shape.Generate(n, 3)
	d := shape.Discs[0]

	inner := 0
	for i := 0; i < n/2; i++ {
		dx := float64(g.Positions[i].X - d.Center.X)
		dy := float64(g.Positions[i].Y - d.Center.Y)
		if math.Hypot(dx, dy) < float64(shape.Radius)/2 {
			inner++
		}
	}
	frac := float64(inner) / float64(n/2)
	assert.InDelta(t, 0.25, frac, 0.02)
}

func TestGenerateColorGradient(t *testing.T) {
	shape := DefaultShape()
	g := shape.Generate(4000, 11)
	d := shape.Discs[0]

	// The particle closest to the center should be nearest to the core color.
	best, bestR := 0, float64(math.MaxFloat64)
	for i := 0; i < 2000; i++ {
		r := math.Hypot(float64(g.Positions[i].X-d.Center.X), float64(g.Positions[i].Y-d.Center.Y))
		if r < bestR {
			best, bestR = i, r
		}
	}
	assert.InDelta(t, d.Core.R, g.Colors[best].R, 0.01)
	assert.InDelta(t, d.Core.G, g.Colors[best].G, 0.01)
}
