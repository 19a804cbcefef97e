// Package sim holds the host-side simulation model: parameters, the packed
// uniform record the compute kernel consumes, the galaxy initializer and the
// buffer marker that selects the current region.
package sim

import (
	"github.com/pthm-cable/galaxy/config"
)

// Vec2 is a tightly packed pair of float32, matching a GLSL vec2 in std430.
type Vec2 struct {
	X, Y float32
}

// Vec4 is a tightly packed RGBA color, matching a GLSL vec4.
type Vec4 struct {
	R, G, B, A float32
}

// Bounds is an axis-aligned rectangle given by two corners.
type Bounds struct {
	Min, Max Vec2
}

// Square returns the bounds [-h,-h]..[h,h].
func Square(h float32) Bounds {
	return Bounds{Min: Vec2{-h, -h}, Max: Vec2{h, h}}
}

// HalfExtent returns half the width of the bounds.
func (b Bounds) HalfExtent() float32 {
	return (b.Max.X - b.Min.X) / 2
}

// Parameter ranges. Values outside are clamped by Clamp.
const (
	MinDT        = 0.001
	MaxDT        = 0.1
	MinG         = -50.0
	MaxG         = 0.0
	MinSoftening = 0.0
	MaxSoftening = 1.0
	MinDamping   = 0.9
	MaxDamping   = 1.0
	MinHalfWorld = 0.1
	MaxHalfWorld = 10.0
	MinParticles = 1
)

// DefaultMaxParticles is the particle count upper bound when no config is loaded.
const DefaultMaxParticles = 1_000_000

// Params are the simulation constants and toggles.
type Params struct {
	DT           float32 // Time step in seconds
	G            float32 // Gravitational constant (negative attracts)
	Softening    float32 // Added to squared distances to avoid singularities
	Damping      float32 // Velocity multiplier per step, in [0.9, 1]
	N            uint32  // Active particle count
	World        Bounds
	Wrap         bool // Positions leaving World re-enter on the opposite edge
	ColorBySpeed bool // Render color derives from velocity magnitude
	Paused       bool
	Epoch        uint32 // Completed steps; wraps on overflow

	// MaxN is the upper bound for N. Not part of the uniform.
	MaxN uint32
}

// DefaultParams returns the baseline parameters. When a config is loaded its
// sim section provides the values; otherwise the compiled-in ones are used.
func DefaultParams() Params {
	cfg, err := config.Defaults()
	if err != nil {
		panic("sim: embedded defaults are invalid: " + err.Error())
	}
	return ParamsFromConfig(cfg)
}

// ParamsFromConfig builds baseline parameters from cfg.
func ParamsFromConfig(cfg *config.Config) Params {
	s := cfg.Sim
	p := Params{
		DT:           float32(s.DT),
		G:            float32(s.G),
		Softening:    float32(s.Softening),
		Damping:      float32(s.Damping),
		N:            cfg.Derived.InitialN,
		World:        Square(float32(s.WorldHalfExtent)),
		Wrap:         s.Wrap,
		ColorBySpeed: s.ColorBySpeed,
		Paused:       s.StartPaused,
		MaxN:         cfg.Derived.MaxParticles,
	}
	return p.Clamp()
}

// ResetKeepingN returns base with p's particle count, pause state and epoch
// kept. Particle count changes go through the resize path, so resetting
// parameters never reverts them. The particle limit comes from base; N is
// clamped to it when base lowers the limit.
func (p Params) ResetKeepingN(base Params) Params {
	base.N = p.N
	if base.MaxN == 0 {
		base.MaxN = p.MaxN
	}
	base.Paused = p.Paused
	base.Epoch = p.Epoch
	return base.Clamp()
}

// Clamp returns p with every numeric field inside its documented range.
func (p Params) Clamp() Params {
	if p.MaxN == 0 {
		p.MaxN = DefaultMaxParticles
	}
	p.DT = clampf(p.DT, MinDT, MaxDT)
	p.G = clampf(p.G, MinG, MaxG)
	p.Softening = clampf(p.Softening, MinSoftening, MaxSoftening)
	p.Damping = clampf(p.Damping, MinDamping, MaxDamping)
	p.N = ClampParticles(p.N, p.MaxN)

	h := clampf(p.World.HalfExtent(), MinHalfWorld, MaxHalfWorld)
	if p.World.Max.X-p.World.Min.X != p.World.Max.Y-p.World.Min.Y || p.World.HalfExtent() != h {
		p.World = Square(h)
	}
	return p
}

// ClampParticles restricts n to [MinParticles, max].
func ClampParticles(n, max uint32) uint32 {
	if n < MinParticles {
		return MinParticles
	}
	if n > max {
		return max
	}
	return n
}

// clampf restricts x to [lo, hi]. NaN maps to lo.
func clampf(x, lo, hi float32) float32 {
	if !(x >= lo) {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
