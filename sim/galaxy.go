package sim

import (
	"math"
	"math/rand"
	"time"

	"github.com/pthm-cable/galaxy/config"
)

// Galaxy is a freshly seeded particle state. The three slices have equal length.
type Galaxy struct {
	Positions  []Vec2
	Velocities []Vec2
	Colors     []Vec4
}

// Len returns the particle count.
func (g Galaxy) Len() int {
	return len(g.Positions)
}

// Disc describes one seeded disc.
type Disc struct {
	Center   Vec2
	Rotation float32 // +1 counter-clockwise, -1 clockwise
	Core     Vec4    // Color at the center
	Outer    Vec4    // Color at the rim
}

// GalaxyShape holds the seeding constants shared by both discs.
type GalaxyShape struct {
	Radius        float32
	VelocityScale float32
	Epsilon       float32
	SpeedNoise    float32
	Discs         [2]Disc
}

// DefaultShape returns the shape from the embedded config defaults.
func DefaultShape() GalaxyShape {
	cfg, err := config.Defaults()
	if err != nil {
		panic("sim: embedded defaults are invalid: " + err.Error())
	}
	return ShapeFromConfig(cfg.Galaxy)
}

// ShapeFromConfig builds a shape with discs at (-offset, 0) and (+offset, 0)
// rotating in opposite directions.
func ShapeFromConfig(g config.GalaxyConfig) GalaxyShape {
	d := float32(g.Offset)
	return GalaxyShape{
		Radius:        float32(g.Radius),
		VelocityScale: float32(g.VelocityScale),
		Epsilon:       float32(g.Epsilon),
		SpeedNoise:    float32(g.SpeedNoise),
		Discs: [2]Disc{
			{Center: Vec2{-d, 0}, Rotation: 1, Core: rgb(g.Discs[0].Core), Outer: rgb(g.Discs[0].Outer)},
			{Center: Vec2{d, 0}, Rotation: -1, Core: rgb(g.Discs[1].Core), Outer: rgb(g.Discs[1].Outer)},
		},
	}
}

// NewSeed returns a time-derived seed so successive resets differ.
func NewSeed() int64 {
	return time.Now().UnixNano()
}

// Generate seeds n particles in two counter-rotating discs. The first disc gets
// n/2 particles, the second the remainder. Output is fully determined by
// shape, n and seed. n == 0 yields empty slices.
func (s GalaxyShape) Generate(n uint32, seed int64) Galaxy {
	rng := rand.New(rand.NewSource(seed))

	g := Galaxy{
		Positions:  make([]Vec2, 0, n),
		Velocities: make([]Vec2, 0, n),
		Colors:     make([]Vec4, 0, n),
	}

	half := n / 2
	s.fillDisc(&g, rng, half, s.Discs[0])
	s.fillDisc(&g, rng, n-half, s.Discs[1])
	return g
}

// Generate seeds n particles with the default shape.
func Generate(n uint32, seed int64) Galaxy {
	return DefaultShape().Generate(n, seed)
}

func (s GalaxyShape) fillDisc(g *Galaxy, rng *rand.Rand, count uint32, d Disc) {
	for i := uint32(0); i < count; i++ {
		// sqrt keeps the density uniform over the disc area
		r := float32(math.Sqrt(rng.Float64())) * s.Radius
		theta := rng.Float64() * 2 * math.Pi
		sin, cos := math.Sincos(theta)

		pos := Vec2{
			X: d.Center.X + float32(cos)*r,
			Y: d.Center.Y + float32(sin)*r,
		}

		// Tangential velocity falling off like a simplified rotation curve
		vmag := s.VelocityScale / float32(math.Sqrt(float64(r+s.Epsilon)))
		vmag *= 1 - s.SpeedNoise + rng.Float32()*s.SpeedNoise
		vel := Vec2{
			X: -float32(sin) * vmag * d.Rotation,
			Y: float32(cos) * vmag * d.Rotation,
		}

		t := r / s.Radius
		t = t * t * t
		col := Vec4{
			R: d.Core.R + (d.Outer.R-d.Core.R)*t,
			G: d.Core.G + (d.Outer.G-d.Core.G)*t,
			B: d.Core.B + (d.Outer.B-d.Core.B)*t,
			A: 1,
		}

		g.Positions = append(g.Positions, pos)
		g.Velocities = append(g.Velocities, vel)
		g.Colors = append(g.Colors, col)
	}
}

func rgb(c [3]int) Vec4 {
	return Vec4{
		R: float32(c[0]) / 255,
		G: float32(c[1]) / 255,
		B: float32(c[2]) / 255,
		A: 1,
	}
}
