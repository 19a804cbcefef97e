package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/galaxy/sim"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartEpoch uint32  `csv:"-"`
	Epoch            uint32  `csv:"epoch"`
	SimTimeSec       float64 `csv:"sim_time"`

	// Simulation state at window end
	Particles uint32 `csv:"particles"`
	Capacity  uint32 `csv:"capacity"`
	Seed      int64  `csv:"seed"`

	// Events during window
	Steps   int `csv:"steps"`
	Resets  int `csv:"resets"`
	Resizes int `csv:"resizes"`

	ParticleStats
}

// ParticleStats summarizes a particle snapshot. Every particle has mass 1/n.
type ParticleStats struct {
	KineticEnergy float64 `csv:"kinetic_energy"`
	SpeedMean     float64 `csv:"speed_mean"`
	SpeedStd      float64 `csv:"speed_std"`
	SpeedP10      float64 `csv:"speed_p10"`
	SpeedP50      float64 `csv:"speed_p50"`
	SpeedP90      float64 `csv:"speed_p90"`
	CenterX       float64 `csv:"center_x"`
	CenterY       float64 `csv:"center_y"`
	RadiusRMS     float64 `csv:"radius_rms"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeSpeedStats calculates mean, population std, and percentiles.
func ComputeSpeedStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean, variance := stat.PopMeanVariance(values, nil)
	std = math.Sqrt(variance)

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, std, p10, p50, p90
}

// ComputeParticleStats reduces positions and velocities of n particles.
func ComputeParticleStats(positions, velocities []sim.Vec2) ParticleStats {
	n := min(len(positions), len(velocities))
	if n == 0 {
		return ParticleStats{}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	speeds := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(positions[i].X)
		ys[i] = float64(positions[i].Y)
		vx, vy := float64(velocities[i].X), float64(velocities[i].Y)
		speeds[i] = math.Hypot(vx, vy)
	}

	var s ParticleStats
	s.KineticEnergy = 0.5 * floats.Dot(speeds, speeds) / float64(n)
	s.SpeedMean, s.SpeedStd, s.SpeedP10, s.SpeedP50, s.SpeedP90 = ComputeSpeedStats(speeds)

	s.CenterX = stat.Mean(xs, nil)
	s.CenterY = stat.Mean(ys, nil)
	floats.AddConst(-s.CenterX, xs)
	floats.AddConst(-s.CenterY, ys)
	s.RadiusRMS = math.Sqrt((floats.Dot(xs, xs) + floats.Dot(ys, ys)) / float64(n))

	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartEpoch)),
		slog.Int("epoch", int(s.Epoch)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", int(s.Particles)),
		slog.Int("capacity", int(s.Capacity)),
		slog.Int64("seed", s.Seed),
		slog.Int("steps", s.Steps),
		slog.Int("resets", s.Resets),
		slog.Int("resizes", s.Resizes),
		slog.Float64("kinetic_energy", s.KineticEnergy),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p10", s.SpeedP10),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("center_x", s.CenterX),
		slog.Float64("center_y", s.CenterY),
		slog.Float64("radius_rms", s.RadiusRMS),
	)
}
