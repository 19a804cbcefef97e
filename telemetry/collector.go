package telemetry

// Collector accumulates events within simulated-time windows and produces
// WindowStats.
type Collector struct {
	windowDurationSec float64

	// Current window tracking
	windowStartEpoch uint32
	windowSimTime    float64
	simTime          float64

	// Event counters for current window
	steps   int
	resets  int
	resizes int
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds.
func NewCollector(windowDurationSec float64) *Collector {
	if windowDurationSec <= 0 {
		windowDurationSec = 5
	}
	return &Collector{windowDurationSec: windowDurationSec}
}

// RecordStep records one completed step of dt simulated seconds.
func (c *Collector) RecordStep(dt float32) {
	c.steps++
	c.simTime += float64(dt)
	c.windowSimTime += float64(dt)
}

// RecordReset records a reseed at the current particle count.
func (c *Collector) RecordReset() {
	c.resets++
}

// RecordResize records a particle count change.
func (c *Collector) RecordResize() {
	c.resizes++
}

// SimTime returns the simulated seconds since the collector started.
func (c *Collector) SimTime() float64 {
	return c.simTime
}

// ShouldFlush returns true once the current window has covered its duration.
func (c *Collector) ShouldFlush() bool {
	return c.windowSimTime >= c.windowDurationSec
}

// Flush produces stats for the current window and starts a new one.
// particles carries the snapshot statistics taken at window end.
func (c *Collector) Flush(epoch, n, capacity uint32, seed int64, particles ParticleStats) WindowStats {
	s := WindowStats{
		WindowStartEpoch: c.windowStartEpoch,
		Epoch:            epoch,
		SimTimeSec:       c.simTime,
		Particles:        n,
		Capacity:         capacity,
		Seed:             seed,
		Steps:            c.steps,
		Resets:           c.resets,
		Resizes:          c.resizes,
		ParticleStats:    particles,
	}

	c.windowStartEpoch = epoch
	c.windowSimTime = 0
	c.steps = 0
	c.resets = 0
	c.resizes = 0
	return s
}
