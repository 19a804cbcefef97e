package telemetry

import "time"

// FrameTimer averages wall-clock frame times over the last few frames for the
// HUD's FPS readout.
type FrameTimer struct {
	window []time.Duration
	next   int
	count  int
	last   time.Time

	now func() time.Time
}

// NewFrameTimer averages over the last frames frames (at least 1).
func NewFrameTimer(frames int) *FrameTimer {
	if frames < 1 {
		frames = 1
	}
	return &FrameTimer{
		window: make([]time.Duration, frames),
		now:    time.Now,
	}
}

// Tick marks the start of a frame. The first call only records the time.
func (t *FrameTimer) Tick() {
	now := t.now()
	if !t.last.IsZero() {
		t.window[t.next] = now.Sub(t.last)
		t.next = (t.next + 1) % len(t.window)
		if t.count < len(t.window) {
			t.count++
		}
	}
	t.last = now
}

// FrameTime returns the average frame duration, or 0 before two ticks.
func (t *FrameTimer) FrameTime() time.Duration {
	if t.count == 0 {
		return 0
	}
	var sum time.Duration
	for i := 0; i < t.count; i++ {
		sum += t.window[i]
	}
	return sum / time.Duration(t.count)
}

// FPS returns frames per second from the averaged frame time.
func (t *FrameTimer) FPS() float64 {
	ft := t.FrameTime()
	if ft <= 0 {
		return 0
	}
	return float64(time.Second) / float64(ft)
}
