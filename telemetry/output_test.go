package telemetry

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/sim"
)

func TestOutputManager_Disabled(t *testing.T) {
	om, err := NewOutputManager("")
	require.NoError(t, err)
	assert.Nil(t, om)

	// All methods are nil-safe.
	assert.NoError(t, om.WriteTelemetry(WindowStats{}))
	assert.NoError(t, om.WritePerf(PerfStats{}, 0))
	assert.NoError(t, om.WriteConfig(nil))
	assert.Equal(t, "", om.Dir())
	assert.NoError(t, om.Close())
}

func TestOutputManager_WritesCSV(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "run")
	om, err := NewOutputManager(dir)
	require.NoError(t, err)

	require.NoError(t, om.WriteTelemetry(WindowStats{Epoch: 100, Particles: 1024, Steps: 100}))
	require.NoError(t, om.WriteTelemetry(WindowStats{Epoch: 200, Particles: 1024, Steps: 100}))
	require.NoError(t, om.WritePerf(PerfStats{AvgFrameDuration: time.Millisecond}, 200))

	cfg, err := config.Defaults()
	require.NoError(t, err)
	require.NoError(t, om.WriteConfig(cfg))
	require.NoError(t, om.Close())

	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3, "header plus two rows")
	assert.True(t, strings.HasPrefix(lines[0], "epoch,sim_time,particles"))
	assert.True(t, strings.HasPrefix(lines[1], "100,"))
	assert.True(t, strings.HasPrefix(lines[2], "200,"))

	data, err = os.ReadFile(filepath.Join(dir, "perf.csv"))
	require.NoError(t, err)
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], "200,1000,"))

	loaded, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg.Sim, loaded.Sim)
}

func TestParticleDumpRoundTrip(t *testing.T) {
	g := sim.Generate(64, 99)

	var buf bytes.Buffer
	require.NoError(t, WriteParticles(&buf, g))

	got, err := ReadParticles(&buf)
	require.NoError(t, err)
	require.Equal(t, g.Len(), got.Len())
	for i := 0; i < g.Len(); i++ {
		assert.InDelta(t, g.Positions[i].X, got.Positions[i].X, 1e-5)
		assert.InDelta(t, g.Velocities[i].Y, got.Velocities[i].Y, 1e-5)
		assert.InDelta(t, g.Colors[i].R, got.Colors[i].R, 1e-5)
	}
}

func TestReadParticles_Malformed(t *testing.T) {
	_, err := ReadParticles(strings.NewReader("index,x\n0,not-a-number\n"))
	assert.Error(t, err)
}

func TestMetrics_Observe(t *testing.T) {
	m := NewMetrics()

	m.ObserveWindow(WindowStats{
		Epoch:         500,
		Particles:     4096,
		Capacity:      8192,
		ParticleStats: ParticleStats{KineticEnergy: 0.25, SpeedMean: 1.5},
	})
	m.ObservePerf(PerfStats{PhaseAvg: map[string]time.Duration{PhaseSimulate: 2 * time.Millisecond}})
	m.Steps.Add(3)
	m.Events.WithLabelValues("reset").Inc()

	assert.Equal(t, 4096.0, testutil.ToFloat64(m.Particles))
	assert.Equal(t, 8192.0, testutil.ToFloat64(m.Capacity))
	assert.Equal(t, 500.0, testutil.ToFloat64(m.Epoch))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Steps))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Events.WithLabelValues("reset")))
	assert.Equal(t, 0.25, testutil.ToFloat64(m.ParticleStats.WithLabelValues("kinetic_energy")))
	assert.Equal(t, 1.5, testutil.ToFloat64(m.ParticleStats.WithLabelValues("speed_mean")))
	assert.InDelta(t, 0.002, testutil.ToFloat64(m.PhaseSeconds.WithLabelValues(PhaseSimulate)), 1e-9)

	n, err := testutil.GatherAndCount(m.Registry(), "galaxy_particles", "galaxy_steps_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveWindow(WindowStats{})
		m.ObservePerf(PerfStats{})
	})
}
