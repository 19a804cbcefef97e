package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pthm-cable/galaxy/logging"
)

// Metrics exposes simulation gauges and counters to Prometheus.
type Metrics struct {
	registry *prometheus.Registry

	Particles     prometheus.Gauge
	Capacity      prometheus.Gauge
	Epoch         prometheus.Gauge
	Steps         prometheus.Counter
	Events        *prometheus.CounterVec
	FrameSeconds  prometheus.Histogram
	PhaseSeconds  *prometheus.GaugeVec
	ParticleStats *prometheus.GaugeVec
}

// NewMetrics registers the simulation metrics on a fresh registry, together
// with the Go runtime collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Particles: f.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_particles",
			Help: "Active particle count",
		}),
		Capacity: f.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_capacity",
			Help: "Allocated particle slots",
		}),
		Epoch: f.NewGauge(prometheus.GaugeOpts{
			Name: "galaxy_epoch",
			Help: "Steps since the last reseed",
		}),
		Steps: f.NewCounter(prometheus.CounterOpts{
			Name: "galaxy_steps_total",
			Help: "Simulation steps executed",
		}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "galaxy_events_total",
			Help: "Controller events by type",
		}, []string{"type"}),
		FrameSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "galaxy_frame_seconds",
			Help:    "Wall time per frame",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		PhaseSeconds: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galaxy_phase_seconds",
			Help: "Average wall time per frame phase over the perf window",
		}, []string{"phase"}),
		ParticleStats: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "galaxy_particle_stats",
			Help: "Particle snapshot statistics by type",
		}, []string{"type"}),
	}
}

// Registry returns the registry the metrics live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveWindow publishes window statistics.
func (m *Metrics) ObserveWindow(s WindowStats) {
	if m == nil {
		return
	}
	m.Particles.Set(float64(s.Particles))
	m.Capacity.Set(float64(s.Capacity))
	m.Epoch.Set(float64(s.Epoch))
	for name, v := range map[string]float64{
		"kinetic_energy": s.KineticEnergy,
		"speed_mean":     s.SpeedMean,
		"speed_p10":      s.SpeedP10,
		"speed_p50":      s.SpeedP50,
		"speed_p90":      s.SpeedP90,
		"center_x":       s.CenterX,
		"center_y":       s.CenterY,
		"radius_rms":     s.RadiusRMS,
	} {
		m.ParticleStats.WithLabelValues(name).Set(v)
	}
}

// ObservePerf publishes the perf window's phase averages.
func (m *Metrics) ObservePerf(s PerfStats) {
	if m == nil {
		return
	}
	for phase, d := range s.PhaseAvg {
		m.PhaseSeconds.WithLabelValues(phase).Set(d.Seconds())
	}
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	log := logging.For("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics endpoint listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
