package telemetry

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/galaxy/config"
	"github.com/pthm-cable/galaxy/sim"
)

// csvFile appends records to a CSV file, writing the header once.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func (c *csvFile) write(records any) error {
	if !c.headerWritten {
		if err := gocsv.Marshal(records, c.f); err != nil {
			return err
		}
		c.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, c.f)
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir       string
	telemetry *csvFile
	perf      *csvFile
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating telemetry.csv: %w", err)
	}
	om.telemetry = &csvFile{f: f}

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.telemetry.f.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perf = &csvFile{f: f}

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteTelemetry writes a window stats record to telemetry.csv.
func (om *OutputManager) WriteTelemetry(stats WindowStats) error {
	if om == nil {
		return nil
	}
	if err := om.telemetry.write([]WindowStats{stats}); err != nil {
		return fmt.Errorf("writing telemetry: %w", err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, epoch uint32) error {
	if om == nil {
		return nil
	}
	if err := om.perf.write([]PerfStatsCSV{stats.ToCSV(epoch)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, c := range []*csvFile{om.telemetry, om.perf} {
		if c == nil {
			continue
		}
		if err := c.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// ParticleRecord is one row of a particle dump.
type ParticleRecord struct {
	Index int     `csv:"index"`
	X     float32 `csv:"x"`
	Y     float32 `csv:"y"`
	VX    float32 `csv:"vx"`
	VY    float32 `csv:"vy"`
	R     float32 `csv:"r"`
	G     float32 `csv:"g"`
	B     float32 `csv:"b"`
	A     float32 `csv:"a"`
}

// WriteParticles writes a galaxy as CSV, one row per particle.
func WriteParticles(w io.Writer, g sim.Galaxy) error {
	records := make([]ParticleRecord, g.Len())
	for i := range records {
		p, v, c := g.Positions[i], g.Velocities[i], g.Colors[i]
		records[i] = ParticleRecord{
			Index: i,
			X:     p.X,
			Y:     p.Y,
			VX:    v.X,
			VY:    v.Y,
			R:     c.R,
			G:     c.G,
			B:     c.B,
			A:     c.A,
		}
	}
	return gocsv.Marshal(records, w)
}

// ReadParticles parses a dump written by WriteParticles.
func ReadParticles(r io.Reader) (sim.Galaxy, error) {
	var records []ParticleRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return sim.Galaxy{}, fmt.Errorf("reading particles: %w", err)
	}
	g := sim.Galaxy{
		Positions:  make([]sim.Vec2, len(records)),
		Velocities: make([]sim.Vec2, len(records)),
		Colors:     make([]sim.Vec4, len(records)),
	}
	for i, rec := range records {
		g.Positions[i] = sim.Vec2{X: rec.X, Y: rec.Y}
		g.Velocities[i] = sim.Vec2{X: rec.VX, Y: rec.VY}
		g.Colors[i] = sim.Vec4{R: rec.R, G: rec.G, B: rec.B, A: rec.A}
	}
	return g, nil
}
