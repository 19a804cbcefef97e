// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Sim       SimConfig       `yaml:"sim"`
	Galaxy    GalaxyConfig    `yaml:"galaxy"`
	Shader    ShaderConfig    `yaml:"shader"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Log       LogConfig       `yaml:"log"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int    `yaml:"width"`
	Height    int    `yaml:"height"`
	TargetFPS int    `yaml:"target_fps"`
	Title     string `yaml:"title"`
}

// SimConfig holds the baseline simulation parameters.
// These are the values restored by "reset parameters".
type SimConfig struct {
	InitialParticles int     `yaml:"initial_particles"`
	MaxParticles     int     `yaml:"max_particles"`
	DT               float64 `yaml:"dt"`
	G                float64 `yaml:"g"`
	Softening        float64 `yaml:"softening"`
	Damping          float64 `yaml:"damping"`
	WorldHalfExtent  float64 `yaml:"world_half_extent"` // World is [-h,-h]..[h,h]
	Wrap             bool    `yaml:"wrap"`
	ColorBySpeed     bool    `yaml:"color_by_speed"`
	StartPaused      bool    `yaml:"start_paused"`
}

// GalaxyConfig holds the shape of the two seeded discs.
type GalaxyConfig struct {
	Offset        float64    `yaml:"offset"`         // Disc centers at (-offset, 0) and (+offset, 0)
	Radius        float64    `yaml:"radius"`         // Disc radius
	VelocityScale float64    `yaml:"velocity_scale"` // v = velocity_scale / sqrt(r + epsilon)
	Epsilon       float64    `yaml:"epsilon"`
	SpeedNoise    float64    `yaml:"speed_noise"` // Fractional speed jitter, 0.1 = up to -10%
	Discs         [2]DiscRGB `yaml:"discs"`
}

// DiscRGB holds the core and outskirts colors of one disc, 0-255 per channel.
type DiscRGB struct {
	Core  [3]int `yaml:"core"`
	Outer [3]int `yaml:"outer"`
}

// ShaderConfig holds compute and render stage settings.
type ShaderConfig struct {
	WorkgroupSize int     `yaml:"workgroup_size"`
	PointSize     float64 `yaml:"point_size"` // Screen-space sprite size in pixels
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow     float64 `yaml:"stats_window"`      // Seconds between window stats
	PerfWindow      int     `yaml:"perf_window"`       // Frames averaged by the perf collector
	FrameTimeFrames int     `yaml:"frame_time_frames"` // Frames averaged for the FPS readout
	MetricsAddr     string  `yaml:"metrics_addr"`      // Empty disables the prometheus endpoint
}

// LogConfig holds logging parameters. LOG_LEVEL in the environment overrides Level.
type LogConfig struct {
	Level  string `yaml:"level"`  // e.g. "info,gpu=debug"
	Format string `yaml:"format"` // "json" or "console"
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32          float32 // Sim.DT as float32
	WorldHalf32   float32 // Sim.WorldHalfExtent as float32
	MaxParticles  uint32  // Sim.MaxParticles as uint32
	InitialN      uint32  // Sim.InitialParticles clamped to [1, MaxParticles]
	WorkgroupSize uint32  // Shader.WorkgroupSize as uint32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Set replaces the global configuration. Used after a hot reload.
func Set(cfg *Config) {
	global = cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Defaults returns the embedded default configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	cfg.computeDerived()
	return cfg, nil
}

// validate rejects configurations that cannot start a session.
// Out-of-range simulation values are clamped later, not rejected here.
func (c *Config) validate() error {
	if c.Sim.MaxParticles < 1 {
		return fmt.Errorf("sim.max_particles must be positive, got %d", c.Sim.MaxParticles)
	}
	if c.Shader.WorkgroupSize < 1 || c.Shader.WorkgroupSize > 1024 {
		return fmt.Errorf("shader.workgroup_size must be in [1, 1024], got %d", c.Shader.WorkgroupSize)
	}
	if c.Galaxy.Radius <= 0 {
		return fmt.Errorf("galaxy.radius must be positive, got %g", c.Galaxy.Radius)
	}
	switch c.Log.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got %q", c.Log.Format)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Sim.DT)
	c.Derived.WorldHalf32 = float32(c.Sim.WorldHalfExtent)
	if c.Sim.MaxParticles > 0 {
		c.Derived.MaxParticles = uint32(c.Sim.MaxParticles)
	}

	n := c.Sim.InitialParticles
	if n < 1 {
		n = 1
	}
	if n > c.Sim.MaxParticles {
		n = c.Sim.MaxParticles
	}
	if n > 0 {
		c.Derived.InitialN = uint32(n)
	}

	if c.Shader.WorkgroupSize > 0 {
		c.Derived.WorkgroupSize = uint32(c.Shader.WorkgroupSize)
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
