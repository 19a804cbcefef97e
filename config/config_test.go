package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults() error: %v", err)
	}

	if cfg.Sim.InitialParticles != 100000 {
		t.Errorf("initial_particles = %d, want 100000", cfg.Sim.InitialParticles)
	}
	if cfg.Sim.MaxParticles != 1000000 {
		t.Errorf("max_particles = %d, want 1000000", cfg.Sim.MaxParticles)
	}
	if cfg.Shader.WorkgroupSize != 64 {
		t.Errorf("workgroup_size = %d, want 64", cfg.Shader.WorkgroupSize)
	}
	if !cfg.Sim.Wrap || !cfg.Sim.StartPaused {
		t.Error("expected wrap and start_paused to default to true")
	}
	if cfg.Galaxy.Discs[0].Core != [3]int{255, 128, 0} {
		t.Errorf("disc 0 core = %v, want orange", cfg.Galaxy.Discs[0].Core)
	}
	if cfg.Derived.InitialN != 100000 || cfg.Derived.WorkgroupSize != 64 {
		t.Errorf("derived = %+v", cfg.Derived)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	overlay := "sim:\n  initial_particles: 5000\n  wrap: false\n"
	if err := os.WriteFile(path, []byte(overlay), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Sim.InitialParticles != 5000 {
		t.Errorf("initial_particles = %d, want 5000", cfg.Sim.InitialParticles)
	}
	if cfg.Sim.Wrap {
		t.Error("wrap should be overridden to false")
	}
	// Untouched fields keep their defaults
	if cfg.Sim.Damping != 0.999 {
		t.Errorf("damping = %v, want default 0.999", cfg.Sim.Damping)
	}
}

func TestLoadClampsInitialParticles(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
		want    uint32
	}{
		{"zero", "sim:\n  initial_particles: 0\n", 1},
		{"above max", "sim:\n  initial_particles: 50\n  max_particles: 10\n", 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.overlay), 0644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error: %v", err)
			}
			if cfg.Derived.InitialN != tt.want {
				t.Errorf("InitialN = %d, want %d", cfg.Derived.InitialN, tt.want)
			}
		})
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		overlay string
	}{
		{"no particles", "sim:\n  max_particles: 0\n"},
		{"workgroup too large", "shader:\n  workgroup_size: 4096\n"},
		{"bad log format", "log:\n  format: xml\n"},
		{"bad radius", "galaxy:\n  radius: 0\n"},
		{"bad yaml", "sim: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.overlay), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestWriteYAMLRoundtrip(t *testing.T) {
	cfg, err := Defaults()
	if err != nil {
		t.Fatal(err)
	}
	cfg.Sim.G = -3.5

	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML() error: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Sim.G != -3.5 {
		t.Errorf("g = %v, want -3.5", loaded.Sim.G)
	}
}

func TestCfgPanicsBeforeInit(t *testing.T) {
	prev := global
	global = nil
	defer func() { global = prev }()

	defer func() {
		if recover() == nil {
			t.Error("expected Cfg() to panic before Init()")
		}
	}()
	Cfg()
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("sim:\n  g: -1.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 20*time.Millisecond, func(cfg *Config, err error) {
			if err != nil {
				return
			}
			select {
			case reloaded <- cfg:
			default:
			}
		})
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("sim:\n  g: -7.0\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Sim.G != -7.0 {
			t.Errorf("reloaded g = %v, want -7.0", cfg.Sim.G)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() returned %v", err)
	}
}
