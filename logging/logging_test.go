package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestParseLevels(t *testing.T) {
	levels := ParseLevels("warn, gpu=debug, gpu.kernel=trace, engine=bogus, ui=off")

	tests := []struct {
		target string
		want   slog.Level
	}{
		{"", slog.LevelWarn},
		{"telemetry", slog.LevelWarn},
		{"gpu", slog.LevelDebug},
		{"gpu.storage", slog.LevelDebug},
		{"gpu.kernel", LevelTrace},
		{"engine", slog.LevelWarn}, // unknown level name ignored
		{"ui", LevelOff},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			if got := levels.Of(tt.target); got != tt.want {
				t.Errorf("Of(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}

	if levels.Min() != LevelTrace {
		t.Errorf("Min() = %v, want trace", levels.Min())
	}
}

func TestParseLevelsEmpty(t *testing.T) {
	levels := ParseLevels("")
	if levels.Default() != slog.LevelInfo {
		t.Errorf("default = %v, want info", levels.Default())
	}
	if levels.Of("anything") != slog.LevelInfo {
		t.Error("expected info for unknown target")
	}
}

func TestParseLevelsDuplicatePrefix(t *testing.T) {
	levels := ParseLevels("gpu=error,gpu=debug")
	if got := levels.Of("gpu"); got != slog.LevelDebug {
		t.Errorf("Of(gpu) = %v, want last setting debug", got)
	}
}

func TestTargetHandlerFilters(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: "json", Spec: "warn,engine=debug", Writer: &buf})

	logger.With(TargetKey, "engine").Debug("engine debug")
	logger.With(TargetKey, "gpu").Info("gpu info")
	logger.Info("inline target", TargetKey, "engine")
	logger.Error("untargeted error")

	out := buf.String()
	if !strings.Contains(out, "engine debug") {
		t.Error("expected engine debug record to pass")
	}
	if strings.Contains(out, "gpu info") {
		t.Error("expected gpu info record to be filtered")
	}
	if !strings.Contains(out, "inline target") {
		t.Error("expected record with inline target attr to pass")
	}
	if !strings.Contains(out, "untargeted error") {
		t.Error("expected error record to pass default level")
	}
}

func TestTargetHandlerEnabled(t *testing.T) {
	h := NewTargetHandler(slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: LevelTrace}), ParseLevels("error,gpu=debug"))

	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("untargeted handler should allow the most permissive level")
	}
	scoped := h.WithAttrs([]slog.Attr{slog.String(TargetKey, "engine")})
	if scoped.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("engine target should be limited to error")
	}
}

func TestConsoleHandlerFormat(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	var buf bytes.Buffer
	logger := New(Options{Format: "console", Spec: "trace", Writer: &buf})

	logger.With(TargetKey, "engine").Info("particles reseeded", "n", 100, "label", "two words")
	logger.WithGroup("stats").Warn("window", slog.Int("epoch", 7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[0], "[INFO] (engine -> ") {
		t.Errorf("unexpected prefix: %q", lines[0])
	}
	if !strings.Contains(lines[0], "particles reseeded n=100 label=\"two words\"") {
		t.Errorf("unexpected body: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "[WARN] (app") || !strings.Contains(lines[1], "stats.epoch=7") {
		t.Errorf("unexpected grouped line: %q", lines[1])
	}
}
