package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// TargetHandler filters records by their target before handing them to an
// inner handler.
type TargetHandler struct {
	inner  slog.Handler
	levels *Levels
	target string
}

// NewTargetHandler wraps inner with per-target level filtering.
func NewTargetHandler(inner slog.Handler, levels *Levels) *TargetHandler {
	if levels == nil {
		levels = ParseLevels("")
	}
	return &TargetHandler{inner: inner, levels: levels}
}

// Enabled reports whether a record at level could pass the filter.
// Without a known target the most permissive configured level applies and
// Handle does the exact check.
func (h *TargetHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.target != "" {
		return level >= h.levels.Of(h.target) && h.inner.Enabled(ctx, level)
	}
	return level >= h.levels.Min() && h.inner.Enabled(ctx, level)
}

// Handle drops records below their target's level.
func (h *TargetHandler) Handle(ctx context.Context, r slog.Record) error {
	target := h.target
	if target == "" {
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == TargetKey {
				target = a.Value.String()
				return false
			}
			return true
		})
	}
	if r.Level < h.levels.Of(target) {
		return nil
	}
	return h.inner.Handle(ctx, r)
}

// WithAttrs records the target if attrs carry one.
func (h *TargetHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	for _, a := range attrs {
		if a.Key == TargetKey {
			clone.target = a.Value.String()
		}
	}
	clone.inner = h.inner.WithAttrs(attrs)
	return &clone
}

// WithGroup opens a group on the inner handler.
func (h *TargetHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.inner = h.inner.WithGroup(name)
	return &clone
}

// Options configures Setup.
type Options struct {
	Format string // "json" (default) or "console"
	Spec   string // level spec, see ParseLevels
	Writer io.Writer
}

// New builds a logger from opts without installing it.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	levels := ParseLevels(opts.Spec)

	// The inner handler passes everything; TargetHandler does the filtering.
	handlerOpts := &slog.HandlerOptions{Level: LevelTrace, AddSource: opts.Format == "console"}

	var inner slog.Handler
	switch opts.Format {
	case "console":
		inner = NewConsoleHandler(w, handlerOpts)
	default:
		inner = slog.NewJSONHandler(w, handlerOpts)
	}
	return slog.New(NewTargetHandler(inner, levels))
}

// Setup builds a logger from opts and installs it as the slog default.
// The LOG_LEVEL environment variable, when set, overrides opts.Spec.
func Setup(opts Options) *slog.Logger {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		opts.Spec = env
	}
	logger := New(opts)
	slog.SetDefault(logger)
	logger.Info("logger initialized", TargetKey, "logging", "format", formatName(opts.Format))
	return logger
}

// For returns the default logger tagged with target.
func For(target string) *slog.Logger {
	return slog.Default().With(TargetKey, target)
}

func formatName(f string) string {
	if f == "" {
		return "json"
	}
	return f
}
