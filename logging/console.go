package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

var levelTags = map[slog.Level]*color.Color{
	LevelTrace:      color.New(color.FgMagenta),
	slog.LevelDebug: color.New(color.FgBlue),
	slog.LevelInfo:  color.New(color.FgGreen),
	slog.LevelWarn:  color.New(color.FgYellow),
	slog.LevelError: color.New(color.FgRed, color.Bold),
}

// ConsoleHandler writes one colored line per record:
//
//	[INFO] (engine -> controller.go:88) - particles reseeded n=100000
type ConsoleHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	opts   slog.HandlerOptions
	target string
	prefix string // preformatted attrs from WithAttrs
	groups []string
}

// NewConsoleHandler creates a console handler writing to w.
func NewConsoleHandler(w io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	h := &ConsoleHandler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	min := slog.LevelInfo
	if h.opts.Level != nil {
		min = h.opts.Level.Level()
	}
	return level >= min
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer

	buf.WriteString(levelTag(r.Level))
	buf.WriteString(" (")

	target := h.target
	var attrs strings.Builder
	attrs.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == TargetKey && target == "" {
			target = a.Value.String()
			return true
		}
		writeAttr(&attrs, h.groups, a)
		return true
	})
	if target == "" {
		target = "app"
	}
	buf.WriteString(target)

	if h.opts.AddSource && r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		fmt.Fprintf(&buf, " -> %s:%d", filepath.Base(f.File), f.Line)
	}
	buf.WriteString(") - ")
	buf.WriteString(r.Message)
	buf.WriteString(attrs.String())
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		if a.Key == TargetKey && len(h.groups) == 0 {
			clone.target = a.Value.String()
			continue
		}
		writeAttr(&b, h.groups, a)
	}
	clone.prefix = b.String()
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

func levelTag(l slog.Level) string {
	var name string
	var key slog.Level
	switch {
	case l < slog.LevelDebug:
		name, key = "[TRCE]", LevelTrace
	case l < slog.LevelInfo:
		name, key = "[DBUG]", slog.LevelDebug
	case l < slog.LevelWarn:
		name, key = "[INFO]", slog.LevelInfo
	case l < slog.LevelError:
		name, key = "[WARN]", slog.LevelWarn
	default:
		name, key = "[ERRO]", slog.LevelError
	}
	return levelTags[key].Sprint(name)
}

func writeAttr(b *strings.Builder, groups []string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := groups
		if a.Key != "" {
			sub = append(append([]string(nil), groups...), a.Key)
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, sub, ga)
		}
		return
	}

	b.WriteByte(' ')
	for _, g := range groups {
		b.WriteString(g)
		b.WriteByte('.')
	}
	b.WriteString(a.Key)
	b.WriteByte('=')
	switch a.Value.Kind() {
	case slog.KindTime:
		b.WriteString(a.Value.Time().Format(time.RFC3339))
	case slog.KindString:
		s := a.Value.String()
		if strings.ContainsAny(s, " =\"") {
			fmt.Fprintf(b, "%q", s)
		} else {
			b.WriteString(s)
		}
	default:
		b.WriteString(a.Value.String())
	}
}
