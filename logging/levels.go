// Package logging configures slog for the simulation.
//
// Records are filtered per target: every logger obtained through For carries a
// "target" attribute, and a LOG_LEVEL style spec such as "info,gpu=debug"
// decides the minimum level for each target by longest prefix match.
package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// Extra levels beyond the four slog defines.
const (
	LevelTrace = slog.LevelDebug - 4
	LevelOff   = slog.LevelError + 100
)

// TargetKey is the attribute key carrying a record's target.
const TargetKey = "target"

// Levels maps target prefixes to minimum levels.
type Levels struct {
	def     slog.Level
	entries []levelEntry // sorted by prefix length, longest first
}

type levelEntry struct {
	prefix string
	level  slog.Level
}

// ParseLevel parses a level name. Accepts off, error, warn/warning, info, debug, trace.
func ParseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off":
		return LevelOff, true
	case "error":
		return slog.LevelError, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "info":
		return slog.LevelInfo, true
	case "debug":
		return slog.LevelDebug, true
	case "trace":
		return LevelTrace, true
	}
	return 0, false
}

// ParseLevels parses a comma separated spec. A bare level sets the default;
// "prefix=level" sets the level for targets starting with prefix. Unknown
// level names are ignored. An empty spec yields info for everything.
func ParseLevels(spec string) *Levels {
	l := &Levels{def: slog.LevelInfo}
	seen := make(map[string]int)

	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			if level, ok := ParseLevel(key); ok {
				l.def = level
			}
			continue
		}
		level, ok := ParseLevel(value)
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if i, dup := seen[key]; dup {
			l.entries[i].level = level
			continue
		}
		seen[key] = len(l.entries)
		l.entries = append(l.entries, levelEntry{prefix: key, level: level})
	}

	sort.SliceStable(l.entries, func(i, j int) bool {
		return len(l.entries[i].prefix) > len(l.entries[j].prefix)
	})
	return l
}

// Of returns the minimum level for target.
func (l *Levels) Of(target string) slog.Level {
	for _, e := range l.entries {
		if strings.HasPrefix(target, e.prefix) {
			return e.level
		}
	}
	return l.def
}

// Min returns the lowest level any target may log at.
func (l *Levels) Min() slog.Level {
	min := l.def
	for _, e := range l.entries {
		if e.level < min {
			min = e.level
		}
	}
	return min
}

// Default returns the level used for targets without a matching prefix.
func (l *Levels) Default() slog.Level {
	return l.def
}
