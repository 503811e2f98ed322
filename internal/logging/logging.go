// Package logging builds the structured logger shared by every component.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/byteowlz/a11yscan/internal/config"
)

// MaxContext is the number of runes of a URL or text kept in log attributes.
const MaxContext = 80

// New returns a logger for cfg and a close function for the file sink, if
// any. An unwritable log file falls back to w.
func New(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, func() error, error) {
	closer := func() error { return nil }
	out := w
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return build(w, cfg), closer, fmt.Errorf("open log file: %w", err)
		}
		out = f
		closer = f.Close
	}
	return build(out, cfg), closer, nil
}

func build(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel maps debug|info|warn|error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Truncate shortens s to MaxContext runes for logging. Data URIs are reduced
// to their media type.
func Truncate(s string) string {
	if strings.HasPrefix(s, "data:") {
		if i := strings.IndexAny(s, ";,"); i > 0 {
			return s[:i] + ";…"
		}
	}
	if utf8.RuneCountInString(s) <= MaxContext {
		return s
	}
	r := []rune(s)
	return string(r[:MaxContext]) + "…"
}
