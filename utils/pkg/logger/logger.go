package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Format selects the log encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Options configures a logger built with NewWithOptions. Level, when set,
// takes precedence over Verbose.
type Options struct {
	Verbose bool
	Level   slog.Leveler
	Format  Format
	NoColor bool
}

func New(verbose bool) *slog.Logger {
	return NewWithOptions(os.Stdout, Options{Verbose: verbose})
}

// NewWithOptions builds a logger writing to w. Text output goes through tint;
// JSON output uses the same UTC millisecond timestamps.
func NewWithOptions(w io.Writer, opts Options) *slog.Logger {
	var logLevel slog.Leveler = slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	if opts.Level != nil {
		logLevel = opts.Level
	}
	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       logLevel,
			ReplaceAttr: replaceAttr,
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:       logLevel,
		NoColor:     opts.NoColor,
		ReplaceAttr: replaceAttr,
	}))
}

// ParseFormat accepts "" as text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	}
	return "", fmt.Errorf("unknown log format %q", s)
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey {
		t := a.Value.Time().UTC()
		a.Value = slog.StringValue(formatRFC3339Millis(t))
	}
	if s, ok := a.Value.Any().(string); ok && s == "" {
		return slog.Attr{}
	}
	return a
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
