// Package logging builds the process slog logger. Records are rendered by
// a charmbracelet/log handler in text, JSON or logfmt form.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charm "github.com/charmbracelet/log"
)

// Options configures New.
type Options struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string

	// Format is text, json or logfmt. Empty means text.
	Format string

	// Prefix is printed before every text record.
	Prefix string

	// Timestamps adds the record time to every line.
	Timestamps bool
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	lvl, err := charm.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, fmt.Errorf("logging: %w", err)
	}
	return slog.Level(lvl), nil
}

func formatter(s string) (charm.Formatter, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return charm.TextFormatter, nil
	case "json":
		return charm.JSONFormatter, nil
	case "logfmt":
		return charm.LogfmtFormatter, nil
	default:
		return 0, fmt.Errorf("logging: unknown format %q", s)
	}
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (*slog.Logger, error) {
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	f, err := formatter(opts.Format)
	if err != nil {
		return nil, err
	}

	h := charm.NewWithOptions(w, charm.Options{
		Level:           charm.Level(lvl),
		Formatter:       f,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
		TimeFormat:      time.RFC3339,
	})
	return slog.New(h), nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
