// Package logs builds the slog logger shared by the engine and the CLI.
package logs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"jscore/pkg/config"

	"github.com/pkg/errors"
	slogmulti "github.com/samber/slog-multi"
)

// Logger is a running logger plus the resources behind it.
type Logger struct {
	*slog.Logger
	Level *slog.LevelVar
	file  *os.File
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Handler tags every record with the component that produced it.
type Handler struct {
	slog.Handler
	Component string
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if h.Component != "" {
		record.Add("component", h.Component)
	}
	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{Handler: h.Handler.WithAttrs(attrs), Component: h.Component}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{Handler: h.Handler.WithGroup(name), Component: h.Component}
}

// ParseLevel maps a config level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, errors.Errorf("unknown log level %q", name)
}

// New builds a logger writing to w in the configured format, fanned out to
// a JSON file when one is configured.
func New(cfg config.Log, w io.Writer, component string) (*Logger, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	opts := &slog.HandlerOptions{Level: level}

	var handlers []slog.Handler
	if cfg.Format == "json" {
		handlers = append(handlers, slog.NewJSONHandler(w, opts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(w, opts))
	}

	var file *os.File
	if cfg.File != "" {
		file, err = os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "open log file %s", cfg.File)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, opts))
	}

	return &Logger{
		Logger: slog.New(&Handler{
			Handler:   slogmulti.Fanout(handlers...),
			Component: component,
		}),
		Level: level,
		file:  file,
	}, nil
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
