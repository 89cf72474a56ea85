package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// caselineHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<runID>\t<message>\t<key=value ...>
//
// Records at warn level and above are echoed to errw as well.
type caselineHandler struct {
	w     io.Writer
	errw  io.Writer
	runID string
	attrs []slog.Attr
}

func (h *caselineHandler) Enabled(_ context.Context, _ slog.Level) bool { return true }

func (h *caselineHandler) Handle(_ context.Context, r slog.Record) error {
	w := h.w
	if h.errw != nil && r.Level >= slog.LevelWarn {
		w = io.MultiWriter(h.w, h.errw)
	}

	ts := r.Time.UTC().Format("2006-01-02T15:04:05Z")
	level := r.Level.String()

	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s", ts, level, h.runID, r.Message)
	if err != nil {
		return err
	}

	// Write pre-set attrs.
	for _, a := range h.attrs {
		fmt.Fprintf(w, "\t%s=%v", a.Key, a.Value)
	}

	// Write per-record attrs.
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(w, "\t%s=%v", a.Key, a.Value)
		return true
	})

	_, err = fmt.Fprintln(w)
	return err
}

func (h *caselineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &caselineHandler{
		w:     h.w,
		errw:  h.errw,
		runID: h.runID,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *caselineHandler) WithGroup(string) slog.Handler { return h }

// newLogger creates a structured logger that writes to logDir/caseline.log,
// echoing warnings and errors to stderr. It returns the slog.Logger, the open
// log file (for cleanup), and any error.
func newLogger(logDir string, runID string) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, "caseline.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &caselineHandler{w: f, errw: os.Stderr, runID: runID}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the contacts.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
