// Package logging configures log/slog and derives request-scoped loggers.
//
// Request ids come from chi's RequestID middleware; run ids are attached
// with WithRunID. Loggers taken from a context carry whichever are present.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

// Setup installs a default slog logger writing to w (os.Stderr when nil)
// and returns it.
//
// Level values: "debug", "info", "warn", "error" (default: "info").
// Format values: "text", "json" (default: "text").
//
// The batch CLI logs text to the terminal; the server is usually run with
// "json" so log collectors can parse it.
//
// Usage:
//
//	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, nil)
//	logger.Info("profiles loaded", "count", n)
func Setup(level, format string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a level name to slog.Level. Unknown names are info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
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

type runIDKey struct{}

// WithRunID returns a context carrying a cleaning run id.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run id stored by WithRunID, or "".
func RunID(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// FromContext returns the default logger enriched with the request id and
// run id found in ctx, so every entry of one request or one cleaning run
// can be correlated.
//
// Usage:
//
//	func handleClean(w http.ResponseWriter, r *http.Request) {
//	    logging.FromContext(r.Context()).Info("clean requested", "profile", name)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}
	// Set by core.Service for the duration of a clean
	if runID := RunID(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}

	return logger
}

// WithFields returns FromContext(ctx) with additional structured fields,
// for a logger that carries the same context through a multi-step run.
//
// Usage:
//
//	log := logging.WithFields(ctx, "profile", p.Name)
//	log.Debug("clean started")
//	// ... later ...
//	log.Info("clean finished", "rows_out", n)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
