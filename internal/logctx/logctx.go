// Package logctx carries a zerolog logger through context.Context.
//
// The HTTP layer attaches a request-scoped logger (request_id, method, path)
// at the edge; the aggregator and ingest paths pull it back out with
// FromContext so every log line of a request shares those fields.
//
//	ctx = logctx.WithLogger(ctx, base)
//	ctx = logctx.WithStr(ctx, "bucket", bucket)
//	logger := logctx.FromContext(ctx)
//	logger.Info().Msg("aggregated")
package logctx

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

var (
	defaultMu     sync.RWMutex
	defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// DefaultLogger returns the process-wide logger used when a context carries none.
func DefaultLogger() zerolog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the process-wide logger. Called once from the CLI
// after flags are parsed.
func SetDefaultLogger(l zerolog.Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the default logger.
// It never returns a disabled zero-value logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr returns a context whose logger has the string field key=value.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithRequest tags the context logger with the fields every request log
// line carries.
func WithRequest(ctx context.Context, requestID, method, path string) context.Context {
	logger := FromContext(ctx).With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()
	return WithLogger(ctx, logger)
}

// NewConfiguredLogger builds the process logger. debug lowers the level to
// Debug; human switches from JSON to a console writer.
func NewConfiguredLogger(w io.Writer, debug, human bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := w
	if human {
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
