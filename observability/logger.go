// Package observability implements the engine's pluggable event sinks:
// a level-gated structured logger, counters/histograms, and a span
// tracer. Actual telemetry export endpoints are external collaborators
// (spec.md §1); this package only produces the events.
package observability

import (
	"log/slog"
	"os"
)

const logPrefix = "odbc.engine"

// DefaultLogger is used by engine components when the caller supplies no
// logger of its own, mirroring the teacher's package-level dlog.
var DefaultLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})).
	With(slog.String("component", logPrefix))

// LogQuery emits a structured query event.
func LogQuery(logger *slog.Logger, connID uint32, sql string, err error) {
	if err != nil {
		logger.Error("query failed", slog.Uint64("conn", uint64(connID)), slog.String("sql", sql), slog.Any("err", err))
		return
	}
	logger.Debug("query executed", slog.Uint64("conn", uint64(connID)), slog.String("sql", sql))
}

// LogConnection emits a structured connection lifecycle event.
func LogConnection(logger *slog.Logger, connID uint32, event string) {
	logger.Info(event, slog.Uint64("conn", uint64(connID)))
}

// LogError emits a structured error event not tied to a specific query.
func LogError(logger *slog.Logger, context string, err error) {
	logger.Error(context, slog.Any("err", err))
}

// LogMetric emits a structured metric sample, e.g. for debugging the
// collector itself.
func LogMetric(logger *slog.Logger, name string, value float64) {
	logger.Debug("metric", slog.String("name", name), slog.Float64("value", value))
}
