// Package observability provides structured logging, metrics, and
// tracing for the workflow engine.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds workspace context to a logger.
func EnrichLogger(logger *slog.Logger, workspaceID, nodeID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("workspace_id", workspaceID),
		slog.String("node_id", nodeID),
	)
}

// LogSubmit logs a generation job submission.
func LogSubmit(logger *slog.Logger, nodeID, kind, model, jobID string) {
	if logger == nil {
		return
	}
	logger.Info("generation submitted",
		slog.String("node_id", nodeID),
		slog.String("kind", kind),
		slog.String("model", model),
		slog.String("job_id", jobID),
	)
}

// LogPoll logs one poll of a remote job.
func LogPoll(logger *slog.Logger, nodeID, jobID string, state string, progress int) {
	if logger == nil {
		return
	}
	logger.Debug("job polled",
		slog.String("node_id", nodeID),
		slog.String("job_id", jobID),
		slog.String("state", state),
		slog.Int("progress", progress),
	)
}

// LogPollRetry logs a transient poll failure and the scheduled retry.
func LogPollRetry(logger *slog.Logger, nodeID string, consecutive int, delay time.Duration, err error) {
	if logger == nil {
		return
	}
	logger.Warn("poll failed, retrying",
		slog.String("node_id", nodeID),
		slog.Int("consecutive_errors", consecutive),
		slog.Duration("retry_in", delay),
		slog.String("error", err.Error()),
	)
}

// LogGenerationComplete logs successful generation completion.
func LogGenerationComplete(logger *slog.Logger, nodeID, outputURL string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("generation completed",
		slog.String("node_id", nodeID),
		slog.String("output_url", outputURL),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogGenerationFailed logs terminal generation failure.
func LogGenerationFailed(logger *slog.Logger, nodeID, message string) {
	if logger == nil {
		return
	}
	logger.Error("generation failed",
		slog.String("node_id", nodeID),
		slog.String("error", message),
	)
}

// LogRecovery logs a poller restarted for an in-flight job found during
// workspace load.
func LogRecovery(logger *slog.Logger, nodeID, jobID string) {
	if logger == nil {
		return
	}
	logger.Info("resuming poll for in-flight job",
		slog.String("node_id", nodeID),
		slog.String("job_id", jobID),
	)
}

// LogSaveError logs a failed workspace save (non-fatal, dirty flag stays set).
func LogSaveError(logger *slog.Logger, workspaceID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("workspace save failed",
		slog.String("workspace_id", workspaceID),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
