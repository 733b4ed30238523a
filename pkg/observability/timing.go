package observability

import (
	"log/slog"
	"time"
)

// Timer measures one operation and reports the outcome to an optional
// logger and metrics collector.
type Timer struct {
	operation string
	start     time.Time
	logger    *slog.Logger
	metrics   Metrics
	tags      []Tag
}

// StartTimer begins timing the named operation.
func StartTimer(operation string) *Timer {
	return &Timer{operation: operation, start: time.Now()}
}

// WithLogger makes the timer log a completion record when stopped.
func (t *Timer) WithLogger(logger *slog.Logger) *Timer {
	t.logger = logger
	return t
}

// WithMetrics makes the timer record counters and a duration sample when
// stopped.
func (t *Timer) WithMetrics(metrics Metrics) *Timer {
	t.metrics = metrics
	return t
}

// WithTags adds labels to the recorded metrics.
func (t *Timer) WithTags(tags ...Tag) *Timer {
	t.tags = append(t.tags, tags...)
	return t
}

// Stop records a successful completion.
func (t *Timer) Stop() time.Duration {
	return t.StopWithError(nil)
}

// StopWithError records the duration, tagging the outcome as failed when
// err is non-nil.
func (t *Timer) StopWithError(err error) time.Duration {
	elapsed := time.Since(t.start)

	if t.logger != nil {
		args := []any{"operation", t.operation, "duration_ms", elapsed.Milliseconds()}
		if err != nil {
			t.logger.Error("operation failed", append(args, ErrorKey, err.Error())...)
		} else {
			t.logger.Info("operation completed", args...)
		}
	}

	if t.metrics != nil {
		tags := append(t.tags, T("operation", t.operation))
		t.metrics.Counter(MetricOperationTotal, 1, tags...)
		t.metrics.Timing(MetricOperationDuration, elapsed, tags...)
		if err != nil {
			t.metrics.Counter(MetricOperationErrors, 1, tags...)
		}
	}

	return elapsed
}

// Elapsed reports the running duration without stopping the timer.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
