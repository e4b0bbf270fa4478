package eachlabs

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// RequestInfo describes one outbound request. It never carries the API key
// or the body.
type RequestInfo struct {
	Op     string
	Method string
	Path   string

	// StatusCode is set on completion when a response arrived.
	StatusCode int
}

// Observer receives request lifecycle callbacks for logging and metrics.
//
// Implementations should be fast and non-blocking; they run on the
// goroutine that performs the request.
type Observer interface {
	// OnRequestStart is called before the HTTP call is made.
	OnRequestStart(ctx context.Context, info RequestInfo)

	// OnRequestCompleted is called once per request, for both successes and
	// failures (err != nil).
	OnRequestCompleted(ctx context.Context, info RequestInfo, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
type NoopObserver struct{}

func (NoopObserver) OnRequestStart(ctx context.Context, info RequestInfo) {}
func (NoopObserver) OnRequestCompleted(ctx context.Context, info RequestInfo, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnRequestStart(ctx context.Context, info RequestInfo) {
	for _, o := range c.observers {
		o.OnRequestStart(ctx, info)
	}
}

func (c *CompositeObserver) OnRequestCompleted(ctx context.Context, info RequestInfo, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnRequestCompleted(ctx, info, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs request lifecycle events
// using logger. If logger is nil, slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnRequestStart(ctx context.Context, info RequestInfo) {
	o.Logger.DebugContext(ctx, "request_start",
		slog.String("op", info.Op),
		slog.String("method", info.Method),
		slog.String("path", info.Path),
	)
}

func (o *LoggingObserver) OnRequestCompleted(ctx context.Context, info RequestInfo, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "request_completed",
		slog.String("op", info.Op),
		slog.String("method", info.Method),
		slog.String("path", info.Path),
		slog.Int("status_code", info.StatusCode),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics counts requests and aggregates their durations.
type BasicMetrics struct {
	started       atomic.Int64
	succeeded     atomic.Int64
	failed        atomic.Int64
	totalDuration atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	RequestsStarted   int64
	RequestsSucceeded int64
	RequestsFailed    int64
	InFlight          int64

	AvgDuration time.Duration
}

func (m *BasicMetrics) OnRequestStart(ctx context.Context, info RequestInfo) {
	m.started.Add(1)
}

func (m *BasicMetrics) OnRequestCompleted(ctx context.Context, info RequestInfo, err error, d time.Duration) {
	if err != nil {
		m.failed.Add(1)
	} else {
		m.succeeded.Add(1)
	}
	m.totalDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.started.Load()
	ok := m.succeeded.Load()
	failed := m.failed.Load()
	totalNs := m.totalDuration.Load()

	var avg time.Duration
	if done := ok + failed; done > 0 {
		avg = time.Duration(totalNs / done)
	}

	return BasicMetricsSnapshot{
		RequestsStarted:   started,
		RequestsSucceeded: ok,
		RequestsFailed:    failed,
		InFlight:          started - ok - failed,
		AvgDuration:       avg,
	}
}
