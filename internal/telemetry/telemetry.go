// Package telemetry wraps OpenTelemetry tracing and metrics for the
// embed/extract/verify and streaming operations, the way
// Mindburn-Labs-helm/core/pkg/observability.Provider wraps tracer and
// meter construction around log/slog. Unlike that teacher package,
// this one owns no exporter lifecycle: it is embedded in a caller's
// process, not a standalone service, so it calls otel.Tracer/otel.Meter
// against whatever global TracerProvider/MeterProvider the host
// process has configured (or the no-op default if none has).
package telemetry

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/inkmark/inkmark"

// Recorder groups the counters this module records, lazily initialized
// against the process-global MeterProvider on first use so that a host
// process which configures its provider after package init still gets
// real instruments.
type Recorder struct {
	once     sync.Once
	attempts metric.Int64Counter
	failures metric.Int64Counter
	bytes    metric.Int64Counter
	logger   *slog.Logger
}

// Default is the package-level recorder used by pkg/watermark and
// pkg/stream unless a caller wires its own.
var Default = &Recorder{logger: slog.Default().With("component", "inkmark")}

func (r *Recorder) init() {
	r.once.Do(func() {
		meter := otel.Meter(instrumentationName)
		var err error
		if r.attempts, err = meter.Int64Counter("inkmark.operations"); err != nil {
			r.logger.Warn("telemetry: failed to create operations counter", "error", err)
		}
		if r.failures, err = meter.Int64Counter("inkmark.failures"); err != nil {
			r.logger.Warn("telemetry: failed to create failures counter", "error", err)
		}
		if r.bytes, err = meter.Int64Counter("inkmark.envelope_bytes"); err != nil {
			r.logger.Warn("telemetry: failed to create envelope_bytes counter", "error", err)
		}
	})
}

// Tracer returns the process-global tracer for this module.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// RecordAttempt increments the operation counter for op ("embed",
// "extract", "verify", "stream_process", "stream_finalize").
func (r *Recorder) RecordAttempt(ctx context.Context, op string) {
	r.init()
	if r.attempts != nil {
		r.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}

// RecordFailure increments the failure counter for op, tagged with the
// werrors.Kind (or verification-failure kind) string.
func (r *Recorder) RecordFailure(ctx context.Context, op, kind string) {
	r.init()
	if r.failures != nil {
		r.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("kind", kind),
		))
	}
	r.logger.WarnContext(ctx, "inkmark operation failed", "op", op, "kind", kind)
}

// RecordBytes records the number of envelope bytes embedded.
func (r *Recorder) RecordBytes(ctx context.Context, n int) {
	r.init()
	if r.bytes != nil {
		r.bytes.Add(ctx, int64(n))
	}
}
