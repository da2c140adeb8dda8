package lis

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	apperrors "lisstat/internal/errors"
)

const instrumentationName = "lisstat/internal/lis"

// scanMetrics are recorded once per scan against the global meter provider.
type scanMetrics struct {
	scans    metric.Int64Counter
	duration metric.Float64Histogram
	lines    metric.Int64Counter
	rows     metric.Int64Counter
}

func newScanMetrics(meter metric.Meter) *scanMetrics {
	m := &scanMetrics{}
	var err error
	// Instrument creation only fails on invalid names; the no-op fallbacks keep scans working.
	if m.scans, err = meter.Int64Counter("lis_scans_total",
		metric.WithDescription("Report scans by operation and outcome")); err != nil {
		otel.Handle(err)
	}
	if m.duration, err = meter.Float64Histogram("lis_scan_duration_seconds",
		metric.WithDescription("Wall time of one report scan"),
		metric.WithUnit("s")); err != nil {
		otel.Handle(err)
	}
	if m.lines, err = meter.Int64Counter("lis_lines_scanned_total",
		metric.WithDescription("Report lines read by scans")); err != nil {
		otel.Handle(err)
	}
	if m.rows, err = meter.Int64Counter("lis_table_rows_decoded_total",
		metric.WithDescription("Distribution table rows decoded")); err != nil {
		otel.Handle(err)
	}
	return m
}

func (m *scanMetrics) record(ctx context.Context, op string, elapsed time.Duration, lines int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome(err)),
	)
	if m.scans != nil {
		m.scans.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
	if m.lines != nil {
		m.lines.Add(ctx, int64(lines), metric.WithAttributes(attribute.String("operation", op)))
	}
}

func (m *scanMetrics) recordRows(ctx context.Context, kind string, n int) {
	if m.rows != nil {
		m.rows.Add(ctx, int64(n), metric.WithAttributes(attribute.String("kind", kind)))
	}
}

// outcome buckets an error for metric labels.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	switch apperrors.TypeOf(err) {
	case apperrors.ErrTypeNotFound:
		return "not_found"
	case apperrors.ErrTypeParsing:
		return "parse_error"
	case apperrors.ErrTypeValidation:
		return "invalid"
	}
	return "error"
}
