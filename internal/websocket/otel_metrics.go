package websocket

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "lisstat/internal/websocket"
)

// OTelMetrics provides OpenTelemetry metrics for batch streams
type OTelMetrics struct {
	streamsTotal   metric.Int64Counter
	streamsActive  metric.Int64UpDownCounter
	streamDuration metric.Float64Histogram
	messagesTotal  metric.Int64Counter
	messageBytes   metric.Int64Counter
	messageErrors  metric.Int64Counter
}

// NewOTelMetrics creates the stream instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithMeter(otel.Meter(meterName))
}

// NewOTelMetricsWithMeter creates the stream instruments on meter
func NewOTelMetricsWithMeter(meter metric.Meter) (*OTelMetrics, error) {
	streamsTotal, err := meter.Int64Counter(
		"websocket_streams_total",
		metric.WithDescription("Total number of batch streams by outcome"),
	)
	if err != nil {
		return nil, err
	}

	streamsActive, err := meter.Int64UpDownCounter(
		"websocket_streams_active",
		metric.WithDescription("Number of batch streams in progress"),
	)
	if err != nil {
		return nil, err
	}

	streamDuration, err := meter.Float64Histogram(
		"websocket_stream_duration_seconds",
		metric.WithDescription("Duration of batch streams"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	messagesTotal, err := meter.Int64Counter(
		"websocket_messages_total",
		metric.WithDescription("Total number of WebSocket messages sent"),
	)
	if err != nil {
		return nil, err
	}

	messageBytes, err := meter.Int64Counter(
		"websocket_message_bytes_total",
		metric.WithDescription("Total bytes of WebSocket messages sent"),
	)
	if err != nil {
		return nil, err
	}

	messageErrors, err := meter.Int64Counter(
		"websocket_message_errors_total",
		metric.WithDescription("Total number of failed WebSocket writes"),
	)
	if err != nil {
		return nil, err
	}

	return &OTelMetrics{
		streamsTotal:   streamsTotal,
		streamsActive:  streamsActive,
		streamDuration: streamDuration,
		messagesTotal:  messagesTotal,
		messageBytes:   messageBytes,
		messageErrors:  messageErrors,
	}, nil
}

// StreamStarted records a new stream
func (m *OTelMetrics) StreamStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.streamsActive.Add(ctx, 1)
}

// StreamEnded records a finished stream
func (m *OTelMetrics) StreamEnded(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.streamsActive.Add(ctx, -1)
	m.streamsTotal.Add(ctx, 1, attrs)
	m.streamDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordMessageSent records an outbound message
func (m *OTelMetrics) RecordMessageSent(ctx context.Context, messageType string, size int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("message_type", messageType))
	m.messagesTotal.Add(ctx, 1, attrs)
	m.messageBytes.Add(ctx, int64(size), attrs)
}

// RecordMessageError records a failed write
func (m *OTelMetrics) RecordMessageError(ctx context.Context, messageType string) {
	if m == nil {
		return
	}
	m.messageErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("message_type", messageType)))
}
