// Package events contains the message contracts of the batch streaming websocket.
package events

import (
	"time"

	"lisstat/pkg/contracts/domain"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	MessageTypeBatchStarted   MessageType = "batch:started"
	MessageTypeTableResult    MessageType = "batch:table"
	MessageTypeBatchCompleted MessageType = "batch:completed"
	MessageTypeError          MessageType = "error"
)

// BaseMessage represents the base structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// BatchRequest is the single client frame that starts a streamed batch
type BatchRequest struct {
	Requests []domain.TableRequest `json:"requests" validate:"required,min=1,dive"`
}

// BatchStarted announces how many tables will be streamed
type BatchStarted struct {
	BaseMessage
	ReportID string `json:"report_id"`
	Total    int    `json:"total"`
}

// TableResult carries one finished table scan and the running progress
type TableResult struct {
	BaseMessage
	Item      domain.BatchItem `json:"item"`
	Completed int              `json:"completed"`
	Total     int              `json:"total"`
	Progress  int              `json:"progress"` // 0-100
}

// BatchCompleted closes the stream
type BatchCompleted struct {
	BaseMessage
	Total    int    `json:"total"`
	Failed   int    `json:"failed"`
	Duration string `json:"duration"`
}

// ErrorMessage reports a failure that ends the stream
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewBase stamps a message header
func NewBase(t MessageType, traceID string) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().UTC(), TraceID: traceID}
}
