package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	apperrors "lisstat/internal/errors"
	"lisstat/internal/infrastructure"
	"lisstat/pkg/contracts/domain"
	"lisstat/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed for the client to send its batch request
	requestWait = 30 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 << 10

	// Outbound messages buffered ahead of the writer
	sendBuffer = 64
)

// NewUpgrader returns an upgrader that accepts same-origin browsers and
// clients that send no Origin header.
func NewUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     sameOrigin,
	}
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Streamer runs one table batch per connection and streams each finished
// table to the client as it completes.
//
// The client sends a single events.BatchRequest frame. The server answers
// with batch:started, one batch:table per request in completion order and a
// final batch:completed, then closes. Failures that end the batch are sent as
// an error frame.
type Streamer struct {
	runner   BatchRunner
	validate Validator
	metrics  *OTelMetrics
	logger   *slog.Logger
}

// NewStreamer creates a streamer. A nil validator skips struct validation.
func NewStreamer(runner BatchRunner, validate Validator, logger *slog.Logger) *Streamer {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger = logger.With(slog.String("component", "websocket.stream"))
	metrics, err := NewOTelMetrics()
	if err != nil {
		logger.Warn("stream metrics unavailable", slog.String("error", err.Error()))
	}
	return &Streamer{
		runner:   runner,
		validate: validate,
		metrics:  metrics,
		logger:   logger,
	}
}

// gorillaConn adapts an upgraded connection to Connection.
type gorillaConn struct {
	*websocket.Conn
}

func (c gorillaConn) RemoteAddr() string {
	if addr := c.Conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// ServeUpgraded runs the session on a connection returned by an upgrader.
func (s *Streamer) ServeUpgraded(ctx context.Context, conn *websocket.Conn, reportID string) {
	s.Serve(ctx, gorillaConn{conn}, reportID)
}

// Serve runs the session on conn and closes it when the batch ends, the
// client goes away or ctx is cancelled.
func (s *Streamer) Serve(ctx context.Context, conn Connection, reportID string) {
	traceID := infrastructure.GetTraceID(ctx)
	logger := infrastructure.BindTraceID(s.logger, traceID).With(
		slog.String("report_id", reportID),
		slog.String("remote_addr", conn.RemoteAddr()),
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := &session{
		conn:    conn,
		send:    make(chan outbound, sendBuffer),
		traceID: traceID,
		metrics: s.metrics,
		logger:  logger,
	}

	start := time.Now()
	s.metrics.StreamStarted(ctx)
	outcome := "ok"
	defer func() { s.metrics.StreamEnded(context.WithoutCancel(ctx), outcome, time.Since(start)) }()

	req, err := s.readRequest(conn)
	if err != nil {
		outcome = "rejected"
		logger.WarnContext(ctx, "batch request rejected", slog.String("error", err.Error()))
		sess.writeNow(errorFrame(traceID, err))
		sess.closeConn(websocket.ClosePolicyViolation)
		return
	}

	writerDone := make(chan struct{})
	readerDone := make(chan struct{})
	go sess.writePump(cancel, writerDone)
	go sess.watchPeer(cancel, readerDone)

	total := len(req.Requests)
	logger.InfoContext(ctx, "batch stream started", slog.Int("requests", total))
	sess.enqueue(ctx, events.MessageTypeBatchStarted, events.BatchStarted{
		BaseMessage: events.NewBase(events.MessageTypeBatchStarted, traceID),
		ReportID:    reportID,
		Total:       total,
	})

	completed := 0
	items, err := s.runner.Batch(ctx, reportID, req.Requests, func(item domain.BatchItem) {
		completed++
		sess.enqueue(ctx, events.MessageTypeTableResult, events.TableResult{
			BaseMessage: events.NewBase(events.MessageTypeTableResult, traceID),
			Item:        item,
			Completed:   completed,
			Total:       total,
			Progress:    completed * 100 / total,
		})
	})

	switch {
	case err != nil:
		outcome = "failed"
		logger.WarnContext(ctx, "batch stream aborted", slog.String("error", err.Error()))
		sess.enqueue(ctx, events.MessageTypeError, errorFrame(traceID, err))
	default:
		failed := 0
		for _, item := range items {
			if item.Error != "" {
				failed++
			}
		}
		elapsed := time.Since(start)
		logger.InfoContext(ctx, "batch stream completed",
			slog.Int("requests", total),
			slog.Int("failed", failed),
			slog.Duration("duration", elapsed))
		sess.enqueue(ctx, events.MessageTypeBatchCompleted, events.BatchCompleted{
			BaseMessage: events.NewBase(events.MessageTypeBatchCompleted, traceID),
			Total:       total,
			Failed:      failed,
			Duration:    elapsed.String(),
		})
	}

	close(sess.send)
	<-writerDone
	conn.Close()
	<-readerDone
}

// readRequest reads and validates the client's batch request.
func (s *Streamer) readRequest(conn Connection) (*events.BatchRequest, error) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(requestWait))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, "failed to read batch request", err)
	}
	var req events.BatchRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrTypeValidation, "batch request is not valid JSON", err)
	}
	if s.validate != nil {
		if err := s.validate.ValidateStruct(req); err != nil {
			return nil, err
		}
	}
	if err := s.runner.CheckBatch(req.Requests); err != nil {
		return nil, err
	}
	return &req, nil
}

func errorFrame(traceID string, err error) events.ErrorMessage {
	code := string(apperrors.TypeOf(err))
	var apiErr *apperrors.APIError
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		code = "CANCELLED"
	case errors.As(err, &apiErr):
		code = apiErr.ErrorCode
	}
	return events.ErrorMessage{
		BaseMessage: events.NewBase(events.MessageTypeError, traceID),
		Code:        code,
		Message:     err.Error(),
	}
}

type outbound struct {
	kind events.MessageType
	data []byte
}

// session owns the write side of one connection. Only writePump writes once
// it is running.
type session struct {
	conn    Connection
	send    chan outbound
	traceID string
	metrics *OTelMetrics
	logger  *slog.Logger
}

// enqueue marshals msg for the writer. Messages are dropped once ctx is done.
func (s *session) enqueue(ctx context.Context, kind events.MessageType, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode message",
			slog.String("message_type", string(kind)),
			slog.String("error", err.Error()))
		return
	}
	select {
	case s.send <- outbound{kind: kind, data: data}:
	case <-ctx.Done():
	}
}

// writeNow writes msg directly; used before the pumps start.
func (s *session) writeNow(msg events.ErrorMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	s.write(outbound{kind: msg.Type, data: data})
}

func (s *session) write(m outbound) error {
	ctx := infrastructure.WithTraceID(context.Background(), s.traceID)
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, m.data); err != nil {
		s.metrics.RecordMessageError(ctx, string(m.kind))
		s.logger.DebugContext(ctx, "failed to write message",
			slog.String("message_type", string(m.kind)),
			slog.String("error", err.Error()))
		return err
	}
	s.metrics.RecordMessageSent(ctx, string(m.kind), len(m.data))
	return nil
}

func (s *session) closeConn(code int) {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(code, ""))
	s.conn.Close()
}

// writePump drains send, pinging the peer while the batch runs. It cancels
// the batch when a write fails and sends a normal close once send is closed.
func (s *session) writePump(cancel context.CancelFunc, done chan<- struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(done)
	}()
	for {
		select {
		case m, ok := <-s.send:
			if !ok {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.write(m); err != nil {
				cancel()
				for range s.send {
				}
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				cancel()
				for range s.send {
				}
				return
			}
		}
	}
}

// watchPeer reads until the connection fails, cancelling the batch. Client
// frames after the request are ignored.
func (s *session) watchPeer(cancel context.CancelFunc, done chan<- struct{}) {
	defer close(done)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			cancel()
			return
		}
	}
}
