package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	apperrors "lisstat/internal/errors"
	"lisstat/internal/middleware"
	"lisstat/pkg/contracts/domain"
	"lisstat/pkg/contracts/events"
)

type stubRunner struct {
	maxBatch int
	started  chan struct{}
	block    bool
}

func (r *stubRunner) CheckBatch(reqs []domain.TableRequest) error {
	if r.maxBatch > 0 && len(reqs) > r.maxBatch {
		return apperrors.NewAppValidationError("batch too large")
	}
	return nil
}

func (r *stubRunner) Batch(ctx context.Context, reportID string, reqs []domain.TableRequest, progress func(domain.BatchItem)) ([]domain.BatchItem, error) {
	if r.started != nil {
		close(r.started)
	}
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	items := make([]domain.BatchItem, len(reqs))
	for i, req := range reqs {
		item := domain.BatchItem{Index: i, Request: req}
		if req.Primary == "GENA" {
			item.Error = "voltage table for node \"GENA\" not found"
			item.Code = string(apperrors.ErrTypeNotFound)
		} else {
			item.Table = &domain.StatisticalTable{Kind: req.Kind, Primary: req.Primary, Rows: []domain.TableRow{}}
		}
		items[i] = item
		progress(item)
	}
	return items, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStreamer(r BatchRunner) *Streamer {
	v := middleware.NewValidationMiddleware(discardLogger(), apperrors.NewErrorHandler(discardLogger(), false))
	return NewStreamer(r, v, discardLogger())
}

const twoTables = `{"requests":[{"kind":"voltage","primary":"BUSA"},{"kind":"voltage","primary":"GENA"}]}`

func decodeFrames(t *testing.T, frames [][]byte) []map[string]interface{} {
	t.Helper()
	out := make([]map[string]interface{}, len(frames))
	for i, f := range frames {
		require.NoError(t, json.Unmarshal(f, &out[i]), string(f))
	}
	return out
}

func TestStreamer_Serve(t *testing.T) {
	defer goleak.VerifyNone(t)

	conn := NewMockConnection(twoTables)
	newTestStreamer(&stubRunner{}).Serve(context.Background(), conn, "abc")

	frames := decodeFrames(t, conn.Text())
	require.Len(t, frames, 4)

	assert.Equal(t, string(events.MessageTypeBatchStarted), frames[0]["type"])
	assert.Equal(t, "abc", frames[0]["report_id"])
	assert.EqualValues(t, 2, frames[0]["total"])

	assert.Equal(t, string(events.MessageTypeTableResult), frames[1]["type"])
	assert.EqualValues(t, 50, frames[1]["progress"])
	assert.EqualValues(t, 100, frames[2]["progress"])
	failed := frames[2]["item"].(map[string]interface{})
	assert.Equal(t, "NOT_FOUND", failed["code"])

	assert.Equal(t, string(events.MessageTypeBatchCompleted), frames[3]["type"])
	assert.EqualValues(t, 1, frames[3]["failed"])

	assert.Equal(t, websocket.CloseMessage, conn.LastType())
}

func TestStreamer_RejectsRequest(t *testing.T) {
	tests := []struct {
		name     string
		frame    string
		runner   *stubRunner
		wantCode string
	}{
		{"not json", `{"requests":`, &stubRunner{}, string(apperrors.ErrTypeValidation)},
		{"fails validation", `{"requests":[{"kind":"voltage"}]}`, &stubRunner{}, "VALIDATION_FAILED"},
		{"empty", `{"requests":[]}`, &stubRunner{}, "VALIDATION_FAILED"},
		{"too many", twoTables, &stubRunner{maxBatch: 1}, string(apperrors.ErrTypeValidation)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			conn := NewMockConnection(tt.frame)
			newTestStreamer(tt.runner).Serve(context.Background(), conn, "abc")

			frames := decodeFrames(t, conn.Text())
			require.Len(t, frames, 1)
			assert.Equal(t, string(events.MessageTypeError), frames[0]["type"])
			assert.Equal(t, tt.wantCode, frames[0]["code"])
			assert.Equal(t, websocket.CloseMessage, conn.LastType())
		})
	}
}

func TestStreamer_ClientGoesAway(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &stubRunner{started: make(chan struct{}), block: true}
	conn := NewMockConnection(twoTables)

	done := make(chan struct{})
	go func() {
		defer close(done)
		newTestStreamer(runner).Serve(context.Background(), conn, "abc")
	}()

	<-runner.started
	conn.Disconnect()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after the client disconnected")
	}
}

func TestStreamer_WriteFailureCancelsBatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	runner := &stubRunner{started: make(chan struct{}), block: true}
	conn := NewMockConnection(twoTables)
	conn.WriteErr = errors.New("broken pipe")

	done := make(chan struct{})
	go func() {
		defer close(done)
		newTestStreamer(runner).Serve(context.Background(), conn, "abc")
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not stop after a failed write")
	}
	assert.Empty(t, conn.Text())
}

func TestStreamer_OverGorilla(t *testing.T) {
	defer goleak.VerifyNone(t)

	streamer := newTestStreamer(&stubRunner{})
	upgrader := NewUpgrader()
	remote := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		remote <- gorillaConn{conn}.RemoteAddr()
		streamer.ServeUpgraded(r.Context(), conn, "abc")
	}))
	defer srv.Close()

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte(twoTables)))

	var types []string
	for {
		var msg events.BaseMessage
		if err := client.ReadJSON(&msg); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "unexpected error: %v", err)
			break
		}
		types = append(types, string(msg.Type))
	}
	assert.Equal(t, []string{"batch:started", "batch:table", "batch:table", "batch:completed"}, types)
	assert.Contains(t, <-remote, "127.0.0.1:")
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://lisstat.local/api/reports/x/stream", nil)
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://lisstat.local")
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, sameOrigin(r))
}
