package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/event"
	"github.com/erp/acct/internal/interfaces/http/dto"
	"github.com/erp/acct/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// sseReader reads frames from a live stream
type sseReader struct {
	r *bufio.Reader
}

func (s *sseReader) next(t *testing.T) SSEMessage {
	t.Helper()
	var msg SSEMessage
	for {
		line, err := s.r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return msg
		case strings.HasPrefix(line, "event: "):
			msg.Event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "id: "):
			msg.ID = strings.TrimPrefix(line, "id: ")
		case strings.HasPrefix(line, "data: "):
			msg.Data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, h *ChangeStreamHandler, query string) *sseReader {
	t.Helper()
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/changes", h.Stream)
	srv := httptest.NewServer(engine)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/changes"+query, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() {
		cancel()
		_ = resp.Body.Close()
		h.Stop()
		srv.Close()
	})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	reader := &sseReader{r: bufio.NewReader(resp.Body)}
	require.Equal(t, "connected", reader.next(t).Event)
	return reader
}

func TestNewChangeStreamHandler(t *testing.T) {
	feed := event.NewChangeFeed(nil)
	h := NewChangeStreamHandler(feed)
	assert.Equal(t, 30*time.Second, h.heartbeat)
	assert.Equal(t, 1000, h.maxClients)
	assert.Equal(t, event.DefaultFeedBuffer, h.buffer)

	l := zap.NewNop()
	h = NewChangeStreamHandler(feed, WithStreamLogger(l), WithStreamHeartbeat(time.Second), WithStreamMaxClients(5))
	assert.Equal(t, time.Second, h.heartbeat)
	assert.Equal(t, 5, h.maxClients)
	assert.Equal(t, l, h.logger)
}

func TestChangeStreamHandler_ForwardsSignals(t *testing.T) {
	feed := event.NewChangeFeed(nil)
	h := NewChangeStreamHandler(feed)
	stream := openStream(t, h, "")

	assert.Equal(t, 1, feed.Subscribers())
	assert.Equal(t, 1, h.ClientCount())

	signal := shared.NewCollectionChangedEvent("acct.invoices", "node-a")
	require.NoError(t, feed.Handle(context.Background(), signal))

	msg := stream.next(t)
	assert.Equal(t, "changed", msg.Event)
	assert.Equal(t, signal.EventID().String(), msg.ID)

	var payload ChangeSignal
	require.NoError(t, json.Unmarshal([]byte(msg.Data), &payload))
	assert.Equal(t, "acct.invoices", payload.Key)
	assert.Equal(t, "node-a", payload.Origin)
	assert.Equal(t, signal.EventType(), payload.EventType)
}

func TestChangeStreamHandler_PrefixFilter(t *testing.T) {
	feed := event.NewChangeFeed(nil)
	stream := openStream(t, NewChangeStreamHandler(feed), "?prefix=acct.payments")

	require.NoError(t, feed.Handle(context.Background(), shared.NewCollectionChangedEvent("acct.invoices", "")))
	require.NoError(t, feed.Handle(context.Background(), shared.NewCollectionChangedEvent("acct.payments", "")))

	msg := stream.next(t)
	var payload ChangeSignal
	require.NoError(t, json.Unmarshal([]byte(msg.Data), &payload))
	assert.Equal(t, "acct.payments", payload.Key)
}

func TestChangeStreamHandler_Heartbeat(t *testing.T) {
	feed := event.NewChangeFeed(nil)
	stream := openStream(t, NewChangeStreamHandler(feed, WithStreamHeartbeat(10*time.Millisecond)), "")

	msg := stream.next(t)
	assert.Equal(t, "heartbeat", msg.Event)
	assert.Contains(t, msg.Data, "timestamp")
}

func TestChangeStreamHandler_MaxClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewChangeStreamHandler(event.NewChangeFeed(nil), WithStreamMaxClients(1))
	h.clients.Store(1)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/changes", nil)
	h.Stream(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeStreamLimit, resp.Error.Code)
	assert.Equal(t, 1, h.ClientCount())
}

func TestChangeStreamHandler_RejectsBadQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
	h := NewChangeStreamHandler(event.NewChangeFeed(nil))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/changes?prefix="+strings.Repeat("a", 65), nil)
	h.Stream(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "prefix", resp.Error.Details[0].Field)
	assert.Equal(t, 0, h.ClientCount())
}

func TestChangeStreamHandler_StopEndsStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	feed := event.NewChangeFeed(nil)
	h := NewChangeStreamHandler(feed)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/changes", nil)

	done := make(chan struct{})
	go func() {
		h.Stream(c)
		close(done)
	}()

	require.Eventually(t, func() bool { return feed.Subscribers() == 1 }, time.Second, 5*time.Millisecond)
	h.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not stop")
	}
	assert.Equal(t, 0, feed.Subscribers())
	assert.Contains(t, w.Body.String(), "event: connected")
}

func TestWriteSSE(t *testing.T) {
	var sb strings.Builder
	writeSSE(&sb, SSEMessage{Event: "changed", ID: "42", Data: `{"key":"acct.sales"}`})
	assert.Equal(t, "event: changed\nid: 42\ndata: {\"key\":\"acct.sales\"}\n\n", sb.String())

	sb.Reset()
	writeSSE(&sb, SSEMessage{Data: "x"})
	assert.Equal(t, "data: x\n\n", sb.String())
}
