package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/event"
	"github.com/erp/acct/internal/interfaces/http/dto"
	"github.com/erp/acct/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SSEMessage is one server-sent event frame
type SSEMessage struct {
	Event string
	ID    string
	Data  string
}

// ChangeSignal is the payload of a "changed" event
type ChangeSignal struct {
	Key        string    `json:"key"`
	EventType  string    `json:"event_type"`
	Origin     string    `json:"origin,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ChangeStreamHandler streams collection change signals over SSE
type ChangeStreamHandler struct {
	BaseHandler
	feed       *event.ChangeFeed
	logger     *zap.Logger
	heartbeat  time.Duration
	buffer     int
	maxClients int
	clients    atomic.Int64
	ctx        context.Context
	cancel     context.CancelFunc
}

// ChangeStreamOption configures a ChangeStreamHandler
type ChangeStreamOption func(*ChangeStreamHandler)

// WithStreamLogger sets the logger
func WithStreamLogger(l *zap.Logger) ChangeStreamOption {
	return func(h *ChangeStreamHandler) { h.logger = l }
}

// WithStreamHeartbeat sets the heartbeat interval
func WithStreamHeartbeat(d time.Duration) ChangeStreamOption {
	return func(h *ChangeStreamHandler) { h.heartbeat = d }
}

// WithStreamMaxClients caps concurrent streams; zero means unlimited
func WithStreamMaxClients(n int) ChangeStreamOption {
	return func(h *ChangeStreamHandler) { h.maxClients = n }
}

// NewChangeStreamHandler creates a new ChangeStreamHandler
func NewChangeStreamHandler(feed *event.ChangeFeed, opts ...ChangeStreamOption) *ChangeStreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &ChangeStreamHandler{
		feed:       feed,
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		buffer:     event.DefaultFeedBuffer,
		maxClients: 1000,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stop disconnects every open stream
func (h *ChangeStreamHandler) Stop() {
	h.cancel()
}

// ClientCount returns the number of open streams
func (h *ChangeStreamHandler) ClientCount() int {
	return int(h.clients.Load())
}

// Stream godoc
//
//	@Summary		Subscribe to change signals
//	@Description	Server-sent events; each "changed" event names the collection key that changed
//	@Tags			changes
//	@Produce		text/event-stream
//	@Param			prefix	query		string	false	"Key prefix filter, e.g. acct."
//	@Success		200		{string}	string	"SSE stream"
//	@Failure		503		{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/changes [get]
func (h *ChangeStreamHandler) Stream(c *gin.Context) {
	var q dto.ChangeStreamQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	n := h.clients.Add(1)
	defer h.clients.Add(-1)
	if h.maxClients > 0 && n > int64(h.maxClients) {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeStreamLimit, "Maximum number of change streams reached")
		return
	}

	signals, unsubscribe := h.feed.Subscribe(q.Prefix, h.buffer)
	defer unsubscribe()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	clientID := uuid.NewString()
	h.logger.Info("Change stream connected",
		zap.String("client_id", clientID),
		zap.String("user_id", middleware.GetJWTUserID(c)),
		zap.String("prefix", q.Prefix))

	writeSSE(c.Writer, SSEMessage{
		Event: "connected",
		Data:  fmt.Sprintf(`{"client_id":%q,"prefix":%q}`, clientID, q.Prefix),
	})
	c.Writer.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	reqCtx := c.Request.Context()

	for {
		select {
		case <-reqCtx.Done():
			h.logger.Debug("Change stream disconnected", zap.String("client_id", clientID))
			return
		case <-h.ctx.Done():
			return
		case <-ticker.C:
			writeSSE(c.Writer, SSEMessage{
				Event: "heartbeat",
				Data:  fmt.Sprintf(`{"timestamp":%d}`, time.Now().Unix()),
			})
			c.Writer.Flush()
		case changed, ok := <-signals:
			if !ok {
				return
			}
			msg, err := changeMessage(changed)
			if err != nil {
				h.logger.Error("Failed to encode change signal", zap.Error(err))
				continue
			}
			writeSSE(c.Writer, msg)
			c.Writer.Flush()
		}
	}
}

func changeMessage(e *shared.CollectionChangedEvent) (SSEMessage, error) {
	data, err := json.Marshal(ChangeSignal{
		Key:        e.Key,
		EventType:  e.EventType(),
		Origin:     e.Origin,
		OccurredAt: e.OccurredAt(),
	})
	if err != nil {
		return SSEMessage{}, err
	}
	return SSEMessage{Event: "changed", ID: e.EventID().String(), Data: string(data)}, nil
}

// writeSSE writes one event frame
func writeSSE(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
