package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultRelayChannel is the Redis channel carrying change signals between instances
const DefaultRelayChannel = "acct:changes"

// relayMessage is the wire form of a change signal
type relayMessage struct {
	ID         uuid.UUID `json:"id"`
	Key        string    `json:"key"`
	Origin     string    `json:"origin"`
	OccurredAt time.Time `json:"occurred_at"`
}

// RedisRelay forwards locally raised change signals to a Redis channel and
// republishes signals from other instances on the local bus
type RedisRelay struct {
	client  redis.UniversalClient
	bus     shared.EventPublisher
	channel string
	origin  string
	logger  *zap.Logger
}

// NewRedisRelay creates a relay. origin must be the id this process stamps on
// its own change signals.
func NewRedisRelay(client redis.UniversalClient, bus shared.EventPublisher, origin, channel string, l *zap.Logger) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	if l == nil {
		l = zap.NewNop()
	}
	return &RedisRelay{client: client, bus: bus, channel: channel, origin: origin, logger: l}
}

// EventTypes subscribes the relay to every event; Handle filters change signals
func (r *RedisRelay) EventTypes() []string {
	return nil
}

// Handle publishes a change signal raised by this process. Signals that came in
// from Redis carry another origin and are not sent back out.
func (r *RedisRelay) Handle(ctx context.Context, e shared.DomainEvent) error {
	changed, ok := e.(*shared.CollectionChangedEvent)
	if !ok || changed.Origin != r.origin {
		return nil
	}
	payload, err := json.Marshal(relayMessage{
		ID:         changed.EventID(),
		Key:        changed.Key,
		Origin:     changed.Origin,
		OccurredAt: changed.OccurredAt(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode change signal: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to relay change signal for %s: %w", changed.Key, err)
	}
	return nil
}

// Run receives signals from other instances until ctx is done
func (r *RedisRelay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("Change relay listening", zap.String("channel", r.channel), zap.String("origin", r.origin))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			r.receive(ctx, []byte(msg.Payload))
		}
	}
}

// receive decodes one payload and republishes it locally unless it is our own echo
func (r *RedisRelay) receive(ctx context.Context, payload []byte) {
	var m relayMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		r.logger.Warn("Dropping malformed change signal", zap.Error(err))
		return
	}
	if m.Origin == r.origin || m.Key == "" {
		return
	}

	changed := shared.NewCollectionChangedEvent(m.Key, m.Origin)
	if m.ID != uuid.Nil {
		changed.ID = m.ID
	}
	if !m.OccurredAt.IsZero() {
		changed.Timestamp = m.OccurredAt
	}
	if err := r.bus.Publish(ctx, changed); err != nil {
		r.logger.Warn("Failed to republish change signal", zap.String("key", m.Key), zap.Error(err))
	}
}

var _ shared.EventHandler = (*RedisRelay)(nil)
