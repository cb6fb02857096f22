package event

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/erp/acct/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultFeedBuffer is the per-subscriber channel size
const DefaultFeedBuffer = 32

// ChangeFeed fans collection change signals out to channel subscribers, such as
// open server-sent-event streams. Slow subscribers lose signals rather than
// blocking the writer; a signal only says "reload", so a later one supersedes it.
type ChangeFeed struct {
	mu      sync.RWMutex
	subs    map[uint64]*feedSub
	nextID  uint64
	dropped atomic.Int64
	logger  *zap.Logger
}

type feedSub struct {
	prefix string
	ch     chan *shared.CollectionChangedEvent
}

// NewChangeFeed creates an empty feed. Register it on the bus with Subscribe(feed).
func NewChangeFeed(l *zap.Logger) *ChangeFeed {
	if l == nil {
		l = zap.NewNop()
	}
	return &ChangeFeed{subs: make(map[uint64]*feedSub), logger: l}
}

// EventTypes subscribes the feed to every event; Handle filters change signals
func (f *ChangeFeed) EventTypes() []string {
	return nil
}

// Handle forwards a change signal to every subscriber whose prefix matches its key
func (f *ChangeFeed) Handle(_ context.Context, e shared.DomainEvent) error {
	changed, ok := e.(*shared.CollectionChangedEvent)
	if !ok || !shared.IsChangeSignal(e.EventType()) {
		return nil
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, s := range f.subs {
		if !changed.MatchesPrefix(s.prefix) {
			continue
		}
		select {
		case s.ch <- changed:
		default:
			f.dropped.Add(1)
			f.logger.Debug("Change feed subscriber is full, signal dropped", zap.String("key", changed.Key))
		}
	}
	return nil
}

// Subscribe returns a channel of change signals for keys starting with prefix
// (all keys when empty) and a cancel func that closes it
func (f *ChangeFeed) Subscribe(prefix string, buffer int) (<-chan *shared.CollectionChangedEvent, func()) {
	if buffer <= 0 {
		buffer = DefaultFeedBuffer
	}
	s := &feedSub{prefix: prefix, ch: make(chan *shared.CollectionChangedEvent, buffer)}

	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs[id] = s
	f.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(s.ch)
		})
	}
}

// Subscribers returns the number of open subscriptions
func (f *ChangeFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Dropped returns how many signals were discarded for full subscribers
func (f *ChangeFeed) Dropped() int64 {
	return f.dropped.Load()
}

var _ shared.EventHandler = (*ChangeFeed)(nil)
