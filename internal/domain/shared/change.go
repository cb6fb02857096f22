package shared

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeSuffix is appended to a collection key to form its change signal type
const ChangeSuffix = "-changed"

// AggregateTypeCollection is the aggregate type of collection change signals
const AggregateTypeCollection = "Collection"

// ChangeSignalType returns the event type emitted when the collection under key changes,
// e.g. "acct.recurring" -> "acct.recurring-changed".
func ChangeSignalType(key string) string {
	return key + ChangeSuffix
}

// IsChangeSignal reports whether the event type is a collection change signal
func IsChangeSignal(eventType string) bool {
	return strings.HasSuffix(eventType, ChangeSuffix)
}

// CollectionChangedEvent is published after a collection has been rewritten.
// Origin identifies the process that wrote it, so relays can drop their own echoes.
type CollectionChangedEvent struct {
	BaseDomainEvent
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// NewCollectionChangedEvent creates a change signal for the collection key
func NewCollectionChangedEvent(key, origin string) *CollectionChangedEvent {
	return &CollectionChangedEvent{
		BaseDomainEvent: BaseDomainEvent{
			ID:        uuid.New(),
			Type:      ChangeSignalType(key),
			Timestamp: time.Now(),
			AggType:   AggregateTypeCollection,
		},
		Key:    key,
		Origin: origin,
	}
}

// MatchesPrefix reports whether the changed key starts with prefix.
// An empty prefix matches every key.
func (e *CollectionChangedEvent) MatchesPrefix(prefix string) bool {
	return prefix == "" || strings.HasPrefix(e.Key, prefix)
}
