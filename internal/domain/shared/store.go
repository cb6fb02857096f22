package shared

import "context"

// KeyValueStore is the durable storage contract behind every collection.
// Values are opaque bytes (JSON documents in practice).
type KeyValueStore interface {
	// Get returns the stored value, or found=false when the key is absent
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set writes the value, replacing any previous one
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error
}
