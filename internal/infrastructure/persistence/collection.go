package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/erp/acct/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Identifiable is satisfied by pointers to entities embedding shared.BaseEntity
type Identifiable[T any] interface {
	*T
	GetID() uuid.UUID
}

// Collection stores a list of entities as one JSON array under a fixed key.
// Every read-modify-write holds the collection mutex, and every write publishes
// a CollectionChangedEvent for the key.
type Collection[T any, PT Identifiable[T]] struct {
	store     shared.KeyValueStore
	publisher shared.EventPublisher
	key       string
	resource  string
	origin    string
	logger    *zap.Logger
	mu        sync.Mutex
}

// CollectionOption configures a Collection
type CollectionOption func(*collectionOptions)

type collectionOptions struct {
	publisher shared.EventPublisher
	origin    string
	logger    *zap.Logger
}

// WithPublisher sets the publisher that receives change signals
func WithPublisher(p shared.EventPublisher) CollectionOption {
	return func(o *collectionOptions) {
		o.publisher = p
	}
}

// WithOrigin tags change signals with the writing process id
func WithOrigin(origin string) CollectionOption {
	return func(o *collectionOptions) {
		o.origin = origin
	}
}

// WithLogger sets the collection logger
func WithLogger(l *zap.Logger) CollectionOption {
	return func(o *collectionOptions) {
		o.logger = l
	}
}

// NewCollection creates a collection over store under key. resource names the
// entity in NOT_FOUND errors.
func NewCollection[T any, PT Identifiable[T]](store shared.KeyValueStore, key, resource string, opts ...CollectionOption) *Collection[T, PT] {
	o := collectionOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[T, PT]{
		store:     store,
		publisher: o.publisher,
		key:       key,
		resource:  resource,
		origin:    o.origin,
		logger:    o.logger,
	}
}

// Key returns the storage key
func (c *Collection[T, PT]) Key() string {
	return c.key
}

// Get returns the entity with id or a NOT_FOUND error
func (c *Collection[T, PT]) Get(ctx context.Context, id uuid.UUID) (*T, error) {
	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if PT(&items[i]).GetID() == id {
			return &items[i], nil
		}
	}
	return nil, shared.NewNotFoundError(c.resource, id)
}

// List returns all entities in stored order. A missing key is an empty collection.
func (c *Collection[T, PT]) List(ctx context.Context) ([]T, error) {
	return c.load(ctx)
}

// Upsert replaces the entity with the same id in place, or appends it
func (c *Collection[T, PT]) Upsert(ctx context.Context, entity *T) error {
	if entity == nil {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s cannot be nil", c.resource))
	}
	id := PT(entity).GetID()
	if id == uuid.Nil {
		return shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s has no id", c.resource))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	replaced := false
	for i := range items {
		if PT(&items[i]).GetID() == id {
			items[i] = *entity
			replaced = true
			break
		}
	}
	if !replaced {
		items = append(items, *entity)
	}
	return c.save(ctx, items)
}

// Update runs mutate on a copy of the stored entity and saves it under the
// collection lock, so concurrent updates of one key never overwrite each other.
// The entity id cannot be changed by mutate.
func (c *Collection[T, PT]) Update(ctx context.Context, id uuid.UUID, mutate func(*T) error) (*T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if PT(&items[i]).GetID() != id {
			continue
		}
		entity := items[i]
		if err := mutate(&entity); err != nil {
			return nil, err
		}
		if PT(&entity).GetID() != id {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("%s id cannot change", c.resource))
		}
		items[i] = entity
		if err := c.save(ctx, items); err != nil {
			return nil, err
		}
		return &entity, nil
	}
	return nil, shared.NewNotFoundError(c.resource, id)
}

// Remove deletes the entity. Removing a missing id is a no-op and publishes nothing.
func (c *Collection[T, PT]) Remove(ctx context.Context, id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	items, err := c.load(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for i := range items {
		if PT(&items[i]).GetID() != id {
			kept = append(kept, items[i])
		}
	}
	if len(kept) == len(items) {
		return nil
	}
	return c.save(ctx, kept)
}

// ReplaceAll overwrites the whole collection
func (c *Collection[T, PT]) ReplaceAll(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.save(ctx, items)
}

func (c *Collection[T, PT]) load(ctx context.Context) ([]T, error) {
	raw, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0)
	if !found || len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to decode collection %s: %w", c.key, err)
	}
	return items, nil
}

func (c *Collection[T, PT]) save(ctx context.Context, items []T) error {
	if items == nil {
		items = make([]T, 0)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("failed to encode collection %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, raw); err != nil {
		return err
	}
	c.signal(ctx)
	return nil
}

// signal publishes the change after a committed write; a failed publish does not undo the write
func (c *Collection[T, PT]) signal(ctx context.Context) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.Publish(ctx, shared.NewCollectionChangedEvent(c.key, c.origin)); err != nil {
		c.logger.Warn("failed to publish change signal", zap.String("key", c.key), zap.Error(err))
	}
}
