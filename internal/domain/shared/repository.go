package shared

import (
	"context"

	"github.com/google/uuid"
)

// CollectionRepository is the base interface for repositories backed by a
// named collection. Every entity type in the accounting module gets one.
type CollectionRepository[T any] interface {
	// Get returns the entity with the given id or ErrNotFound
	Get(ctx context.Context, id uuid.UUID) (*T, error)
	// List returns every entity in the collection; an absent collection is empty
	List(ctx context.Context) ([]T, error)
	// Upsert replaces the entity with the same id or appends it
	Upsert(ctx context.Context, entity *T) error
	// Update loads the entity, applies mutate and stores the result as one
	// step. Nothing is written when mutate returns an error.
	Update(ctx context.Context, id uuid.UUID, mutate func(*T) error) (*T, error)
	// Remove deletes the entity; removing a missing id is a no-op
	Remove(ctx context.Context, id uuid.UUID) error
}

// Filter represents query filter options
type Filter struct {
	Page     int
	PageSize int
	Search   string
}

// DefaultFilter returns a filter with default values
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
	}
}

// Paginated represents a paginated result
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated creates a new paginated result
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Paginate slices an in-memory list according to the filter
func Paginate[T any](items []T, filter Filter) Paginated[T] {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 {
		filter.PageSize = DefaultFilter().PageSize
	}
	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	page := make([]T, end-start)
	copy(page, items[start:end])
	return NewPaginated(page, int64(total), filter.Page, filter.PageSize)
}
