package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	page := Paginate(items, Filter{Page: 2, PageSize: 2})
	assert.Equal(t, []int{3, 4}, page.Items)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)

	last := Paginate(items, Filter{Page: 3, PageSize: 2})
	assert.Equal(t, []int{5}, last.Items)

	beyond := Paginate(items, Filter{Page: 9, PageSize: 2})
	assert.Empty(t, beyond.Items)

	defaults := Paginate(items, Filter{})
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, 20, defaults.PageSize)
	assert.Len(t, defaults.Items, 5)
}

func TestDomainError_Is(t *testing.T) {
	err := NewNotFoundError("Invoice", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "Invoice abc not found", err.Error())
}
