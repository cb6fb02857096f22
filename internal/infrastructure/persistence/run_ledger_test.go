package persistence

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunLedger(t *testing.T) (*RunLedger, *time.Time) {
	t.Helper()
	db, err := NewSQLiteDatabase(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ledger := NewRunLedger(db.DB)
	require.NoError(t, ledger.AutoMigrate())

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }
	return ledger, &now
}

func TestRunLedger_MarkOnce(t *testing.T) {
	ledger, _ := newTestRunLedger(t)
	ctx := context.Background()
	key := "b7f3c1de-0000-4000-8000-000000000001:2024-03-01T09:00:00Z"

	processed, err := ledger.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.False(t, processed)

	marked, err := ledger.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.True(t, marked)

	marked, err = ledger.MarkProcessed(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.False(t, marked, "second mark of the same occurrence must be refused")

	processed, err = ledger.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestRunLedger_ExpiredKeyCanBeMarkedAgain(t *testing.T) {
	ledger, now := newTestRunLedger(t)
	ctx := context.Background()

	marked, err := ledger.MarkProcessed(ctx, "tpl:1", time.Minute)
	require.NoError(t, err)
	require.True(t, marked)

	*now = now.Add(2 * time.Minute)

	processed, err := ledger.IsProcessed(ctx, "tpl:1")
	require.NoError(t, err)
	assert.False(t, processed)

	marked, err = ledger.MarkProcessed(ctx, "tpl:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, marked)
}

func TestRunLedger_Purge(t *testing.T) {
	ledger, now := newTestRunLedger(t)
	ctx := context.Background()

	_, err := ledger.MarkProcessed(ctx, "tpl:short", time.Minute)
	require.NoError(t, err)
	_, err = ledger.MarkProcessed(ctx, "tpl:long", 24*time.Hour)
	require.NoError(t, err)

	*now = now.Add(time.Hour)
	removed, err := ledger.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	processed, err := ledger.IsProcessed(ctx, "tpl:long")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.NoError(t, ledger.Close())
}

func TestRunLedger_ConcurrentMarks(t *testing.T) {
	ledger, _ := newTestRunLedger(t)
	ctx := context.Background()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			marked, err := ledger.MarkProcessed(ctx, "tpl:race", time.Hour)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if marked {
				wins++
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, errs)
	assert.Equal(t, 1, wins)
}

func TestOpenBackend(t *testing.T) {
	t.Run("memory has no run ledger", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageMemory}}
		b, err := OpenBackend(cfg, nil)
		require.NoError(t, err)
		assert.Nil(t, b.RunLedger())
		assert.NoError(t, b.Close())
	})

	t.Run("sqlite creates both tables", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{
			Driver:     config.StorageSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "acct.db"),
		}}
		b, err := OpenBackend(cfg, nil)
		require.NoError(t, err)
		defer b.Close()

		ctx := context.Background()
		require.NoError(t, b.Store.Set(ctx, "acct.sales", []byte("[]")))
		marked, err := b.RunLedger().MarkProcessed(ctx, "tpl:1", time.Hour)
		require.NoError(t, err)
		assert.True(t, marked)
	})

	t.Run("redis without client fails", func(t *testing.T) {
		cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageRedis}}
		_, err := OpenBackend(cfg, nil)
		assert.Error(t, err)
	})
}
