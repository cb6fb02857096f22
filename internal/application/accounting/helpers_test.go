package accounting

import (
	"context"
	"sync"
	"time"

	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Mock implementations

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) DispatchInvoice(ctx context.Context, inv *accounting.Invoice, settings accounting.CompanySettings) error {
	args := m.Called(ctx, inv, settings)
	return args.Error(0)
}

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) ArchiveInvoice(ctx context.Context, inv *accounting.Invoice) (string, error) {
	args := m.Called(ctx, inv)
	return args.String(0), args.Error(1)
}

type mockIdempotencyStore struct {
	mock.Mock
}

func (m *mockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockIdempotencyStore) Close() error {
	return m.Called().Error(0)
}

type mockEventPublisher struct {
	mock.Mock
}

func (m *mockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// testClock is a settable clock shared by a service and its test
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestRepos() *persistence.Repositories {
	return persistence.NewRepositories(persistence.NewMemoryStore(), accounting.DefaultCompanySettings())
}

// latencyStore delays reads like a networked backend so concurrent
// read-modify-write cycles overlap
type latencyStore struct {
	shared.KeyValueStore
	delay time.Duration
}

func (s latencyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	time.Sleep(s.delay)
	return s.KeyValueStore.Get(ctx, key)
}

func newSlowRepos() *persistence.Repositories {
	store := latencyStore{KeyValueStore: persistence.NewMemoryStore(), delay: 2 * time.Millisecond}
	return persistence.NewRepositories(store, accounting.DefaultCompanySettings())
}

func billingActor(ctx context.Context) context.Context {
	return shared.WithActor(ctx, shared.Actor{
		UserID:      "u-1",
		Username:    "billing",
		Permissions: []string{accounting.PermissionBillingRun, accounting.PermissionLedgerRead},
	})
}

func clerkActor(ctx context.Context) context.Context {
	return shared.WithActor(ctx, shared.Actor{
		UserID:      "u-2",
		Username:    "clerk",
		Permissions: []string{accounting.PermissionLedgerRead, accounting.PermissionLedgerWrite},
	})
}

func monthlyTemplate(email string) TemplateRequest {
	return TemplateRequest{
		Name:     "Hosting",
		Customer: CustomerInput{Name: "Acme", Email: email},
		Items: []LineItemInput{
			{Name: "Hosting plan", Qty: decimal.NewFromInt(2), Price: decimal.NewFromInt(250)},
		},
		Cadence:   "monthly",
		StartDate: "2024-01-15",
		TimeOfDay: "09:00",
		SeqPrefix: "INV-",
	}
}

func at(value string) time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return t
}
