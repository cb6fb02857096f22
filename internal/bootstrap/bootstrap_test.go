package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/domain/shared"
	"github.com/erp/acct/internal/infrastructure/cache"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/erp/acct/internal/infrastructure/persistence"
	"github.com/erp/acct/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type nopDispatcher struct{}

func (nopDispatcher) DispatchInvoice(context.Context, *accounting.Invoice, accounting.CompanySettings) error {
	return nil
}

func testConfig(driver string) *config.Config {
	return &config.Config{
		Storage: config.StorageConfig{Driver: driver},
		Log:     config.LogConfig{Level: "warn"},
		Scheduler: config.SchedulerConfig{
			CheckInterval:     time.Minute,
			MaxConcurrentJobs: 1,
			JobTimeout:        time.Minute,
			RetryDelay:        time.Second,
			LockTTL:           time.Second,
			IdempotencyTTL:    time.Hour,
		},
		Billing: config.BillingConfig{Timezone: "UTC", DefaultPrefix: "INV-"},
		Company: config.CompanyConfig{Name: "Acme Ltd", CurrencySymbol: "€", TaxRate: 20},
	}
}

func build(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{WithDispatcher(nopDispatcher{})}, opts...)
	app, err := Build(context.Background(), cfg, zap.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func invoiceRequest(number string) acctapp.InvoiceRequest {
	return acctapp.InvoiceRequest{
		Number:   number,
		Customer: acctapp.CustomerInput{Name: "Acme"},
		Items:    []acctapp.LineItemInput{{Name: "Work", Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)}},
	}
}

func TestBuild_Memory(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	app := build(t, testConfig(config.StorageMemory), WithMeter(mp.Meter("acct")))
	assert.Nil(t, app.Redis)
	assert.Nil(t, app.Relay)
	assert.Nil(t, app.Backend.Database)
	assert.NotNil(t, app.Metrics)
	_, inMemory := app.Runs.(*cache.InMemoryIdempotencyStore)
	assert.True(t, inMemory)

	signals, cancel := app.Feed.Subscribe(accounting.KeyInvoices, 4)
	defer cancel()

	_, err := app.Ledger.CreateInvoice(context.Background(), invoiceRequest("INV-1"))
	require.NoError(t, err)

	select {
	case e := <-signals:
		assert.Equal(t, accounting.KeyInvoices, e.Key)
		assert.Equal(t, app.Origin, e.Origin)
	case <-time.After(time.Second):
		t.Fatal("no change signal")
	}

	settings, err := app.Ledger.GetSettings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", settings.Name)
	assert.Equal(t, "€", settings.CurrencySymbol)
	assert.True(t, decimal.NewFromInt(20).Equal(settings.TaxRate))

	pool, trigger, err := app.NewScheduler()
	require.NoError(t, err)
	assert.NotNil(t, pool)
	assert.NotNil(t, trigger)
}

func TestBuild_SQLiteIsDurable(t *testing.T) {
	cfg := testConfig(config.StorageSQLite)
	cfg.Storage.SQLitePath = filepath.Join(t.TempDir(), "acct.db")

	first, err := Build(context.Background(), cfg, zap.NewNop(), WithDispatcher(nopDispatcher{}))
	require.NoError(t, err)
	_, isLedger := first.Runs.(*persistence.RunLedger)
	assert.True(t, isLedger, "SQL backends keep run keys in the run ledger")
	require.NoError(t, first.Backend.Database.Ping())

	inv, err := first.Ledger.CreateInvoice(context.Background(), invoiceRequest("INV-7"))
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second := build(t, cfg)
	stored, err := second.Ledger.GetInvoice(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "INV-7", stored.Number)
}

func TestBuild_Archive(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		app := build(t, testConfig(config.StorageMemory))
		assert.Nil(t, app.Archive)
	})

	t.Run("recurring runs are archived", func(t *testing.T) {
		cfg := testConfig(config.StorageMemory)
		cfg.Archive = config.ArchiveConfig{Enabled: true, Driver: config.ArchiveMemory, Prefix: "acct"}
		objects := storage.NewMemoryObjectStorage()
		app := build(t, cfg, WithObjectStorage(objects))
		require.NotNil(t, app.Archive)

		admin := shared.WithActor(context.Background(), shared.SystemActor())
		tpl, err := app.Recurring.Create(admin, acctapp.TemplateRequest{
			Name:      "Hosting",
			Customer:  acctapp.CustomerInput{Name: "Acme"},
			Items:     []acctapp.LineItemInput{{Name: "Plan", Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(250)}},
			Cadence:   "monthly",
			StartDate: "2024-01-15",
			TimeOfDay: "09:00",
		})
		require.NoError(t, err)

		result, err := app.Recurring.RunNow(admin, tpl.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, result.ArchiveKey)
		_, ok := objects.Get(result.ArchiveKey)
		assert.True(t, ok)
		assert.Len(t, objects.Keys("acct/invoices/"), 1)
	})

	t.Run("s3 config is validated", func(t *testing.T) {
		cfg := testConfig(config.StorageMemory)
		cfg.Archive = config.ArchiveConfig{Enabled: true, Driver: config.ArchiveS3}
		_, err := Build(context.Background(), cfg, zap.NewNop())
		assert.Error(t, err)
	})
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad timezone", func(c *config.Config) { c.Billing.Timezone = "Mars/Olympus" }},
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "etcd" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(config.StorageMemory)
			tt.mutate(cfg)
			app, err := Build(context.Background(), cfg, nil)
			assert.Error(t, err)
			assert.Nil(t, app)
		})
	}
}

func TestCompanyDefaults(t *testing.T) {
	s := companyDefaults(config.CompanyConfig{})
	assert.Equal(t, accounting.DefaultCompanySettings().Name, s.Name)
	assert.Equal(t, "$", s.CurrencySymbol)
	assert.True(t, s.TaxRate.IsZero())

	s = companyDefaults(config.CompanyConfig{Name: "Shop", Email: "a@shop.test", TaxRate: 7.5})
	assert.Equal(t, "Shop", s.Name)
	assert.Equal(t, "a@shop.test", s.Email)
	assert.Equal(t, "7.5", s.TaxRate.String())
}
