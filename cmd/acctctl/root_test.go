package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	acctapp "github.com/erp/acct/internal/application/accounting"
	"github.com/erp/acct/internal/bootstrap"
	"github.com/erp/acct/internal/infrastructure/auth"
	"github.com/erp/acct/internal/infrastructure/config"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-key-at-least-32-chars"

func setEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "acct.db")
	t.Setenv("ACCT_STORAGE_DRIVER", config.StorageSQLite)
	t.Setenv("ACCT_STORAGE_SQLITE_PATH", path)
	t.Setenv("ACCT_REDIS_ENABLED", "false")
	t.Setenv("ACCT_BILLING_TIMEZONE", "UTC")
	t.Setenv("ACCT_JWT_SECRET", testSecret)
	t.Setenv("ACCT_LOG_LEVEL", "error")
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// seed writes through a separate service graph on the same SQLite file
func seed(t *testing.T, fn func(ctx context.Context, app *bootstrap.App)) {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)
	app, err := bootstrap.Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer func() { require.NoError(t, app.Close()) }()
	fn(context.Background(), app)
}

func TestToken(t *testing.T) {
	setEnv(t)

	out, err := execute(t, "token", "--user", "ops", "--perms", "billing:run,ledger:read", "--ttl", "30m")
	require.NoError(t, err)

	var tok tokenOutput
	require.NoError(t, json.Unmarshal([]byte(out), &tok))
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), tok.ExpiresAt, time.Minute)

	cfg, err := config.Load()
	require.NoError(t, err)
	claims, err := auth.NewJWTService(cfg.JWT).Validate(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.UserID)
	assert.Equal(t, "ops", claims.Username)
	assert.Equal(t, []string{"billing:run", "ledger:read"}, claims.Permissions)

	_, err = execute(t, "token")
	assert.Error(t, err, "--user is required")
}

func TestEnvFile(t *testing.T) {
	setEnv(t)
	// registered so the variable godotenv sets is restored afterwards
	t.Setenv("ACCT_JWT_ISSUER", "")
	require.NoError(t, os.Unsetenv("ACCT_JWT_ISSUER"))

	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("ACCT_JWT_ISSUER=acct-cli-test\n"), 0o600))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--env-file", envFile, "token", "--user", "ops"})
	require.NoError(t, root.Execute())

	var tok tokenOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &tok))
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "acct-cli-test", cfg.JWT.Issuer)
	_, err = auth.NewJWTService(cfg.JWT).Validate(tok.Token)
	assert.NoError(t, err)
}

func TestRunDue(t *testing.T) {
	setEnv(t)

	var next time.Time
	seed(t, func(ctx context.Context, app *bootstrap.App) {
		tmpl, err := app.Recurring.Create(ctx, acctapp.TemplateRequest{
			Name:      "Hosting",
			Customer:  acctapp.CustomerInput{Name: "Acme"},
			Items:     []acctapp.LineItemInput{{Name: "Hosting plan", Qty: decimal.NewFromInt(1), Price: decimal.NewFromInt(250)}},
			Cadence:   "monthly",
			StartDate: "2024-01-15",
			TimeOfDay: "09:00",
			SeqPrefix: "INV-",
		})
		require.NoError(t, err)
		next = tmpl.NextRunAt
	})

	at := next.Add(time.Hour).Format(time.RFC3339)
	out, err := execute(t, "run-due", "--at", at)
	require.NoError(t, err)

	var result acctapp.RunDueResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Runs, 1)
	assert.Equal(t, "INV-0001", result.Runs[0].Invoice.Number)
	assert.Empty(t, result.Failed)

	out, err = execute(t, "run-due", "--at", at)
	require.NoError(t, err)
	result = acctapp.RunDueResult{}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Empty(t, result.Runs, "the occurrence is billed once")

	_, err = execute(t, "run-due", "--at", "tomorrow")
	assert.Error(t, err)
}

func TestReport(t *testing.T) {
	setEnv(t)

	seed(t, func(ctx context.Context, app *bootstrap.App) {
		_, err := app.Ledger.CreateInvoice(ctx, acctapp.InvoiceRequest{
			Number:   "INV-0100",
			Customer: acctapp.CustomerInput{Name: "Acme"},
			Items:    []acctapp.LineItemInput{{Name: "Work", Qty: decimal.NewFromInt(2), Price: decimal.NewFromInt(100)}},
		})
		require.NoError(t, err)
	})

	today := time.Now().UTC().Format("2006-01-02")
	out, err := execute(t, "report", "invoices", "--from", today, "--to", today)
	require.NoError(t, err)

	var body struct {
		Module string `json:"module"`
		Report struct {
			Rows []json.RawMessage `json:"rows"`
		} `json:"report"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.Equal(t, "invoices", body.Module)
	assert.Len(t, body.Report.Rows, 1)

	out, err = execute(t, "outstanding")
	require.NoError(t, err)
	var outstanding acctapp.OutstandingResponse
	require.NoError(t, json.Unmarshal([]byte(out), &outstanding))
	assert.Equal(t, "200", outstanding.Total.String())

	_, err = execute(t, "report", "inventory", "--from", today, "--to", today)
	assert.Error(t, err)
	_, err = execute(t, "report", "invoices", "--from", today)
	assert.Error(t, err, "--to is required")
	_, err = execute(t, "report", "invoices", "--from", today, "--to", today, "--archive")
	assert.Error(t, err, "archive is disabled")
}

func TestReport_Archive(t *testing.T) {
	setEnv(t)
	t.Setenv("ACCT_ARCHIVE_ENABLED", "true")
	t.Setenv("ACCT_ARCHIVE_DRIVER", "memory")

	out, err := execute(t, "report", "sales", "--from", "2024-03-01", "--to", "2024-03-31", "--archive")
	require.NoError(t, err)

	var body struct {
		ArchiveKey  string `json:"archive_key"`
		DownloadURL string `json:"download_url"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.True(t, strings.HasPrefix(body.ArchiveKey, "reports/sales/2024-03-01_2024-03-31_"), body.ArchiveKey)
	assert.True(t, strings.HasPrefix(body.DownloadURL, "memory://"), body.DownloadURL)
}
