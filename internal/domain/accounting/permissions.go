package accounting

// Permission names carried by the caller's actor
const (
	PermissionBillingRun    = "billing:run" // Elevated billing access: run templates now
	PermissionLedgerRead    = "ledger:read"
	PermissionLedgerWrite   = "ledger:write"
	PermissionReportsRead   = "reports:read"
	PermissionSettingsWrite = "settings:write"
)
