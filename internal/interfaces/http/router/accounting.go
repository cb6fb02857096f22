package router

import (
	"github.com/erp/acct/internal/domain/accounting"
	"github.com/erp/acct/internal/interfaces/http/handler"
	"github.com/erp/acct/internal/interfaces/http/middleware"
)

// AccountingHandlers are the handlers behind the accounting API
type AccountingHandlers struct {
	Recurring    *handler.RecurringHandler
	Invoices     *handler.InvoiceHandler
	Quotations   *handler.QuotationHandler
	Transactions *handler.TransactionHandler
	Credits      *handler.CreditNoteHandler
	Reports      *handler.ReportHandler
	Changes      *handler.ChangeStreamHandler
}

// AccountingRoutes builds the accounting route groups.
// Running a template and saving settings are checked inside the services.
func AccountingRoutes(h AccountingHandlers) []*DomainGroup {
	read := middleware.RequirePermission(accounting.PermissionLedgerRead)
	write := middleware.RequirePermission(accounting.PermissionLedgerWrite)
	reports := middleware.RequirePermission(accounting.PermissionReportsRead)

	recurring := NewDomainGroup("recurring", "/recurring").
		GET("", read, h.Recurring.List).
		POST("", write, h.Recurring.Create).
		GET("/:id", read, h.Recurring.GetByID).
		PUT("/:id", write, h.Recurring.Update).
		DELETE("/:id", write, h.Recurring.Delete).
		POST("/:id/run", h.Recurring.Run).
		POST("/:id/pause", write, h.Recurring.Pause).
		POST("/:id/resume", write, h.Recurring.Resume).
		GET("/:id/next-run", read, h.Recurring.NextRun)

	invoices := NewDomainGroup("invoices", "/invoices").
		GET("", read, h.Invoices.List).
		POST("", write, h.Invoices.Create).
		GET("/:id", read, h.Invoices.GetByID).
		PUT("/:id", write, h.Invoices.Update).
		DELETE("/:id", write, h.Invoices.Delete).
		GET("/:id/balance", read, h.Invoices.Balance)

	quotations := NewDomainGroup("quotations", "/quotations").
		GET("", read, h.Quotations.List).
		POST("", write, h.Quotations.Create).
		GET("/:id", read, h.Quotations.GetByID).
		PUT("/:id", write, h.Quotations.Update).
		DELETE("/:id", write, h.Quotations.Delete).
		GET("/:id/balance", read, h.Quotations.Balance)

	payments := NewDomainGroup("payments", "/payments").
		GET("", read, h.Transactions.ListPayments).
		POST("", write, h.Transactions.RecordPayment).
		GET("/:id", read, h.Transactions.GetPayment).
		DELETE("/:id", write, h.Transactions.DeletePayment)

	credits := NewDomainGroup("credit-notes", "/credit-notes").
		GET("", read, h.Credits.List).
		POST("", write, h.Credits.Issue).
		GET("/:id", read, h.Credits.GetByID).
		DELETE("/:id", write, h.Credits.Delete).
		POST("/:id/apply", write, h.Credits.Apply)

	sales := NewDomainGroup("sales", "/sales").
		GET("", read, h.Transactions.ListSales).
		POST("", write, h.Transactions.RecordSale).
		GET("/:id", read, h.Transactions.GetSale).
		DELETE("/:id", write, h.Transactions.DeleteSale)

	expenses := NewDomainGroup("expenses", "/expenses").
		GET("", read, h.Transactions.ListExpenses).
		POST("", write, h.Transactions.RecordExpense).
		GET("/:id", read, h.Transactions.GetExpense).
		DELETE("/:id", write, h.Transactions.DeleteExpense)

	reporting := NewDomainGroup("reports", "").
		GET("/outstanding", reports, h.Reports.Outstanding).
		GET("/reports/:module", reports, h.Reports.Generate)

	settings := NewDomainGroup("settings", "/settings").
		GET("", read, h.Transactions.GetSettings).
		PUT("", h.Transactions.SaveSettings)

	groups := []*DomainGroup{recurring, invoices, quotations, payments, credits, sales, expenses, reporting, settings}
	if h.Changes != nil {
		groups = append(groups, NewDomainGroup("changes", "/changes").GET("", read, h.Changes.Stream))
	}
	return groups
}
