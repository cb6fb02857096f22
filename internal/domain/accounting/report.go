package accounting

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReportModule selects a report variant
type ReportModule string

const (
	ReportInvoices      ReportModule = "invoices"
	ReportQuotations    ReportModule = "quotations"
	ReportSales         ReportModule = "sales"
	ReportCreditNotes   ReportModule = "credit-notes"
	ReportExpenses      ReportModule = "expenses"
	ReportPayments      ReportModule = "payments"
	ReportIncome        ReportModule = "income"
	ReportIncomeExpense ReportModule = "income-expense"
)

// ReportModules lists every module in display order
var ReportModules = []ReportModule{
	ReportInvoices, ReportQuotations, ReportSales, ReportCreditNotes,
	ReportExpenses, ReportPayments, ReportIncome, ReportIncomeExpense,
}

// IsValid checks if the module is known
func (m ReportModule) IsValid() bool {
	for _, known := range ReportModules {
		if m == known {
			return true
		}
	}
	return false
}

// DateRange is an inclusive range of instants covering whole civil days
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange builds [from 00:00, to 23:59:59.999999999] in loc from YYYY-MM-DD dates
func NewDateRange(from, to string, loc *time.Location) (DateRange, error) {
	start, err := ParseDate(from, loc)
	if err != nil {
		return DateRange{}, invalidInput(fmt.Sprintf("Invalid from date: %v", err))
	}
	end, err := ParseDate(to, loc)
	if err != nil {
		return DateRange{}, invalidInput(fmt.Sprintf("Invalid to date: %v", err))
	}
	if end.Before(start) {
		return DateRange{}, invalidInput("Report end date cannot be before start date")
	}
	return DateRange{From: start, To: EndOfDay(end)}, nil
}

// Contains reports whether t falls within the range, bounds included
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Dataset is the read-only input of the aggregator
type Dataset struct {
	Invoices   []Invoice
	Quotations []Quotation
	Sales      []Sale
	Credits    []CreditNote
	Expenses   []Expense
	Payments   []Payment
	Settings   CompanySettings
}

// Report is one aggregated report variant. The set of variants is closed.
type Report interface {
	Module() ReportModule
	report()
}

// InvoiceRow is one invoice with its reconciled balance
type InvoiceRow struct {
	Invoice  Invoice         `json:"invoice"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Paid     decimal.Decimal `json:"paid"`
	Credited decimal.Decimal `json:"credited"`
	Balance  decimal.Decimal `json:"balance"`
}

// InvoiceReport lists invoices created in range
type InvoiceReport struct {
	Range         DateRange       `json:"range"`
	Rows          []InvoiceRow    `json:"rows"`
	TotalSubtotal decimal.Decimal `json:"total_subtotal"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	TotalCredited decimal.Decimal `json:"total_credited"`
	TotalBalance  decimal.Decimal `json:"total_balance"`
}

// QuotationRow is one quotation with its totals and balance
type QuotationRow struct {
	Quotation  Quotation       `json:"quotation"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Paid       decimal.Decimal `json:"paid"`
	Balance    decimal.Decimal `json:"balance"`
}

// QuotationReport lists quotations created in range
type QuotationReport struct {
	Range           DateRange       `json:"range"`
	Rows            []QuotationRow  `json:"rows"`
	TotalSubtotal   decimal.Decimal `json:"total_subtotal"`
	TotalGrandTotal decimal.Decimal `json:"total_grand_total"`
	TotalBalance    decimal.Decimal `json:"total_balance"`
}

// SaleRow is one sale with its subtotal
type SaleRow struct {
	Sale     Sale            `json:"sale"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// SalesReport lists sales dated in range
type SalesReport struct {
	Range DateRange       `json:"range"`
	Rows  []SaleRow       `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// CreditNoteRow is one credit note with its allocation state
type CreditNoteRow struct {
	CreditNote CreditNote      `json:"credit_note"`
	Applied    decimal.Decimal `json:"applied"`
	Remaining  decimal.Decimal `json:"remaining"`
}

// CreditNoteReport lists credit notes dated in range
type CreditNoteReport struct {
	Range          DateRange       `json:"range"`
	Rows           []CreditNoteRow `json:"rows"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	TotalApplied   decimal.Decimal `json:"total_applied"`
	TotalRemaining decimal.Decimal `json:"total_remaining"`
}

// ExpenseRow is one expense with amount plus tax
type ExpenseRow struct {
	Expense Expense         `json:"expense"`
	Total   decimal.Decimal `json:"total"`
}

// ExpenseReport lists expenses dated in range
type ExpenseReport struct {
	Range DateRange       `json:"range"`
	Rows  []ExpenseRow    `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// PaymentReport lists payments dated in range
type PaymentReport struct {
	Range          DateRange       `json:"range"`
	Rows           []Payment       `json:"rows"`
	CashReceived   decimal.Decimal `json:"cash_received"`
	UnappliedTotal decimal.Decimal `json:"unapplied_total"`
}

// IncomeReport is accrual income: invoice and sale subtotals less credit notes issued
type IncomeReport struct {
	Range            DateRange       `json:"range"`
	InvoiceSubtotals decimal.Decimal `json:"invoice_subtotals"`
	SaleSubtotals    decimal.Decimal `json:"sale_subtotals"`
	Credits          decimal.Decimal `json:"credits"`
	Gross            decimal.Decimal `json:"gross"` // May be negative
	Net              decimal.Decimal `json:"net"`   // Gross floored at zero
}

// IncomeExpenseReport compares accrual income against expenses.
// CashReceived is informational and is not part of Profit.
type IncomeExpenseReport struct {
	Range        DateRange       `json:"range"`
	Income       IncomeReport    `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Profit       decimal.Decimal `json:"profit"`
	CashReceived decimal.Decimal `json:"cash_received"`
}

func (*InvoiceReport) report()       {}
func (*QuotationReport) report()     {}
func (*SalesReport) report()         {}
func (*CreditNoteReport) report()    {}
func (*ExpenseReport) report()       {}
func (*PaymentReport) report()       {}
func (*IncomeReport) report()        {}
func (*IncomeExpenseReport) report() {}

// Module implements Report
func (*InvoiceReport) Module() ReportModule { return ReportInvoices }

// Module implements Report
func (*QuotationReport) Module() ReportModule { return ReportQuotations }

// Module implements Report
func (*SalesReport) Module() ReportModule { return ReportSales }

// Module implements Report
func (*CreditNoteReport) Module() ReportModule { return ReportCreditNotes }

// Module implements Report
func (*ExpenseReport) Module() ReportModule { return ReportExpenses }

// Module implements Report
func (*PaymentReport) Module() ReportModule { return ReportPayments }

// Module implements Report
func (*IncomeReport) Module() ReportModule { return ReportIncome }

// Module implements Report
func (*IncomeExpenseReport) Module() ReportModule { return ReportIncomeExpense }

// Aggregate computes the report for module over rng. It never mutates ds.
func Aggregate(module ReportModule, rng DateRange, ds Dataset) (Report, error) {
	switch module {
	case ReportInvoices:
		return invoiceReport(rng, ds), nil
	case ReportQuotations:
		return quotationReport(rng, ds), nil
	case ReportSales:
		return salesReport(rng, ds), nil
	case ReportCreditNotes:
		return creditNoteReport(rng, ds), nil
	case ReportExpenses:
		return expenseReport(rng, ds), nil
	case ReportPayments:
		return paymentReport(rng, ds), nil
	case ReportIncome:
		return incomeReport(rng, ds), nil
	case ReportIncomeExpense:
		return incomeExpenseReport(rng, ds), nil
	default:
		return nil, invalidInput(fmt.Sprintf("Unknown report module %q", module))
	}
}

func invoiceReport(rng DateRange, ds Dataset) *InvoiceReport {
	r := &InvoiceReport{
		Range:         rng,
		Rows:          make([]InvoiceRow, 0),
		TotalSubtotal: decimal.Zero,
		TotalPaid:     decimal.Zero,
		TotalCredited: decimal.Zero,
		TotalBalance:  decimal.Zero,
	}
	for i := range ds.Invoices {
		inv := &ds.Invoices[i]
		if !rng.Contains(inv.CreatedAt) {
			continue
		}
		b := Reconcile(inv, ds.Payments, ds.Credits)
		r.Rows = append(r.Rows, InvoiceRow{
			Invoice:  *inv,
			Subtotal: b.Subtotal,
			Paid:     b.Paid,
			Credited: b.Credited,
			Balance:  b.Balance,
		})
		r.TotalSubtotal = r.TotalSubtotal.Add(b.Subtotal)
		r.TotalPaid = r.TotalPaid.Add(b.Paid)
		r.TotalCredited = r.TotalCredited.Add(b.Credited)
		r.TotalBalance = r.TotalBalance.Add(b.Balance)
	}
	return r
}

func quotationReport(rng DateRange, ds Dataset) *QuotationReport {
	r := &QuotationReport{
		Range:           rng,
		Rows:            make([]QuotationRow, 0),
		TotalSubtotal:   decimal.Zero,
		TotalGrandTotal: decimal.Zero,
		TotalBalance:    decimal.Zero,
	}
	for i := range ds.Quotations {
		q := &ds.Quotations[i]
		if !rng.Contains(q.CreatedAt) {
			continue
		}
		b := Reconcile(q, ds.Payments, ds.Credits)
		grand := q.GrandTotal(ds.Settings.TaxRate)
		r.Rows = append(r.Rows, QuotationRow{
			Quotation:  *q,
			Subtotal:   b.Subtotal,
			GrandTotal: grand,
			Paid:       b.Paid,
			Balance:    b.Balance,
		})
		r.TotalSubtotal = r.TotalSubtotal.Add(b.Subtotal)
		r.TotalGrandTotal = r.TotalGrandTotal.Add(grand)
		r.TotalBalance = r.TotalBalance.Add(b.Balance)
	}
	return r
}

func salesReport(rng DateRange, ds Dataset) *SalesReport {
	r := &SalesReport{Range: rng, Rows: make([]SaleRow, 0), Total: decimal.Zero}
	for i := range ds.Sales {
		s := &ds.Sales[i]
		if !rng.Contains(s.Date) {
			continue
		}
		subtotal := s.Subtotal()
		r.Rows = append(r.Rows, SaleRow{Sale: *s, Subtotal: subtotal})
		r.Total = r.Total.Add(subtotal)
	}
	return r
}

func creditNoteReport(rng DateRange, ds Dataset) *CreditNoteReport {
	r := &CreditNoteReport{
		Range:          rng,
		Rows:           make([]CreditNoteRow, 0),
		TotalAmount:    decimal.Zero,
		TotalApplied:   decimal.Zero,
		TotalRemaining: decimal.Zero,
	}
	for i := range ds.Credits {
		c := &ds.Credits[i]
		if !rng.Contains(c.Date) {
			continue
		}
		applied := c.AppliedTotal()
		remaining := c.Remaining()
		r.Rows = append(r.Rows, CreditNoteRow{CreditNote: *c, Applied: applied, Remaining: remaining})
		r.TotalAmount = r.TotalAmount.Add(c.Amount)
		r.TotalApplied = r.TotalApplied.Add(applied)
		r.TotalRemaining = r.TotalRemaining.Add(remaining)
	}
	return r
}

func expenseReport(rng DateRange, ds Dataset) *ExpenseReport {
	r := &ExpenseReport{Range: rng, Rows: make([]ExpenseRow, 0), Total: decimal.Zero}
	for i := range ds.Expenses {
		e := &ds.Expenses[i]
		if !rng.Contains(e.Date) {
			continue
		}
		total := e.Total()
		r.Rows = append(r.Rows, ExpenseRow{Expense: *e, Total: total})
		r.Total = r.Total.Add(total)
	}
	return r
}

func paymentReport(rng DateRange, ds Dataset) *PaymentReport {
	r := &PaymentReport{
		Range:          rng,
		Rows:           make([]Payment, 0),
		CashReceived:   decimal.Zero,
		UnappliedTotal: decimal.Zero,
	}
	for i := range ds.Payments {
		p := &ds.Payments[i]
		if !rng.Contains(p.Date) {
			continue
		}
		r.Rows = append(r.Rows, *p)
		r.CashReceived = r.CashReceived.Add(p.Amount)
		if p.IsUnapplied() {
			r.UnappliedTotal = r.UnappliedTotal.Add(p.Amount)
		}
	}
	return r
}

// incomeReport excludes void invoices from accrual income
func incomeReport(rng DateRange, ds Dataset) *IncomeReport {
	r := &IncomeReport{
		Range:            rng,
		InvoiceSubtotals: decimal.Zero,
		SaleSubtotals:    decimal.Zero,
		Credits:          decimal.Zero,
	}
	for i := range ds.Invoices {
		inv := &ds.Invoices[i]
		if inv.Status == InvoiceStatusVoid || !rng.Contains(inv.CreatedAt) {
			continue
		}
		r.InvoiceSubtotals = r.InvoiceSubtotals.Add(inv.Subtotal())
	}
	for i := range ds.Sales {
		if rng.Contains(ds.Sales[i].Date) {
			r.SaleSubtotals = r.SaleSubtotals.Add(ds.Sales[i].Subtotal())
		}
	}
	for i := range ds.Credits {
		if rng.Contains(ds.Credits[i].Date) {
			r.Credits = r.Credits.Add(ds.Credits[i].Amount)
		}
	}
	r.Gross = r.InvoiceSubtotals.Add(r.SaleSubtotals).Sub(r.Credits)
	r.Net = decimal.Max(decimal.Zero, r.Gross)
	return r
}

func incomeExpenseReport(rng DateRange, ds Dataset) *IncomeExpenseReport {
	income := incomeReport(rng, ds)
	expenses := expenseReport(rng, ds).Total
	return &IncomeExpenseReport{
		Range:        rng,
		Income:       *income,
		Expenses:     expenses,
		Profit:       income.Net.Sub(expenses),
		CashReceived: paymentReport(rng, ds).CashReceived,
	}
}
