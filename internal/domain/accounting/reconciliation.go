package accounting

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DocumentKind distinguishes the documents that carry a balance
type DocumentKind string

const (
	DocumentKindInvoice   DocumentKind = "invoice"
	DocumentKindQuotation DocumentKind = "quotation"
)

// Document is an invoice or quotation whose balance can be reconciled
type Document interface {
	GetID() uuid.UUID
	Subtotal() decimal.Decimal
	Kind() DocumentKind
	// PaidBy reports whether the payment targets this document
	PaidBy(p *Payment) bool
}

// Kind implements Document
func (i *Invoice) Kind() DocumentKind { return DocumentKindInvoice }

// PaidBy implements Document
func (i *Invoice) PaidBy(p *Payment) bool { return p.AppliesToInvoice(i.ID) }

// Kind implements Document
func (q *Quotation) Kind() DocumentKind { return DocumentKindQuotation }

// PaidBy implements Document
func (q *Quotation) PaidBy(p *Payment) bool { return p.AppliesToQuotation(q.ID) }

// PaymentsSum returns Σ payment amounts that target doc
func PaymentsSum(doc Document, payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for i := range payments {
		if doc.PaidBy(&payments[i]) {
			total = total.Add(payments[i].Amount)
		}
	}
	return total
}

// CreditsAppliedSum returns the credit applied to doc across all notes.
// Only invoices receive credit.
func CreditsAppliedSum(doc Document, credits []CreditNote) decimal.Decimal {
	total := decimal.Zero
	if doc.Kind() != DocumentKindInvoice {
		return total
	}
	for i := range credits {
		total = total.Add(credits[i].AppliedTo(doc.GetID()))
	}
	return total
}

// Balance is the reconciled position of one document
type Balance struct {
	DocumentID uuid.UUID       `json:"document_id"`
	Kind       DocumentKind    `json:"kind"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Paid       decimal.Decimal `json:"paid"`
	Credited   decimal.Decimal `json:"credited"`
	Balance    decimal.Decimal `json:"balance"`
}

// Reconcile computes the balance breakdown of doc
func Reconcile(doc Document, payments []Payment, credits []CreditNote) Balance {
	subtotal := doc.Subtotal()
	paid := PaymentsSum(doc, payments)
	credited := CreditsAppliedSum(doc, credits)
	return Balance{
		DocumentID: doc.GetID(),
		Kind:       doc.Kind(),
		Subtotal:   subtotal,
		Paid:       paid,
		Credited:   credited,
		Balance:    decimal.Max(decimal.Zero, subtotal.Sub(paid).Sub(credited)),
	}
}

// BalanceOf returns max(0, subtotal - payments - applied credits). Over-payment floors at zero.
func BalanceOf(doc Document, payments []Payment, credits []CreditNote) decimal.Decimal {
	return Reconcile(doc, payments, credits).Balance
}
