// Package accounting contains the accounting aggregates of the business suite:
// recurring invoice templates, invoices, quotations, payments, credit notes,
// sales and expenses, together with the pure calculations that operate on them
// (cadence scheduling, balance reconciliation and report aggregation).
//
// Every collection is persisted as a whole under a fixed storage key (see Key*
// constants). Cross references between collections are plain ids resolved at
// read time.
package accounting
