package domain

import (
	"context"
	"time"
)

// Store is the append-only event store contract. Events are never deleted;
// the only mutation is the item rewrite on SaleEvent performed through
// UpdateSaleItems.
type Store interface {
	AppendSale(ctx context.Context, sale *SaleEvent) error
	AppendTaxPayment(ctx context.Context, payment *TaxPaymentEvent) error
	AppendAmendment(ctx context.Context, amendment *SaleAmendmentEvent) error

	// FindSaleByInvoiceID returns ErrNotFound when no sale exists for the invoice.
	FindSaleByInvoiceID(ctx context.Context, invoiceID string) (*SaleEvent, error)

	// FindLatestAmendment returns the amendment with the greatest date for the
	// invoice, optionally narrowed to one itemID (empty matches any item).
	// Ties on date resolve to the later insertion. Returns ErrNotFound when
	// nothing matches.
	FindLatestAmendment(ctx context.Context, invoiceID, itemID string) (*SaleAmendmentEvent, error)

	// UpdateSaleItems persists the sale's current items atomically, guarded by
	// the sale's version. Returns ErrVersionConflict when a concurrent writer
	// got there first; the caller re-reads and retries.
	UpdateSaleItems(ctx context.Context, sale *SaleEvent) error

	// QueryAsOf returns all sales and payments with date <= ts. Amendment
	// effects are already folded into sale items at write time, so amendment
	// records are never part of this result.
	QueryAsOf(ctx context.Context, ts time.Time) ([]SaleEvent, []TaxPaymentEvent, error)
}
