package domain

import (
	"context"
	"time"
)

// TransactionItem mirrors one sale line item on the wire.
type TransactionItem struct {
	ItemID  string   `json:"itemId"`
	Cost    *int64   `json:"cost"`
	TaxRate *float64 `json:"taxRate"`
}

// TransactionRequest is the tagged union accepted by the transactions
// endpoint, keyed by EventType. Exactly one shape is valid per tag:
// SALES carries invoiceId and items, TAX_PAYMENT carries amount.
type TransactionRequest struct {
	EventType string            `json:"eventType"`
	Date      *time.Time        `json:"date"`
	InvoiceID string            `json:"invoiceId,omitempty"`
	Items     []TransactionItem `json:"items,omitempty"`
	Amount    *int64            `json:"amount,omitempty"`
}

// Service classifies, validates, and records incoming business events.
type Service interface {
	Ingest(ctx context.Context, req TransactionRequest) error
}
