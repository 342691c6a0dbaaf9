package domain

import (
	"context"
	"time"

	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
)

// Status distinguishes the two success outcomes of an amendment. Both are
// accepted; the split exists for observability, not control flow.
type Status string

const (
	// StatusSaleUpdated means the target sale existed and its item was rewritten.
	StatusSaleUpdated Status = "sale_updated"
	// StatusRecordedSalePending means no sale exists yet; the amendment stays
	// on file and is replayed when the sale is created.
	StatusRecordedSalePending Status = "amendment_recorded"
)

// AmendRequest is the amendment entry-point payload. Date is optional and
// defaults to the current time. Cost and TaxRate are pointers so a missing
// field is distinguishable from zero.
type AmendRequest struct {
	Date      *time.Time `json:"date,omitempty"`
	InvoiceID string     `json:"invoiceId"`
	ItemID    string     `json:"itemId"`
	Cost      *int64     `json:"cost"`
	TaxRate   *float64   `json:"taxRate"`
}

type AmendResponse struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Service reconciles amendments with sales so that sale items always reflect
// the most recent amendment per (invoiceId, itemId), regardless of arrival order.
type Service interface {
	// Apply logs the amendment and merges it into the target sale if one exists.
	Apply(ctx context.Context, req AmendRequest) (*AmendResponse, error)

	// Replay applies the latest amendment on file to a newly created sale.
	// At most one amendment record is replayed per invoice.
	Replay(ctx context.Context, sale *eventdomain.SaleEvent) error
}
