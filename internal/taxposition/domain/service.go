package domain

import (
	"context"
	"time"
)

// Position is the running tax liability net of payments as of a given instant.
// Positive means liability outstanding, negative means overpaid.
type Position struct {
	Date        time.Time `json:"date"`
	TaxPosition int64     `json:"taxPosition"`
}

// Service computes the point-in-time tax position from the event history.
type Service interface {
	Compute(ctx context.Context, asOf time.Time) (*Position, error)
}
