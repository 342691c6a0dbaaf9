package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Event type tags accepted by the ingestion endpoint.
const (
	EventTypeSales      = "SALES"
	EventTypeTaxPayment = "TAX_PAYMENT"
)

// SaleItem is a line item owned by a sale. itemId is unique within its sale.
// Cost is in minor currency units (pennies).
type SaleItem struct {
	ID          snowflake.ID `gorm:"primaryKey"`
	SaleEventID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_sale_items_event_item,priority:1"`
	ItemID      string       `gorm:"column:item_id;type:text;not null;uniqueIndex:ux_sale_items_event_item,priority:2"`
	Cost        int64        `gorm:"not null"`
	TaxRate     float64      `gorm:"type:numeric(6,4);not null"`
}

// TableName sets the database table name.
func (SaleItem) TableName() string { return "sale_items" }

// SaleEvent is the one mutable projection in the store: the event record is
// append-only, but its items are rewritten by amendments. Version guards the
// read-modify-write sequence against concurrent lost updates.
type SaleEvent struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	EventType string       `gorm:"column:event_type;type:text;not null"`
	Date      time.Time    `gorm:"not null;index"`
	InvoiceID string       `gorm:"column:invoice_id;type:text;not null;uniqueIndex:ux_sale_events_invoice"`
	Version   int64        `gorm:"not null;default:1"`
	Items     []SaleItem   `gorm:"foreignKey:SaleEventID;references:ID"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SaleEvent) TableName() string { return "sale_events" }

// Validate checks the creation invariants for a sale event.
func (s *SaleEvent) Validate() error {
	if s.InvoiceID == "" {
		return ErrInvalidInvoiceID
	}
	if len(s.Items) == 0 {
		return ErrEmptyItems
	}
	seen := make(map[string]struct{}, len(s.Items))
	for i := range s.Items {
		item := &s.Items[i]
		if item.ItemID == "" {
			return ErrInvalidItemID
		}
		if _, ok := seen[item.ItemID]; ok {
			return ErrDuplicateItemID
		}
		seen[item.ItemID] = struct{}{}
		if item.Cost < 0 {
			return ErrInvalidCost
		}
		if item.TaxRate < 0 || item.TaxRate > 1 {
			return ErrInvalidTaxRate
		}
	}
	return nil
}

// TaxPaymentEvent records a tax payment. Immutable once created.
type TaxPaymentEvent struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	EventType string       `gorm:"column:event_type;type:text;not null"`
	Date      time.Time    `gorm:"not null;index"`
	Amount    int64        `gorm:"not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (TaxPaymentEvent) TableName() string { return "tax_payment_events" }

func (p *TaxPaymentEvent) Validate() error {
	if p.Amount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// SaleAmendmentEvent records an intent to set an item's cost and tax rate,
// independent of whether the target sale exists yet. Immutable, append-only.
// Snowflake IDs are monotonic, so ID order doubles as insertion order when
// amendment dates tie.
type SaleAmendmentEvent struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Date      time.Time    `gorm:"not null;index"`
	InvoiceID string       `gorm:"column:invoice_id;type:text;not null;index"`
	ItemID    string       `gorm:"column:item_id;type:text;not null"`
	Cost      int64        `gorm:"not null"`
	TaxRate   float64      `gorm:"type:numeric(6,4);not null"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SaleAmendmentEvent) TableName() string { return "sale_amendment_events" }

func (a *SaleAmendmentEvent) Validate() error {
	if a.InvoiceID == "" {
		return ErrInvalidInvoiceID
	}
	if a.ItemID == "" {
		return ErrInvalidItemID
	}
	if a.Cost < 0 {
		return ErrInvalidCost
	}
	if a.TaxRate < 0 || a.TaxRate > 1 {
		return ErrInvalidTaxRate
	}
	return nil
}
