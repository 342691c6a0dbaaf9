package domain

import "errors"

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidInvoiceID = errors.New("invalid_invoice_id")
	ErrEmptyItems       = errors.New("empty_items")
	ErrInvalidItemID    = errors.New("invalid_item_id")
	ErrDuplicateItemID  = errors.New("duplicate_item_id")
	ErrInvalidCost      = errors.New("invalid_cost")
	ErrInvalidTaxRate   = errors.New("invalid_tax_rate")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidDate      = errors.New("invalid_date")
	ErrDuplicateInvoice = errors.New("duplicate_invoice")
	ErrNotFound         = errors.New("not_found")
	ErrVersionConflict  = errors.New("version_conflict")
)
