package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
	"github.com/smallbiznis/taxledger/pkg/db"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) eventdomain.Store {
	return &repository{db: db}
}

func (r *repository) AppendSale(ctx context.Context, sale *eventdomain.SaleEvent) error {
	// Sale header and items land atomically; a half-written sale must never
	// be visible to readers.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(sale).Error; err != nil {
			return err
		}
		if len(sale.Items) == 0 {
			return nil
		}
		return tx.Create(&sale.Items).Error
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return eventdomain.ErrDuplicateInvoice
		}
		return fmt.Errorf("append sale: %w", err)
	}
	return nil
}

func (r *repository) AppendTaxPayment(ctx context.Context, payment *eventdomain.TaxPaymentEvent) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return fmt.Errorf("append tax payment: %w", err)
	}
	return nil
}

func (r *repository) AppendAmendment(ctx context.Context, amendment *eventdomain.SaleAmendmentEvent) error {
	if err := r.db.WithContext(ctx).Create(amendment).Error; err != nil {
		return fmt.Errorf("append amendment: %w", err)
	}
	return nil
}

func (r *repository) FindSaleByInvoiceID(ctx context.Context, invoiceID string) (*eventdomain.SaleEvent, error) {
	var sale eventdomain.SaleEvent
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("invoice_id = ?", invoiceID).
		First(&sale).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, eventdomain.ErrNotFound
		}
		return nil, fmt.Errorf("find sale %s: %w", invoiceID, err)
	}
	return &sale, nil
}

func (r *repository) FindLatestAmendment(ctx context.Context, invoiceID, itemID string) (*eventdomain.SaleAmendmentEvent, error) {
	stmt := r.db.WithContext(ctx).
		Model(&eventdomain.SaleAmendmentEvent{}).
		Where("invoice_id = ?", invoiceID)
	if itemID != "" {
		stmt = stmt.Where("item_id = ?", itemID)
	}

	// Snowflake IDs grow with insertion time, so id breaks date ties in
	// favor of the later write.
	var amendment eventdomain.SaleAmendmentEvent
	err := stmt.Order("date DESC").Order("id DESC").First(&amendment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, eventdomain.ErrNotFound
		}
		return nil, fmt.Errorf("find latest amendment %s: %w", invoiceID, err)
	}
	return &amendment, nil
}

func (r *repository) UpdateSaleItems(ctx context.Context, sale *eventdomain.SaleEvent) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&eventdomain.SaleEvent{}).
			Where("id = ? AND version = ?", sale.ID, sale.Version).
			Update("version", sale.Version+1)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return eventdomain.ErrVersionConflict
		}

		if err := tx.Where("sale_event_id = ?", sale.ID).Delete(&eventdomain.SaleItem{}).Error; err != nil {
			return err
		}
		if len(sale.Items) == 0 {
			return nil
		}
		return tx.Create(&sale.Items).Error
	})
	if err != nil {
		if errors.Is(err, eventdomain.ErrVersionConflict) {
			return eventdomain.ErrVersionConflict
		}
		return fmt.Errorf("update sale items %s: %w", sale.InvoiceID, err)
	}
	sale.Version++
	return nil
}

func (r *repository) QueryAsOf(ctx context.Context, ts time.Time) ([]eventdomain.SaleEvent, []eventdomain.TaxPaymentEvent, error) {
	var sales []eventdomain.SaleEvent
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("date <= ?", ts).
		Order("date ASC").
		Find(&sales).Error
	if err != nil {
		return nil, nil, fmt.Errorf("query sales as of %s: %w", ts.Format(time.RFC3339), err)
	}

	var payments []eventdomain.TaxPaymentEvent
	err = r.db.WithContext(ctx).
		Where("date <= ?", ts).
		Order("date ASC").
		Find(&payments).Error
	if err != nil {
		return nil, nil, fmt.Errorf("query payments as of %s: %w", ts.Format(time.RFC3339), err)
	}

	return sales, payments, nil
}
