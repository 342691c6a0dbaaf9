package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	amendmentdomain "github.com/smallbiznis/taxledger/internal/amendment/domain"
	"github.com/smallbiznis/taxledger/internal/clock"
	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
	eventrepository "github.com/smallbiznis/taxledger/internal/event/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, eventdomain.Store, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&eventdomain.SaleEvent{},
		&eventdomain.SaleItem{},
		&eventdomain.TaxPaymentEvent{},
		&eventdomain.SaleAmendmentEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := eventrepository.NewRepository(db)
	svc := NewService(ServiceParams{
		Log:   zap.NewNop(),
		GenID: node,
		Store: store,
		Clock: clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}).(*Service)

	return svc, store, node
}

func seedSale(t *testing.T, store eventdomain.Store, node *snowflake.Node, invoiceID string, items ...eventdomain.SaleItem) *eventdomain.SaleEvent {
	t.Helper()

	sale := &eventdomain.SaleEvent{
		ID:        node.Generate(),
		EventType: eventdomain.EventTypeSales,
		Date:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		InvoiceID: invoiceID,
		Version:   1,
	}
	for i := range items {
		items[i].ID = node.Generate()
		items[i].SaleEventID = sale.ID
	}
	sale.Items = items
	require.NoError(t, store.AppendSale(context.Background(), sale))
	return sale
}

func amendReq(invoiceID, itemID string, cost int64, taxRate float64) amendmentdomain.AmendRequest {
	date := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return amendmentdomain.AmendRequest{
		Date:      &date,
		InvoiceID: invoiceID,
		ItemID:    itemID,
		Cost:      &cost,
		TaxRate:   &taxRate,
	}
}

func TestApply_UpdatesExistingItem(t *testing.T) {
	svc, store, node := newTestService(t)
	seedSale(t, store, node, "INV-1",
		eventdomain.SaleItem{ItemID: "A", Cost: 1000, TaxRate: 0.20},
		eventdomain.SaleItem{ItemID: "B", Cost: 500, TaxRate: 0.10},
	)

	resp, err := svc.Apply(context.Background(), amendReq("INV-1", "A", 1200, 0.25))
	require.NoError(t, err)
	assert.Equal(t, amendmentdomain.StatusSaleUpdated, resp.Status)

	sale, err := store.FindSaleByInvoiceID(context.Background(), "INV-1")
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)

	byItem := itemsByID(sale)
	assert.Equal(t, int64(1200), byItem["A"].Cost)
	assert.Equal(t, 0.25, byItem["A"].TaxRate)
	// The other item is untouched.
	assert.Equal(t, int64(500), byItem["B"].Cost)
	assert.Equal(t, 0.10, byItem["B"].TaxRate)
}

func TestApply_AppendsMissingItem(t *testing.T) {
	svc, store, node := newTestService(t)
	seedSale(t, store, node, "INV-1",
		eventdomain.SaleItem{ItemID: "A", Cost: 1000, TaxRate: 0.20},
	)

	resp, err := svc.Apply(context.Background(), amendReq("INV-1", "C", 300, 0.05))
	require.NoError(t, err)
	assert.Equal(t, amendmentdomain.StatusSaleUpdated, resp.Status)

	sale, err := store.FindSaleByInvoiceID(context.Background(), "INV-1")
	require.NoError(t, err)
	require.Len(t, sale.Items, 2)

	byItem := itemsByID(sale)
	assert.Equal(t, int64(300), byItem["C"].Cost)
	assert.Equal(t, 0.05, byItem["C"].TaxRate)
}

func TestApply_SaleDoesNotExistYet(t *testing.T) {
	svc, store, _ := newTestService(t)

	resp, err := svc.Apply(context.Background(), amendReq("INV-2", "B", 500, 0.10))
	require.NoError(t, err)
	assert.Equal(t, amendmentdomain.StatusRecordedSalePending, resp.Status)

	// The amendment stays on file even though nothing was updated.
	amendment, err := store.FindLatestAmendment(context.Background(), "INV-2", "B")
	require.NoError(t, err)
	assert.Equal(t, int64(500), amendment.Cost)

	_, err = store.FindSaleByInvoiceID(context.Background(), "INV-2")
	assert.ErrorIs(t, err, eventdomain.ErrNotFound)
}

func TestApply_Idempotent(t *testing.T) {
	svc, store, node := newTestService(t)
	seedSale(t, store, node, "INV-1",
		eventdomain.SaleItem{ItemID: "A", Cost: 1000, TaxRate: 0.20},
	)

	req := amendReq("INV-1", "A", 1500, 0.15)
	_, err := svc.Apply(context.Background(), req)
	require.NoError(t, err)
	_, err = svc.Apply(context.Background(), req)
	require.NoError(t, err)

	sale, err := store.FindSaleByInvoiceID(context.Background(), "INV-1")
	require.NoError(t, err)
	require.Len(t, sale.Items, 1)
	assert.Equal(t, int64(1500), sale.Items[0].Cost)
	assert.Equal(t, 0.15, sale.Items[0].TaxRate)
}

func TestApply_ValidationFailures(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Apply(context.Background(), amendReq("", "A", 100, 0.1))
	assert.ErrorIs(t, err, eventdomain.ErrInvalidInvoiceID)

	_, err = svc.Apply(context.Background(), amendReq("INV-1", "", 100, 0.1))
	assert.ErrorIs(t, err, eventdomain.ErrInvalidItemID)

	_, err = svc.Apply(context.Background(), amendReq("INV-1", "A", -1, 0.1))
	assert.ErrorIs(t, err, eventdomain.ErrInvalidCost)

	_, err = svc.Apply(context.Background(), amendReq("INV-1", "A", 100, 1.5))
	assert.ErrorIs(t, err, eventdomain.ErrInvalidTaxRate)

	missingCost := amendmentdomain.AmendRequest{InvoiceID: "INV-1", ItemID: "A", TaxRate: new(float64)}
	_, err = svc.Apply(context.Background(), missingCost)
	assert.ErrorIs(t, err, eventdomain.ErrInvalidCost)
}

func TestApply_DateDefaultsToClock(t *testing.T) {
	svc, store, _ := newTestService(t)

	cost := int64(100)
	rate := 0.1
	_, err := svc.Apply(context.Background(), amendmentdomain.AmendRequest{
		InvoiceID: "INV-9",
		ItemID:    "A",
		Cost:      &cost,
		TaxRate:   &rate,
	})
	require.NoError(t, err)

	amendment, err := store.FindLatestAmendment(context.Background(), "INV-9", "A")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), amendment.Date.UTC())
}

func TestReplay_LatestAmendmentWins(t *testing.T) {
	svc, store, node := newTestService(t)

	// Two amendments recorded before the sale exists; only the newest replays.
	_, err := svc.Apply(context.Background(), amendReq("INV-2", "B", 450, 0.10))
	require.NoError(t, err)

	later := amendReq("INV-2", "B", 500, 0.10)
	laterDate := time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)
	later.Date = &laterDate
	_, err = svc.Apply(context.Background(), later)
	require.NoError(t, err)

	sale := seedSale(t, store, node, "INV-2",
		eventdomain.SaleItem{ItemID: "B", Cost: 400, TaxRate: 0.10},
	)
	require.NoError(t, svc.Replay(context.Background(), sale))

	stored, err := store.FindSaleByInvoiceID(context.Background(), "INV-2")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, int64(500), stored.Items[0].Cost)
}

func TestReplay_NoAmendmentOnFile(t *testing.T) {
	svc, store, node := newTestService(t)
	sale := seedSale(t, store, node, "INV-3",
		eventdomain.SaleItem{ItemID: "A", Cost: 1000, TaxRate: 0.20},
	)

	require.NoError(t, svc.Replay(context.Background(), sale))

	stored, err := store.FindSaleByInvoiceID(context.Background(), "INV-3")
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, int64(1000), stored.Items[0].Cost)
}

func itemsByID(sale *eventdomain.SaleEvent) map[string]eventdomain.SaleItem {
	out := make(map[string]eventdomain.SaleItem, len(sale.Items))
	for _, item := range sale.Items {
		out[item.ItemID] = item
	}
	return out
}
