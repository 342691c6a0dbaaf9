package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	amendmentdomain "github.com/smallbiznis/taxledger/internal/amendment/domain"
	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
	ingestiondomain "github.com/smallbiznis/taxledger/internal/ingestion/domain"
	obsmetrics "github.com/smallbiznis/taxledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Store      eventdomain.Store
	Reconciler amendmentdomain.Service
	Metrics    *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	store      eventdomain.Store
	reconciler amendmentdomain.Service
	metrics    *obsmetrics.Metrics
}

func NewService(p serviceParams) ingestiondomain.Service {
	return &Service{
		log:        p.Log.Named("ingestion.service"),
		genID:      p.GenID,
		store:      p.Store,
		reconciler: p.Reconciler,
		metrics:    p.Metrics,
	}
}

func (s *Service) Ingest(ctx context.Context, req ingestiondomain.TransactionRequest) error {
	switch req.EventType {
	case eventdomain.EventTypeSales:
		return s.ingestSale(ctx, req)
	case eventdomain.EventTypeTaxPayment:
		return s.ingestTaxPayment(ctx, req)
	default:
		return eventdomain.ErrInvalidEventType
	}
}

func (s *Service) ingestSale(ctx context.Context, req ingestiondomain.TransactionRequest) error {
	if req.Date == nil {
		return eventdomain.ErrInvalidDate
	}

	sale := &eventdomain.SaleEvent{
		ID:        s.genID.Generate(),
		EventType: eventdomain.EventTypeSales,
		Date:      req.Date.UTC(),
		InvoiceID: req.InvoiceID,
		Version:   1,
	}
	for _, item := range req.Items {
		if item.Cost == nil {
			return eventdomain.ErrInvalidCost
		}
		if item.TaxRate == nil {
			return eventdomain.ErrInvalidTaxRate
		}
		sale.Items = append(sale.Items, eventdomain.SaleItem{
			ID:          s.genID.Generate(),
			SaleEventID: sale.ID,
			ItemID:      item.ItemID,
			Cost:        *item.Cost,
			TaxRate:     *item.TaxRate,
		})
	}
	if err := sale.Validate(); err != nil {
		return err
	}

	if err := s.store.AppendSale(ctx, sale); err != nil {
		return err
	}

	// A correction may have arrived before the sale itself; fold the newest
	// one in now so the sale never reads stale.
	if err := s.reconciler.Replay(ctx, sale); err != nil {
		return err
	}

	s.metrics.RecordEventIngested(ctx, eventdomain.EventTypeSales)
	s.log.Info("sale recorded",
		zap.String("invoice_id", sale.InvoiceID),
		zap.Int("items", len(sale.Items)),
	)
	return nil
}

func (s *Service) ingestTaxPayment(ctx context.Context, req ingestiondomain.TransactionRequest) error {
	if req.Date == nil {
		return eventdomain.ErrInvalidDate
	}
	if req.Amount == nil {
		return eventdomain.ErrInvalidAmount
	}

	payment := &eventdomain.TaxPaymentEvent{
		ID:        s.genID.Generate(),
		EventType: eventdomain.EventTypeTaxPayment,
		Date:      req.Date.UTC(),
		Amount:    *req.Amount,
	}
	if err := payment.Validate(); err != nil {
		return err
	}

	if err := s.store.AppendTaxPayment(ctx, payment); err != nil {
		return err
	}

	s.metrics.RecordEventIngested(ctx, eventdomain.EventTypeTaxPayment)
	s.log.Info("tax payment recorded", zap.Int64("amount", payment.Amount))
	return nil
}
