package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	amendmentdomain "github.com/smallbiznis/taxledger/internal/amendment/domain"
	"github.com/smallbiznis/taxledger/internal/clock"
	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
	obsmetrics "github.com/smallbiznis/taxledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Concurrent writers to the same invoice lose the version race and re-read.
// Bounded so a pathological interleaving fails loudly instead of spinning.
const maxConflictRetries = 3

type ServiceParams struct {
	fx.In

	Log     *zap.Logger
	GenID   *snowflake.Node
	Store   eventdomain.Store
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	genID   *snowflake.Node
	store   eventdomain.Store
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParams) amendmentdomain.Service {
	return &Service{
		log:     p.Log.Named("amendment.service"),
		genID:   p.GenID,
		store:   p.Store,
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

func (s *Service) Apply(ctx context.Context, req amendmentdomain.AmendRequest) (*amendmentdomain.AmendResponse, error) {
	if req.Cost == nil {
		return nil, eventdomain.ErrInvalidCost
	}
	if req.TaxRate == nil {
		return nil, eventdomain.ErrInvalidTaxRate
	}

	date := s.clock.Now()
	if req.Date != nil {
		date = req.Date.UTC()
	}

	amendment := &eventdomain.SaleAmendmentEvent{
		ID:        s.genID.Generate(),
		Date:      date,
		InvoiceID: req.InvoiceID,
		ItemID:    req.ItemID,
		Cost:      *req.Cost,
		TaxRate:   *req.TaxRate,
	}
	if err := amendment.Validate(); err != nil {
		return nil, err
	}

	// The amendment is logged first, unconditionally. Whether a sale exists
	// only decides if there is anything to merge right now.
	if err := s.store.AppendAmendment(ctx, amendment); err != nil {
		return nil, err
	}

	status, err := s.mergeIntoSale(ctx, amendment)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordAmendmentApplied(ctx, string(status))

	if status == amendmentdomain.StatusRecordedSalePending {
		s.log.Info("amendment recorded, sale pending",
			zap.String("invoice_id", amendment.InvoiceID),
			zap.String("item_id", amendment.ItemID),
		)
		return &amendmentdomain.AmendResponse{
			Status:  status,
			Message: "Amendment saved. Sale does not exist yet.",
		}, nil
	}

	s.log.Info("sale updated by amendment",
		zap.String("invoice_id", amendment.InvoiceID),
		zap.String("item_id", amendment.ItemID),
	)
	return &amendmentdomain.AmendResponse{
		Status:  status,
		Message: "Sale updated and amendment logged.",
	}, nil
}

func (s *Service) Replay(ctx context.Context, sale *eventdomain.SaleEvent) error {
	latest, err := s.store.FindLatestAmendment(ctx, sale.InvoiceID, "")
	if err != nil {
		if errors.Is(err, eventdomain.ErrNotFound) {
			return nil
		}
		return err
	}

	for attempt := 0; ; attempt++ {
		s.merge(sale, latest)
		err := s.store.UpdateSaleItems(ctx, sale)
		if err == nil {
			break
		}
		if !errors.Is(err, eventdomain.ErrVersionConflict) || attempt >= maxConflictRetries {
			return err
		}
		sale, err = s.store.FindSaleByInvoiceID(ctx, sale.InvoiceID)
		if err != nil {
			return err
		}
	}

	s.metrics.RecordAmendmentReplayed(ctx)
	s.log.Info("replayed pending amendment",
		zap.String("invoice_id", sale.InvoiceID),
		zap.String("item_id", latest.ItemID),
	)
	return nil
}

// mergeIntoSale runs the find-merge-persist sequence, retrying the version
// race. A missing sale is the expected pending branch, not a failure.
func (s *Service) mergeIntoSale(ctx context.Context, amendment *eventdomain.SaleAmendmentEvent) (amendmentdomain.Status, error) {
	for attempt := 0; ; attempt++ {
		sale, err := s.store.FindSaleByInvoiceID(ctx, amendment.InvoiceID)
		if err != nil {
			if errors.Is(err, eventdomain.ErrNotFound) {
				return amendmentdomain.StatusRecordedSalePending, nil
			}
			return "", err
		}

		s.merge(sale, amendment)

		err = s.store.UpdateSaleItems(ctx, sale)
		if err == nil {
			return amendmentdomain.StatusSaleUpdated, nil
		}
		if !errors.Is(err, eventdomain.ErrVersionConflict) || attempt >= maxConflictRetries {
			return "", err
		}
	}
}

// merge sets the matching item's cost and tax rate, or appends the item when
// the amendment introduces one the sale never had.
func (s *Service) merge(sale *eventdomain.SaleEvent, amendment *eventdomain.SaleAmendmentEvent) {
	for i := range sale.Items {
		if sale.Items[i].ItemID == amendment.ItemID {
			sale.Items[i].Cost = amendment.Cost
			sale.Items[i].TaxRate = amendment.TaxRate
			return
		}
	}
	sale.Items = append(sale.Items, eventdomain.SaleItem{
		ID:          s.genID.Generate(),
		SaleEventID: sale.ID,
		ItemID:      amendment.ItemID,
		Cost:        amendment.Cost,
		TaxRate:     amendment.TaxRate,
	})
}
