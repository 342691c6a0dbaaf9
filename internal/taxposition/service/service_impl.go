package service

import (
	"context"
	"math"
	"time"

	eventdomain "github.com/smallbiznis/taxledger/internal/event/domain"
	obsmetrics "github.com/smallbiznis/taxledger/internal/observability/metrics"
	taxpositiondomain "github.com/smallbiznis/taxledger/internal/taxposition/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serviceParams struct {
	fx.In

	Log     *zap.Logger
	Store   eventdomain.Store
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	store   eventdomain.Store
	metrics *obsmetrics.Metrics
}

func NewService(p serviceParams) taxpositiondomain.Service {
	return &Service{
		log:     p.Log.Named("taxposition.service"),
		store:   p.Store,
		metrics: p.Metrics,
	}
}

func (s *Service) Compute(ctx context.Context, asOf time.Time) (*taxpositiondomain.Position, error) {
	sales, payments, err := s.store.QueryAsOf(ctx, asOf)
	if err != nil {
		return nil, err
	}

	var acc taxAccumulator
	for i := range sales {
		for _, item := range sales[i].Items {
			acc.add(float64(item.Cost) * item.TaxRate)
		}
	}
	totalTax := int64(math.RoundToEven(acc.sum()))

	var totalPaid int64
	for _, payment := range payments {
		totalPaid += payment.Amount
	}

	s.metrics.RecordPositionQuery(ctx)

	return &taxpositiondomain.Position{
		Date:        asOf.UTC(),
		TaxPosition: totalTax - totalPaid,
	}, nil
}

// taxAccumulator is a Neumaier compensated summation. Individual cost*taxRate
// products stay unrounded; rounding happens once on the grand total so
// per-line rounding error cannot compound.
type taxAccumulator struct {
	total        float64
	compensation float64
}

func (a *taxAccumulator) add(v float64) {
	t := a.total + v
	if math.Abs(a.total) >= math.Abs(v) {
		a.compensation += (a.total - t) + v
	} else {
		a.compensation += (v - t) + a.total
	}
	a.total = t
}

func (a *taxAccumulator) sum() float64 {
	return a.total + a.compensation
}
