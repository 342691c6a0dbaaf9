package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	eventsIngested     metric.Int64Counter
	amendmentsApplied  metric.Int64Counter
	amendmentsReplayed metric.Int64Counter
	positionQueries    metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "taxledger"
	}
	meter := provider.Meter(name)

	eventsIngested, err := meter.Int64Counter("taxledger_events_ingested_total")
	if err != nil {
		return nil, err
	}
	amendmentsApplied, err := meter.Int64Counter("taxledger_amendments_applied_total")
	if err != nil {
		return nil, err
	}
	amendmentsReplayed, err := meter.Int64Counter("taxledger_amendments_replayed_total")
	if err != nil {
		return nil, err
	}
	positionQueries, err := meter.Int64Counter("taxledger_tax_position_queries_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		eventsIngested:     eventsIngested,
		amendmentsApplied:  amendmentsApplied,
		amendmentsReplayed: amendmentsReplayed,
		positionQueries:    positionQueries,
	}, nil
}

// RecordEventIngested counts one accepted event of the given kind.
func (m *Metrics) RecordEventIngested(ctx context.Context, eventType string) {
	if m == nil || m.eventsIngested == nil {
		return
	}
	m.eventsIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}

// RecordAmendmentApplied counts one amendment with its terminal status.
func (m *Metrics) RecordAmendmentApplied(ctx context.Context, status string) {
	if m == nil || m.amendmentsApplied == nil {
		return
	}
	m.amendmentsApplied.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordAmendmentReplayed counts one replay at sale-creation time.
func (m *Metrics) RecordAmendmentReplayed(ctx context.Context) {
	if m == nil || m.amendmentsReplayed == nil {
		return
	}
	m.amendmentsReplayed.Add(ctx, 1)
}

// RecordPositionQuery counts one tax-position computation.
func (m *Metrics) RecordPositionQuery(ctx context.Context) {
	if m == nil || m.positionQueries == nil {
		return
	}
	m.positionQueries.Add(ctx, 1)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp metrics protocol %q", protocol)
	}
}
