// Package observe wires OpenTelemetry metrics through the Prometheus
// exporter bridge and provides the HTTP middleware that records request
// durations and correlation IDs.
package observe

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "github.com/platewise/platewise"

// InitProvider installs a metrics provider backed by the Prometheus
// exporter, registered with the default Prometheus registry so that
// promhttp serves everything recorded here.
func InitProvider() (*sdkmetric.MeterProvider, error) {
	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("observe: create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return provider, nil
}

// Metrics holds the service's instruments. A nil *Metrics is valid and
// records nothing, so wiring metrics stays optional in tests and the MCP
// mode.
type Metrics struct {
	analyzeDuration  metric.Float64Histogram
	repriceDuration  metric.Float64Histogram
	providerRequests metric.Int64Counter
	providerErrors   metric.Int64Counter
	itemsResolved    metric.Int64Counter
	httpDuration     metric.Float64Histogram
}

// NewMetrics creates the service instruments on the globally installed
// meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}
	var err error
	if m.analyzeDuration, err = meter.Float64Histogram("platewise_analyze_duration_seconds",
		metric.WithDescription("Duration of meal analyze operations"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if m.repriceDuration, err = meter.Float64Histogram("platewise_reprice_duration_seconds",
		metric.WithDescription("Duration of meal reprice operations"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if m.providerRequests, err = meter.Int64Counter("platewise_provider_requests_total",
		metric.WithDescription("Nutrition provider requests by provider")); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if m.providerErrors, err = meter.Int64Counter("platewise_provider_errors_total",
		metric.WithDescription("Nutrition provider request failures by provider")); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if m.itemsResolved, err = meter.Int64Counter("platewise_items_resolved_total",
		metric.WithDescription("Resolved meal items by match outcome")); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	if m.httpDuration, err = meter.Float64Histogram("platewise_http_request_duration_seconds",
		metric.WithDescription("HTTP request duration by route and status"), metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	return m, nil
}

// RecordAnalyze records one analyze call's duration and item count.
func (m *Metrics) RecordAnalyze(ctx context.Context, d time.Duration, items int) {
	if m == nil {
		return
	}
	m.analyzeDuration.Record(ctx, d.Seconds(),
		metric.WithAttributes(attribute.Int("items", items)))
}

// RecordReprice records one reprice call's duration.
func (m *Metrics) RecordReprice(ctx context.Context, d time.Duration) {
	if m == nil {
		return
	}
	m.repriceDuration.Record(ctx, d.Seconds())
}

// ProviderRequest counts one provider round-trip, and its failure when err
// is non-nil.
func (m *Metrics) ProviderRequest(ctx context.Context, provider string, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("provider", provider))
	m.providerRequests.Add(ctx, 1, attrs)
	if err != nil {
		m.providerErrors.Add(ctx, 1, attrs)
	}
}

// ItemResolved counts one resolved item by match outcome.
func (m *Metrics) ItemResolved(ctx context.Context, matched bool) {
	if m == nil {
		return
	}
	m.itemsResolved.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("matched", matched)))
}

func (m *Metrics) recordHTTP(ctx context.Context, d time.Duration, route string, status int) {
	if m == nil {
		return
	}
	m.httpDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}
