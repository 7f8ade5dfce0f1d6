// Package observability provides OpenTelemetry instrumentation for tracing and metrics.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"syncbridge/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MeterName is the instrumentation scope of every syncbridge instrument.
const MeterName = "syncbridge"

// InitMetrics initializes the OpenTelemetry metrics provider with a Prometheus exporter.
// It returns the HTTP handler for the /metrics endpoint and a shutdown function.
// The shutdown function should be called on application exit for graceful cleanup.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// SyncMetrics counts sync batches and the items they touched.
type SyncMetrics struct {
	batches metric.Int64Counter
	items   metric.Int64Counter
}

// NewSyncMetrics creates the sync instruments on the global meter provider.
// Call it after InitMetrics so the instruments are exported.
func NewSyncMetrics() (*SyncMetrics, error) {
	meter := otel.Meter(MeterName)

	batches, err := meter.Int64Counter("syncbridge.sync.batches",
		metric.WithDescription("Sync batches by model and final ledger status"))
	if err != nil {
		return nil, fmt.Errorf("failed to create batches counter: %w", err)
	}

	items, err := meter.Int64Counter("syncbridge.sync.items",
		metric.WithDescription("Synced items by model and result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create items counter: %w", err)
	}

	return &SyncMetrics{batches: batches, items: items}, nil
}

// RecordBatch counts one finished batch.
func (m *SyncMetrics) RecordBatch(ctx context.Context, model string, status store.SyncStatus) {
	if m == nil {
		return
	}
	m.batches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("status", string(status)),
	))
}

// RecordItems counts n items of a committed batch with the given result ("created" or "updated").
func (m *SyncMetrics) RecordItems(ctx context.Context, model, result string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.items.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("model", model),
		attribute.String("result", result),
	))
}

// RegisterLedgerGauge exports the number of ledger entries per status. The
// gauge is observable, so count only runs when metrics are scraped. A failing
// count skips the observation instead of failing the scrape.
func RegisterLedgerGauge(count func(ctx context.Context) (map[store.SyncStatus]int64, error)) error {
	meter := otel.Meter(MeterName)

	_, err := meter.Int64ObservableGauge("syncbridge.ledger.entries",
		metric.WithDescription("Sync history entries by status"),
		metric.WithInt64Callback(func(ctx context.Context, obs metric.Int64Observer) error {
			counts, err := count(ctx)
			if err != nil {
				return nil
			}
			for _, status := range store.SyncStatuses {
				obs.Observe(counts[status], metric.WithAttributes(attribute.String("status", string(status))))
			}
			return nil
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create ledger gauge: %w", err)
	}
	return nil
}
