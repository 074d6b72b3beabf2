package persistence_test

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/persistkit/logger"
	"github.com/kbukum/persistkit/persistence"
	"github.com/kbukum/persistkit/persistence/testutil"
)

func collectSum(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s has data type %T", name, m.Data)
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			return total
		}
	}
	return 0
}

func TestFactoryMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())

	f, err := persistence.Open(context.Background(), testutil.Unit("orders"), logger.NewNop(),
		persistence.WithMeter(mp.Meter("test")),
	)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	ctx := context.Background()
	h1, _ := f.CreateHandle(ctx)
	_, _ = f.CreateHandle(ctx)
	h1.Close()

	if got := collectSum(t, reader, "persistence.handles.opened"); got != 2 {
		t.Errorf("handles.opened = %d, want 2", got)
	}
	if got := collectSum(t, reader, "persistence.handles.active"); got != 1 {
		t.Errorf("handles.active = %d, want 1", got)
	}

	// Closing the factory force-closes the remaining handle.
	f.Close()
	if got := collectSum(t, reader, "persistence.handles.active"); got != 0 {
		t.Errorf("handles.active after Close = %d, want 0", got)
	}

	_, _ = f.CreateHandle(ctx)
	if got := collectSum(t, reader, "persistence.factory.errors"); got != 1 {
		t.Errorf("factory.errors = %d, want 1", got)
	}
}
