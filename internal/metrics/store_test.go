package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveStoreOp(t *testing.T) {
	before := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("memory", "search", "ok"))
	beforeErr := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("memory", "search", "error"))

	ObserveStoreOp("memory", "search", time.Now(), nil)
	ObserveStoreOp("memory", "search", time.Now(), errors.New("boom"))

	if got := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("memory", "search", "ok")); got != before+1 {
		t.Errorf("ok counter = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(StoreOperationsTotal.WithLabelValues("memory", "search", "error")); got != beforeErr+1 {
		t.Errorf("error counter = %v, want %v", got, beforeErr+1)
	}
	if testutil.CollectAndCount(StoreOperationDuration) == 0 {
		t.Error("expected duration samples")
	}
}

func TestRegisterIdempotent(t *testing.T) {
	RegisterStoreMetrics()
	RegisterStoreMetrics()
	RegisterEmbeddingMetrics()
	RegisterEmbeddingMetrics()
}
