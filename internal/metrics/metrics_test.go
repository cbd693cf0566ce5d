package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}

	r.ObserveBacktest("percentile", "ok", 0.5)
	r.CountOrder("BUY", "filled")
	r.CountOrder("BUY", "filled")
	r.CountOrder("SELL", "rejected")
	r.AddBars(250)

	if got := testutil.ToFloat64(r.backtestsTotal.WithLabelValues("percentile", "ok")); got != 1 {
		t.Errorf("backtestsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.ordersTotal.WithLabelValues("BUY", "filled")); got != 2 {
		t.Errorf("ordersTotal{BUY,filled} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.ordersTotal.WithLabelValues("SELL", "rejected")); got != 1 {
		t.Errorf("ordersTotal{SELL,rejected} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.barsProcessed); got != 250 {
		t.Errorf("barsProcessed = %v, want 250", got)
	}
}
