package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	if len(mfs) == 0 {
		t.Error("expected some metrics to be registered")
	}
}

func gatherFamily(t *testing.T, reg *Registry, name string) bool {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() == name {
			return true
		}
	}
	return false
}

func TestRegistry_RecordBacktest(t *testing.T) {
	reg := NewRegistry()

	reg.RecordBacktest(StatusOK, 0.25, 12)
	reg.RecordBacktest(StatusError, 0.01, 0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	var total float64
	for _, mf := range mfs {
		switch mf.GetName() {
		case "strata_backtests_total":
			for _, m := range mf.GetMetric() {
				total += m.GetCounter().GetValue()
			}
		case "strata_backtest_trades":
			for _, m := range mf.GetMetric() {
				if m.GetHistogram().GetSampleCount() != 1 {
					t.Errorf("trade histogram samples = %d, want 1 (errors not observed)",
						m.GetHistogram().GetSampleCount())
				}
			}
		}
	}
	if total != 2 {
		t.Errorf("backtests_total = %v, want 2", total)
	}
}

func TestRegistry_RecordSweep(t *testing.T) {
	reg := NewRegistry()

	reg.RecordSweep(StatusOK, 3.5, 95, 100)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	counts := map[string]float64{}
	for _, mf := range mfs {
		if mf.GetName() != "strata_sweep_combinations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "outcome" {
					counts[label.GetValue()] = m.GetCounter().GetValue()
				}
			}
		}
	}
	if counts["completed"] != 95 || counts["missing"] != 5 {
		t.Errorf("combinations = %v, want completed 95 missing 5", counts)
	}
}

func TestRegistry_DomainCounters(t *testing.T) {
	reg := NewRegistry()

	reg.RecordFeedBars("csv", 1440)
	reg.RecordArchiveOp("s3", "write", StatusOK)
	reg.RecordNotification("telegram", StatusError)
	reg.RecordAdvisorRequest("claude", StatusOK)

	for _, name := range []string{
		"strata_feed_bars_total",
		"strata_archive_operations_total",
		"strata_notifications_total",
		"strata_advisor_requests_total",
	} {
		if !gatherFamily(t, reg, name) {
			t.Errorf("expected %s to be registered after recording", name)
		}
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(nil); got != StatusOK {
		t.Errorf("StatusOf(nil) = %q, want ok", got)
	}
	if got := StatusOf(errors.New("boom")); got != StatusError {
		t.Errorf("StatusOf(err) = %q, want error", got)
	}
}

// Ensure the registry implements prometheus.Gatherer interface
func TestRegistry_ImplementsGatherer(t *testing.T) {
	reg := NewRegistry()
	var _ prometheus.Gatherer = reg
}
