package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCollectorRecordsDispatchResult(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.DispatchResult("ok")
	c.DispatchResult("ok")
	c.DispatchResult("no-route")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	got := counterValue(t, mfs, "ergot_dispatch_total", "result", "ok")
	if got != 2 {
		t.Fatalf("ok count=%v want 2", got)
	}
}

func TestNilCollectorIsNoOp(t *testing.T) {
	var c *Collector
	c.DispatchResult("ok")
	c.PortsInUse(3)
	c.InterfaceFrame("ok")
	c.InterfaceQueueDepth(1)
}

func counterValue(t *testing.T, mfs []*dto.MetricFamily, name, label, value string) float64 {
	t.Helper()
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == label && l.GetValue() == value {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s{%s=%s} not found", name, label, value)
	return 0
}
