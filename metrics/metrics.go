// Package metrics provides a Prometheus-backed implementation of
// netstack.Metrics. Collector mirrors the teacher's metrics package
// (github.com/m-lab/tcp-info/metrics): a handful of counters and gauges
// for dispatch and forwarding outcomes by result, ports in use, and
// interface queue depth.
//
// Unlike the teacher's package-level promauto vars -- appropriate for a
// single long-running collection binary -- Collector is constructed
// explicitly and registered against a caller-supplied prometheus.Registerer,
// since ergot is a library that may be embedded into more than one binary
// or, in tests, instantiated more than once per process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds every metric a NetStack and its interface profiles
// report to. The zero value is not usable; construct with NewCollector.
type Collector struct {
	dispatchTotal  *prometheus.CounterVec
	portsInUse     prometheus.Gauge
	framesForward  *prometheus.CounterVec
	interfaceQueue prometheus.Gauge
}

// NewCollector builds a Collector and registers its metrics against reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ergot_dispatch_total",
			Help: "Total number of NetStack dispatch attempts, by result.",
		}, []string{"result"}),
		portsInUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ergot_ports_in_use",
			Help: "Number of unicast ports currently attached to a socket.",
		}),
		framesForward: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ergot_interface_frames_total",
			Help: "Total number of frames an interface profile attempted to forward, by result.",
		}, []string{"result"}),
		interfaceQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ergot_interface_queue_depth",
			Help: "Current depth of the interface send queue.",
		}),
	}
	reg.MustRegister(c.dispatchTotal, c.portsInUse, c.framesForward, c.interfaceQueue)
	return c
}

// DispatchResult implements netstack.Metrics.
func (c *Collector) DispatchResult(result string) {
	if c == nil {
		return
	}
	c.dispatchTotal.WithLabelValues(result).Inc()
}

// PortsInUse implements netstack.Metrics.
func (c *Collector) PortsInUse(n int) {
	if c == nil {
		return
	}
	c.portsInUse.Set(float64(n))
}

// InterfaceFrame records the outcome of an interface profile's attempt to
// forward a frame.
func (c *Collector) InterfaceFrame(result string) {
	if c == nil {
		return
	}
	c.framesForward.WithLabelValues(result).Inc()
}

// InterfaceQueueDepth records the current depth of an interface's send
// queue, for capacity-planning dashboards.
func (c *Collector) InterfaceQueueDepth(n int) {
	if c == nil {
		return
	}
	c.interfaceQueue.Set(float64(n))
}
