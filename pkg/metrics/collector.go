// Package metrics exposes the repeater's call/FEC/collision counters as
// Prometheus metrics via github.com/prometheus/client_golang.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the repeater's Prometheus instruments and the
// registry they're registered against. The package stops at exposing a
// *prometheus.Registry an embedding host can mount on its own HTTP
// mux; it never starts a listener for the metrics themselves
// (NewPrometheusServer is a convenience the host may skip).
type Collector struct {
	Registry *prometheus.Registry

	CallsStarted  *prometheus.CounterVec
	CallsEnded    *prometheus.CounterVec
	CallsRejected *prometheus.CounterVec
	Collisions    *prometheus.CounterVec
	ActiveCalls   *prometheus.GaugeVec

	FECBits   *prometheus.CounterVec
	FECErrors *prometheus.CounterVec
	BER       *prometheus.HistogramVec

	BridgeRoutes prometheus.Counter
}

// NewCollector builds a Collector with its instruments registered
// against a fresh registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		Registry: reg,
		CallsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lmr_calls_started_total",
			Help: "Calls admitted to AUDIO/DATA, by protocol and side (rf/net).",
		}, []string{"protocol", "side"}),
		CallsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lmr_calls_ended_total",
			Help: "Calls that reached end-of-transmission, by protocol and side.",
		}, []string{"protocol", "side"}),
		CallsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lmr_calls_rejected_total",
			Help: "Calls denied by access control, by protocol and reason (src/dst).",
		}, []string{"protocol", "reason"}),
		Collisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lmr_collisions_total",
			Help: "Traffic-collision resolutions, by protocol and outcome (preempt_new/preempt_existing/drop).",
		}, []string{"protocol", "outcome"}),
		ActiveCalls: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "lmr_active_calls",
			Help: "Whether a side currently holds an AUDIO/DATA call (1) or not (0), by protocol and side.",
		}, []string{"protocol", "side"}),
		FECBits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lmr_fec_bits_total",
			Help: "Voice payload bits surveyed by the FEC regenerator, by protocol.",
		}, []string{"protocol"}),
		FECErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lmr_fec_errors_total",
			Help: "Bit errors corrected by the FEC regenerator, by protocol.",
		}, []string{"protocol"}),
		BER: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lmr_call_ber_percent",
			Help:    "Per-call bit-error-rate percentage reported at end of transmission.",
			Buckets: []float64{0, 0.5, 1, 2, 5, 10, 20, 50},
		}, []string{"protocol", "side"}),
		BridgeRoutes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lmr_bridge_routes_total",
			Help: "Calls forwarded by the conference bridge router.",
		}),
	}

	reg.MustRegister(
		c.CallsStarted, c.CallsEnded, c.CallsRejected, c.Collisions,
		c.ActiveCalls, c.FECBits, c.FECErrors, c.BER, c.BridgeRoutes,
	)
	return c
}

// CallStarted records a call admitted to AUDIO/DATA on the given side
// ("rf" or "net") of the given protocol, and raises the active-call gauge.
func (c *Collector) CallStarted(protocol, side string) {
	c.CallsStarted.WithLabelValues(protocol, side).Inc()
	c.ActiveCalls.WithLabelValues(protocol, side).Set(1)
}

// CallEnded records a call's end-of-transmission, its reported BER, and
// lowers the active-call gauge.
func (c *Collector) CallEnded(protocol, side string, berPercent float64) {
	c.CallsEnded.WithLabelValues(protocol, side).Inc()
	c.ActiveCalls.WithLabelValues(protocol, side).Set(0)
	c.BER.WithLabelValues(protocol, side).Observe(berPercent)
}

// CallRejected records an access-control denial ("src" or "dst" reason).
func (c *Collector) CallRejected(protocol, reason string) {
	c.CallsRejected.WithLabelValues(protocol, reason).Inc()
}

// Collision records a traffic-collision resolution outcome:
// "preempt_new", "preempt_existing", or "drop".
func (c *Collector) Collision(protocol, outcome string) {
	c.Collisions.WithLabelValues(protocol, outcome).Inc()
}

// FECRegenerated records one regeneration pass's surveyed bits and
// corrected-error count.
func (c *Collector) FECRegenerated(protocol string, bits, errs uint64) {
	c.FECBits.WithLabelValues(protocol).Add(float64(bits))
	c.FECErrors.WithLabelValues(protocol).Add(float64(errs))
}

// BridgeRouted records one call forwarded by the conference bridge.
func (c *Collector) BridgeRouted() {
	c.BridgeRoutes.Inc()
}
