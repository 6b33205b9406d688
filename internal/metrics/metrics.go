package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type CheckoutMetrics struct {
	Started        prometheus.Counter
	Committed      prometheus.Counter
	Declined       prometheus.Counter
	CommitFaults   prometheus.Counter
	CaptureLatency prometheus.Histogram
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	m := &CheckoutMetrics{
		Started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "started_total",
			Help:      "Checkouts started (pending order created).",
		}),
		Committed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "committed_total",
			Help:      "Orders committed after a confirmed capture.",
		}),
		Declined: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "declined_total",
			Help:      "Payment captures declined by the gateway.",
		}),
		CommitFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "commit_faults_total",
			Help:      "Captures confirmed but order persistence failed; needs reconciliation.",
		}),
		CaptureLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "checkout",
			Name:      "capture_duration_ms",
			Help:      "Payment capture latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
	}
	reg.MustRegister(m.Started, m.Committed, m.Declined, m.CommitFaults, m.CaptureLatency)
	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}
