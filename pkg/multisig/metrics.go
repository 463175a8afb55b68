package multisig

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "multisig_events_total",
		Help: "Number of accepted multisig operations by kind.",
	}, []string{"event"})

	executorTimeHistogramVec = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "multisig_ledger_call_seconds",
		Help:    "Duration of execute calls forwarded to the ledger.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"result"})

	requiredGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "multisig_required_confirmations",
	})
)
