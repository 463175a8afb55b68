package withdrawal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "withdrawal_operations",
		Help: "Withdrawal operations by confirmation status.",
	}, []string{"status"})

	checksCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "withdrawal_checks_attached_total",
	})
)
