package reconcile

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var refreshCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "reconcile_refresh_total",
	Help: "Reconciliation refreshes by result.",
}, []string{"result"})
