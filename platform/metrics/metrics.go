// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	LeadsReconciled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_leads_reconciled_total",
			Help: "Imported records reconciled into the lead store, by result",
		},
		[]string{"result"},
	)

	LeadMoves = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_lead_moves_total",
			Help: "Interactive pipeline moves, by outcome",
		},
		[]string{"outcome"},
	)

	ImportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crm_import_duration_seconds",
			Help:    "Duration of batch import runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"source"},
	)

	MalformedValues = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_malformed_values_total",
			Help: "Input values replaced by safe defaults, by field",
		},
		[]string{"field"},
	)
)

// Handler serves the default registry.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
