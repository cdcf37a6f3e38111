package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	mutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meterbook_mutations_total",
			Help: "Reading file mutations by action.",
		},
		[]string{"action"},
	)
	importedReadingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "meterbook_imported_readings_total",
			Help: "Readings applied by bulk import.",
		},
	)
)
