package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "icu",
			Subsystem: "features",
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each feature pipeline stage",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	stageErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icu",
			Subsystem: "features",
			Name:      "stage_errors_total",
			Help:      "Number of failed feature pipeline stages",
		},
		[]string{"stage"},
	)

	patientsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icu",
			Subsystem: "features",
			Name:      "patients_processed_total",
			Help:      "Number of patient rows emitted per output",
		},
		[]string{"output"},
	)

	valuesCleared = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icu",
			Subsystem: "features",
			Name:      "values_cleared_total",
			Help:      "Number of readings cleared above their clip ceiling",
		},
		[]string{"variable"},
	)

	rowsPersisted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "icu",
			Subsystem: "storage",
			Name:      "rows_persisted_total",
			Help:      "Number of rows written per store",
		},
		[]string{"store"},
	)
)

// ObserveStage records how long a stage took since start and whether it failed.
func ObserveStage(stage string, start time.Time, err error) {
	stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	if err != nil {
		stageErrors.WithLabelValues(stage).Inc()
	}
}

func ObservePatients(output string, n int) {
	patientsProcessed.WithLabelValues(output).Add(float64(n))
}

func ObserveCleared(variable string, n int) {
	if n > 0 {
		valuesCleared.WithLabelValues(variable).Add(float64(n))
	}
}

func ObservePersisted(store string, n int) {
	rowsPersisted.WithLabelValues(store).Add(float64(n))
}

func Handler() http.Handler {
	return promhttp.Handler()
}
