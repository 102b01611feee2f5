package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dataprep_requests_total", Help: "Operations executed by outcome"},
		[]string{"op", "status"},
	)
	OpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dataprep_operation_duration_seconds",
			Help:    "Duration of dataset operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
	Rows = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "dataprep_rows_total", Help: "Rows seen per operation and stage"},
		[]string{"op", "stage"},
	)
	FilesSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "dataprep_files_skipped_total", Help: "Record files skipped while loading"},
	)
	OutputFeatures = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "dataprep_output_features", Help: "Width of the last transformed matrix"},
		[]string{"op"},
	)
)

func MustRegister() {
	prometheus.MustRegister(Requests, OpDuration, Rows, FilesSkipped, OutputFeatures)
}

func Handler() http.Handler { return promhttp.Handler() }
