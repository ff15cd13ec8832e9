package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// CyclesTotal counts finished pipeline cycles by result ("ok" or "error").
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ingest_cycles_total", Help: "Finished pipeline cycles by result"},
		[]string{"result"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_cycle_duration_seconds",
			Help:    "Wall time of one pipeline cycle",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
	StationsFetched = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ingest_stations_last_cycle", Help: "AQI stations returned in the last cycle"},
	)
	TrafficMisses = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "ingest_traffic_misses_total", Help: "Traffic samples filled with missing values"},
	)
	// RowsWritten counts merged rows accepted per sink.
	RowsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ingest_rows_written_total", Help: "Merged rows written per sink"},
		[]string{"sink"},
	)
	SinkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ingest_sink_errors_total", Help: "Failed batch writes per sink"},
		[]string{"sink"},
	)
)

// MustRegister registers all collectors with reg.
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(CyclesTotal, CycleDuration, StationsFetched, TrafficMisses, RowsWritten, SinkErrors)
}
