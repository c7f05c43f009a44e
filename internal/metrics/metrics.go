package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// All metrics are low-cardinality (no camera_id/nvr_id labels).

var (
	SimTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_sim_ticks_total",
		Help: "Total simulation ticks by outcome",
	}, []string{"outcome"}) // "noop", "applied"

	TransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_sim_transitions_total",
		Help: "Total state transitions produced by ticks",
	}, []string{"type"}) // "NVR_FAILURE", "REPAIR", "FAILURE"

	OpenFaults = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fleetwatch_faults_open",
		Help: "Current number of open fault records",
	})

	AlertsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_alerts_emitted_total",
		Help: "Total alerts appended by severity",
	}, []string{"severity"})

	AnalysisCallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_analysis_calls_total",
		Help: "Total frame analysis calls by result",
	}, []string{"result"}) // "ok", "degraded"

	SnapshotWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_snapshot_writes_total",
		Help: "Total snapshot persistence attempts",
	}, []string{"result"}) // "success", "fail"

	TransitionPublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fleetwatch_transition_publish_total",
		Help: "Total transition event publish attempts",
	}, []string{"result"})
)

func SetOpenFaults(n int) {
	OpenFaults.Set(float64(n))
}

func RecordTick(applied bool) {
	if applied {
		SimTicksTotal.WithLabelValues("applied").Inc()
	} else {
		SimTicksTotal.WithLabelValues("noop").Inc()
	}
}

func RecordTransition(t string) {
	TransitionsTotal.WithLabelValues(t).Inc()
}

func RecordAlert(severity string) {
	AlertsEmittedTotal.WithLabelValues(severity).Inc()
}
