// Package metrics exposes the Prometheus collectors shared by the telemetry
// services.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every pipeline collector. Label "component" is the consumer
// loop (aggregator, registrar, evaluator).
type Metrics struct {
	RecordsConsumed    *prometheus.CounterVec
	DecodeFailures     *prometheus.CounterVec
	OffsetCommits      *prometheus.CounterVec
	CommitFailures     *prometheus.CounterVec
	SnapshotsPublished prometheus.Counter
	PublishFailures    prometheus.Counter
	ScenariosFired     prometheus.Counter
	ActionsDispatched  prometheus.Counter
	DispatchFailures   prometheus.Counter
}

// New creates all collectors, unregistered.
func New() *Metrics {
	return &Metrics{
		RecordsConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "records_consumed_total",
			Help:      "Kafka records fetched and handed to a consumer loop.",
		}, []string{"component"}),
		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "decode_failures_total",
			Help:      "Records skipped because decoding failed.",
		}, []string{"component"}),
		OffsetCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "offset_commits_total",
			Help:      "Offset commits issued, by mode (staged, batch, final).",
		}, []string{"component", "mode"}),
		CommitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "commit_failures_total",
			Help:      "Offset commits that returned an error.",
		}, []string{"component"}),
		SnapshotsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "snapshots_published_total",
			Help:      "Snapshots handed to the async producer.",
		}),
		PublishFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "publish_failures_total",
			Help:      "Snapshot publishes reported failed by the producer.",
		}),
		ScenariosFired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "scenarios_fired_total",
			Help:      "Scenarios whose conditions were all satisfied.",
		}),
		ActionsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "actions_dispatched_total",
			Help:      "Device actions sent to the hub router.",
		}),
		DispatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "telemetry",
			Name:      "dispatch_failures_total",
			Help:      "Device action dispatches that returned an error.",
		}),
	}
}

// Register adds every collector to the registry.
func (m *Metrics) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		m.RecordsConsumed,
		m.DecodeFailures,
		m.OffsetCommits,
		m.CommitFailures,
		m.SnapshotsPublished,
		m.PublishFailures,
		m.ScenariosFired,
		m.ActionsDispatched,
		m.DispatchFailures,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
