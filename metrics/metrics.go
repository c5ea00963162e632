// Package metrics exposes the Prometheus instrumentation for the member
// list engine, grounded on the metrics wiring in adred-codev/ws_poc's
// server variants (prometheus/client_golang + promauto). All of it is
// observational: nothing here feeds back into engine control flow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder bundles every counter/gauge the engine touches.
type Recorder struct {
	OpsEmitted       *prometheus.CounterVec
	ResyncsScheduled prometheus.Counter
	ActiveLists      prometheus.Gauge
}

// New registers the engine's metrics against reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		OpsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "lazyguild_ops_emitted_total",
			Help: "List operations emitted to sessions, by op kind.",
		}, []string{"op"}),

		ResyncsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "lazyguild_resyncs_scheduled_total",
			Help: "SYNC resyncs scheduled as a presence/role-lifecycle fallback.",
		}),

		ActiveLists: factory.NewGauge(prometheus.GaugeOpts{
			Name: "lazyguild_active_lists",
			Help: "Per-channel member lists currently initialized (holding member state).",
		}),
	}
}

// NewNoop returns a Recorder backed by a private registry, for tests and
// callers that don't want to touch the global default registry.
func NewNoop() *Recorder {
	return New(prometheus.NewRegistry())
}
