// Package telemetry exposes prometheus instrumentation for the game core.
package telemetry

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the instrument set shared by the coordinator and the transport.
// A nil *Metrics is valid and records nothing, so tests can skip registration.
type Metrics struct {
	submissions     *prometheus.CounterVec
	boxesClaimed    *prometheus.CounterVec
	eventsApplied   prometheus.Gauge
	tailSubscribers prometheus.Gauge
}

// New registers the metric set on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dotgrid",
			Name:      "submissions_total",
			Help:      "Edge claim submissions by outcome code.",
		}, []string{"outcome"}),
		boxesClaimed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dotgrid",
			Name:      "boxes_claimed_total",
			Help:      "Boxes claimed by team.",
		}, []string{"team"}),
		eventsApplied: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dotgrid",
			Name:      "events_applied",
			Help:      "Number of accepted edge claims folded into coordinator state.",
		}),
		tailSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dotgrid",
			Name:      "tail_subscribers",
			Help:      "Currently connected event tail subscribers.",
		}),
	}
}

// Submission records one submission outcome.
func (m *Metrics) Submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// BoxClaimed records one box claim for a team.
func (m *Metrics) BoxClaimed(team int) {
	if m == nil {
		return
	}
	m.boxesClaimed.WithLabelValues(strconv.Itoa(team)).Inc()
}

// EventsApplied sets the folded event count.
func (m *Metrics) EventsApplied(count uint64) {
	if m == nil {
		return
	}
	m.eventsApplied.Set(float64(count))
}

// TailOpened records a new tail subscriber.
func (m *Metrics) TailOpened() {
	if m == nil {
		return
	}
	m.tailSubscribers.Inc()
}

// TailClosed records a departed tail subscriber.
func (m *Metrics) TailClosed() {
	if m == nil {
		return
	}
	m.tailSubscribers.Dec()
}
