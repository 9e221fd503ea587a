package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the per-event counters of the claim engine and lookup endpoint.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	ClaimsReceived      prometheus.Counter
	DuplicatesDropped   prometheus.Counter
	Rejections          *prometheus.CounterVec
	Conflicts           *prometheus.CounterVec
	ProbeTimeouts       prometheus.Counter
	ProbeUnreachable    prometheus.Counter
	ConfirmationsIssued prometheus.Counter
	PublishAcks         *prometheus.CounterVec
	Lookups             *prometheus.CounterVec
}

// New creates the counters and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ClaimsReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "nip05_claims_received_total",
			Help: "Claim request events taken off the subscription",
		}),
		DuplicatesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "nip05_claims_duplicate_total",
			Help: "Copies of an already seen claim request delivered by another relay",
		}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nip05_claims_rejected_total",
			Help: "Claim requests rejected, by reason",
		}, []string{"reason"}),
		Conflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nip05_probe_conflicts_total",
			Help: "Existing confirmations found while probing, by what was already claimed",
		}, []string{"claimed"}),
		ProbeTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Name: "nip05_probe_timeouts_total",
			Help: "Probe queries that ran out of time and were treated as no conflict",
		}),
		ProbeUnreachable: factory.NewCounter(prometheus.CounterOpts{
			Name: "nip05_probe_unreachable_total",
			Help: "Probe queries no relay answered, treated as no conflict",
		}),
		ConfirmationsIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "nip05_confirmations_issued_total",
			Help: "Signed confirmation events handed to the relays",
		}),
		PublishAcks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nip05_publish_acks_total",
			Help: "Per-relay publish results for confirmations",
		}, []string{"outcome"}),
		Lookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nip05_lookups_total",
			Help: "nostr.json lookups, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncClaimsReceived() {
	if m == nil {
		return
	}
	m.ClaimsReceived.Inc()
}

func (m *Metrics) IncDuplicatesDropped() {
	if m == nil {
		return
	}
	m.DuplicatesDropped.Inc()
}

func (m *Metrics) IncRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncConflict(claimed string) {
	if m == nil {
		return
	}
	m.Conflicts.WithLabelValues(claimed).Inc()
}

func (m *Metrics) IncProbeTimeouts() {
	if m == nil {
		return
	}
	m.ProbeTimeouts.Inc()
}

func (m *Metrics) IncProbeUnreachable() {
	if m == nil {
		return
	}
	m.ProbeUnreachable.Inc()
}

func (m *Metrics) IncConfirmationsIssued() {
	if m == nil {
		return
	}
	m.ConfirmationsIssued.Inc()
}

func (m *Metrics) IncPublishAck(outcome string) {
	if m == nil {
		return
	}
	m.PublishAcks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncLookup(outcome string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(outcome).Inc()
}
