// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repo

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for one FlowController. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	pending                  prometheus.Gauge
	published                prometheus.Counter
	acks                     *prometheus.CounterVec
	ignoredReplies           prometheus.Counter
	malformedReplies         prometheus.Counter
	blockedPublishes         prometheus.Counter
	enumerationRegistrations prometheus.Counter
	sessions                 *prometheus.CounterVec
}

// Ack results.
const (
	ackRemoved = "removed"
	ackStale   = "stale"
)

// Session outcomes.
const (
	sessionEstablished = "established"
	sessionTimeout     = "timeout"
	sessionCancelled   = "cancelled"
)

// NewMetrics creates the collectors and registers them with registerer.
// A nil registerer leaves them unregistered, which is useful when the
// caller only wants to read values in tests.
func NewMetrics(registerer prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repowrite_pending_writes",
			Help: "Segments published in verified mode and not yet acknowledged.",
		}),
		published: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repowrite_published_total",
			Help: "Segments handed to the network.",
		}),
		acks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repowrite_acks_total",
			Help: "Acknowledgments processed, by whether they removed a pending entry.",
		}, []string{"result"}),
		ignoredReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repowrite_ignored_replies_total",
			Help: "Replies from a repository other than the session's, or after the session ended.",
		}),
		malformedReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repowrite_malformed_replies_total",
			Help: "Replies or enumeration items that could not be decoded.",
		}),
		blockedPublishes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repowrite_blocked_publishes_total",
			Help: "Publishes that pushed the holding area over its high-water mark.",
		}),
		enumerationRegistrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repowrite_enumeration_registrations_total",
			Help: "Enumeration registrations made to collect acknowledgments.",
		}),
		sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repowrite_sessions_total",
			Help: "Write negotiations, by outcome.",
		}, []string{"outcome"}),
	}

	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{
		m.pending, m.published, m.acks, m.ignoredReplies, m.malformedReplies,
		m.blockedPublishes, m.enumerationRegistrations, m.sessions,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("repo: registering metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) setPending(count int) {
	if m != nil {
		m.pending.Set(float64(count))
	}
}

func (m *Metrics) publishedSegment() {
	if m != nil {
		m.published.Inc()
	}
}

func (m *Metrics) ack(removed bool) {
	if m == nil {
		return
	}
	if removed {
		m.acks.WithLabelValues(ackRemoved).Inc()
	} else {
		m.acks.WithLabelValues(ackStale).Inc()
	}
}

func (m *Metrics) ignoredReply() {
	if m != nil {
		m.ignoredReplies.Inc()
	}
}

func (m *Metrics) malformedReply() {
	if m != nil {
		m.malformedReplies.Inc()
	}
}

func (m *Metrics) blockedPublish() {
	if m != nil {
		m.blockedPublishes.Inc()
	}
}

func (m *Metrics) enumerationRegistered() {
	if m != nil {
		m.enumerationRegistrations.Inc()
	}
}

func (m *Metrics) session(outcome string) {
	if m != nil {
		m.sessions.WithLabelValues(outcome).Inc()
	}
}
