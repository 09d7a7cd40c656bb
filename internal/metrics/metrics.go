// Package metrics holds the Prometheus collectors of the parking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Toggles counts committed toggles by outcome: claim, release or tow.
	Toggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "toggles_total",
			Help:      "Committed grid toggles by outcome.",
		},
		[]string{"outcome"},
	)

	// SnapshotRepairs counts reads that found the stored grid at the wrong length.
	SnapshotRepairs = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "snapshot_repairs_total",
			Help:      "Grid snapshots padded or truncated to the configured size.",
		},
	)

	// NotificationsEnqueued counts messages written to mailboxes.
	NotificationsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "notifications_enqueued_total",
			Help:      "Notification messages appended to user mailboxes.",
		},
	)

	// NotificationFailures counts enqueue attempts that were dropped.
	NotificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "notification_failures_total",
			Help:      "Notification messages dropped after a failed enqueue.",
		},
	)

	// EventPublishFailures counts towing events that could not reach the broker.
	EventPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "parking",
			Name:      "event_publish_failures_total",
			Help:      "Towing events that failed to publish.",
		},
	)
)

// Outcome labels for Toggles.
const (
	OutcomeClaim   = "claim"
	OutcomeRelease = "release"
	OutcomeTow     = "tow"
)
