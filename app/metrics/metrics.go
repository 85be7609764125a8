// Package metrics holds the Prometheus instruments for the bot side of the
// service. HTTP metrics live in the middleware package.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Total Telegram updates processed, partitioned by update kind
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of Telegram updates processed",
		},
		[]string{"kind"},
	)

	// Update handler failures partitioned by update kind
	UpdateErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_update_errors_total",
			Help: "Total number of Telegram updates that ended in an error",
		},
		[]string{"kind"},
	)

	// Lead notifications, partitioned by outcome (sent, unrouted, duplicate)
	LeadNotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_notifications_total",
			Help: "Total number of lead notification attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Reminders delivered to stalled users
	RemindersSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reminders_sent_total",
			Help: "Total number of funnel reminders delivered",
		},
	)

	// Referral clicks recorded, partitioned by source (note or plain link)
	ReferralClicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "referral_clicks_total",
			Help: "Total number of unique referral clicks recorded",
		},
		[]string{"source"},
	)

	// Sheet mirror failures. The mirror is best effort so errors only
	// surface here and in the logs.
	SheetsErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sheets_mirror_errors_total",
			Help: "Total number of failed Google Sheets mirror writes",
		},
	)
)

// Notification outcome label values
const (
	NotificationOutcomeSent      = "sent"
	NotificationOutcomeUnrouted  = "unrouted"
	NotificationOutcomeDuplicate = "duplicate"
)
