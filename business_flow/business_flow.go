// Package businessflow contains the core business logic for the lead funnel bot
package businessflow

import (
	"context"

	"github.com/oliateam/leadfunnel/app/dto"
)

// Messenger sends plain text messages through the chat transport.
// This keeps the flows independent of the Telegram client and easy to test.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// ReminderScheduler is the debounced delayed-action primitive: one pending
// job per user, Schedule replaces any existing job, Cancel is cooperative
// (the job re-checks poll state at wake time before sending anything).
type ReminderScheduler interface {
	Schedule(userID, chatID int64)
	Cancel(userID int64)
}

// ReferralEventLogger mirrors referral clicks into the reporting sink.
// Implementations must be best-effort and never block the caller's
// conversational path.
type ReferralEventLogger interface {
	LogReferralClick(event dto.SheetsReferralEvent)
}

// Source tag recorded with referral click events
const ReferralSourceLink = "ref_link"
