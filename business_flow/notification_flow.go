package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
)

// LeadNotificationResult reports how the notification guard resolved
type LeadNotificationResult struct {
	Claimed bool
	Sent    bool
	GroupID int64
}

// NotificationFlow is the at-most-once guard for lead notifications.
// The claim is atomic at the storage layer; a referrer without a configured
// destination group still consumes the claim so the lead is never
// re-evaluated later.
type NotificationFlow interface {
	NotifyQualifiedLead(ctx context.Context, userID int64) (*LeadNotificationResult, error)
}

type NotificationFlowImpl struct {
	polls     repository.PollResponseRepository
	users     repository.UserRepository
	notes     repository.NoteRepository
	messenger Messenger
}

func NewNotificationFlow(
	polls repository.PollResponseRepository,
	users repository.UserRepository,
	notes repository.NoteRepository,
	messenger Messenger,
) NotificationFlow {
	return &NotificationFlowImpl{
		polls:     polls,
		users:     users,
		notes:     notes,
		messenger: messenger,
	}
}

func (f *NotificationFlowImpl) NotifyQualifiedLead(ctx context.Context, userID int64) (*LeadNotificationResult, error) {
	claimed, err := f.polls.TryClaimNotification(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("CLAIM_FAILED", "Failed to claim notification", err)
	}
	if !claimed {
		return &LeadNotificationResult{}, nil
	}

	result := &LeadNotificationResult{Claimed: true}

	poll, err := f.polls.ByUserID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("POLL_LOOKUP_FAILED", "Failed to lookup poll row", err)
	}
	if poll == nil || poll.ReferrerID == 0 {
		return result, nil
	}

	referrer, err := f.users.ByTelegramID(ctx, poll.ReferrerID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup referrer", err)
	}
	if referrer == nil || referrer.NotifyGroupID == nil {
		// No routing configured: the claim stays consumed.
		return result, nil
	}

	lead, err := f.users.ByTelegramID(ctx, userID)
	if err != nil {
		return nil, NewBusinessError("USER_LOOKUP_FAILED", "Failed to lookup lead", err)
	}

	summary := f.formatLeadSummary(ctx, lead, referrer, poll)
	if err := f.messenger.SendText(ctx, *referrer.NotifyGroupID, summary); err != nil {
		return nil, NewBusinessError("NOTIFY_SEND_FAILED", "Failed to send group notification", err)
	}

	result.Sent = true
	result.GroupID = *referrer.NotifyGroupID
	return result, nil
}

func (f *NotificationFlowImpl) formatLeadSummary(ctx context.Context, lead, referrer *models.User, poll *models.PollResponse) string {
	var b strings.Builder
	b.WriteString("New qualified lead\n")
	if lead != nil {
		fmt.Fprintf(&b, "Who: %s%s (id %d)\n", lead.DisplayName(), usernameSuffix(lead.Username), lead.TelegramID)
	} else {
		fmt.Fprintf(&b, "Who: id %d\n", poll.UserID)
	}
	fmt.Fprintf(&b, "Age: %s\n", answerLabel(AgeBracketLabels, poll.AgeBracket))
	fmt.Fprintf(&b, "Income: %s\n", answerLabel(IncomeBracketLabels, poll.IncomeBracket))
	fmt.Fprintf(&b, "Has device: %s\n", answerLabel(DeviceAnswerLabels, poll.DeviceAnswer))
	fmt.Fprintf(&b, "Invited by: %s%s (id %d)", referrer.DisplayName(), usernameSuffix(referrer.Username), referrer.TelegramID)
	if poll.NoteID != 0 {
		if note, err := f.notes.ByID(ctx, poll.NoteID); err == nil && note != nil {
			fmt.Fprintf(&b, "\nVia note: %q", note.Title)
		}
	}
	return b.String()
}

func answerLabel(labels map[string]string, key *string) string {
	if key == nil {
		return "-"
	}
	if label, ok := labels[*key]; ok {
		return label
	}
	return *key
}

func usernameSuffix(username *string) string {
	if username == nil || *username == "" {
		return ""
	}
	return " @" + *username
}
