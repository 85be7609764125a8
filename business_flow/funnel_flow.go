package businessflow

import (
	"context"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/repository"
)

// Human-readable labels for survey answer keys, used both for keyboard
// buttons and for the lead summary sent to the operator group. The Order
// slices fix the bracket sequence the survey presents.
var (
	AgeBracketOrder = []string{
		models.AgeBracket18to24,
		models.AgeBracket25to34,
		models.AgeBracket35to44,
		models.AgeBracket45Plus,
	}
	AgeBracketLabels = map[string]string{
		models.AgeBracket18to24: "18-24",
		models.AgeBracket25to34: "25-34",
		models.AgeBracket35to44: "35-44",
		models.AgeBracket45Plus: "45+",
	}
	IncomeBracketOrder = []string{
		models.IncomeBracketUnder10,
		models.IncomeBracket10to20,
		models.IncomeBracket20to30,
		models.IncomeBracket30Plus,
	}
	IncomeBracketLabels = map[string]string{
		models.IncomeBracketUnder10: "до $10k",
		models.IncomeBracket10to20:  "$10-20k",
		models.IncomeBracket20to30:  "$20-30k",
		models.IncomeBracket30Plus:  "$30k+",
	}
	DeviceAnswerLabels = map[string]string{
		models.DeviceAnswerYes: "yes",
		models.DeviceAnswerNo:  "no",
	}
)

// DeviceOutcome reports the terminal funnel transition
type DeviceOutcome struct {
	Answer       string
	Notification *LeadNotificationResult
}

// FunnelFlow drives a user through the ordered survey steps.
// Transitions are triggered by enumerated callback keys; unknown keys are
// rejected with ErrUnknownOption and change no state.
type FunnelFlow interface {
	// StartSurvey is the structural session reset: it clears previous
	// answers, reopens the notification claim and schedules the reminder.
	StartSurvey(ctx context.Context, userID, chatID int64) error
	AnswerAge(ctx context.Context, userID int64, bracket string) error
	AnswerIncome(ctx context.Context, userID int64, bracket string) error
	// AnswerDevice completes the funnel: persists the answer, cancels the
	// pending reminder and invokes the notification guard. Re-answering
	// re-runs the same side effects; the consumed claim stays consumed.
	AnswerDevice(ctx context.Context, userID int64, answer string) (*DeviceOutcome, error)
}

type FunnelFlowImpl struct {
	polls        repository.PollResponseRepository
	reminders    ReminderScheduler
	notification NotificationFlow
}

func NewFunnelFlow(
	polls repository.PollResponseRepository,
	reminders ReminderScheduler,
	notification NotificationFlow,
) FunnelFlow {
	return &FunnelFlowImpl{
		polls:        polls,
		reminders:    reminders,
		notification: notification,
	}
}

func (f *FunnelFlowImpl) StartSurvey(ctx context.Context, userID, chatID int64) error {
	if _, err := f.polls.EnsureRow(ctx, userID, 0, 0, 0); err != nil {
		return NewBusinessError("POLL_ENSURE_FAILED", "Failed to ensure poll row", err)
	}
	if err := f.polls.ResetSession(ctx, userID); err != nil {
		return NewBusinessError("POLL_RESET_FAILED", "Failed to reset poll session", err)
	}
	f.reminders.Schedule(userID, chatID)
	return nil
}

func (f *FunnelFlowImpl) AnswerAge(ctx context.Context, userID int64, bracket string) error {
	if _, ok := AgeBracketLabels[bracket]; !ok {
		return ErrUnknownOption
	}
	if err := f.ensureRow(ctx, userID); err != nil {
		return err
	}
	if err := f.polls.SetAgeBracket(ctx, userID, bracket); err != nil {
		return NewBusinessError("POLL_UPDATE_FAILED", "Failed to save age bracket", err)
	}
	return nil
}

func (f *FunnelFlowImpl) AnswerIncome(ctx context.Context, userID int64, bracket string) error {
	if _, ok := IncomeBracketLabels[bracket]; !ok {
		return ErrUnknownOption
	}
	if err := f.ensureRow(ctx, userID); err != nil {
		return err
	}
	if err := f.polls.SetIncomeBracket(ctx, userID, bracket); err != nil {
		return NewBusinessError("POLL_UPDATE_FAILED", "Failed to save income bracket", err)
	}
	return nil
}

func (f *FunnelFlowImpl) AnswerDevice(ctx context.Context, userID int64, answer string) (*DeviceOutcome, error) {
	if _, ok := DeviceAnswerLabels[answer]; !ok {
		return nil, ErrUnknownOption
	}
	if err := f.ensureRow(ctx, userID); err != nil {
		return nil, err
	}
	if err := f.polls.SetDeviceAnswer(ctx, userID, answer); err != nil {
		return nil, NewBusinessError("POLL_UPDATE_FAILED", "Failed to save device answer", err)
	}

	// The wake-time state check in the reminder job is the final
	// authority; this cancel just frees the slot early.
	f.reminders.Cancel(userID)

	result, err := f.notification.NotifyQualifiedLead(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &DeviceOutcome{Answer: answer, Notification: result}, nil
}

func (f *FunnelFlowImpl) ensureRow(ctx context.Context, userID int64) error {
	row, err := f.polls.ByUserID(ctx, userID)
	if err != nil {
		return NewBusinessError("POLL_LOOKUP_FAILED", "Failed to lookup poll row", err)
	}
	if row == nil {
		if _, err := f.polls.EnsureRow(ctx, userID, 0, 0, 0); err != nil {
			return NewBusinessError("POLL_ENSURE_FAILED", "Failed to ensure poll row", err)
		}
	}
	return nil
}
