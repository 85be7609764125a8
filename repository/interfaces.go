// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"

	"github.com/oliateam/leadfunnel/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	Save(ctx context.Context, entity *T) error
}

// UserRepository defines operations for Telegram users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	// Upsert creates the user on first interaction and refreshes profile
	// fields on every later one. NotifyGroupID is never touched here.
	Upsert(ctx context.Context, user *models.User) error
	SetNotifyGroup(ctx context.Context, telegramID int64, groupID *int64) error
	ListQualifiedLeads(ctx context.Context, limit, offset int) ([]*LeadRow, error)
}

// GroupRepository defines operations for observed Telegram groups
type GroupRepository interface {
	Repository[models.Group, models.GroupFilter]
	ByTelegramID(ctx context.Context, telegramID int64) (*models.Group, error)
	Upsert(ctx context.Context, group *models.Group) error
	ListAll(ctx context.Context) ([]*models.Group, error)
}

// NoteRepository defines operations for referral notes
type NoteRepository interface {
	Repository[models.Note, models.NoteFilter]
	ListByOwner(ctx context.Context, ownerID int64) ([]*models.Note, error)
	ListByGroup(ctx context.Context, groupID int64) ([]*models.Note, error)
	// DeleteByIDAndOwner removes a note only when the caller owns it and
	// reports whether a row was deleted.
	DeleteByIDAndOwner(ctx context.Context, id uint, ownerID int64) (bool, error)
}

// ReferralClickRepository defines operations for referral click events
type ReferralClickRepository interface {
	Repository[models.ReferralClick, models.ReferralClickFilter]
	// Record inserts the click and reports whether it was newly inserted.
	// Duplicates of the (referrer, referred, note) triple are a no-op.
	Record(ctx context.Context, click *models.ReferralClick) (bool, error)
	CountByReferrer(ctx context.Context, referrerID int64) (int64, error)
}

// PollResponseRepository defines operations for per-user funnel progress
type PollResponseRepository interface {
	Repository[models.PollResponse, models.PollResponseFilter]
	ByUserID(ctx context.Context, userID int64) (*models.PollResponse, error)
	// EnsureRow creates the poll row lazily. Attribution fields are set
	// only on first insert (first-attribution-wins).
	EnsureRow(ctx context.Context, userID int64, referrerID int64, noteID uint, groupID int64) (*models.PollResponse, error)
	// ResetSession is the structural reset: clears answers and reopens the
	// notification claim and the reminder slot for a fresh funnel entry.
	ResetSession(ctx context.Context, userID int64) error
	SetAgeBracket(ctx context.Context, userID int64, bracket string) error
	SetIncomeBracket(ctx context.Context, userID int64, bracket string) error
	SetDeviceAnswer(ctx context.Context, userID int64, answer string) error
	// TryClaimNotification is an atomic read-test-and-set: it flips
	// notified false->true in a single conditional UPDATE and reports
	// whether this caller won the claim.
	TryClaimNotification(ctx context.Context, userID int64) (bool, error)
	WasNotified(ctx context.Context, userID int64) (bool, error)
	// TryMarkReminderSent flips reminder_sent false->true only while the
	// device question is still unanswered, in a single conditional UPDATE.
	TryMarkReminderSent(ctx context.Context, userID int64) (bool, error)
}

// NoteClickRepository defines operations for the note click log
type NoteClickRepository interface {
	Repository[models.NoteClick, models.NoteClickFilter]
	CountByNote(ctx context.Context, noteID uint) (int64, error)
	CountsForNotes(ctx context.Context, noteIDs []uint) (map[uint]int64, error)
}

// ReminderSettingsRepository defines operations for the global reminder template
type ReminderSettingsRepository interface {
	Get(ctx context.Context) (*models.ReminderSettings, error)
	SetText(ctx context.Context, text string) error
}

// LeadRow is a read model joining a qualified poll response with its user
type LeadRow struct {
	UserID        int64   `json:"user_id"`
	FirstName     string  `json:"first_name"`
	Username      *string `json:"username,omitempty"`
	AgeBracket    string  `json:"age_bracket"`
	IncomeBracket string  `json:"income_bracket"`
	DeviceAnswer  string  `json:"device_answer"`
	ReferrerID    int64   `json:"referrer_id"`
	NoteID        uint    `json:"note_id"`
	Notified      bool    `json:"notified"`
}
