package models

import "time"

// Survey answer keys accepted by the funnel
const (
	AgeBracket18to24 = "18_24"
	AgeBracket25to34 = "25_34"
	AgeBracket35to44 = "35_44"
	AgeBracket45Plus = "45_plus"

	IncomeBracketUnder10 = "under_10"
	IncomeBracket10to20  = "10_20"
	IncomeBracket20to30  = "20_30"
	IncomeBracket30Plus  = "30_plus"

	DeviceAnswerYes = "yes"
	DeviceAnswerNo  = "no"
)

// Funnel steps derived from which answers are present
const (
	StepAge       = "age"
	StepIncome    = "income"
	StepDevice    = "device"
	StepCompleted = "completed"
)

// PollResponse holds per-user funnel progress and attribution linkage
// One row per user, created lazily on first funnel interaction
// Notified is monotonic for a session: only a structural reset (fresh
// funnel entry) clears it, answer edits after a fired notification do not
type PollResponse struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        int64      `gorm:"not null;uniqueIndex:uk_poll_responses_user_id" json:"user_id"`
	AgeBracket    *string    `gorm:"size:32" json:"age_bracket,omitempty"`
	IncomeBracket *string    `gorm:"size:32" json:"income_bracket,omitempty"`
	DeviceAnswer  *string    `gorm:"size:8" json:"device_answer,omitempty"`
	ReferrerID    int64      `gorm:"not null;default:0;index:idx_poll_responses_referrer_id" json:"referrer_id"`
	NoteID        uint       `gorm:"not null;default:0" json:"note_id"`
	GroupID       int64      `gorm:"not null;default:0" json:"group_id"`
	Notified      bool       `gorm:"not null;default:false" json:"notified"`
	ReminderSent  bool       `gorm:"not null;default:false" json:"reminder_sent"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	CreatedAt     time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for PollResponse
func (PollResponse) TableName() string { return "poll_responses" }

// NextStep returns the funnel step the user should be prompted with
func (p *PollResponse) NextStep() string {
	switch {
	case p.AgeBracket == nil:
		return StepAge
	case p.IncomeBracket == nil:
		return StepIncome
	case p.DeviceAnswer == nil:
		return StepDevice
	default:
		return StepCompleted
	}
}

// IsQualified reports whether all three survey answers are present
func (p *PollResponse) IsQualified() bool {
	return p.AgeBracket != nil && p.IncomeBracket != nil && p.DeviceAnswer != nil
}

// PollResponseFilter provides filter fields for repository queries
type PollResponseFilter struct {
	UserID     *int64
	ReferrerID *int64
	Notified   *bool
	Completed  *bool
}
