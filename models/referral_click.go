package models

import "time"

// ReferralClick records that a referred user arrived via a referrer's link
// NoteID and GroupID are 0 when the click carried no note / no group context;
// the zero sentinel keeps the triple unique index simple (NULLs never collide
// in Postgres unique indexes)
// Unique per (referrer, referred, note): re-clicking the same link is a no-op,
// clicking a different note from the same referrer is a new event
type ReferralClick struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ReferrerID int64     `gorm:"not null;uniqueIndex:uk_referral_clicks_triple;index:idx_referral_clicks_referrer_id" json:"referrer_id"`
	ReferredID int64     `gorm:"not null;uniqueIndex:uk_referral_clicks_triple" json:"referred_id"`
	NoteID     uint      `gorm:"not null;default:0;uniqueIndex:uk_referral_clicks_triple" json:"note_id"`
	GroupID    int64     `gorm:"not null;default:0" json:"group_id"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_referral_clicks_created_at" json:"created_at"`
}

// TableName returns the table name for ReferralClick
func (ReferralClick) TableName() string { return "referral_clicks" }

// ReferralClickFilter provides filter fields for repository queries
type ReferralClickFilter struct {
	ReferrerID    *int64
	ReferredID    *int64
	NoteID        *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
