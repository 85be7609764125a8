package models

import "time"

// NoteClick is an append-only log of note link uses, kept for statistics
type NoteClick struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	NoteID    uint      `gorm:"not null;index:idx_note_clicks_note_id" json:"note_id"`
	UserID    int64     `gorm:"not null" json:"user_id"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_note_clicks_created_at" json:"created_at"`
}

// TableName returns the table name for NoteClick
func (NoteClick) TableName() string { return "note_clicks" }

// NoteClickFilter provides filter fields for repository queries
type NoteClickFilter struct {
	NoteID        *uint
	UserID        *int64
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
