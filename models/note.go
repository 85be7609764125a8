package models

import "time"

// Note is a named, attributable shareable referral link
// A note belongs to exactly one owner and one destination group
// URL is optional; owners may create a note without a target link
type Note struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerID   int64     `gorm:"not null;index:idx_notes_owner_id" json:"owner_id"`
	GroupID   int64     `gorm:"not null;index:idx_notes_group_id" json:"group_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	URL       *string   `gorm:"type:text" json:"url,omitempty"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

// TableName returns the table name for Note
func (Note) TableName() string { return "notes" }

// NoteFilter provides filter fields for repository queries
type NoteFilter struct {
	OwnerID *int64
	GroupID *int64
}
