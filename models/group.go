package models

import "time"

// Group represents a Telegram group or supergroup the bot has observed
// Refreshed whenever the bot sees activity in the chat
type Group struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TelegramID int64     `gorm:"not null;uniqueIndex:uk_groups_telegram_id" json:"telegram_id"`
	Title      string    `gorm:"size:255" json:"title"`
	CreatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt  time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for Group
func (Group) TableName() string { return "groups" }

// GroupFilter provides filter fields for repository queries
type GroupFilter struct {
	TelegramID *int64
	Title      *string
}
