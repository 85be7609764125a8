package models

import "time"

// User represents a Telegram user the bot has interacted with
// TelegramID is the stable identity; profile fields are refreshed on every interaction
// NotifyGroupID routes lead notifications for leads this user referred (nil = no routing configured)
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TelegramID    int64     `gorm:"not null;uniqueIndex:uk_users_telegram_id" json:"telegram_id"`
	FirstName     string    `gorm:"size:255" json:"first_name"`
	LastName      *string   `gorm:"size:255" json:"last_name,omitempty"`
	Username      *string   `gorm:"size:255;index:idx_users_username" json:"username,omitempty"`
	NotifyGroupID *int64    `json:"notify_group_id,omitempty"`
	CreatedAt     time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt     time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for User
func (User) TableName() string { return "users" }

// DisplayName returns the best human-readable name for the user
func (u *User) DisplayName() string {
	name := u.FirstName
	if u.LastName != nil && *u.LastName != "" {
		name += " " + *u.LastName
	}
	if name == "" && u.Username != nil {
		name = "@" + *u.Username
	}
	return name
}

// UserFilter provides filter fields for repository queries
type UserFilter struct {
	TelegramID    *int64
	Username      *string
	NotifyGroupID *int64
}
