package models

import "time"

// ReminderSettingsID is the primary key of the single settings row
const ReminderSettingsID uint = 1

// DefaultReminderText is used until an admin sets a custom template
const DefaultReminderText = "Ви розпочали опитування, але не завершили його! " +
	"Це займе хвилинку - натисніть /poll, щоб продовжити⚡️"

// ReminderSettings is the single global row holding the delayed follow-up template
type ReminderSettings struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

// TableName returns the table name for ReminderSettings
func (ReminderSettings) TableName() string { return "reminder_settings" }
