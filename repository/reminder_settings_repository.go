package repository

import (
	"context"
	"errors"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReminderSettingsRepositoryImpl implements ReminderSettingsRepository
type ReminderSettingsRepositoryImpl struct {
	db *gorm.DB
}

func NewReminderSettingsRepository(db *gorm.DB) ReminderSettingsRepository {
	return &ReminderSettingsRepositoryImpl{db: db}
}

// Get returns the single settings row, falling back to the default template
// when no row has been written yet
func (r *ReminderSettingsRepositoryImpl) Get(ctx context.Context) (*models.ReminderSettings, error) {
	var settings models.ReminderSettings
	err := r.db.WithContext(ctx).First(&settings, models.ReminderSettingsID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &models.ReminderSettings{
				ID:   models.ReminderSettingsID,
				Text: models.DefaultReminderText,
			}, nil
		}
		return nil, err
	}
	return &settings, nil
}

func (r *ReminderSettingsRepositoryImpl) SetText(ctx context.Context, text string) error {
	settings := &models.ReminderSettings{
		ID:        models.ReminderSettingsID,
		Text:      text,
		UpdatedAt: utils.UTCNow(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
	}).Create(settings).Error
}
