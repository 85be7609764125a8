package repository

import (
	"context"
	"errors"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepositoryImpl implements UserRepository
type UserRepositoryImpl struct {
	*BaseRepository[models.User, models.UserFilter]
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &UserRepositoryImpl{BaseRepository: NewBaseRepository[models.User, models.UserFilter](db)}
}

func (r *UserRepositoryImpl) ByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	db := r.getDB(ctx)
	var user models.User
	if err := db.Where("telegram_id = ?", telegramID).Last(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Upsert inserts the user or refreshes profile fields on conflict.
// NotifyGroupID is deliberately excluded from the update set so routing
// preferences survive ordinary interactions.
func (r *UserRepositoryImpl) Upsert(ctx context.Context, user *models.User) error {
	db := r.getDB(ctx)
	user.UpdatedAt = utils.UTCNow()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"first_name", "last_name", "username", "updated_at"}),
	}).Create(user).Error
}

func (r *UserRepositoryImpl) SetNotifyGroup(ctx context.Context, telegramID int64, groupID *int64) error {
	db := r.getDB(ctx)
	return db.Model(&models.User{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]any{
			"notify_group_id": groupID,
			"updated_at":      utils.UTCNow(),
		}).Error
}

func (r *UserRepositoryImpl) ListQualifiedLeads(ctx context.Context, limit, offset int) ([]*LeadRow, error) {
	db := r.getDB(ctx)
	query := db.Model(&models.PollResponse{}).
		Select(`poll_responses.user_id,
			users.first_name,
			users.username,
			poll_responses.age_bracket,
			poll_responses.income_bracket,
			poll_responses.device_answer,
			poll_responses.referrer_id,
			poll_responses.note_id,
			poll_responses.notified`).
		Joins("JOIN users ON users.telegram_id = poll_responses.user_id").
		Where("poll_responses.age_bracket IS NOT NULL").
		Where("poll_responses.income_bracket IS NOT NULL").
		Where("poll_responses.device_answer IS NOT NULL").
		Order("poll_responses.updated_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	var rows []*LeadRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
