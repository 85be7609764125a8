package repository

import (
	"context"
	"errors"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GroupRepositoryImpl implements GroupRepository
type GroupRepositoryImpl struct {
	*BaseRepository[models.Group, models.GroupFilter]
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &GroupRepositoryImpl{BaseRepository: NewBaseRepository[models.Group, models.GroupFilter](db)}
}

func (r *GroupRepositoryImpl) ByTelegramID(ctx context.Context, telegramID int64) (*models.Group, error) {
	db := r.getDB(ctx)
	var group models.Group
	if err := db.Where("telegram_id = ?", telegramID).Last(&group).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &group, nil
}

// Upsert inserts the group or refreshes the title on conflict
func (r *GroupRepositoryImpl) Upsert(ctx context.Context, group *models.Group) error {
	db := r.getDB(ctx)
	group.UpdatedAt = utils.UTCNow()
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "telegram_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"title", "updated_at"}),
	}).Create(group).Error
}

func (r *GroupRepositoryImpl) ListAll(ctx context.Context) ([]*models.Group, error) {
	db := r.getDB(ctx)
	var groups []*models.Group
	if err := db.Order("title ASC").Find(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}
