package repository

import (
	"context"

	"github.com/oliateam/leadfunnel/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReferralClickRepositoryImpl implements ReferralClickRepository
type ReferralClickRepositoryImpl struct {
	*BaseRepository[models.ReferralClick, models.ReferralClickFilter]
}

func NewReferralClickRepository(db *gorm.DB) ReferralClickRepository {
	return &ReferralClickRepositoryImpl{BaseRepository: NewBaseRepository[models.ReferralClick, models.ReferralClickFilter](db)}
}

// Record inserts the click with ON CONFLICT DO NOTHING on the
// (referrer, referred, note) unique index. RowsAffected tells apart a new
// event from a duplicate without racing a prior existence check.
func (r *ReferralClickRepositoryImpl) Record(ctx context.Context, click *models.ReferralClick) (bool, error) {
	db := r.getDB(ctx)
	res := db.Clauses(clause.OnConflict{DoNothing: true}).Create(click)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *ReferralClickRepositoryImpl) CountByReferrer(ctx context.Context, referrerID int64) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.ReferralClick{}).Where("referrer_id = ?", referrerID).Count(&count).Error
	return count, err
}
