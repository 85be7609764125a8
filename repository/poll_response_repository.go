package repository

import (
	"context"
	"errors"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PollResponseRepositoryImpl implements PollResponseRepository
type PollResponseRepositoryImpl struct {
	*BaseRepository[models.PollResponse, models.PollResponseFilter]
}

func NewPollResponseRepository(db *gorm.DB) PollResponseRepository {
	return &PollResponseRepositoryImpl{BaseRepository: NewBaseRepository[models.PollResponse, models.PollResponseFilter](db)}
}

func (r *PollResponseRepositoryImpl) ByUserID(ctx context.Context, userID int64) (*models.PollResponse, error) {
	db := r.getDB(ctx)
	var row models.PollResponse
	if err := db.Where("user_id = ?", userID).Last(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// EnsureRow creates the poll row on first funnel interaction. The insert
// carries the attribution; on conflict nothing is overwritten, so the first
// recorded referrer wins even under concurrent start events.
func (r *PollResponseRepositoryImpl) EnsureRow(ctx context.Context, userID int64, referrerID int64, noteID uint, groupID int64) (*models.PollResponse, error) {
	db := r.getDB(ctx)
	row := &models.PollResponse{
		UserID:     userID,
		ReferrerID: referrerID,
		NoteID:     noteID,
		GroupID:    groupID,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(row).Error; err != nil {
		return nil, err
	}
	return r.ByUserID(ctx, userID)
}

// ResetSession clears the survey answers and reopens both one-shot flags.
// This is the only operation allowed to flip notified back to false.
func (r *PollResponseRepositoryImpl) ResetSession(ctx context.Context, userID int64) error {
	db := r.getDB(ctx)
	return db.Model(&models.PollResponse{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"age_bracket":    nil,
			"income_bracket": nil,
			"device_answer":  nil,
			"notified":       false,
			"reminder_sent":  false,
			"completed_at":   nil,
			"updated_at":     utils.UTCNow(),
		}).Error
}

func (r *PollResponseRepositoryImpl) SetAgeBracket(ctx context.Context, userID int64, bracket string) error {
	db := r.getDB(ctx)
	return db.Model(&models.PollResponse{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"age_bracket": bracket,
			"updated_at":  utils.UTCNow(),
		}).Error
}

func (r *PollResponseRepositoryImpl) SetIncomeBracket(ctx context.Context, userID int64, bracket string) error {
	db := r.getDB(ctx)
	return db.Model(&models.PollResponse{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"income_bracket": bracket,
			"updated_at":     utils.UTCNow(),
		}).Error
}

func (r *PollResponseRepositoryImpl) SetDeviceAnswer(ctx context.Context, userID int64, answer string) error {
	db := r.getDB(ctx)
	return db.Model(&models.PollResponse{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"device_answer": answer,
			"completed_at":  utils.UTCNowPtr(),
			"updated_at":    utils.UTCNow(),
		}).Error
}

// TryClaimNotification performs the read-test-and-set as one conditional
// UPDATE. Under concurrent duplicate events exactly one caller observes
// RowsAffected == 1; the loser simply sees "already claimed".
func (r *PollResponseRepositoryImpl) TryClaimNotification(ctx context.Context, userID int64) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.PollResponse{}).
		Where("user_id = ? AND notified = ?", userID, false).
		Updates(map[string]any{
			"notified":   true,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *PollResponseRepositoryImpl) WasNotified(ctx context.Context, userID int64) (bool, error) {
	row, err := r.ByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	return row != nil && row.Notified, nil
}

// TryMarkReminderSent succeeds only while the device question is still
// unanswered, making the wake-time state check and the flag flip a single
// atomic step.
func (r *PollResponseRepositoryImpl) TryMarkReminderSent(ctx context.Context, userID int64) (bool, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.PollResponse{}).
		Where("user_id = ? AND reminder_sent = ? AND device_answer IS NULL", userID, false).
		Updates(map[string]any{
			"reminder_sent": true,
			"updated_at":    utils.UTCNow(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
