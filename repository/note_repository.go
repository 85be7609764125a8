package repository

import (
	"context"

	"github.com/oliateam/leadfunnel/models"
	"gorm.io/gorm"
)

// NoteRepositoryImpl implements NoteRepository
type NoteRepositoryImpl struct {
	*BaseRepository[models.Note, models.NoteFilter]
}

func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &NoteRepositoryImpl{BaseRepository: NewBaseRepository[models.Note, models.NoteFilter](db)}
}

func (r *NoteRepositoryImpl) ListByOwner(ctx context.Context, ownerID int64) ([]*models.Note, error) {
	db := r.getDB(ctx)
	var notes []*models.Note
	if err := db.Where("owner_id = ?", ownerID).Order("id ASC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepositoryImpl) ListByGroup(ctx context.Context, groupID int64) ([]*models.Note, error) {
	db := r.getDB(ctx)
	var notes []*models.Note
	if err := db.Where("group_id = ?", groupID).Order("id ASC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *NoteRepositoryImpl) DeleteByIDAndOwner(ctx context.Context, id uint, ownerID int64) (bool, error) {
	db := r.getDB(ctx)
	res := db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Note{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
