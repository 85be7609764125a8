package repository

import (
	"context"

	"github.com/oliateam/leadfunnel/models"
	"gorm.io/gorm"
)

// NoteClickRepositoryImpl implements NoteClickRepository
type NoteClickRepositoryImpl struct {
	*BaseRepository[models.NoteClick, models.NoteClickFilter]
}

func NewNoteClickRepository(db *gorm.DB) NoteClickRepository {
	return &NoteClickRepositoryImpl{BaseRepository: NewBaseRepository[models.NoteClick, models.NoteClickFilter](db)}
}

func (r *NoteClickRepositoryImpl) CountByNote(ctx context.Context, noteID uint) (int64, error) {
	db := r.getDB(ctx)
	var count int64
	err := db.Model(&models.NoteClick{}).Where("note_id = ?", noteID).Count(&count).Error
	return count, err
}

func (r *NoteClickRepositoryImpl) CountsForNotes(ctx context.Context, noteIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(noteIDs))
	if len(noteIDs) == 0 {
		return counts, nil
	}

	db := r.getDB(ctx)
	type noteCount struct {
		NoteID uint
		Total  int64
	}
	var rows []noteCount
	err := db.Model(&models.NoteClick{}).
		Select("note_id, COUNT(*) AS total").
		Where("note_id IN ?", noteIDs).
		Group("note_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.NoteID] = row.Total
	}
	return counts, nil
}
