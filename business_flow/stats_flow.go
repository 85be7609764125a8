package businessflow

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/oliateam/leadfunnel/app/dto"
	"github.com/oliateam/leadfunnel/repository"
	"github.com/xuri/excelize/v2"
)

// StatsFlow serves the admin API and the dashboard statistics actions
type StatsFlow interface {
	QualifiedLeads(ctx context.Context, limit, offset int) ([]*repository.LeadRow, error)
	NoteStats(ctx context.Context, noteID uint) (*dto.NoteStatsDTO, error)
	// ExportNoteStatsWorkbook builds an XLSX workbook with one sheet per
	// destination group listing that group's notes and click counts.
	ExportNoteStatsWorkbook(ctx context.Context) (string, []byte, error)
}

type StatsFlowImpl struct {
	users      repository.UserRepository
	notes      repository.NoteRepository
	noteClicks repository.NoteClickRepository
	groups     repository.GroupRepository
}

func NewStatsFlow(
	users repository.UserRepository,
	notes repository.NoteRepository,
	noteClicks repository.NoteClickRepository,
	groups repository.GroupRepository,
) StatsFlow {
	return &StatsFlowImpl{
		users:      users,
		notes:      notes,
		noteClicks: noteClicks,
		groups:     groups,
	}
}

func (f *StatsFlowImpl) QualifiedLeads(ctx context.Context, limit, offset int) ([]*repository.LeadRow, error) {
	rows, err := f.users.ListQualifiedLeads(ctx, limit, offset)
	if err != nil {
		return nil, NewBusinessError("LEAD_LIST_FAILED", "Failed to list qualified leads", err)
	}
	return rows, nil
}

func (f *StatsFlowImpl) NoteStats(ctx context.Context, noteID uint) (*dto.NoteStatsDTO, error) {
	note, err := f.notes.ByID(ctx, noteID)
	if err != nil {
		return nil, NewBusinessError("NOTE_LOOKUP_FAILED", "Failed to lookup note", err)
	}
	if note == nil {
		return nil, ErrNoteNotFound
	}
	count, err := f.noteClicks.CountByNote(ctx, noteID)
	if err != nil {
		return nil, NewBusinessError("NOTE_STATS_FAILED", "Failed to count note clicks", err)
	}
	return &dto.NoteStatsDTO{
		NoteID:     note.ID,
		Title:      note.Title,
		URL:        note.URL,
		OwnerID:    note.OwnerID,
		GroupID:    note.GroupID,
		ClickCount: count,
	}, nil
}

func (f *StatsFlowImpl) ExportNoteStatsWorkbook(ctx context.Context) (string, []byte, error) {
	groups, err := f.groups.ListAll(ctx)
	if err != nil {
		return "", nil, NewBusinessError("GROUP_LIST_FAILED", "Failed to list groups", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	header := []string{"note_id", "title", "url", "owner_id", "owner_username", "click_count", "created_at"}
	usedNames := map[string]bool{}
	sheetCount := 0

	for _, group := range groups {
		notes, err := f.notesForGroup(ctx, group.TelegramID)
		if err != nil {
			return "", nil, err
		}
		if len(notes) == 0 {
			continue
		}

		baseName := sanitizeWorkbookSheetName(group.Title)
		name := baseName
		idx := 1
		for usedNames[name] {
			idx++
			name = truncateWorkbookSheetName(baseName + "_" + strconv.Itoa(idx))
		}
		usedNames[name] = true
		if sheetCount == 0 {
			xl.SetSheetName(xl.GetSheetName(0), name)
		} else {
			_, _ = xl.NewSheet(name)
		}
		sheetCount++

		_ = xl.SetSheetRow(name, "A1", &header)
		for ri, stat := range notes {
			owner := ""
			if u, err := f.users.ByTelegramID(ctx, stat.Note.OwnerID); err == nil && u != nil && u.Username != nil {
				owner = "@" + *u.Username
			}
			url := ""
			if stat.Note.URL != nil {
				url = *stat.Note.URL
			}
			record := []string{
				strconv.FormatUint(uint64(stat.Note.ID), 10),
				stat.Note.Title,
				url,
				strconv.FormatInt(stat.Note.OwnerID, 10),
				owner,
				strconv.FormatInt(stat.ClickCount, 10),
				stat.Note.CreatedAt.UTC().Format(time.RFC3339),
			}
			cellRef, _ := excelize.CoordinatesToCellName(1, ri+2)
			_ = xl.SetSheetRow(name, cellRef, &record)
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXCEL_WRITE_ERROR", "Failed to write Excel file", err)
	}
	return "note_stats_by_group.xlsx", buf.Bytes(), nil
}

func (f *StatsFlowImpl) notesForGroup(ctx context.Context, groupID int64) ([]*NoteWithStats, error) {
	notes, err := f.notes.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, NewBusinessError("NOTE_LIST_FAILED", "Failed to list notes", err)
	}
	ids := make([]uint, 0, len(notes))
	for _, note := range notes {
		ids = append(ids, note.ID)
	}
	counts, err := f.noteClicks.CountsForNotes(ctx, ids)
	if err != nil {
		return nil, NewBusinessError("NOTE_STATS_FAILED", "Failed to count note clicks", err)
	}
	result := make([]*NoteWithStats, 0, len(notes))
	for _, note := range notes {
		result = append(result, &NoteWithStats{Note: note, ClickCount: counts[note.ID]})
	}
	return result, nil
}

func sanitizeWorkbookSheetName(name string) string {
	// Excel sheet names cannot contain: : \ / ? * [ ] and must be <= 31 chars
	replacer := strings.NewReplacer(":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "_", "]", "_")
	safe := replacer.Replace(name)
	return truncateWorkbookSheetName(strings.TrimSpace(safe))
}

func truncateWorkbookSheetName(name string) string {
	if len(name) > 31 {
		return name[:31]
	}
	if name == "" {
		return "Sheet"
	}
	return name
}
