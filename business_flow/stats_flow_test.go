package businessflow

import (
	"bytes"
	"context"
	"testing"

	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type statsFixture struct {
	users      *fakeUserRepo
	notes      *fakeNoteRepo
	noteClicks *fakeNoteClickRepo
	groups     *fakeGroupRepo
	flow       StatsFlow
}

func newStatsFixture() *statsFixture {
	fx := &statsFixture{
		users:      newFakeUserRepo(),
		notes:      newFakeNoteRepo(),
		noteClicks: newFakeNoteClickRepo(),
		groups:     newFakeGroupRepo(),
	}
	fx.flow = NewStatsFlow(fx.users, fx.notes, fx.noteClicks, fx.groups)
	return fx
}

func TestNoteStats(t *testing.T) {
	fx := newStatsFixture()
	ctx := context.Background()

	note := &models.Note{OwnerID: 100, GroupID: -200, Title: "Promo", URL: utils.ToPtr("https://example.com")}
	require.NoError(t, fx.notes.Save(ctx, note))
	require.NoError(t, fx.noteClicks.Save(ctx, &models.NoteClick{NoteID: note.ID, UserID: 1}))
	require.NoError(t, fx.noteClicks.Save(ctx, &models.NoteClick{NoteID: note.ID, UserID: 2}))

	stats, err := fx.flow.NoteStats(ctx, note.ID)
	require.NoError(t, err)
	assert.Equal(t, note.ID, stats.NoteID)
	assert.Equal(t, "Promo", stats.Title)
	assert.Equal(t, int64(100), stats.OwnerID)
	assert.Equal(t, int64(2), stats.ClickCount)
}

func TestNoteStats_NotFound(t *testing.T) {
	fx := newStatsFixture()

	_, err := fx.flow.NoteStats(context.Background(), 404)
	assert.ErrorIs(t, err, ErrNoteNotFound)
}

func TestExportNoteStatsWorkbook(t *testing.T) {
	fx := newStatsFixture()
	ctx := context.Background()

	require.NoError(t, fx.groups.Upsert(ctx, &models.Group{TelegramID: -200, Title: "Sales"}))
	require.NoError(t, fx.groups.Upsert(ctx, &models.Group{TelegramID: -300, Title: "Empty group"}))
	require.NoError(t, fx.users.Upsert(ctx, &models.User{TelegramID: 100, FirstName: "Ref", Username: utils.ToPtr("ref_user")}))

	note := &models.Note{OwnerID: 100, GroupID: -200, Title: "Promo"}
	require.NoError(t, fx.notes.Save(ctx, note))
	require.NoError(t, fx.noteClicks.Save(ctx, &models.NoteClick{NoteID: note.ID, UserID: 1}))

	name, data, err := fx.flow.ExportNoteStatsWorkbook(ctx)
	require.NoError(t, err)
	assert.Equal(t, "note_stats_by_group.xlsx", name)
	require.NotEmpty(t, data)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	// Only the group with notes gets a sheet.
	sheets := xl.GetSheetList()
	require.Equal(t, []string{"Sales"}, sheets)

	rows, err := xl.GetRows("Sales")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "note_id", rows[0][0])
	assert.Equal(t, "Promo", rows[1][1])
	assert.Equal(t, "@ref_user", rows[1][4])
	assert.Equal(t, "1", rows[1][5])
}

func TestSanitizeWorkbookSheetName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"clean name passes", "Sales", "Sales"},
		{"forbidden chars replaced", "a:b/c?d*e[f]g\\h", "a_b_c_d_e_f_g_h"},
		{"long name truncated", "0123456789012345678901234567890123456789", "0123456789012345678901234567890"},
		{"empty falls back", "", "Sheet"},
		{"whitespace only falls back", "   ", "Sheet"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizeWorkbookSheetName(tt.in)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), 31)
		})
	}
}
