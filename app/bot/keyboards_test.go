package bot

import (
	"testing"

	businessflow "github.com/oliateam/leadfunnel/business_flow"
	"github.com/oliateam/leadfunnel/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerKeyboard_StableOrdering(t *testing.T) {
	kb := ageKeyboard()
	require.Len(t, kb.InlineKeyboard, 4)

	var labels, data []string
	for _, row := range kb.InlineKeyboard {
		require.Len(t, row, 1)
		labels = append(labels, row[0].Text)
		data = append(data, row[0].CallbackData)
	}
	assert.Equal(t, []string{"18-24", "25-34", "35-44", "45+"}, labels)
	assert.Equal(t, []string{
		cbAgePrefix + models.AgeBracket18to24,
		cbAgePrefix + models.AgeBracket25to34,
		cbAgePrefix + models.AgeBracket35to44,
		cbAgePrefix + models.AgeBracket45Plus,
	}, data)
}

func TestIncomeKeyboard_SurveyOrder(t *testing.T) {
	kb := incomeKeyboard()
	require.Len(t, kb.InlineKeyboard, 4)

	var labels, data []string
	for _, row := range kb.InlineKeyboard {
		require.Len(t, row, 1)
		labels = append(labels, row[0].Text)
		data = append(data, row[0].CallbackData)
	}
	// Ascending brackets, lowest first.
	assert.Equal(t, []string{"до $10k", "$10-20k", "$20-30k", "$30k+"}, labels)
	assert.Equal(t, []string{
		cbIncomePrefix + models.IncomeBracketUnder10,
		cbIncomePrefix + models.IncomeBracket10to20,
		cbIncomePrefix + models.IncomeBracket20to30,
		cbIncomePrefix + models.IncomeBracket30Plus,
	}, data)
}

func TestDeviceKeyboard(t *testing.T) {
	kb := deviceKeyboard()
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, cbDevicePrefix+models.DeviceAnswerYes, kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, cbDevicePrefix+models.DeviceAnswerNo, kb.InlineKeyboard[0][1].CallbackData)
}

func TestDashboardKeyboard_AdminRow(t *testing.T) {
	plain := dashboardKeyboard(false)
	admin := dashboardKeyboard(true)

	assert.Len(t, plain.InlineKeyboard, 4)
	require.Len(t, admin.InlineKeyboard, 5)
	assert.Equal(t, cbDashReminder, admin.InlineKeyboard[4][0].CallbackData)
}

func TestNotesKeyboard(t *testing.T) {
	url := "https://example.com"
	kb := notesKeyboard([]*businessflow.NoteWithStats{
		{Note: &models.Note{ID: 5, Title: "Promo", URL: &url}, ClickCount: 3},
	})

	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "note_del_5", kb.InlineKeyboard[0][0].CallbackData)
	assert.Contains(t, kb.InlineKeyboard[0][0].Text, "Promo")
	assert.Equal(t, cbDashNewNote, kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, cbDashHome, kb.InlineKeyboard[2][0].CallbackData)
}

func TestGroupPickerKeyboard(t *testing.T) {
	kb := groupPickerKeyboard([]*models.Group{
		{TelegramID: -100, Title: "Sales"},
		{TelegramID: -200, Title: "Support"},
	}, cbGroupPrefix)

	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, "grp_set_-100", kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "grp_set_-200", kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, cbDashHome, kb.InlineKeyboard[2][0].CallbackData)
}

func TestManagerKeyboard_UsesContactURL(t *testing.T) {
	kb := managerKeyboard("https://t.me/hr_volodymyr?text=%2B")
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, "https://t.me/hr_volodymyr?text=%2B", kb.InlineKeyboard[0][0].Url)
	assert.Empty(t, kb.InlineKeyboard[0][0].CallbackData)
}
