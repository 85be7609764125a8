package bot

import (
	"fmt"

	"github.com/PaulSonOfLars/gotgbot/v2"
	businessflow "github.com/oliateam/leadfunnel/business_flow"
	"github.com/oliateam/leadfunnel/models"
)

// Callback data values. Survey answers carry their answer key after the
// prefix; dashboard actions carry entity ids.
const (
	cbStartPoll      = "start_poll"
	cbContactManager = "contact_manager"

	cbAgePrefix    = "age_"
	cbIncomePrefix = "income_"
	cbDevicePrefix = "device_"

	cbDashHome     = "dash_home"
	cbDashLink     = "dash_link"
	cbDashNotes    = "dash_notes"
	cbDashGroups   = "dash_groups"
	cbDashExport   = "dash_export"
	cbDashReminder = "dash_reminder"
	cbDashNewNote  = "dash_newnote"

	cbNoteNewPrefix = "note_new_"
	cbNoteDelPrefix = "note_del_"
	cbGroupPrefix   = "grp_set_"
)

func mainMenuKeyboard() gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{{Text: btnContactManager, CallbackData: cbContactManager}},
			{{Text: btnStartPoll, CallbackData: cbStartPoll}},
		},
	}
}

func managerKeyboard(managerContact string) gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{{Text: btnManagerLink, Url: managerContact}},
		},
	}
}

// answerKeyboard renders one button per answer key, in survey order.
func answerKeyboard(prefix string, keys []string, labels map[string]string) gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(keys))
	for _, key := range keys {
		rows = append(rows, []gotgbot.InlineKeyboardButton{
			{Text: labels[key], CallbackData: prefix + key},
		})
	}
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func ageKeyboard() gotgbot.InlineKeyboardMarkup {
	return answerKeyboard(cbAgePrefix, businessflow.AgeBracketOrder, businessflow.AgeBracketLabels)
}

func incomeKeyboard() gotgbot.InlineKeyboardMarkup {
	return answerKeyboard(cbIncomePrefix, businessflow.IncomeBracketOrder, businessflow.IncomeBracketLabels)
}

func deviceKeyboard() gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{
				{Text: "Так ✅", CallbackData: cbDevicePrefix + models.DeviceAnswerYes},
				{Text: "Ні ❌", CallbackData: cbDevicePrefix + models.DeviceAnswerNo},
			},
		},
	}
}

func dashboardKeyboard(isAdmin bool) gotgbot.InlineKeyboardMarkup {
	rows := [][]gotgbot.InlineKeyboardButton{
		{{Text: btnDashLink, CallbackData: cbDashLink}},
		{{Text: btnDashNotes, CallbackData: cbDashNotes}},
		{{Text: btnDashGroups, CallbackData: cbDashGroups}},
		{{Text: btnDashExport, CallbackData: cbDashExport}},
	}
	if isAdmin {
		rows = append(rows, []gotgbot.InlineKeyboardButton{
			{Text: btnDashReminder, CallbackData: cbDashReminder},
		})
	}
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func backKeyboard() gotgbot.InlineKeyboardMarkup {
	return gotgbot.InlineKeyboardMarkup{
		InlineKeyboard: [][]gotgbot.InlineKeyboardButton{
			{{Text: btnBack, CallbackData: cbDashHome}},
		},
	}
}

func notesKeyboard(notes []*businessflow.NoteWithStats) gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(notes)+2)
	for _, stat := range notes {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         fmt.Sprintf("🗑 %s (%d кліків)", stat.Note.Title, stat.ClickCount),
			CallbackData: fmt.Sprintf("%s%d", cbNoteDelPrefix, stat.Note.ID),
		}})
	}
	rows = append(rows,
		[]gotgbot.InlineKeyboardButton{{Text: btnCreateNote, CallbackData: cbDashNewNote}},
		[]gotgbot.InlineKeyboardButton{{Text: btnBack, CallbackData: cbDashHome}},
	)
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func groupPickerKeyboard(groups []*models.Group, prefix string) gotgbot.InlineKeyboardMarkup {
	rows := make([][]gotgbot.InlineKeyboardButton, 0, len(groups)+1)
	for _, group := range groups {
		rows = append(rows, []gotgbot.InlineKeyboardButton{{
			Text:         group.Title,
			CallbackData: fmt.Sprintf("%s%d", prefix, group.TelegramID),
		}})
	}
	rows = append(rows, []gotgbot.InlineKeyboardButton{{Text: btnBack, CallbackData: cbDashHome}})
	return gotgbot.InlineKeyboardMarkup{InlineKeyboard: rows}
}
