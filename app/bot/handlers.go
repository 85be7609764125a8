package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/google/uuid"
	"github.com/oliateam/leadfunnel/app/metrics"
	businessflow "github.com/oliateam/leadfunnel/business_flow"
	"github.com/oliateam/leadfunnel/models"
	"github.com/oliateam/leadfunnel/utils"
)

const handlerTimeout = 30 * time.Second

// requestContext returns a bounded context plus a trace id for log
// correlation across the flow calls of one update.
func requestContext() (context.Context, context.CancelFunc, string) {
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	return ctx, cancel, uuid.NewString()
}

func (b *Bot) fail(kind, trace string, err error) {
	metrics.UpdateErrorsTotal.WithLabelValues(kind).Inc()
	b.logger.Printf("bot: %s handler failed trace=%s: %v", kind, trace, err)
}

func modelUser(u *gotgbot.User) *models.User {
	m := &models.User{TelegramID: u.Id, FirstName: u.FirstName}
	if u.LastName != "" {
		m.LastName = utils.ToPtr(u.LastName)
	}
	if u.Username != "" {
		m.Username = utils.ToPtr(u.Username)
	}
	return m
}

func (b *Bot) isAdmin(userID int64) bool {
	return b.cfg.AdminID != 0 && userID == b.cfg.AdminID
}

// observeChat refreshes the group roster from any group activity. It always
// continues to the command handlers.
func (b *Bot) observeChat(_ *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	if msg == nil || (msg.Chat.Type != "group" && msg.Chat.Type != "supergroup") {
		return ext.ContinueGroups
	}
	reqCtx, cancel, trace := requestContext()
	defer cancel()
	if err := b.notes.ObserveGroup(reqCtx, msg.Chat.Id, msg.Chat.Title); err != nil {
		b.fail("observe", trace, err)
	}
	return ext.ContinueGroups
}

func (b *Bot) handleStart(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("command").Inc()
	msg := ctx.EffectiveMessage
	user := ctx.EffectiveUser
	if msg == nil || user == nil || msg.Chat.Type != "private" {
		return nil
	}

	payload := ""
	if args := ctx.Args(); len(args) > 1 {
		payload = args[1]
	}

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	outcome, err := b.referrals.HandleStart(reqCtx, modelUser(user), payload)
	if err != nil {
		b.fail("start", trace, err)
		_, _ = msg.Reply(bot, textSomethingWrong, nil)
		return nil
	}
	countReferralStart(outcome)

	if _, err := msg.Reply(bot, textGreeting, nil); err != nil {
		return err
	}
	_, err = bot.SendMessage(msg.Chat.Id, textMainMenu, &gotgbot.SendMessageOpts{
		ReplyMarkup: mainMenuKeyboard(),
	})
	return err
}

func (b *Bot) handlePoll(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("command").Inc()
	msg := ctx.EffectiveMessage
	user := ctx.EffectiveUser
	if msg == nil || user == nil || msg.Chat.Type != "private" {
		return nil
	}
	return b.beginSurvey(bot, user.Id, msg.Chat.Id)
}

func (b *Bot) handleStartPollButton(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	if _, err := cb.Answer(bot, nil); err != nil {
		b.logger.Printf("bot: answer callback failed: %v", err)
	}
	chat := ctx.EffectiveChat
	if chat == nil {
		return nil
	}
	return b.beginSurvey(bot, cb.From.Id, chat.Id)
}

func (b *Bot) beginSurvey(bot *gotgbot.Bot, userID, chatID int64) error {
	reqCtx, cancel, trace := requestContext()
	defer cancel()

	if err := b.funnel.StartSurvey(reqCtx, userID, chatID); err != nil {
		b.fail("poll", trace, err)
		_, err := bot.SendMessage(chatID, textSomethingWrong, nil)
		return err
	}
	_, err := bot.SendMessage(chatID, textAgePrompt, &gotgbot.SendMessageOpts{
		ReplyMarkup: ageKeyboard(),
	})
	return err
}

func (b *Bot) handleContactManager(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	if _, err := cb.Answer(bot, nil); err != nil {
		b.logger.Printf("bot: answer callback failed: %v", err)
	}
	chat := ctx.EffectiveChat
	if chat == nil {
		return nil
	}
	_, err := bot.SendMessage(chat.Id, textManagerContact, &gotgbot.SendMessageOpts{
		ReplyMarkup: managerKeyboard(b.cfg.ManagerContact),
	})
	return err
}

func (b *Bot) handleAgeAnswer(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	key := strings.TrimPrefix(cb.Data, cbAgePrefix)

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	if err := b.funnel.AnswerAge(reqCtx, cb.From.Id, key); err != nil {
		return b.answerFailed(bot, cb, trace, "age", err)
	}
	if _, err := cb.Answer(bot, nil); err != nil {
		b.logger.Printf("bot: answer callback failed: %v", err)
	}
	return b.paceAndPrompt(bot, ctx, textAgeAck, textIncomePrompt, incomeKeyboard())
}

func (b *Bot) handleIncomeAnswer(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	key := strings.TrimPrefix(cb.Data, cbIncomePrefix)

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	if err := b.funnel.AnswerIncome(reqCtx, cb.From.Id, key); err != nil {
		return b.answerFailed(bot, cb, trace, "income", err)
	}
	if _, err := cb.Answer(bot, nil); err != nil {
		b.logger.Printf("bot: answer callback failed: %v", err)
	}
	return b.paceAndPrompt(bot, ctx, textIncomeAck, textDevicePrompt, deviceKeyboard())
}

func (b *Bot) handleDeviceAnswer(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	key := strings.TrimPrefix(cb.Data, cbDevicePrefix)

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	outcome, err := b.funnel.AnswerDevice(reqCtx, cb.From.Id, key)
	if err != nil {
		return b.answerFailed(bot, cb, trace, "device", err)
	}
	if _, err := cb.Answer(bot, nil); err != nil {
		b.logger.Printf("bot: answer callback failed: %v", err)
	}
	countNotificationOutcome(outcome.Notification)

	branch := textDeviceYes
	if outcome.Answer == models.DeviceAnswerNo {
		branch = textDeviceNo
	}

	chat := ctx.EffectiveChat
	if chat == nil {
		return nil
	}
	if _, err := bot.SendMessage(chat.Id, branch, nil); err != nil {
		return err
	}
	time.Sleep(b.cfg.PacingDelay)
	_, err = bot.SendMessage(chat.Id, textTalkToManager, &gotgbot.SendMessageOpts{
		ReplyMarkup: managerKeyboard(b.cfg.ManagerContact),
	})
	return err
}

// countReferralStart counts only clicks the flow actually recorded, so the
// metric stays a count of unique referral clicks. Malformed, self-referential
// and repeated payloads never reach it.
func countReferralStart(outcome *businessflow.StartOutcome) {
	if outcome == nil || !outcome.ClickRecorded {
		return
	}
	metrics.ReferralClicksTotal.WithLabelValues(businessflow.ReferralSourceLink).Inc()
}

func countNotificationOutcome(result *businessflow.LeadNotificationResult) {
	if result == nil {
		return
	}
	switch {
	case result.Sent:
		metrics.LeadNotificationsTotal.WithLabelValues(metrics.NotificationOutcomeSent).Inc()
	case result.Claimed:
		metrics.LeadNotificationsTotal.WithLabelValues(metrics.NotificationOutcomeUnrouted).Inc()
	default:
		metrics.LeadNotificationsTotal.WithLabelValues(metrics.NotificationOutcomeDuplicate).Inc()
	}
}

// answerFailed maps a flow error onto the callback answer: unknown options
// get a transient alert, everything else a generic one.
func (b *Bot) answerFailed(bot *gotgbot.Bot, cb *gotgbot.CallbackQuery, trace, kind string, err error) error {
	text := textSomethingWrong
	if errors.Is(err, businessflow.ErrUnknownOption) {
		text = textUnknownOption
	} else {
		b.fail(kind, trace, err)
	}
	_, answerErr := cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: text})
	return answerErr
}

// paceAndPrompt sends the affirmation, waits the configured pacing delay and
// then sends the next survey prompt.
func (b *Bot) paceAndPrompt(bot *gotgbot.Bot, ctx *ext.Context, ack, prompt string, kb gotgbot.InlineKeyboardMarkup) error {
	chat := ctx.EffectiveChat
	if chat == nil {
		return nil
	}
	if _, err := bot.SendMessage(chat.Id, ack, nil); err != nil {
		return err
	}
	time.Sleep(b.cfg.PacingDelay)
	_, err := bot.SendMessage(chat.Id, prompt, &gotgbot.SendMessageOpts{ReplyMarkup: kb})
	return err
}

func (b *Bot) handleDashboard(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("command").Inc()
	msg := ctx.EffectiveMessage
	user := ctx.EffectiveUser
	if msg == nil || user == nil || msg.Chat.Type != "private" {
		return nil
	}
	_, err := bot.SendMessage(msg.Chat.Id, textDashboard, &gotgbot.SendMessageOpts{
		ReplyMarkup: dashboardKeyboard(b.isAdmin(user.Id)),
	})
	return err
}

// handleDashboardAction routes the dash_* callbacks. Navigation happens by
// editing the menu message in place.
func (b *Bot) handleDashboardAction(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	userID := cb.From.Id

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	switch cb.Data {
	case cbDashHome:
		b.answerQuietly(bot, cb)
		return b.editMenu(bot, ctx, textDashboard, dashboardKeyboard(b.isAdmin(userID)))

	case cbDashLink:
		b.answerQuietly(bot, cb)
		link := b.notes.ReferralLink(b.Username(), userID)
		return b.editMenu(bot, ctx, "Ваше реферальне посилання:\n"+link, backKeyboard())

	case cbDashNotes:
		b.answerQuietly(bot, cb)
		return b.renderNotes(bot, ctx, userID, trace)

	case cbDashNewNote:
		b.answerQuietly(bot, cb)
		groups, err := b.notes.ListGroups(reqCtx)
		if err != nil {
			b.fail("dashboard", trace, err)
			return b.editMenu(bot, ctx, textSomethingWrong, backKeyboard())
		}
		if len(groups) == 0 {
			return b.editMenu(bot, ctx, textNoGroups, backKeyboard())
		}
		return b.editMenu(bot, ctx, "Оберіть групу для нової примітки:", groupPickerKeyboard(groups, cbNoteNewPrefix))

	case cbDashGroups:
		b.answerQuietly(bot, cb)
		groups, err := b.notes.ListGroups(reqCtx)
		if err != nil {
			b.fail("dashboard", trace, err)
			return b.editMenu(bot, ctx, textSomethingWrong, backKeyboard())
		}
		if len(groups) == 0 {
			return b.editMenu(bot, ctx, textNoGroups, backKeyboard())
		}
		return b.editMenu(bot, ctx, "Оберіть групу для сповіщень про лідів:", groupPickerKeyboard(groups, cbGroupPrefix))

	case cbDashExport:
		name, data, err := b.stats.ExportNoteStatsWorkbook(reqCtx)
		if err != nil {
			b.fail("dashboard", trace, err)
			_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textSomethingWrong})
			return nil
		}
		b.answerQuietly(bot, cb)
		chat := ctx.EffectiveChat
		if chat == nil {
			return nil
		}
		_, err = bot.SendDocument(chat.Id, gotgbot.InputFileByReader(name, bytes.NewReader(data)), nil)
		return err

	case cbDashReminder:
		if !b.isAdmin(userID) {
			_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textUnknownOption})
			return nil
		}
		if err := b.notes.BeginEditReminderText(reqCtx, userID); err != nil {
			b.fail("dashboard", trace, err)
			_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textSomethingWrong})
			return nil
		}
		b.answerQuietly(bot, cb)
		chat := ctx.EffectiveChat
		if chat == nil {
			return nil
		}
		_, err := bot.SendMessage(chat.Id, textAskReminderText, nil)
		return err
	}

	_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textUnknownOption})
	return nil
}

func (b *Bot) renderNotes(bot *gotgbot.Bot, ctx *ext.Context, userID int64, trace string) error {
	reqCtx, cancel, _ := requestContext()
	defer cancel()

	notes, err := b.notes.ListNotes(reqCtx, userID)
	if err != nil {
		b.fail("notes", trace, err)
		return b.editMenu(bot, ctx, textSomethingWrong, backKeyboard())
	}
	if len(notes) == 0 {
		return b.editMenu(bot, ctx, textNoNotes, notesKeyboard(notes))
	}

	var sb strings.Builder
	sb.WriteString("Ваші примітки:\n")
	for _, stat := range notes {
		fmt.Fprintf(&sb, "• %s — %d кліків\n%s\n",
			stat.Note.Title, stat.ClickCount, b.notes.NoteLink(b.Username(), userID, stat.Note.ID))
	}
	return b.editMenu(bot, ctx, sb.String(), notesKeyboard(notes))
}

func (b *Bot) handleNoteGroupPicked(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	groupID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, cbNoteNewPrefix), 10, 64)
	if err != nil {
		_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textUnknownOption})
		return nil
	}

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	if err := b.notes.BeginCreateNote(reqCtx, cb.From.Id, groupID); err != nil {
		if errors.Is(err, businessflow.ErrGroupNotFound) {
			_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textGroupNotFound})
			return nil
		}
		b.fail("note_new", trace, err)
		_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textSomethingWrong})
		return nil
	}
	b.answerQuietly(bot, cb)
	chat := ctx.EffectiveChat
	if chat == nil {
		return nil
	}
	_, err = bot.SendMessage(chat.Id, textAskNoteTitle, nil)
	return err
}

func (b *Bot) handleNoteDelete(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	noteID, err := strconv.ParseUint(strings.TrimPrefix(cb.Data, cbNoteDelPrefix), 10, 32)
	if err != nil {
		_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textUnknownOption})
		return nil
	}

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	if err := b.notes.DeleteNote(reqCtx, cb.From.Id, uint(noteID)); err != nil {
		if errors.Is(err, businessflow.ErrNoteNotFound) {
			_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textNoteNotFound})
			return nil
		}
		b.fail("note_del", trace, err)
		_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textSomethingWrong})
		return nil
	}
	_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textNoteDeleted})
	return b.renderNotes(bot, ctx, cb.From.Id, trace)
}

func (b *Bot) handleGroupPicked(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("callback").Inc()
	cb := ctx.CallbackQuery
	groupID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, cbGroupPrefix), 10, 64)
	if err != nil {
		_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textUnknownOption})
		return nil
	}

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	if err := b.notes.SetNotifyGroup(reqCtx, cb.From.Id, groupID); err != nil {
		if errors.Is(err, businessflow.ErrGroupNotFound) {
			_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textGroupNotFound})
			return nil
		}
		b.fail("group_set", trace, err)
		_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textSomethingWrong})
		return nil
	}
	_, _ = cb.Answer(bot, &gotgbot.AnswerCallbackQueryOpts{Text: textGroupChosen})
	return b.editMenu(bot, ctx, textDashboard, dashboardKeyboard(b.isAdmin(cb.From.Id)))
}

func (b *Bot) handleCancel(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("command").Inc()
	msg := ctx.EffectiveMessage
	user := ctx.EffectiveUser
	if msg == nil || user == nil || msg.Chat.Type != "private" {
		return nil
	}

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	cancelled, err := b.notes.CancelCapture(reqCtx, user.Id)
	if err != nil {
		b.fail("cancel", trace, err)
		_, _ = msg.Reply(bot, textSomethingWrong, nil)
		return nil
	}
	text := textNothingToCancel
	if cancelled {
		text = textCaptureCancelled
	}
	_, err = msg.Reply(bot, text, nil)
	return err
}

// handleFreeText feeds private-chat text into the capture side-states. Text
// outside an active capture is ignored.
func (b *Bot) handleFreeText(bot *gotgbot.Bot, ctx *ext.Context) error {
	metrics.UpdatesTotal.WithLabelValues("message").Inc()
	msg := ctx.EffectiveMessage
	user := ctx.EffectiveUser
	if msg == nil || user == nil {
		return nil
	}

	reqCtx, cancel, trace := requestContext()
	defer cancel()

	outcome, err := b.notes.HandleCapturedText(reqCtx, user.Id, msg.Text)
	if err != nil {
		if errors.Is(err, businessflow.ErrReminderTextEmpty) {
			_, _ = msg.Reply(bot, textReminderTextInvalid, nil)
			return nil
		}
		b.fail("capture", trace, err)
		_, _ = msg.Reply(bot, textSomethingWrong, nil)
		return nil
	}

	switch outcome.Kind {
	case businessflow.CaptureResultIgnored:
		return nil
	case businessflow.CaptureResultTitleSaved:
		_, err = msg.Reply(bot, textAskNoteURL, nil)
	case businessflow.CaptureResultTitleInvalid:
		_, err = msg.Reply(bot, textNoteTitleInvalid, nil)
	case businessflow.CaptureResultInvalidURL:
		_, err = msg.Reply(bot, textNoteURLInvalid, nil)
	case businessflow.CaptureResultNoteCreated:
		link := b.notes.NoteLink(b.Username(), user.Id, outcome.Note.ID)
		_, err = msg.Reply(bot, "Примітку створено✅\nПосилання для поширення:\n"+link, nil)
	case businessflow.CaptureResultReminderSet:
		_, err = msg.Reply(bot, textReminderUpdated, nil)
	}
	return err
}

func (b *Bot) answerQuietly(bot *gotgbot.Bot, cb *gotgbot.CallbackQuery) {
	if _, err := cb.Answer(bot, nil); err != nil {
		b.logger.Printf("bot: answer callback failed: %v", err)
	}
}

func (b *Bot) editMenu(bot *gotgbot.Bot, ctx *ext.Context, text string, kb gotgbot.InlineKeyboardMarkup) error {
	msg := ctx.EffectiveMessage
	if msg == nil {
		return nil
	}
	_, _, err := msg.EditText(bot, text, &gotgbot.EditMessageTextOpts{ReplyMarkup: kb})
	return err
}
