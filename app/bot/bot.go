// Package bot is the Telegram transport: it maps updates onto the business
// flows and renders their outcomes back as messages and keyboards.
package bot

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/callbackquery"
	"github.com/PaulSonOfLars/gotgbot/v2/ext/handlers/filters/message"
	businessflow "github.com/oliateam/leadfunnel/business_flow"
	"github.com/oliateam/leadfunnel/config"
)

var allowedUpdates = []string{"message", "callback_query"}

// Messenger adapts the raw client to the businessflow.Messenger interface.
// The Bot API client carries its own request timeout, so the context is only
// consulted for early cancellation.
type Messenger struct {
	bot *gotgbot.Bot
}

func NewMessenger(bot *gotgbot.Bot) *Messenger {
	return &Messenger{bot: bot}
}

func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := m.bot.SendMessage(chatID, text, nil)
	return err
}

// Bot wires the dispatcher, the updater and the handler set.
type Bot struct {
	client     *gotgbot.Bot
	dispatcher *ext.Dispatcher
	updater    *ext.Updater
	cfg        config.TelegramConfig
	logger     *log.Logger

	referrals businessflow.ReferralFlow
	funnel    businessflow.FunnelFlow
	notes     businessflow.NoteFlow
	stats     businessflow.StatsFlow
}

// NewClient builds the raw Bot API client. It is separate from New so the
// messenger can be constructed before the flows that depend on it.
func NewClient(cfg config.TelegramConfig) (*gotgbot.Bot, error) {
	return gotgbot.NewBot(cfg.Token, &gotgbot.BotOpts{
		BotClient: &gotgbot.BaseBotClient{
			Client: http.Client{},
			DefaultRequestOpts: &gotgbot.RequestOpts{
				Timeout: gotgbot.DefaultTimeout,
				APIURL:  gotgbot.DefaultAPIURL,
			},
		},
	})
}

func New(
	client *gotgbot.Bot,
	cfg config.TelegramConfig,
	logger *log.Logger,
	referrals businessflow.ReferralFlow,
	funnel businessflow.FunnelFlow,
	notes businessflow.NoteFlow,
	stats businessflow.StatsFlow,
) *Bot {
	if logger == nil {
		logger = log.New(log.Writer(), "bot ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	}

	b := &Bot{
		client:    client,
		cfg:       cfg,
		logger:    logger,
		referrals: referrals,
		funnel:    funnel,
		notes:     notes,
		stats:     stats,
	}

	dispatcher := ext.NewDispatcher(&ext.DispatcherOpts{
		Error: func(_ *gotgbot.Bot, _ *ext.Context, err error) ext.DispatcherAction {
			logger.Printf("bot: unhandled error in update handler: %v", err)
			return ext.DispatcherActionNoop
		},
		MaxRoutines: ext.DefaultMaxRoutines,
	})
	b.dispatcher = dispatcher
	b.updater = ext.NewUpdater(dispatcher, nil)

	// Group chats are observed before the command handlers run so the
	// group roster stays fresh regardless of what the message was.
	dispatcher.AddHandlerToGroup(handlers.NewMessage(message.All, b.observeChat), -1)

	dispatcher.AddHandler(handlers.NewCommand("start", b.handleStart))
	dispatcher.AddHandler(handlers.NewCommand("poll", b.handlePoll))
	dispatcher.AddHandler(handlers.NewCommand("dashboard", b.handleDashboard))
	dispatcher.AddHandler(handlers.NewCommand("cancel", b.handleCancel))

	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbStartPoll), b.handleStartPollButton))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Equal(cbContactManager), b.handleContactManager))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbAgePrefix), b.handleAgeAnswer))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbIncomePrefix), b.handleIncomeAnswer))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbDevicePrefix), b.handleDeviceAnswer))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix("dash_"), b.handleDashboardAction))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbNoteNewPrefix), b.handleNoteGroupPicked))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbNoteDelPrefix), b.handleNoteDelete))
	dispatcher.AddHandler(handlers.NewCallback(callbackquery.Prefix(cbGroupPrefix), b.handleGroupPicked))

	dispatcher.AddHandler(handlers.NewMessage(privateText, b.handleFreeText))

	return b
}

// privateText matches plain private-chat text that is not a command.
func privateText(msg *gotgbot.Message) bool {
	return msg.Chat.Type == "private" && msg.Text != "" && msg.Text[0] != '/'
}

// Start begins long polling. It returns once polling is established.
func (b *Bot) Start() error {
	err := b.updater.StartPolling(b.client, &ext.PollingOpts{
		DropPendingUpdates: b.cfg.DropPending,
		GetUpdatesOpts: &gotgbot.GetUpdatesOpts{
			Timeout:        b.cfg.PollTimeout,
			AllowedUpdates: allowedUpdates,
			RequestOpts: &gotgbot.RequestOpts{
				Timeout: time.Duration(b.cfg.PollTimeout+1) * time.Second,
			},
		},
	})
	if err != nil {
		return err
	}
	b.logger.Printf("bot: @%s started polling", b.client.User.Username)
	return nil
}

// Stop halts polling and waits for in-flight handlers.
func (b *Bot) Stop() error {
	return b.updater.Stop()
}

// Username returns the bot's own username for building deep links.
func (b *Bot) Username() string {
	return b.client.User.Username
}
