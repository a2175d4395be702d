package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/spacatty/subzone/internal/dns"
	"github.com/spacatty/subzone/internal/models"
	"github.com/spacatty/subzone/internal/service"
)

const handlerTimeout = 30 * time.Second

// Service is the workflow surface the bot drives.
type Service interface {
	Gate(ctx context.Context, userID int64) (service.GateResult, error)
	Zones(ctx context.Context) ([]dns.Zone, error)
	Claim(ctx context.Context, userID int64, zoneID, domain, rawLabel string) (string, error)
	Claims(ctx context.Context, userID int64) ([]models.SubdomainClaim, error)
	Release(ctx context.Context, userID int64, subdomain, domain string) (string, error)
	Approve(ctx context.Context, userID int64) error
}

// sender is the slice of the Telegram client the handlers use. Satisfied by
// *tgbotapi.BotAPI; tests substitute a recorder.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// intent is one gated incoming interaction.
type intent struct {
	userID int64
	chatID int64
	log    *slog.Logger
}

type commandHandler func(ctx context.Context, in *intent, msg *tgbotapi.Message)

// callbackRoute maps a callback-data prefix to its handler, which receives
// the payload with the prefix stripped.
type callbackRoute struct {
	prefix string
	handle func(ctx context.Context, in *intent, payload string)
}

// Bot routes Telegram updates through the access gate into the workflows.
type Bot struct {
	tg       *tgbotapi.BotAPI
	client   sender
	svc      Service
	sessions *SessionStore
	admins   []int64
	log      *slog.Logger

	commands  map[string]commandHandler
	callbacks []callbackRoute
}

func New(api *tgbotapi.BotAPI, svc Service, sessions *SessionStore, admins []int64, log *slog.Logger) *Bot {
	b := newBot(api, svc, sessions, admins, log)
	b.tg = api
	return b
}

func newBot(client sender, svc Service, sessions *SessionStore, admins []int64, log *slog.Logger) *Bot {
	b := &Bot{
		client:   client,
		svc:      svc,
		sessions: sessions,
		admins:   admins,
		log:      log,
	}
	b.commands = map[string]commandHandler{
		"start":   b.handleStart,
		"new":     b.handleNew,
		"list":    b.handleList,
		"delete":  b.handleDelete,
		"approve": b.handleApprove,
	}
	b.callbacks = []callbackRoute{
		{prefix: "zone_", handle: b.handleZoneSelected},
		{prefix: "drop_", handle: b.handleDropSelected},
	}
	return b
}

// Run polls for updates until the context is cancelled. Each update is
// handled in its own goroutine so one conversation's remote calls never
// stall another's.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.tg.GetUpdatesChan(cfg)

	b.log.Info("bot started", "username", b.tg.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.tg.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	in, ok := b.intentFrom(update)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handlerTimeout)
	defer cancel()

	verdict, err := b.svc.Gate(ctx, in.userID)
	if err != nil {
		// Fail closed: never forward an intent the gate could not decide.
		in.log.Error("access gate failed", "error", err)
		b.reply(in, msgTryAgain)
		return
	}

	switch verdict {
	case service.GatePendingNew:
		b.notifyAdminNewUser(in)
		b.reply(in, msgPending)
		return
	case service.GateDenied:
		b.reply(in, msgNotApproved)
		return
	}

	switch {
	case update.Message != nil && update.Message.IsCommand():
		if handler, ok := b.commands[update.Message.Command()]; ok {
			handler(ctx, in, update.Message)
		}
	case update.CallbackQuery != nil:
		b.answerCallback(in, update.CallbackQuery.ID)
		data := update.CallbackQuery.Data
		for _, route := range b.callbacks {
			if strings.HasPrefix(data, route.prefix) {
				route.handle(ctx, in, strings.TrimPrefix(data, route.prefix))
				return
			}
		}
		in.log.Debug("unrouted callback", "data", data)
	case update.Message != nil:
		b.handleText(ctx, in, update.Message.Text)
	}
}

func (b *Bot) intentFrom(update tgbotapi.Update) (*intent, bool) {
	var userID, chatID int64

	switch {
	case update.Message != nil && update.Message.From != nil:
		userID = update.Message.From.ID
		chatID = update.Message.Chat.ID
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		userID = update.CallbackQuery.From.ID
		chatID = userID
		if update.CallbackQuery.Message != nil {
			chatID = update.CallbackQuery.Message.Chat.ID
		}
	default:
		return nil, false
	}

	log := b.log.With("user_id", userID, "request_id", uuid.NewString())
	return &intent{userID: userID, chatID: chatID, log: log}, true
}

func (b *Bot) isAdmin(userID int64) bool {
	for _, id := range b.admins {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) notifyAdminNewUser(in *intent) {
	if len(b.admins) == 0 {
		return
	}
	b.sendTo(in.log, b.admins[0], fmt.Sprintf(msgAdminNewUser, in.userID))
}

func (b *Bot) reply(in *intent, text string) {
	b.sendTo(in.log, in.chatID, text)
}

func (b *Bot) sendTo(log *slog.Logger, chatID int64, text string) {
	if _, err := b.client.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) answerCallback(in *intent, callbackID string) {
	if _, err := b.client.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		in.log.Warn("failed to answer callback", "error", err)
	}
}
