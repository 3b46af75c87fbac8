// Package bot posts clips to the Telegram chat and serves operator commands.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"goals_bot/internal/config"
	"goals_bot/internal/model"
	"goals_bot/internal/storage"
)

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// StatsSource provides run statistics of the poll loop.
type StatsSource interface {
	Snapshot() model.Stats
}

// Bot is the Telegram transport of the delivery pipeline. It also answers
// operator commands about the ledger and the poll loop.
type Bot struct {
	api     telegramAPI
	target  ChatTarget
	ledger  storage.Ledger
	stats   StatsSource
	cfg     *config.Config
	limiter *rate.Limiter
	log     *slog.Logger
	now     func() time.Time
}

// New creates a Bot posting to the chat configured in cfg.
func New(cfg *config.Config, ledger storage.Ledger, log *slog.Logger) (*Bot, error) {
	target, err := ParseChatTarget(cfg.TelegramChatID)
	if err != nil {
		return nil, err
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	return &Bot{
		api:     api,
		target:  target,
		ledger:  ledger,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.SendRate), 1),
		log:     log,
		now:     time.Now,
	}, nil
}

// SetStats attaches the source reported by /status.
func (b *Bot) SetStats(s StatsSource) {
	b.stats = s
}

// Run starts the bot's long-polling loop, blocking until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.CallbackQuery != nil {
				b.handleCallback(ctx, update.CallbackQuery)
				continue
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			if update.Message.From == nil || !b.cfg.IsUserAllowed(update.Message.From.ID) {
				b.reply(update.Message.Chat.ID, "Access denied.")
				continue
			}
			b.handleCommand(ctx, update.Message)
		}
	}
}

// SendPhoto posts an image by URL with a caption.
func (b *Bot) SendPhoto(ctx context.Context, photoURL, caption string) error {
	msg := tgbotapi.NewPhoto(0, tgbotapi.FileURL(photoURL))
	b.target.apply(&msg.BaseChat)
	msg.Caption = FormatCaption(caption)
	return b.send(ctx, msg, "send photo")
}

// SendVideo posts a video by URL with a caption.
func (b *Bot) SendVideo(ctx context.Context, videoURL, caption string) error {
	msg := tgbotapi.NewVideo(0, tgbotapi.FileURL(videoURL))
	b.target.apply(&msg.BaseChat)
	msg.Caption = FormatCaption(caption)
	msg.SupportsStreaming = true
	return b.send(ctx, msg, "send video")
}

// SendText posts a plain text message.
func (b *Bot) SendText(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(0, FormatText(text))
	b.target.apply(&msg.BaseChat)
	return b.send(ctx, msg, "send text")
}

func (b *Bot) send(ctx context.Context, c tgbotapi.Chattable, op string) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := b.api.Send(c); err != nil {
		return fmt.Errorf("%s to %s: %w", op, b.target, err)
	}
	return nil
}

// SendMessage sends a text message to the given chat.
func (b *Bot) SendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, FormatText(text))
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send message", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) reply(chatID int64, text string) {
	b.SendMessage(chatID, text)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cmd := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())
	chatID := msg.Chat.ID

	b.log.Debug("command", "cmd", cmd, "args", args, "chat_id", chatID)

	switch cmd {
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	case cmdStatus:
		b.handleStatus(ctx, chatID)
	case "recent":
		b.handleRecent(ctx, chatID, args)
	default:
		b.reply(chatID, "Unknown command. Use /help for a list of commands.")
	}
}
