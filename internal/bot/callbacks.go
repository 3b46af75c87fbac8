package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"goals_bot/internal/model"
)

const cmdStatus = "status"

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(callback); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	if cb.From == nil || !b.cfg.IsUserAllowed(cb.From.ID) {
		return
	}

	action, _, ok := strings.Cut(cb.Data, ":")
	if !ok {
		return
	}

	chatID := cb.Message.Chat.ID
	b.log.Info("callback",
		"action", action,
		"chat_id", chatID,
		"user_id", cb.From.ID,
		"username", cb.From.UserName,
	)

	switch action {
	case cmdStatus:
		text, err := b.statusText(ctx)
		if err != nil {
			b.log.Error("refresh status", "error", err)
			return
		}
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, cb.Message.MessageID, text, statusMarkup())
		if _, err := b.api.Send(edit); err != nil {
			b.log.Error("edit status", "chat_id", chatID, "error", err)
		}
	}
}

func (b *Bot) snapshot() model.Stats {
	if b.stats == nil {
		return model.Stats{}
	}
	return b.stats.Snapshot()
}
