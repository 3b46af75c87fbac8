package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, fmt.Sprintf(`Goals bot is running.

Goal clips of followed teams are posted to %s.

Use /help for the command reference.`, b.target))
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Commands:
/status — ledger and poll loop statistics
/recent [n] — last processed items (1-20, default 5)
/help — this message`)
}

func (b *Bot) statusText(ctx context.Context) (string, error) {
	counts, err := b.ledger.Counts(ctx)
	if err != nil {
		return "", fmt.Errorf("count ledger entries: %w", err)
	}
	return FormatStatus(counts, b.snapshot(), b.now()), nil
}

func (b *Bot) handleStatus(ctx context.Context, chatID int64) {
	text, err := b.statusText(ctx)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = statusMarkup()
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send status", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleRecent(ctx context.Context, chatID int64, args string) {
	n, err := ParseRecentArgs(args)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Usage: /recent [n], %v", err))
		return
	}

	entries, err := b.ledger.ListRecent(ctx, n)
	if err != nil {
		b.reply(chatID, fmt.Sprintf("Error: %v", err))
		return
	}
	b.reply(chatID, FormatRecent(entries))
}

func statusMarkup() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Refresh", cmdStatus+":refresh"),
		),
	)
}
