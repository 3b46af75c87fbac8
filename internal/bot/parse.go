package bot

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultRecent = 5
	maxRecent     = 20
)

// ChatTarget is the chat clips are posted to: a numeric chat id or a public
// channel username.
type ChatTarget struct {
	ID       int64
	Username string
}

// ParseChatTarget parses "-1001234567890" or "@channel".
func ParseChatTarget(s string) (ChatTarget, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "@") {
		if len(s) < 2 || strings.ContainsAny(s, " \t") {
			return ChatTarget{}, fmt.Errorf("invalid channel username %q", s)
		}
		return ChatTarget{Username: s}, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ChatTarget{}, fmt.Errorf("invalid chat ID %q", s)
	}
	return ChatTarget{ID: id}, nil
}

func (t ChatTarget) String() string {
	if t.Username != "" {
		return t.Username
	}
	return strconv.FormatInt(t.ID, 10)
}

// apply addresses c to the target. Posts are sent silently.
func (t ChatTarget) apply(c *tgbotapi.BaseChat) {
	c.ChatID = t.ID
	c.ChannelUsername = t.Username
	c.DisableNotification = true
}

// ParseRecentArgs extracts the optional entry count of /recent.
func ParseRecentArgs(args string) (int, error) {
	s := strings.TrimSpace(args)
	if s == "" {
		return defaultRecent, nil
	}
	n, err := strconv.Atoi(strings.Fields(s)[0])
	if err != nil || n < 1 || n > maxRecent {
		return 0, fmt.Errorf("count must be between 1 and %d", maxRecent)
	}
	return n, nil
}
