// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SCHEDULE_TZ must resolve on hosts without a zoneinfo database.

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"goals_bot/internal/filter"
)

// Feed formats.
const (
	FormatJSON = "json"
	FormatRSS  = "rss"
)

// Config holds the application configuration. It is immutable after Load.
type Config struct {
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   string `envconfig:"TELEGRAM_CHAT_ID"`

	Subreddit          string `envconfig:"REDDIT_SUBREDDIT" default:"soccer"`
	FeedFormat         string `envconfig:"FEED_FORMAT" default:"json"`
	PageSize           int    `envconfig:"PAGE_SIZE" default:"10"`
	FeedUserAgent      string `envconfig:"FEED_USER_AGENT" default:"goals_bot/1.0"`
	RedditClientID     string `envconfig:"REDDIT_CLIENT_ID"`
	RedditClientSecret string `envconfig:"REDDIT_CLIENT_SECRET"`

	Teams       []string `envconfig:"TEAMS"`
	Blacklist   []string `envconfig:"BLACKLIST"`
	RosterFile  string   `envconfig:"ROSTER_FILE"`
	ClipHosts   []string `envconfig:"CLIP_HOSTS"`
	MediaFlair  string   `envconfig:"MEDIA_FLAIR" default:"media"`
	NoLinkHosts []string `envconfig:"NO_LINK_HOSTS" default:"twitter.com,x.com"`

	LedgerDSN       string        `envconfig:"LEDGER_DSN" default:"./data/bot.db"`
	LedgerRetention time.Duration `envconfig:"LEDGER_RETENTION" default:"72h"`

	Workers     int           `envconfig:"WORKERS" default:"2"`
	SettleDelay time.Duration `envconfig:"SETTLE_DELAY" default:"20s"`
	Cooldown    time.Duration `envconfig:"COOLDOWN" default:"20s"`

	ScheduleTZ      string        `envconfig:"SCHEDULE_TZ" default:"Europe/Rome"`
	PeakInterval    time.Duration `envconfig:"PEAK_INTERVAL" default:"60s"`
	DefaultInterval time.Duration `envconfig:"DEFAULT_INTERVAL" default:"120s"`
	QuietInterval   time.Duration `envconfig:"QUIET_INTERVAL" default:"300s"`

	ResolverCommand string        `envconfig:"RESOLVER_COMMAND"`
	ResolveTimeout  time.Duration `envconfig:"RESOLVE_TIMEOUT" default:"60s"`

	MarkRejected bool    `envconfig:"MARK_REJECTED" default:"true"`
	SendRate     float64 `envconfig:"SEND_RATE" default:"20"`
	StatusAddr   string  `envconfig:"STATUS_ADDR"`
	LogLevel     string  `envconfig:"LOG_LEVEL" default:"info"`

	RawAllowedUsers string  `envconfig:"ALLOWED_USERS"`
	AllowedUsers    []int64 `ignored:"true"`

	Location *time.Location `ignored:"true"`
}

// Roster is the YAML team roster file.
type Roster struct {
	Teams     []string `yaml:"teams"`
	Blacklist []string `yaml:"blacklist"`
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) finish() error {
	if c.TelegramBotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	if c.TelegramChatID == "" {
		return errors.New("TELEGRAM_CHAT_ID is required")
	}

	c.Teams = cleanList(c.Teams)
	c.Blacklist = cleanList(c.Blacklist)
	c.ClipHosts = cleanList(c.ClipHosts)
	c.NoLinkHosts = cleanList(c.NoLinkHosts)

	if c.RosterFile != "" {
		roster, err := LoadRoster(c.RosterFile)
		if err != nil {
			return err
		}
		if len(c.Teams) == 0 {
			c.Teams = cleanList(roster.Teams)
		}
		if len(c.Blacklist) == 0 {
			c.Blacklist = cleanList(roster.Blacklist)
		}
	}

	users, err := parseUserIDs(c.RawAllowedUsers)
	if err != nil {
		return err
	}
	c.AllowedUsers = users

	loc, err := time.LoadLocation(c.ScheduleTZ)
	if err != nil {
		return fmt.Errorf("invalid SCHEDULE_TZ %q: %w", c.ScheduleTZ, err)
	}
	c.Location = loc

	return c.validate()
}

func (c *Config) validate() error {
	if err := ValidateChatID(c.TelegramChatID); err != nil {
		return err
	}

	switch c.FeedFormat {
	case FormatJSON, FormatRSS:
	default:
		return fmt.Errorf("invalid FEED_FORMAT %q, use: json, rss", c.FeedFormat)
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}
	if (c.RedditClientID == "") != (c.RedditClientSecret == "") {
		return errors.New("REDDIT_CLIENT_ID and REDDIT_CLIENT_SECRET must be set together")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be at least 1, got %d", c.Workers)
	}
	if c.SendRate <= 0 {
		return fmt.Errorf("SEND_RATE must be positive, got %v", c.SendRate)
	}
	if c.LedgerRetention <= 0 {
		return fmt.Errorf("LEDGER_RETENTION must be positive, got %s", c.LedgerRetention)
	}
	for name, d := range map[string]time.Duration{
		"PEAK_INTERVAL":    c.PeakInterval,
		"DEFAULT_INTERVAL": c.DefaultInterval,
		"QUIET_INTERVAL":   c.QuietInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}

	if err := filter.ValidatePatterns(c.Teams); err != nil {
		return fmt.Errorf("TEAMS: %w", err)
	}
	if err := filter.ValidatePatterns(c.Blacklist); err != nil {
		return fmt.Errorf("BLACKLIST: %w", err)
	}
	return nil
}

// HasRedditCredentials reports whether the OAuth feed credentials are set.
func (c *Config) HasRedditCredentials() bool {
	return c.RedditClientID != "" && c.RedditClientSecret != ""
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// LoadRoster reads a YAML roster file.
func LoadRoster(path string) (Roster, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return Roster{}, fmt.Errorf("read roster: %w", err)
	}

	var r Roster
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Roster{}, fmt.Errorf("unmarshal roster: %w", err)
	}
	return r, nil
}

// ValidateChatID accepts a numeric chat id or an @channel username.
func ValidateChatID(s string) error {
	if strings.HasPrefix(s, "@") {
		if len(s) < 2 || strings.ContainsAny(s, " \t") {
			return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q", s)
		}
		return nil
	}
	if _, err := strconv.ParseInt(s, 10, 64); err != nil {
		return fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: must be a number or @channel", s)
	}
	return nil
}

func parseUserIDs(raw string) ([]int64, error) {
	var ids []int64
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		uid, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
		}
		ids = append(ids, uid)
	}
	return ids, nil
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
