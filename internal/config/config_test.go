package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var envKeys = []string{
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"REDDIT_SUBREDDIT", "FEED_FORMAT", "PAGE_SIZE", "FEED_USER_AGENT",
	"REDDIT_CLIENT_ID", "REDDIT_CLIENT_SECRET",
	"TEAMS", "BLACKLIST", "ROSTER_FILE", "CLIP_HOSTS", "MEDIA_FLAIR", "NO_LINK_HOSTS",
	"LEDGER_DSN", "LEDGER_RETENTION",
	"WORKERS", "SETTLE_DELAY", "COOLDOWN",
	"SCHEDULE_TZ", "PEAK_INTERVAL", "DEFAULT_INTERVAL", "QUIET_INTERVAL",
	"RESOLVER_COMMAND", "RESOLVE_TIMEOUT",
	"MARK_REJECTED", "SEND_RATE", "STATUS_ADDR", "ALLOWED_USERS", "LOG_LEVEL",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func defaults() *Config {
	return &Config{
		TelegramBotToken: "tok",
		TelegramChatID:   "-1001234567890",
		Subreddit:        "soccer",
		FeedFormat:       FormatJSON,
		PageSize:         10,
		FeedUserAgent:    "goals_bot/1.0",
		MediaFlair:       "media",
		NoLinkHosts:      []string{"twitter.com", "x.com"},
		LedgerDSN:        "./data/bot.db",
		LedgerRetention:  72 * time.Hour,
		Workers:          2,
		SettleDelay:      20 * time.Second,
		Cooldown:         20 * time.Second,
		ScheduleTZ:       "Europe/Rome",
		PeakInterval:     60 * time.Second,
		DefaultInterval:  120 * time.Second,
		QuietInterval:    300 * time.Second,
		ResolveTimeout:   60 * time.Second,
		MarkRejected:     true,
		SendRate:         20,
		LogLevel:         "info",
	}
}

var ignoreLocation = cmpopts.IgnoreFields(Config{}, "Location")

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    func() *Config
		wantErr bool
	}{
		{
			name:    "missing token",
			env:     map[string]string{"TELEGRAM_CHAT_ID": "-100"},
			wantErr: true,
		},
		{
			name:    "missing chat id",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok"},
			wantErr: true,
		},
		{
			name: "required only, defaults applied",
			env:  map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "-1001234567890"},
			want: defaults,
		},
		{
			name: "lists trimmed",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN": "tok",
				"TELEGRAM_CHAT_ID":   "-1001234567890",
				"TEAMS":              " Ajax , PSV ,, Feyenoord",
				"BLACKLIST":          `Jong, U\d+`,
				"CLIP_HOSTS":         "streamable,streamin",
				"NO_LINK_HOSTS":      "bsky.app",
				"ALLOWED_USERS":      " 10 , 20 , ",
			},
			want: func() *Config {
				c := defaults()
				c.Teams = []string{"Ajax", "PSV", "Feyenoord"}
				c.Blacklist = []string{"Jong", `U\d+`}
				c.ClipHosts = []string{"streamable", "streamin"}
				c.NoLinkHosts = []string{"bsky.app"}
				c.RawAllowedUsers = " 10 , 20 , "
				c.AllowedUsers = []int64{10, 20}
				return c
			},
		},
		{
			name: "all values set",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":   "tok",
				"TELEGRAM_CHAT_ID":     "@seriea_goals",
				"REDDIT_SUBREDDIT":     "calcio",
				"FEED_FORMAT":          "rss",
				"PAGE_SIZE":            "25",
				"FEED_USER_AGENT":      "linux:goals_bot:v2 (by /u/someone)",
				"REDDIT_CLIENT_ID":     "cid",
				"REDDIT_CLIENT_SECRET": "secret",
				"MEDIA_FLAIR":          "video",
				"LEDGER_DSN":           "redis://localhost:6379/1",
				"LEDGER_RETENTION":     "24h",
				"WORKERS":              "4",
				"SETTLE_DELAY":         "5s",
				"COOLDOWN":             "10s",
				"SCHEDULE_TZ":          "UTC",
				"PEAK_INTERVAL":        "30s",
				"DEFAULT_INTERVAL":     "1m",
				"QUIET_INTERVAL":       "10m",
				"RESOLVER_COMMAND":     "yt-dlp --get-url",
				"RESOLVE_TIMEOUT":      "90s",
				"MARK_REJECTED":        "false",
				"SEND_RATE":            "1.5",
				"STATUS_ADDR":          ":8080",
				"ALLOWED_USERS":        "111,222",
				"LOG_LEVEL":            "debug",
			},
			want: func() *Config {
				return &Config{
					TelegramBotToken:   "tok",
					TelegramChatID:     "@seriea_goals",
					Subreddit:          "calcio",
					FeedFormat:         FormatRSS,
					PageSize:           25,
					FeedUserAgent:      "linux:goals_bot:v2 (by /u/someone)",
					RedditClientID:     "cid",
					RedditClientSecret: "secret",
					MediaFlair:         "video",
					NoLinkHosts:        []string{"twitter.com", "x.com"},
					LedgerDSN:          "redis://localhost:6379/1",
					LedgerRetention:    24 * time.Hour,
					Workers:            4,
					SettleDelay:        5 * time.Second,
					Cooldown:           10 * time.Second,
					ScheduleTZ:         "UTC",
					PeakInterval:       30 * time.Second,
					DefaultInterval:    time.Minute,
					QuietInterval:      10 * time.Minute,
					ResolverCommand:    "yt-dlp --get-url",
					ResolveTimeout:     90 * time.Second,
					MarkRejected:       false,
					SendRate:           1.5,
					StatusAddr:         ":8080",
					LogLevel:           "debug",
					RawAllowedUsers:    "111,222",
					AllowedUsers:       []int64{111, 222},
				}
			},
		},
		{
			name:    "invalid chat id",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "channel"},
			wantErr: true,
		},
		{
			name:    "unknown feed format",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "FEED_FORMAT": "xml"},
			wantErr: true,
		},
		{
			name:    "page size out of range",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "PAGE_SIZE": "101"},
			wantErr: true,
		},
		{
			name:    "only one credential",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "REDDIT_CLIENT_ID": "cid"},
			wantErr: true,
		},
		{
			name:    "invalid team pattern",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "TEAMS": "Juve(ntus"},
			wantErr: true,
		},
		{
			name:    "unknown timezone",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "SCHEDULE_TZ": "Mars/Olympus"},
			wantErr: true,
		},
		{
			name:    "invalid user id",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "ALLOWED_USERS": "123,abc"},
			wantErr: true,
		},
		{
			name:    "malformed duration",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "COOLDOWN": "soon"},
			wantErr: true,
		},
		{
			name:    "missing roster file",
			env:     map[string]string{"TELEGRAM_BOT_TOKEN": "tok", "TELEGRAM_CHAT_ID": "1", "ROSTER_FILE": "/nonexistent/roster.yaml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			got, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want(), got, ignoreLocation); diff != "" {
				t.Errorf("Load() mismatch (-want +got):\n%s", diff)
			}
			if got.Location == nil || got.Location.String() != got.ScheduleTZ {
				t.Errorf("location %v does not match SCHEDULE_TZ %q", got.Location, got.ScheduleTZ)
			}
		})
	}
}

func TestLoadRosterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	data := "teams:\n  - Ajax\n  - PSV\nblacklist:\n  - Jong\n  - 'U\\d+'\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}

	t.Run("file lists used", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
		t.Setenv("TELEGRAM_CHAT_ID", "1")
		t.Setenv("ROSTER_FILE", path)

		got, err := Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if diff := cmp.Diff([]string{"Ajax", "PSV"}, got.Teams); diff != "" {
			t.Errorf("teams mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"Jong", `U\d+`}, got.Blacklist); diff != "" {
			t.Errorf("blacklist mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("env lists win", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
		t.Setenv("TELEGRAM_CHAT_ID", "1")
		t.Setenv("ROSTER_FILE", path)
		t.Setenv("TEAMS", "Twente")

		got, err := Load()
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if diff := cmp.Diff([]string{"Twente"}, got.Teams); diff != "" {
			t.Errorf("teams mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff([]string{"Jong", `U\d+`}, got.Blacklist); diff != "" {
			t.Errorf("blacklist mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(bad, []byte("teams: [unterminated"), 0o600); err != nil {
			t.Fatalf("write roster: %v", err)
		}
		if _, err := LoadRoster(bad); err == nil {
			t.Error("expected error for malformed yaml")
		}
	})
}

func TestValidateChatID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{id: "-1001234567890"},
		{id: "42"},
		{id: "@seriea_goals"},
		{id: "@", wantErr: true},
		{id: "@bad name", wantErr: true},
		{id: "seriea_goals", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			err := ValidateChatID(tt.id)
			if diff := cmp.Diff(tt.wantErr, err != nil); diff != "" {
				t.Errorf("ValidateChatID(%q) error mismatch (-want +got):\n%s (err=%v)", tt.id, diff, err)
			}
		})
	}
}

func TestIsUserAllowed(t *testing.T) {
	tests := []struct {
		name         string
		allowedUsers []int64
		userID       int64
		want         bool
	}{
		{
			name:         "empty list allows everyone",
			allowedUsers: nil,
			userID:       42,
			want:         true,
		},
		{
			name:         "user in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       20,
			want:         true,
		},
		{
			name:         "user not in list",
			allowedUsers: []int64{10, 20, 30},
			userID:       99,
			want:         false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{AllowedUsers: tt.allowedUsers}
			got := cfg.IsUserAllowed(tt.userID)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("IsUserAllowed() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
