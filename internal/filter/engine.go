// Package filter decides which feed items are team video clips.
package filter

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"goals_bot/internal/model"
)

// Settings configures an Engine. Empty lists fall back to the built-in defaults.
type Settings struct {
	Teams      []string
	Blacklist  []string
	ClipHosts  []string
	MediaFlair string
}

// Engine matches items against the compiled team and blacklist patterns.
// It is immutable after New and safe for concurrent use.
type Engine struct {
	teams      *regexp.Regexp
	blacklist  *regexp.Regexp
	clipHosts  []string
	mediaFlair string
}

// New compiles the settings into an Engine.
func New(s Settings) (*Engine, error) {
	teams, err := compileAlternation(orDefault(s.Teams, DefaultTeams))
	if err != nil {
		return nil, fmt.Errorf("compile teams: %w", err)
	}
	blacklist, err := compileAlternation(orDefault(s.Blacklist, DefaultBlacklist))
	if err != nil {
		return nil, fmt.Errorf("compile blacklist: %w", err)
	}

	flair := s.MediaFlair
	if flair == "" {
		flair = DefaultMediaFlair
	}

	return &Engine{
		teams:      teams,
		blacklist:  blacklist,
		clipHosts:  orDefault(s.ClipHosts, DefaultClipHosts),
		mediaFlair: flair,
	}, nil
}

// Accepts reports whether the item is a video about a followed team.
func (e *Engine) Accepts(item model.Item) bool {
	return e.IsVideo(item) && e.MatchesWantedTeams(item.Title)
}

// IsVideo reports whether the item carries the media flair or links to a
// known clip host. Hosts are matched as plain substrings of the URL so that
// redirectors and mirrors still qualify.
func (e *Engine) IsVideo(item model.Item) bool {
	if item.Category != "" && strings.EqualFold(item.Category, e.mediaFlair) {
		return true
	}
	for _, h := range e.clipHosts {
		if strings.Contains(item.URL, h) {
			return true
		}
	}
	return false
}

// MatchesWantedTeams reports whether the title names a followed team and
// contains no blacklisted term. The blacklist always wins.
func (e *Engine) MatchesWantedTeams(title string) bool {
	wanted := e.teams.MatchString(title)
	blocked := e.blacklist.MatchString(title)
	return wanted && !blocked
}

// ValidatePatterns checks that every entry is a valid regular expression fragment.
func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}
	return nil
}

func compileAlternation(patterns []string) (*regexp.Regexp, error) {
	if err := ValidatePatterns(patterns); err != nil {
		return nil, err
	}
	return regexp.Compile(`\b(?:` + strings.Join(patterns, "|") + `)\b`)
}

func orDefault(values, def []string) []string {
	if len(values) == 0 {
		return slices.Clone(def)
	}
	return slices.Clone(values)
}
