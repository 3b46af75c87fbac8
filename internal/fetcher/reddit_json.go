package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"goals_bot/internal/model"
)

// RedditJSON reads the JSON listing of a subreddit's newest submissions.
type RedditJSON struct {
	client HTTPClient
	opts   Options
	base   string
}

// NewRedditJSON creates a JSON listing source. Set oauth when client sends
// authenticated requests, which Reddit serves from a separate host.
func NewRedditJSON(client HTTPClient, opts Options, oauth bool) *RedditJSON {
	def := PublicBaseURL
	if oauth {
		def = OAuthBaseURL
	}
	return &RedditJSON{client: client, opts: opts, base: opts.baseURL(def)}
}

type listing struct {
	Data *struct {
		Children []struct {
			Kind string `json:"kind"`
			Data post   `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	ID                string `json:"id"`
	Title             string `json:"title"`
	URL               string `json:"url"`
	LinkFlairCSSClass string `json:"link_flair_css_class"`
	LinkFlairText     string `json:"link_flair_text"`
}

// URL returns the listing URL.
func (r *RedditJSON) URL() string {
	return fmt.Sprintf("%s/r/%s/new.json?limit=%d&raw_json=1", r.base, url.PathEscape(r.opts.Subreddit), r.opts.Limit)
}

// Fetch implements Source.
func (r *RedditJSON) Fetch(ctx context.Context) ([]model.Item, error) {
	body, err := get(ctx, r.client, r.URL(), r.opts.UserAgent, "application/json")
	if err != nil {
		return nil, err
	}
	return ParseListing(body)
}

// ParseListing extracts items from a Reddit JSON listing.
func ParseListing(body []byte) ([]model.Item, error) {
	var l listing
	if err := json.Unmarshal(body, &l); err != nil {
		return nil, fmt.Errorf("decode listing: %w", err)
	}
	if l.Data == nil {
		return nil, errors.New("decode listing: missing data")
	}

	items := make([]model.Item, 0, len(l.Data.Children))
	for _, c := range l.Data.Children {
		if c.Kind != "" && c.Kind != "t3" {
			continue
		}
		p := c.Data
		if p.ID == "" {
			continue
		}
		category := p.LinkFlairCSSClass
		if category == "" {
			category = p.LinkFlairText
		}
		items = append(items, model.Item{
			ID:       p.ID,
			URL:      p.URL,
			Title:    p.Title,
			Category: category,
		})
	}
	return items, nil
}
