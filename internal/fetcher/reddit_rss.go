package fetcher

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"goals_bot/internal/model"
)

// RedditRSS reads the Atom feed of a subreddit's newest submissions. It needs
// no credentials but carries no flair, so only clip hosts qualify as video.
type RedditRSS struct {
	client HTTPClient
	opts   Options
	base   string
}

// NewRedditRSS creates an RSS listing source.
func NewRedditRSS(client HTTPClient, opts Options) *RedditRSS {
	return &RedditRSS{client: client, opts: opts, base: opts.baseURL(PublicBaseURL)}
}

// URL returns the feed URL.
func (r *RedditRSS) URL() string {
	return fmt.Sprintf("%s/r/%s/new/.rss?limit=%d", r.base, url.PathEscape(r.opts.Subreddit), r.opts.Limit)
}

// Fetch implements Source.
func (r *RedditRSS) Fetch(ctx context.Context) ([]model.Item, error) {
	body, err := get(ctx, r.client, r.URL(), r.opts.UserAgent, "application/atom+xml, application/rss+xml")
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]model.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		id := ItemID(it)
		if id == "" {
			continue
		}
		items = append(items, model.Item{
			ID:       id,
			URL:      SubmissionURL(it),
			Title:    strings.TrimSpace(it.Title),
			Category: r.category(it),
		})
	}
	return items, nil
}

// category returns the first entry category that is not the subreddit itself.
func (r *RedditRSS) category(it *gofeed.Item) string {
	for _, c := range it.Categories {
		c = strings.TrimSpace(c)
		if c == "" || strings.EqualFold(c, r.opts.Subreddit) || strings.EqualFold(c, "r/"+r.opts.Subreddit) {
			continue
		}
		return c
	}
	return ""
}

// ItemID returns the submission id of a feed entry, without the "t3_" prefix.
func ItemID(it *gofeed.Item) string {
	return strings.TrimPrefix(strings.TrimSpace(it.GUID), "t3_")
}

// SubmissionURL returns the URL the submission links to. Reddit puts it in a
// "[link]" anchor of the entry content; the comments page is the fallback.
func SubmissionURL(it *gofeed.Item) string {
	html := it.Content
	if html == "" {
		html = it.Description
	}
	if html != "" {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
			var link string
			doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
				if strings.TrimSpace(s.Text()) == "[link]" {
					link = strings.TrimSpace(s.AttrOr("href", ""))
					return false
				}
				return true
			})
			if link != "" {
				return link
			}
		}
	}
	return it.Link
}
