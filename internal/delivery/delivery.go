// Package delivery forwards queued items to the chat, falling back from media
// to a plain link, and records the outcome in the ledger.
package delivery

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"goals_bot/internal/model"
	"goals_bot/internal/resolver"
)

// DefaultNoLinkHosts are sources whose pages are mostly text, so a bare link
// to them is not worth posting.
var DefaultNoLinkHosts = []string{"twitter.com", "x.com"}

// MediaSource finds the direct media behind a post URL.
type MediaSource interface {
	Direct(ctx context.Context, sourceURL string) (resolver.Media, error)
}

// Transport sends messages to the target chat.
type Transport interface {
	SendPhoto(ctx context.Context, photoURL, caption string) error
	SendVideo(ctx context.Context, videoURL, caption string) error
	SendText(ctx context.Context, text string) error
}

// Marker records the terminal outcome of an item.
type Marker interface {
	MarkProcessed(ctx context.Context, id string, outcome model.Outcome) error
}

// Pipeline delivers a single item through the media and link tiers.
type Pipeline struct {
	media       MediaSource
	transport   Transport
	ledger      Marker
	noLinkHosts []string
	log         *slog.Logger
}

// New creates a Pipeline. An empty noLinkHosts list uses DefaultNoLinkHosts.
func New(media MediaSource, transport Transport, ledger Marker, noLinkHosts []string, log *slog.Logger) *Pipeline {
	if len(noLinkHosts) == 0 {
		noLinkHosts = DefaultNoLinkHosts
	}
	hosts := make([]string, 0, len(noLinkHosts))
	for _, h := range noLinkHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &Pipeline{
		media:       media,
		transport:   transport,
		ledger:      ledger,
		noLinkHosts: hosts,
		log:         log,
	}
}

// Deliver attempts every applicable tier for item and marks it processed,
// whatever the result. It never returns an error; the outcome says how far
// delivery got.
func (p *Pipeline) Deliver(ctx context.Context, item model.Item) model.Outcome {
	outcome := p.deliver(ctx, item)

	if err := p.ledger.MarkProcessed(ctx, item.ID, outcome); err != nil {
		p.log.Error("mark processed", "id", item.ID, "outcome", outcome, "error", err)
	}
	p.log.Info("delivered", "id", item.ID, "url", item.URL, "outcome", outcome)
	return outcome
}

func (p *Pipeline) deliver(ctx context.Context, item model.Item) model.Outcome {
	media, err := p.media.Direct(ctx, item.URL)
	if err != nil {
		p.log.Warn("resolve media", "id", item.ID, "url", item.URL, "error", err)
	} else if err := p.sendMedia(ctx, media, item.Title); err != nil {
		p.log.Warn("send media", "id", item.ID, "media_url", media.URL, "kind", media.Kind, "error", err)
	} else {
		return model.OutcomeMedia
	}

	if IsNoLinkHost(item.URL, p.noLinkHosts) {
		p.log.Debug("link suppressed", "id", item.ID, "url", item.URL)
		return model.OutcomeSuppressed
	}

	if err := p.transport.SendText(ctx, FallbackText(item)); err != nil {
		p.log.Error("send link", "id", item.ID, "url", item.URL, "error", err)
		return model.OutcomeFailed
	}
	return model.OutcomeLink
}

func (p *Pipeline) sendMedia(ctx context.Context, m resolver.Media, caption string) error {
	if m.Kind == model.MediaImage {
		return p.transport.SendPhoto(ctx, m.URL, caption)
	}
	return p.transport.SendVideo(ctx, m.URL, caption)
}

// FallbackText is the plain message sent when media delivery is impossible.
func FallbackText(item model.Item) string {
	return item.Title + "\n\n" + item.URL
}

// IsNoLinkHost reports whether rawURL is served by one of hosts or a
// subdomain of one.
func IsNoLinkHost(rawURL string, hosts []string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, h := range hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	raw := strings.TrimSpace(rawURL)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
