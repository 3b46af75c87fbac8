package resolver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxPageBytes = int64(2 * 1024 * 1024)

type pageSelector struct {
	query string
	attr  string
}

// Ordered from most to least specific.
var pageSelectors = []pageSelector{
	{`meta[property="og:video:secure_url"]`, "content"},
	{`meta[property="og:video:url"]`, "content"},
	{`meta[property="og:video"]`, "content"},
	{`meta[name="twitter:player:stream"]`, "content"},
	{`meta[property="twitter:player:stream"]`, "content"},
	{`video source[src]`, "src"},
	{`video[src]`, "src"},
	{`[data-hd-file]`, "data-hd-file"},
}

// PageResolver scrapes clip host pages for the embedded media URL.
type PageResolver struct {
	client    HTTPClient
	userAgent func() string
}

// NewPageResolver creates a PageResolver. userAgent is called once per request.
func NewPageResolver(client HTTPClient, userAgent func() string) *PageResolver {
	return &PageResolver{client: client, userAgent: userAgent}
}

// Resolve implements Resolver.
func (p *PageResolver) Resolve(ctx context.Context, sourceURL string) (string, error) {
	if IsDirect(sourceURL) {
		return sourceURL, nil
	}

	base, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	if u := extractMediaURL(doc); u != "" {
		ref, err := url.Parse(u)
		if err != nil {
			return "", fmt.Errorf("parse media url %q: %w", u, err)
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", ErrNoMedia
}

func extractMediaURL(doc *goquery.Document) string {
	for _, sel := range pageSelectors {
		var found string
		doc.Find(sel.query).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if v := strings.TrimSpace(s.AttrOr(sel.attr, "")); v != "" {
				found = v
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}
