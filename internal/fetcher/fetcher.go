// Package fetcher downloads the newest submissions of a subreddit.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"goals_bot/internal/model"
)

// Reddit endpoints.
const (
	PublicBaseURL = "https://www.reddit.com"
	OAuthBaseURL  = "https://oauth.reddit.com"
	TokenURL      = "https://www.reddit.com/api/v1/access_token"
)

const maxBodyBytes = 5 * 1024 * 1024

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Source returns the most recent items of a feed, newest first.
type Source interface {
	Fetch(ctx context.Context) ([]model.Item, error)
}

// Options configures a feed source.
type Options struct {
	Subreddit string
	Limit     int
	UserAgent string
	// BaseURL overrides the Reddit host, mostly for tests.
	BaseURL string
}

func (o Options) baseURL(def string) string {
	if o.BaseURL != "" {
		return strings.TrimRight(o.BaseURL, "/")
	}
	return def
}

// Credentials are the Reddit application credentials for the OAuth API.
type Credentials struct {
	ClientID     string
	ClientSecret string
	// TokenURL overrides the token endpoint.
	TokenURL string
}

// Empty reports whether no credentials are configured.
func (c Credentials) Empty() bool {
	return c.ClientID == "" && c.ClientSecret == ""
}

// NewHTTPClient returns the client used for feed requests. Every request,
// including token requests, carries userAgent. With credentials the client
// authenticates using the client-credentials grant.
func NewHTTPClient(ctx context.Context, creds Credentials, userAgent string, timeout time.Duration) *http.Client {
	base := &http.Client{
		Timeout:   timeout,
		Transport: &userAgentTransport{base: http.DefaultTransport, userAgent: userAgent},
	}
	if creds.Empty() {
		return base
	}

	tokenURL := creds.TokenURL
	if tokenURL == "" {
		tokenURL = TokenURL
	}
	cfg := clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	client := cfg.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
	client.Timeout = timeout
	return client
}

type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.userAgent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	return t.base.RoundTrip(req)
}

func get(ctx context.Context, client HTTPClient, url, userAgent, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
