package resolver

import (
	"context"
	"fmt"
	"net/http"
)

// Verifier checks that a media URL exists before it is handed to the transport.
type Verifier struct {
	client    HTTPClient
	userAgent func() string
}

// NewVerifier creates a Verifier. The client is expected to follow redirects.
func NewVerifier(client HTTPClient, userAgent func() string) *Verifier {
	return &Verifier{client: client, userAgent: userAgent}
}

// Verify issues a HEAD request and returns the final URL after redirects and
// the reported content type. Any non-2xx response is an error.
func (v *Verifier) Verify(ctx context.Context, mediaURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, mediaURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", v.userAgent())

	resp, err := v.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("http head: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	final := mediaURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return final, resp.Header.Get("Content-Type"), nil
}
