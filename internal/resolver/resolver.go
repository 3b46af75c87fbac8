// Package resolver turns a post URL into a direct, verified media URL.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"goals_bot/internal/model"
)

// ErrNoMedia is returned when no resolver produced a media URL.
var ErrNoMedia = errors.New("no media url")

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Resolver converts a source URL into a candidate direct media URL.
type Resolver interface {
	Resolve(ctx context.Context, sourceURL string) (string, error)
}

// Chain tries each resolver in order and returns the first success.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, sourceURL string) (string, error) {
	if len(c) == 0 {
		return "", ErrNoMedia
	}
	var errs []error
	for _, r := range c {
		u, err := r.Resolve(ctx, sourceURL)
		if err == nil && u != "" {
			return u, nil
		}
		if err == nil {
			err = ErrNoMedia
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}

// Media is a verified direct media URL.
type Media struct {
	URL  string
	Kind model.MediaKind
}

// Service resolves, verifies and classifies media within a time budget.
type Service struct {
	resolver Resolver
	verifier *Verifier
	timeout  time.Duration
}

// NewService creates a Service. A zero timeout means no per-item budget.
func NewService(r Resolver, v *Verifier, timeout time.Duration) *Service {
	return &Service{resolver: r, verifier: v, timeout: timeout}
}

// Direct returns the playable media behind sourceURL.
func (s *Service) Direct(ctx context.Context, sourceURL string) (Media, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	candidate, err := s.resolver.Resolve(ctx, sourceURL)
	if err != nil {
		return Media{}, fmt.Errorf("resolve %s: %w", sourceURL, err)
	}

	final, contentType, err := s.verifier.Verify(ctx, candidate)
	if err != nil {
		return Media{}, fmt.Errorf("verify %s: %w", candidate, err)
	}

	return Media{URL: final, Kind: Classify(final, contentType)}, nil
}
