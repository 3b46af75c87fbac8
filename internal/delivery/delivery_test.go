package delivery

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"goals_bot/internal/model"
	"goals_bot/internal/resolver"
)

type mockMedia struct {
	media resolver.Media
	err   error
}

func (m *mockMedia) Direct(_ context.Context, _ string) (resolver.Media, error) {
	return m.media, m.err
}

type sent struct {
	Kind    string
	URL     string
	Caption string
	Text    string
}

type mockTransport struct {
	mu       sync.Mutex
	sent     []sent
	mediaErr error
	textErr  error
}

func (m *mockTransport) SendPhoto(_ context.Context, photoURL, caption string) error {
	return m.record(sent{Kind: "photo", URL: photoURL, Caption: caption}, m.mediaErr)
}

func (m *mockTransport) SendVideo(_ context.Context, videoURL, caption string) error {
	return m.record(sent{Kind: "video", URL: videoURL, Caption: caption}, m.mediaErr)
}

func (m *mockTransport) SendText(_ context.Context, text string) error {
	return m.record(sent{Kind: "text", Text: text}, m.textErr)
}

func (m *mockTransport) record(s sent, err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, s)
	return err
}

type mark struct {
	ID      string
	Outcome model.Outcome
}

type mockMarker struct {
	marks []mark
	err   error
}

func (m *mockMarker) MarkProcessed(_ context.Context, id string, outcome model.Outcome) error {
	m.marks = append(m.marks, mark{ID: id, Outcome: outcome})
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDeliver(t *testing.T) {
	errSend := errors.New("bad request: wrong file identifier")
	errResolve := errors.New("unsupported host")

	tests := []struct {
		name        string
		item        model.Item
		media       *mockMedia
		transport   *mockTransport
		markerErr   error
		wantOutcome model.Outcome
		wantSent    []sent
	}{
		{
			name:        "video delivered",
			item:        model.Item{ID: "v1", URL: "https://streamja.com/abc", Title: "Milan [1]-0 Lazio"},
			media:       &mockMedia{media: resolver.Media{URL: "https://cdn.streamja.com/abc.mp4", Kind: model.MediaVideo}},
			transport:   &mockTransport{},
			wantOutcome: model.OutcomeMedia,
			wantSent:    []sent{{Kind: "video", URL: "https://cdn.streamja.com/abc.mp4", Caption: "Milan [1]-0 Lazio"}},
		},
		{
			name:        "image delivered as photo",
			item:        model.Item{ID: "i1", URL: "https://imgur.com/x", Title: "Roma lineup"},
			media:       &mockMedia{media: resolver.Media{URL: "https://i.imgur.com/x.jpg", Kind: model.MediaImage}},
			transport:   &mockTransport{},
			wantOutcome: model.OutcomeMedia,
			wantSent:    []sent{{Kind: "photo", URL: "https://i.imgur.com/x.jpg", Caption: "Roma lineup"}},
		},
		{
			name:        "resolution failure falls back to link",
			item:        model.Item{ID: "l1", URL: "https://streamable.com/q", Title: "Napoli [2]-1 Inter"},
			media:       &mockMedia{err: errResolve},
			transport:   &mockTransport{},
			wantOutcome: model.OutcomeLink,
			wantSent:    []sent{{Kind: "text", Text: "Napoli [2]-1 Inter\n\nhttps://streamable.com/q"}},
		},
		{
			name:        "media rejected falls back to link",
			item:        model.Item{ID: "l2", URL: "https://dubz.co/v/1", Title: "Torino [1]-1 Genoa"},
			media:       &mockMedia{media: resolver.Media{URL: "https://cdn.dubz.co/1.mp4", Kind: model.MediaVideo}},
			transport:   &mockTransport{mediaErr: errSend},
			wantOutcome: model.OutcomeLink,
			wantSent: []sent{
				{Kind: "video", URL: "https://cdn.dubz.co/1.mp4", Caption: "Torino [1]-1 Genoa"},
				{Kind: "text", Text: "Torino [1]-1 Genoa\n\nhttps://dubz.co/v/1"},
			},
		},
		{
			name:        "no-link host suppresses fallback",
			item:        model.Item{ID: "s1", URL: "https://twitter.com/club/status/1", Title: "Juventus [1]-0 Como"},
			media:       &mockMedia{err: errResolve},
			transport:   &mockTransport{},
			wantOutcome: model.OutcomeSuppressed,
		},
		{
			name:        "no-link subdomain suppresses fallback",
			item:        model.Item{ID: "s2", URL: "https://mobile.x.com/club/status/2", Title: "Lecce [1]-0 Parma"},
			media:       &mockMedia{media: resolver.Media{URL: "https://video.twimg.com/2.mp4", Kind: model.MediaVideo}},
			transport:   &mockTransport{mediaErr: errSend},
			wantOutcome: model.OutcomeSuppressed,
			wantSent:    []sent{{Kind: "video", URL: "https://video.twimg.com/2.mp4", Caption: "Lecce [1]-0 Parma"}},
		},
		{
			name:        "every tier fails",
			item:        model.Item{ID: "f1", URL: "https://streamff.com/v/3", Title: "Monza [0]-3 Milan"},
			media:       &mockMedia{err: errResolve},
			transport:   &mockTransport{textErr: errSend},
			wantOutcome: model.OutcomeFailed,
			wantSent:    []sent{{Kind: "text", Text: "Monza [0]-3 Milan\n\nhttps://streamff.com/v/3"}},
		},
		{
			name:        "ledger error does not change outcome",
			item:        model.Item{ID: "e1", URL: "https://streamja.com/e", Title: "Lazio [2]-0 Roma"},
			media:       &mockMedia{media: resolver.Media{URL: "https://cdn.streamja.com/e.mp4", Kind: model.MediaVideo}},
			transport:   &mockTransport{},
			markerErr:   errors.New("database is locked"),
			wantOutcome: model.OutcomeMedia,
			wantSent:    []sent{{Kind: "video", URL: "https://cdn.streamja.com/e.mp4", Caption: "Lazio [2]-0 Roma"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			marker := &mockMarker{err: tt.markerErr}
			p := New(tt.media, tt.transport, marker, nil, discardLogger())

			got := p.Deliver(context.Background(), tt.item)
			if diff := cmp.Diff(tt.wantOutcome, got); diff != "" {
				t.Errorf("outcome mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.wantSent, tt.transport.sent); diff != "" {
				t.Errorf("sent mismatch (-want +got):\n%s", diff)
			}
			wantMarks := []mark{{ID: tt.item.ID, Outcome: tt.wantOutcome}}
			if diff := cmp.Diff(wantMarks, marker.marks); diff != "" {
				t.Errorf("ledger marks mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestIsNoLinkHost(t *testing.T) {
	hosts := []string{"twitter.com", "x.com"}
	tests := []struct {
		url  string
		want bool
	}{
		{url: "https://twitter.com/a/status/1", want: true},
		{url: "https://www.twitter.com/a", want: true},
		{url: "https://X.com/a/status/2", want: true},
		{url: "twitter.com/a/status/3", want: true},
		{url: "https://fxtwitter.com/a", want: false},
		{url: "https://box.com/file", want: false},
		{url: "https://streamja.com/twitter.com", want: false},
		{url: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, IsNoLinkHost(tt.url, hosts)); diff != "" {
				t.Errorf("IsNoLinkHost(%q) mismatch (-want +got):\n%s", tt.url, diff)
			}
		})
	}
}

func TestNewNormalizesHosts(t *testing.T) {
	p := New(&mockMedia{}, &mockTransport{}, &mockMarker{}, []string{" Streamable.com ", ""}, discardLogger())
	if diff := cmp.Diff([]string{"streamable.com"}, p.noLinkHosts); diff != "" {
		t.Errorf("noLinkHosts mismatch (-want +got):\n%s", diff)
	}
}
