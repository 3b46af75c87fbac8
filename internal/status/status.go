// Package status exposes health and run statistics over HTTP.
package status

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"goals_bot/internal/model"
)

// Counter reports ledger entries per state.
type Counter interface {
	Counts(ctx context.Context) (map[model.LedgerState]int, error)
}

// StatsSource provides run statistics of the poll loop.
type StatsSource interface {
	Snapshot() model.Stats
}

// Response is the body of GET /status.
type Response struct {
	Ledger         map[model.LedgerState]int `json:"ledger"`
	Cycles         int                       `json:"cycles"`
	LastCycleStart *time.Time                `json:"last_cycle_start,omitempty"`
	LastCycleEnd   *time.Time                `json:"last_cycle_end,omitempty"`
	LastFetched    int                       `json:"last_fetched"`
	LastAccepted   int                       `json:"last_accepted"`
	LastFetchError string                    `json:"last_fetch_error,omitempty"`
	Recovered      int                       `json:"recovered"`
	Outcomes       map[model.Outcome]int     `json:"outcomes"`
}

// NewRouter constructs a Gin engine with the health and status routes.
func NewRouter(ledger Counter, stats StatsSource, log *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/status", func(c *gin.Context) {
		counts, err := ledger.Counts(c.Request.Context())
		if err != nil {
			log.Error("status counts", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, newResponse(counts, stats.Snapshot()))
	})

	return r
}

func newResponse(counts map[model.LedgerState]int, st model.Stats) Response {
	outcomes := st.Outcomes
	if outcomes == nil {
		outcomes = map[model.Outcome]int{}
	}
	return Response{
		Ledger:         counts,
		Cycles:         st.Cycles,
		LastCycleStart: timePtr(st.LastCycleStart),
		LastCycleEnd:   timePtr(st.LastCycleEnd),
		LastFetched:    st.LastFetched,
		LastAccepted:   st.LastAccepted,
		LastFetchError: st.LastFetchError,
		Recovered:      st.Recovered,
		Outcomes:       outcomes,
	}
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// Serve runs handler on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("status server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}
