// Package scheduler runs the poll loop: fetch the feed, queue accepted items,
// drain the queue with a few short-lived workers, evict old ledger entries and
// sleep until the next cycle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"goals_bot/internal/fetcher"
	"goals_bot/internal/model"
	"goals_bot/internal/queue"
	"goals_bot/internal/storage"
)

// Filter decides which items are worth delivering.
type Filter interface {
	Accepts(item model.Item) bool
}

// Deliverer delivers one item and records its outcome in the ledger.
type Deliverer interface {
	Deliver(ctx context.Context, item model.Item) model.Outcome
}

// Intervaler returns the wait before the next fetch.
type Intervaler interface {
	Interval(t time.Time) time.Duration
}

// Options tunes the loop.
type Options struct {
	Workers      int
	SettleDelay  time.Duration
	Cooldown     time.Duration
	Retention    time.Duration
	MarkRejected bool
	Schedule     Intervaler
	// DeliveryTimeout bounds a delivery that is already running when the
	// loop is cancelled.
	DeliveryTimeout time.Duration
	// Backoff is the wait after a failed cycle.
	Backoff time.Duration
}

const (
	defaultDeliveryTimeout = 2 * time.Minute
	defaultBackoff         = 30 * time.Second
)

// Scheduler periodically fetches the feed and delivers new clips.
type Scheduler struct {
	source  fetcher.Source
	filter  Filter
	ledger  storage.Ledger
	queue   *queue.Queue
	deliver Deliverer
	opts    Options
	log     *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	stats model.Stats
}

// New creates a Scheduler.
func New(source fetcher.Source, f Filter, ledger storage.Ledger, q *queue.Queue, d Deliverer, opts Options, log *slog.Logger) *Scheduler {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.DeliveryTimeout <= 0 {
		opts.DeliveryTimeout = defaultDeliveryTimeout
	}
	if opts.Backoff <= 0 {
		opts.Backoff = defaultBackoff
	}
	return &Scheduler{
		source:  source,
		filter:  f,
		ledger:  ledger,
		queue:   q,
		deliver: d,
		opts:    opts,
		log:     log,
		now:     time.Now,
		sleep:   sleepContext,
		stats:   model.Stats{Outcomes: make(map[model.Outcome]int)},
	}
}

// Run recovers queued items left by a previous process, then runs poll
// cycles until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.recoverQueued(ctx)

	for ctx.Err() == nil {
		if err := s.safeCycle(ctx); err != nil {
			s.log.Error("poll cycle failed", "error", err, "backoff", s.opts.Backoff)
			if s.sleep(ctx, s.opts.Backoff) != nil {
				return
			}
			continue
		}

		wait := s.opts.Cooldown
		if s.opts.Schedule != nil {
			wait += s.opts.Schedule.Interval(s.now())
		}
		s.log.Debug("sleeping", "duration", wait)
		if s.sleep(ctx, wait) != nil {
			return
		}
	}
}

// Snapshot returns a copy of the run statistics.
func (s *Scheduler) Snapshot() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	st.Outcomes = maps.Clone(s.stats.Outcomes)
	return st
}

func (s *Scheduler) recoverQueued(ctx context.Context) {
	entries, err := s.ledger.ListQueued(ctx)
	if err != nil {
		s.log.Error("list queued entries", "error", err)
		return
	}

	n := 0
	for _, e := range entries {
		if s.queue.Push(e.Item) {
			n++
		}
	}

	s.mu.Lock()
	s.stats.Recovered = n
	s.mu.Unlock()

	if n > 0 {
		s.log.Info("recovered queued items", "count", n)
	}
}

func (s *Scheduler) safeCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	s.cycle(ctx)
	return nil
}

func (s *Scheduler) cycle(ctx context.Context) {
	log := s.log.With("cycle", uuid.NewString()[:8])
	start := s.now()

	s.mu.Lock()
	s.stats.Cycles++
	s.stats.LastCycleStart = start
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.stats.LastCycleEnd = s.now()
		s.mu.Unlock()
	}()

	if err := s.fetch(ctx, log); err != nil {
		log.Error("fetch feed", "error", err)
		return
	}

	if s.queue.Len() > 0 {
		if err := s.sleep(ctx, s.opts.SettleDelay); err != nil {
			return
		}
		s.drain(ctx, log)
	}

	s.clean(ctx, log)
}

func (s *Scheduler) fetch(ctx context.Context, log *slog.Logger) error {
	items, err := s.source.Fetch(ctx)

	s.mu.Lock()
	if err != nil {
		s.stats.LastFetchError = err.Error()
	} else {
		s.stats.LastFetchError = ""
	}
	s.mu.Unlock()

	if err != nil {
		return err
	}

	accepted := 0
	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		processed, err := s.ledger.IsProcessed(ctx, item.ID)
		if err != nil {
			log.Error("check processed", "id", item.ID, "error", err)
			continue
		}
		if processed {
			continue
		}

		if !s.filter.Accepts(item) {
			s.reject(ctx, log, item)
			continue
		}

		if err := s.ledger.MarkQueued(ctx, item); err != nil {
			log.Error("mark queued", "id", item.ID, "error", err)
			continue
		}
		if s.queue.Push(item) {
			accepted++
			log.Info("queued", "id", item.ID, "title", item.Title, "url", item.URL)
		}
	}

	s.mu.Lock()
	s.stats.LastFetched = len(items)
	s.stats.LastAccepted = accepted
	s.mu.Unlock()

	log.Debug("fetched", "items", len(items), "accepted", accepted)
	return nil
}

func (s *Scheduler) reject(ctx context.Context, log *slog.Logger, item model.Item) {
	if !s.opts.MarkRejected {
		return
	}
	if err := s.ledger.MarkProcessed(ctx, item.ID, model.OutcomeRejected); err != nil {
		log.Error("mark rejected", "id", item.ID, "error", err)
		return
	}
	s.count(model.OutcomeRejected)
}

func (s *Scheduler) drain(ctx context.Context, log *slog.Logger) {
	var g errgroup.Group
	for i := range s.opts.Workers {
		wlog := log.With("worker", i)
		g.Go(func() error {
			s.work(ctx, wlog)
			return nil
		})
	}
	_ = g.Wait()
}

// work pops and delivers items until the queue is empty or ctx is cancelled.
func (s *Scheduler) work(ctx context.Context, log *slog.Logger) {
	for ctx.Err() == nil {
		item, ok := s.queue.Pop()
		if !ok {
			return
		}
		s.handle(ctx, log, item)
	}
}

func (s *Scheduler) handle(ctx context.Context, log *slog.Logger, item model.Item) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("delivery panic", "id", item.ID, "panic", r, "stack", string(debug.Stack()))
		}
	}()

	processed, err := s.ledger.IsProcessed(ctx, item.ID)
	if err != nil {
		log.Error("check processed", "id", item.ID, "error", err)
		return
	}
	if processed {
		log.Debug("already processed", "id", item.ID)
		return
	}

	dctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.DeliveryTimeout)
	defer cancel()
	s.count(s.deliver.Deliver(dctx, item))
}

func (s *Scheduler) clean(ctx context.Context, log *slog.Logger) {
	n, err := s.ledger.EvictExpired(ctx, s.opts.Retention)
	if err != nil {
		log.Error("evict expired", "error", err)
		return
	}
	if n > 0 {
		log.Info("evicted expired entries", "count", n)
	}
}

func (s *Scheduler) count(o model.Outcome) {
	s.mu.Lock()
	s.stats.Outcomes[o]++
	s.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
