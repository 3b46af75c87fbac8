package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"goals_bot/internal/bot"
	"goals_bot/internal/config"
	"goals_bot/internal/delivery"
	"goals_bot/internal/fetcher"
	"goals_bot/internal/filter"
	"goals_bot/internal/queue"
	"goals_bot/internal/resolver"
	"goals_bot/internal/schedule"
	"goals_bot/internal/scheduler"
	"goals_bot/internal/status"
	"goals_bot/internal/storage"
	"goals_bot/internal/useragent"
)

const feedTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !storage.IsRedisDSN(cfg.LedgerDSN) {
		if dir := filepath.Dir(cfg.LedgerDSN); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				log.Error("create data directory", "path", dir, "error", err)
				os.Exit(1)
			}
		}
	}

	ledger, err := storage.Open(ctx, cfg.LedgerDSN)
	if err != nil {
		log.Error("open ledger", "error", err)
		os.Exit(1)
	}
	defer func() { _ = ledger.Close() }()

	engine, err := filter.New(filter.Settings{
		Teams:      cfg.Teams,
		Blacklist:  cfg.Blacklist,
		ClipHosts:  cfg.ClipHosts,
		MediaFlair: cfg.MediaFlair,
	})
	if err != nil {
		log.Error("compile filter", "error", err)
		os.Exit(1)
	}

	source, err := newSource(ctx, cfg)
	if err != nil {
		log.Error("create feed source", "error", err)
		os.Exit(1)
	}

	media, err := newMediaService(cfg)
	if err != nil {
		log.Error("create resolver", "error", err)
		os.Exit(1)
	}

	b, err := bot.New(cfg, ledger, log)
	if err != nil {
		log.Error("create bot", "error", err)
		os.Exit(1)
	}

	pipeline := delivery.New(media, b, ledger, cfg.NoLinkHosts, log)

	sched := scheduler.New(source, engine, ledger, queue.New(), pipeline, scheduler.Options{
		Workers:      cfg.Workers,
		SettleDelay:  cfg.SettleDelay,
		Cooldown:     cfg.Cooldown,
		Retention:    cfg.LedgerRetention,
		MarkRejected: cfg.MarkRejected,
		Schedule: schedule.Policy{
			Location: cfg.Location,
			Peak:     cfg.PeakInterval,
			Default:  cfg.DefaultInterval,
			Quiet:    cfg.QuietInterval,
		},
		DeliveryTimeout: 2 * cfg.ResolveTimeout,
	}, log)
	b.SetStats(sched)

	log.Info("starting bot",
		"subreddit", cfg.Subreddit,
		"format", cfg.FeedFormat,
		"ledger", ledgerKind(cfg.LedgerDSN),
		"workers", cfg.Workers,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sched.Run(gctx)
		return nil
	})
	g.Go(func() error {
		b.Run(gctx)
		return nil
	})
	if cfg.StatusAddr != "" {
		g.Go(func() error {
			return status.Serve(gctx, cfg.StatusAddr, status.NewRouter(ledger, sched, log), log)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error("bot stopped", "error", err)
		os.Exit(1)
	}
	log.Info("bot stopped")
}

func newSource(ctx context.Context, cfg *config.Config) (fetcher.Source, error) {
	opts := fetcher.Options{
		Subreddit: cfg.Subreddit,
		Limit:     cfg.PageSize,
		UserAgent: cfg.FeedUserAgent,
	}

	if cfg.FeedFormat == config.FormatRSS {
		client := fetcher.NewHTTPClient(ctx, fetcher.Credentials{}, cfg.FeedUserAgent, feedTimeout)
		return fetcher.NewRedditRSS(client, opts), nil
	}

	creds := fetcher.Credentials{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
	}
	client := fetcher.NewHTTPClient(ctx, creds, cfg.FeedUserAgent, feedTimeout)
	return fetcher.NewRedditJSON(client, opts, cfg.HasRedditCredentials()), nil
}

func newMediaService(cfg *config.Config) (*resolver.Service, error) {
	client := &http.Client{Timeout: cfg.ResolveTimeout}

	var chain resolver.Chain
	if cfg.ResolverCommand != "" {
		cmd, err := resolver.NewCommandResolver(cfg.ResolverCommand)
		if err != nil {
			return nil, err
		}
		chain = append(chain, cmd)
	}
	chain = append(chain, resolver.NewPageResolver(client, useragent.Random))

	verifier := resolver.NewVerifier(client, useragent.Random)
	return resolver.NewService(chain, verifier, cfg.ResolveTimeout), nil
}

func ledgerKind(dsn string) string {
	if storage.IsRedisDSN(dsn) {
		return "redis"
	}
	return "sqlite"
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
