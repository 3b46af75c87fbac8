package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"goals_bot/internal/model"
)

const (
	redisItemPrefix   = "ledger:item:"
	redisQueuedKey    = "ledger:queued"
	redisProcessedKey = "ledger:processed"
)

// KEYS: item hash, queued zset. ARGV: id, url, title, category, now.
var markQueuedScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], 'state') == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'state', 'queued', 'url', ARGV[2], 'title', ARGV[3], 'category', ARGV[4], 'queued_at', ARGV[5])
redis.call('ZADD', KEYS[2], ARGV[5], ARGV[1])
return 1
`)

// KEYS: item hash, queued zset, processed zset. ARGV: id, now, outcome.
var markProcessedScript = redis.NewScript(`
if redis.call('HGET', KEYS[1], 'state') == 'processed' then
	return 0
end
redis.call('HSET', KEYS[1], 'state', 'processed', 'processed_at', ARGV[2], 'outcome', ARGV[3])
redis.call('ZREM', KEYS[2], ARGV[1])
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return 1
`)

// KEYS: processed zset. ARGV: cutoff, item key prefix.
var evictScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', '(' .. ARGV[1])
for _, id in ipairs(ids) do
	redis.call('DEL', ARGV[2] .. id)
	redis.call('ZREM', KEYS[1], id)
end
return #ids
`)

// Redis implements Ledger on a Redis server. Each item is a hash; queued and
// processed ids are kept in sorted sets scored by their transition time.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis connects to the Redis server at url and verifies connectivity.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	return &Redis{client: client, now: time.Now}, nil
}

// Close closes the underlying Redis client.
func (r *Redis) Close() error {
	return r.client.Close()
}

// IsProcessed checks whether an item has reached the processed state.
func (r *Redis) IsProcessed(ctx context.Context, id string) (bool, error) {
	state, err := r.client.HGet(ctx, itemKey(id), "state").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check processed: %w", err)
	}
	return state == string(model.StateProcessed), nil
}

// MarkQueued records an item as queued for delivery.
func (r *Redis) MarkQueued(ctx context.Context, item model.Item) error {
	err := markQueuedScript.Run(ctx, r.client,
		[]string{itemKey(item.ID), redisQueuedKey},
		item.ID, item.URL, item.Title, item.Category, r.now().Unix(),
	).Err()
	if err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}
	return nil
}

// MarkProcessed records the terminal outcome of an item.
func (r *Redis) MarkProcessed(ctx context.Context, id string, outcome model.Outcome) error {
	err := markProcessedScript.Run(ctx, r.client,
		[]string{itemKey(id), redisQueuedKey, redisProcessedKey},
		id, r.now().Unix(), string(outcome),
	).Err()
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}
	return nil
}

// EvictExpired deletes processed entries older than retention.
func (r *Redis) EvictExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := r.now().Add(-retention).Unix()
	n, err := evictScript.Run(ctx, r.client,
		[]string{redisProcessedKey},
		cutoff, redisItemPrefix,
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("evict expired: %w", err)
	}
	return n, nil
}

// Get returns the ledger entry of an item.
func (r *Redis) Get(ctx context.Context, id string) (*model.LedgerEntry, error) {
	fields, err := r.client.HGetAll(ctx, itemKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}
	e := entryFromHash(id, fields)
	return &e, nil
}

// ListQueued returns all queued entries, oldest first.
func (r *Redis) ListQueued(ctx context.Context) ([]model.LedgerEntry, error) {
	ids, err := r.client.ZRange(ctx, redisQueuedKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list queued: %w", err)
	}
	return r.entries(ctx, ids)
}

// ListRecent returns up to limit processed entries, newest first.
func (r *Redis) ListRecent(ctx context.Context, limit int) ([]model.LedgerEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	ids, err := r.client.ZRevRange(ctx, redisProcessedKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list recent: %w", err)
	}
	return r.entries(ctx, ids)
}

// Counts returns the number of entries per state.
func (r *Redis) Counts(ctx context.Context) (map[model.LedgerState]int, error) {
	var queued, processed *redis.IntCmd
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		queued = pipe.ZCard(ctx, redisQueuedKey)
		processed = pipe.ZCard(ctx, redisProcessedKey)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}
	return map[model.LedgerState]int{
		model.StateQueued:    int(queued.Val()),
		model.StateProcessed: int(processed.Val()),
	}, nil
}

func (r *Redis) entries(ctx context.Context, ids []string) ([]model.LedgerEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, itemKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	entries := make([]model.LedgerEntry, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		entries = append(entries, entryFromHash(ids[i], fields))
	}
	return entries, nil
}

func itemKey(id string) string {
	return redisItemPrefix + id
}

func entryFromHash(id string, fields map[string]string) model.LedgerEntry {
	return model.LedgerEntry{
		Item: model.Item{
			ID:       id,
			URL:      fields["url"],
			Title:    fields["title"],
			Category: fields["category"],
		},
		State:       model.LedgerState(fields["state"]),
		Outcome:     model.Outcome(fields["outcome"]),
		QueuedAt:    parseUnix(fields["queued_at"]),
		ProcessedAt: parseUnix(fields["processed_at"]),
	}
}

func parseUnix(v string) *time.Time {
	if v == "" {
		return nil
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	t := time.Unix(secs, 0).UTC()
	return &t
}
