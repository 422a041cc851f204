package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"outreach-service/internal/modal"
)

// RedisConfig controls the redis client used for snapshots.
type RedisConfig struct {
	Addr        string
	KeyPrefix   string
	DialTimeout time.Duration
	PingTimeout time.Duration
}

// RedisStore keeps each run under <prefix>run:<id>. SET replaces the value
// atomically; the run index is a set at <prefix>runs.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// OpenRedis connects and validates connectivity via PING.
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 3 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 2 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(rdb, cfg.KeyPrefix), nil
}

func NewRedisStore(rdb redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{rdb: rdb, prefix: prefix}
}

func (s *RedisStore) runKey(runID string) string { return s.prefix + "run:" + runID }
func (s *RedisStore) indexKey() string           { return s.prefix + "runs" }

func (s *RedisStore) Save(ctx context.Context, run *modal.CampaignRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, s.runKey(run.RunID), data, 0)
		p.SAdd(ctx, s.indexKey(), run.RunID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, runID string) (*modal.CampaignRun, error) {
	data, err := s.rdb.Get(ctx, s.runKey(runID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("load snapshot %s: %w", runID, modal.ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("redis load snapshot: %w", err)
	}
	var run modal.CampaignRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", runID, err)
	}
	run.Normalize()
	return &run, nil
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis list snapshots: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
