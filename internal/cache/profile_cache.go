package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/d60-Lab/microblog/internal/model"
)

// ProfileCache caches assembled profile views keyed by user id.
//
// Every user has a generation counter that Invalidate bumps. Get reports the
// generation it observed and Set only writes if the counter has not moved
// since, so a profile read from the store before an invalidation is dropped
// instead of being cached for the full TTL.
type ProfileCache interface {
	Get(ctx context.Context, userID int64) (p *model.Profile, gen int64, ok bool, err error)
	Set(ctx context.Context, p *model.Profile, gen int64) error
	Invalidate(ctx context.Context, userIDs ...int64) error
}

// RedisProfileCache stores profiles as JSON strings with a TTL.
type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewRedisProfileCache(client *redis.Client, ttl time.Duration) *RedisProfileCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisProfileCache{client: client, ttl: ttl}
}

func profileKey(userID int64) string { return fmt.Sprintf("profile:%d", userID) }

// genKey has no TTL; expiring it would reset the counter and reopen the race.
func genKey(userID int64) string { return fmt.Sprintf("profile:gen:%d", userID) }

func (c *RedisProfileCache) Get(ctx context.Context, userID int64) (*model.Profile, int64, bool, error) {
	pipe := c.client.Pipeline()
	dataCmd := pipe.Get(ctx, profileKey(userID))
	genCmd := pipe.Get(ctx, genKey(userID))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}
	gen, err := genCmd.Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, false, err
	}
	data, err := dataCmd.Bytes()
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, gen, false, nil
	}
	if err != nil {
		return nil, 0, false, err
	}
	var p model.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		// corrupt entry, treat as miss and let the caller overwrite it
		c.misses.Add(1)
		return nil, gen, false, nil
	}
	c.hits.Add(1)
	return &p, gen, true, nil
}

// Set writes p only while the generation still equals gen.
func (c *RedisProfileCache) Set(ctx context.Context, p *model.Profile, gen int64) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return err
	}
	gk := genKey(p.ID)
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, profileKey(p.ID), payload, c.ttl)
			return nil
		})
		return err
	}, gk)
	if errors.Is(err, redis.TxFailedErr) {
		// invalidated between WATCH and EXEC
		return nil
	}
	return err
}

func (c *RedisProfileCache) Invalidate(ctx context.Context, userIDs ...int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, genKey(id))
			pipe.Del(ctx, profileKey(id))
		}
		return nil
	})
	return err
}

// Counters reports cache hits and misses since start.
func (c *RedisProfileCache) Counters() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Noop is used when redis is not configured.
type Noop struct{}

func (Noop) Get(context.Context, int64) (*model.Profile, int64, bool, error) {
	return nil, 0, false, nil
}
func (Noop) Set(context.Context, *model.Profile, int64) error { return nil }
func (Noop) Invalidate(context.Context, ...int64) error       { return nil }
