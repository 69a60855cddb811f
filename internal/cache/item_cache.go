// Package cache holds the Redis read-through cache for item detail lookups.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"medident/internal/dto"
	"medident/internal/telemetry"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ItemCache stores rendered item responses. Every write path that changes an
// item must call Invalidate. A miss hands out the item's generation; Set only
// stores when no Invalidate happened since, so a read that raced a commit can
// never repopulate the cache with the pre-commit row.
type ItemCache interface {
	// Get returns the cached item, or on a miss the generation to pass to Set.
	Get(ctx context.Context, id uuid.UUID) (item *dto.ItemResponse, gen int64, ok bool)
	Set(ctx context.Context, item *dto.ItemResponse, gen int64)
	Invalidate(ctx context.Context, id uuid.UUID)
}

// genTTL outlives any in-flight read by a wide margin.
const genTTL = 24 * time.Hour

type redisItemCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisItemCache(rdb *redis.Client, ttl time.Duration) ItemCache {
	return &redisItemCache{rdb: rdb, ttl: ttl}
}

func itemKey(id string) string { return "item:" + id }
func genKey(id string) string  { return "item:gen:" + id }

func (c *redisItemCache) Get(ctx context.Context, id uuid.UUID) (*dto.ItemResponse, int64, bool) {
	vals, err := c.rdb.MGet(ctx, itemKey(id.String()), genKey(id.String())).Result()
	if err != nil {
		log.Warn().Err(err).Str("item_id", id.String()).Msg("item cache: get failed")
		telemetry.ItemCacheRequestsTotal.WithLabelValues("miss").Inc()
		// -1 never matches a stored generation, so the following Set is skipped.
		return nil, -1, false
	}

	gen := parseGen(vals[1])
	raw, _ := vals[0].(string)
	if raw == "" {
		telemetry.ItemCacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, gen, false
	}
	var resp dto.ItemResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		telemetry.ItemCacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, gen, false
	}
	telemetry.ItemCacheRequestsTotal.WithLabelValues("hit").Inc()
	return &resp, gen, true
}

var errStaleGeneration = errors.New("item generation changed")

// Set is best effort; failures are logged and otherwise ignored.
func (c *redisItemCache) Set(ctx context.Context, item *dto.ItemResponse, gen int64) {
	if gen < 0 {
		return
	}
	b, err := json.Marshal(item)
	if err != nil {
		return
	}
	gk := genKey(item.ID)
	err = c.rdb.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, gk).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if parseGen(cur) != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, itemKey(item.ID), b, c.ttl)
			return nil
		})
		return err
	}, gk)
	switch {
	case err == nil:
	case errors.Is(err, errStaleGeneration), errors.Is(err, redis.TxFailedErr):
		telemetry.ItemCacheRequestsTotal.WithLabelValues("stale_skip").Inc()
	default:
		log.Warn().Err(err).Str("item_id", item.ID).Msg("item cache: set failed")
	}
}

// Invalidate bumps the generation before dropping the entry, in one
// transaction, so concurrent readers holding the old generation cannot Set.
func (c *redisItemCache) Invalidate(ctx context.Context, id uuid.UUID) {
	key := id.String()
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey(key))
		pipe.Expire(ctx, genKey(key), genTTL)
		pipe.Del(ctx, itemKey(key))
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("item_id", key).Msg("item cache: invalidate failed")
	}
}

func parseGen(v any) int64 {
	s, _ := v.(string)
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

// Nop is an ItemCache that never hits.
type Nop struct{}

func (Nop) Get(context.Context, uuid.UUID) (*dto.ItemResponse, int64, bool) { return nil, 0, false }
func (Nop) Set(context.Context, *dto.ItemResponse, int64)                   {}
func (Nop) Invalidate(context.Context, uuid.UUID)                           {}
