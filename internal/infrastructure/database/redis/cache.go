package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/turtacn/CaseLaw-Intelligence/internal/domain/judgment"
	"github.com/turtacn/CaseLaw-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/CaseLaw-Intelligence/pkg/errors"
)

const (
	DefaultKeyPrefix = "caselaw:record:"
	DefaultTTL       = 24 * time.Hour
)

// RecordCache stores normalized records keyed by a fingerprint of their raw
// document, so unchanged documents skip extraction on the next run.
type RecordCache struct {
	client *Client
	logger logging.Logger
	prefix string
	ttl    time.Duration
	group  singleflight.Group
}

// CacheOption configures a RecordCache.
type CacheOption func(*RecordCache)

func WithPrefix(prefix string) CacheOption {
	return func(c *RecordCache) { c.prefix = prefix }
}

func WithDefaultTTL(ttl time.Duration) CacheOption {
	return func(c *RecordCache) { c.ttl = ttl }
}

// NewRecordCache returns a cache over client.
func NewRecordCache(client *Client, logger logging.Logger, opts ...CacheOption) *RecordCache {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	c := &RecordCache{
		client: client,
		logger: logger.Named("record_cache"),
		prefix: DefaultKeyPrefix,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *RecordCache) key(k string) string { return c.prefix + k }

// jitter spreads expiries by ±10% so a batch written together does not
// expire together.
func (c *RecordCache) jitter(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	return ttl + time.Duration(float64(ttl)*0.1*(rand.Float64()*2-1))
}

// Get returns the cached record.  A miss is (nil, false, nil).
func (c *RecordCache) Get(ctx context.Context, key string) (*judgment.JudgmentRecord, bool, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrap(err, errors.ErrCodeCacheError, "failed to read record cache")
	}
	var rec judgment.JudgmentRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		c.logger.Warn("dropping undecodable cache entry", logging.String("key", key), logging.Err(err))
		_ = c.client.Del(ctx, c.key(key)).Err()
		return nil, false, nil
	}
	return &rec, true, nil
}

// Set stores rec under key.
func (c *RecordCache) Set(ctx context.Context, key string, rec *judgment.JudgmentRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
	}
	if err := c.client.Set(ctx, c.key(key), data, c.jitter(c.ttl)).Err(); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "failed to write record cache")
	}
	return nil
}

type loaded struct {
	rec *judgment.JudgmentRecord
	hit bool
}

// GetOrLoad returns the cached record or calls load once per key across
// concurrent callers, caching a non-nil result.  hit reports whether the
// record came from redis.  A failed read is logged and treated as a miss;
// errors from load are returned unchanged and never cached.
func (c *RecordCache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*judgment.JudgmentRecord, error)) (*judgment.JudgmentRecord, bool, error) {
	rec, ok, err := c.Get(ctx, key)
	if err != nil {
		c.logger.Warn("record cache read failed, loading", logging.String("key", key), logging.Err(err))
	} else if ok {
		return rec, true, nil
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// a caller that finished between our read and Do has stored it
		if rec, ok, err := c.Get(ctx, key); err == nil && ok {
			return loaded{rec: rec, hit: true}, nil
		}
		rec, err := load(ctx)
		if err != nil || rec == nil {
			return loaded{rec: rec}, err
		}
		if err := c.Set(ctx, key, rec); err != nil {
			c.logger.Warn("failed to populate record cache", logging.String("key", key), logging.Err(err))
		}
		return loaded{rec: rec}, nil
	})
	if err != nil {
		return nil, false, err
	}
	l := v.(loaded)
	return l.rec, l.hit, nil
}

// Purge deletes every entry under the cache prefix and returns how many keys
// were removed.
func (c *RecordCache) Purge(ctx context.Context) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", 500).Result()
		if err != nil {
			return removed, errors.Wrap(err, errors.ErrCodeCacheError, "failed to scan record cache")
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return removed, errors.Wrap(err, errors.ErrCodeCacheError, "failed to purge record cache")
			}
			removed += n
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
