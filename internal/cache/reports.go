package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache holds serialized course progress reports keyed by
// (student, course). Entries are short-lived and dropped on every progress
// write for the pair's course, so a stale read window is bounded by the TTL.
type ReportCache interface {
	Get(ctx context.Context, studentID string, courseID int64) ([]byte, bool)
	Set(ctx context.Context, studentID string, courseID int64, payload []byte)
	Invalidate(ctx context.Context, studentID string, courseID int64)
}

func key(studentID string, courseID int64) string {
	return fmt.Sprintf("report:%s:%d", studentID, courseID)
}

type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(addr, password string, ttl time.Duration) ReportCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisCache{
		rdb: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		ttl: ttl,
	}
}

func (c *redisCache) Get(ctx context.Context, studentID string, courseID int64) ([]byte, bool) {
	buf, err := c.rdb.Get(ctx, key(studentID, courseID)).Bytes()
	if err != nil {
		return nil, false
	}
	return buf, true
}

func (c *redisCache) Set(ctx context.Context, studentID string, courseID int64, payload []byte) {
	// Best effort; a failed cache write only costs a recompute later.
	_ = c.rdb.Set(ctx, key(studentID, courseID), payload, c.ttl).Err()
}

func (c *redisCache) Invalidate(ctx context.Context, studentID string, courseID int64) {
	_ = c.rdb.Del(ctx, key(studentID, courseID)).Err()
}

type noop struct{}

// NewNoop disables caching; every report is recomputed.
func NewNoop() ReportCache { return noop{} }

func (noop) Get(context.Context, string, int64) ([]byte, bool) { return nil, false }
func (noop) Set(context.Context, string, int64, []byte)        {}
func (noop) Invalidate(context.Context, string, int64)         {}
