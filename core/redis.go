package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CodeSequence hands out monotonically increasing numbers per code family.
type CodeSequence interface {
	// Next returns a number strictly greater than floor and than every number
	// previously returned for name.
	Next(ctx context.Context, name string, floor int64) (int64, error)
}

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

const sequenceKeyPrefix = "seq:"

// nextScript raises the counter to the floor when it lags behind, then
// increments it. Both steps run atomically on the server.
var nextScript = redis.NewScript(`
local cur = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if cur < floor then
  redis.call('SET', KEYS[1], floor)
end
return redis.call('INCR', KEYS[1])
`)

// RedisCodeSequence implements CodeSequence using go-redis.
type RedisCodeSequence struct {
	client redis.Scripter
}

func NewRedisCodeSequence(client redis.Scripter) *RedisCodeSequence {
	return &RedisCodeSequence{client: client}
}

func (s *RedisCodeSequence) Next(ctx context.Context, name string, floor int64) (int64, error) {
	n, err := nextScript.Run(ctx, s.client, []string{sequenceKeyPrefix + name}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("sequence %s: %w", name, err)
	}
	return n, nil
}

// AuditStreamKey is the capped list holding recent mutation events.
const AuditStreamKey = "audit:mutations"

// redisListWriter is the subset of *redis.Client the audit sink needs.
type redisListWriter interface {
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisAuditSink appends events to AuditStreamKey, newest first, keeping at
// most max entries.
type RedisAuditSink struct {
	client redisListWriter
	max    int64
}

func NewRedisAuditSink(client redisListWriter, max int) *RedisAuditSink {
	if max <= 0 {
		max = 1000
	}
	return &RedisAuditSink{client: client, max: int64(max)}
}

func (s *RedisAuditSink) Record(ctx context.Context, ev AuditEvent) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.LPush(ctx, AuditStreamKey, raw)
		p.LTrim(ctx, AuditStreamKey, 0, s.max-1)
		return nil
	})
	return err
}
