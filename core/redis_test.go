package core

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewRedisClient("redis://" + mr.Addr() + "/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestNewRedisClientRejectsBadURL(t *testing.T) {
	_, err := NewRedisClient("")
	assert.Error(t, err)
	_, err = NewRedisClient("://nope")
	assert.Error(t, err)
}

func TestCodeSequenceIsFlooredAndMonotonic(t *testing.T) {
	mr, client := newMiniRedis(t)
	seq := NewRedisCodeSequence(client)
	ctx := context.Background()

	n, err := seq.Next(ctx, "pago", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Rows were inserted behind the service's back.
	n, err = seq.Next(ctx, "pago", 40)
	require.NoError(t, err)
	assert.Equal(t, int64(41), n)

	// A stale floor never moves the counter backwards.
	n, err = seq.Next(ctx, "pago", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	// Families are independent.
	n, err = seq.Next(ctx, "bloqueo", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := mr.Get("seq:pago")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
}

func TestCodeSequenceConcurrentCallersGetDistinctNumbers(t *testing.T) {
	_, client := newMiniRedis(t)
	seq := NewRedisCodeSequence(client)

	const callers = 20
	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := seq.Next(context.Background(), "pago", 5)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, callers)
	for n := range seen {
		assert.Greater(t, n, int64(5))
	}
}

func TestCodeFamilyFormat(t *testing.T) {
	assert.Equal(t, "P00001", paymentCodes.format(1))
	assert.Equal(t, "B00042", blockCodes.format(42))
	assert.Equal(t, "P123456", paymentCodes.format(123456))
}

func TestRedisAuditSinkCapsTheStream(t *testing.T) {
	mr, client := newMiniRedis(t)
	sink := NewRedisAuditSink(client, 3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, sink.Record(ctx, AuditEvent{
			Timestamp:  time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC),
			RequestID:  "abcd000" + string(rune('0'+i)),
			Method:     "POST",
			Path:       "/pagos/",
			StatusCode: 201,
			Subject:    "RA0001",
		}))
	}

	items, err := mr.List(AuditStreamKey)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var newest AuditEvent
	require.NoError(t, json.Unmarshal([]byte(items[0]), &newest))
	assert.Equal(t, "abcd0004", newest.RequestID)
	assert.Equal(t, "RA0001", newest.Subject)
}

func TestRedisAuditSinkDefaultsMax(t *testing.T) {
	_, client := newMiniRedis(t)
	assert.Equal(t, int64(1000), NewRedisAuditSink(client, 0).max)
}
