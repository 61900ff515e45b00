package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/annel0/cavein/internal/world"
)

func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRedisLedger_Key(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	l := NewRedisLedgerWithClient(unreachableClient(), "", time.Second, 0, nil)
	assert.Equal(t, "cavein:cooldown:6ba7b810-9dad-11d1-80b4-00c04fd430c8:world:1,2,3", l.Key(id, world.At("world", 1, 2, 3)))
}

func TestRedisLedger_FailsOpen(t *testing.T) {
	client := unreachableClient()
	defer client.Close()

	l := NewRedisLedgerWithClient(client, "test:", 2*time.Second, 100*time.Millisecond, nil)
	actor := uuid.New()
	pos := world.At("world", 0, 10, 0)

	assert.NotPanics(t, func() { l.MarkTriggered(context.Background(), actor, pos) })
	assert.False(t, l.IsCoolingDown(context.Background(), actor, pos))
}

func TestNewRedisLedger_ConnectError(t *testing.T) {
	_, _, err := NewRedisLedger(RedisConfig{Addr: "127.0.0.1:1", Timeout: 50 * time.Millisecond}, time.Second, nil)
	assert.Error(t, err)
}
