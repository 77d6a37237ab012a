package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, "nodeflow:test:", nil)
}

func TestRedisStore_SetGetDelete(t *testing.T) {
	s := newTestRedisStore(t)

	_, found := s.Get("missing")
	require.False(t, found)

	s.Set("key", map[string]any{"value": "from-A"}, time.Minute)
	got, found := s.Get("key")
	require.True(t, found)
	require.Equal(t, map[string]any{"value": "from-A"}, got)

	s.Delete("key")
	_, found = s.Get("key")
	require.False(t, found)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisStore(client, "", nil)

	s.Set("key", "value", time.Second)
	mr.FastForward(2 * time.Second)

	_, found := s.Get("key")
	require.False(t, found)
}
