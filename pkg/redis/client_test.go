package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	values  map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		values:  map[string]string{},
		counts:  map[string]int64{},
		expires: map[string]time.Duration{},
	}
}

func (f *fakeStore) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeStore) Get(_ context.Context, key string) *redis.StringCmd {
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeStore) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	f.expires[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func (f *fakeStore) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var removed int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			removed++
		}
		delete(f.counts, key)
	}
	return redis.NewIntResult(removed, nil)
}

func TestIncrWithTTL_SetsExpiryOnFirstIncrement(t *testing.T) {
	store := newFakeStore()
	client := &Client{store: store}

	count, err := client.IncrWithTTL(context.Background(), "sl:rate_limit:login", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
	require.Equal(t, time.Minute, store.expires["sl:rate_limit:login"])

	count, err = client.IncrWithTTL(context.Background(), "sl:rate_limit:login", time.Minute)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestFixedWindowAllow(t *testing.T) {
	client := &Client{store: newFakeStore()}

	for i := 0; i < 3; i++ {
		allowed, _, err := client.FixedWindowAllow(context.Background(), "login:1.2.3.4", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, count, err := client.FixedWindowAllow(context.Background(), "login:1.2.3.4", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, allowed)
	require.Equal(t, int64(4), count)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	require.Equal(t, "sl:rate_limit:login:abc", client.RateLimitKey("login:abc"))
	require.Equal(t, "sl:counter:orders", client.CounterKey("orders"))
}

func TestClient_NotInitialized(t *testing.T) {
	client := &Client{}
	require.Error(t, client.Set(context.Background(), "k", "v", 0))
	_, err := client.Get(context.Background(), "k")
	require.Error(t, err)
	_, err = client.Incr(context.Background(), "k")
	require.Error(t, err)
}
