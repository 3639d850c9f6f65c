package statestore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dirbridge/pkg/statestore"
)

func newRedis(t *testing.T) (*statestore.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return statestore.NewRedisStore(client, statestore.WithKeyPrefix("test:")), mr
}

func TestRedisStore_GetPutDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedis(t)

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, statestore.ErrNotFound)

	require.NoError(t, store.Put(ctx, "k", []byte(`{"a":1}`), 0))
	assert.True(t, mr.Exists("test:k"), "key is prefixed")

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	require.NoError(t, store.Delete(ctx, "k"))
	_, err = store.Get(ctx, "k")
	assert.ErrorIs(t, err, statestore.ErrNotFound)
}

func TestRedisStore_TTL(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedis(t)

	require.NoError(t, store.Put(ctx, "k", []byte("v"), time.Minute))
	assert.Equal(t, time.Minute, mr.TTL("test:k"))

	mr.FastForward(time.Minute)
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, statestore.ErrNotFound)
}

func TestRedisStore_Unavailable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, mr := newRedis(t)

	require.NoError(t, store.Ping(ctx))
	mr.Close()

	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, statestore.ErrUnavailable)
	assert.ErrorIs(t, store.Put(ctx, "k", []byte("v"), 0), statestore.ErrUnavailable)
	assert.ErrorIs(t, store.Delete(ctx, "k"), statestore.ErrUnavailable)
	assert.ErrorIs(t, store.Ping(ctx), statestore.ErrUnavailable)
}
