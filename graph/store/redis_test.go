package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, opts ...RedisOption) *RedisStore {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "starting miniredis")
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedisStore(client, opts...)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRedisStoreContract(t *testing.T) {
	runStoreContract(t, newTestRedisStore(t))
}

func TestRedisStorePrefixIsolation(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	a := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithPrefix("a:"))
	b := NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}), WithPrefix("b:"))

	require.NoError(t, a.PutGraph(ctx, GraphRecord{ID: "g-1", Name: "in-a", Definition: testDefinition("in-a")}))

	_, err = b.GetGraph(ctx, "g-1")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := a.GetGraph(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "in-a", got.Name)
}
