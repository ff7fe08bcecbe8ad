package cachestore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	store := New(Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = store.Close() })
	return mr, store
}

func TestStoreRoundTrip(t *testing.T) {
	mr, store := setupStore(t)
	ctx := context.Background()

	_, ok := store.Get(ctx, "missing")
	require.False(t, ok)

	store.SetWithTTL(ctx, "k1", []byte("payload"), time.Minute)
	data, ok := store.Get(ctx, "k1")
	require.True(t, ok)
	require.Equal(t, []byte("payload"), data)

	mr.FastForward(2 * time.Minute)
	_, ok = store.Get(ctx, "k1")
	require.False(t, ok)
}

func TestStoreScanAndDelete(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	store.SetWithTTL(ctx, "search:a", []byte("1"), time.Minute)
	store.SetWithTTL(ctx, "search:b", []byte("2"), time.Minute)
	store.SetWithTTL(ctx, "embedding:c", []byte("3"), time.Minute)

	keys := store.ScanByPrefix(ctx, "search:")
	require.Len(t, keys, 2)
	require.ElementsMatch(t, []string{"search:a", "search:b"}, keys)

	store.DeleteMany(ctx, keys)
	require.Empty(t, store.ScanByPrefix(ctx, "search:"))

	_, ok := store.Get(ctx, "embedding:c")
	require.True(t, ok)
}

func TestStoreStats(t *testing.T) {
	_, store := setupStore(t)
	ctx := context.Background()

	store.SetWithTTL(ctx, "k1", []byte("1"), time.Minute)
	info, ok := store.Stats(ctx)
	require.True(t, ok)
	require.EqualValues(t, 1, info.KeyCount)
}

// An unreachable server at construction time leaves the store permanently
// degraded: every operation is a silent no-op miss, nothing panics, and no
// error escapes.
func TestStoreDegradedMode(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	store := New(Config{Addr: addr})
	require.False(t, store.Available())
	ctx := context.Background()

	_, ok := store.Get(ctx, "anything")
	require.False(t, ok)
	store.SetWithTTL(ctx, "anything", []byte("x"), time.Minute)
	store.DeleteMany(ctx, []string{"anything"})
	require.Nil(t, store.ScanByPrefix(ctx, ""))
	_, ok = store.Stats(ctx)
	require.False(t, ok)
	require.NoError(t, store.Close())
}

// Degradation is decided once at construction; a store built against a live
// server keeps absorbing errors if the server later vanishes.
func TestStoreAbsorbsRuntimeErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	store := NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()

	ctx := context.Background()
	_, ok := store.Get(ctx, "k")
	require.False(t, ok)
	store.SetWithTTL(ctx, "k", []byte("v"), time.Minute)
	require.Nil(t, store.ScanByPrefix(ctx, "k"))
}
