package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/taskvec/taskvec/internal/cache"
	"github.com/taskvec/taskvec/internal/cachestore"
)

type countingEmbedder struct {
	calls int
	vec   []float32
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return c.vec, nil
}

func (c *countingEmbedder) ModelName() string { return "counting" }
func (c *countingEmbedder) Dimension() int    { return len(c.vec) }

func TestLruWrapAvoidsRecompute(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1, 2}}
	embedder := WrapLruCacheToEmbedder(inner, 16, time.Minute)
	ctx := context.Background()

	first, err := embedder.Embed(ctx, "hello")
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, inner.calls)

	// Cached values are copies; mutating a result must not poison the cache.
	second[0] = 99
	third, err := embedder.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, float32(1), third[0])
}

func TestLruWrapDisabledPassthrough(t *testing.T) {
	inner := &countingEmbedder{vec: []float32{1}}
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 0, time.Minute))
	require.Equal(t, inner, WrapLruCacheToEmbedder(inner, 16, 0))
}

func TestStoreWrapSharesAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	mgr := cache.NewManager(cachestore.New(cachestore.Config{Addr: mr.Addr()}))
	ctx := context.Background()

	first := &countingEmbedder{vec: []float32{1, 2}}
	wrapped := WrapStoreCacheToEmbedder(first, mgr)
	_, err = wrapped.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, 1, first.calls)

	// A second embedder over the same store hits the shared entry.
	second := &countingEmbedder{vec: []float32{1, 2}}
	wrapped = WrapStoreCacheToEmbedder(second, mgr)
	vec, err := wrapped.Embed(ctx, "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2}, vec)
	require.Equal(t, 0, second.calls)
}
