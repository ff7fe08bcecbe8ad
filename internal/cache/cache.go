// Package cache holds the two derived-artifact caches: embedding vectors
// keyed by source text, and ranked search result lists keyed by
// query+filters. Both ride on the fail-open cache store, so every miss here
// simply means "recompute".
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/taskvec/taskvec/internal/cachekey"
	"github.com/taskvec/taskvec/internal/cachestore"
	"github.com/taskvec/taskvec/internal/model"
	"github.com/taskvec/taskvec/internal/pkg/vecenc"
)

const (
	DefaultEmbeddingTTL = time.Hour
	// Search results go stale as soon as the underlying tasks change, so
	// they live an order of magnitude shorter than embeddings.
	DefaultSearchTTL = 10 * time.Minute
)

type Manager struct {
	store        *cachestore.Store
	embeddingTTL time.Duration
	searchTTL    time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

func NewManager(store *cachestore.Store) *Manager {
	return &Manager{
		store:        store,
		embeddingTTL: DefaultEmbeddingTTL,
		searchTTL:    DefaultSearchTTL,
	}
}

// WithTTLs overrides the default expiries; zero keeps the default.
func (m *Manager) WithTTLs(embedding, search time.Duration) *Manager {
	if embedding > 0 {
		m.embeddingTTL = embedding
	}
	if search > 0 {
		m.searchTTL = search
	}
	return m
}

func (m *Manager) GetEmbedding(ctx context.Context, text string) ([]float32, bool) {
	key := cachekey.ForEmbedding(text)
	data, ok := m.store.Get(ctx, key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	vec, err := vecenc.Decode(data)
	if err != nil {
		// Corrupt payload counts as a miss and is dropped so the next
		// write replaces it.
		logutil.GetLogger(ctx).Warn("corrupt cached embedding", zap.String("key", key), zap.Error(err))
		m.store.DeleteMany(ctx, []string{key})
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return vec, true
}

func (m *Manager) SetEmbedding(ctx context.Context, text string, vec []float32) {
	m.store.SetWithTTL(ctx, cachekey.ForEmbedding(text), vecenc.Encode(vec), m.embeddingTTL)
}

func (m *Manager) GetSearchResults(ctx context.Context, query string, filters map[string]string) ([]model.SearchResult, bool) {
	key := cachekey.ForSearch(query, filters)
	data, ok := m.store.Get(ctx, key)
	if !ok {
		m.misses.Add(1)
		return nil, false
	}
	var results []model.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		logutil.GetLogger(ctx).Warn("corrupt cached search results", zap.String("key", key), zap.Error(err))
		m.store.DeleteMany(ctx, []string{key})
		m.misses.Add(1)
		return nil, false
	}
	m.hits.Add(1)
	return results, true
}

func (m *Manager) SetSearchResults(ctx context.Context, query string, results []model.SearchResult, filters map[string]string) {
	data, err := json.Marshal(results)
	if err != nil {
		logutil.GetLogger(ctx).Warn("encode search results failed", zap.Error(err))
		return
	}
	m.store.SetWithTTL(ctx, cachekey.ForSearch(query, filters), data, m.searchTTL)
}

// InvalidateSearches drops every key in the search namespace in one batch.
// The embedding namespace is untouched: embeddings of fixed text stay valid
// even when rankings change.
func (m *Manager) InvalidateSearches(ctx context.Context) int {
	keys := m.store.ScanByPrefix(ctx, cachekey.KindSearch+":")
	if len(keys) == 0 {
		return 0
	}
	m.store.DeleteMany(ctx, keys)
	logutil.GetLogger(ctx).Info("search cache invalidated", zap.Int("entries", len(keys)))
	return len(keys)
}

// Stats is best-effort introspection; a degraded store yields a
// "disconnected" record instead of an error.
func (m *Manager) Stats(ctx context.Context) model.CacheStats {
	info, ok := m.store.Stats(ctx)
	if !ok {
		return model.CacheStats{Status: "disconnected", HitRate: m.hitRate()}
	}
	return model.CacheStats{
		Status:        "connected",
		TotalKeys:     info.KeyCount,
		EmbeddingKeys: len(m.store.ScanByPrefix(ctx, cachekey.KindEmbedding+":")),
		SearchKeys:    len(m.store.ScanByPrefix(ctx, cachekey.KindSearch+":")),
		MemoryUsage:   info.UsedMemory,
		HitRate:       m.hitRate(),
	}
}

func (m *Manager) hitRate() string {
	hits, misses := m.hits.Load(), m.misses.Load()
	total := hits + misses
	if total == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(hits)*100/float64(total))
}
