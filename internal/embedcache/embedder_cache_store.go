package embedcache

import (
	"context"

	"github.com/xxxsen/common/logutil"

	"github.com/taskvec/taskvec/internal/ai"
	"github.com/taskvec/taskvec/internal/cache"
)

func WrapStoreCacheToEmbedder(e ai.IEmbedder, mgr *cache.Manager) ai.IEmbedder {
	if e == nil || mgr == nil {
		return e
	}
	return &storeEmbedder{next: e, cache: mgr}
}

type storeEmbedder struct {
	next  ai.IEmbedder
	cache *cache.Manager
}

func (s *storeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.cache.GetEmbedding(ctx, text); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit (store)")
		return vec, nil
	}
	res, err := s.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.SetEmbedding(ctx, text, res)
	return res, nil
}

func (s *storeEmbedder) ModelName() string {
	return s.next.ModelName()
}

func (s *storeEmbedder) Dimension() int {
	return s.next.Dimension()
}
