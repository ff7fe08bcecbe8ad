package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/taskvec/taskvec/internal/ai"
	"github.com/taskvec/taskvec/internal/cache"
	"github.com/taskvec/taskvec/internal/model"
	"github.com/taskvec/taskvec/internal/repo"
)

const defaultSearchLimit = 5

// TaskStore is the slice of the task repo the pipeline needs; the concrete
// *repo.TaskRepo satisfies it, tests use fakes.
type TaskStore interface {
	ListMissingEmbeddings(ctx context.Context) ([]model.Task, error)
	SaveEmbeddings(ctx context.Context, updates []repo.EmbeddingUpdate) (int, error)
	SearchByEmbedding(ctx context.Context, queryVec []float32, limit int) ([]repo.TaskDistance, error)
}

type SearchService struct {
	tasks    TaskStore
	embedder ai.IEmbedder
	cache    *cache.Manager
}

func NewSearchService(tasks TaskStore, embedder ai.IEmbedder, cacheMgr *cache.Manager) *SearchService {
	return &SearchService{tasks: tasks, embedder: embedder, cache: cacheMgr}
}

// BackfillMissing computes embeddings for every task that has none and
// writes them back in a single all-or-nothing transaction. A task whose
// embedding fails to generate is skipped and stays missing for the next
// run; a failed batch write reports zero updates.
func (s *SearchService) BackfillMissing(ctx context.Context) (int, error) {
	logger := logutil.GetLogger(ctx)
	tasks, err := s.tasks.ListMissingEmbeddings(ctx)
	if err != nil {
		logger.Error("list tasks without embeddings failed", zap.Error(err))
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}
	updates := make([]repo.EmbeddingUpdate, 0, len(tasks))
	for i := range tasks {
		task := &tasks[i]
		vec, err := s.embedder.Embed(ctx, task.EmbedText())
		if err != nil {
			logger.Warn("skip task, embedding failed", zap.Int64("task_id", task.ID), zap.Error(err))
			continue
		}
		updates = append(updates, repo.EmbeddingUpdate{TaskID: task.ID, Embedding: vec})
	}
	updated, err := s.tasks.SaveEmbeddings(ctx, updates)
	if err != nil {
		logger.Error("save embeddings failed, batch rolled back", zap.Int("batch", len(updates)), zap.Error(err))
		return 0, err
	}
	if updated > 0 {
		// Rankings over the new embeddings differ from anything cached.
		s.cache.InvalidateSearches(ctx)
		logger.Info("embeddings backfilled", zap.Int("updated", updated), zap.Int("skipped", len(tasks)-len(updates)))
	}
	return updated, nil
}

// Search ranks tasks by vector distance to the query and returns at most
// limit results with similarity = 1 - distance. Embedding or query
// failures degrade to an empty result set; they never abort the caller.
func (s *SearchService) Search(ctx context.Context, query string, limit int, filters map[string]string) ([]model.SearchResult, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("query", query))
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if cached, ok := s.cache.GetSearchResults(ctx, query, filters); ok {
		logger.Debug("search cache hit")
		return cached, nil
	}
	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		logger.Warn("query embedding failed", zap.Error(err))
		return []model.SearchResult{}, nil
	}
	rows, err := s.tasks.SearchByEmbedding(ctx, queryVec, limit)
	if err != nil {
		logger.Error("vector search failed", zap.Error(err))
		return []model.SearchResult{}, nil
	}
	results := make([]model.SearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, model.SearchResult{
			ID:          row.Task.ID,
			Title:       row.Task.Title,
			Description: row.Task.Description,
			Status:      row.Task.Status,
			Similarity:  1 - row.Distance,
		})
	}
	s.cache.SetSearchResults(ctx, query, results, filters)
	return results, nil
}

// CacheStats exposes cache introspection to the API layer.
func (s *SearchService) CacheStats(ctx context.Context) model.CacheStats {
	return s.cache.Stats(ctx)
}

// InvalidateSearchCache drops every cached search result set.
func (s *SearchService) InvalidateSearchCache(ctx context.Context) int {
	return s.cache.InvalidateSearches(ctx)
}
