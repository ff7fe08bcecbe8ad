package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/taskvec/taskvec/internal/cache"
	"github.com/taskvec/taskvec/internal/cachestore"
	"github.com/taskvec/taskvec/internal/model"
	"github.com/taskvec/taskvec/internal/repo"
	"github.com/taskvec/taskvec/internal/service"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}
func (stubEmbedder) ModelName() string { return "stub" }
func (stubEmbedder) Dimension() int    { return 3 }

type stubTaskStore struct{}

func (stubTaskStore) ListMissingEmbeddings(ctx context.Context) ([]model.Task, error) {
	return nil, nil
}

func (stubTaskStore) SaveEmbeddings(ctx context.Context, updates []repo.EmbeddingUpdate) (int, error) {
	return len(updates), nil
}

func (stubTaskStore) SearchByEmbedding(ctx context.Context, queryVec []float32, limit int) ([]repo.TaskDistance, error) {
	return []repo.TaskDistance{
		{Task: model.Task{ID: 1, Title: "buy milk", Status: "pending"}, Distance: 0.2},
	}, nil
}

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	mgr := cache.NewManager(cachestore.New(cachestore.Config{Addr: mr.Addr()}))
	search := service.NewSearchService(stubTaskStore{}, stubEmbedder{}, mgr)

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	RegisterRoutes(engine.Group("/api"), RouterDeps{
		Search: NewSearchHandler(search),
		Cache:  NewCacheHandler(search),
	})
	return engine
}

func TestSearchEndpoint(t *testing.T) {
	engine := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query": "shopping", "limit": 3}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Results []model.SearchResult `json:"results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data.Results, 1)
	require.InDelta(t, 0.8, body.Data.Results[0].Similarity, 1e-9)
}

func TestSearchEndpointRequiresQuery(t *testing.T) {
	engine := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBackfillEndpoint(t *testing.T) {
	engine := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/embeddings/backfill", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data struct {
			Updated int `json:"updated"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Zero(t, body.Data.Updated)
}

func TestCacheStatsEndpoint(t *testing.T) {
	engine := setupRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cache/stats", nil)
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data model.CacheStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "connected", body.Data.Status)
}

func TestInvalidateSearchEndpoint(t *testing.T) {
	engine := setupRouter(t)

	// Prime the cache through a search, then clear it.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query": "shopping"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/cache/search", nil)
	engine.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data struct {
			Cleared int `json:"cleared"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, 1, body.Data.Cleared)
}
