package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Search *SearchHandler
	Cache  *CacheHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/search", deps.Search.Search)
	api.POST("/embeddings/backfill", deps.Search.Backfill)
	api.GET("/cache/stats", deps.Cache.Stats)
	api.DELETE("/cache/search", deps.Cache.InvalidateSearches)
}
