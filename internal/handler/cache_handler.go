package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/taskvec/taskvec/internal/pkg/response"
	"github.com/taskvec/taskvec/internal/service"
)

type CacheHandler struct {
	search *service.SearchService
}

func NewCacheHandler(search *service.SearchService) *CacheHandler {
	return &CacheHandler{search: search}
}

func (h *CacheHandler) Stats(c *gin.Context) {
	response.Success(c, h.search.CacheStats(c.Request.Context()))
}

func (h *CacheHandler) InvalidateSearches(c *gin.Context) {
	cleared := h.search.InvalidateSearchCache(c.Request.Context())
	response.Success(c, gin.H{"cleared": cleared})
}
