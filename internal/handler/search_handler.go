package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/taskvec/taskvec/internal/pkg/response"
	"github.com/taskvec/taskvec/internal/service"
)

type SearchHandler struct {
	search *service.SearchService
}

func NewSearchHandler(search *service.SearchService) *SearchHandler {
	return &SearchHandler{search: search}
}

type searchRequest struct {
	Query   string            `json:"query"`
	Limit   int               `json:"limit"`
	Filters map[string]string `json:"filters"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid", "invalid request")
		return
	}
	if req.Query == "" {
		response.Error(c, http.StatusBadRequest, "invalid", "query is required")
		return
	}
	results, err := h.search.Search(c.Request.Context(), req.Query, req.Limit, req.Filters)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"results": results})
}

func (h *SearchHandler) Backfill(c *gin.Context) {
	updated, err := h.search.BackfillMissing(c.Request.Context())
	if err != nil {
		// The batch rolled back; the caller sees the zero-count outcome.
		response.Success(c, gin.H{"updated": 0})
		return
	}
	response.Success(c, gin.H{"updated": updated})
}
