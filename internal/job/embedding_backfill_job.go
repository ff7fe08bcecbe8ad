package job

import (
	"context"

	"github.com/taskvec/taskvec/internal/service"
)

type EmbeddingBackfillJob struct {
	search *service.SearchService
}

func NewEmbeddingBackfillJob(search *service.SearchService) *EmbeddingBackfillJob {
	return &EmbeddingBackfillJob{search: search}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.search == nil {
		return nil
	}
	_, err := j.search.BackfillMissing(ctx)
	return err
}
