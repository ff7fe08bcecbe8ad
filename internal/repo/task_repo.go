package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/taskvec/taskvec/internal/model"
	"github.com/taskvec/taskvec/internal/pkg/dbutil"
	appErr "github.com/taskvec/taskvec/internal/pkg/errors"
)

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Create(ctx context.Context, task *model.Task) error {
	data := map[string]interface{}{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
	}
	sqlStr, args, err := builder.BuildInsert("tasks", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := r.db.QueryRowContext(ctx, sqlStr+" RETURNING id", args...)
	return row.Scan(&task.ID)
}

func (r *TaskRepo) GetByID(ctx context.Context, id int64) (*model.Task, error) {
	where := map[string]interface{}{"id": id}
	sqlStr, args, err := builder.BuildSelect("tasks", where, []string{"id", "title", "description", "status"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	var task model.Task
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&task.ID, &task.Title, &task.Description, &task.Status); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// ListMissingEmbeddings returns tasks whose embedding column is NULL.
func (r *TaskRepo) ListMissingEmbeddings(ctx context.Context) ([]model.Task, error) {
	const query = `
		SELECT id, title, description, status
		FROM tasks
		WHERE embedding IS NULL
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tasks []model.Task
	for rows.Next() {
		var task model.Task
		if err := rows.Scan(&task.ID, &task.Title, &task.Description, &task.Status); err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

type EmbeddingUpdate struct {
	TaskID    int64
	Embedding []float32
}

// SaveEmbeddings writes a batch of computed embeddings inside one
// transaction. The batch commits all-or-nothing: any failed update rolls
// back every update in the batch and reports zero rows written.
func (r *TaskRepo) SaveEmbeddings(ctx context.Context, updates []EmbeddingUpdate) (int, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	const query = `UPDATE tasks SET embedding = $1 WHERE id = $2`
	written := 0
	for _, u := range updates {
		res, err := tx.ExecContext(ctx, query, pgvector.NewVector(u.Embedding), u.TaskID)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if n, err := res.RowsAffected(); err == nil {
			written += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

type TaskDistance struct {
	Task     model.Task
	Distance float64
}

// SearchByEmbedding runs a nearest-neighbor scan over tasks that already
// have an embedding, ascending by distance. Equal distances break on id
// ascending so the ordering is deterministic across plans.
func (r *TaskRepo) SearchByEmbedding(ctx context.Context, queryVec []float32, limit int) ([]TaskDistance, error) {
	const query = `
		SELECT id, title, description, status,
		       embedding <-> $1 AS distance
		FROM tasks
		WHERE embedding IS NOT NULL
		ORDER BY distance, id
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []TaskDistance
	for rows.Next() {
		var item TaskDistance
		if err := rows.Scan(&item.Task.ID, &item.Task.Title, &item.Task.Description, &item.Task.Status, &item.Distance); err != nil {
			return nil, err
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

// DeleteAll clears the tasks table, used by tests.
func (r *TaskRepo) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks`)
	return err
}
