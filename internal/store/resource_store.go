package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nhle/club-portal/internal/model"
)

const resourceColumns = `id, user_id, title, url, resource_type, task_id, created_at`

func createResource(ctx context.Context, q sqlx.ExtContext, r *model.Resource) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.ResourceType == "" {
		r.ResourceType = model.ResourceTypeLink
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	var taskID any
	if r.TaskID != nil {
		taskID = *r.TaskID
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO resources (id, user_id, title, url, resource_type, task_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.Title, r.URL, r.ResourceType, taskID, r.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating resource %s: %w", r.ID, err)
	}
	return nil
}

func listResources(ctx context.Context, q sqlx.ExtContext, taskID string) ([]model.Resource, error) {
	rows, err := q.QueryxContext(ctx, `
		SELECT `+resourceColumns+` FROM resources
		WHERE task_id = ? ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying resources of task %s: %w", taskID, err)
	}
	defer rows.Close()

	var resources []model.Resource
	for rows.Next() {
		var r model.Resource
		err := rows.Scan(
			&r.ID, &r.UserID, &r.Title, &r.URL, &r.ResourceType, &r.TaskID, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning resource row: %w", err)
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func countResources(ctx context.Context, q sqlx.ExtContext, taskID string) (int, error) {
	var count int
	err := q.QueryRowxContext(ctx,
		"SELECT COUNT(*) FROM resources WHERE task_id = ?", taskID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting resources of task %s: %w", taskID, err)
	}
	return count, nil
}

func (t *sqliteTx) CreateResource(ctx context.Context, r *model.Resource) error {
	return createResource(ctx, t.tx, r)
}

func (t *sqliteTx) ListResources(ctx context.Context, taskID string) ([]model.Resource, error) {
	return listResources(ctx, t.tx, taskID)
}

func (t *sqliteTx) CountResources(ctx context.Context, taskID string) (int, error) {
	return countResources(ctx, t.tx, taskID)
}
