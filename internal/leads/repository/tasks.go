package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const taskColumns = `id, lead_id, title, due_date, status, created_at, updated_at`

func scanTask(row pgx.Row) (Task, error) {
	var task Task
	err := row.Scan(&task.ID, &task.LeadID, &task.Title, &task.DueDate, &task.Status, &task.CreatedAt, &task.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrTaskNotFound
	}
	return task, err
}

func (r *Repository) GetOpenTask(ctx context.Context, leadID uuid.UUID) (Task, error) {
	return scanTask(r.db.QueryRow(ctx, `
		SELECT `+taskColumns+` FROM lead_tasks
		WHERE lead_id = $1 AND status = 'open'
	`, leadID))
}

func (r *Repository) CreateTask(ctx context.Context, params CreateTaskParams) (Task, error) {
	return scanTask(r.db.QueryRow(ctx, `
		INSERT INTO lead_tasks (id, lead_id, title, due_date, status)
		VALUES ($1, $2, $3, $4, 'open')
		RETURNING `+taskColumns,
		uuid.New(), params.LeadID, params.Title, params.DueDate,
	))
}

func (r *Repository) UpdateTaskTitle(ctx context.Context, id uuid.UUID, title string) (Task, error) {
	return scanTask(r.db.QueryRow(ctx, `
		UPDATE lead_tasks SET title = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+taskColumns,
		id, title,
	))
}
