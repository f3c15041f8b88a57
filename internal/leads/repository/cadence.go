package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) ListCadenceSteps(ctx context.Context, leadID uuid.UUID) ([]CadenceStep, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, lead_id, cadence_type, step_name, position, status, due_at, created_at
		FROM lead_cadence_steps WHERE lead_id = $1
		ORDER BY cadence_type, position
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []CadenceStep
	for rows.Next() {
		var s CadenceStep
		if err := rows.Scan(&s.ID, &s.LeadID, &s.CadenceType, &s.StepName, &s.Position, &s.Status, &s.DueAt, &s.CreatedAt); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// CreateCadenceSteps inserts steps, skipping any already logged for the same
// lead, cadence and step name. It returns the number inserted.
func (r *Repository) CreateCadenceSteps(ctx context.Context, steps []CreateCadenceStepParams) (int, error) {
	if len(steps) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, s := range steps {
		batch.Queue(`
			INSERT INTO lead_cadence_steps (id, lead_id, cadence_type, step_name, position, status, due_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (lead_id, cadence_type, step_name) DO NOTHING
		`, uuid.New(), s.LeadID, s.CadenceType, s.StepName, s.Position, s.Status, s.DueAt)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	inserted := 0
	for range steps {
		tag, err := results.Exec()
		if err != nil {
			return inserted, err
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
