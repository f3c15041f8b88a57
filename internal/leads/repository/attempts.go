package repository

import (
	"context"

	"github.com/google/uuid"
)

// AppendAttempt logs an attempt numbered after the lead's latest one. Callers
// hold the lead's row lock, which serializes numbering.
func (r *Repository) AppendAttempt(ctx context.Context, leadID uuid.UUID, attemptType, result string) (ContactAttempt, error) {
	var a ContactAttempt
	err := r.db.QueryRow(ctx, `
		INSERT INTO lead_contact_attempts (id, lead_id, attempt_number, result, type)
		SELECT $1, $2, COALESCE(MAX(attempt_number), 0) + 1, $3, $4
		FROM lead_contact_attempts WHERE lead_id = $2
		RETURNING id, lead_id, attempt_number, result, type, created_at
	`, uuid.New(), leadID, result, attemptType).Scan(&a.ID, &a.LeadID, &a.AttemptNumber, &a.Result, &a.Type, &a.CreatedAt)
	return a, err
}

// UpsertImportedAttempt records the result of numbered attempt from an
// import. Attempts logged interactively are never overwritten; that case is
// reported as AttemptHeldByMove.
func (r *Repository) UpsertImportedAttempt(ctx context.Context, leadID uuid.UUID, attemptNumber int, result string) (AttemptWrite, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO lead_contact_attempts (id, lead_id, attempt_number, result, type)
		VALUES ($1, $2, $3, $4, 'import')
		ON CONFLICT (lead_id, attempt_number) DO UPDATE SET result = EXCLUDED.result
		WHERE lead_contact_attempts.type = 'import' AND lead_contact_attempts.result <> EXCLUDED.result
	`, uuid.New(), leadID, attemptNumber, result)
	if err != nil {
		return AttemptUnchanged, err
	}
	if tag.RowsAffected() > 0 {
		return AttemptWritten, nil
	}

	var attemptType string
	err = r.db.QueryRow(ctx, `
		SELECT type FROM lead_contact_attempts WHERE lead_id = $1 AND attempt_number = $2
	`, leadID, attemptNumber).Scan(&attemptType)
	if err != nil {
		return AttemptUnchanged, err
	}
	if attemptType != AttemptTypeImport {
		return AttemptHeldByMove, nil
	}
	return AttemptUnchanged, nil
}

func (r *Repository) ListAttempts(ctx context.Context, leadID uuid.UUID) ([]ContactAttempt, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, lead_id, attempt_number, result, type, created_at
		FROM lead_contact_attempts WHERE lead_id = $1
		ORDER BY attempt_number
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []ContactAttempt
	for rows.Next() {
		var a ContactAttempt
		if err := rows.Scan(&a.ID, &a.LeadID, &a.AttemptNumber, &a.Result, &a.Type, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
