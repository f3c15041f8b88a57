package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Repository is the Postgres implementation of LeadsRepository.
type Repository struct {
	pool *pgxpool.Pool
	db   querier
}

// New creates a repository on pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, db: pool}
}

// WithinTx runs fn in a transaction. Nested calls reuse the outer one.
func (r *Repository) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	if r.pool == nil {
		return fn(r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&Repository{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const leadColumns = `id, external_id, unit_id, status, name, phone, email, course_interest,
	proposed_value, enrollment_value, payment_method, loss_reason, appointment_at, created_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.ExternalID, &lead.UnitID, &lead.Status, &lead.Name, &lead.Phone, &lead.Email, &lead.CourseInterest,
		&lead.ProposedValue, &lead.EnrollmentValue, &lead.PaymentMethod, &lead.LossReason, &lead.AppointmentAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (Lead, error) {
	return scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE external_id = $1`, externalID))
}

func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
}

func (r *Repository) LockByExternalID(ctx context.Context, externalID string) (Lead, error) {
	return scanLead(r.db.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE external_id = $1 FOR UPDATE`, externalID))
}

// Create inserts a lead. A concurrent insert of the same external id yields
// ErrDuplicateExternalID without aborting the transaction.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	lead, err := scanLead(r.db.QueryRow(ctx, `
		INSERT INTO leads (id, external_id, unit_id, status, name, phone, email, course_interest,
			proposed_value, enrollment_value, payment_method, loss_reason, appointment_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING `+leadColumns,
		uuid.New(), params.ExternalID, params.UnitID, params.Status, params.Name, params.Phone, params.Email,
		params.CourseInterest, params.ProposedValue, params.EnrollmentValue, params.PaymentMethod,
		params.LossReason, params.AppointmentAt,
	))
	if errors.Is(err, ErrNotFound) {
		return Lead{}, ErrDuplicateExternalID
	}
	return lead, err
}

func (r *Repository) Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	fields := []struct {
		enabled bool
		column  string
		value   any
	}{
		{params.Status != nil, "status", params.Status},
		{params.UnitID != nil, "unit_id", params.UnitID},
		{params.Name != nil, "name", params.Name},
		{params.Phone != nil, "phone", params.Phone},
		{params.Email != nil, "email", params.Email},
		{params.CourseInterest != nil, "course_interest", params.CourseInterest},
		{params.ProposedValue != nil, "proposed_value", params.ProposedValue},
		{params.EnrollmentValue != nil, "enrollment_value", params.EnrollmentValue},
		{params.PaymentMethod != nil, "payment_method", params.PaymentMethod},
		{params.LossReason != nil, "loss_reason", params.LossReason},
		{params.AppointmentAt != nil, "appointment_at", params.AppointmentAt},
	}

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+1)
	for _, field := range fields {
		if !field.enabled {
			continue
		}
		args = append(args, field.value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", field.column, len(args)))
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, id)
	}

	setClauses = append(setClauses, "updated_at = now()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE leads SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), len(args), leadColumns)
	return scanLead(r.db.QueryRow(ctx, query, args...))
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Lead, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if params.Status != "" {
		args = append(args, params.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.UnitID != "" {
		args = append(args, params.UnitID)
		where = append(where, fmt.Sprintf("unit_id = $%d", len(args)))
	}
	if search := strings.TrimSpace(params.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR phone ILIKE $%d OR email ILIKE $%d)", len(args), len(args), len(args)))
	}
	whereSQL := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM leads WHERE `+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	page, pageSize := normalizePage(params.Page, params.PageSize)
	args = append(args, pageSize, (page-1)*pageSize)
	query := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY updated_at DESC LIMIT $%d OFFSET $%d`,
		leadColumns, whereSQL, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := make([]Lead, 0, pageSize)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, err
		}
		leads = append(leads, lead)
	}
	return leads, total, rows.Err()
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	return page, pageSize
}

var _ LeadsRepository = (*Repository)(nil)
