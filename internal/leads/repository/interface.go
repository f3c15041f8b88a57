// Package repository persists leads and their side logs: tasks, contact attempts
// and cadence steps.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("lead not found")
	ErrTaskNotFound        = errors.New("task not found")
	ErrDuplicateExternalID = errors.New("external id already exists")
)

// LeadReader provides read-only access to leads.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	GetByExternalID(ctx context.Context, externalID string) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadLocker reads a lead and locks its row until the surrounding
// transaction ends.
type LeadLocker interface {
	LockByID(ctx context.Context, id uuid.UUID) (Lead, error)
	LockByExternalID(ctx context.Context, externalID string) (Lead, error)
}

// LeadWriter creates and updates leads.
type LeadWriter interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Update(ctx context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error)
}

// TaskStore manages the single open task of a lead.
type TaskStore interface {
	GetOpenTask(ctx context.Context, leadID uuid.UUID) (Task, error)
	CreateTask(ctx context.Context, params CreateTaskParams) (Task, error)
	UpdateTaskTitle(ctx context.Context, id uuid.UUID, title string) (Task, error)
}

// AttemptLog records contact attempts.
type AttemptLog interface {
	AppendAttempt(ctx context.Context, leadID uuid.UUID, attemptType, result string) (ContactAttempt, error)
	UpsertImportedAttempt(ctx context.Context, leadID uuid.UUID, attemptNumber int, result string) (AttemptWrite, error)
	ListAttempts(ctx context.Context, leadID uuid.UUID) ([]ContactAttempt, error)
}

// CadenceLog records cadence steps.
type CadenceLog interface {
	ListCadenceSteps(ctx context.Context, leadID uuid.UUID) ([]CadenceStep, error)
	CreateCadenceSteps(ctx context.Context, steps []CreateCadenceStepParams) (int, error)
}

// Store is everything a unit of work can touch.
type Store interface {
	LeadReader
	LeadLocker
	LeadWriter
	TaskStore
	AttemptLog
	CadenceLog
}

// Transactor runs fn against a Store bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// LeadsRepository is the full persistence surface.
type LeadsRepository interface {
	Store
	Transactor
}

var (
	_ LeadsRepository = (*Repository)(nil)
	_ LeadsRepository = (*MemoryStore)(nil)
)
