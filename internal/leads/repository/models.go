package repository

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusOpen = "open"
	TaskStatusDone = "done"

	AttemptTypeImport = "import"
	AttemptTypeMove   = "move"

	CadenceStepPending = "pending"
	CadenceStepDone    = "done"
)

// AttemptWrite is the outcome of recording an imported attempt.
type AttemptWrite int

const (
	AttemptUnchanged AttemptWrite = iota
	AttemptWritten
	// AttemptHeldByMove means the number already belongs to an attempt logged
	// on the board; the imported result is not stored.
	AttemptHeldByMove
)

// Lead is a persisted sales prospect. Text fields use "" for unset.
type Lead struct {
	ID              uuid.UUID
	ExternalID      *string
	UnitID          string
	Status          string
	Name            string
	Phone           string
	Email           string
	CourseInterest  string
	ProposedValue   *float64
	EnrollmentValue *float64
	PaymentMethod   string
	LossReason      string
	AppointmentAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Task is the open follow-up reminder derived from a lead's status.
type Task struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Title     string
	DueDate   time.Time
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ContactAttempt is one logged attempt at reaching a lead.
type ContactAttempt struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	AttemptNumber int
	Result        string
	Type          string
	CreatedAt     time.Time
}

// CadenceStep is one logged step of a follow-up sequence.
type CadenceStep struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	CadenceType string
	StepName    string
	Position    int
	Status      string
	DueAt       *time.Time
	CreatedAt   time.Time
}

type CreateLeadParams struct {
	ExternalID      *string
	UnitID          string
	Status          string
	Name            string
	Phone           string
	Email           string
	CourseInterest  string
	ProposedValue   *float64
	EnrollmentValue *float64
	PaymentMethod   string
	LossReason      string
	AppointmentAt   *time.Time
}

// UpdateLeadParams changes only the non-nil fields.
type UpdateLeadParams struct {
	Status          *string
	UnitID          *string
	Name            *string
	Phone           *string
	Email           *string
	CourseInterest  *string
	ProposedValue   *float64
	EnrollmentValue *float64
	PaymentMethod   *string
	LossReason      *string
	AppointmentAt   *time.Time
}

// IsEmpty reports whether p would change nothing.
func (p UpdateLeadParams) IsEmpty() bool {
	return p.Status == nil && p.UnitID == nil && p.Name == nil && p.Phone == nil && p.Email == nil &&
		p.CourseInterest == nil && p.ProposedValue == nil && p.EnrollmentValue == nil &&
		p.PaymentMethod == nil && p.LossReason == nil && p.AppointmentAt == nil
}

type ListParams struct {
	Status   string
	UnitID   string
	Search   string
	Page     int
	PageSize int
}

type CreateTaskParams struct {
	LeadID  uuid.UUID
	Title   string
	DueDate time.Time
}

type CreateCadenceStepParams struct {
	LeadID      uuid.UUID
	CadenceType string
	StepName    string
	Position    int
	DueAt       *time.Time
	Status      string
}
