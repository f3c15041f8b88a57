package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Name           string `json:"name" validate:"required,min=1,max=200"`
	Phone          string `json:"phone" validate:"required,min=5,max=30"`
	Email          string `json:"email,omitempty" validate:"omitempty,email,max=254"`
	CourseInterest string `json:"courseInterest,omitempty" validate:"max=200"`
	UnitID         string `json:"unitId,omitempty" validate:"max=100"`
	ExternalID     string `json:"externalId,omitempty" validate:"max=200"`
}

type MoveLeadRequest struct {
	Status          string     `json:"status" validate:"required,max=50"`
	Notes           string     `json:"notes,omitempty" validate:"max=4000"`
	ProposedValue   FlexString `json:"proposedValue,omitempty"`
	AppointmentDate string     `json:"appointmentDate,omitempty" validate:"max=50"`
	EnrollmentValue FlexString `json:"enrollmentValue,omitempty"`
	PaymentMethod   string     `json:"paymentMethod,omitempty" validate:"max=100"`
	Confirmed       bool       `json:"confirmed,omitempty"`
}

type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,leadstatus"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs
type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	ExternalID      *string    `json:"externalId,omitempty"`
	UnitID          string     `json:"unitId,omitempty"`
	Status          string     `json:"status"`
	Name            string     `json:"name"`
	Phone           string     `json:"phone"`
	Email           string     `json:"email,omitempty"`
	CourseInterest  string     `json:"courseInterest,omitempty"`
	ProposedValue   *float64   `json:"proposedValue,omitempty"`
	EnrollmentValue *float64   `json:"enrollmentValue,omitempty"`
	PaymentMethod   string     `json:"paymentMethod,omitempty"`
	LossReason      string     `json:"lossReason,omitempty"`
	AppointmentAt   *time.Time `json:"appointmentAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type ContactAttemptResponse struct {
	AttemptNumber int       `json:"attemptNumber"`
	Result        string    `json:"result"`
	Type          string    `json:"type"`
	CreatedAt     time.Time `json:"createdAt"`
}

// MoveLeadResponse mirrors the board outcome. Pending moves list the fields
// the user has to fill in before retrying.
type MoveLeadResponse struct {
	Outcome        string        `json:"outcome"`
	Lead           *LeadResponse `json:"lead,omitempty"`
	RequiredFields []string      `json:"requiredFields,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	Message        string        `json:"message,omitempty"`
	NoOp           bool          `json:"noop,omitempty"`
}

// StatusColumnResponse describes one board column.
type StatusColumnResponse struct {
	Status               string   `json:"status"`
	Position             int      `json:"position"`
	Terminal             bool     `json:"terminal"`
	RequiredFields       []string `json:"requiredFields"`
	RequiresConfirmation bool     `json:"requiresConfirmation"`
}
