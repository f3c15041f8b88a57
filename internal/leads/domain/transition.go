package domain

import (
	"fmt"
	"strings"
	"time"

	"franchise_crm_backend/platform/money"
	"franchise_crm_backend/platform/sanitize"
)

// MovePayload is the raw detail a user (or a caller on their behalf)
// supplies with a status change.
type MovePayload struct {
	Notes           string
	ProposedValue   string
	AppointmentDate string
	EnrollmentValue string
	PaymentMethod   string
}

// NormalizedPayload is a MovePayload after trimming and parsing.
type NormalizedPayload struct {
	Notes           string
	ProposedValue   *float64
	AppointmentDate *time.Time
	EnrollmentValue *float64
	PaymentMethod   string
	// Malformed lists fields whose raw value was replaced by a default.
	Malformed []Field
}

var appointmentLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02/01/2006 15:04",
	"02/01/2006",
}

// NormalizePayload trims and parses p. Malformed amounts become 0 and
// malformed dates are dropped; both are recorded in Malformed.
func NormalizePayload(p MovePayload) NormalizedPayload {
	out := NormalizedPayload{
		Notes:         sanitize.Text(p.Notes),
		PaymentMethod: strings.TrimSpace(p.PaymentMethod),
	}

	if raw := strings.TrimSpace(p.ProposedValue); raw != "" {
		value, malformed := money.Coerce(raw)
		out.ProposedValue = &value
		if malformed {
			out.Malformed = append(out.Malformed, FieldProposedValue)
		}
	}
	if raw := strings.TrimSpace(p.EnrollmentValue); raw != "" {
		value, malformed := money.Coerce(raw)
		out.EnrollmentValue = &value
		if malformed {
			out.Malformed = append(out.Malformed, FieldEnrollmentValue)
		}
	}
	if raw := strings.TrimSpace(p.AppointmentDate); raw != "" {
		if at, ok := ParseAppointmentDate(raw); ok {
			out.AppointmentDate = &at
		} else {
			out.Malformed = append(out.Malformed, FieldAppointmentDate)
		}
	}

	return out
}

// ParseAppointmentDate accepts ISO and dd/mm/yyyy forms. Values without a
// zone are read as UTC.
func ParseAppointmentDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range appointmentLayouts {
		if at, err := time.Parse(layout, raw); err == nil {
			return at, true
		}
	}
	return time.Time{}, false
}

// MissingFields returns the fields dest requires that p does not carry.
func MissingFields(dest Status, p NormalizedPayload) []Field {
	var missing []Field
	for _, field := range requiredFields[dest] {
		if !p.has(field) {
			missing = append(missing, field)
		}
	}
	return missing
}

func (p NormalizedPayload) has(field Field) bool {
	switch field {
	case FieldAppointmentDate:
		return p.AppointmentDate != nil
	case FieldProposedValue:
		return p.ProposedValue != nil
	case FieldNotes:
		return p.Notes != ""
	case FieldEnrollmentValue:
		return p.EnrollmentValue != nil
	default:
		return false
	}
}

// RejectReason classifies a refused transition.
type RejectReason string

const (
	ReasonUnknownStatus RejectReason = "unknown_status"
	ReasonTerminal      RejectReason = "terminal_status"
	ReasonReopenNew     RejectReason = "new_not_reenterable"
	ReasonMissingFields RejectReason = "missing_fields"
)

// RejectionError is returned by ValidateTransition for an illegal move.
type RejectionError struct {
	From    Status
	To      Status
	Reason  RejectReason
	Missing []Field
}

func (e *RejectionError) Error() string {
	switch e.Reason {
	case ReasonTerminal:
		return fmt.Sprintf("lead is %s and cannot move to %s", e.From, e.To)
	case ReasonReopenNew:
		return fmt.Sprintf("lead cannot return to %s from %s", StatusNew, e.From)
	case ReasonMissingFields:
		return fmt.Sprintf("moving to %s requires %s", e.To, joinFields(e.Missing))
	default:
		return fmt.Sprintf("unknown status %q", string(e.To))
	}
}

// Transition is an accepted status change.
type Transition struct {
	From    Status
	To      Status
	Payload NormalizedPayload
	// NoOp is set when From equals To; callers must apply no side effects.
	NoOp bool
}

// ValidateTransition decides whether a lead in from may move to to with
// payload p. Refusals are *RejectionError.
func ValidateTransition(from, to Status, p MovePayload) (Transition, error) {
	if !to.Valid() {
		return Transition{}, &RejectionError{From: from, To: to, Reason: ReasonUnknownStatus}
	}

	normalized := NormalizePayload(p)
	if from == to {
		return Transition{From: from, To: to, Payload: normalized, NoOp: true}, nil
	}
	if from.IsTerminal() {
		return Transition{}, &RejectionError{From: from, To: to, Reason: ReasonTerminal}
	}
	if to == StatusNew {
		return Transition{}, &RejectionError{From: from, To: to, Reason: ReasonReopenNew}
	}
	if missing := MissingFields(to, normalized); len(missing) > 0 {
		return Transition{}, &RejectionError{From: from, To: to, Reason: ReasonMissingFields, Missing: missing}
	}

	return Transition{From: from, To: to, Payload: normalized}, nil
}

func joinFields(fields []Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}
