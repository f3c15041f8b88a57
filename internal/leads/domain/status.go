// Package domain holds the pipeline rules for leads: the status vocabulary,
// classification of external labels and transition validation.
package domain

import "strings"

// Status is a canonical pipeline stage.
type Status string

const (
	StatusNew         Status = "new"
	StatusConnecting  Status = "connecting"
	StatusScheduled   Status = "scheduled"
	StatusNegotiation Status = "negotiation"
	StatusNoShow      Status = "no_show"
	StatusWon         Status = "won"
	StatusClosed      Status = "closed"
)

// Field names a payload field a transition can require.
type Field string

const (
	FieldAppointmentDate Field = "appointmentDate"
	FieldProposedValue   Field = "proposedValue"
	FieldNotes           Field = "notes"
	FieldEnrollmentValue Field = "enrollmentValue"
)

// orderedStatuses is the board's column order.
var orderedStatuses = []Status{
	StatusNew,
	StatusConnecting,
	StatusScheduled,
	StatusNegotiation,
	StatusNoShow,
	StatusWon,
	StatusClosed,
}

var terminalStatuses = map[Status]bool{
	StatusWon:    true,
	StatusClosed: true,
}

// requiredFields lists what must accompany a transition into a status.
// Statuses absent from the map require nothing.
var requiredFields = map[Status][]Field{
	StatusScheduled:   {FieldAppointmentDate},
	StatusNegotiation: {FieldProposedValue, FieldNotes},
	StatusClosed:      {FieldNotes},
}

// confirmationStatuses pause a live move for a confirmation step even when
// the destination itself requires no field.
var confirmationStatuses = map[Status]bool{
	StatusConnecting:  true,
	StatusScheduled:   true,
	StatusNegotiation: true,
	StatusClosed:      true,
}

// Statuses returns the canonical statuses in board order.
func Statuses() []Status {
	return append([]Status(nil), orderedStatuses...)
}

// ParseStatus accepts a canonical identifier, case and surrounding
// whitespace aside.
func ParseStatus(raw string) (Status, bool) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// Valid reports whether s belongs to the vocabulary.
func (s Status) Valid() bool {
	for _, known := range orderedStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s is won or closed.
func (s Status) IsTerminal() bool {
	return terminalStatuses[s]
}

// RequiredFields returns the fields a transition into s must carry.
func (s Status) RequiredFields() []Field {
	return append([]Field(nil), requiredFields[s]...)
}

// RequiresConfirmation reports whether a live move into s waits for the
// user to confirm details.
func (s Status) RequiresConfirmation() bool {
	return confirmationStatuses[s]
}

// Position returns the column index of s, or -1 if unknown.
func (s Status) Position() int {
	for i, known := range orderedStatuses {
		if s == known {
			return i
		}
	}
	return -1
}

func (s Status) String() string {
	return string(s)
}
