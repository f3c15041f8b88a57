package reconcile

import (
	"strings"
	"time"

	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/metrics"
	"franchise_crm_backend/platform/money"
	"franchise_crm_backend/platform/phone"
	"franchise_crm_backend/platform/sanitize"
)

// MaxImportedAttempts is the number of attempt-result columns an import can carry.
const MaxImportedAttempts = 5

// Fields are the descriptive values extracted from an external record.
// Empty strings mean "not provided".
type Fields struct {
	UnitID          string
	Name            string
	Phone           string
	Email           string
	CourseInterest  string
	ProposedValue   string
	EnrollmentValue string
	PaymentMethod   string
	LossReason      string
	AppointmentDate string
	// FollowUp is any free-text follow-up or observation column.
	FollowUp string
	// AttemptResults holds "Resultado Nº tentativa" values; index 0 is attempt 1.
	AttemptResults []string
	// Source tags published events. Empty means events.SourceImport.
	Source string
}

// Signals derives the classifier's evidence from the record itself.
func (f Fields) Signals() domain.Signals {
	attempts := 0
	for _, result := range f.AttemptResults {
		if strings.TrimSpace(result) != "" {
			attempts++
		}
	}
	return domain.Signals{
		PaymentMethodPresent:      strings.TrimSpace(f.PaymentMethod) != "",
		LossReasonPresent:         strings.TrimSpace(f.LossReason) != "",
		AttemptCount:              attempts,
		HasAnyInteractionEvidence: attempts > 0 || strings.TrimSpace(f.FollowUp) != "",
	}
}

type cleanFields struct {
	unitID          string
	name            string
	phone           string
	email           string
	courseInterest  string
	proposedValue   *float64
	enrollmentValue *float64
	paymentMethod   string
	lossReason      string
	appointmentAt   *time.Time
	attemptResults  []string
}

// clean trims and parses f. Unparseable amounts become 0 and unparseable
// dates are dropped; both are logged.
func clean(f Fields, log *logger.Logger) cleanFields {
	out := cleanFields{
		unitID:         strings.TrimSpace(f.UnitID),
		name:           sanitize.Text(f.Name),
		phone:          phone.NormalizeE164(f.Phone),
		email:          strings.ToLower(strings.TrimSpace(f.Email)),
		courseInterest: sanitize.Text(f.CourseInterest),
		paymentMethod:  sanitize.Text(f.PaymentMethod),
		lossReason:     sanitize.Text(f.LossReason),
	}

	out.proposedValue = coerceAmount(string(domain.FieldProposedValue), f.ProposedValue, log)
	out.enrollmentValue = coerceAmount(string(domain.FieldEnrollmentValue), f.EnrollmentValue, log)

	if raw := strings.TrimSpace(f.AppointmentDate); raw != "" {
		if at, ok := domain.ParseAppointmentDate(raw); ok {
			out.appointmentAt = &at
		} else {
			log.MalformedValue(string(domain.FieldAppointmentDate), raw, "")
			metrics.MalformedValues.WithLabelValues(string(domain.FieldAppointmentDate)).Inc()
		}
	}

	limit := len(f.AttemptResults)
	if limit > MaxImportedAttempts {
		limit = MaxImportedAttempts
	}
	out.attemptResults = make([]string, limit)
	for i := 0; i < limit; i++ {
		out.attemptResults[i] = sanitize.Text(f.AttemptResults[i])
	}

	return out
}

func coerceAmount(field, raw string, log *logger.Logger) *float64 {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	value, malformed := money.Coerce(raw)
	if malformed {
		log.MalformedValue(field, raw, "0")
		metrics.MalformedValues.WithLabelValues(field).Inc()
	}
	return &value
}
