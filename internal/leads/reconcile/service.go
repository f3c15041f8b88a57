// Package reconcile merges externally sourced lead records into the lead
// store, idempotently and keyed by external id.
package reconcile

import (
	"context"
	"errors"
	"strings"
	"time"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/cadence"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/platform/apperr"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/metrics"
)

// ErrMissingIdentity is wrapped by Reconcile when a record carries no
// external id. Nothing is persisted for such records.
var ErrMissingIdentity = errors.New("missing identity")

// Result describes the outcome of one reconciliation.
type Result struct {
	Lead repository.Lead
	// Created is set when the lead did not exist before.
	Created bool
	// Changed is set when the lead row was written.
	Changed bool
	// Classification is the classifier's verdict for the record.
	Classification domain.Classification
	// StatusGuarded is set when a terminal lead kept its status because the
	// record carried no terminal evidence.
	StatusGuarded bool
	TaskAction    TaskAction
	// AttemptsLogged and CadenceSteps count side-log rows written.
	AttemptsLogged int
	CadenceSteps   int
	// AttemptsSkipped lists imported attempt numbers already taken by
	// attempts logged on the board.
	AttemptsSkipped []int

	previousStatus string
}

// Service is the lead reconciler.
type Service struct {
	repo       repository.Transactor
	classifier *domain.Classifier
	cadences   *cadence.Catalog
	eventBus   events.Bus
	log        *logger.Logger
	now        func() time.Time
}

// New creates a reconciler.
func New(repo repository.Transactor, classifier *domain.Classifier, cadences *cadence.Catalog, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:       repo,
		classifier: classifier,
		cadences:   cadences,
		eventBus:   eventBus,
		log:        log,
		now:        time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Reconcile classifies an external record and upserts it by externalID.
// Descriptive fields are only written when the record carries a value; the
// status always follows the record except that a terminal lead only moves
// on payment or loss evidence. Running it twice with the same input changes
// nothing the second time.
func (s *Service) Reconcile(ctx context.Context, externalID string, fields Fields, rawLabel string, signals domain.Signals) (Result, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		metrics.LeadsReconciled.WithLabelValues("missing_identity").Inc()
		return Result{}, apperr.Wrap(apperr.KindValidation, "record has no external identity", ErrMissingIdentity).WithOp("reconcile")
	}

	log := s.log.WithContext(ctx).With("externalId", externalID)
	classification := s.classifier.Explain(rawLabel, signals)
	record := clean(fields, log)

	var result Result
	err := s.repo.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		result, err = s.apply(ctx, tx, externalID, classification, record)
		return err
	})
	if err != nil {
		metrics.LeadsReconciled.WithLabelValues("failed").Inc()
		log.DatabaseError("reconcile lead", err)
		return Result{}, err
	}

	metrics.LeadsReconciled.WithLabelValues(result.outcome()).Inc()
	log.Info("lead reconciled",
		"leadId", result.Lead.ID,
		"status", result.Lead.Status,
		"rule", classification.Rule,
		"created", result.Created,
		"changed", result.Changed,
		"statusGuarded", result.StatusGuarded,
		"taskAction", result.TaskAction,
	)
	if len(result.AttemptsSkipped) > 0 {
		log.Warn("imported attempts skipped, numbers held by board moves",
			"leadId", result.Lead.ID,
			"attemptNumbers", result.AttemptsSkipped,
		)
	}
	s.publish(ctx, result, fields.Source)

	return result, nil
}

func (r Result) outcome() string {
	switch {
	case r.Created:
		return "created"
	case r.Changed:
		return "updated"
	default:
		return "unchanged"
	}
}

func (s *Service) apply(ctx context.Context, tx repository.Store, externalID string, classification domain.Classification, record cleanFields) (Result, error) {
	result := Result{Classification: classification}

	existing, err := tx.LockByExternalID(ctx, externalID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		lead, createErr := tx.Create(ctx, createParams(externalID, classification.Status, record))
		if errors.Is(createErr, repository.ErrDuplicateExternalID) {
			// Lost a creation race; the winner's row is visible once it commits.
			if existing, err = tx.LockByExternalID(ctx, externalID); err != nil {
				return Result{}, err
			}
			break
		}
		if createErr != nil {
			return Result{}, createErr
		}
		result.Lead, result.Created, result.Changed = lead, true, true
	case err != nil:
		return Result{}, err
	}

	if !result.Created {
		target := classification.Status
		current := domain.Status(existing.Status)
		if current.IsTerminal() && target != current && !classification.Rule.IsTerminalEvidence() {
			target = current
			result.StatusGuarded = true
		}

		result.previousStatus = existing.Status
		result.Lead = existing
		params := mergeParams(existing, target, record)
		if !params.IsEmpty() {
			if result.Lead, err = tx.Update(ctx, existing.ID, params); err != nil {
				return Result{}, err
			}
			result.Changed = true
		}
	}

	if result.TaskAction, err = s.SyncTask(ctx, tx, result.Lead); err != nil {
		return Result{}, err
	}

	for i, attemptResult := range record.attemptResults {
		if attemptResult == "" {
			continue
		}
		write, err := tx.UpsertImportedAttempt(ctx, result.Lead.ID, i+1, attemptResult)
		if err != nil {
			return Result{}, err
		}
		switch write {
		case repository.AttemptWritten:
			result.AttemptsLogged++
		case repository.AttemptHeldByMove:
			result.AttemptsSkipped = append(result.AttemptsSkipped, i+1)
		}
	}

	if result.CadenceSteps, err = s.cadences.StartForStatus(ctx, tx, result.Lead.ID, domain.Status(result.Lead.Status), s.now()); err != nil {
		return Result{}, err
	}

	return result, nil
}

func createParams(externalID string, status domain.Status, record cleanFields) repository.CreateLeadParams {
	params := repository.CreateLeadParams{
		ExternalID:     &externalID,
		UnitID:         record.unitID,
		Status:         string(status),
		Name:           record.name,
		Phone:          record.phone,
		Email:          record.email,
		CourseInterest: record.courseInterest,
		ProposedValue:  record.proposedValue,
		AppointmentAt:  record.appointmentAt,
	}
	if status == domain.StatusWon {
		params.EnrollmentValue = record.enrollmentValue
		params.PaymentMethod = record.paymentMethod
	}
	if status == domain.StatusClosed {
		params.LossReason = record.lossReason
	}
	return params
}

// mergeParams builds an update that fills in non-empty record values that
// differ from what is stored. Zero amounts never replace a stored amount.
func mergeParams(existing repository.Lead, target domain.Status, record cleanFields) repository.UpdateLeadParams {
	var params repository.UpdateLeadParams

	if string(target) != existing.Status {
		status := string(target)
		params.Status = &status
	}
	params.UnitID = changedText(existing.UnitID, record.unitID)
	params.Name = changedText(existing.Name, record.name)
	params.Phone = changedText(existing.Phone, record.phone)
	params.Email = changedText(existing.Email, record.email)
	params.CourseInterest = changedText(existing.CourseInterest, record.courseInterest)
	params.ProposedValue = changedAmount(existing.ProposedValue, record.proposedValue)

	if record.appointmentAt != nil && (existing.AppointmentAt == nil || !existing.AppointmentAt.Equal(*record.appointmentAt)) {
		params.AppointmentAt = record.appointmentAt
	}
	if target == domain.StatusWon {
		params.EnrollmentValue = changedAmount(existing.EnrollmentValue, record.enrollmentValue)
		params.PaymentMethod = changedText(existing.PaymentMethod, record.paymentMethod)
	}
	if target == domain.StatusClosed {
		params.LossReason = changedText(existing.LossReason, record.lossReason)
	}

	return params
}

func changedText(stored, incoming string) *string {
	if incoming == "" || incoming == stored {
		return nil
	}
	return &incoming
}

func changedAmount(stored, incoming *float64) *float64 {
	if incoming == nil {
		return nil
	}
	if stored != nil && (*incoming == 0 || *incoming == *stored) {
		return nil
	}
	return incoming
}

func (s *Service) publish(ctx context.Context, result Result, source string) {
	if s.eventBus == nil {
		return
	}
	if source == "" {
		source = events.SourceImport
	}
	lead := result.Lead
	if result.Created {
		externalID := ""
		if lead.ExternalID != nil {
			externalID = *lead.ExternalID
		}
		s.eventBus.Publish(ctx, events.LeadCreated{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			ExternalID: externalID,
			UnitID:     lead.UnitID,
			Status:     lead.Status,
			Source:     source,
		})
		return
	}
	if result.previousStatus != "" && result.previousStatus != lead.Status {
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        lead.ID,
			UnitID:        lead.UnitID,
			OldStatus:     result.previousStatus,
			NewStatus:     lead.Status,
			AppointmentAt: lead.AppointmentAt,
			Source:        source,
		})
	}
}
