// Package board implements the live pipeline move: a user drags a lead card
// into another column and the move is either committed, paused for missing
// details or refused.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/cadence"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/platform/apperr"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/metrics"

	"github.com/google/uuid"
)

// Outcome is the board's answer to a move request.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomePending  Outcome = "pending"
	OutcomeRejected Outcome = "rejected"
)

// ReasonNeedsConfirmation marks a pending move that only waits for the
// user to confirm, with no field missing.
const ReasonNeedsConfirmation domain.RejectReason = "needs_confirmation"

// MoveRequest is one drag of a lead card.
type MoveRequest struct {
	Destination domain.Status
	Payload     domain.MovePayload
	// Confirmed is set once the user went through the confirmation step.
	Confirmed bool
}

// MoveResult describes what happened to a move request.
type MoveResult struct {
	Outcome Outcome
	// Lead is the lead after the move, or as it stands for pending and
	// rejected moves.
	Lead repository.Lead
	// RequiredFields lists what the caller must ask the user for.
	RequiredFields []domain.Field
	Reason         domain.RejectReason
	Message        string
	// NoOp is set for an accepted move into the lead's current column.
	NoOp      bool
	Malformed []domain.Field
}

// TaskSyncer keeps a lead's open task in line with its status.
type TaskSyncer interface {
	SyncTask(ctx context.Context, tasks repository.TaskStore, lead repository.Lead) (reconcile.TaskAction, error)
}

// Service coordinates live moves. It makes a single attempt per request;
// callers re-fetch the lead when a move is not accepted.
type Service struct {
	repo     repository.Transactor
	tasks    TaskSyncer
	cadences *cadence.Catalog
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// New creates a move coordinator.
func New(repo repository.Transactor, tasks TaskSyncer, cadences *cadence.Catalog, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		tasks:    tasks,
		cadences: cadences,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// RequestMove gates a move of leadID into req.Destination. Missing fields
// and unconfirmed moves come back Pending, illegal moves Rejected. An
// accepted move updates the lead, logs a contact attempt, syncs the task
// and starts any cadence, all in one transaction.
func (s *Service) RequestMove(ctx context.Context, leadID uuid.UUID, req MoveRequest) (MoveResult, error) {
	log := s.log.WithContext(ctx).With("leadId", leadID, "destination", req.Destination)

	var (
		result MoveResult
		from   domain.Status
	)
	err := s.repo.WithinTx(ctx, func(tx repository.Store) error {
		lead, err := tx.LockByID(ctx, leadID)
		if err != nil {
			return err
		}
		from = domain.Status(lead.Status)

		result = s.gate(lead, req)
		if result.Outcome != OutcomeAccepted || result.NoOp {
			return nil
		}

		result.Lead, err = s.commit(ctx, tx, lead, req)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return MoveResult{}, apperr.NotFound("lead not found")
		}
		log.DatabaseError("move lead", err)
		return MoveResult{}, err
	}

	for _, field := range result.Malformed {
		log.MalformedValue(string(field), malformedRaw(req.Payload, field), "")
		metrics.MalformedValues.WithLabelValues(string(field)).Inc()
	}
	metrics.LeadMoves.WithLabelValues(string(result.Outcome)).Inc()
	log.Info("lead move requested", "from", from, "outcome", result.Outcome, "reason", result.Reason, "noop", result.NoOp)

	if result.Outcome == OutcomeAccepted && !result.NoOp && s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        result.Lead.ID,
			UnitID:        result.Lead.UnitID,
			OldStatus:     string(from),
			NewStatus:     result.Lead.Status,
			AppointmentAt: result.Lead.AppointmentAt,
			Source:        events.SourceBoard,
		})
	}

	return result, nil
}

// gate decides the outcome without side effects.
func (s *Service) gate(lead repository.Lead, req MoveRequest) MoveResult {
	from := domain.Status(lead.Status)
	result := MoveResult{Lead: lead}

	transition, err := domain.ValidateTransition(from, req.Destination, req.Payload)
	var rejection *domain.RejectionError
	if errors.As(err, &rejection) {
		result.Reason = rejection.Reason
		result.Message = rejection.Error()
		if rejection.Reason == domain.ReasonMissingFields {
			result.Outcome = OutcomePending
			result.RequiredFields = rejection.Missing
		} else {
			result.Outcome = OutcomeRejected
		}
		return result
	}

	result.Malformed = transition.Payload.Malformed
	if transition.NoOp {
		result.Outcome, result.NoOp = OutcomeAccepted, true
		return result
	}

	if transition.To.RequiresConfirmation() && !req.Confirmed && len(transition.To.RequiredFields()) == 0 && transition.Payload.Notes == "" {
		result.Outcome = OutcomePending
		result.Reason = ReasonNeedsConfirmation
		result.Message = fmt.Sprintf("confirm moving to %s", transition.To)
		return result
	}

	result.Outcome = OutcomeAccepted
	return result
}

func (s *Service) commit(ctx context.Context, tx repository.Store, lead repository.Lead, req MoveRequest) (repository.Lead, error) {
	from := domain.Status(lead.Status)
	payload := domain.NormalizePayload(req.Payload)

	updated, err := tx.Update(ctx, lead.ID, moveParams(req.Destination, payload))
	if err != nil {
		return repository.Lead{}, err
	}

	note := payload.Notes
	if note == "" {
		note = fmt.Sprintf("Movido de %s para %s", from, req.Destination)
	}
	if _, err := tx.AppendAttempt(ctx, lead.ID, repository.AttemptTypeMove, note); err != nil {
		return repository.Lead{}, err
	}

	if _, err := s.tasks.SyncTask(ctx, tx, updated); err != nil {
		return repository.Lead{}, err
	}
	if _, err := s.cadences.StartForStatus(ctx, tx, updated.ID, req.Destination, s.now()); err != nil {
		return repository.Lead{}, err
	}

	return updated, nil
}

func moveParams(dest domain.Status, payload domain.NormalizedPayload) repository.UpdateLeadParams {
	status := string(dest)
	params := repository.UpdateLeadParams{Status: &status}

	switch dest {
	case domain.StatusScheduled:
		params.AppointmentAt = payload.AppointmentDate
	case domain.StatusNegotiation:
		params.ProposedValue = payload.ProposedValue
	case domain.StatusWon:
		params.EnrollmentValue = payload.EnrollmentValue
		if payload.PaymentMethod != "" {
			params.PaymentMethod = &payload.PaymentMethod
		}
	case domain.StatusClosed:
		if payload.Notes != "" {
			params.LossReason = &payload.Notes
		}
	}

	return params
}

func malformedRaw(p domain.MovePayload, field domain.Field) string {
	switch field {
	case domain.FieldProposedValue:
		return p.ProposedValue
	case domain.FieldEnrollmentValue:
		return p.EnrollmentValue
	case domain.FieldAppointmentDate:
		return p.AppointmentDate
	default:
		return ""
	}
}
