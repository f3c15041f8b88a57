package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/importer"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/internal/scheduler"
	"franchise_crm_backend/platform/apperr"
	"franchise_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Delivery statuses reported back to the caller.
const (
	StatusQueued     = "queued"
	StatusReconciled = "reconciled"
	StatusDuplicate  = "duplicate"
)

// Reconciler is the lead reconciler.
type Reconciler = importer.Reconciler

// Enqueuer hands records to the background worker.
type Enqueuer interface {
	EnqueueReconcile(ctx context.Context, payload scheduler.ReconcileLeadPayload) error
}

// Service accepts inbound lead records.
type Service struct {
	reconciler Reconciler
	enqueuer   Enqueuer
	guard      DeliveryGuard
	log        *logger.Logger
}

// NewService creates the webhook service. With a nil enqueuer records are
// reconciled inline; with a nil guard deliveries are not deduplicated.
func NewService(reconciler Reconciler, enqueuer Enqueuer, guard DeliveryGuard, log *logger.Logger) *Service {
	if guard == nil {
		guard = noDeliveryGuard{}
	}
	return &Service{reconciler: reconciler, enqueuer: enqueuer, guard: guard, log: log}
}

// AcceptResponse is returned to the webhook caller.
type AcceptResponse struct {
	Status     string     `json:"status"`
	LeadID     *uuid.UUID `json:"leadId,omitempty"`
	Created    bool       `json:"created,omitempty"`
	LeadStatus string     `json:"leadStatus,omitempty"`
}

// Accept takes one delivery. Repeated delivery ids are acknowledged without
// processing.
func (s *Service) Accept(ctx context.Context, payload scheduler.ReconcileLeadPayload) (AcceptResponse, error) {
	log := s.log.WithContext(ctx).With("deliveryId", payload.DeliveryID)

	if payload.DeliveryID != "" {
		first, err := s.guard.FirstDelivery(ctx, payload.DeliveryID)
		if err != nil {
			log.Warn("delivery dedupe unavailable", "error", err)
		} else if !first {
			log.Info("duplicate webhook delivery dropped")
			return AcceptResponse{Status: StatusDuplicate}, nil
		}
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueReconcile(ctx, payload); err != nil {
			s.forget(ctx, payload.DeliveryID)
			return AcceptResponse{}, fmt.Errorf("enqueue webhook record: %w", err)
		}
		return AcceptResponse{Status: StatusQueued}, nil
	}

	result, err := s.Process(ctx, payload)
	if err != nil {
		s.forget(ctx, payload.DeliveryID)
		return AcceptResponse{}, err
	}
	return AcceptResponse{
		Status:     StatusReconciled,
		LeadID:     &result.Lead.ID,
		Created:    result.Created,
		LeadStatus: result.Lead.Status,
	}, nil
}

// Process reconciles a webhook record.
func (s *Service) Process(ctx context.Context, payload scheduler.ReconcileLeadPayload) (reconcile.Result, error) {
	record := importer.RecordFromColumns(payload.ExternalID, payload.Columns)
	record.Fields.Source = events.SourceWebhook
	return s.reconciler.Reconcile(ctx, record.ExternalID, record.Fields, record.Label, record.Fields.Signals())
}

// HandleTask is the worker entry point for queued records. Records without
// identity are not retried.
func (s *Service) HandleTask(ctx context.Context, payload scheduler.ReconcileLeadPayload) error {
	_, err := s.Process(ctx, payload)
	if errors.Is(err, reconcile.ErrMissingIdentity) {
		s.log.WithContext(ctx).Warn("webhook record without identity dropped", "deliveryId", payload.DeliveryID)
		return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
	}
	return err
}

func (s *Service) forget(ctx context.Context, deliveryID string) {
	if deliveryID == "" {
		return
	}
	if err := s.guard.Forget(ctx, deliveryID); err != nil {
		s.log.WithContext(ctx).Warn("forget webhook delivery failed", "deliveryId", deliveryID, "error", err)
	}
}

func normalizeColumns(fields map[string]string) (map[string]string, error) {
	columns := make(map[string]string, len(fields))
	for name, value := range fields {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		columns[name] = value
	}
	if len(columns) == 0 {
		return nil, apperr.Validation("fields must not be empty")
	}
	return columns, nil
}
