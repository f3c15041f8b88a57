// Package management handles live lead operations: creation from the form
// and the read models behind the board.
package management

import (
	"context"
	"errors"
	"strings"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/internal/leads/transport"
	"franchise_crm_backend/platform/apperr"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/phone"
	"franchise_crm_backend/platform/sanitize"

	"github.com/google/uuid"
)

const msgLeadNotFound = "lead not found"

// Repository defines the data access the management service needs.
type Repository interface {
	repository.LeadReader
	repository.AttemptLog
	repository.Transactor
}

// TaskSyncer keeps a lead's open task in line with its status.
type TaskSyncer interface {
	SyncTask(ctx context.Context, tasks repository.TaskStore, lead repository.Lead) (reconcile.TaskAction, error)
}

// Service handles lead management operations.
type Service struct {
	repo     Repository
	tasks    TaskSyncer
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a new lead management service.
func New(repo Repository, tasks TaskSyncer, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, tasks: tasks, eventBus: eventBus, log: log}
}

// Create stores a lead submitted through the form. It always starts in
// the new column with an "Iniciar Conexão" task. unitID, when set, comes
// from the caller's token and overrides the request.
func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest, unitID string) (transport.LeadResponse, error) {
	normalized, ok := phone.Parse(req.Phone)
	if !ok {
		return transport.LeadResponse{}, apperr.Validation("invalid phone number").WithDetails([]string{"phone: e164"})
	}

	params := repository.CreateLeadParams{
		UnitID:         strings.TrimSpace(req.UnitID),
		Status:         string(domain.StatusNew),
		Name:           sanitize.Text(req.Name),
		Phone:          normalized,
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		CourseInterest: sanitize.Text(req.CourseInterest),
	}
	if unitID != "" {
		params.UnitID = unitID
	}
	if externalID := strings.TrimSpace(req.ExternalID); externalID != "" {
		params.ExternalID = &externalID
	}

	var lead repository.Lead
	err := s.repo.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		if lead, err = tx.Create(ctx, params); err != nil {
			return err
		}
		_, err = s.tasks.SyncTask(ctx, tx, lead)
		return err
	})
	if errors.Is(err, repository.ErrDuplicateExternalID) {
		return transport.LeadResponse{}, apperr.Conflict("a lead with this external id already exists")
	}
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.WithContext(ctx).Info("lead created", "leadId", lead.ID, "unitId", lead.UnitID)
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.LeadCreated{
			BaseEvent:  events.NewBaseEvent(),
			LeadID:     lead.ID,
			ExternalID: strings.TrimSpace(req.ExternalID),
			UnitID:     lead.UnitID,
			Status:     lead.Status,
			Source:     events.SourceForm,
		})
	}

	return ToLeadResponse(lead), nil
}

// GetByID retrieves a lead. Leads outside the caller's unit are reported
// as missing.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID, unitID string) (transport.LeadResponse, error) {
	lead, err := s.get(ctx, id, unitID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return ToLeadResponse(lead), nil
}

// List returns a page of leads, newest activity first.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest, unitID string) (transport.LeadListResponse, error) {
	params := repository.ListParams{
		Status:   req.Status,
		UnitID:   unitID,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	leads, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	page, pageSize := req.Page, req.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items := make([]transport.LeadResponse, len(leads))
	for i, lead := range leads {
		items[i] = ToLeadResponse(lead)
	}
	return transport.LeadListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// ListAttempts returns a lead's contact attempts in attempt order.
func (s *Service) ListAttempts(ctx context.Context, id uuid.UUID, unitID string) ([]transport.ContactAttemptResponse, error) {
	if _, err := s.get(ctx, id, unitID); err != nil {
		return nil, err
	}

	attempts, err := s.repo.ListAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]transport.ContactAttemptResponse, len(attempts))
	for i, a := range attempts {
		out[i] = transport.ContactAttemptResponse{
			AttemptNumber: a.AttemptNumber,
			Result:        a.Result,
			Type:          a.Type,
			CreatedAt:     a.CreatedAt,
		}
	}
	return out, nil
}

// Authorize reports whether the caller's unit may act on lead id.
func (s *Service) Authorize(ctx context.Context, id uuid.UUID, unitID string) error {
	_, err := s.get(ctx, id, unitID)
	return err
}

func (s *Service) get(ctx context.Context, id uuid.UUID, unitID string) (repository.Lead, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	if err != nil {
		return repository.Lead{}, err
	}
	if unitID != "" && lead.UnitID != unitID {
		return repository.Lead{}, apperr.NotFound(msgLeadNotFound)
	}
	return lead, nil
}
