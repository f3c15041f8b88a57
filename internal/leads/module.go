// Package leads provides the lead lifecycle bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"fmt"

	"franchise_crm_backend/internal/events"
	apphttp "franchise_crm_backend/internal/http"
	"franchise_crm_backend/internal/leads/board"
	"franchise_crm_backend/internal/leads/cadence"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/handler"
	"franchise_crm_backend/internal/leads/importer"
	"franchise_crm_backend/internal/leads/management"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/internal/leads/reminders"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/platform/config"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/validator"

	govalidator "github.com/go-playground/validator/v10"
)

// Deps are the optional collaborators of the module. Nil fields disable the
// matching feature.
type Deps struct {
	// Archiver keeps a copy of uploaded spreadsheets.
	Archiver handler.Archiver
	// Reminders queues appointment confirmation reminders.
	Reminders reminders.Scheduler
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	management *management.Service
	reconciler *reconcile.Service
	board      *board.Service
	runner     *importer.Runner
	reminders  *reminders.Service
}

// NewModule creates and initializes the leads module with all its dependencies.
// store is the Postgres repository in production and a
// repository.MemoryStore for dry runs.
func NewModule(store repository.LeadsRepository, eventBus events.Bus, val *validator.Validator, cfg config.LeadEngineConfig, deps Deps, log *logger.Logger) (*Module, error) {
	cadences, err := cadence.Default()
	if err != nil {
		return nil, fmt.Errorf("load cadences: %w", err)
	}
	if err := RegisterValidations(val); err != nil {
		return nil, err
	}

	classifier := domain.NewClassifier(cfg.GetAttemptCeiling())
	reconciler := reconcile.New(store, classifier, cadences, eventBus, log)
	boardSvc := board.New(store, reconciler, cadences, eventBus, log)
	mgmtSvc := management.New(store, reconciler, eventBus, log)
	runner := importer.NewRunner(reconciler, cfg.GetImportWorkers(), eventBus, log)
	reminderSvc := reminders.New(store, cadences, deps.Reminders, log)

	// Reminders need the queue; without it the confirmation step is only
	// logged when the worker runs.
	if deps.Reminders != nil {
		reminderSvc.Subscribe(eventBus)
	} else {
		log.Warn("reminder scheduler not configured; appointment reminders disabled")
	}

	return &Module{
		handler:    handler.New(mgmtSvc, boardSvc, runner, deps.Archiver, val, cfg.GetMaxImportFileSize(), log),
		management: mgmtSvc,
		reconciler: reconciler,
		board:      boardSvc,
		runner:     runner,
		reminders:  reminderSvc,
	}, nil
}

// RegisterValidations adds the lead-specific validation tags to val.
func RegisterValidations(val *validator.Validator) error {
	err := val.RegisterValidation("leadstatus", func(fl govalidator.FieldLevel) bool {
		_, ok := domain.ParseStatus(fl.Field().String())
		return ok
	})
	if err != nil {
		return fmt.Errorf("register leadstatus validation: %w", err)
	}
	return nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// ManagementService returns the lead management service for external use.
func (m *Module) ManagementService() *management.Service {
	return m.management
}

// Reconciler returns the reconciler shared by imports and webhooks.
func (m *Module) Reconciler() *reconcile.Service {
	return m.reconciler
}

// Board returns the interactive move coordinator.
func (m *Module) Board() *board.Service {
	return m.board
}

// Runner returns the batch import runner.
func (m *Module) Runner() *importer.Runner {
	return m.runner
}

// Reminders returns the appointment reminder service for the worker.
func (m *Module) Reminders() *reminders.Service {
	return m.reminders
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// All leads routes require authentication
	m.handler.RegisterRoutes(ctx.Protected.Group("/crm/leads"))
	m.handler.RegisterImportRoutes(ctx.Protected.Group("/crm/imports"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
