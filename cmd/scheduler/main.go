package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads"
	leadrepo "franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/internal/scheduler"
	"franchise_crm_backend/internal/webhook"
	"franchise_crm_backend/platform/config"
	"franchise_crm_backend/platform/db"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	defer eventBus.Wait()

	// Queued webhook records can move a lead into scheduled, so the worker
	// schedules reminders too.
	schedulerClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = schedulerClient.Close() }()

	// Worker-side lead wiring (no HTTP handlers required).
	leadsModule, err := leads.NewModule(leadrepo.New(pool), eventBus, validator.New(), cfg, leads.Deps{Reminders: schedulerClient}, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}
	webhookSvc := webhook.NewService(leadsModule.Reconciler(), nil, nil, log)
	reminderSvc := leadsModule.Reminders()

	worker, err := scheduler.NewWorker(cfg, scheduler.Handlers{
		Reconcile: webhookSvc.HandleTask,
		Reminder: func(ctx context.Context, leadID uuid.UUID, payload scheduler.AppointmentReminderPayload) error {
			return reminderSvc.Remind(ctx, leadID, payload.AppointmentAt)
		},
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
