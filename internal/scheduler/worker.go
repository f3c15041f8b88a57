package scheduler

import (
	"context"
	"fmt"

	"franchise_crm_backend/platform/config"
	"franchise_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ReconcileFunc reconciles one queued webhook record.
type ReconcileFunc func(ctx context.Context, payload ReconcileLeadPayload) error

// ReminderFunc handles a due appointment reminder.
type ReminderFunc func(ctx context.Context, leadID uuid.UUID, payload AppointmentReminderPayload) error

// Handlers are the task handlers a worker serves. Nil handlers drop their tasks.
type Handlers struct {
	Reconcile ReconcileFunc
	Reminder  ReminderFunc
}

type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	handlers Handlers
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers Handlers, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	w := &Worker{
		server:   server,
		handlers: handlers,
		log:      log,
	}
	w.mux = w.routes()
	return w, nil
}

func (w *Worker) routes() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskLeadReconcile, w.handleLeadReconcile)
	mux.HandleFunc(TaskAppointmentReminder, w.handleAppointmentReminder)
	return mux
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleLeadReconcile(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseLeadReconcilePayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if w.handlers.Reconcile == nil {
		return nil
	}
	return w.handlers.Reconcile(ctx, payload)
}

func (w *Worker) handleAppointmentReminder(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAppointmentReminderPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	if w.handlers.Reminder == nil {
		return nil
	}
	return w.handlers.Reminder(ctx, leadID, payload)
}
