package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"franchise_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

func TestWorkerRoutesReconcileTasks(t *testing.T) {
	var got ReconcileLeadPayload
	w := &Worker{log: logger.Discard(), handlers: Handlers{
		Reconcile: func(_ context.Context, payload ReconcileLeadPayload) error {
			got = payload
			return nil
		},
	}}

	task, err := NewLeadReconcileTask(ReconcileLeadPayload{
		DeliveryID: "d-1",
		ExternalID: "crm-9",
		Columns:    map[string]string{"Etapa do lead": "Novo"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := w.routes().ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ExternalID != "crm-9" || got.Columns["Etapa do lead"] != "Novo" {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestWorkerRoutesReminderTasks(t *testing.T) {
	leadID := uuid.New()
	at := time.Date(2026, 7, 1, 15, 0, 0, 0, time.UTC)

	var gotLead uuid.UUID
	var gotAt time.Time
	w := &Worker{log: logger.Discard(), handlers: Handlers{
		Reminder: func(_ context.Context, id uuid.UUID, payload AppointmentReminderPayload) error {
			gotLead, gotAt = id, payload.AppointmentAt
			return nil
		},
	}}

	task, _ := NewAppointmentReminderTask(AppointmentReminderPayload{LeadID: leadID.String(), AppointmentAt: at})
	if err := w.routes().ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLead != leadID || !gotAt.Equal(at) {
		t.Fatalf("got %s at %s", gotLead, gotAt)
	}
}

func TestWorkerSkipsRetryOnBadPayload(t *testing.T) {
	w := &Worker{log: logger.Discard()}

	err := w.routes().ProcessTask(context.Background(), asynq.NewTask(TaskAppointmentReminder, []byte(`{"leadId":"nope"}`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}

	err = w.routes().ProcessTask(context.Background(), asynq.NewTask(TaskLeadReconcile, []byte(`not json`)))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := redisClientOpt("rediss://:secret@cache.internal:6380/2", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Fatalf("unexpected options %+v", opt)
	}
	if opt.TLSConfig == nil || !opt.TLSConfig.InsecureSkipVerify {
		t.Fatal("expected insecure TLS config")
	}
}
