// Package reminders schedules the appointment confirmation step a day
// before a scheduled meeting.
package reminders

import (
	"context"
	"time"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/cadence"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/platform/logger"

	"github.com/google/uuid"
)

// Advance is how long before the appointment the reminder runs.
const Advance = 24 * time.Hour

// Scheduler queues delayed reminders.
type Scheduler interface {
	ScheduleAppointmentReminder(ctx context.Context, leadID uuid.UUID, appointmentAt, runAt time.Time) error
}

type Service struct {
	repo      repository.Transactor
	cadences  *cadence.Catalog
	scheduler Scheduler
	log       *logger.Logger
	now       func() time.Time
}

func New(repo repository.Transactor, cadences *cadence.Catalog, scheduler Scheduler, log *logger.Logger) *Service {
	return &Service{repo: repo, cadences: cadences, scheduler: scheduler, log: log, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Subscribe registers the reminder scheduler on bus.
func (s *Service) Subscribe(bus events.Bus) {
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(s.handleStatusChanged))
}

func (s *Service) handleStatusChanged(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadStatusChanged)
	if !ok || e.NewStatus != string(domain.StatusScheduled) || e.AppointmentAt == nil {
		return nil
	}

	now := s.now()
	appointmentAt := *e.AppointmentAt
	if !appointmentAt.After(now) {
		return nil
	}
	runAt := appointmentAt.Add(-Advance)
	if runAt.Before(now) {
		runAt = now
	}

	if err := s.scheduler.ScheduleAppointmentReminder(ctx, e.LeadID, appointmentAt, runAt); err != nil {
		s.log.Error("schedule appointment reminder failed", "leadId", e.LeadID, "error", err)
		return err
	}
	s.log.Info("appointment reminder scheduled", "leadId", e.LeadID, "runAt", runAt)
	return nil
}

// Remind logs the appointment confirmation step when the lead is still
// scheduled for appointmentAt. Stale reminders are dropped.
func (s *Service) Remind(ctx context.Context, leadID uuid.UUID, appointmentAt time.Time) error {
	log := s.log.WithContext(ctx).With("leadId", leadID)

	var inserted int
	err := s.repo.WithinTx(ctx, func(tx repository.Store) error {
		lead, err := tx.LockByID(ctx, leadID)
		if err != nil {
			return err
		}
		if lead.Status != string(domain.StatusScheduled) || lead.AppointmentAt == nil || !lead.AppointmentAt.Equal(appointmentAt) {
			return nil
		}
		inserted, err = s.cadences.Start(ctx, tx, leadID, cadence.TypeAppointmentConfirmation, s.now())
		return err
	})
	if err != nil {
		log.DatabaseError("appointment reminder", err)
		return err
	}

	if inserted == 0 {
		log.Info("appointment reminder skipped")
		return nil
	}
	log.Info("appointment confirmation logged")
	return nil
}
