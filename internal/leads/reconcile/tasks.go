package reconcile

import (
	"context"
	"errors"
	"time"

	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/repository"
)

// TaskAction describes what task synchronization did.
type TaskAction string

const (
	TaskCreated         TaskAction = "created"
	TaskRetitled        TaskAction = "retitled"
	TaskUnchanged       TaskAction = "unchanged"
	TaskSkippedTerminal TaskAction = "skipped_terminal"
)

const defaultTaskDue = 24 * time.Hour

// SyncTask keeps exactly one open task for a lead in a non-terminal status,
// titled after the status. An existing open task only has its title
// updated. Terminal leads are left alone, including any open task.
func (s *Service) SyncTask(ctx context.Context, tasks repository.TaskStore, lead repository.Lead) (TaskAction, error) {
	status := domain.Status(lead.Status)
	title, ok := domain.TaskTitle(status, lead.Name)
	if !ok {
		return TaskSkippedTerminal, nil
	}

	open, err := tasks.GetOpenTask(ctx, lead.ID)
	if errors.Is(err, repository.ErrTaskNotFound) {
		if _, err := tasks.CreateTask(ctx, repository.CreateTaskParams{
			LeadID:  lead.ID,
			Title:   title,
			DueDate: s.taskDueDate(lead, status),
		}); err != nil {
			return "", err
		}
		return TaskCreated, nil
	}
	if err != nil {
		return "", err
	}

	if open.Title == title {
		return TaskUnchanged, nil
	}
	if _, err := tasks.UpdateTaskTitle(ctx, open.ID, title); err != nil {
		return "", err
	}
	return TaskRetitled, nil
}

func (s *Service) taskDueDate(lead repository.Lead, status domain.Status) time.Time {
	now := s.now()
	if status == domain.StatusScheduled && lead.AppointmentAt != nil && lead.AppointmentAt.After(now) {
		return *lead.AppointmentAt
	}
	return now.Add(defaultTaskDue)
}
