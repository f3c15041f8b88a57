package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process LeadsRepository for dry runs and tests.
// Transactions are serialized and roll back by restoring a snapshot.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex
	now  func() time.Time

	leads    map[uuid.UUID]Lead
	tasks    map[uuid.UUID]Task
	attempts map[uuid.UUID][]ContactAttempt
	cadences map[uuid.UUID][]CadenceStep
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		leads:    make(map[uuid.UUID]Lead),
		tasks:    make(map[uuid.UUID]Task),
		attempts: make(map[uuid.UUID][]ContactAttempt),
		cadences: make(map[uuid.UUID][]CadenceStep),
	}
}

// SetClock replaces the timestamp source.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *MemoryStore) WithinTx(ctx context.Context, fn func(tx Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	leads    map[uuid.UUID]Lead
	tasks    map[uuid.UUID]Task
	attempts map[uuid.UUID][]ContactAttempt
	cadences map[uuid.UUID][]CadenceStep
}

func (m *MemoryStore) snapshot() memorySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := memorySnapshot{
		leads:    make(map[uuid.UUID]Lead, len(m.leads)),
		tasks:    make(map[uuid.UUID]Task, len(m.tasks)),
		attempts: make(map[uuid.UUID][]ContactAttempt, len(m.attempts)),
		cadences: make(map[uuid.UUID][]CadenceStep, len(m.cadences)),
	}
	for k, v := range m.leads {
		snap.leads[k] = v
	}
	for k, v := range m.tasks {
		snap.tasks[k] = v
	}
	for k, v := range m.attempts {
		snap.attempts[k] = append([]ContactAttempt(nil), v...)
	}
	for k, v := range m.cadences {
		snap.cadences[k] = append([]CadenceStep(nil), v...)
	}
	return snap
}

func (m *MemoryStore) restore(snap memorySnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads, m.tasks, m.attempts, m.cadences = snap.leads, snap.tasks, snap.attempts, snap.cadences
}

func (m *MemoryStore) GetByID(_ context.Context, id uuid.UUID) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	return lead, nil
}

func (m *MemoryStore) GetByExternalID(_ context.Context, externalID string) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range m.leads {
		if lead.ExternalID != nil && *lead.ExternalID == externalID {
			return lead, nil
		}
	}
	return Lead{}, ErrNotFound
}

func (m *MemoryStore) LockByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	return m.GetByID(ctx, id)
}

func (m *MemoryStore) LockByExternalID(ctx context.Context, externalID string) (Lead, error) {
	return m.GetByExternalID(ctx, externalID)
}

func (m *MemoryStore) List(_ context.Context, params ListParams) ([]Lead, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(params.Search))
	matched := make([]Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		if params.Status != "" && lead.Status != params.Status {
			continue
		}
		if params.UnitID != "" && lead.UnitID != params.UnitID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(lead.Name+" "+lead.Phone+" "+lead.Email), search) {
			continue
		}
		matched = append(matched, lead)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].UpdatedAt.After(matched[j].UpdatedAt) })

	page, pageSize := normalizePage(params.Page, params.PageSize)
	start := (page - 1) * pageSize
	if start > len(matched) {
		start = len(matched)
	}
	end := start + pageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], len(matched), nil
}

func (m *MemoryStore) Create(_ context.Context, params CreateLeadParams) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if params.ExternalID != nil {
		for _, existing := range m.leads {
			if existing.ExternalID != nil && *existing.ExternalID == *params.ExternalID {
				return Lead{}, ErrDuplicateExternalID
			}
		}
	}

	now := m.now()
	lead := Lead{
		ID:              uuid.New(),
		ExternalID:      params.ExternalID,
		UnitID:          params.UnitID,
		Status:          params.Status,
		Name:            params.Name,
		Phone:           params.Phone,
		Email:           params.Email,
		CourseInterest:  params.CourseInterest,
		ProposedValue:   params.ProposedValue,
		EnrollmentValue: params.EnrollmentValue,
		PaymentMethod:   params.PaymentMethod,
		LossReason:      params.LossReason,
		AppointmentAt:   params.AppointmentAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	m.leads[lead.ID] = lead
	return lead, nil
}

func (m *MemoryStore) Update(_ context.Context, id uuid.UUID, params UpdateLeadParams) (Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lead, ok := m.leads[id]
	if !ok {
		return Lead{}, ErrNotFound
	}
	if params.IsEmpty() {
		return lead, nil
	}

	setString(&lead.Status, params.Status)
	setString(&lead.UnitID, params.UnitID)
	setString(&lead.Name, params.Name)
	setString(&lead.Phone, params.Phone)
	setString(&lead.Email, params.Email)
	setString(&lead.CourseInterest, params.CourseInterest)
	setString(&lead.PaymentMethod, params.PaymentMethod)
	setString(&lead.LossReason, params.LossReason)
	if params.ProposedValue != nil {
		v := *params.ProposedValue
		lead.ProposedValue = &v
	}
	if params.EnrollmentValue != nil {
		v := *params.EnrollmentValue
		lead.EnrollmentValue = &v
	}
	if params.AppointmentAt != nil {
		at := *params.AppointmentAt
		lead.AppointmentAt = &at
	}
	lead.UpdatedAt = m.now()

	m.leads[id] = lead
	return lead, nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func (m *MemoryStore) GetOpenTask(_ context.Context, leadID uuid.UUID) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		if task.LeadID == leadID && task.Status == TaskStatusOpen {
			return task, nil
		}
	}
	return Task{}, ErrTaskNotFound
}

func (m *MemoryStore) CreateTask(_ context.Context, params CreateTaskParams) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	task := Task{
		ID:        uuid.New(),
		LeadID:    params.LeadID,
		Title:     params.Title,
		DueDate:   params.DueDate,
		Status:    TaskStatusOpen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.tasks[task.ID] = task
	return task, nil
}

func (m *MemoryStore) UpdateTaskTitle(_ context.Context, id uuid.UUID, title string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrTaskNotFound
	}
	task.Title = title
	task.UpdatedAt = m.now()
	m.tasks[id] = task
	return task, nil
}

// CompleteTask marks a task done. Closing tasks is owned by the task UI, so
// only tests call this.
func (m *MemoryStore) CompleteTask(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if task, ok := m.tasks[id]; ok {
		task.Status = TaskStatusDone
		m.tasks[id] = task
	}
}

// Tasks returns every task of a lead, open or done.
func (m *MemoryStore) Tasks(leadID uuid.UUID) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Task
	for _, task := range m.tasks {
		if task.LeadID == leadID {
			out = append(out, task)
		}
	}
	return out
}

func (m *MemoryStore) AppendAttempt(_ context.Context, leadID uuid.UUID, attemptType, result string) (ContactAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := 1
	for _, a := range m.attempts[leadID] {
		if a.AttemptNumber >= next {
			next = a.AttemptNumber + 1
		}
	}
	attempt := ContactAttempt{
		ID:            uuid.New(),
		LeadID:        leadID,
		AttemptNumber: next,
		Result:        result,
		Type:          attemptType,
		CreatedAt:     m.now(),
	}
	m.attempts[leadID] = append(m.attempts[leadID], attempt)
	return attempt, nil
}

func (m *MemoryStore) UpsertImportedAttempt(_ context.Context, leadID uuid.UUID, attemptNumber int, result string) (AttemptWrite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, a := range m.attempts[leadID] {
		if a.AttemptNumber != attemptNumber {
			continue
		}
		if a.Type != AttemptTypeImport {
			return AttemptHeldByMove, nil
		}
		if a.Result == result {
			return AttemptUnchanged, nil
		}
		m.attempts[leadID][i].Result = result
		return AttemptWritten, nil
	}

	m.attempts[leadID] = append(m.attempts[leadID], ContactAttempt{
		ID:            uuid.New(),
		LeadID:        leadID,
		AttemptNumber: attemptNumber,
		Result:        result,
		Type:          AttemptTypeImport,
		CreatedAt:     m.now(),
	})
	return AttemptWritten, nil
}

func (m *MemoryStore) ListAttempts(_ context.Context, leadID uuid.UUID) ([]ContactAttempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]ContactAttempt(nil), m.attempts[leadID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptNumber < out[j].AttemptNumber })
	return out, nil
}

func (m *MemoryStore) ListCadenceSteps(_ context.Context, leadID uuid.UUID) ([]CadenceStep, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := append([]CadenceStep(nil), m.cadences[leadID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CadenceType != out[j].CadenceType {
			return out[i].CadenceType < out[j].CadenceType
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *MemoryStore) CreateCadenceSteps(_ context.Context, steps []CreateCadenceStepParams) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, s := range steps {
		if m.hasCadenceStep(s) {
			continue
		}
		m.cadences[s.LeadID] = append(m.cadences[s.LeadID], CadenceStep{
			ID:          uuid.New(),
			LeadID:      s.LeadID,
			CadenceType: s.CadenceType,
			StepName:    s.StepName,
			Position:    s.Position,
			Status:      s.Status,
			DueAt:       s.DueAt,
			CreatedAt:   m.now(),
		})
		inserted++
	}
	return inserted, nil
}

func (m *MemoryStore) hasCadenceStep(s CreateCadenceStepParams) bool {
	for _, existing := range m.cadences[s.LeadID] {
		if existing.CadenceType == s.CadenceType && existing.StepName == s.StepName {
			return true
		}
	}
	return false
}

var _ LeadsRepository = (*MemoryStore)(nil)
