package reconcile

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"franchise_crm_backend/internal/events"
	"franchise_crm_backend/internal/leads/cadence"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/platform/apperr"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/phone"
)

const (
	msgUnexpectedErr = "unexpected error: %v"
	testExternalID   = "row-42"
)

var fixedNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *repository.MemoryStore) {
	t.Helper()

	cadences, err := cadence.Default()
	if err != nil {
		t.Fatalf("load cadences: %v", err)
	}
	store := repository.NewMemoryStore()
	store.SetClock(func() time.Time { return fixedNow })

	svc := New(store, domain.NewClassifier(domain.DefaultAttemptCeiling), cadences, nil, logger.Discard())
	svc.SetClock(func() time.Time { return fixedNow })
	return svc, store
}

func reconcile(t *testing.T, svc *Service, fields Fields, label string) Result {
	t.Helper()
	result, err := svc.Reconcile(context.Background(), testExternalID, fields, label, fields.Signals())
	if err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}
	return result
}

func openTasks(store *repository.MemoryStore, result Result) []repository.Task {
	var open []repository.Task
	for _, task := range store.Tasks(result.Lead.ID) {
		if task.Status == repository.TaskStatusOpen {
			open = append(open, task)
		}
	}
	return open
}

func TestReconcileHappyPathImport(t *testing.T) {
	svc, store := newTestService(t)

	result := reconcile(t, svc, Fields{Name: "Maria Souza", Phone: "(11) 98765-4321"}, "Entrevista agendada")

	if !result.Created {
		t.Fatal("expected lead to be created")
	}
	if result.Lead.Status != string(domain.StatusScheduled) {
		t.Fatalf("status = %s, want %s", result.Lead.Status, domain.StatusScheduled)
	}
	if result.TaskAction != TaskCreated {
		t.Fatalf("task action = %s, want %s", result.TaskAction, TaskCreated)
	}

	tasks := openTasks(store, result)
	if len(tasks) != 1 || tasks[0].Title != "Reunião: Maria Souza" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
	if !result.Lead.CreatedAt.Equal(fixedNow) {
		t.Errorf("createdAt = %s, want %s", result.Lead.CreatedAt, fixedNow)
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)
	fields := Fields{
		Name:           "João",
		Phone:          "11987654321",
		ProposedValue:  "1.500,00",
		AttemptResults: []string{"não atendeu", "caixa postal"},
	}

	first := reconcile(t, svc, fields, "Negociação")
	second := reconcile(t, svc, fields, "Negociação")

	if second.Created || second.Changed {
		t.Fatalf("second run should change nothing, got created=%v changed=%v", second.Created, second.Changed)
	}
	if second.TaskAction != TaskUnchanged || second.AttemptsLogged != 0 || second.CadenceSteps != 0 {
		t.Fatalf("second run wrote side effects: %+v", second)
	}
	if first.Lead.ID != second.Lead.ID || !first.Lead.UpdatedAt.Equal(second.Lead.UpdatedAt) {
		t.Fatalf("lead drifted between runs: %+v vs %+v", first.Lead, second.Lead)
	}
	if *second.Lead.ProposedValue != 1500 {
		t.Fatalf("proposedValue = %v, want 1500", *second.Lead.ProposedValue)
	}
	if n := len(store.Tasks(first.Lead.ID)); n != 1 {
		t.Fatalf("expected exactly one task, got %d", n)
	}
	attempts, _ := store.ListAttempts(context.Background(), first.Lead.ID)
	if len(attempts) != 2 {
		t.Fatalf("expected 2 imported attempts, got %d", len(attempts))
	}
	if first.CadenceSteps == 0 {
		t.Fatal("expected negotiation follow-up cadence on first run")
	}
}

func TestReconcileReportsAttemptHeldByMove(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	created := reconcile(t, svc, Fields{Name: "Ana", Phone: "11987654321"}, "Novo")
	if _, err := store.AppendAttempt(ctx, created.Lead.ID, repository.AttemptTypeMove, "ligou"); err != nil {
		t.Fatalf(msgUnexpectedErr, err)
	}

	result := reconcile(t, svc, Fields{Name: "Ana", Phone: "11987654321", AttemptResults: []string{"não atendeu"}}, "Novo")

	if result.AttemptsLogged != 0 {
		t.Fatalf("attemptsLogged = %d, want 0", result.AttemptsLogged)
	}
	if len(result.AttemptsSkipped) != 1 || result.AttemptsSkipped[0] != 1 {
		t.Fatalf("attemptsSkipped = %v, want [1]", result.AttemptsSkipped)
	}
	attempts, _ := store.ListAttempts(ctx, created.Lead.ID)
	if len(attempts) != 1 || attempts[0].Type != repository.AttemptTypeMove || attempts[0].Result != "ligou" {
		t.Fatalf("board attempt was overwritten: %+v", attempts)
	}
}

func TestReconcileBlankDoesNotOverwrite(t *testing.T) {
	svc, _ := newTestService(t)

	first := reconcile(t, svc, Fields{Name: "Ana", Phone: "11987654321", Email: "ana@example.com"}, "Novo lead")
	second := reconcile(t, svc, Fields{Name: "", Phone: "", Email: "  "}, "Conectando")

	if second.Lead.Phone != phone.NormalizeE164("11987654321") || second.Lead.Phone != first.Lead.Phone {
		t.Fatalf("phone overwritten: %q", second.Lead.Phone)
	}
	if second.Lead.Name != "Ana" || second.Lead.Email != "ana@example.com" {
		t.Fatalf("descriptive fields overwritten: %+v", second.Lead)
	}
	if second.Lead.Status != string(domain.StatusConnecting) {
		t.Fatalf("status = %s, want %s", second.Lead.Status, domain.StatusConnecting)
	}
	if !second.Lead.CreatedAt.Equal(first.Lead.CreatedAt) {
		t.Fatal("createdAt must be preserved across re-imports")
	}
}

func TestReconcileRetitlesExistingTaskOnly(t *testing.T) {
	svc, store := newTestService(t)

	first := reconcile(t, svc, Fields{Name: "Caio"}, "Novo")
	before := openTasks(store, first)[0]

	svc.SetClock(func() time.Time { return fixedNow.Add(72 * time.Hour) })
	second := reconcile(t, svc, Fields{Name: "Caio"}, "Conectando")

	if second.TaskAction != TaskRetitled {
		t.Fatalf("task action = %s, want %s", second.TaskAction, TaskRetitled)
	}
	after := openTasks(store, second)
	if len(after) != 1 {
		t.Fatalf("expected one open task, got %d", len(after))
	}
	if after[0].ID != before.ID || !after[0].DueDate.Equal(before.DueDate) {
		t.Fatalf("task identity or due date changed: %+v -> %+v", before, after[0])
	}
	if after[0].Title != "Retentativa: Caio" {
		t.Fatalf("title = %q", after[0].Title)
	}
}

func TestReconcileTerminalLeavesTaskUntouched(t *testing.T) {
	svc, store := newTestService(t)

	first := reconcile(t, svc, Fields{Name: "Bia"}, "Conectando")
	second := reconcile(t, svc, Fields{Name: "Bia", PaymentMethod: "Cartão", EnrollmentValue: "900"}, "Conectando")

	if second.Lead.Status != string(domain.StatusWon) {
		t.Fatalf("status = %s, want won", second.Lead.Status)
	}
	if second.TaskAction != TaskSkippedTerminal {
		t.Fatalf("task action = %s, want %s", second.TaskAction, TaskSkippedTerminal)
	}
	tasks := openTasks(store, first)
	if len(tasks) != 1 || tasks[0].Title != "Retentativa: Bia" {
		t.Fatalf("open task should be left as is, got %+v", tasks)
	}
	if second.Lead.PaymentMethod != "Cartão" || second.Lead.EnrollmentValue == nil || *second.Lead.EnrollmentValue != 900 {
		t.Fatalf("won financials not stored: %+v", second.Lead)
	}
}

func TestReconcileNoTaskForNewTerminalLead(t *testing.T) {
	svc, store := newTestService(t)

	result := reconcile(t, svc, Fields{Name: "Davi", LossReason: "Sem interesse"}, "Entrevista")
	if result.Lead.Status != string(domain.StatusClosed) || result.Lead.LossReason != "Sem interesse" {
		t.Fatalf("unexpected lead %+v", result.Lead)
	}
	if n := len(store.Tasks(result.Lead.ID)); n != 0 {
		t.Fatalf("expected no task for closed lead, got %d", n)
	}
}

func TestReconcileTerminalNotDowngradedByLabel(t *testing.T) {
	svc, _ := newTestService(t)

	reconcile(t, svc, Fields{Name: "Eva", PaymentMethod: "Boleto"}, "Matriculado")
	second := reconcile(t, svc, Fields{Name: "Eva"}, "Novo lead")

	if second.Lead.Status != string(domain.StatusWon) || !second.StatusGuarded {
		t.Fatalf("won lead downgraded by label: status=%s guarded=%v", second.Lead.Status, second.StatusGuarded)
	}

	third := reconcile(t, svc, Fields{Name: "Eva", LossReason: "Cancelou matrícula"}, "")
	if third.Lead.Status != string(domain.StatusClosed) {
		t.Fatalf("loss evidence should move a terminal lead, got %s", third.Lead.Status)
	}
}

func TestReconcileZeroAmountNeverOverwrites(t *testing.T) {
	svc, _ := newTestService(t)

	reconcile(t, svc, Fields{Name: "Fabi", ProposedValue: "2.000,00"}, "Negociação")
	second := reconcile(t, svc, Fields{Name: "Fabi", ProposedValue: "abc"}, "Negociação")

	if second.Lead.ProposedValue == nil || *second.Lead.ProposedValue != 2000 {
		t.Fatalf("malformed amount replaced stored value: %v", second.Lead.ProposedValue)
	}
}

func TestReconcileMalformedAmountOnCreateIsZero(t *testing.T) {
	svc, _ := newTestService(t)

	result := reconcile(t, svc, Fields{Name: "Gil", ProposedValue: "abc"}, "Negociação")
	if result.Lead.ProposedValue == nil || *result.Lead.ProposedValue != 0 {
		t.Fatalf("expected proposedValue 0, got %v", result.Lead.ProposedValue)
	}
}

func TestReconcileMissingIdentity(t *testing.T) {
	svc, store := newTestService(t)

	_, err := svc.Reconcile(context.Background(), "   ", Fields{Name: "Sem ID"}, "Novo", domain.Signals{})
	if !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", apperr.GetKind(err))
	}
	if _, total, _ := store.List(context.Background(), repository.ListParams{}); total != 0 {
		t.Fatalf("nothing should be persisted, found %d leads", total)
	}
}

func TestReconcileAttemptCeilingCloses(t *testing.T) {
	svc, _ := newTestService(t)

	fields := Fields{Name: "Hugo", AttemptResults: []string{"a", "b", "c", "d", "e"}}
	result := reconcile(t, svc, fields, "Novo lead")
	if result.Lead.Status != string(domain.StatusClosed) {
		t.Fatalf("status = %s, want closed", result.Lead.Status)
	}
	if result.Classification.Rule != domain.RuleAttemptCeiling {
		t.Fatalf("rule = %s", result.Classification.Rule)
	}
}

func TestReconcilePublishesStatusChange(t *testing.T) {
	svc, _ := newTestService(t)
	bus := events.NewInMemoryBus(logger.Discard())
	svc.eventBus = bus

	var (
		mu      sync.Mutex
		changes []events.LeadStatusChanged
	)
	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, e.(events.LeadStatusChanged))
		return nil
	}))

	reconcile(t, svc, Fields{Name: "Lia"}, "Novo lead")
	reconcile(t, svc, Fields{Name: "Lia", Source: events.SourceWebhook}, "Entrevista agendada")
	reconcile(t, svc, Fields{Name: "Lia", Source: events.SourceWebhook}, "Entrevista agendada")
	bus.Wait()

	if len(changes) != 1 {
		t.Fatalf("expected one status change event, got %d", len(changes))
	}
	got := changes[0]
	if got.OldStatus != string(domain.StatusNew) || got.NewStatus != string(domain.StatusScheduled) || got.Source != events.SourceWebhook {
		t.Fatalf("unexpected event %+v", got)
	}
}

func TestReconcileRollsBackOnStoreFailure(t *testing.T) {
	cadences, _ := cadence.Default()
	store := &failingTaskStore{MemoryStore: repository.NewMemoryStore()}
	svc := New(store, domain.NewClassifier(0), cadences, nil, logger.Discard())

	_, err := svc.Reconcile(context.Background(), testExternalID, Fields{Name: "Ivo"}, "Novo", domain.Signals{})
	if err == nil {
		t.Fatal("expected task failure to surface")
	}
	if _, err := store.GetByExternalID(context.Background(), testExternalID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("lead should be rolled back, got %v", err)
	}
}

type failingTaskStore struct {
	*repository.MemoryStore
}

func (f *failingTaskStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return f.MemoryStore.WithinTx(ctx, func(tx repository.Store) error {
		return fn(f)
	})
}

func (f *failingTaskStore) CreateTask(context.Context, repository.CreateTaskParams) (repository.Task, error) {
	return repository.Task{}, errors.New("task sink unavailable")
}
