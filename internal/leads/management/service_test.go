package management

import (
	"context"
	"testing"

	"franchise_crm_backend/internal/leads/cadence"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/reconcile"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/internal/leads/transport"
	"franchise_crm_backend/platform/apperr"
	"franchise_crm_backend/platform/logger"

	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, *repository.MemoryStore) {
	t.Helper()
	cadences, err := cadence.Default()
	if err != nil {
		t.Fatalf("load cadences: %v", err)
	}
	store := repository.NewMemoryStore()
	reconciler := reconcile.New(store, domain.NewClassifier(0), cadences, nil, logger.Discard())
	return New(store, reconciler, nil, logger.Discard()), store
}

func TestCreateStartsInNewWithTask(t *testing.T) {
	svc, store := newTestService(t)

	lead, err := svc.Create(context.Background(), transport.CreateLeadRequest{
		Name:  "  Júlia   Prado ",
		Phone: "(21) 99876-5432",
		Email: "Julia@Example.com",
	}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lead.Status != string(domain.StatusNew) || lead.Phone != "+5521998765432" {
		t.Fatalf("unexpected lead %+v", lead)
	}
	if lead.Name != "Júlia Prado" || lead.Email != "julia@example.com" {
		t.Fatalf("fields not cleaned: %+v", lead)
	}
	tasks := store.Tasks(lead.ID)
	if len(tasks) != 1 || tasks[0].Title != "Iniciar Conexão: Júlia Prado" {
		t.Fatalf("unexpected tasks %+v", tasks)
	}
}

func TestCreateRejectsInvalidPhone(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), transport.CreateLeadRequest{Name: "X", Phone: "12345"}, "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateDuplicateExternalIDConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	req := transport.CreateLeadRequest{Name: "Y", Phone: "11987654321", ExternalID: "form-1"}

	if _, err := svc.Create(context.Background(), req, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Create(context.Background(), req, ""); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGetByIDScopesToUnit(t *testing.T) {
	svc, _ := newTestService(t)
	lead, err := svc.Create(context.Background(), transport.CreateLeadRequest{Name: "Z", Phone: "11987654321"}, "unit-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetByID(context.Background(), lead.ID, "unit-a"); err != nil {
		t.Fatalf("same unit should see the lead: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), lead.ID, "unit-b"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("other unit should get not found, got %v", err)
	}
	if _, err := svc.GetByID(context.Background(), uuid.New(), ""); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListPaginates(t *testing.T) {
	svc, _ := newTestService(t)
	for _, p := range []string{"11987654321", "11987654322", "11987654323"} {
		if _, err := svc.Create(context.Background(), transport.CreateLeadRequest{Name: "L", Phone: p}, ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	page, err := svc.List(context.Background(), transport.ListLeadsRequest{Page: 2, PageSize: 2}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestListAttempts(t *testing.T) {
	svc, store := newTestService(t)
	lead, _ := svc.Create(context.Background(), transport.CreateLeadRequest{Name: "A", Phone: "11987654321"}, "")
	if _, err := store.AppendAttempt(context.Background(), lead.ID, repository.AttemptTypeMove, "ligou"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	attempts, err := svc.ListAttempts(context.Background(), lead.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(attempts) != 1 || attempts[0].AttemptNumber != 1 || attempts[0].Result != "ligou" {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestStatusColumns(t *testing.T) {
	cols := StatusColumns()
	if len(cols) != 7 || cols[0].Status != "new" || !cols[6].Terminal {
		t.Fatalf("unexpected columns %+v", cols)
	}
	if cols[3].Status != "negotiation" || len(cols[3].RequiredFields) != 2 {
		t.Fatalf("negotiation column should require two fields: %+v", cols[3])
	}
}
