package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"franchise_crm_backend/internal/events"
	apphttp "franchise_crm_backend/internal/http"
	"franchise_crm_backend/internal/leads/importer"
	"franchise_crm_backend/internal/leads/repository"
	"franchise_crm_backend/internal/leads/transport"
	"franchise_crm_backend/platform/httpkit"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type testConfig struct{}

func (testConfig) GetAttemptCeiling() int      { return 5 }
func (testConfig) GetImportWorkers() int       { return 2 }
func (testConfig) GetMaxImportFileSize() int64 { return 1 << 20 }

func newTestEngine(t *testing.T, unitID string) *gin.Engine {
	t.Helper()
	return newTestEngineWithDeps(t, unitID, Deps{})
}

func newTestEngineWithDeps(t *testing.T, unitID string, deps Deps) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.Discard()
	bus := events.NewInMemoryBus(log)
	t.Cleanup(bus.Wait)

	module, err := NewModule(repository.NewMemoryStore(), bus, validator.New(), testConfig{}, deps, log)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(func(c *gin.Context) {
		if unitID != "" {
			c.Set(httpkit.ContextUnitIDKey, unitID)
		}
		c.Next()
	})
	module.RegisterRoutes(&apphttp.RouterContext{Engine: engine, V1: v1, Protected: protected})
	return engine
}

func doJSON(t *testing.T, engine http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

func createLead(t *testing.T, engine http.Handler) transport.LeadResponse {
	t.Helper()
	rec := doJSON(t, engine, http.MethodPost, "/api/v1/crm/leads", transport.CreateLeadRequest{
		Name:  "Bia Souza",
		Phone: "(11) 98765-4321",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body.String())
	}
	return decode[transport.LeadResponse](t, rec)
}

func TestCreateAndFetchLead(t *testing.T) {
	engine := newTestEngine(t, "unit-sp")
	lead := createLead(t, engine)
	if lead.Status != "new" || lead.UnitID != "unit-sp" {
		t.Fatalf("unexpected lead %+v", lead)
	}

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/crm/leads/"+lead.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/crm/leads/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", rec.Code)
	}
}

func TestListValidatesStatusFilter(t *testing.T) {
	engine := newTestEngine(t, "")
	createLead(t, engine)

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/crm/leads?status=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/crm/leads?status=new", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	list := decode[transport.LeadListResponse](t, rec)
	if list.Total != 1 || len(list.Items) != 1 {
		t.Fatalf("unexpected list %+v", list)
	}
}

func TestMoveOutcomes(t *testing.T) {
	engine := newTestEngine(t, "")
	lead := createLead(t, engine)
	path := "/api/v1/crm/leads/" + lead.ID.String() + "/move"

	rec := doJSON(t, engine, http.MethodPut, path, map[string]any{"status": "negotiation"})
	if rec.Code != http.StatusOK {
		t.Fatalf("pending move status = %d", rec.Code)
	}
	pending := decode[transport.MoveLeadResponse](t, rec)
	if pending.Outcome != "pending" || len(pending.RequiredFields) != 2 {
		t.Fatalf("unexpected pending response %+v", pending)
	}

	rec = doJSON(t, engine, http.MethodPut, path, map[string]any{
		"status":        "negotiation",
		"proposedValue": 1890.5,
		"notes":         "Plano anual",
	})
	accepted := decode[transport.MoveLeadResponse](t, rec)
	if rec.Code != http.StatusOK || accepted.Outcome != "accepted" {
		t.Fatalf("unexpected accepted response %d %+v", rec.Code, accepted)
	}
	if accepted.Lead == nil || accepted.Lead.ProposedValue == nil || *accepted.Lead.ProposedValue != 1890.5 {
		t.Fatalf("proposed value not stored: %+v", accepted.Lead)
	}

	rec = doJSON(t, engine, http.MethodPut, path, map[string]any{"status": "new"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("reopen to new status = %d, want 422", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/crm/leads/"+lead.ID.String()+"/attempts", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Plano anual") {
		t.Fatalf("move attempt not listed: %d %s", rec.Code, rec.Body.String())
	}
}

func TestMoveOtherUnitIsNotFound(t *testing.T) {
	store := repository.NewMemoryStore()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()
	bus := events.NewInMemoryBus(log)
	t.Cleanup(bus.Wait)

	module, err := NewModule(store, bus, validator.New(), testConfig{}, Deps{}, log)
	if err != nil {
		t.Fatalf("new module: %v", err)
	}
	lead, err := module.ManagementService().Create(t.Context(), transport.CreateLeadRequest{Name: "Caio", Phone: "11987654321"}, "unit-rj")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	engine := gin.New()
	v1 := engine.Group("/api/v1")
	protected := v1.Group("")
	protected.Use(func(c *gin.Context) { c.Set(httpkit.ContextUnitIDKey, "unit-sp") })
	module.RegisterRoutes(&apphttp.RouterContext{Engine: engine, V1: v1, Protected: protected})

	rec := doJSON(t, engine, http.MethodPut, "/api/v1/crm/leads/"+lead.ID.String()+"/move", map[string]any{"status": "no_show"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func uploadFile(t *testing.T, engine http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = part.Write([]byte(content))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/crm/imports", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestImportUpload(t *testing.T) {
	engine := newTestEngine(t, "")
	csv := "ID;Nome;Telefone;Etapa do lead\n" +
		"A-1;Ana;11987654321;Novo\n" +
		"A-2;Beto;11912345678;Entrevista agendada\n"

	rec := uploadFile(t, engine, "leads.csv", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[importer.Report](t, rec)
	if report.Total != 2 || report.Created != 2 || report.Source != importer.SourceUpload {
		t.Fatalf("unexpected report %+v", report)
	}

	rec = uploadFile(t, engine, "leads.pdf", "%PDF")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unsupported file status = %d, want 400", rec.Code)
	}
}

type recordingArchiver struct {
	filename string
	content  string
	size     int64
	err      error
}

func (a *recordingArchiver) ArchiveImport(_ context.Context, _ uuid.UUID, filename string, r io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	a.filename, a.content, a.size = filename, string(data), size
	return "imports/" + filename, a.err
}

func TestImportUploadArchivesFile(t *testing.T) {
	archiver := &recordingArchiver{}
	engine := newTestEngineWithDeps(t, "", Deps{Archiver: archiver})
	csv := "ID;Nome;Telefone;Etapa do lead\nB-1;Duda;11987654321;Novo\n"

	rec := uploadFile(t, engine, "base.csv", csv)
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	if archiver.filename != "base.csv" || archiver.content != csv || archiver.size != int64(len(csv)) {
		t.Fatalf("unexpected archived file %q (%d bytes): %q", archiver.filename, archiver.size, archiver.content)
	}
}

func TestImportUploadSurvivesArchiveFailure(t *testing.T) {
	archiver := &recordingArchiver{err: errors.New("bucket unavailable")}
	engine := newTestEngineWithDeps(t, "", Deps{Archiver: archiver})

	rec := uploadFile(t, engine, "base.csv", "ID;Nome;Telefone;Etapa do lead\nB-2;Enzo;11987654321;Novo\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("import status = %d: %s", rec.Code, rec.Body.String())
	}
	report := decode[importer.Report](t, rec)
	if report.Created != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
}
