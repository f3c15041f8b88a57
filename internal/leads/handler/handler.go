package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"franchise_crm_backend/internal/leads/board"
	"franchise_crm_backend/internal/leads/domain"
	"franchise_crm_backend/internal/leads/importer"
	"franchise_crm_backend/internal/leads/management"
	"franchise_crm_backend/internal/leads/transport"
	"franchise_crm_backend/platform/httpkit"
	"franchise_crm_backend/platform/logger"
	"franchise_crm_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Archiver stores a copy of an uploaded import file.
type Archiver interface {
	ArchiveImport(ctx context.Context, importID uuid.UUID, filename string, r io.Reader, size int64) (string, error)
}

type Handler struct {
	mgmt          *management.Service
	board         *board.Service
	runner        *importer.Runner
	archiver      Archiver
	val           *validator.Validator
	log           *logger.Logger
	maxUploadSize int64
}

// New creates the leads handler. archiver may be nil.
func New(mgmt *management.Service, boardSvc *board.Service, runner *importer.Runner, archiver Archiver, val *validator.Validator, maxUploadSize int64, log *logger.Logger) *Handler {
	return &Handler{
		mgmt:          mgmt,
		board:         boardSvc,
		runner:        runner,
		archiver:      archiver,
		val:           val,
		log:           log,
		maxUploadSize: maxUploadSize,
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/statuses", h.ListStatuses)
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.GetByID)
	rg.GET("/:id/attempts", h.ListAttempts)
	rg.PUT("/:id/move", h.Move)
}

func (h *Handler) RegisterImportRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Import)
}

func (h *Handler) ListStatuses(c *gin.Context) {
	httpkit.OK(c, management.StatusColumns())
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	lead, err := h.mgmt.Create(c.Request.Context(), req, httpkit.UnitID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.mgmt.GetByID(c.Request.Context(), id, httpkit.UnitID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	result, err := h.mgmt.List(c.Request.Context(), req, httpkit.UnitID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) ListAttempts(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	attempts, err := h.mgmt.ListAttempts(c.Request.Context(), id, httpkit.UnitID(c))
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"items": attempts})
}

// Move answers 200 for accepted and pending moves and 422 for rejected
// ones. The board renders optimistically and re-fetches on anything but
// accepted.
func (h *Handler) Move(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.MoveLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, validator.FieldErrors(err))
		return
	}

	ctx := c.Request.Context()
	if httpkit.HandleError(c, h.mgmt.Authorize(ctx, id, httpkit.UnitID(c))) {
		return
	}

	dest, _ := domain.ParseStatus(req.Status)
	result, err := h.board.RequestMove(ctx, id, board.MoveRequest{
		Destination: dest,
		Confirmed:   req.Confirmed,
		Payload: domain.MovePayload{
			Notes:           req.Notes,
			ProposedValue:   req.ProposedValue.String(),
			AppointmentDate: req.AppointmentDate,
			EnrollmentValue: req.EnrollmentValue.String(),
			PaymentMethod:   req.PaymentMethod,
		},
	})
	if httpkit.HandleError(c, err) {
		return
	}

	resp := toMoveResponse(result)
	if result.Outcome == board.OutcomeRejected {
		httpkit.JSON(c, http.StatusUnprocessableEntity, resp)
		return
	}
	httpkit.OK(c, resp)
}

// Import reconciles an uploaded spreadsheet and returns the run report.
func (h *Handler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	if fileHeader.Size > h.maxUploadSize {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "file too large", nil)
		return
	}

	ctx := c.Request.Context()
	if h.archiver != nil {
		if err := h.archive(ctx, fileHeader.Filename, fileHeader.Size, fileHeader.Open); err != nil {
			h.log.WithContext(ctx).Warn("import archive failed", "file", fileHeader.Filename, "error", err)
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "could not read file", nil)
		return
	}
	defer func() { _ = file.Close() }()

	report, err := h.runner.ImportFile(ctx, file, fileHeader.Filename, importer.SourceUpload)
	if err != nil {
		if isSheetError(err) {
			httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
			return
		}
		httpkit.HandleError(c, err)
		return
	}

	httpkit.OK(c, report)
}

func (h *Handler) archive(ctx context.Context, filename string, size int64, open func() (multipart.File, error)) error {
	rc, err := open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	_, err = h.archiver.ArchiveImport(ctx, uuid.New(), filename, rc, size)
	return err
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
