package handler

import (
	"encoding/json"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	importapp "github.com/brandinglab/backend/internal/application/importing"
	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shared"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
	"github.com/brandinglab/backend/internal/interfaces/http/dto"
)

// maxImportFileSize bounds uploaded CSV files.
const maxImportFileSize = 20 << 20

// ImportHandler exposes the CSV import endpoints.
type ImportHandler struct {
	BaseHandler
	jobs      *importapp.JobService
	templates *importapp.TemplateService
}

// NewImportHandler creates an ImportHandler.
func NewImportHandler(jobs *importapp.JobService, templates *importapp.TemplateService) *ImportHandler {
	return &ImportHandler{jobs: jobs, templates: templates}
}

// openUpload pulls the CSV file out of the multipart form.
func (h *ImportHandler) openUpload(c *gin.Context) (multipart.File, *multipart.FileHeader, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return nil, nil, false
	}
	if header.Size > maxImportFileSize {
		file.Close()
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "file exceeds maximum size of 20MB")
		return nil, nil, false
	}
	return file, header, true
}

// Preview parses an uploaded file and proposes a column mapping.
func (h *ImportHandler) Preview(c *gin.Context) {
	file, _, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	preview, err := h.jobs.Preview(file)
	if err != nil {
		h.BadRequest(c, "failed to parse file: "+err.Error())
		return
	}
	compatible, err := h.templates.CompatibleWith(c.Request.Context(), preview.Headers)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.PreviewResponse{
		Headers:             preview.Headers,
		Mapping:             preview.Mapping,
		DistinctStatuses:    preview.DistinctStatuses,
		RowCount:            preview.RowCount,
		CompatibleTemplates: dto.NewTemplateResponses(compatible),
	})
}

// Start validates the upload and launches an import job.
func (h *ImportHandler) Start(c *gin.Context) {
	var req dto.StartImportRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	file, header, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	mapping, err := h.resolveMapping(c, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	job, err := h.jobs.Start(c.Request.Context(), file, importapp.StartOptions{
		Platform:   importing.Platform(req.Platform),
		PaidStatus: req.PaidStatus,
		Mapping:    mapping,
		Filename:   header.Filename,
		StageID:    req.StageID,
		UseQueue:   req.UseQueue,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewJobResponse(job))
}

// resolveMapping decodes the inline mapping or loads the referenced
// template. Inline mapping wins when both are present.
func (h *ImportHandler) resolveMapping(c *gin.Context, req dto.StartImportRequest) (csvimport.ColumnMapping, error) {
	if req.Mapping != "" {
		var mapping csvimport.ColumnMapping
		if err := json.Unmarshal([]byte(req.Mapping), &mapping); err != nil {
			return nil, shared.NewDomainError("BAD_REQUEST", "Invalid mapping JSON")
		}
		return mapping, nil
	}
	if req.TemplateID != "" {
		id, err := uuid.Parse(req.TemplateID)
		if err != nil {
			return nil, shared.NewDomainError("BAD_REQUEST", "Invalid template_id")
		}
		template, err := h.templates.Get(c.Request.Context(), id)
		if err != nil {
			return nil, err
		}
		return template.Mapping, nil
	}
	return csvimport.ColumnMapping{}, nil
}

// Resume continues an interrupted job with a re-uploaded file.
func (h *ImportHandler) Resume(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job id")
		return
	}
	file, _, ok := h.openUpload(c)
	if !ok {
		return
	}
	defer file.Close()

	job, err := h.jobs.Resume(c.Request.Context(), id, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewJobResponse(job))
}

// Get returns one import job.
func (h *ImportHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job id")
		return
	}
	job, err := h.jobs.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewJobResponse(job))
}

// List returns import jobs, newest first.
func (h *ImportHandler) List(c *gin.Context) {
	req := dto.DefaultListRequest()
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Invalid pagination: "+err.Error())
		return
	}
	jobs, total, err := h.jobs.List(c.Request.Context(), req.Limit, req.Offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, dto.NewJobResponses(jobs), total, req.Limit, req.Offset)
}

// Cancel stops a queued or running job.
func (h *ImportHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid job id")
		return
	}
	if err := h.jobs.Cancel(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Lock reports the currently held import lock.
func (h *ImportHandler) Lock(c *gin.Context) {
	lock, err := h.jobs.Lock(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if lock == nil {
		h.NotFound(c, "No import is running")
		return
	}
	h.Success(c, dto.NewLockResponse(lock))
}

// ReleaseLock force-releases a stuck import lock.
func (h *ImportHandler) ReleaseLock(c *gin.Context) {
	if err := h.jobs.ReleaseLock(c.Request.Context()); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers the import routes.
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	{
		imports.POST("/preview", h.Preview)
		imports.POST("", h.Start)
		imports.POST("/:id/resume", h.Resume)
		imports.GET("/:id", h.Get)
		imports.GET("", h.List)
		imports.DELETE("/:id", h.Cancel)
	}
	rg.GET("/import-lock", h.Lock)
	rg.DELETE("/import-lock", h.ReleaseLock)
}
