package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	importapp "github.com/brandinglab/backend/internal/application/importing"
	"github.com/brandinglab/backend/internal/interfaces/http/dto"
)

// TemplateHandler exposes the mapping-template CRUD.
type TemplateHandler struct {
	BaseHandler
	templates *importapp.TemplateService
}

// NewTemplateHandler creates a TemplateHandler.
func NewTemplateHandler(templates *importapp.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

// Create stores a new template.
func (h *TemplateHandler) Create(c *gin.Context) {
	var req dto.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	template, err := h.templates.Create(c.Request.Context(), req.Name, req.Icon, req.Mapping)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.NewTemplateResponse(template))
}

// Update rewrites an existing template.
func (h *TemplateHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template id")
		return
	}
	var req dto.TemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	template, err := h.templates.Update(c.Request.Context(), id, req.Name, req.Icon, req.Mapping)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTemplateResponse(template))
}

// Get returns one template.
func (h *TemplateHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template id")
		return
	}
	template, err := h.templates.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTemplateResponse(template))
}

// List returns every template.
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewTemplateResponses(templates))
}

// Delete removes a template.
func (h *TemplateHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid template id")
		return
	}
	if err := h.templates.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// RegisterRoutes registers the template routes.
func (h *TemplateHandler) RegisterRoutes(rg *gin.RouterGroup) {
	templates := rg.Group("/mapping-templates")
	{
		templates.POST("", h.Create)
		templates.GET("", h.List)
		templates.GET("/:id", h.Get)
		templates.PUT("/:id", h.Update)
		templates.DELETE("/:id", h.Delete)
	}
}
