package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	shippingapp "github.com/brandinglab/backend/internal/application/shipping"
	"github.com/brandinglab/backend/internal/domain/importing"
	"github.com/brandinglab/backend/internal/domain/shipping"
	csvimport "github.com/brandinglab/backend/internal/infrastructure/import"
	"github.com/brandinglab/backend/internal/interfaces/http/dto"
)

// ShippingHandler exposes the label workstation endpoints.
type ShippingHandler struct {
	BaseHandler
	workstation *shippingapp.WorkstationService
}

// NewShippingHandler creates a ShippingHandler.
func NewShippingHandler(workstation *shippingapp.WorkstationService) *ShippingHandler {
	return &ShippingHandler{workstation: workstation}
}

// BuildTable parses an uploaded sales export into the order table.
func (h *ShippingHandler) BuildTable(c *gin.Context) {
	var req dto.BuildTableRequest
	if err := c.ShouldBind(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	var mapping csvimport.ColumnMapping
	if req.Mapping != "" {
		if err := json.Unmarshal([]byte(req.Mapping), &mapping); err != nil {
			h.BadRequest(c, "Invalid mapping JSON")
			return
		}
	}
	platform := importing.Platform(req.Platform)
	if platform == "" {
		platform = importing.PlatformHotmart
	}

	table, err := h.workstation.BuildOrderTable(c.Request.Context(), file, shippingapp.TableOptions{
		Platform:   platform,
		PaidStatus: req.PaidStatus,
		Mapping:    mapping,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, table)
}

// Merge combines the posted orders into one shipment.
func (h *ShippingHandler) Merge(c *gin.Context) {
	var req dto.MergeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	merged, err := h.workstation.Merge(c.Request.Context(), dto.ToDomainOrders(req.Orders), shipping.LabelChoice(req.LabelChoice))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, merged)
}

// Unmerge splits a saved merge back into its member orders.
func (h *ShippingHandler) Unmerge(c *gin.Context) {
	mergeID := c.Param("id")
	if mergeID == "" {
		h.BadRequest(c, "Invalid merge id")
		return
	}
	restored, err := h.workstation.Unmerge(c.Request.Context(), mergeID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, restored)
}

// GenerateLabels runs a label batch over the posted orders.
func (h *ShippingHandler) GenerateLabels(c *gin.Context) {
	var req dto.GenerateLabelsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	batch, err := h.workstation.GenerateLabels(c.Request.Context(), dto.ToDomainOrders(req.Orders), shippingapp.GenerateOptions{
		ServiceCode:   req.ServiceCode,
		Confirmation:  req.Confirmation,
		SendWhatsApp:  req.SendWhatsApp,
		NotifyClients: req.NotifyClients,
	})
	if err != nil {
		if batch != nil && len(batch.Results) > 0 {
			// Batch interrupted mid-way: return what was done.
			h.Success(c, batch)
			return
		}
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// LabelsPDF streams the consolidated PDF for the posted codes.
func (h *ShippingHandler) LabelsPDF(c *gin.Context) {
	var req dto.LabelsPDFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	pdf, err := h.workstation.LabelsPDF(c.Request.Context(), req.Codes)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="etiquetas.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}

// Export renders the tracking CSV for the posted orders.
func (h *ShippingHandler) Export(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, "Invalid request: "+err.Error())
		return
	}
	out, err := h.workstation.ExportTrackingCSV(c.Request.Context(), dto.ToDomainOrders(req.Orders))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="rastreios.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", out)
}

// RegisterRoutes registers the shipping routes.
func (h *ShippingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	ship := rg.Group("/shipping")
	{
		ship.POST("/table", h.BuildTable)
		ship.POST("/merges", h.Merge)
		ship.DELETE("/merges/:id", h.Unmerge)
		ship.POST("/labels", h.GenerateLabels)
		ship.POST("/labels/pdf", h.LabelsPDF)
		ship.POST("/export", h.Export)
	}
}
