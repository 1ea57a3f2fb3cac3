package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	ws "backend/internal/websocket"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type GRNHandler struct {
	grnService service.GRNService
	hub        *ws.Hub
}

func NewGRNHandler(grnService service.GRNService, hub *ws.Hub) *GRNHandler {
	return &GRNHandler{grnService: grnService, hub: hub}
}

func (h *GRNHandler) notifyCompleted(grn service.GRNResponse) {
	if h.hub == nil {
		return
	}
	h.hub.Notify("grn.completed", gin.H{
		"grn_number": grn.GRNNumber,
		"po_id":      grn.POID,
		"status":     grn.Status,
	})
}

func (h *GRNHandler) RegisterRoutes(router *gin.RouterGroup) {
	grns := router.Group("/api/grns")
	{
		grns.GET("", middleware.RequirePermission("grns.read"), h.ListGRNs)
		grns.GET("/:id", middleware.RequirePermission("grns.read"), h.GetGRN)
		grns.POST("", middleware.RequirePermission("grns.write"), h.CreateGRN)
		grns.PUT("/:id", middleware.RequirePermission("grns.write"), h.UpdateGRN)
		grns.POST("/:id/complete", middleware.RequirePermission("grns.write"), h.CompleteGRN)
		grns.POST("/:id/cancel", middleware.RequirePermission("grns.write"), h.CancelGRN)
	}

	po := router.Group("/api/purchase-orders")
	{
		po.GET("/:id/available-items", middleware.RequirePermission("grns.read"), h.AvailableItems)
		po.GET("/:id/grn-summary", middleware.RequirePermission("grns.read"), h.GRNSummary)
	}
}

// ListGRNs returns paginated goods receipts, optionally filtered by status
// @Summary      List goods receipt notes
// @Tags         grns
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        status  query  string  false  "Filter by status: draft, completed, billed, cancelled"
// @Success      200  {object}  response.PaginatedResponse
// @Router       /api/grns [get]
func (h *GRNHandler) ListGRNs(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	grns, total, err := h.grnService.List(c.Request.Context(), orgID, c.Query("status"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, grns, params.Page, params.Limit, total))
}

// GetGRN returns a single goods receipt with its lines
// @Summary      Get goods receipt note
// @Tags         grns
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "GRN ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/grns/{id} [get]
func (h *GRNHandler) GetGRN(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	grn, err := h.grnService.Get(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, grn))
}

// CreateGRN records a goods receipt against an approved purchase order
// @Summary      Create goods receipt note
// @Tags         grns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateGRNRequest  true  "GRN payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/grns [post]
func (h *GRNHandler) CreateGRN(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req service.CreateGRNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	grn, err := h.grnService.Create(c.Request.Context(), orgID, currentActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if grn.Status == "completed" {
		h.notifyCompleted(grn)
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, grn))
}

// UpdateGRN updates a draft goods receipt
// @Summary      Update draft goods receipt note
// @Tags         grns
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                    true  "GRN ID"
// @Param        payload  body  service.UpdateGRNRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/grns/{id} [put]
func (h *GRNHandler) UpdateGRN(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req service.UpdateGRNRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	grn, err := h.grnService.UpdateDraft(c.Request.Context(), orgID, currentActorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, grn))
}

// CompleteGRN finalizes a draft receipt and applies quantities to the order
// @Summary      Complete goods receipt note
// @Tags         grns
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "GRN ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/grns/{id}/complete [post]
func (h *GRNHandler) CompleteGRN(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	grn, err := h.grnService.Complete(c.Request.Context(), orgID, currentActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	h.notifyCompleted(grn)

	c.JSON(http.StatusOK, response.Success(http.StatusOK, grn))
}

// CancelGRN cancels a draft receipt
// @Summary      Cancel goods receipt note
// @Tags         grns
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "GRN ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/grns/{id}/cancel [post]
func (h *GRNHandler) CancelGRN(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	grn, err := h.grnService.Cancel(c.Request.Context(), orgID, currentActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, grn))
}

// AvailableItems lists PO lines that still have quantity left to receive
// @Summary      List receivable items on a purchase order
// @Tags         grns
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id}/available-items [get]
func (h *GRNHandler) AvailableItems(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	items, err := h.grnService.AvailableItems(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, items))
}

// GRNSummary reports receipt progress across all GRNs of an order
// @Summary      Receipt summary for a purchase order
// @Tags         grns
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id}/grn-summary [get]
func (h *GRNHandler) GRNSummary(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	summary, err := h.grnService.Summary(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
