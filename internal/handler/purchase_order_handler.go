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

type PurchaseOrderHandler struct {
	poService service.PurchaseOrderService
	hub       *ws.Hub
}

func NewPurchaseOrderHandler(poService service.PurchaseOrderService, hub *ws.Hub) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService, hub: hub}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/purchase-orders")
	{
		orders.GET("", middleware.RequirePermission("purchase_orders.read"), h.ListPurchaseOrders)
		orders.GET("/:id", middleware.RequirePermission("purchase_orders.read"), h.GetPurchaseOrder)
		orders.POST("", middleware.RequirePermission("purchase_orders.write"), h.CreatePurchaseOrder)
		orders.PUT("/:id", middleware.RequirePermission("purchase_orders.write"), h.UpdatePurchaseOrder)
		orders.POST("/:id/submit", middleware.RequirePermission("purchase_orders.write"), h.SubmitPurchaseOrder)
		orders.PUT("/:id/fulfillment", middleware.RequirePermission("purchase_orders.write"), h.UpdateFulfillment)
		orders.POST("/:id/cancel", middleware.RequirePermission("purchase_orders.write"), h.CancelPurchaseOrder)
	}
}

// ListPurchaseOrders returns paginated purchase orders with optional filters
// @Summary      List purchase orders
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        page       query     int     false  "Page number (default: 1)"
// @Param        limit      query     int     false  "Items per page (default: 20)"
// @Param        status     query     string  false  "Filter by status"
// @Param        vendor_id  query     string  false  "Filter by vendor"
// @Param        search     query     string  false  "Search by PO number"
// @Success      200        {object}  response.PaginatedResponse
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) ListPurchaseOrders(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	filter := service.POListFilter{
		Status:   c.Query("status"),
		VendorID: c.Query("vendor_id"),
		Search:   c.Query("search"),
		Page:     params.Page,
		Limit:    params.Limit,
	}

	orders, total, err := h.poService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, orders, params.Page, params.Limit, total))
}

// GetPurchaseOrder returns a single purchase order with line items
// @Summary      Get purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetPurchaseOrder(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	order, err := h.poService.Get(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CreatePurchaseOrder creates a new draft purchase order
// @Summary      Create purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreatePurchaseOrderRequest  true  "Purchase order payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) CreatePurchaseOrder(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req service.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.poService.Create(c.Request.Context(), orgID, currentActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, order))
}

// UpdatePurchaseOrder updates a draft or rejected purchase order
// @Summary      Update purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                              true  "Purchase order ID"
// @Param        payload  body  service.UpdatePurchaseOrderRequest  true  "Update payload"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id} [put]
func (h *PurchaseOrderHandler) UpdatePurchaseOrder(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req service.UpdatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.poService.Update(c.Request.Context(), orgID, currentActorID(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// SubmitPurchaseOrder routes the order into its approval workflow
// @Summary      Submit purchase order for approval
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/purchase-orders/{id}/submit [post]
func (h *PurchaseOrderHandler) SubmitPurchaseOrder(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	result, err := h.poService.SubmitForApproval(c.Request.Context(), orgID, currentActorID(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.Notify("po.submitted", gin.H{
			"po_number":     result.PO.PONumber,
			"status":        result.PO.Status,
			"auto_approved": result.AutoApproved,
		})
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

type updateFulfillmentRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateFulfillment advances the delivery status of an approved order
// @Summary      Update fulfillment status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                    true  "Purchase order ID"
// @Param        payload  body  handler.updateFulfillmentRequest  true  "New fulfillment status"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/fulfillment [put]
func (h *PurchaseOrderHandler) UpdateFulfillment(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req updateFulfillmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	order, err := h.poService.UpdateFulfillmentStatus(c.Request.Context(), orgID, currentActorID(c), c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

type cancelPORequest struct {
	Reason string `json:"reason"`
}

// CancelPurchaseOrder cancels an order that has not received goods yet
// @Summary      Cancel purchase order
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path  string                 true   "Purchase order ID"
// @Param        payload  body  handler.cancelPORequest  false  "Cancellation reason"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/purchase-orders/{id}/cancel [post]
func (h *PurchaseOrderHandler) CancelPurchaseOrder(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req cancelPORequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
			return
		}
	}

	order, err := h.poService.Cancel(c.Request.Context(), orgID, currentActorID(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}
