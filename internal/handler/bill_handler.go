package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type BillHandler struct {
	billService service.BillService
}

func NewBillHandler(billService service.BillService) *BillHandler {
	return &BillHandler{billService: billService}
}

func (h *BillHandler) RegisterRoutes(router *gin.RouterGroup) {
	bills := router.Group("/api/bills")
	{
		bills.GET("", middleware.RequirePermission("bills.read"), h.ListBills)
		bills.GET("/:id", middleware.RequirePermission("bills.read"), h.GetBill)
		bills.POST("", middleware.RequirePermission("bills.write"), h.CreateBill)
	}

	po := router.Group("/api/purchase-orders")
	{
		po.GET("/:id/three-way-match", middleware.RequirePermission("bills.read"), h.ThreeWayMatch)
	}
}

// ListBills returns paginated vendor bills, optionally filtered by status
// @Summary      List bills
// @Tags         bills
// @Security     BearerAuth
// @Produce      json
// @Param        page    query  int     false  "Page number (default: 1)"
// @Param        limit   query  int     false  "Items per page (default: 20)"
// @Param        status  query  string  false  "Filter by status"
// @Success      200  {object}  response.PaginatedResponse
// @Router       /api/bills [get]
func (h *BillHandler) ListBills(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	bills, total, err := h.billService.List(c.Request.Context(), orgID, c.Query("status"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, bills, params.Page, params.Limit, total))
}

// GetBill returns a single bill with its lines
// @Summary      Get bill
// @Tags         bills
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Bill ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/bills/{id} [get]
func (h *BillHandler) GetBill(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	bill, err := h.billService.Get(c.Request.Context(), orgID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, bill))
}

// CreateBill books a vendor bill against an approved purchase order
// @Summary      Create bill
// @Tags         bills
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateBillRequest  true  "Bill payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/bills [post]
func (h *BillHandler) CreateBill(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req service.CreateBillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	bill, err := h.billService.Create(c.Request.Context(), orgID, currentActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, bill))
}

// ThreeWayMatch reconciles ordered vs accepted vs billed per PO line
// @Summary      Three-way match report for a purchase order
// @Tags         bills
// @Security     BearerAuth
// @Produce      json
// @Param        id         path   string  true   "Purchase order ID"
// @Param        tolerance  query  string  false  "Variance tolerance percent (default: 0)"
// @Param        grn_id     query  string  false  "Restrict the match to one GRN"
// @Param        bill_id    query  string  false  "Restrict the match to one bill"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id}/three-way-match [get]
func (h *BillHandler) ThreeWayMatch(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	tolerance := decimal.Zero
	if t := c.Query("tolerance"); t != "" {
		parsed, err := decimal.NewFromString(t)
		if err != nil || parsed.IsNegative() {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid tolerance: must be a non-negative number"))
			return
		}
		tolerance = parsed
	}

	filter := service.ThreeWayMatchFilter{
		GRNID:  c.Query("grn_id"),
		BillID: c.Query("bill_id"),
	}
	result, err := h.billService.ThreeWayMatch(c.Request.Context(), orgID, c.Param("id"), filter, tolerance)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}
