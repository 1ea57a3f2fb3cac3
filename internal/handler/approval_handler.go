package handler

import (
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/service"
	ws "backend/internal/websocket"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ApprovalHandler struct {
	approvalService service.ApprovalService
	hub             *ws.Hub
}

func NewApprovalHandler(approvalService service.ApprovalService, hub *ws.Hub) *ApprovalHandler {
	return &ApprovalHandler{approvalService: approvalService, hub: hub}
}

func (h *ApprovalHandler) RegisterRoutes(router *gin.RouterGroup) {
	approvals := router.Group("/api/approvals")
	{
		approvals.GET("/pending", middleware.RequirePermission("approvals.read"), h.ListPending)
		approvals.GET("/workflow/:po_id", middleware.RequirePermission("approvals.read"), h.GetWorkflow)
		approvals.POST("/decide/:po_id", middleware.RequirePermission("approvals.write"), h.Decide)
		approvals.POST("/mark-overdue", middleware.RequirePermission("approvals.admin"), h.MarkOverdue)

		approvals.GET("/rules", middleware.RequirePermission("approvals.read"), h.ListRules)
		approvals.POST("/rules", middleware.RequirePermission("approvals.admin"), h.CreateRule)
		approvals.DELETE("/rules/:id", middleware.RequirePermission("approvals.admin"), h.DeactivateRule)
	}
}

// ListPending returns workflows waiting on the calling user
// @Summary      List pending approvals for the current user
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/approvals/pending [get]
func (h *ApprovalHandler) ListPending(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	pending, err := h.approvalService.ListPendingForApprover(c.Request.Context(), orgID, currentActorID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, pending))
}

// GetWorkflow returns the workflow state and decision history for an order
// @Summary      Get approval workflow for a purchase order
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        po_id  path  string  true  "Purchase order ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/approvals/workflow/{po_id} [get]
func (h *ApprovalHandler) GetWorkflow(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	wf, err := h.approvalService.GetWorkflow(c.Request.Context(), orgID, c.Param("po_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, wf))
}

// Decide records an approve / reject / request_changes decision
// @Summary      Decide on a pending approval
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        po_id    path  string                           true  "Purchase order ID"
// @Param        payload  body  service.ApprovalDecisionRequest  true  "Decision payload"
// @Success      200  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/approvals/decide/{po_id} [post]
func (h *ApprovalHandler) Decide(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req service.ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	wf, err := h.approvalService.ProcessApproval(c.Request.Context(), orgID, currentActorID(c), c.Param("po_id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	if h.hub != nil {
		h.hub.Notify("po.approval_decided", gin.H{
			"po_id":           wf.POID,
			"action":          req.Action,
			"approval_status": wf.ApprovalStatus,
			"current_level":   wf.CurrentLevel,
		})
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, wf))
}

// MarkOverdue flags workflows that blew past their SLA date
// @Summary      Flag overdue approval workflows
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Router       /api/approvals/mark-overdue [post]
func (h *ApprovalHandler) MarkOverdue(c *gin.Context) {
	flagged, err := h.approvalService.MarkOverdueWorkflows(c.Request.Context(), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"flagged": flagged}))
}

// ListRules returns approval rules ordered by amount band
// @Summary      List approval rules
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default: 1)"
// @Param        limit  query  int  false  "Items per page (default: 20)"
// @Success      200  {object}  response.PaginatedResponse
// @Router       /api/approvals/rules [get]
func (h *ApprovalHandler) ListRules(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	params := pagination.Parse(c)
	rules, total, err := h.approvalService.ListRules(c.Request.Context(), orgID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.SuccessWithPagination(http.StatusOK, rules, params.Page, params.Limit, total))
}

// CreateRule creates an amount-banded approval rule
// @Summary      Create approval rule
// @Tags         approvals
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body  service.CreateApprovalRuleRequest  true  "Rule payload"
// @Success      201  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Router       /api/approvals/rules [post]
func (h *ApprovalHandler) CreateRule(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	var req service.CreateApprovalRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.approvalService.CreateRule(c.Request.Context(), orgID, currentActorID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// DeactivateRule retires a rule without deleting its history
// @Summary      Deactivate approval rule
// @Tags         approvals
// @Security     BearerAuth
// @Produce      json
// @Param        id  path  string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/approvals/rules/{id} [delete]
func (h *ApprovalHandler) DeactivateRule(c *gin.Context) {
	orgID, ok := currentOrgID(c)
	if !ok {
		return
	}

	if err := h.approvalService.DeactivateRule(c.Request.Context(), orgID, currentActorID(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, gin.H{"message": "Rule deactivated"}))
}
