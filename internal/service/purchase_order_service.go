package service

import (
	"context"
	"encoding/json"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultApprovalSLADays is the approval turnaround promised when no explicit
// SLA is configured.
const DefaultApprovalSLADays = 3

// --- DTOs ---

type POLineItemPayload struct {
	ItemDescription string          `json:"item_description" binding:"required"`
	HSNCode         string          `json:"hsn_code"`
	Unit            string          `json:"unit"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"required"`
}

type CreatePurchaseOrderRequest struct {
	PONumber             string              `json:"po_number"` // generated when empty
	VendorID             string              `json:"vendor_id" binding:"required"`
	PODate               time.Time           `json:"po_date" binding:"required"`
	ExpectedDeliveryDate *time.Time          `json:"expected_delivery_date"`
	DeliveryAddress      string              `json:"delivery_address"`
	TermsAndConditions   string              `json:"terms_and_conditions"`
	Notes                string              `json:"notes"`
	Items                []POLineItemPayload `json:"items" binding:"required"`
}

type UpdatePurchaseOrderRequest struct {
	VendorID             *string              `json:"vendor_id"`
	PODate               *time.Time           `json:"po_date"`
	ExpectedDeliveryDate *time.Time           `json:"expected_delivery_date"`
	DeliveryAddress      *string              `json:"delivery_address"`
	TermsAndConditions   *string              `json:"terms_and_conditions"`
	Notes                *string              `json:"notes"`
	Items                *[]POLineItemPayload `json:"items"` // pointer so nil = not sent
}

type POLineItemResponse struct {
	ID               uuid.UUID       `json:"id"`
	ItemDescription  string          `json:"item_description"`
	HSNCode          string          `json:"hsn_code"`
	Unit             string          `json:"unit"`
	Quantity         decimal.Decimal `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	PendingQuantity  decimal.Decimal `json:"pending_quantity"`
}

type PurchaseOrderResponse struct {
	ID                   uuid.UUID            `json:"id"`
	PONumber             string               `json:"po_number"`
	VendorID             uuid.UUID            `json:"vendor_id"`
	VendorName           string               `json:"vendor_name"`
	PODate               time.Time            `json:"po_date"`
	ExpectedDeliveryDate *time.Time           `json:"expected_delivery_date"`
	Subtotal             decimal.Decimal      `json:"subtotal"`
	TotalAmount          decimal.Decimal      `json:"total_amount"`
	Status               string               `json:"status"`
	ApprovalStatus       string               `json:"approval_status"`
	FulfillmentStatus    string               `json:"fulfillment_status"`
	DeliveryAddress      string               `json:"delivery_address"`
	TermsAndConditions   string               `json:"terms_and_conditions"`
	Notes                string               `json:"notes"`
	ApprovedBy           string               `json:"approved_by"`
	ApprovedAt           *time.Time           `json:"approved_at"`
	Items                []POLineItemResponse `json:"items"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
	CreatedBy            string               `json:"created_by"`
}

type SubmitResult struct {
	PO           PurchaseOrderResponse `json:"purchase_order"`
	AutoApproved bool                  `json:"auto_approved"`
	AppliedRule  string                `json:"applied_rule"`
}

type POListFilter struct {
	Status   string
	VendorID string
	Search   string
	Page     int
	Limit    int
}

// --- Interface ---

type PurchaseOrderService interface {
	Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreatePurchaseOrderRequest) (PurchaseOrderResponse, error)
	Update(ctx context.Context, orgID uuid.UUID, actorID, id string, req UpdatePurchaseOrderRequest) (PurchaseOrderResponse, error)
	Get(ctx context.Context, orgID uuid.UUID, id string) (PurchaseOrderResponse, error)
	List(ctx context.Context, orgID uuid.UUID, filter POListFilter) ([]PurchaseOrderResponse, int64, error)
	SubmitForApproval(ctx context.Context, orgID uuid.UUID, actorID, id string) (SubmitResult, error)
	UpdateFulfillmentStatus(ctx context.Context, orgID uuid.UUID, actorID, id, status string) (PurchaseOrderResponse, error)
	Cancel(ctx context.Context, orgID uuid.UUID, actorID, id, reason string) (PurchaseOrderResponse, error)
}

type purchaseOrderService struct {
	poRepo     repository.PurchaseOrderRepository
	ruleRepo   repository.ApprovalRuleRepository
	wfRepo     repository.ApprovalWorkflowRepository
	vendorRepo repository.VendorRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	slaDays    int
}

func NewPurchaseOrderService(
	poRepo repository.PurchaseOrderRepository,
	ruleRepo repository.ApprovalRuleRepository,
	wfRepo repository.ApprovalWorkflowRepository,
	vendorRepo repository.VendorRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	slaDays int,
) PurchaseOrderService {
	if slaDays <= 0 {
		slaDays = DefaultApprovalSLADays
	}
	return &purchaseOrderService{
		poRepo:     poRepo,
		ruleRepo:   ruleRepo,
		wfRepo:     wfRepo,
		vendorRepo: vendorRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		slaDays:    slaDays,
	}
}

// --- Validation helpers ---

func buildLineItems(payloads []POLineItemPayload) ([]model.POLineItem, decimal.Decimal, error) {
	if len(payloads) == 0 {
		return nil, decimal.Zero, apperror.Validation("at least one line item is required")
	}

	items := make([]model.POLineItem, 0, len(payloads))
	subtotal := decimal.Zero
	for i, p := range payloads {
		if p.ItemDescription == "" {
			return nil, decimal.Zero, apperror.Validation("items[%d]: item_description is required", i)
		}
		if !p.Quantity.IsPositive() {
			return nil, decimal.Zero, apperror.Validation("items[%d]: quantity must be positive", i)
		}
		if p.UnitPrice.IsNegative() {
			return nil, decimal.Zero, apperror.Validation("items[%d]: unit_price cannot be negative", i)
		}
		unit := p.Unit
		if unit == "" {
			unit = "Nos"
		}
		lineTotal := p.Quantity.Mul(p.UnitPrice).Round(2)
		items = append(items, model.POLineItem{
			ItemDescription:  p.ItemDescription,
			HSNCode:          p.HSNCode,
			Unit:             unit,
			Quantity:         p.Quantity,
			UnitPrice:        p.UnitPrice,
			TotalAmount:      lineTotal,
			ReceivedQuantity: decimal.Zero,
			PendingQuantity:  p.Quantity,
		})
		subtotal = subtotal.Add(lineTotal)
	}
	return items, subtotal, nil
}

func (s *purchaseOrderService) logAudit(ctx context.Context, actorID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if userID, err := uuid.Parse(actorID); err == nil {
		entry.UserID = &userID
	}
	return s.auditRepo.Log(ctx, entry)
}

// --- Implementation ---

func (s *purchaseOrderService) Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreatePurchaseOrderRequest) (PurchaseOrderResponse, error) {
	vendorID, err := uuid.Parse(req.VendorID)
	if err != nil {
		return PurchaseOrderResponse{}, apperror.Validation("invalid vendor_id")
	}
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil {
		return PurchaseOrderResponse{}, apperror.NotFound("vendor not found")
	}
	if vendor.OrganizationID != orgID {
		return PurchaseOrderResponse{}, apperror.NotFound("vendor not found")
	}

	items, subtotal, err := buildLineItems(req.Items)
	if err != nil {
		return PurchaseOrderResponse{}, err
	}

	po := &model.PurchaseOrder{
		OrganizationID:       orgID,
		VendorID:             vendorID,
		PODate:               req.PODate,
		ExpectedDeliveryDate: req.ExpectedDeliveryDate,
		Subtotal:             subtotal,
		TotalAmount:          subtotal,
		ApprovalStatus:       model.POApprovalDraft,
		FulfillmentStatus:    model.FulfillmentNone,
		DeliveryAddress:      req.DeliveryAddress,
		TermsAndConditions:   req.TermsAndConditions,
		Notes:                req.Notes,
		Items:                items,
		CreatedBy:            actorID,
		UpdatedBy:            actorID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.PONumber != "" {
			exists, existsErr := s.poRepo.ExistsByNumber(txCtx, orgID, req.PONumber)
			if existsErr != nil {
				return apperror.Wrap(apperror.KindInternal, existsErr, "failed to check po number")
			}
			if exists {
				return apperror.Conflict("po number %s already exists", req.PONumber)
			}
			po.PONumber = req.PONumber
		} else {
			prefix := "PO-" + time.Now().Format("20060102") + "-"
			number, genErr := s.poRepo.NextNumber(txCtx, orgID, prefix)
			if genErr != nil {
				return apperror.Wrap(apperror.KindInternal, genErr, "failed to generate po number")
			}
			po.PONumber = number
		}

		if createErr := s.poRepo.Create(txCtx, po); createErr != nil {
			return apperror.Wrap(apperror.KindInternal, createErr, "failed to create purchase order")
		}

		return s.logAudit(txCtx, actorID, model.ActionCreatePurchaseOrder, po.ID.String(), po.PONumber, map[string]interface{}{
			"po_number":    po.PONumber,
			"vendor_id":    po.VendorID.String(),
			"total_amount": po.TotalAmount.String(),
		})
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}

	po.Vendor = vendor
	return toPurchaseOrderResponse(*po), nil
}

func (s *purchaseOrderService) Update(ctx context.Context, orgID uuid.UUID, actorID, id string, req UpdatePurchaseOrderRequest) (PurchaseOrderResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseOrderResponse{}, apperror.Validation("invalid purchase order id")
	}

	var result PurchaseOrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if po.OrganizationID != orgID {
			return apperror.NotFound("purchase order not found")
		}
		if !po.IsMutable() {
			return apperror.InvalidState("purchase order in status %s cannot be edited", po.Status())
		}

		if req.VendorID != nil {
			vendorID, parseErr := uuid.Parse(*req.VendorID)
			if parseErr != nil {
				return apperror.Validation("invalid vendor_id")
			}
			vendor, vendorErr := s.vendorRepo.FindByID(txCtx, vendorID)
			if vendorErr != nil || vendor.OrganizationID != orgID {
				return apperror.NotFound("vendor not found")
			}
			po.VendorID = vendorID
		}
		if req.PODate != nil {
			po.PODate = *req.PODate
		}
		if req.ExpectedDeliveryDate != nil {
			po.ExpectedDeliveryDate = req.ExpectedDeliveryDate
		}
		if req.DeliveryAddress != nil {
			po.DeliveryAddress = *req.DeliveryAddress
		}
		if req.TermsAndConditions != nil {
			po.TermsAndConditions = *req.TermsAndConditions
		}
		if req.Notes != nil {
			po.Notes = *req.Notes
		}

		if req.Items != nil {
			items, subtotal, buildErr := buildLineItems(*req.Items)
			if buildErr != nil {
				return buildErr
			}
			if replaceErr := s.poRepo.ReplaceItems(txCtx, po.ID, items); replaceErr != nil {
				return apperror.Wrap(apperror.KindInternal, replaceErr, "failed to replace line items")
			}
			po.Items = items
			po.Subtotal = subtotal
			po.TotalAmount = subtotal
		}

		po.UpdatedBy = actorID
		if saveErr := s.poRepo.Update(txCtx, po); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update purchase order")
		}

		if auditErr := s.logAudit(txCtx, actorID, model.ActionUpdatePurchaseOrder, po.ID.String(), po.PONumber, map[string]interface{}{
			"po_number":    po.PONumber,
			"total_amount": po.TotalAmount.String(),
		}); auditErr != nil {
			return auditErr
		}

		result = toPurchaseOrderResponse(*po)
		return nil
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	return result, nil
}

func (s *purchaseOrderService) Get(ctx context.Context, orgID uuid.UUID, id string) (PurchaseOrderResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseOrderResponse{}, apperror.Validation("invalid purchase order id")
	}
	po, err := s.poRepo.FindByIDWithItems(ctx, poID)
	if err != nil {
		return PurchaseOrderResponse{}, apperror.NotFound("purchase order not found")
	}
	if po.OrganizationID != orgID {
		return PurchaseOrderResponse{}, apperror.NotFound("purchase order not found")
	}
	return toPurchaseOrderResponse(*po), nil
}

func (s *purchaseOrderService) List(ctx context.Context, orgID uuid.UUID, filter POListFilter) ([]PurchaseOrderResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.PurchaseOrderFilter{
		Status: filter.Status,
		Search: filter.Search,
	}
	if filter.VendorID != "" {
		vendorID, err := uuid.Parse(filter.VendorID)
		if err != nil {
			return nil, 0, apperror.Validation("invalid vendor_id filter")
		}
		repoFilter.VendorID = &vendorID
	}

	orders, total, err := s.poRepo.List(ctx, orgID, repoFilter, filter.Page, filter.Limit)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.KindInternal, err, "failed to fetch purchase orders")
	}

	res := make([]PurchaseOrderResponse, 0, len(orders))
	for _, po := range orders {
		res = append(res, toPurchaseOrderResponse(po))
	}
	return res, total, nil
}

// SubmitForApproval resolves the applicable approval rule for the order amount
// and either auto-approves or opens (or resets) the multi-level workflow.
func (s *purchaseOrderService) SubmitForApproval(ctx context.Context, orgID uuid.UUID, actorID, id string) (SubmitResult, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return SubmitResult{}, apperror.Validation("invalid purchase order id")
	}

	var result SubmitResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if po.OrganizationID != orgID {
			return apperror.NotFound("purchase order not found")
		}
		if !po.CanSubmit() {
			return apperror.InvalidState("purchase order in status %s cannot be submitted", po.Status())
		}
		if len(po.Items) == 0 {
			return apperror.Validation("purchase order has no line items")
		}

		rules, rulesErr := s.ruleRepo.ListActive(txCtx, orgID)
		if rulesErr != nil {
			return apperror.Wrap(apperror.KindInternal, rulesErr, "failed to load approval rules")
		}
		rule := model.ResolveRule(rules, po.TotalAmount)
		if rule == nil {
			return apperror.Configuration("no approval rule covers amount %s", po.TotalAmount.String())
		}

		now := time.Now()
		previousStatus := po.ApprovalStatus

		wf, wfErr := s.wfRepo.FindByPOIDForUpdate(txCtx, poID)
		if wfErr != nil {
			wf = nil
		}

		if rule.AutoApproves(po.TotalAmount) {
			return s.autoApprove(txCtx, po, wf, rule, actorID, previousStatus, now, &result)
		}

		firstLevel, hasLevels := rule.FirstRequiredLevel()
		if !hasLevels {
			return apperror.Configuration("rule %s requires no approval level and has no auto-approval threshold", rule.RuleName)
		}

		po.ApprovalStatus = model.POApprovalPending
		po.UpdatedBy = actorID
		if saveErr := s.poRepo.Update(txCtx, po); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update purchase order")
		}

		expected := now.AddDate(0, 0, s.slaDays)
		if wf == nil {
			wf = &model.ApprovalWorkflow{
				POID:           po.ID,
				AppliedRuleID:  &rule.ID,
				ApprovalStatus: model.POApprovalPending,
				CurrentLevel:   firstLevel,
				SubmittedAt:    &now,
				SubmittedBy:    actorID,
			}
			wf.InitializeLevels(rule)
			wf.ExpectedApprovalDate = &expected
			if createErr := s.wfRepo.Create(txCtx, wf); createErr != nil {
				return apperror.Wrap(apperror.KindInternal, createErr, "failed to create approval workflow")
			}
		} else {
			resetWorkflowForResubmission(wf, rule)
			wf.AppliedRuleID = &rule.ID
			wf.SubmittedAt = &now
			wf.SubmittedBy = actorID
			wf.ExpectedApprovalDate = &expected
			wf.IsOverdue = false
			wf.FinalApprovedAt = nil
			wf.FinalApprovedBy = ""
			if updateErr := s.wfRepo.Update(txCtx, wf); updateErr != nil {
				return apperror.Wrap(apperror.KindInternal, updateErr, "failed to reset approval workflow")
			}
		}

		history := &model.ApprovalHistory{
			POID:           po.ID,
			ApprovalLevel:  wf.CurrentLevel,
			Action:         model.ApprovalActionSubmit,
			ActorID:        actorID,
			PreviousStatus: previousStatus,
			NewStatus:      po.ApprovalStatus,
			POAmountAtTime: po.TotalAmount,
		}
		if histErr := s.wfRepo.AddHistory(txCtx, history); histErr != nil {
			return apperror.Wrap(apperror.KindInternal, histErr, "failed to record approval history")
		}

		if auditErr := s.logAudit(txCtx, actorID, model.ActionSubmitForApproval, po.ID.String(), po.PONumber, map[string]interface{}{
			"applied_rule": rule.RuleName,
			"amount":       po.TotalAmount.String(),
		}); auditErr != nil {
			return auditErr
		}

		result = SubmitResult{PO: toPurchaseOrderResponse(*po), AppliedRule: rule.RuleName}
		return nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	return result, nil
}

func (s *purchaseOrderService) autoApprove(ctx context.Context, po *model.PurchaseOrder, wf *model.ApprovalWorkflow, rule *model.ApprovalRule, actorID, previousStatus string, now time.Time, result *SubmitResult) error {
	po.ApprovalStatus = model.POApprovalFinalApproved
	po.ApprovedBy = model.SystemAutoApprover
	po.ApprovedAt = &now
	po.UpdatedBy = actorID
	if err := s.poRepo.Update(ctx, po); err != nil {
		return apperror.Wrap(apperror.KindInternal, err, "failed to update purchase order")
	}

	if wf == nil {
		wf = &model.ApprovalWorkflow{POID: po.ID}
		wf.InitializeLevels(rule)
		wf.AppliedRuleID = &rule.ID
		wf.ApprovalStatus = model.POApprovalFinalApproved
		wf.SubmittedAt = &now
		wf.SubmittedBy = actorID
		wf.FinalApprovedAt = &now
		wf.FinalApprovedBy = model.SystemAutoApprover
		if err := s.wfRepo.Create(ctx, wf); err != nil {
			return apperror.Wrap(apperror.KindInternal, err, "failed to create approval workflow")
		}
	} else {
		wf.InitializeLevels(rule)
		wf.AppliedRuleID = &rule.ID
		wf.ApprovalStatus = model.POApprovalFinalApproved
		wf.CurrentLevel = ""
		wf.SubmittedAt = &now
		wf.SubmittedBy = actorID
		wf.FinalApprovedAt = &now
		wf.FinalApprovedBy = model.SystemAutoApprover
		wf.IsOverdue = false
		if err := s.wfRepo.Update(ctx, wf); err != nil {
			return apperror.Wrap(apperror.KindInternal, err, "failed to update approval workflow")
		}
	}

	entries := []*model.ApprovalHistory{
		{
			POID:           po.ID,
			ApprovalLevel:  model.ApprovalLevelAdmin,
			Action:         model.ApprovalActionSubmit,
			ActorID:        actorID,
			PreviousStatus: previousStatus,
			NewStatus:      model.POApprovalPending,
			POAmountAtTime: po.TotalAmount,
		},
		{
			POID:           po.ID,
			ApprovalLevel:  model.ApprovalLevelAdmin,
			Action:         model.ApprovalActionApprove,
			ActorID:        model.SystemAutoApprover,
			Comments:       "auto-approved below rule threshold",
			PreviousStatus: model.POApprovalPending,
			NewStatus:      model.POApprovalFinalApproved,
			POAmountAtTime: po.TotalAmount,
		},
	}
	for _, entry := range entries {
		if err := s.wfRepo.AddHistory(ctx, entry); err != nil {
			return apperror.Wrap(apperror.KindInternal, err, "failed to record approval history")
		}
	}

	if err := s.logAudit(ctx, actorID, model.ActionSubmitForApproval, po.ID.String(), po.PONumber, map[string]interface{}{
		"applied_rule":  rule.RuleName,
		"amount":        po.TotalAmount.String(),
		"auto_approved": true,
	}); err != nil {
		return err
	}

	*result = SubmitResult{PO: toPurchaseOrderResponse(*po), AutoApproved: true, AppliedRule: rule.RuleName}
	return nil
}

// resetWorkflowForResubmission reopens a workflow for a new approval round.
// When the rule clears approvals on change every level starts over; otherwise
// levels approved in the previous round are kept and the workflow resumes at
// the first still-pending required level.
func resetWorkflowForResubmission(wf *model.ApprovalWorkflow, rule *model.ApprovalRule) {
	if rule.ClearApprovalsOnChange {
		wf.InitializeLevels(rule)
		first, _ := rule.FirstRequiredLevel()
		wf.CurrentLevel = first
		wf.ApprovalStatus = model.POApprovalPending
		return
	}

	lastApproved := ""
	wf.CurrentLevel = ""
	for _, level := range model.ApprovalLevelOrder {
		state := wf.LevelState(level)
		if !rule.LevelRequired(level) {
			state.Status = model.LevelNotRequired
			state.Approver = ""
			state.ApprovedAt = nil
			continue
		}
		if state.Status == model.LevelApproved {
			lastApproved = level
			continue
		}
		state.Status = model.LevelPending
		state.Approver = ""
		state.ApprovedAt = nil
		if wf.CurrentLevel == "" {
			wf.CurrentLevel = level
		}
	}

	if wf.CurrentLevel == "" {
		// every required level already carries an approval; resume at the last
		// one so a human still confirms the changed order
		wf.CurrentLevel = lastApproved
		state := wf.LevelState(lastApproved)
		state.Status = model.LevelPending
		state.Approver = ""
		state.ApprovedAt = nil
	}
	if lastApproved == "" || wf.CurrentLevel == lastApproved {
		wf.ApprovalStatus = model.POApprovalPending
	} else {
		wf.ApprovalStatus = approvalStatusForProgress(lastApproved)
	}
}

func approvalStatusForProgress(lastApprovedLevel string) string {
	switch lastApprovedLevel {
	case model.ApprovalLevel1:
		return model.POApprovalLevel1Approved
	case model.ApprovalLevel2:
		return model.POApprovalLevel2Approved
	case model.ApprovalLevel3:
		return model.POApprovalLevel3Approved
	default:
		return model.POApprovalPending
	}
}

// UpdateFulfillmentStatus applies a manual operational transition. Receipt
// statuses are computed from quantities and cannot be set here.
func (s *purchaseOrderService) UpdateFulfillmentStatus(ctx context.Context, orgID uuid.UUID, actorID, id, status string) (PurchaseOrderResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseOrderResponse{}, apperror.Validation("invalid purchase order id")
	}
	if !model.ManualFulfillmentStatuses[status] {
		return PurchaseOrderResponse{}, apperror.Validation("status %s cannot be set manually", status)
	}

	var result PurchaseOrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if po.OrganizationID != orgID {
			return apperror.NotFound("purchase order not found")
		}
		if po.ApprovalStatus != model.POApprovalFinalApproved {
			return apperror.InvalidState("purchase order in status %s cannot be tracked", po.Status())
		}
		if !model.CanAdvanceFulfillment(po.FulfillmentStatus, status) {
			return apperror.InvalidState("cannot move from %s to %s", po.Status(), status)
		}

		previous := po.Status()
		po.FulfillmentStatus = status
		po.UpdatedBy = actorID
		if saveErr := s.poRepo.Update(txCtx, po); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update purchase order")
		}

		if auditErr := s.logAudit(txCtx, actorID, model.ActionChangePOStatus, po.ID.String(), po.PONumber, map[string]interface{}{
			"from": previous,
			"to":   po.Status(),
		}); auditErr != nil {
			return auditErr
		}

		result = toPurchaseOrderResponse(*po)
		return nil
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	return result, nil
}

// Cancel withdraws an order before any goods arrive. Orders with received
// quantity must run their course instead.
func (s *purchaseOrderService) Cancel(ctx context.Context, orgID uuid.UUID, actorID, id, reason string) (PurchaseOrderResponse, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return PurchaseOrderResponse{}, apperror.Validation("invalid purchase order id")
	}

	var result PurchaseOrderResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if po.OrganizationID != orgID {
			return apperror.NotFound("purchase order not found")
		}
		if po.ApprovalStatus == model.POApprovalCancelled {
			return apperror.InvalidState("purchase order is already cancelled")
		}
		if po.FulfillmentStatus == model.FulfillmentCompleted {
			return apperror.InvalidState("completed purchase order cannot be cancelled")
		}
		if !po.TotalReceived().IsZero() {
			return apperror.InvalidState("purchase order with received goods cannot be cancelled")
		}

		previousStatus := po.ApprovalStatus
		wasPending := po.ApprovalStatus == model.POApprovalPending ||
			previousStatus == model.POApprovalLevel1Approved ||
			previousStatus == model.POApprovalLevel2Approved ||
			previousStatus == model.POApprovalLevel3Approved

		po.ApprovalStatus = model.POApprovalCancelled
		po.UpdatedBy = actorID
		if saveErr := s.poRepo.Update(txCtx, po); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to cancel purchase order")
		}

		if wasPending {
			wf, wfErr := s.wfRepo.FindByPOIDForUpdate(txCtx, poID)
			if wfErr == nil {
				wf.ApprovalStatus = model.POApprovalCancelled
				wf.CurrentLevel = ""
				if updateErr := s.wfRepo.Update(txCtx, wf); updateErr != nil {
					return apperror.Wrap(apperror.KindInternal, updateErr, "failed to cancel approval workflow")
				}
				history := &model.ApprovalHistory{
					POID:           po.ID,
					ApprovalLevel:  model.ApprovalLevelAdmin,
					Action:         model.ApprovalActionCancel,
					ActorID:        actorID,
					Comments:       reason,
					PreviousStatus: previousStatus,
					NewStatus:      model.POApprovalCancelled,
					POAmountAtTime: po.TotalAmount,
				}
				if histErr := s.wfRepo.AddHistory(txCtx, history); histErr != nil {
					return apperror.Wrap(apperror.KindInternal, histErr, "failed to record approval history")
				}
			}
		}

		if auditErr := s.logAudit(txCtx, actorID, model.ActionCancelPurchaseOrder, po.ID.String(), po.PONumber, map[string]interface{}{
			"reason": reason,
			"from":   previousStatus,
		}); auditErr != nil {
			return auditErr
		}

		result = toPurchaseOrderResponse(*po)
		return nil
	})
	if err != nil {
		return PurchaseOrderResponse{}, err
	}
	return result, nil
}

// --- Response mappers ---

func toPurchaseOrderResponse(po model.PurchaseOrder) PurchaseOrderResponse {
	items := make([]POLineItemResponse, 0, len(po.Items))
	for _, item := range po.Items {
		items = append(items, POLineItemResponse{
			ID:               item.ID,
			ItemDescription:  item.ItemDescription,
			HSNCode:          item.HSNCode,
			Unit:             item.Unit,
			Quantity:         item.Quantity,
			UnitPrice:        item.UnitPrice,
			TotalAmount:      item.TotalAmount,
			ReceivedQuantity: item.ReceivedQuantity,
			PendingQuantity:  item.PendingQuantity,
		})
	}

	res := PurchaseOrderResponse{
		ID:                   po.ID,
		PONumber:             po.PONumber,
		VendorID:             po.VendorID,
		PODate:               po.PODate,
		ExpectedDeliveryDate: po.ExpectedDeliveryDate,
		Subtotal:             po.Subtotal,
		TotalAmount:          po.TotalAmount,
		Status:               po.Status(),
		ApprovalStatus:       po.ApprovalStatus,
		FulfillmentStatus:    po.FulfillmentStatus,
		DeliveryAddress:      po.DeliveryAddress,
		TermsAndConditions:   po.TermsAndConditions,
		Notes:                po.Notes,
		ApprovedBy:           po.ApprovedBy,
		ApprovedAt:           po.ApprovedAt,
		Items:                items,
		CreatedAt:            po.CreatedAt,
		UpdatedAt:            po.UpdatedAt,
		CreatedBy:            po.CreatedBy,
	}
	if po.Vendor != nil {
		res.VendorName = po.Vendor.BusinessName
	}
	return res
}
