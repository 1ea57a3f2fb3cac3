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

// --- DTOs ---

type ApprovalDecisionRequest struct {
	Action string `json:"action" binding:"required,oneof=approve reject request_changes"`
	// Level optionally pins the decision to the level the approver saw; a
	// mismatch with the workflow's current level refuses the decision.
	Level    string `json:"level" binding:"omitempty,oneof=level_1 level_2 level_3 finance"`
	Comments string `json:"comments"`
}

type LevelStateResponse struct {
	Status     string     `json:"status"`
	Approver   string     `json:"approver,omitempty"`
	ApprovedAt *time.Time `json:"approved_at,omitempty"`
}

type WorkflowResponse struct {
	POID                 uuid.UUID                     `json:"po_id"`
	ApprovalStatus       string                        `json:"approval_status"`
	CurrentLevel         string                        `json:"current_level"`
	AppliedRule          string                        `json:"applied_rule"`
	Levels               map[string]LevelStateResponse `json:"levels"`
	SubmittedAt          *time.Time                    `json:"submitted_at"`
	SubmittedBy          string                        `json:"submitted_by"`
	FinalApprovedAt      *time.Time                    `json:"final_approved_at"`
	FinalApprovedBy      string                        `json:"final_approved_by"`
	ExpectedApprovalDate *time.Time                    `json:"expected_approval_date"`
	IsOverdue            bool                          `json:"is_overdue"`
	History              []ApprovalHistoryResponse     `json:"history,omitempty"`
}

type ApprovalHistoryResponse struct {
	ApprovalLevel  string          `json:"approval_level"`
	Action         string          `json:"action"`
	ActorID        string          `json:"actor_id"`
	Comments       string          `json:"comments,omitempty"`
	PreviousStatus string          `json:"previous_status"`
	NewStatus      string          `json:"new_status"`
	POAmountAtTime decimal.Decimal `json:"po_amount_at_time"`
	CreatedAt      time.Time       `json:"created_at"`
}

type PendingApprovalResponse struct {
	POID                 uuid.UUID       `json:"po_id"`
	PONumber             string          `json:"po_number"`
	VendorName           string          `json:"vendor_name"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	CurrentLevel         string          `json:"current_level"`
	SubmittedAt          *time.Time      `json:"submitted_at"`
	ExpectedApprovalDate *time.Time      `json:"expected_approval_date"`
	IsOverdue            bool            `json:"is_overdue"`
}

type CreateApprovalRuleRequest struct {
	RuleName               string           `json:"rule_name" binding:"required"`
	MinAmount              decimal.Decimal  `json:"min_amount"`
	MaxAmount              *decimal.Decimal `json:"max_amount"`
	Level1Required         bool             `json:"level_1_required"`
	Level2Required         bool             `json:"level_2_required"`
	Level3Required         bool             `json:"level_3_required"`
	FinanceRequired        bool             `json:"finance_required"`
	Level1Approvers        []string         `json:"level_1_approvers"`
	Level2Approvers        []string         `json:"level_2_approvers"`
	Level3Approvers        []string         `json:"level_3_approvers"`
	FinanceApprovers       []string         `json:"finance_approvers"`
	AutoApproveBelow       decimal.Decimal  `json:"auto_approve_below"`
	ClearApprovalsOnChange *bool            `json:"clear_approvals_on_change"` // default true
}

type ApprovalRuleResponse struct {
	ID                     uuid.UUID        `json:"id"`
	RuleName               string           `json:"rule_name"`
	MinAmount              decimal.Decimal  `json:"min_amount"`
	MaxAmount              *decimal.Decimal `json:"max_amount"`
	Level1Required         bool             `json:"level_1_required"`
	Level2Required         bool             `json:"level_2_required"`
	Level3Required         bool             `json:"level_3_required"`
	FinanceRequired        bool             `json:"finance_required"`
	Level1Approvers        []string         `json:"level_1_approvers"`
	Level2Approvers        []string         `json:"level_2_approvers"`
	Level3Approvers        []string         `json:"level_3_approvers"`
	FinanceApprovers       []string         `json:"finance_approvers"`
	AutoApproveBelow       decimal.Decimal  `json:"auto_approve_below"`
	ClearApprovalsOnChange bool             `json:"clear_approvals_on_change"`
	IsActive               bool             `json:"is_active"`
	CreatedAt              time.Time        `json:"created_at"`
}

// --- Interface ---

type ApprovalService interface {
	ProcessApproval(ctx context.Context, orgID uuid.UUID, actorID, poID string, req ApprovalDecisionRequest) (WorkflowResponse, error)
	GetWorkflow(ctx context.Context, orgID uuid.UUID, poID string) (WorkflowResponse, error)
	ListPendingForApprover(ctx context.Context, orgID uuid.UUID, approverID string) ([]PendingApprovalResponse, error)
	MarkOverdueWorkflows(ctx context.Context, asOf time.Time) (int, error)
	CreateRule(ctx context.Context, orgID uuid.UUID, actorID string, req CreateApprovalRuleRequest) (ApprovalRuleResponse, error)
	ListRules(ctx context.Context, orgID uuid.UUID, page, limit int) ([]ApprovalRuleResponse, int64, error)
	DeactivateRule(ctx context.Context, orgID uuid.UUID, actorID, ruleID string) error
}

type approvalService struct {
	poRepo    repository.PurchaseOrderRepository
	ruleRepo  repository.ApprovalRuleRepository
	wfRepo    repository.ApprovalWorkflowRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewApprovalService(
	poRepo repository.PurchaseOrderRepository,
	ruleRepo repository.ApprovalRuleRepository,
	wfRepo repository.ApprovalWorkflowRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ApprovalService {
	return &approvalService{
		poRepo:    poRepo,
		ruleRepo:  ruleRepo,
		wfRepo:    wfRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Decision processing ---

// ProcessApproval applies one approver decision at the workflow's current
// level. The workflow row is locked first, so two approvers racing on the
// same level serialize and the loser sees an invalid-state error.
func (s *approvalService) ProcessApproval(ctx context.Context, orgID uuid.UUID, actorID, poID string, req ApprovalDecisionRequest) (WorkflowResponse, error) {
	id, err := uuid.Parse(poID)
	if err != nil {
		return WorkflowResponse{}, apperror.Validation("invalid purchase order id")
	}
	if req.Action == model.ApprovalActionReject && req.Comments == "" {
		return WorkflowResponse{}, apperror.Validation("comments are required when rejecting")
	}

	var result WorkflowResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wf, wfErr := s.wfRepo.FindByPOIDForUpdate(txCtx, id)
		if wfErr != nil {
			return apperror.NotFound("approval workflow not found")
		}
		po, poErr := s.poRepo.FindByIDForUpdate(txCtx, id)
		if poErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if po.OrganizationID != orgID {
			return apperror.NotFound("purchase order not found")
		}
		if !wf.IsPending() {
			return apperror.InvalidState("workflow is already %s", wf.ApprovalStatus)
		}
		rule := wf.AppliedRule
		if rule == nil {
			return apperror.Configuration("workflow has no applied rule")
		}
		level := wf.CurrentLevel
		if level == "" {
			return apperror.InvalidState("workflow has no level awaiting a decision")
		}
		if req.Level != "" && req.Level != level {
			return apperror.InvalidState("decision targets %s but the workflow is at %s", req.Level, level)
		}
		if !rule.IsApprover(level, actorID) {
			return apperror.Forbidden("user is not an approver for %s", level)
		}

		now := time.Now()
		previousStatus := wf.ApprovalStatus

		switch req.Action {
		case model.ApprovalActionApprove:
			wf.ApplyLevelApproval(rule, level, actorID, now)
			po.ApprovalStatus = wf.ApprovalStatus
			if wf.ApprovalStatus == model.POApprovalFinalApproved {
				po.ApprovedBy = actorID
				po.ApprovedAt = &now
			}

		case model.ApprovalActionReject:
			state := wf.LevelState(level)
			state.Status = model.LevelRejected
			state.Approver = actorID
			state.ApprovedAt = &now
			wf.ApprovalStatus = model.POApprovalRejected
			wf.CurrentLevel = ""
			po.ApprovalStatus = model.POApprovalRejected

		case model.ApprovalActionRequestChanges:
			// order returns to the drawing board; whether earlier approvals
			// survive the rework is the rule's call
			if rule.ClearApprovalsOnChange {
				wf.InitializeLevels(rule)
			}
			wf.ApprovalStatus = model.POApprovalDraft
			wf.CurrentLevel = ""
			po.ApprovalStatus = model.POApprovalDraft

		default:
			return apperror.Validation("unknown action %s", req.Action)
		}

		po.UpdatedBy = actorID
		if saveErr := s.poRepo.Update(txCtx, po); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update purchase order")
		}
		if saveErr := s.wfRepo.Update(txCtx, wf); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update approval workflow")
		}

		history := &model.ApprovalHistory{
			POID:           po.ID,
			ApprovalLevel:  level,
			Action:         req.Action,
			ActorID:        actorID,
			Comments:       req.Comments,
			PreviousStatus: previousStatus,
			NewStatus:      wf.ApprovalStatus,
			POAmountAtTime: po.TotalAmount,
		}
		if histErr := s.wfRepo.AddHistory(txCtx, history); histErr != nil {
			return apperror.Wrap(apperror.KindInternal, histErr, "failed to record approval history")
		}

		if auditErr := s.audit(txCtx, actorID, model.ActionProcessApproval, po.ID.String(), po.PONumber, map[string]interface{}{
			"action": req.Action,
			"level":  level,
			"from":   previousStatus,
			"to":     wf.ApprovalStatus,
		}); auditErr != nil {
			return auditErr
		}

		result = toWorkflowResponse(*wf, nil)
		return nil
	})
	if err != nil {
		return WorkflowResponse{}, err
	}
	return result, nil
}

func (s *approvalService) GetWorkflow(ctx context.Context, orgID uuid.UUID, poID string) (WorkflowResponse, error) {
	id, err := uuid.Parse(poID)
	if err != nil {
		return WorkflowResponse{}, apperror.Validation("invalid purchase order id")
	}
	po, err := s.poRepo.FindByIDWithItems(ctx, id)
	if err != nil || po.OrganizationID != orgID {
		return WorkflowResponse{}, apperror.NotFound("purchase order not found")
	}
	wf, err := s.wfRepo.FindByPOID(ctx, id)
	if err != nil {
		return WorkflowResponse{}, apperror.NotFound("approval workflow not found")
	}
	history, err := s.wfRepo.ListHistory(ctx, id)
	if err != nil {
		return WorkflowResponse{}, apperror.Wrap(apperror.KindInternal, err, "failed to load approval history")
	}
	return toWorkflowResponse(*wf, history), nil
}

func (s *approvalService) ListPendingForApprover(ctx context.Context, orgID uuid.UUID, approverID string) ([]PendingApprovalResponse, error) {
	wfs, err := s.wfRepo.ListPending(ctx, orgID)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, err, "failed to list pending workflows")
	}

	res := make([]PendingApprovalResponse, 0)
	for _, wf := range wfs {
		if wf.AppliedRule == nil || wf.CurrentLevel == "" {
			continue
		}
		if !wf.AppliedRule.IsApprover(wf.CurrentLevel, approverID) {
			continue
		}
		po, poErr := s.poRepo.FindByIDWithItems(ctx, wf.POID)
		if poErr != nil {
			continue
		}
		entry := PendingApprovalResponse{
			POID:                 wf.POID,
			PONumber:             po.PONumber,
			TotalAmount:          po.TotalAmount,
			CurrentLevel:         wf.CurrentLevel,
			SubmittedAt:          wf.SubmittedAt,
			ExpectedApprovalDate: wf.ExpectedApprovalDate,
			IsOverdue:            wf.IsOverdue,
		}
		if po.Vendor != nil {
			entry.VendorName = po.Vendor.BusinessName
		}
		res = append(res, entry)
	}
	return res, nil
}

// MarkOverdueWorkflows flags in-flight workflows past their expected approval
// date. Returns the number of workflows flagged.
func (s *approvalService) MarkOverdueWorkflows(ctx context.Context, asOf time.Time) (int, error) {
	flagged := 0
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		wfs, listErr := s.wfRepo.ListOverdueCandidates(txCtx, asOf)
		if listErr != nil {
			return apperror.Wrap(apperror.KindInternal, listErr, "failed to list overdue candidates")
		}
		for i := range wfs {
			wfs[i].IsOverdue = true
			wfs[i].EscalationCount++
			if updateErr := s.wfRepo.Update(txCtx, &wfs[i]); updateErr != nil {
				return apperror.Wrap(apperror.KindInternal, updateErr, "failed to flag overdue workflow")
			}
			flagged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return flagged, nil
}

// --- Rule management ---

func (s *approvalService) CreateRule(ctx context.Context, orgID uuid.UUID, actorID string, req CreateApprovalRuleRequest) (ApprovalRuleResponse, error) {
	if req.MinAmount.IsNegative() {
		return ApprovalRuleResponse{}, apperror.Validation("min_amount cannot be negative")
	}
	if req.MaxAmount != nil && req.MaxAmount.LessThan(req.MinAmount) {
		return ApprovalRuleResponse{}, apperror.Validation("max_amount must be at least min_amount")
	}
	if req.AutoApproveBelow.IsNegative() {
		return ApprovalRuleResponse{}, apperror.Validation("auto_approve_below cannot be negative")
	}

	rule := &model.ApprovalRule{
		OrganizationID:         orgID,
		RuleName:               req.RuleName,
		MinAmount:              req.MinAmount,
		MaxAmount:              req.MaxAmount,
		Level1Required:         req.Level1Required,
		Level2Required:         req.Level2Required,
		Level3Required:         req.Level3Required,
		FinanceRequired:        req.FinanceRequired,
		Level1Approvers:        model.ApproverList(req.Level1Approvers),
		Level2Approvers:        model.ApproverList(req.Level2Approvers),
		Level3Approvers:        model.ApproverList(req.Level3Approvers),
		FinanceApprovers:       model.ApproverList(req.FinanceApprovers),
		AutoApproveBelow:       req.AutoApproveBelow,
		ClearApprovalsOnChange: true,
		IsActive:               true,
		CreatedBy:              actorID,
		UpdatedBy:              actorID,
	}
	if req.ClearApprovalsOnChange != nil {
		rule.ClearApprovalsOnChange = *req.ClearApprovalsOnChange
	}

	// every required level needs someone who can actually approve it
	for _, level := range rule.RequiredLevels() {
		if len(rule.ApproversFor(level)) == 0 {
			return ApprovalRuleResponse{}, apperror.Validation("%s is required but has no approvers", level)
		}
	}
	if len(rule.RequiredLevels()) == 0 && !rule.AutoApproveBelow.IsPositive() {
		return ApprovalRuleResponse{}, apperror.Validation("rule must require at least one level or set auto_approve_below")
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.ruleRepo.Create(txCtx, rule); createErr != nil {
			return apperror.Wrap(apperror.KindInternal, createErr, "failed to create approval rule")
		}
		return s.audit(txCtx, actorID, model.ActionCreateApprovalRule, rule.ID.String(), rule.RuleName, map[string]interface{}{
			"min_amount": rule.MinAmount.String(),
		})
	})
	if err != nil {
		return ApprovalRuleResponse{}, err
	}
	return toRuleResponse(*rule), nil
}

func (s *approvalService) ListRules(ctx context.Context, orgID uuid.UUID, page, limit int) ([]ApprovalRuleResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	rules, total, err := s.ruleRepo.List(ctx, orgID, page, limit)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.KindInternal, err, "failed to fetch approval rules")
	}
	res := make([]ApprovalRuleResponse, 0, len(rules))
	for _, rule := range rules {
		res = append(res, toRuleResponse(rule))
	}
	return res, total, nil
}

// DeactivateRule retires a rule from resolution. In-flight workflows keep the
// rule they were opened with.
func (s *approvalService) DeactivateRule(ctx context.Context, orgID uuid.UUID, actorID, ruleID string) error {
	id, err := uuid.Parse(ruleID)
	if err != nil {
		return apperror.Validation("invalid rule id")
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rule, findErr := s.ruleRepo.FindByID(txCtx, id)
		if findErr != nil {
			return apperror.NotFound("approval rule not found")
		}
		if rule.OrganizationID != orgID {
			return apperror.NotFound("approval rule not found")
		}
		if !rule.IsActive {
			return apperror.InvalidState("approval rule is already inactive")
		}
		rule.IsActive = false
		rule.UpdatedBy = actorID
		if updateErr := s.ruleRepo.Update(txCtx, rule); updateErr != nil {
			return apperror.Wrap(apperror.KindInternal, updateErr, "failed to deactivate approval rule")
		}
		return s.audit(txCtx, actorID, model.ActionDeactivateApprovalRule, rule.ID.String(), rule.RuleName, nil)
	})
}

func (s *approvalService) audit(ctx context.Context, actorID, action, entityID, entityName string, details map[string]interface{}) error {
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

// --- Response mappers ---

func toWorkflowResponse(wf model.ApprovalWorkflow, history []model.ApprovalHistory) WorkflowResponse {
	res := WorkflowResponse{
		POID:           wf.POID,
		ApprovalStatus: wf.ApprovalStatus,
		CurrentLevel:   wf.CurrentLevel,
		Levels: map[string]LevelStateResponse{
			model.ApprovalLevel1:       toLevelStateResponse(wf.Level1),
			model.ApprovalLevel2:       toLevelStateResponse(wf.Level2),
			model.ApprovalLevel3:       toLevelStateResponse(wf.Level3),
			model.ApprovalLevelFinance: toLevelStateResponse(wf.Finance),
		},
		SubmittedAt:          wf.SubmittedAt,
		SubmittedBy:          wf.SubmittedBy,
		FinalApprovedAt:      wf.FinalApprovedAt,
		FinalApprovedBy:      wf.FinalApprovedBy,
		ExpectedApprovalDate: wf.ExpectedApprovalDate,
		IsOverdue:            wf.IsOverdue,
	}
	if wf.AppliedRule != nil {
		res.AppliedRule = wf.AppliedRule.RuleName
	}
	for _, entry := range history {
		res.History = append(res.History, ApprovalHistoryResponse{
			ApprovalLevel:  entry.ApprovalLevel,
			Action:         entry.Action,
			ActorID:        entry.ActorID,
			Comments:       entry.Comments,
			PreviousStatus: entry.PreviousStatus,
			NewStatus:      entry.NewStatus,
			POAmountAtTime: entry.POAmountAtTime,
			CreatedAt:      entry.CreatedAt,
		})
	}
	return res
}

func toLevelStateResponse(state model.LevelState) LevelStateResponse {
	return LevelStateResponse{
		Status:     state.Status,
		Approver:   state.Approver,
		ApprovedAt: state.ApprovedAt,
	}
}

func toRuleResponse(rule model.ApprovalRule) ApprovalRuleResponse {
	return ApprovalRuleResponse{
		ID:                     rule.ID,
		RuleName:               rule.RuleName,
		MinAmount:              rule.MinAmount,
		MaxAmount:              rule.MaxAmount,
		Level1Required:         rule.Level1Required,
		Level2Required:         rule.Level2Required,
		Level3Required:         rule.Level3Required,
		FinanceRequired:        rule.FinanceRequired,
		Level1Approvers:        rule.Level1Approvers,
		Level2Approvers:        rule.Level2Approvers,
		Level3Approvers:        rule.Level3Approvers,
		FinanceApprovers:       rule.FinanceApprovers,
		AutoApproveBelow:       rule.AutoApproveBelow,
		ClearApprovalsOnChange: rule.ClearApprovalsOnChange,
		IsActive:               rule.IsActive,
		CreatedAt:              rule.CreatedAt,
	}
}
