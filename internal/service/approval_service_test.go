package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type approvalFixture struct {
	*poFixture
	svc ApprovalService
}

func newApprovalFixture(t *testing.T) *approvalFixture {
	t.Helper()
	base := newPOFixture(t)
	return &approvalFixture{
		poFixture: base,
		svc:       NewApprovalService(base.poRepo, base.ruleRepo, base.wfRepo, base.auditRepo, fakeTxManager{}),
	}
}

// submitPO creates and submits an order under a two-level rule
// (level_1: mgr-1, finance: fin-1).
func (f *approvalFixture) submitPO(t *testing.T, clearOnChange bool) uuid.UUID {
	t.Helper()
	f.addRule(t, model.ApprovalRule{
		RuleName:               "two step",
		MinAmount:              decimal.Zero,
		Level1Required:         true,
		FinanceRequired:        true,
		Level1Approvers:        model.ApproverList{"mgr-1"},
		FinanceApprovers:       model.ApproverList{"fin-1"},
		ClearApprovalsOnChange: clearOnChange,
	})

	poSvc := NewPurchaseOrderService(f.poRepo, f.ruleRepo, f.wfRepo, f.vendorRepo, f.auditRepo, fakeTxManager{}, 0)
	res, err := poSvc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)
	_, err = poSvc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.NoError(t, err)
	return res.ID
}

func TestProcessApprovalAdvancesAndFinalizes(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	wf, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove})
	require.NoError(t, err)
	require.Equal(t, model.POApprovalLevel1Approved, wf.ApprovalStatus)
	require.Equal(t, model.ApprovalLevelFinance, wf.CurrentLevel)

	wf, err = f.svc.ProcessApproval(context.Background(), f.orgID, "fin-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove})
	require.NoError(t, err)
	require.Equal(t, model.POApprovalFinalApproved, wf.ApprovalStatus)
	require.Equal(t, "fin-1", wf.FinalApprovedBy)

	po := f.poRepo.orders[poID]
	require.Equal(t, model.POApprovalFinalApproved, po.ApprovalStatus)
	require.Equal(t, "fin-1", po.ApprovedBy)
	require.NotNil(t, po.ApprovedAt)
}

func TestProcessApprovalForbiddenForNonApprover(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	_, err := f.svc.ProcessApproval(context.Background(), f.orgID, "fin-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove})
	require.True(t, apperror.Is(err, apperror.KindForbidden), "finance approver cannot act at level 1")

	_, err = f.svc.ProcessApproval(context.Background(), f.orgID, "stranger", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove})
	require.True(t, apperror.Is(err, apperror.KindForbidden))
}

func TestProcessApprovalAfterTerminalFails(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	_, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionReject, Comments: "over budget"})
	require.NoError(t, err)

	// the second decision on the same workflow loses
	_, err = f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove})
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestProcessApprovalStaleLevelFails(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	_, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove, Level: model.ApprovalLevel1})
	require.NoError(t, err)

	// a decision carried over from the already-cleared level loses
	_, err = f.svc.ProcessApproval(context.Background(), f.orgID, "fin-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove, Level: model.ApprovalLevel1})
	require.True(t, apperror.Is(err, apperror.KindInvalidState))

	wf, err := f.svc.ProcessApproval(context.Background(), f.orgID, "fin-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove, Level: model.ApprovalLevelFinance})
	require.NoError(t, err)
	require.Equal(t, model.POApprovalFinalApproved, wf.ApprovalStatus)
}

func TestRejectRequiresComments(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	_, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionReject})
	require.True(t, apperror.Is(err, apperror.KindValidation))

	// the refused decision leaves the workflow and the history untouched
	require.Equal(t, model.ApprovalLevel1, f.wfRepo.workflows[poID].CurrentLevel)
	for _, entry := range f.wfRepo.history {
		require.NotEqual(t, model.ApprovalActionReject, entry.Action)
	}
}

func TestRejectPropagatesToPO(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	wf, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionReject, Comments: "wrong vendor"})
	require.NoError(t, err)
	require.Equal(t, model.POApprovalRejected, wf.ApprovalStatus)
	require.Empty(t, wf.CurrentLevel)

	po := f.poRepo.orders[poID]
	require.Equal(t, model.POApprovalRejected, po.ApprovalStatus)
	require.True(t, po.IsMutable(), "rejected orders reopen for editing")
}

func TestRequestChangesClearsApprovals(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	_, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove})
	require.NoError(t, err)
	_, err = f.svc.ProcessApproval(context.Background(), f.orgID, "fin-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionRequestChanges, Comments: "split the order"})
	require.NoError(t, err)

	stored := f.wfRepo.workflows[poID]
	require.Equal(t, model.POApprovalDraft, stored.ApprovalStatus)
	require.Equal(t, model.LevelPending, stored.Level1.Status, "level 1 approval cleared")

	// resubmission starts from level 1 again
	poSvc := NewPurchaseOrderService(f.poRepo, f.ruleRepo, f.wfRepo, f.vendorRepo, f.auditRepo, fakeTxManager{}, 0)
	_, err = poSvc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", poID.String())
	require.NoError(t, err)
	require.Equal(t, model.ApprovalLevel1, f.wfRepo.workflows[poID].CurrentLevel)
}

func TestRequestChangesPreservesApprovals(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, false)

	_, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove})
	require.NoError(t, err)
	_, err = f.svc.ProcessApproval(context.Background(), f.orgID, "fin-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionRequestChanges})
	require.NoError(t, err)

	stored := f.wfRepo.workflows[poID]
	require.Equal(t, model.LevelApproved, stored.Level1.Status, "level 1 approval survives")

	// resubmission resumes at finance, not level 1
	poSvc := NewPurchaseOrderService(f.poRepo, f.ruleRepo, f.wfRepo, f.vendorRepo, f.auditRepo, fakeTxManager{}, 0)
	_, err = poSvc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", poID.String())
	require.NoError(t, err)
	require.Equal(t, model.ApprovalLevelFinance, f.wfRepo.workflows[poID].CurrentLevel)
	require.Equal(t, model.LevelApproved, f.wfRepo.workflows[poID].Level1.Status)
}

func TestGetWorkflowIncludesHistory(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	_, err := f.svc.ProcessApproval(context.Background(), f.orgID, "mgr-1", poID.String(), ApprovalDecisionRequest{Action: model.ApprovalActionApprove, Comments: "looks fine"})
	require.NoError(t, err)

	wf, err := f.svc.GetWorkflow(context.Background(), f.orgID, poID.String())
	require.NoError(t, err)
	require.Equal(t, "two step", wf.AppliedRule)
	require.Len(t, wf.History, 2, "submit + approve")
	require.Equal(t, model.ApprovalActionSubmit, wf.History[0].Action)
	require.Equal(t, model.ApprovalActionApprove, wf.History[1].Action)
	require.Equal(t, "looks fine", wf.History[1].Comments)
}

func TestListPendingForApprover(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	pending, err := f.svc.ListPendingForApprover(context.Background(), f.orgID, "mgr-1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, poID, pending[0].POID)
	require.Equal(t, model.ApprovalLevel1, pending[0].CurrentLevel)

	pending, err = f.svc.ListPendingForApprover(context.Background(), f.orgID, "fin-1")
	require.NoError(t, err)
	require.Empty(t, pending, "finance only sees it after level 1 clears")
}

func TestMarkOverdueWorkflows(t *testing.T) {
	f := newApprovalFixture(t)
	poID := f.submitPO(t, true)

	// not yet overdue
	flagged, err := f.svc.MarkOverdueWorkflows(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, flagged)

	flagged, err = f.svc.MarkOverdueWorkflows(context.Background(), time.Now().AddDate(0, 0, DefaultApprovalSLADays+1))
	require.NoError(t, err)
	require.Equal(t, 1, flagged)
	require.True(t, f.wfRepo.workflows[poID].IsOverdue)
	require.Equal(t, 1, f.wfRepo.workflows[poID].EscalationCount)

	// idempotent once flagged
	flagged, err = f.svc.MarkOverdueWorkflows(context.Background(), time.Now().AddDate(0, 0, DefaultApprovalSLADays+1))
	require.NoError(t, err)
	require.Zero(t, flagged)
}

func TestCreateRuleValidation(t *testing.T) {
	f := newApprovalFixture(t)

	_, err := f.svc.CreateRule(context.Background(), f.orgID, "admin-1", CreateApprovalRuleRequest{
		RuleName:       "broken",
		Level1Required: true,
	})
	require.True(t, apperror.Is(err, apperror.KindValidation), "required level without approvers")

	max := decimal.NewFromInt(10)
	_, err = f.svc.CreateRule(context.Background(), f.orgID, "admin-1", CreateApprovalRuleRequest{
		RuleName:  "inverted band",
		MinAmount: decimal.NewFromInt(100),
		MaxAmount: &max,
	})
	require.True(t, apperror.Is(err, apperror.KindValidation))

	rule, err := f.svc.CreateRule(context.Background(), f.orgID, "admin-1", CreateApprovalRuleRequest{
		RuleName:        "good",
		Level1Required:  true,
		Level1Approvers: []string{"mgr-1"},
	})
	require.NoError(t, err)
	require.True(t, rule.IsActive)
	require.True(t, rule.ClearApprovalsOnChange, "defaults to clearing")
}

func TestDeactivateRule(t *testing.T) {
	f := newApprovalFixture(t)
	rule, err := f.svc.CreateRule(context.Background(), f.orgID, "admin-1", CreateApprovalRuleRequest{
		RuleName:        "retiring",
		Level1Required:  true,
		Level1Approvers: []string{"mgr-1"},
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeactivateRule(context.Background(), f.orgID, "admin-1", rule.ID.String()))

	err = f.svc.DeactivateRule(context.Background(), f.orgID, "admin-1", rule.ID.String())
	require.True(t, apperror.Is(err, apperror.KindInvalidState))

	active, listErr := f.ruleRepo.ListActive(context.Background(), f.orgID)
	require.NoError(t, listErr)
	require.Empty(t, active)
}
