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

type poFixture struct {
	orgID      uuid.UUID
	vendorID   uuid.UUID
	poRepo     *memoryPORepo
	ruleRepo   *memoryRuleRepo
	wfRepo     *memoryWorkflowRepo
	vendorRepo *memoryVendorRepo
	auditRepo  *memoryAuditRepo
	svc        PurchaseOrderService
}

func newPOFixture(t *testing.T) *poFixture {
	t.Helper()
	f := &poFixture{
		orgID:      uuid.New(),
		poRepo:     newMemoryPORepo(),
		ruleRepo:   newMemoryRuleRepo(),
		vendorRepo: newMemoryVendorRepo(),
		auditRepo:  &memoryAuditRepo{},
	}
	f.wfRepo = newMemoryWorkflowRepo(f.ruleRepo)

	vendor := &model.Vendor{OrganizationID: f.orgID, BusinessName: "Acme Industrial", IsActive: true}
	require.NoError(t, f.vendorRepo.Create(context.Background(), vendor))
	f.vendorID = vendor.ID

	f.svc = NewPurchaseOrderService(f.poRepo, f.ruleRepo, f.wfRepo, f.vendorRepo, f.auditRepo, fakeTxManager{}, 0)
	return f
}

func (f *poFixture) createRequest() CreatePurchaseOrderRequest {
	return CreatePurchaseOrderRequest{
		VendorID: f.vendorID.String(),
		PODate:   time.Now(),
		Items: []POLineItemPayload{
			{ItemDescription: "Steel rods", Quantity: decimal.NewFromInt(100), UnitPrice: decimal.NewFromInt(250)},
			{ItemDescription: "Cement bags", Quantity: decimal.NewFromInt(40), UnitPrice: decimal.RequireFromString("375.50")},
		},
	}
}

func (f *poFixture) addRule(t *testing.T, rule model.ApprovalRule) *model.ApprovalRule {
	t.Helper()
	rule.OrganizationID = f.orgID
	rule.IsActive = true
	require.NoError(t, f.ruleRepo.Create(context.Background(), &rule))
	return &rule
}

func TestCreatePurchaseOrderComputesTotals(t *testing.T) {
	f := newPOFixture(t)

	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	// 100*250 + 40*375.50 = 25000 + 15020
	require.True(t, res.TotalAmount.Equal(decimal.RequireFromString("40020")), "got %s", res.TotalAmount)
	require.Equal(t, model.POStatusDraft, res.Status)
	require.NotEmpty(t, res.PONumber)
	require.Len(t, res.Items, 2)
	require.True(t, res.Items[0].PendingQuantity.Equal(decimal.NewFromInt(100)))
}

func TestCreatePurchaseOrderDuplicateNumber(t *testing.T) {
	f := newPOFixture(t)

	req := f.createRequest()
	req.PONumber = "PO-CUSTOM-001"
	_, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", req)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), f.orgID, "buyer-1", req)
	require.Error(t, err)
	require.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestCreatePurchaseOrderRejectsBadLines(t *testing.T) {
	f := newPOFixture(t)

	req := f.createRequest()
	req.Items[0].Quantity = decimal.Zero
	_, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", req)
	require.True(t, apperror.Is(err, apperror.KindValidation))

	req = f.createRequest()
	req.Items = nil
	_, err = f.svc.Create(context.Background(), f.orgID, "buyer-1", req)
	require.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSubmitWithoutRuleIsConfigurationError(t *testing.T) {
	f := newPOFixture(t)
	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	_, err = f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.Error(t, err)
	require.True(t, apperror.Is(err, apperror.KindConfiguration))
}

func TestSubmitAutoApproves(t *testing.T) {
	f := newPOFixture(t)
	f.addRule(t, model.ApprovalRule{
		RuleName:         "small purchases",
		MinAmount:        decimal.Zero,
		AutoApproveBelow: decimal.NewFromInt(50000),
	})

	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	submit, err := f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.NoError(t, err)
	require.True(t, submit.AutoApproved)
	require.Equal(t, model.POStatusApproved, submit.PO.Status)
	require.Equal(t, model.SystemAutoApprover, submit.PO.ApprovedBy)

	wf, err := f.wfRepo.FindByPOID(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, model.POApprovalFinalApproved, wf.ApprovalStatus)
	require.Equal(t, model.SystemAutoApprover, wf.FinalApprovedBy)

	history, err := f.wfRepo.ListHistory(context.Background(), res.ID)
	require.NoError(t, err)
	require.Len(t, history, 2, "submit + auto-approve entries")
}

func TestSubmitOpensWorkflow(t *testing.T) {
	f := newPOFixture(t)
	f.addRule(t, model.ApprovalRule{
		RuleName:        "standard",
		MinAmount:       decimal.Zero,
		Level1Required:  true,
		FinanceRequired: true,
		Level1Approvers: model.ApproverList{"mgr-1"},
		FinanceApprovers: model.ApproverList{
			"fin-1",
		},
	})

	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	submit, err := f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.NoError(t, err)
	require.False(t, submit.AutoApproved)
	require.Equal(t, model.POStatusPendingApproval, submit.PO.Status)
	require.Equal(t, "standard", submit.AppliedRule)

	wf, err := f.wfRepo.FindByPOID(context.Background(), res.ID)
	require.NoError(t, err)
	require.Equal(t, model.ApprovalLevel1, wf.CurrentLevel)
	require.Equal(t, model.LevelPending, wf.Level1.Status)
	require.Equal(t, model.LevelNotRequired, wf.Level2.Status)
	require.NotNil(t, wf.ExpectedApprovalDate)
	expectedSLA := time.Now().AddDate(0, 0, DefaultApprovalSLADays)
	require.WithinDuration(t, expectedSLA, *wf.ExpectedApprovalDate, time.Minute)
}

func TestSubmitPicksTightestRule(t *testing.T) {
	f := newPOFixture(t)
	f.addRule(t, model.ApprovalRule{
		RuleName:        "catch-all",
		MinAmount:       decimal.Zero,
		Level1Required:  true,
		Level1Approvers: model.ApproverList{"mgr-1"},
	})
	f.addRule(t, model.ApprovalRule{
		RuleName:        "mid band",
		MinAmount:       decimal.NewFromInt(10000),
		Level1Required:  true,
		Level2Required:  true,
		Level1Approvers: model.ApproverList{"mgr-1"},
		Level2Approvers: model.ApproverList{"dir-1"},
	})

	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	submit, err := f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.NoError(t, err)
	require.Equal(t, "mid band", submit.AppliedRule)
}

func TestSubmitTwiceFails(t *testing.T) {
	f := newPOFixture(t)
	f.addRule(t, model.ApprovalRule{
		RuleName:        "standard",
		MinAmount:       decimal.Zero,
		Level1Required:  true,
		Level1Approvers: model.ApproverList{"mgr-1"},
	})

	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)
	_, err = f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.NoError(t, err)

	_, err = f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestUpdateFrozenAfterSubmission(t *testing.T) {
	f := newPOFixture(t)
	f.addRule(t, model.ApprovalRule{
		RuleName:        "standard",
		MinAmount:       decimal.Zero,
		Level1Required:  true,
		Level1Approvers: model.ApproverList{"mgr-1"},
	})

	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)
	_, err = f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.NoError(t, err)

	notes := "changed"
	_, err = f.svc.Update(context.Background(), f.orgID, "buyer-1", res.ID.String(), UpdatePurchaseOrderRequest{Notes: &notes})
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestUpdateRecomputesTotals(t *testing.T) {
	f := newPOFixture(t)
	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	items := []POLineItemPayload{
		{ItemDescription: "Steel rods", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(100)},
	}
	updated, err := f.svc.Update(context.Background(), f.orgID, "buyer-1", res.ID.String(), UpdatePurchaseOrderRequest{Items: &items})
	require.NoError(t, err)
	require.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(1000)))
	require.Len(t, updated.Items, 1)
}

func TestUpdateFulfillmentStatus(t *testing.T) {
	f := newPOFixture(t)
	f.addRule(t, model.ApprovalRule{
		RuleName:         "auto",
		MinAmount:        decimal.Zero,
		AutoApproveBelow: decimal.NewFromInt(100000),
	})

	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)
	_, err = f.svc.SubmitForApproval(context.Background(), f.orgID, "buyer-1", res.ID.String())
	require.NoError(t, err)

	updated, err := f.svc.UpdateFulfillmentStatus(context.Background(), f.orgID, "ops-1", res.ID.String(), model.FulfillmentAcknowledged)
	require.NoError(t, err)
	require.Equal(t, model.POStatusAcknowledged, updated.Status)

	// backwards move rejected
	updated, err = f.svc.UpdateFulfillmentStatus(context.Background(), f.orgID, "ops-1", res.ID.String(), model.FulfillmentInProgress)
	require.NoError(t, err)
	require.Equal(t, model.POStatusInProgress, updated.Status)

	_, err = f.svc.UpdateFulfillmentStatus(context.Background(), f.orgID, "ops-1", res.ID.String(), model.FulfillmentAcknowledged)
	require.True(t, apperror.Is(err, apperror.KindInvalidState))

	// receipt statuses are engine-owned
	_, err = f.svc.UpdateFulfillmentStatus(context.Background(), f.orgID, "ops-1", res.ID.String(), model.FulfillmentPartiallyReceived)
	require.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestFulfillmentRequiresApproval(t *testing.T) {
	f := newPOFixture(t)
	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	_, err = f.svc.UpdateFulfillmentStatus(context.Background(), f.orgID, "ops-1", res.ID.String(), model.FulfillmentAcknowledged)
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestCancelDraft(t *testing.T) {
	f := newPOFixture(t)
	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), f.orgID, "buyer-1", res.ID.String(), "no longer needed")
	require.NoError(t, err)
	require.Equal(t, model.POStatusCancelled, cancelled.Status)

	_, err = f.svc.Cancel(context.Background(), f.orgID, "buyer-1", res.ID.String(), "again")
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestCancelBlockedAfterReceipt(t *testing.T) {
	f := newPOFixture(t)
	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	po := f.poRepo.orders[res.ID]
	po.ApprovalStatus = model.POApprovalFinalApproved
	po.Items[0].ReceivedQuantity = decimal.NewFromInt(10)

	_, err = f.svc.Cancel(context.Background(), f.orgID, "buyer-1", res.ID.String(), "too late")
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestCrossOrgAccessDenied(t *testing.T) {
	f := newPOFixture(t)
	res, err := f.svc.Create(context.Background(), f.orgID, "buyer-1", f.createRequest())
	require.NoError(t, err)

	otherOrg := uuid.New()
	_, err = f.svc.Get(context.Background(), otherOrg, res.ID.String())
	require.True(t, apperror.Is(err, apperror.KindNotFound))
}
