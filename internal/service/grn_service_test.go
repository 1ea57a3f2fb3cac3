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

type grnFixture struct {
	*poFixture
	grnRepo *memoryGRNRepo
	svc     GRNService
	poID    uuid.UUID
}

// newGRNFixture builds an approved purchase order with two lines:
// 100 x steel rods @ 250 and 40 x cement bags @ 375.50.
func newGRNFixture(t *testing.T, tolerancePct decimal.Decimal) *grnFixture {
	t.Helper()
	base := newPOFixture(t)
	f := &grnFixture{
		poFixture: base,
		grnRepo:   newMemoryGRNRepo(),
	}
	f.svc = NewGRNService(f.grnRepo, f.poRepo, f.auditRepo, fakeTxManager{}, tolerancePct)

	res, err := base.svc.Create(context.Background(), base.orgID, "buyer-1", base.createRequest())
	require.NoError(t, err)
	f.poID = res.ID

	po := f.poRepo.orders[res.ID]
	po.ApprovalStatus = model.POApprovalFinalApproved
	return f
}

func (f *grnFixture) poItems() []model.POLineItem {
	return f.poRepo.orders[f.poID].Items
}

func (f *grnFixture) receiptRequest(complete bool, lines ...GRNLinePayload) CreateGRNRequest {
	return CreateGRNRequest{
		POID:     f.poID.String(),
		GRNDate:  time.Now(),
		Complete: complete,
		Items:    lines,
	}
}

func TestCreateDraftGRNDoesNotMoveQuantities(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	res, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(false,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(60)},
	))
	require.NoError(t, err)
	require.Equal(t, model.GRNStatusDraft, res.Status)
	require.NotEmpty(t, res.GRNNumber)

	po := f.poRepo.orders[f.poID]
	require.True(t, po.Items[0].ReceivedQuantity.IsZero(), "draft receipts never touch the order")
	require.Equal(t, model.FulfillmentNone, po.FulfillmentStatus)
}

func TestCompleteGRNAppliesQuantities(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	res, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(false,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(60)},
	))
	require.NoError(t, err)

	completed, err := f.svc.Complete(context.Background(), f.orgID, "store-1", res.ID.String())
	require.NoError(t, err)
	require.Equal(t, model.GRNStatusCompleted, completed.Status)

	po := f.poRepo.orders[f.poID]
	require.True(t, po.Items[0].ReceivedQuantity.Equal(decimal.NewFromInt(60)))
	require.True(t, po.Items[0].PendingQuantity.Equal(decimal.NewFromInt(40)))
	require.Equal(t, model.FulfillmentPartiallyReceived, po.FulfillmentStatus)

	// completing twice fails
	_, err = f.svc.Complete(context.Background(), f.orgID, "store-1", res.ID.String())
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestFullReceiptFlipsStatus(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	_, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(100)},
		GRNLinePayload{POItemID: items[1].ID.String(), ReceivedQuantity: decimal.NewFromInt(40)},
	))
	require.NoError(t, err)

	po := f.poRepo.orders[f.poID]
	require.Equal(t, model.FulfillmentFullyReceived, po.FulfillmentStatus)
	require.True(t, po.Items[0].PendingQuantity.IsZero())
	require.True(t, po.Items[1].PendingQuantity.IsZero())
}

func TestRejectedQuantityDoesNotEnterStock(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	_, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{
			POItemID:         items[0].ID.String(),
			ReceivedQuantity: decimal.NewFromInt(50),
			RejectedQuantity: decimal.NewFromInt(10),
			RejectionReason:  "bent rods",
		},
	))
	require.NoError(t, err)

	po := f.poRepo.orders[f.poID]
	require.True(t, po.Items[0].ReceivedQuantity.Equal(decimal.NewFromInt(40)), "only accepted quantity counts")
}

func TestOverReceiptRejected(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	_, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(90)},
	))
	require.NoError(t, err)

	// second receipt would push line past 100; the whole GRN fails
	_, err = f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(20)},
		GRNLinePayload{POItemID: items[1].ID.String(), ReceivedQuantity: decimal.NewFromInt(5)},
	))
	require.True(t, apperror.Is(err, apperror.KindValidation))

	po := f.poRepo.orders[f.poID]
	require.True(t, po.Items[0].ReceivedQuantity.Equal(decimal.NewFromInt(90)), "failed receipt left nothing behind")
	require.True(t, po.Items[1].ReceivedQuantity.IsZero(), "all-or-nothing")
}

func TestOverReceiptWithinTolerance(t *testing.T) {
	f := newGRNFixture(t, decimal.NewFromInt(5))
	items := f.poItems()

	// 104 <= 100 * 1.05
	_, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(104)},
	))
	require.NoError(t, err)

	po := f.poRepo.orders[f.poID]
	require.True(t, po.Items[0].ReceivedQuantity.Equal(decimal.NewFromInt(104)))
	require.True(t, po.Items[0].PendingQuantity.IsZero(), "pending never goes negative")

	_, err = f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(2)},
	))
	require.True(t, apperror.Is(err, apperror.KindValidation), "tolerance already consumed")
}

func TestGRNLineValidation(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	_, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(false,
		GRNLinePayload{POItemID: uuid.New().String(), ReceivedQuantity: decimal.NewFromInt(1)},
	))
	require.True(t, apperror.Is(err, apperror.KindValidation), "line must reference a PO item")

	_, err = f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(false,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(10), RejectedQuantity: decimal.NewFromInt(20)},
	))
	require.True(t, apperror.Is(err, apperror.KindValidation), "rejected cannot exceed received")

	_, err = f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(false,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(10), RejectedQuantity: decimal.NewFromInt(5)},
	))
	require.True(t, apperror.Is(err, apperror.KindValidation), "rejection requires a reason")
}

func TestReceiptRequiresApprovedPO(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()
	f.poRepo.orders[f.poID].ApprovalStatus = model.POApprovalPending

	_, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(false,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(10)},
	))
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestCancelDraftGRN(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	res, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(false,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(10)},
	))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), f.orgID, "store-1", res.ID.String())
	require.NoError(t, err)
	require.Equal(t, model.GRNStatusCancelled, cancelled.Status)

	// completed receipts cannot be cancelled
	res2, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(10)},
	))
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), f.orgID, "store-1", res2.ID.String())
	require.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestAvailableItemsShrinkWithReceipts(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	available, err := f.svc.AvailableItems(context.Background(), f.orgID, f.poID.String())
	require.NoError(t, err)
	require.Len(t, available, 2)

	_, err = f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(100)},
	))
	require.NoError(t, err)

	available, err = f.svc.AvailableItems(context.Background(), f.orgID, f.poID.String())
	require.NoError(t, err)
	require.Len(t, available, 1, "fully received line drops out")
	require.Equal(t, items[1].ID, available[0].POItemID)
}

func TestGRNSummary(t *testing.T) {
	f := newGRNFixture(t, decimal.Zero)
	items := f.poItems()

	_, err := f.svc.Create(context.Background(), f.orgID, "store-1", f.receiptRequest(true,
		GRNLinePayload{POItemID: items[0].ID.String(), ReceivedQuantity: decimal.NewFromInt(70)},
	))
	require.NoError(t, err)

	summary, err := f.svc.Summary(context.Background(), f.orgID, f.poID.String())
	require.NoError(t, err)
	require.Len(t, summary.GRNs, 1)
	require.True(t, summary.TotalOrdered.Equal(decimal.NewFromInt(140)))
	require.True(t, summary.TotalReceived.Equal(decimal.NewFromInt(70)))
	require.True(t, summary.CompletionPercent.Equal(decimal.NewFromInt(50)), "got %s", summary.CompletionPercent)
}
