package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestDerivePOStatus(t *testing.T) {
	cases := []struct {
		name        string
		approval    string
		fulfillment string
		want        string
	}{
		{"draft", POApprovalDraft, FulfillmentNone, POStatusDraft},
		{"pending", POApprovalPending, FulfillmentNone, POStatusPendingApproval},
		{"mid-workflow still pending", POApprovalLevel2Approved, FulfillmentNone, POStatusPendingApproval},
		{"rejected", POApprovalRejected, FulfillmentNone, POStatusRejected},
		{"cancelled", POApprovalCancelled, FulfillmentNone, POStatusCancelled},
		{"approved no fulfillment", POApprovalFinalApproved, FulfillmentNone, POStatusApproved},
		{"acknowledged", POApprovalFinalApproved, FulfillmentAcknowledged, POStatusAcknowledged},
		{"partially received", POApprovalFinalApproved, FulfillmentPartiallyReceived, POStatusPartiallyReceived},
		{"fully received", POApprovalFinalApproved, FulfillmentFullyReceived, POStatusFullyReceived},
		{"completed", POApprovalFinalApproved, FulfillmentCompleted, POStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DerivePOStatus(tc.approval, tc.fulfillment)
			require.Equal(t, tc.want, got)
			require.True(t, IsValidPOStatus(got), "derived status %q must be in the closed set", got)
		})
	}
}

func TestCanAdvanceFulfillment(t *testing.T) {
	require.True(t, CanAdvanceFulfillment(FulfillmentNone, FulfillmentAcknowledged))
	require.True(t, CanAdvanceFulfillment(FulfillmentAcknowledged, FulfillmentInProgress))
	require.True(t, CanAdvanceFulfillment(FulfillmentInProgress, FulfillmentDelivered))
	require.True(t, CanAdvanceFulfillment(FulfillmentDelivered, FulfillmentCompleted))
	// partial deliveries may repeat
	require.True(t, CanAdvanceFulfillment(FulfillmentPartiallyDelivered, FulfillmentPartiallyDelivered))
	require.True(t, CanAdvanceFulfillment(FulfillmentPartiallyReceived, FulfillmentPartiallyReceived))
	// never backwards
	require.False(t, CanAdvanceFulfillment(FulfillmentDelivered, FulfillmentAcknowledged))
	require.False(t, CanAdvanceFulfillment(FulfillmentCompleted, FulfillmentDelivered))
	require.False(t, CanAdvanceFulfillment(FulfillmentFullyReceived, FulfillmentPartiallyReceived))
	// unknown statuses are rejected
	require.False(t, CanAdvanceFulfillment(FulfillmentNone, "shipped"))
}

func TestDeriveReceiptStatus(t *testing.T) {
	po := PurchaseOrder{
		ApprovalStatus: POApprovalFinalApproved,
		Items: []POLineItem{
			{Quantity: decimal.NewFromInt(100), ReceivedQuantity: decimal.Zero},
			{Quantity: decimal.NewFromInt(50), ReceivedQuantity: decimal.Zero},
		},
	}

	// nothing received: status untouched
	require.Equal(t, FulfillmentNone, po.DeriveReceiptStatus())

	po.Items[0].ReceivedQuantity = decimal.NewFromInt(60)
	require.Equal(t, FulfillmentPartiallyReceived, po.DeriveReceiptStatus())

	po.Items[0].ReceivedQuantity = decimal.NewFromInt(100)
	po.Items[1].ReceivedQuantity = decimal.NewFromInt(50)
	require.Equal(t, FulfillmentFullyReceived, po.DeriveReceiptStatus())
}

func TestPurchaseOrderGuards(t *testing.T) {
	po := PurchaseOrder{ApprovalStatus: POApprovalDraft}
	require.True(t, po.IsMutable())
	require.True(t, po.CanSubmit())
	require.False(t, po.CanReceive())

	po.ApprovalStatus = POApprovalRejected
	require.True(t, po.CanSubmit(), "rejected orders may be resubmitted")

	po.ApprovalStatus = POApprovalPending
	require.False(t, po.IsMutable())
	require.False(t, po.CanSubmit())

	po.ApprovalStatus = POApprovalFinalApproved
	require.True(t, po.CanReceive())
	po.FulfillmentStatus = FulfillmentPartiallyReceived
	require.True(t, po.CanReceive())
	po.FulfillmentStatus = FulfillmentCompleted
	require.False(t, po.CanReceive())
}
