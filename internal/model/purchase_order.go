package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApprovalStatus constants — owned by the approval workflow
const (
	POApprovalDraft          = "draft"
	POApprovalPending        = "pending_approval"
	POApprovalLevel1Approved = "level_1_approved"
	POApprovalLevel2Approved = "level_2_approved"
	POApprovalLevel3Approved = "level_3_approved"
	POApprovalFinalApproved  = "final_approved"
	POApprovalRejected       = "rejected"
	POApprovalCancelled      = "cancelled"
)

// FulfillmentStatus constants — owned by operational updates and GRN reconciliation
const (
	FulfillmentNone               = ""
	FulfillmentAcknowledged       = "acknowledged"
	FulfillmentInProgress         = "in_progress"
	FulfillmentPartiallyDelivered = "partially_delivered"
	FulfillmentDelivered          = "delivered"
	FulfillmentCompleted          = "completed"
	FulfillmentPartiallyReceived  = "partially_received"
	FulfillmentFullyReceived      = "fully_received"
)

// External status values — the single status exposed to clients, derived
// from (ApprovalStatus, FulfillmentStatus). Closed set.
const (
	POStatusDraft              = "draft"
	POStatusPendingApproval    = "pending_approval"
	POStatusApproved           = "approved"
	POStatusAcknowledged       = "acknowledged"
	POStatusInProgress         = "in_progress"
	POStatusPartiallyDelivered = "partially_delivered"
	POStatusDelivered          = "delivered"
	POStatusCompleted          = "completed"
	POStatusCancelled          = "cancelled"
	POStatusRejected           = "rejected"
	POStatusPartiallyReceived  = "partially_received"
	POStatusFullyReceived      = "fully_received"
)

// ValidPOStatuses is the closed set of externally visible statuses.
var ValidPOStatuses = []string{
	POStatusDraft, POStatusPendingApproval, POStatusApproved,
	POStatusAcknowledged, POStatusInProgress, POStatusPartiallyDelivered,
	POStatusDelivered, POStatusCompleted, POStatusCancelled,
	POStatusRejected, POStatusPartiallyReceived, POStatusFullyReceived,
}

// IsValidPOStatus reports membership in the closed status set.
func IsValidPOStatus(status string) bool {
	for _, s := range ValidPOStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// fulfillmentRank orders the operational statuses so transitions stay monotonic.
// Receipt statuses sit between approved and delivered because they are derived
// from quantities, not manually set.
var fulfillmentRank = map[string]int{
	FulfillmentNone:               0,
	FulfillmentAcknowledged:       1,
	FulfillmentInProgress:         2,
	FulfillmentPartiallyReceived:  3,
	FulfillmentPartiallyDelivered: 3,
	FulfillmentFullyReceived:      4,
	FulfillmentDelivered:          4,
	FulfillmentCompleted:          5,
}

// ManualFulfillmentStatuses are the operational statuses a client may set
// directly; partially_received/fully_received are written only by the
// reconciliation engine.
var ManualFulfillmentStatuses = map[string]bool{
	FulfillmentAcknowledged:       true,
	FulfillmentInProgress:         true,
	FulfillmentPartiallyDelivered: true,
	FulfillmentDelivered:          true,
	FulfillmentCompleted:          true,
}

// CanAdvanceFulfillment reports whether moving from one fulfillment status to
// another keeps the lifecycle monotonic.
func CanAdvanceFulfillment(from, to string) bool {
	fromRank, ok := fulfillmentRank[from]
	if !ok {
		return false
	}
	toRank, ok := fulfillmentRank[to]
	if !ok {
		return false
	}
	// partially_* may repeat (several partial deliveries/receipts)
	if from == to {
		return from == FulfillmentPartiallyDelivered || from == FulfillmentPartiallyReceived
	}
	return toRank > fromRank
}

// DerivePOStatus collapses the two internal enums into the single external
// status. While the workflow has not finally approved the order, the approval
// side wins; afterwards the fulfillment side wins, defaulting to "approved".
func DerivePOStatus(approvalStatus, fulfillmentStatus string) string {
	switch approvalStatus {
	case POApprovalDraft:
		return POStatusDraft
	case POApprovalPending, POApprovalLevel1Approved, POApprovalLevel2Approved, POApprovalLevel3Approved:
		return POStatusPendingApproval
	case POApprovalRejected:
		return POStatusRejected
	case POApprovalCancelled:
		return POStatusCancelled
	}
	if fulfillmentStatus == FulfillmentNone {
		return POStatusApproved
	}
	return fulfillmentStatus
}

// PurchaseOrder is the root document of the procurement flow. It owns its
// line items exclusively; deleting the PO deletes the lines.
type PurchaseOrder struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID       uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_org_po_number" json:"organization_id"`
	PONumber             string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_org_po_number" json:"po_number"`
	VendorID             uuid.UUID       `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor               *Vendor         `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	PODate               time.Time       `gorm:"type:date;not null" json:"po_date"`
	ExpectedDeliveryDate *time.Time      `gorm:"type:date" json:"expected_delivery_date"`
	Subtotal             decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"subtotal"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`

	// Two orthogonal internal statuses; the external status is derived.
	ApprovalStatus    string `gorm:"type:varchar(30);not null;default:'draft';index" json:"approval_status"`
	FulfillmentStatus string `gorm:"type:varchar(30);not null;default:'';index" json:"fulfillment_status"`

	DeliveryAddress    string `gorm:"type:text" json:"delivery_address"`
	TermsAndConditions string `gorm:"type:text" json:"terms_and_conditions"`
	Notes              string `gorm:"type:text" json:"notes"`

	ApprovedBy string     `gorm:"type:varchar(255)" json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`

	Items []POLineItem `gorm:"foreignKey:POID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"created_by"`
	UpdatedBy string    `gorm:"type:varchar(255)" json:"updated_by"`
}

// Status derives the single externally visible lifecycle status.
func (po *PurchaseOrder) Status() string {
	return DerivePOStatus(po.ApprovalStatus, po.FulfillmentStatus)
}

// IsMutable reports whether header/lines may still be edited. Orders that are
// in-flight in approval or past approval are frozen.
func (po *PurchaseOrder) IsMutable() bool {
	return po.ApprovalStatus == POApprovalDraft || po.ApprovalStatus == POApprovalRejected
}

// CanSubmit reports whether the order may enter the approval workflow.
func (po *PurchaseOrder) CanSubmit() bool {
	return po.ApprovalStatus == POApprovalDraft || po.ApprovalStatus == POApprovalRejected
}

// CanReceive reports whether goods may be received against this order.
func (po *PurchaseOrder) CanReceive() bool {
	if po.ApprovalStatus != POApprovalFinalApproved {
		return false
	}
	return po.FulfillmentStatus != FulfillmentCompleted
}

// TotalOrdered sums ordered quantity across lines.
func (po *PurchaseOrder) TotalOrdered() decimal.Decimal {
	total := decimal.Zero
	for _, item := range po.Items {
		total = total.Add(item.Quantity)
	}
	return total
}

// TotalReceived sums received quantity across lines.
func (po *PurchaseOrder) TotalReceived() decimal.Decimal {
	total := decimal.Zero
	for _, item := range po.Items {
		total = total.Add(item.ReceivedQuantity)
	}
	return total
}

// DeriveReceiptStatus recomputes the receipt side of the fulfillment status
// from line quantities. With nothing received the current status is kept.
func (po *PurchaseOrder) DeriveReceiptStatus() string {
	totalOrdered := po.TotalOrdered()
	totalReceived := po.TotalReceived()
	if totalReceived.IsZero() {
		return po.FulfillmentStatus
	}
	if totalReceived.GreaterThanOrEqual(totalOrdered) {
		return FulfillmentFullyReceived
	}
	return FulfillmentPartiallyReceived
}

// POLineItem is one ordered line. received_quantity only grows, via completed
// GRNs; pending_quantity is max(0, quantity - received_quantity).
type POLineItem struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	POID uuid.UUID `gorm:"type:uuid;not null;index" json:"po_id"`

	ItemDescription string          `gorm:"type:varchar(500);not null" json:"item_description"`
	HSNCode         string          `gorm:"type:varchar(20);default:''" json:"hsn_code"`
	Unit            string          `gorm:"type:varchar(20);default:'Nos'" json:"unit"`
	Quantity        decimal.Decimal `gorm:"type:decimal(15,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_amount"`

	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0" json:"received_quantity"`
	PendingQuantity  decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0" json:"pending_quantity"`

	CreatedAt time.Time `json:"created_at"`
}
