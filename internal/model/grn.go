package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GRNStatus constants. Only a completed GRN mutates PO line quantities.
const (
	GRNStatusDraft     = "draft"
	GRNStatusCompleted = "completed"
	GRNStatusBilled    = "billed"
	GRNStatusCancelled = "cancelled"
)

// GoodsReceipt records physical receipt of goods against one purchase order.
// Multiple receipts may exist per PO (partial deliveries).
type GoodsReceipt struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_org_grn_number" json:"organization_id"`
	GRNNumber      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_org_grn_number" json:"grn_number"`
	POID           uuid.UUID `gorm:"type:uuid;not null;index" json:"po_id"`
	VendorID       uuid.UUID `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor         *Vendor   `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`
	GRNDate        time.Time `gorm:"type:date;not null" json:"grn_date"`

	ReceivedBy         string `gorm:"type:varchar(255)" json:"received_by"`
	WarehouseLocation  string `gorm:"type:varchar(255)" json:"warehouse_location"`
	DeliveryNoteNumber string `gorm:"type:varchar(50)" json:"delivery_note_number"`
	VehicleNumber      string `gorm:"type:varchar(20)" json:"vehicle_number"`
	TransporterName    string `gorm:"type:varchar(255)" json:"transporter_name"`

	Status  string `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Remarks string `gorm:"type:text" json:"remarks"`

	Items []GRNLineItem `gorm:"foreignKey:GRNID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"created_by"`
	UpdatedBy string    `gorm:"type:varchar(255)" json:"updated_by"`
}

// IsDraft reports whether the receipt may still be edited or cancelled.
func (g *GoodsReceipt) IsDraft() bool {
	return g.Status == GRNStatusDraft
}

// TotalReceived sums received quantity across lines.
func (g *GoodsReceipt) TotalReceived() decimal.Decimal {
	total := decimal.Zero
	for _, item := range g.Items {
		total = total.Add(item.ReceivedQuantity)
	}
	return total
}

// TotalRejected sums rejected quantity across lines.
func (g *GoodsReceipt) TotalRejected() decimal.Decimal {
	total := decimal.Zero
	for _, item := range g.Items {
		total = total.Add(item.RejectedQuantity)
	}
	return total
}

// GRNLineItem references the originating PO line and carries the quantities
// observed at the dock.
type GRNLineItem struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	GRNID    uuid.UUID `gorm:"type:uuid;not null;index" json:"grn_id"`
	POItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"po_item_id"`

	ItemDescription string          `gorm:"type:varchar(500);not null" json:"item_description"`
	Unit            string          `gorm:"type:varchar(20);default:'Nos'" json:"unit"`
	OrderedQuantity decimal.Decimal `gorm:"type:decimal(15,3);not null" json:"ordered_quantity"`

	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(15,3);not null" json:"received_quantity"`
	RejectedQuantity decimal.Decimal `gorm:"type:decimal(15,3);not null;default:0" json:"rejected_quantity"`
	RejectionReason  string          `gorm:"type:text" json:"rejection_reason"`

	UnitPrice decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`
	Remarks   string          `gorm:"type:text" json:"remarks"`

	CreatedAt time.Time `json:"created_at"`
}

// AcceptedQuantity is what actually entered stock: received minus rejected.
func (li *GRNLineItem) AcceptedQuantity() decimal.Decimal {
	return li.ReceivedQuantity.Sub(li.RejectedQuantity)
}
