package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillStatus constants.
const (
	BillStatusDraft     = "draft"
	BillStatusSubmitted = "submitted"
	BillStatusPaid      = "paid"
	BillStatusCancelled = "cancelled"
)

// Bill is a vendor invoice booked against a purchase order, optionally tied
// to a specific goods receipt for three-way matching. Tax amounts are carried
// as data for totaling and matching — no tax computation happens here.
type Bill struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_org_bill_number" json:"organization_id"`
	BillNumber     string     `gorm:"type:varchar(50);not null;uniqueIndex:idx_org_bill_number" json:"bill_number"`
	POID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"po_id"`
	GRNID          *uuid.UUID `gorm:"type:uuid;index" json:"grn_id"`
	VendorID       uuid.UUID  `gorm:"type:uuid;not null;index" json:"vendor_id"`
	Vendor         *Vendor    `gorm:"foreignKey:VendorID" json:"vendor,omitempty"`

	BillDate time.Time `gorm:"type:date;not null" json:"bill_date"`
	DueDate  time.Time `gorm:"type:date;not null" json:"due_date"`

	TaxableAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"taxable_amount"`
	TotalCGST     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_cgst"`
	TotalSGST     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_sgst"`
	TotalIGST     decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_igst"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"total_amount"`

	Status string `gorm:"type:varchar(20);not null;default:'draft';index" json:"status"`
	Notes  string `gorm:"type:text" json:"notes"`

	Items []BillLineItem `gorm:"foreignKey:BillID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"created_by"`
	UpdatedBy string    `gorm:"type:varchar(255)" json:"updated_by"`
}

// BillLineItem references the billed PO line for three-way matching.
type BillLineItem struct {
	ID       uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BillID   uuid.UUID `gorm:"type:uuid;not null;index" json:"bill_id"`
	POItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"po_item_id"`

	ItemDescription string          `gorm:"type:varchar(500);not null" json:"item_description"`
	HSNCode         string          `gorm:"type:varchar(20);default:''" json:"hsn_code"`
	Quantity        decimal.Decimal `gorm:"type:decimal(15,3);not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"unit_price"`

	TaxableAmount decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"taxable_amount"`
	CGSTAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"cgst_amount"`
	SGSTAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"sgst_amount"`
	IGSTAmount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"igst_amount"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"total_price"`

	Notes string `gorm:"type:text" json:"notes"`
}
