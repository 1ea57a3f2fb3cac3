package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Vendor is a supplier the organization buys from. The procurement core only
// needs the lookup (id -> display name); the rest is registry data.
type Vendor struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`

	VendorCode    string `gorm:"type:varchar(50);index" json:"vendor_code"`
	BusinessName  string `gorm:"type:varchar(255);not null" json:"business_name"`
	GSTIN         string `gorm:"type:varchar(20)" json:"gstin"`
	ContactPerson string `gorm:"type:varchar(255)" json:"contact_person"`
	Phone         string `gorm:"type:varchar(50)" json:"phone"`
	Email         string `gorm:"type:varchar(255)" json:"email"`
	Address       string `gorm:"type:text" json:"address"`
	BankAccount   string `gorm:"type:varchar(100)" json:"bank_account"`

	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
