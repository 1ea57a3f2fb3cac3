package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreatePurchaseOrder = "CREATE_PURCHASE_ORDER"
	ActionUpdatePurchaseOrder = "UPDATE_PURCHASE_ORDER"
	ActionCancelPurchaseOrder = "CANCEL_PURCHASE_ORDER"
	ActionSubmitForApproval   = "SUBMIT_FOR_APPROVAL"
	ActionProcessApproval     = "PROCESS_APPROVAL"
	ActionChangePOStatus      = "CHANGE_PO_STATUS"

	ActionCreateApprovalRule     = "CREATE_APPROVAL_RULE"
	ActionDeactivateApprovalRule = "DEACTIVATE_APPROVAL_RULE"

	ActionCreateGRN   = "CREATE_GRN"
	ActionUpdateGRN   = "UPDATE_GRN"
	ActionCompleteGRN = "COMPLETE_GRN"
	ActionCancelGRN   = "CANCEL_GRN"

	ActionCreateBill = "CREATE_BILL"

	ActionCreateVendor = "CREATE_VENDOR"
	ActionUpdateVendor = "UPDATE_VENDOR"
	ActionDeleteVendor = "DELETE_VENDOR"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
