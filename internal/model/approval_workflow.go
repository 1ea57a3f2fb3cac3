package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Approval level constants, in workflow order. ADMIN is reserved for system
// overrides such as auto-approval.
const (
	ApprovalLevel1       = "level_1"
	ApprovalLevel2       = "level_2"
	ApprovalLevel3       = "level_3"
	ApprovalLevelFinance = "finance"
	ApprovalLevelAdmin   = "admin"
)

// ApprovalLevelOrder is the strict completion order of approval levels.
var ApprovalLevelOrder = []string{ApprovalLevel1, ApprovalLevel2, ApprovalLevel3, ApprovalLevelFinance}

// Per-level step status constants.
const (
	LevelNotRequired = "not_required"
	LevelPending     = "pending"
	LevelApproved    = "approved"
	LevelRejected    = "rejected"
)

// Approval action constants for history entries.
const (
	ApprovalActionSubmit         = "submit"
	ApprovalActionApprove        = "approve"
	ApprovalActionReject         = "reject"
	ApprovalActionRequestChanges = "request_changes"
	ApprovalActionCancel         = "cancel"
)

// SystemAutoApprover is the synthetic actor recorded for auto-approvals.
const SystemAutoApprover = "SYSTEM_AUTO_APPROVAL"

// LevelState is one approval step's outcome, embedded per level.
type LevelState struct {
	Status     string     `gorm:"type:varchar(20);not null;default:'not_required'" json:"status"`
	Approver   string     `gorm:"type:varchar(255)" json:"approver"`
	ApprovedAt *time.Time `json:"approved_at"`
}

// ApprovalWorkflow tracks the multi-level sign-off of one purchase order.
// Created on first submission, one-to-one with the PO, never deleted.
type ApprovalWorkflow struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	POID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"po_id"`

	AppliedRuleID *uuid.UUID    `gorm:"type:uuid;index" json:"applied_rule_id"`
	AppliedRule   *ApprovalRule `gorm:"foreignKey:AppliedRuleID" json:"applied_rule,omitempty"`

	ApprovalStatus string `gorm:"type:varchar(30);not null;default:'pending_approval';index" json:"approval_status"`
	// CurrentLevel is empty once the workflow reaches a terminal status.
	CurrentLevel string `gorm:"type:varchar(20);default:''" json:"current_level"`

	Level1  LevelState `gorm:"embedded;embeddedPrefix:level_1_" json:"level_1"`
	Level2  LevelState `gorm:"embedded;embeddedPrefix:level_2_" json:"level_2"`
	Level3  LevelState `gorm:"embedded;embeddedPrefix:level_3_" json:"level_3"`
	Finance LevelState `gorm:"embedded;embeddedPrefix:finance_" json:"finance"`

	SubmittedAt     *time.Time `json:"submitted_at"`
	SubmittedBy     string     `gorm:"type:varchar(255)" json:"submitted_by"`
	FinalApprovedAt *time.Time `json:"final_approved_at"`
	FinalApprovedBy string     `gorm:"type:varchar(255)" json:"final_approved_by"`

	// SLA fields: set at submission, mutated by the external overdue sweep.
	ExpectedApprovalDate *time.Time `json:"expected_approval_date"`
	IsOverdue            bool       `gorm:"default:false;index" json:"is_overdue"`
	EscalationCount      int        `gorm:"default:0" json:"escalation_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LevelState returns a pointer to the step state for the given level.
func (w *ApprovalWorkflow) LevelState(level string) *LevelState {
	switch level {
	case ApprovalLevel1:
		return &w.Level1
	case ApprovalLevel2:
		return &w.Level2
	case ApprovalLevel3:
		return &w.Level3
	case ApprovalLevelFinance:
		return &w.Finance
	default:
		return nil
	}
}

// IsPending reports whether the workflow still awaits approvals.
func (w *ApprovalWorkflow) IsPending() bool {
	switch w.ApprovalStatus {
	case POApprovalPending, POApprovalLevel1Approved, POApprovalLevel2Approved, POApprovalLevel3Approved:
		return true
	}
	return false
}

// statusAfterLevel maps a just-approved level to the workflow status that
// signals progress past it.
func statusAfterLevel(level string) string {
	switch level {
	case ApprovalLevel1:
		return POApprovalLevel1Approved
	case ApprovalLevel2:
		return POApprovalLevel2Approved
	case ApprovalLevel3:
		return POApprovalLevel3Approved
	default:
		return POApprovalPending
	}
}

// ApplyLevelApproval marks the current level approved and advances the
// workflow to the next required level, or to final approval when none remains.
// The caller must have verified current level and approver membership.
func (w *ApprovalWorkflow) ApplyLevelApproval(rule *ApprovalRule, level, approverID string, now time.Time) {
	state := w.LevelState(level)
	state.Status = LevelApproved
	state.Approver = approverID
	state.ApprovedAt = &now

	next, ok := rule.NextRequiredLevel(level)
	if ok {
		w.CurrentLevel = next
		w.ApprovalStatus = statusAfterLevel(level)
		return
	}
	w.CurrentLevel = ""
	w.ApprovalStatus = POApprovalFinalApproved
	w.FinalApprovedAt = &now
	w.FinalApprovedBy = approverID
}

// InitializeLevels seeds per-level states from the applied rule: required
// levels start pending, the rest are never instantiated as steps.
func (w *ApprovalWorkflow) InitializeLevels(rule *ApprovalRule) {
	for _, level := range ApprovalLevelOrder {
		state := w.LevelState(level)
		if rule.LevelRequired(level) {
			state.Status = LevelPending
		} else {
			state.Status = LevelNotRequired
		}
		state.Approver = ""
		state.ApprovedAt = nil
	}
}

// ApprovalHistory is the append-only audit trail of workflow actions.
// Entries are immutable once written.
type ApprovalHistory struct {
	ID   uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	POID uuid.UUID `gorm:"type:uuid;not null;index" json:"po_id"`

	ApprovalLevel  string          `gorm:"type:varchar(20);not null" json:"approval_level"`
	Action         string          `gorm:"type:varchar(30);not null" json:"action"`
	ActorID        string          `gorm:"type:varchar(255);not null" json:"actor_id"`
	Comments       string          `gorm:"type:text" json:"comments"`
	PreviousStatus string          `gorm:"type:varchar(30)" json:"previous_status"`
	NewStatus      string          `gorm:"type:varchar(30)" json:"new_status"`
	POAmountAtTime decimal.Decimal `gorm:"type:decimal(15,2)" json:"po_amount_at_time"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
