package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ApproverList is a typed set of principal identifiers stored as jsonb.
// Membership checks are plain slice scans — no JSON parsing at call time.
type ApproverList []string

// Value serializes the list for storage.
func (l ApproverList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan deserializes the list from storage.
func (l *ApproverList) Scan(src interface{}) error {
	if src == nil {
		*l = ApproverList{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ApproverList: %T", src)
	}
	if len(raw) == 0 {
		*l = ApproverList{}
		return nil
	}
	return json.Unmarshal(raw, (*[]string)(l))
}

// Contains reports whether the principal is part of the set.
func (l ApproverList) Contains(principal string) bool {
	for _, id := range l {
		if id == principal {
			return true
		}
	}
	return false
}

// ApprovalRule defines an amount-tiered approval policy for an organization.
// max_amount nil means unbounded. Bands are not guaranteed disjoint: the
// tightest band (highest min_amount) wins on overlap.
type ApprovalRule struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrganizationID uuid.UUID `gorm:"type:uuid;not null;index" json:"organization_id"`

	RuleName  string           `gorm:"type:varchar(100);not null" json:"rule_name"`
	MinAmount decimal.Decimal  `gorm:"type:decimal(15,2);not null;default:0" json:"min_amount"`
	MaxAmount *decimal.Decimal `gorm:"type:decimal(15,2)" json:"max_amount"`

	Level1Required  bool `gorm:"default:true" json:"level_1_required"`
	Level2Required  bool `gorm:"default:false" json:"level_2_required"`
	Level3Required  bool `gorm:"default:false" json:"level_3_required"`
	FinanceRequired bool `gorm:"default:false" json:"finance_required"`

	Level1Approvers  ApproverList `gorm:"type:jsonb" json:"level_1_approvers"`
	Level2Approvers  ApproverList `gorm:"type:jsonb" json:"level_2_approvers"`
	Level3Approvers  ApproverList `gorm:"type:jsonb" json:"level_3_approvers"`
	FinanceApprovers ApproverList `gorm:"type:jsonb" json:"finance_approvers"`

	AutoApproveBelow decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0" json:"auto_approve_below"`

	// When an approver requests changes, prior level approvals are cleared
	// (true) or preserved for a fast re-approval on resubmission (false).
	ClearApprovalsOnChange bool `gorm:"default:true" json:"clear_approvals_on_change"`

	IsActive  bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `gorm:"type:varchar(255)" json:"created_by"`
	UpdatedBy string    `gorm:"type:varchar(255)" json:"updated_by"`
}

// Matches reports whether the amount falls into this rule's band.
func (r *ApprovalRule) Matches(amount decimal.Decimal) bool {
	if amount.LessThan(r.MinAmount) {
		return false
	}
	if r.MaxAmount != nil && amount.GreaterThan(*r.MaxAmount) {
		return false
	}
	return true
}

// AutoApproves reports whether the amount is below the auto-approval threshold.
func (r *ApprovalRule) AutoApproves(amount decimal.Decimal) bool {
	return r.AutoApproveBelow.IsPositive() && amount.LessThanOrEqual(r.AutoApproveBelow)
}

// LevelRequired reports whether the given level participates under this rule.
func (r *ApprovalRule) LevelRequired(level string) bool {
	switch level {
	case ApprovalLevel1:
		return r.Level1Required
	case ApprovalLevel2:
		return r.Level2Required
	case ApprovalLevel3:
		return r.Level3Required
	case ApprovalLevelFinance:
		return r.FinanceRequired
	default:
		return false
	}
}

// ApproversFor returns the approver set configured for the given level.
func (r *ApprovalRule) ApproversFor(level string) ApproverList {
	switch level {
	case ApprovalLevel1:
		return r.Level1Approvers
	case ApprovalLevel2:
		return r.Level2Approvers
	case ApprovalLevel3:
		return r.Level3Approvers
	case ApprovalLevelFinance:
		return r.FinanceApprovers
	default:
		return nil
	}
}

// IsApprover reports whether the actor may approve at the given level.
func (r *ApprovalRule) IsApprover(level, actorID string) bool {
	return r.ApproversFor(level).Contains(actorID)
}

// RequiredLevels lists the participating levels in workflow order.
func (r *ApprovalRule) RequiredLevels() []string {
	var levels []string
	for _, level := range ApprovalLevelOrder {
		if r.LevelRequired(level) {
			levels = append(levels, level)
		}
	}
	return levels
}

// FirstRequiredLevel returns the entry level of the workflow, or false when
// no level is required (the rule approves outright).
func (r *ApprovalRule) FirstRequiredLevel() (string, bool) {
	levels := r.RequiredLevels()
	if len(levels) == 0 {
		return "", false
	}
	return levels[0], true
}

// NextRequiredLevel returns the level following the given one, or false when
// the given level is the last required step.
func (r *ApprovalRule) NextRequiredLevel(after string) (string, bool) {
	found := false
	for _, level := range ApprovalLevelOrder {
		if found && r.LevelRequired(level) {
			return level, true
		}
		if level == after {
			found = true
		}
	}
	return "", false
}

// ResolveRule selects the applicable rule for an amount. Among matching
// active rules the tightest band — the highest min_amount — wins; ties fall
// back to creation order for determinism. Returns nil when nothing matches.
func ResolveRule(rules []ApprovalRule, amount decimal.Decimal) *ApprovalRule {
	var best *ApprovalRule
	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive || !rule.Matches(amount) {
			continue
		}
		if best == nil || rule.MinAmount.GreaterThan(best.MinAmount) {
			best = rule
		}
	}
	return best
}
