package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ApprovalRuleRepository interface {
	Create(ctx context.Context, rule *model.ApprovalRule) error
	Update(ctx context.Context, rule *model.ApprovalRule) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRule, error)
	ListActive(ctx context.Context, orgID uuid.UUID) ([]model.ApprovalRule, error)
	List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.ApprovalRule, int64, error)
}

type approvalRuleRepository struct {
	db *gorm.DB
}

func NewApprovalRuleRepository(db *gorm.DB) ApprovalRuleRepository {
	return &approvalRuleRepository{db: db}
}

func (r *approvalRuleRepository) Create(ctx context.Context, rule *model.ApprovalRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *approvalRuleRepository) Update(ctx context.Context, rule *model.ApprovalRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *approvalRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ApprovalRule, error) {
	var rule model.ApprovalRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListActive returns active rules ordered tightest band first so callers can
// resolve overlaps deterministically.
func (r *approvalRuleRepository) ListActive(ctx context.Context, orgID uuid.UUID) ([]model.ApprovalRule, error) {
	var rules []model.ApprovalRule
	err := GetDB(ctx, r.db).
		Where("organization_id = ? AND is_active = ?", orgID, true).
		Order("min_amount DESC, created_at ASC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *approvalRuleRepository) List(ctx context.Context, orgID uuid.UUID, page, limit int) ([]model.ApprovalRule, int64, error) {
	var rules []model.ApprovalRule
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.ApprovalRule{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := db.Where("organization_id = ?", orgID).
		Order("min_amount ASC").
		Offset(offset).Limit(limit).
		Find(&rules).Error
	if err != nil {
		return nil, 0, err
	}

	return rules, total, nil
}
