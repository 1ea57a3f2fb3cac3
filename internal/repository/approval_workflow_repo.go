package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApprovalWorkflowRepository interface {
	Create(ctx context.Context, wf *model.ApprovalWorkflow) error
	Update(ctx context.Context, wf *model.ApprovalWorkflow) error
	FindByPOID(ctx context.Context, poID uuid.UUID) (*model.ApprovalWorkflow, error)
	FindByPOIDForUpdate(ctx context.Context, poID uuid.UUID) (*model.ApprovalWorkflow, error)
	ListPending(ctx context.Context, orgID uuid.UUID) ([]model.ApprovalWorkflow, error)
	ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]model.ApprovalWorkflow, error)
	AddHistory(ctx context.Context, entry *model.ApprovalHistory) error
	ListHistory(ctx context.Context, poID uuid.UUID) ([]model.ApprovalHistory, error)
}

type approvalWorkflowRepository struct {
	db *gorm.DB
}

func NewApprovalWorkflowRepository(db *gorm.DB) ApprovalWorkflowRepository {
	return &approvalWorkflowRepository{db: db}
}

func (r *approvalWorkflowRepository) Create(ctx context.Context, wf *model.ApprovalWorkflow) error {
	return GetDB(ctx, r.db).Create(wf).Error
}

func (r *approvalWorkflowRepository) Update(ctx context.Context, wf *model.ApprovalWorkflow) error {
	return GetDB(ctx, r.db).Save(wf).Error
}

func (r *approvalWorkflowRepository) FindByPOID(ctx context.Context, poID uuid.UUID) (*model.ApprovalWorkflow, error) {
	var wf model.ApprovalWorkflow
	if err := GetDB(ctx, r.db).
		Preload("AppliedRule").
		First(&wf, "po_id = ?", poID).Error; err != nil {
		return nil, err
	}
	return &wf, nil
}

// FindByPOIDForUpdate locks the workflow row so concurrent approval decisions
// on the same order serialize. The rule is loaded after the lock is held.
func (r *approvalWorkflowRepository) FindByPOIDForUpdate(ctx context.Context, poID uuid.UUID) (*model.ApprovalWorkflow, error) {
	var wf model.ApprovalWorkflow
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&wf, "po_id = ?", poID).Error; err != nil {
		return nil, err
	}
	if wf.AppliedRuleID != nil {
		var rule model.ApprovalRule
		if err := db.First(&rule, "id = ?", *wf.AppliedRuleID).Error; err != nil {
			return nil, err
		}
		wf.AppliedRule = &rule
	}
	return &wf, nil
}

// ListPending returns in-flight workflows for the organization; approver
// filtering happens in the service against the applied rule.
func (r *approvalWorkflowRepository) ListPending(ctx context.Context, orgID uuid.UUID) ([]model.ApprovalWorkflow, error) {
	var wfs []model.ApprovalWorkflow
	err := GetDB(ctx, r.db).
		Joins("JOIN purchase_orders ON purchase_orders.id = approval_workflows.po_id").
		Where("purchase_orders.organization_id = ?", orgID).
		Where("approval_workflows.approval_status IN ?", []string{
			model.POApprovalPending,
			model.POApprovalLevel1Approved,
			model.POApprovalLevel2Approved,
			model.POApprovalLevel3Approved,
		}).
		Preload("AppliedRule").
		Order("approval_workflows.submitted_at ASC").
		Find(&wfs).Error
	if err != nil {
		return nil, err
	}
	return wfs, nil
}

func (r *approvalWorkflowRepository) ListOverdueCandidates(ctx context.Context, asOf time.Time) ([]model.ApprovalWorkflow, error) {
	var wfs []model.ApprovalWorkflow
	err := GetDB(ctx, r.db).
		Where("is_overdue = ?", false).
		Where("expected_approval_date IS NOT NULL AND expected_approval_date < ?", asOf).
		Where("approval_status IN ?", []string{
			model.POApprovalPending,
			model.POApprovalLevel1Approved,
			model.POApprovalLevel2Approved,
			model.POApprovalLevel3Approved,
		}).
		Find(&wfs).Error
	if err != nil {
		return nil, err
	}
	return wfs, nil
}

func (r *approvalWorkflowRepository) AddHistory(ctx context.Context, entry *model.ApprovalHistory) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *approvalWorkflowRepository) ListHistory(ctx context.Context, poID uuid.UUID) ([]model.ApprovalHistory, error) {
	var entries []model.ApprovalHistory
	err := GetDB(ctx, r.db).
		Where("po_id = ?", poID).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
