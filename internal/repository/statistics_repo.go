package repository

import (
	"context"
	"fmt"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatisticsRepository interface {
	CountPOsByStatus(ctx context.Context, orgID uuid.UUID, start, end time.Time) (map[string]int64, error)
	GetSpendTotal(ctx context.Context, orgID uuid.UUID, start, end time.Time) (string, int, error)
	GetTopVendorsBySpend(ctx context.Context, orgID uuid.UUID, start, end time.Time, limit int) ([]model.VendorSpend, error)
	CountOverdueApprovals(ctx context.Context, orgID uuid.UUID) (int64, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

func (r *statisticsRepository) CountPOsByStatus(ctx context.Context, orgID uuid.UUID, start, end time.Time) (map[string]int64, error) {
	var rows []struct {
		Status string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Select("approval_status as status, COUNT(*) as count").
		Where("organization_id = ? AND created_at >= ? AND created_at <= ?", orgID, start, end).
		Group("approval_status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count purchase orders by status: %w", err)
	}
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// GetSpendTotal sums approved purchase order amounts in the window. The total
// is returned as text so the caller can parse it into a decimal.
func (r *statisticsRepository) GetSpendTotal(ctx context.Context, orgID uuid.UUID, start, end time.Time) (string, int, error) {
	var result struct {
		Value string
		Count int
	}
	err := r.db.WithContext(ctx).Model(&model.PurchaseOrder{}).
		Select("COALESCE(CAST(SUM(total_amount) AS TEXT), '0') as value, COUNT(*) as count").
		Where("organization_id = ? AND approval_status = ? AND created_at >= ? AND created_at <= ?",
			orgID, model.POApprovalFinalApproved, start, end).
		Scan(&result).Error
	if err != nil {
		return "0", 0, fmt.Errorf("failed to query spend total: %w", err)
	}
	return result.Value, result.Count, nil
}

func (r *statisticsRepository) GetTopVendorsBySpend(ctx context.Context, orgID uuid.UUID, start, end time.Time, limit int) ([]model.VendorSpend, error) {
	var rankings []model.VendorSpend
	err := r.db.WithContext(ctx).Table("purchase_orders").
		Select("vendors.id as vendor_id, vendors.business_name as vendor_name, COUNT(purchase_orders.id) as po_count, COALESCE(CAST(SUM(purchase_orders.total_amount) AS TEXT), '0') as total_spend").
		Joins("JOIN vendors ON vendors.id = purchase_orders.vendor_id").
		Where("purchase_orders.organization_id = ? AND purchase_orders.approval_status = ? AND purchase_orders.created_at >= ? AND purchase_orders.created_at <= ?",
			orgID, model.POApprovalFinalApproved, start, end).
		Group("vendors.id, vendors.business_name").
		Order("SUM(purchase_orders.total_amount) DESC").
		Limit(limit).
		Scan(&rankings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top vendors: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) CountOverdueApprovals(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Table("approval_workflows").
		Joins("JOIN purchase_orders ON purchase_orders.id = approval_workflows.po_id").
		Where("purchase_orders.organization_id = ? AND approval_workflows.is_overdue = ?", orgID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue approvals: %w", err)
	}
	return count, nil
}
