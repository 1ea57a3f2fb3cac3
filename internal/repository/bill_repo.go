package repository

import (
	"context"
	"fmt"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillRepository interface {
	Create(ctx context.Context, bill *model.Bill) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Bill, error)
	ListByPO(ctx context.Context, poID uuid.UUID) ([]model.Bill, error)
	List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.Bill, int64, error)
	ExistsByNumber(ctx context.Context, orgID uuid.UUID, billNumber string) (bool, error)
	NextNumber(ctx context.Context, orgID uuid.UUID, prefix string) (string, error)
}

type billRepository struct {
	db *gorm.DB
}

func NewBillRepository(db *gorm.DB) BillRepository {
	return &billRepository{db: db}
}

func (r *billRepository) Create(ctx context.Context, bill *model.Bill) error {
	return GetDB(ctx, r.db).Create(bill).Error
}

func (r *billRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.Bill, error) {
	var bill model.Bill
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Vendor").
		First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *billRepository) ListByPO(ctx context.Context, poID uuid.UUID) ([]model.Bill, error) {
	var bills []model.Bill
	err := GetDB(ctx, r.db).
		Preload("Items").
		Where("po_id = ?", poID).
		Order("created_at ASC").
		Find(&bills).Error
	if err != nil {
		return nil, err
	}
	return bills, nil
}

func (r *billRepository) List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.Bill, int64, error) {
	var bills []model.Bill
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Bill{}).Where("organization_id = ?", orgID)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetchQuery := db.Preload("Items").Preload("Vendor").Where("organization_id = ?", orgID)
	if status != "" {
		fetchQuery = fetchQuery.Where("status = ?", status)
	}
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&bills).Error; err != nil {
		return nil, 0, err
	}

	return bills, total, nil
}

func (r *billRepository) ExistsByNumber(ctx context.Context, orgID uuid.UUID, billNumber string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Bill{}).
		Where("organization_id = ? AND bill_number = ?", orgID, billNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *billRepository) NextNumber(ctx context.Context, orgID uuid.UUID, prefix string) (string, error) {
	db := GetDB(ctx, r.db)
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", orgID.String()+prefix).Error; err != nil {
		return "", err
	}

	var count int64
	if err := db.Model(&model.Bill{}).
		Where("organization_id = ? AND bill_number LIKE ?", orgID, prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
