package repository

import (
	"context"
	"fmt"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GRNRepository interface {
	Create(ctx context.Context, grn *model.GoodsReceipt) error
	Update(ctx context.Context, grn *model.GoodsReceipt) error
	ReplaceItems(ctx context.Context, grnID uuid.UUID, items []model.GRNLineItem) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.GoodsReceipt, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.GoodsReceipt, error)
	ListByPO(ctx context.Context, poID uuid.UUID) ([]model.GoodsReceipt, error)
	List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.GoodsReceipt, int64, error)
	ExistsByNumber(ctx context.Context, orgID uuid.UUID, grnNumber string) (bool, error)
	NextNumber(ctx context.Context, orgID uuid.UUID, prefix string) (string, error)
}

type grnRepository struct {
	db *gorm.DB
}

func NewGRNRepository(db *gorm.DB) GRNRepository {
	return &grnRepository{db: db}
}

func (r *grnRepository) Create(ctx context.Context, grn *model.GoodsReceipt) error {
	return GetDB(ctx, r.db).Create(grn).Error
}

func (r *grnRepository) Update(ctx context.Context, grn *model.GoodsReceipt) error {
	return GetDB(ctx, r.db).Save(grn).Error
}

func (r *grnRepository) ReplaceItems(ctx context.Context, grnID uuid.UUID, items []model.GRNLineItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("grn_id = ?", grnID).Delete(&model.GRNLineItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].GRNID = grnID
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *grnRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.GoodsReceipt, error) {
	var grn model.GoodsReceipt
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Vendor").
		First(&grn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &grn, nil
}

func (r *grnRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.GoodsReceipt, error) {
	var grn model.GoodsReceipt
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&grn, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := db.Where("grn_id = ?", id).Order("created_at asc").Find(&grn.Items).Error; err != nil {
		return nil, err
	}
	return &grn, nil
}

func (r *grnRepository) ListByPO(ctx context.Context, poID uuid.UUID) ([]model.GoodsReceipt, error) {
	var grns []model.GoodsReceipt
	err := GetDB(ctx, r.db).
		Preload("Items").
		Where("po_id = ?", poID).
		Order("created_at ASC").
		Find(&grns).Error
	if err != nil {
		return nil, err
	}
	return grns, nil
}

func (r *grnRepository) List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]model.GoodsReceipt, int64, error) {
	var grns []model.GoodsReceipt
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.GoodsReceipt{}).Where("organization_id = ?", orgID)
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
	if err := fetchQuery.Order("created_at DESC").Offset(offset).Limit(limit).Find(&grns).Error; err != nil {
		return nil, 0, err
	}

	return grns, total, nil
}

func (r *grnRepository) ExistsByNumber(ctx context.Context, orgID uuid.UUID, grnNumber string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.GoodsReceipt{}).
		Where("organization_id = ? AND grn_number = ?", orgID, grnNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *grnRepository) NextNumber(ctx context.Context, orgID uuid.UUID, prefix string) (string, error) {
	db := GetDB(ctx, r.db)
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", orgID.String()+prefix).Error; err != nil {
		return "", err
	}

	var count int64
	if err := db.Model(&model.GoodsReceipt{}).
		Where("organization_id = ? AND grn_number LIKE ?", orgID, prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
