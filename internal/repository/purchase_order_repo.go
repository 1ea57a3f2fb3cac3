package repository

import (
	"context"
	"fmt"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseOrderFilter struct {
	Status   string
	VendorID *uuid.UUID
	Search   string
}

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	Update(ctx context.Context, po *model.PurchaseOrder) error
	ReplaceItems(ctx context.Context, poID uuid.UUID, items []model.POLineItem) error
	UpdateItemQuantities(ctx context.Context, items []model.POLineItem) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	ExistsByNumber(ctx context.Context, orgID uuid.UUID, poNumber string) (bool, error)
	List(ctx context.Context, orgID uuid.UUID, filter PurchaseOrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error)
	NextNumber(ctx context.Context, orgID uuid.UUID, prefix string) (string, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *purchaseOrderRepository) Update(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Save(po).Error
}

func (r *purchaseOrderRepository) ReplaceItems(ctx context.Context, poID uuid.UUID, items []model.POLineItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("po_id = ?", poID).Delete(&model.POLineItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].POID = poID
	}
	if len(items) == 0 {
		return nil
	}
	return db.Create(&items).Error
}

func (r *purchaseOrderRepository) UpdateItemQuantities(ctx context.Context, items []model.POLineItem) error {
	db := GetDB(ctx, r.db)
	for i := range items {
		err := db.Model(&model.POLineItem{}).
			Where("id = ?", items[i].ID).
			Updates(map[string]interface{}{
				"received_quantity": items[i].ReceivedQuantity,
				"pending_quantity":  items[i].PendingQuantity,
			}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *purchaseOrderRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Vendor").
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// FindByIDForUpdate locks the purchase order row for the duration of the
// surrounding transaction. Item rows are read after the lock is held.
func (r *purchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := db.Where("po_id = ?", id).Order("created_at asc").Find(&po.Items).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

func (r *purchaseOrderRepository) ExistsByNumber(ctx context.Context, orgID uuid.UUID, poNumber string) (bool, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.PurchaseOrder{}).
		Where("organization_id = ? AND po_number = ?", orgID, poNumber).
		Count(&count).Error
	return count > 0, err
}

func (r *purchaseOrderRepository) List(ctx context.Context, orgID uuid.UUID, filter PurchaseOrderFilter, page, limit int) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		q = q.Where("organization_id = ?", orgID)
		if filter.Status != "" {
			q = q.Where("approval_status = ? OR fulfillment_status = ?", filter.Status, filter.Status)
		}
		if filter.VendorID != nil {
			q = q.Where("vendor_id = ?", *filter.VendorID)
		}
		if filter.Search != "" {
			q = q.Where("po_number ILIKE ?", "%"+filter.Search+"%")
		}
		return q
	}

	if err := apply(db.Model(&model.PurchaseOrder{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := apply(db).
		Preload("Items").
		Preload("Vendor").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// NextNumber allocates the next document number in the prefix series. The
// advisory lock serializes concurrent allocations within the transaction.
func (r *purchaseOrderRepository) NextNumber(ctx context.Context, orgID uuid.UUID, prefix string) (string, error) {
	db := GetDB(ctx, r.db)
	if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", orgID.String()+prefix).Error; err != nil {
		return "", err
	}

	var count int64
	if err := db.Model(&model.PurchaseOrder{}).
		Where("organization_id = ? AND po_number LIKE ?", orgID, prefix+"%").
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}
