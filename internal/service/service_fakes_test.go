package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

var errFakeNotFound = errors.New("record not found")

// fakeTxManager runs the callback on the same context; there is no real
// transaction to inject.
type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- purchase orders ---

type memoryPORepo struct {
	orders map[uuid.UUID]*model.PurchaseOrder
}

func newMemoryPORepo() *memoryPORepo {
	return &memoryPORepo{orders: make(map[uuid.UUID]*model.PurchaseOrder)}
}

func (r *memoryPORepo) Create(_ context.Context, po *model.PurchaseOrder) error {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	for i := range po.Items {
		if po.Items[i].ID == uuid.Nil {
			po.Items[i].ID = uuid.New()
		}
		po.Items[i].POID = po.ID
	}
	r.orders[po.ID] = po
	return nil
}

func (r *memoryPORepo) Update(_ context.Context, po *model.PurchaseOrder) error {
	if _, ok := r.orders[po.ID]; !ok {
		return errFakeNotFound
	}
	r.orders[po.ID] = po
	return nil
}

func (r *memoryPORepo) ReplaceItems(_ context.Context, poID uuid.UUID, items []model.POLineItem) error {
	po, ok := r.orders[poID]
	if !ok {
		return errFakeNotFound
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].POID = poID
	}
	po.Items = items
	return nil
}

func (r *memoryPORepo) UpdateItemQuantities(_ context.Context, items []model.POLineItem) error {
	for _, item := range items {
		po, ok := r.orders[item.POID]
		if !ok {
			continue
		}
		for i := range po.Items {
			if po.Items[i].ID == item.ID {
				po.Items[i].ReceivedQuantity = item.ReceivedQuantity
				po.Items[i].PendingQuantity = item.PendingQuantity
			}
		}
	}
	return nil
}

func (r *memoryPORepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	po, ok := r.orders[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return po, nil
}

func (r *memoryPORepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	return r.FindByIDWithItems(ctx, id)
}

func (r *memoryPORepo) ExistsByNumber(_ context.Context, orgID uuid.UUID, poNumber string) (bool, error) {
	for _, po := range r.orders {
		if po.OrganizationID == orgID && po.PONumber == poNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryPORepo) List(_ context.Context, orgID uuid.UUID, _ repository.PurchaseOrderFilter, _, _ int) ([]model.PurchaseOrder, int64, error) {
	var out []model.PurchaseOrder
	for _, po := range r.orders {
		if po.OrganizationID == orgID {
			out = append(out, *po)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memoryPORepo) NextNumber(_ context.Context, orgID uuid.UUID, prefix string) (string, error) {
	count := 0
	for _, po := range r.orders {
		if po.OrganizationID == orgID && len(po.PONumber) >= len(prefix) && po.PONumber[:len(prefix)] == prefix {
			count++
		}
	}
	return fmt.Sprintf("%s%05d", prefix, count+1), nil
}

// --- approval rules ---

type memoryRuleRepo struct {
	rules map[uuid.UUID]*model.ApprovalRule
}

func newMemoryRuleRepo() *memoryRuleRepo {
	return &memoryRuleRepo{rules: make(map[uuid.UUID]*model.ApprovalRule)}
}

func (r *memoryRuleRepo) Create(_ context.Context, rule *model.ApprovalRule) error {
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *memoryRuleRepo) Update(_ context.Context, rule *model.ApprovalRule) error {
	if _, ok := r.rules[rule.ID]; !ok {
		return errFakeNotFound
	}
	r.rules[rule.ID] = rule
	return nil
}

func (r *memoryRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.ApprovalRule, error) {
	rule, ok := r.rules[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return rule, nil
}

func (r *memoryRuleRepo) ListActive(_ context.Context, orgID uuid.UUID) ([]model.ApprovalRule, error) {
	var out []model.ApprovalRule
	for _, rule := range r.rules {
		if rule.OrganizationID == orgID && rule.IsActive {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (r *memoryRuleRepo) List(_ context.Context, orgID uuid.UUID, _, _ int) ([]model.ApprovalRule, int64, error) {
	var out []model.ApprovalRule
	for _, rule := range r.rules {
		if rule.OrganizationID == orgID {
			out = append(out, *rule)
		}
	}
	return out, int64(len(out)), nil
}

// --- approval workflows ---

type memoryWorkflowRepo struct {
	workflows map[uuid.UUID]*model.ApprovalWorkflow // by PO id
	history   []model.ApprovalHistory
	ruleRepo  *memoryRuleRepo
}

func newMemoryWorkflowRepo(ruleRepo *memoryRuleRepo) *memoryWorkflowRepo {
	return &memoryWorkflowRepo{
		workflows: make(map[uuid.UUID]*model.ApprovalWorkflow),
		ruleRepo:  ruleRepo,
	}
}

func (r *memoryWorkflowRepo) Create(_ context.Context, wf *model.ApprovalWorkflow) error {
	if wf.ID == uuid.Nil {
		wf.ID = uuid.New()
	}
	r.workflows[wf.POID] = wf
	return nil
}

func (r *memoryWorkflowRepo) Update(_ context.Context, wf *model.ApprovalWorkflow) error {
	if _, ok := r.workflows[wf.POID]; !ok {
		return errFakeNotFound
	}
	r.workflows[wf.POID] = wf
	return nil
}

func (r *memoryWorkflowRepo) FindByPOID(ctx context.Context, poID uuid.UUID) (*model.ApprovalWorkflow, error) {
	return r.FindByPOIDForUpdate(ctx, poID)
}

func (r *memoryWorkflowRepo) FindByPOIDForUpdate(_ context.Context, poID uuid.UUID) (*model.ApprovalWorkflow, error) {
	wf, ok := r.workflows[poID]
	if !ok {
		return nil, errFakeNotFound
	}
	if wf.AppliedRuleID != nil && wf.AppliedRule == nil {
		if rule, ok := r.ruleRepo.rules[*wf.AppliedRuleID]; ok {
			wf.AppliedRule = rule
		}
	}
	return wf, nil
}

func (r *memoryWorkflowRepo) ListPending(_ context.Context, _ uuid.UUID) ([]model.ApprovalWorkflow, error) {
	var out []model.ApprovalWorkflow
	for _, wf := range r.workflows {
		if !wf.IsPending() {
			continue
		}
		copied := *wf
		if copied.AppliedRuleID != nil && copied.AppliedRule == nil {
			if rule, ok := r.ruleRepo.rules[*copied.AppliedRuleID]; ok {
				copied.AppliedRule = rule
			}
		}
		out = append(out, copied)
	}
	return out, nil
}

func (r *memoryWorkflowRepo) ListOverdueCandidates(_ context.Context, asOf time.Time) ([]model.ApprovalWorkflow, error) {
	var out []model.ApprovalWorkflow
	for _, wf := range r.workflows {
		if wf.IsPending() && !wf.IsOverdue && wf.ExpectedApprovalDate != nil && wf.ExpectedApprovalDate.Before(asOf) {
			out = append(out, *wf)
		}
	}
	return out, nil
}

func (r *memoryWorkflowRepo) AddHistory(_ context.Context, entry *model.ApprovalHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	r.history = append(r.history, *entry)
	return nil
}

func (r *memoryWorkflowRepo) ListHistory(_ context.Context, poID uuid.UUID) ([]model.ApprovalHistory, error) {
	var out []model.ApprovalHistory
	for _, entry := range r.history {
		if entry.POID == poID {
			out = append(out, entry)
		}
	}
	return out, nil
}

// --- goods receipts ---

type memoryGRNRepo struct {
	grns map[uuid.UUID]*model.GoodsReceipt
}

func newMemoryGRNRepo() *memoryGRNRepo {
	return &memoryGRNRepo{grns: make(map[uuid.UUID]*model.GoodsReceipt)}
}

func (r *memoryGRNRepo) Create(_ context.Context, grn *model.GoodsReceipt) error {
	if grn.ID == uuid.Nil {
		grn.ID = uuid.New()
	}
	for i := range grn.Items {
		if grn.Items[i].ID == uuid.Nil {
			grn.Items[i].ID = uuid.New()
		}
		grn.Items[i].GRNID = grn.ID
	}
	r.grns[grn.ID] = grn
	return nil
}

func (r *memoryGRNRepo) Update(_ context.Context, grn *model.GoodsReceipt) error {
	if _, ok := r.grns[grn.ID]; !ok {
		return errFakeNotFound
	}
	r.grns[grn.ID] = grn
	return nil
}

func (r *memoryGRNRepo) ReplaceItems(_ context.Context, grnID uuid.UUID, items []model.GRNLineItem) error {
	grn, ok := r.grns[grnID]
	if !ok {
		return errFakeNotFound
	}
	for i := range items {
		if items[i].ID == uuid.Nil {
			items[i].ID = uuid.New()
		}
		items[i].GRNID = grnID
	}
	grn.Items = items
	return nil
}

func (r *memoryGRNRepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.GoodsReceipt, error) {
	grn, ok := r.grns[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return grn, nil
}

func (r *memoryGRNRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.GoodsReceipt, error) {
	return r.FindByIDWithItems(ctx, id)
}

func (r *memoryGRNRepo) ListByPO(_ context.Context, poID uuid.UUID) ([]model.GoodsReceipt, error) {
	var out []model.GoodsReceipt
	for _, grn := range r.grns {
		if grn.POID == poID {
			out = append(out, *grn)
		}
	}
	return out, nil
}

func (r *memoryGRNRepo) List(_ context.Context, orgID uuid.UUID, status string, _, _ int) ([]model.GoodsReceipt, int64, error) {
	var out []model.GoodsReceipt
	for _, grn := range r.grns {
		if grn.OrganizationID != orgID {
			continue
		}
		if status != "" && grn.Status != status {
			continue
		}
		out = append(out, *grn)
	}
	return out, int64(len(out)), nil
}

func (r *memoryGRNRepo) ExistsByNumber(_ context.Context, orgID uuid.UUID, grnNumber string) (bool, error) {
	for _, grn := range r.grns {
		if grn.OrganizationID == orgID && grn.GRNNumber == grnNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryGRNRepo) NextNumber(_ context.Context, _ uuid.UUID, prefix string) (string, error) {
	return fmt.Sprintf("%s%05d", prefix, len(r.grns)+1), nil
}

// --- bills ---

type memoryBillRepo struct {
	bills map[uuid.UUID]*model.Bill
}

func newMemoryBillRepo() *memoryBillRepo {
	return &memoryBillRepo{bills: make(map[uuid.UUID]*model.Bill)}
}

func (r *memoryBillRepo) Create(_ context.Context, bill *model.Bill) error {
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	for i := range bill.Items {
		if bill.Items[i].ID == uuid.Nil {
			bill.Items[i].ID = uuid.New()
		}
		bill.Items[i].BillID = bill.ID
	}
	r.bills[bill.ID] = bill
	return nil
}

func (r *memoryBillRepo) FindByIDWithItems(_ context.Context, id uuid.UUID) (*model.Bill, error) {
	bill, ok := r.bills[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return bill, nil
}

func (r *memoryBillRepo) ListByPO(_ context.Context, poID uuid.UUID) ([]model.Bill, error) {
	var out []model.Bill
	for _, bill := range r.bills {
		if bill.POID == poID {
			out = append(out, *bill)
		}
	}
	return out, nil
}

func (r *memoryBillRepo) List(_ context.Context, orgID uuid.UUID, status string, _, _ int) ([]model.Bill, int64, error) {
	var out []model.Bill
	for _, bill := range r.bills {
		if bill.OrganizationID != orgID {
			continue
		}
		if status != "" && bill.Status != status {
			continue
		}
		out = append(out, *bill)
	}
	return out, int64(len(out)), nil
}

func (r *memoryBillRepo) ExistsByNumber(_ context.Context, orgID uuid.UUID, billNumber string) (bool, error) {
	for _, bill := range r.bills {
		if bill.OrganizationID == orgID && bill.BillNumber == billNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryBillRepo) NextNumber(_ context.Context, _ uuid.UUID, prefix string) (string, error) {
	return fmt.Sprintf("%s%05d", prefix, len(r.bills)+1), nil
}

// --- vendors ---

type memoryVendorRepo struct {
	vendors map[uuid.UUID]*model.Vendor
}

func newMemoryVendorRepo() *memoryVendorRepo {
	return &memoryVendorRepo{vendors: make(map[uuid.UUID]*model.Vendor)}
}

func (r *memoryVendorRepo) Create(_ context.Context, vendor *model.Vendor) error {
	if vendor.ID == uuid.Nil {
		vendor.ID = uuid.New()
	}
	r.vendors[vendor.ID] = vendor
	return nil
}

func (r *memoryVendorRepo) Update(_ context.Context, vendor *model.Vendor) error {
	if _, ok := r.vendors[vendor.ID]; !ok {
		return errFakeNotFound
	}
	r.vendors[vendor.ID] = vendor
	return nil
}

func (r *memoryVendorRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.vendors, id)
	return nil
}

func (r *memoryVendorRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Vendor, error) {
	vendor, ok := r.vendors[id]
	if !ok {
		return nil, errFakeNotFound
	}
	return vendor, nil
}

func (r *memoryVendorRepo) ExistsByCode(_ context.Context, orgID uuid.UUID, code string) (bool, error) {
	for _, vendor := range r.vendors {
		if vendor.OrganizationID == orgID && vendor.VendorCode == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryVendorRepo) List(_ context.Context, orgID uuid.UUID, _ string, _, _ int) ([]model.Vendor, int64, error) {
	var out []model.Vendor
	for _, vendor := range r.vendors {
		if vendor.OrganizationID == orgID {
			out = append(out, *vendor)
		}
	}
	return out, int64(len(out)), nil
}

// --- audit ---

type memoryAuditRepo struct {
	entries []model.AuditLog
}

func (r *memoryAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memoryAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	return r.entries, int64(len(r.entries)), nil
}
