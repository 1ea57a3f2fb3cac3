package service

import (
	"context"
	"encoding/json"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type BillLinePayload struct {
	POItemID   string          `json:"po_item_id" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	UnitPrice  decimal.Decimal `json:"unit_price" binding:"required"`
	CGSTAmount decimal.Decimal `json:"cgst_amount"`
	SGSTAmount decimal.Decimal `json:"sgst_amount"`
	IGSTAmount decimal.Decimal `json:"igst_amount"`
	Notes      string          `json:"notes"`
}

type CreateBillRequest struct {
	POID       string            `json:"po_id" binding:"required"`
	GRNID      string            `json:"grn_id"` // optional: tie the bill to one receipt
	BillNumber string            `json:"bill_number"`
	BillDate   time.Time         `json:"bill_date" binding:"required"`
	DueDate    time.Time         `json:"due_date" binding:"required"`
	Notes      string            `json:"notes"`
	Items      []BillLinePayload `json:"items" binding:"required"`
}

type BillLineResponse struct {
	ID              uuid.UUID       `json:"id"`
	POItemID        uuid.UUID       `json:"po_item_id"`
	ItemDescription string          `json:"item_description"`
	HSNCode         string          `json:"hsn_code"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	TaxableAmount   decimal.Decimal `json:"taxable_amount"`
	CGSTAmount      decimal.Decimal `json:"cgst_amount"`
	SGSTAmount      decimal.Decimal `json:"sgst_amount"`
	IGSTAmount      decimal.Decimal `json:"igst_amount"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

type BillResponse struct {
	ID            uuid.UUID          `json:"id"`
	BillNumber    string             `json:"bill_number"`
	POID          uuid.UUID          `json:"po_id"`
	GRNID         *uuid.UUID         `json:"grn_id"`
	VendorID      uuid.UUID          `json:"vendor_id"`
	VendorName    string             `json:"vendor_name"`
	BillDate      time.Time          `json:"bill_date"`
	DueDate       time.Time          `json:"due_date"`
	TaxableAmount decimal.Decimal    `json:"taxable_amount"`
	TotalCGST     decimal.Decimal    `json:"total_cgst"`
	TotalSGST     decimal.Decimal    `json:"total_sgst"`
	TotalIGST     decimal.Decimal    `json:"total_igst"`
	TotalAmount   decimal.Decimal    `json:"total_amount"`
	Status        string             `json:"status"`
	Notes         string             `json:"notes"`
	Items         []BillLineResponse `json:"items"`
	CreatedAt     time.Time          `json:"created_at"`
}

// ThreeWayMatchLine is the per-line comparison of ordered, accepted, and
// billed figures.
type ThreeWayMatchLine struct {
	POItemID         uuid.UUID       `json:"po_item_id"`
	ItemDescription  string          `json:"item_description"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	AcceptedQuantity decimal.Decimal `json:"accepted_quantity"`
	BilledQuantity   decimal.Decimal `json:"billed_quantity"`
	POUnitPrice      decimal.Decimal `json:"po_unit_price"`
	BilledUnitPrice  decimal.Decimal `json:"billed_unit_price"`
	QuantityVariance decimal.Decimal `json:"quantity_variance_pct"`
	PriceVariance    decimal.Decimal `json:"price_variance_pct"`
	Matched          bool            `json:"matched"`
}

type ThreeWayMatchResult struct {
	POID              uuid.UUID           `json:"po_id"`
	PONumber          string              `json:"po_number"`
	GRNID             *uuid.UUID          `json:"grn_id,omitempty"`
	BillID            *uuid.UUID          `json:"bill_id,omitempty"`
	TolerancePct      decimal.Decimal     `json:"tolerance_pct"`
	Matched           bool                `json:"matched"`
	MaxAbsVariancePct decimal.Decimal     `json:"max_abs_variance_pct"`
	Lines             []ThreeWayMatchLine `json:"lines"`
}

// ThreeWayMatchFilter optionally narrows the match to one receipt and/or one
// bill. Empty fields keep the order-wide aggregate.
type ThreeWayMatchFilter struct {
	GRNID  string
	BillID string
}

// --- Interface ---

type BillService interface {
	Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreateBillRequest) (BillResponse, error)
	Get(ctx context.Context, orgID uuid.UUID, id string) (BillResponse, error)
	List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]BillResponse, int64, error)
	ThreeWayMatch(ctx context.Context, orgID uuid.UUID, poID string, filter ThreeWayMatchFilter, tolerancePct decimal.Decimal) (ThreeWayMatchResult, error)
}

type billService struct {
	billRepo  repository.BillRepository
	grnRepo   repository.GRNRepository
	poRepo    repository.PurchaseOrderRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewBillService(
	billRepo repository.BillRepository,
	grnRepo repository.GRNRepository,
	poRepo repository.PurchaseOrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) BillService {
	return &billService{
		billRepo:  billRepo,
		grnRepo:   grnRepo,
		poRepo:    poRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Implementation ---

func (s *billService) Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreateBillRequest) (BillResponse, error) {
	poID, err := uuid.Parse(req.POID)
	if err != nil {
		return BillResponse{}, apperror.Validation("invalid po_id")
	}
	if len(req.Items) == 0 {
		return BillResponse{}, apperror.Validation("at least one bill line is required")
	}
	if req.DueDate.Before(req.BillDate) {
		return BillResponse{}, apperror.Validation("due_date cannot precede bill_date")
	}

	var result BillResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDWithItems(txCtx, poID)
		if findErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if po.OrganizationID != orgID {
			return apperror.NotFound("purchase order not found")
		}
		if po.ApprovalStatus != model.POApprovalFinalApproved {
			return apperror.InvalidState("purchase order in status %s cannot be billed", po.Status())
		}

		var grn *model.GoodsReceipt
		if req.GRNID != "" {
			grnID, parseErr := uuid.Parse(req.GRNID)
			if parseErr != nil {
				return apperror.Validation("invalid grn_id")
			}
			loaded, grnErr := s.grnRepo.FindByIDForUpdate(txCtx, grnID)
			if grnErr != nil || loaded.OrganizationID != orgID {
				return apperror.NotFound("grn not found")
			}
			if loaded.POID != po.ID {
				return apperror.Validation("grn does not belong to the purchase order")
			}
			if loaded.Status != model.GRNStatusCompleted {
				return apperror.InvalidState("grn in status %s cannot be billed", loaded.Status)
			}
			grn = loaded
		}

		poItems := make(map[uuid.UUID]*model.POLineItem, len(po.Items))
		for i := range po.Items {
			poItems[po.Items[i].ID] = &po.Items[i]
		}

		lines := make([]model.BillLineItem, 0, len(req.Items))
		taxable := decimal.Zero
		cgst := decimal.Zero
		sgst := decimal.Zero
		igst := decimal.Zero
		for i, p := range req.Items {
			itemID, parseErr := uuid.Parse(p.POItemID)
			if parseErr != nil {
				return apperror.Validation("items[%d]: invalid po_item_id", i)
			}
			poItem, ok := poItems[itemID]
			if !ok {
				return apperror.Validation("items[%d]: item does not belong to the purchase order", i)
			}
			if !p.Quantity.IsPositive() {
				return apperror.Validation("items[%d]: quantity must be positive", i)
			}
			if p.UnitPrice.IsNegative() {
				return apperror.Validation("items[%d]: unit_price cannot be negative", i)
			}
			if p.CGSTAmount.IsNegative() || p.SGSTAmount.IsNegative() || p.IGSTAmount.IsNegative() {
				return apperror.Validation("items[%d]: tax amounts cannot be negative", i)
			}

			lineTaxable := p.Quantity.Mul(p.UnitPrice).Round(2)
			lineTotal := lineTaxable.Add(p.CGSTAmount).Add(p.SGSTAmount).Add(p.IGSTAmount)
			lines = append(lines, model.BillLineItem{
				POItemID:        itemID,
				ItemDescription: poItem.ItemDescription,
				HSNCode:         poItem.HSNCode,
				Quantity:        p.Quantity,
				UnitPrice:       p.UnitPrice,
				TaxableAmount:   lineTaxable,
				CGSTAmount:      p.CGSTAmount,
				SGSTAmount:      p.SGSTAmount,
				IGSTAmount:      p.IGSTAmount,
				TotalPrice:      lineTotal,
				Notes:           p.Notes,
			})
			taxable = taxable.Add(lineTaxable)
			cgst = cgst.Add(p.CGSTAmount)
			sgst = sgst.Add(p.SGSTAmount)
			igst = igst.Add(p.IGSTAmount)
		}

		bill := &model.Bill{
			OrganizationID: orgID,
			POID:           po.ID,
			VendorID:       po.VendorID,
			BillDate:       req.BillDate,
			DueDate:        req.DueDate,
			TaxableAmount:  taxable,
			TotalCGST:      cgst,
			TotalSGST:      sgst,
			TotalIGST:      igst,
			TotalAmount:    taxable.Add(cgst).Add(sgst).Add(igst),
			Status:         model.BillStatusSubmitted,
			Notes:          req.Notes,
			Items:          lines,
			CreatedBy:      actorID,
			UpdatedBy:      actorID,
		}
		if grn != nil {
			bill.GRNID = &grn.ID
		}

		if req.BillNumber != "" {
			exists, existsErr := s.billRepo.ExistsByNumber(txCtx, orgID, req.BillNumber)
			if existsErr != nil {
				return apperror.Wrap(apperror.KindInternal, existsErr, "failed to check bill number")
			}
			if exists {
				return apperror.Conflict("bill number %s already exists", req.BillNumber)
			}
			bill.BillNumber = req.BillNumber
		} else {
			prefix := "BILL-" + time.Now().Format("20060102") + "-"
			number, genErr := s.billRepo.NextNumber(txCtx, orgID, prefix)
			if genErr != nil {
				return apperror.Wrap(apperror.KindInternal, genErr, "failed to generate bill number")
			}
			bill.BillNumber = number
		}

		if createErr := s.billRepo.Create(txCtx, bill); createErr != nil {
			return apperror.Wrap(apperror.KindInternal, createErr, "failed to create bill")
		}

		if grn != nil {
			grn.Status = model.GRNStatusBilled
			grn.UpdatedBy = actorID
			if saveErr := s.grnRepo.Update(txCtx, grn); saveErr != nil {
				return apperror.Wrap(apperror.KindInternal, saveErr, "failed to mark grn billed")
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"po_id":        po.ID.String(),
			"bill_number":  bill.BillNumber,
			"total_amount": bill.TotalAmount.String(),
		})
		entry := &model.AuditLog{
			Action:     model.ActionCreateBill,
			EntityID:   bill.ID.String(),
			EntityName: bill.BillNumber,
			Details:    string(details),
		}
		if userID, parseErr := uuid.Parse(actorID); parseErr == nil {
			entry.UserID = &userID
		}
		if auditErr := s.auditRepo.Log(txCtx, entry); auditErr != nil {
			return auditErr
		}

		result = toBillResponse(*bill)
		return nil
	})
	if err != nil {
		return BillResponse{}, err
	}
	return result, nil
}

func (s *billService) Get(ctx context.Context, orgID uuid.UUID, id string) (BillResponse, error) {
	billID, err := uuid.Parse(id)
	if err != nil {
		return BillResponse{}, apperror.Validation("invalid bill id")
	}
	bill, err := s.billRepo.FindByIDWithItems(ctx, billID)
	if err != nil {
		return BillResponse{}, apperror.NotFound("bill not found")
	}
	if bill.OrganizationID != orgID {
		return BillResponse{}, apperror.NotFound("bill not found")
	}
	return toBillResponse(*bill), nil
}

func (s *billService) List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]BillResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	bills, total, err := s.billRepo.List(ctx, orgID, status, page, limit)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.KindInternal, err, "failed to fetch bills")
	}
	res := make([]BillResponse, 0, len(bills))
	for _, bill := range bills {
		res = append(res, toBillResponse(bill))
	}
	return res, total, nil
}

// ThreeWayMatch compares the purchase order against completed receipts and
// booked bills, across the whole order or scoped to one receipt and/or bill.
func (s *billService) ThreeWayMatch(ctx context.Context, orgID uuid.UUID, poID string, filter ThreeWayMatchFilter, tolerancePct decimal.Decimal) (ThreeWayMatchResult, error) {
	id, err := uuid.Parse(poID)
	if err != nil {
		return ThreeWayMatchResult{}, apperror.Validation("invalid po_id")
	}
	if tolerancePct.IsNegative() {
		return ThreeWayMatchResult{}, apperror.Validation("tolerance_pct cannot be negative")
	}
	po, err := s.poRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return ThreeWayMatchResult{}, apperror.NotFound("purchase order not found")
	}
	if po.OrganizationID != orgID {
		return ThreeWayMatchResult{}, apperror.NotFound("purchase order not found")
	}
	grns, err := s.grnRepo.ListByPO(ctx, id)
	if err != nil {
		return ThreeWayMatchResult{}, apperror.Wrap(apperror.KindInternal, err, "failed to fetch grns")
	}
	bills, err := s.billRepo.ListByPO(ctx, id)
	if err != nil {
		return ThreeWayMatchResult{}, apperror.Wrap(apperror.KindInternal, err, "failed to fetch bills")
	}

	var scopedGRNID, scopedBillID *uuid.UUID
	if filter.GRNID != "" {
		grnID, parseErr := uuid.Parse(filter.GRNID)
		if parseErr != nil {
			return ThreeWayMatchResult{}, apperror.Validation("invalid grn_id")
		}
		scoped := make([]model.GoodsReceipt, 0, 1)
		for _, grn := range grns {
			if grn.ID == grnID {
				scoped = append(scoped, grn)
			}
		}
		if len(scoped) == 0 {
			return ThreeWayMatchResult{}, apperror.NotFound("grn not found for this purchase order")
		}
		grns = scoped
		scopedGRNID = &grnID
	}
	if filter.BillID != "" {
		billID, parseErr := uuid.Parse(filter.BillID)
		if parseErr != nil {
			return ThreeWayMatchResult{}, apperror.Validation("invalid bill_id")
		}
		scoped := make([]model.Bill, 0, 1)
		for _, bill := range bills {
			if bill.ID == billID {
				scoped = append(scoped, bill)
			}
		}
		if len(scoped) == 0 {
			return ThreeWayMatchResult{}, apperror.NotFound("bill not found for this purchase order")
		}
		bills = scoped
		scopedBillID = &billID
	}

	result := ComputeThreeWayMatch(po, grns, bills, tolerancePct)
	result.GRNID = scopedGRNID
	result.BillID = scopedBillID
	return result, nil
}

// ComputeThreeWayMatch is the pure matching engine. Accepted quantities come
// from completed and billed receipts only; cancelled bills are ignored. A line
// matches when both its quantity and price variance stay within the tolerance,
// and the order matches when every line does. The headline variance is the
// maximum absolute variance across all lines and both dimensions.
func ComputeThreeWayMatch(po *model.PurchaseOrder, grns []model.GoodsReceipt, bills []model.Bill, tolerancePct decimal.Decimal) ThreeWayMatchResult {
	accepted := make(map[uuid.UUID]decimal.Decimal)
	for _, grn := range grns {
		if grn.Status != model.GRNStatusCompleted && grn.Status != model.GRNStatusBilled {
			continue
		}
		for _, line := range grn.Items {
			accepted[line.POItemID] = accepted[line.POItemID].Add(line.AcceptedQuantity())
		}
	}

	billedQty := make(map[uuid.UUID]decimal.Decimal)
	billedValue := make(map[uuid.UUID]decimal.Decimal)
	for _, bill := range bills {
		if bill.Status == model.BillStatusCancelled {
			continue
		}
		for _, line := range bill.Items {
			billedQty[line.POItemID] = billedQty[line.POItemID].Add(line.Quantity)
			billedValue[line.POItemID] = billedValue[line.POItemID].Add(line.Quantity.Mul(line.UnitPrice))
		}
	}

	result := ThreeWayMatchResult{
		POID:         po.ID,
		PONumber:     po.PONumber,
		TolerancePct: tolerancePct,
		Matched:      true,
	}

	hundred := decimal.NewFromInt(100)
	for _, item := range po.Items {
		line := ThreeWayMatchLine{
			POItemID:         item.ID,
			ItemDescription:  item.ItemDescription,
			OrderedQuantity:  item.Quantity,
			AcceptedQuantity: accepted[item.ID],
			BilledQuantity:   billedQty[item.ID],
			POUnitPrice:      item.UnitPrice,
		}
		if line.BilledQuantity.IsPositive() {
			line.BilledUnitPrice = billedValue[item.ID].Div(line.BilledQuantity).Round(2)
		}

		// billed vs accepted quantity, relative to accepted
		if line.AcceptedQuantity.IsPositive() {
			line.QuantityVariance = line.BilledQuantity.Sub(line.AcceptedQuantity).
				Div(line.AcceptedQuantity).Mul(hundred).Round(2)
		} else if line.BilledQuantity.IsPositive() {
			// billed without any accepted receipt: unbounded variance
			line.QuantityVariance = hundred
		}

		// billed vs ordered price, relative to ordered
		if line.BilledQuantity.IsPositive() && item.UnitPrice.IsPositive() {
			line.PriceVariance = line.BilledUnitPrice.Sub(item.UnitPrice).
				Div(item.UnitPrice).Mul(hundred).Round(2)
		}

		line.Matched = line.QuantityVariance.Abs().LessThanOrEqual(tolerancePct) &&
			line.PriceVariance.Abs().LessThanOrEqual(tolerancePct)
		if !line.Matched {
			result.Matched = false
		}
		for _, v := range []decimal.Decimal{line.QuantityVariance.Abs(), line.PriceVariance.Abs()} {
			if v.GreaterThan(result.MaxAbsVariancePct) {
				result.MaxAbsVariancePct = v
			}
		}
		result.Lines = append(result.Lines, line)
	}

	return result
}

// --- Response mappers ---

func toBillResponse(bill model.Bill) BillResponse {
	items := make([]BillLineResponse, 0, len(bill.Items))
	for _, item := range bill.Items {
		items = append(items, BillLineResponse{
			ID:              item.ID,
			POItemID:        item.POItemID,
			ItemDescription: item.ItemDescription,
			HSNCode:         item.HSNCode,
			Quantity:        item.Quantity,
			UnitPrice:       item.UnitPrice,
			TaxableAmount:   item.TaxableAmount,
			CGSTAmount:      item.CGSTAmount,
			SGSTAmount:      item.SGSTAmount,
			IGSTAmount:      item.IGSTAmount,
			TotalPrice:      item.TotalPrice,
		})
	}

	res := BillResponse{
		ID:            bill.ID,
		BillNumber:    bill.BillNumber,
		POID:          bill.POID,
		GRNID:         bill.GRNID,
		VendorID:      bill.VendorID,
		BillDate:      bill.BillDate,
		DueDate:       bill.DueDate,
		TaxableAmount: bill.TaxableAmount,
		TotalCGST:     bill.TotalCGST,
		TotalSGST:     bill.TotalSGST,
		TotalIGST:     bill.TotalIGST,
		TotalAmount:   bill.TotalAmount,
		Status:        bill.Status,
		Notes:         bill.Notes,
		Items:         items,
		CreatedAt:     bill.CreatedAt,
	}
	if bill.Vendor != nil {
		res.VendorName = bill.Vendor.BusinessName
	}
	return res
}
