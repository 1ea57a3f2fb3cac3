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

type GRNLinePayload struct {
	POItemID         string          `json:"po_item_id" binding:"required"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity" binding:"required"`
	RejectedQuantity decimal.Decimal `json:"rejected_quantity"`
	RejectionReason  string          `json:"rejection_reason"`
	Remarks          string          `json:"remarks"`
}

type CreateGRNRequest struct {
	POID               string           `json:"po_id" binding:"required"`
	GRNNumber          string           `json:"grn_number"` // generated when empty
	GRNDate            time.Time        `json:"grn_date" binding:"required"`
	ReceivedBy         string           `json:"received_by"`
	WarehouseLocation  string           `json:"warehouse_location"`
	DeliveryNoteNumber string           `json:"delivery_note_number"`
	VehicleNumber      string           `json:"vehicle_number"`
	TransporterName    string           `json:"transporter_name"`
	Remarks            string           `json:"remarks"`
	Complete           bool             `json:"complete"` // complete immediately instead of saving a draft
	Items              []GRNLinePayload `json:"items" binding:"required"`
}

type UpdateGRNRequest struct {
	GRNDate            *time.Time        `json:"grn_date"`
	ReceivedBy         *string           `json:"received_by"`
	WarehouseLocation  *string           `json:"warehouse_location"`
	DeliveryNoteNumber *string           `json:"delivery_note_number"`
	VehicleNumber      *string           `json:"vehicle_number"`
	TransporterName    *string           `json:"transporter_name"`
	Remarks            *string           `json:"remarks"`
	Items              *[]GRNLinePayload `json:"items"`
}

type GRNLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	POItemID         uuid.UUID       `json:"po_item_id"`
	ItemDescription  string          `json:"item_description"`
	Unit             string          `json:"unit"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	RejectedQuantity decimal.Decimal `json:"rejected_quantity"`
	AcceptedQuantity decimal.Decimal `json:"accepted_quantity"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	Remarks          string          `json:"remarks,omitempty"`
}

type GRNResponse struct {
	ID                 uuid.UUID         `json:"id"`
	GRNNumber          string            `json:"grn_number"`
	POID               uuid.UUID         `json:"po_id"`
	VendorID           uuid.UUID         `json:"vendor_id"`
	VendorName         string            `json:"vendor_name"`
	GRNDate            time.Time         `json:"grn_date"`
	ReceivedBy         string            `json:"received_by"`
	WarehouseLocation  string            `json:"warehouse_location"`
	DeliveryNoteNumber string            `json:"delivery_note_number"`
	VehicleNumber      string            `json:"vehicle_number"`
	TransporterName    string            `json:"transporter_name"`
	Status             string            `json:"status"`
	Remarks            string            `json:"remarks"`
	Items              []GRNLineResponse `json:"items"`
	CreatedAt          time.Time         `json:"created_at"`
	CreatedBy          string            `json:"created_by"`
}

type AvailableItemResponse struct {
	POItemID         uuid.UUID       `json:"po_item_id"`
	ItemDescription  string          `json:"item_description"`
	Unit             string          `json:"unit"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	PendingQuantity  decimal.Decimal `json:"pending_quantity"`
}

type POGRNSummaryEntry struct {
	GRNID         uuid.UUID       `json:"grn_id"`
	GRNNumber     string          `json:"grn_number"`
	GRNDate       time.Time       `json:"grn_date"`
	Status        string          `json:"status"`
	TotalReceived decimal.Decimal `json:"total_received"`
	TotalRejected decimal.Decimal `json:"total_rejected"`
}

type POGRNSummary struct {
	POID              uuid.UUID           `json:"po_id"`
	PONumber          string              `json:"po_number"`
	TotalOrdered      decimal.Decimal     `json:"total_ordered"`
	TotalReceived     decimal.Decimal     `json:"total_received"`
	CompletionPercent decimal.Decimal     `json:"completion_percent"`
	GRNs              []POGRNSummaryEntry `json:"grns"`
}

// --- Interface ---

type GRNService interface {
	Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreateGRNRequest) (GRNResponse, error)
	UpdateDraft(ctx context.Context, orgID uuid.UUID, actorID, id string, req UpdateGRNRequest) (GRNResponse, error)
	Complete(ctx context.Context, orgID uuid.UUID, actorID, id string) (GRNResponse, error)
	Cancel(ctx context.Context, orgID uuid.UUID, actorID, id string) (GRNResponse, error)
	Get(ctx context.Context, orgID uuid.UUID, id string) (GRNResponse, error)
	List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]GRNResponse, int64, error)
	AvailableItems(ctx context.Context, orgID uuid.UUID, poID string) ([]AvailableItemResponse, error)
	Summary(ctx context.Context, orgID uuid.UUID, poID string) (POGRNSummary, error)
}

type grnService struct {
	grnRepo      repository.GRNRepository
	poRepo       repository.PurchaseOrderRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	tolerancePct decimal.Decimal
}

// NewGRNService builds the receiving service. tolerancePct allows receipts to
// exceed the ordered quantity by the given percentage; zero means strict.
func NewGRNService(
	grnRepo repository.GRNRepository,
	poRepo repository.PurchaseOrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	tolerancePct decimal.Decimal,
) GRNService {
	return &grnService{
		grnRepo:      grnRepo,
		poRepo:       poRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		tolerancePct: tolerancePct,
	}
}

// --- Helpers ---

func (s *grnService) buildLines(po *model.PurchaseOrder, payloads []GRNLinePayload) ([]model.GRNLineItem, error) {
	if len(payloads) == 0 {
		return nil, apperror.Validation("at least one receipt line is required")
	}

	poItems := make(map[uuid.UUID]*model.POLineItem, len(po.Items))
	for i := range po.Items {
		poItems[po.Items[i].ID] = &po.Items[i]
	}

	seen := make(map[uuid.UUID]bool, len(payloads))
	lines := make([]model.GRNLineItem, 0, len(payloads))
	for i, p := range payloads {
		itemID, err := uuid.Parse(p.POItemID)
		if err != nil {
			return nil, apperror.Validation("items[%d]: invalid po_item_id", i)
		}
		poItem, ok := poItems[itemID]
		if !ok {
			return nil, apperror.Validation("items[%d]: item does not belong to the purchase order", i)
		}
		if seen[itemID] {
			return nil, apperror.Validation("items[%d]: duplicate po_item_id", i)
		}
		seen[itemID] = true
		if !p.ReceivedQuantity.IsPositive() {
			return nil, apperror.Validation("items[%d]: received_quantity must be positive", i)
		}
		if p.RejectedQuantity.IsNegative() {
			return nil, apperror.Validation("items[%d]: rejected_quantity cannot be negative", i)
		}
		if p.RejectedQuantity.GreaterThan(p.ReceivedQuantity) {
			return nil, apperror.Validation("items[%d]: rejected_quantity cannot exceed received_quantity", i)
		}
		if p.RejectedQuantity.IsPositive() && p.RejectionReason == "" {
			return nil, apperror.Validation("items[%d]: rejection_reason is required when rejecting", i)
		}

		lines = append(lines, model.GRNLineItem{
			POItemID:         itemID,
			ItemDescription:  poItem.ItemDescription,
			Unit:             poItem.Unit,
			OrderedQuantity:  poItem.Quantity,
			ReceivedQuantity: p.ReceivedQuantity,
			RejectedQuantity: p.RejectedQuantity,
			RejectionReason:  p.RejectionReason,
			UnitPrice:        poItem.UnitPrice,
			Remarks:          p.Remarks,
		})
	}
	return lines, nil
}

// checkOverReceipt rejects the receipt when any line would push the purchase
// order item past its ordered quantity (plus tolerance). All-or-nothing: one
// failing line fails the whole receipt.
func (s *grnService) checkOverReceipt(po *model.PurchaseOrder, lines []model.GRNLineItem) error {
	factor := decimal.NewFromInt(1).Add(s.tolerancePct.Div(decimal.NewFromInt(100)))
	for i := range lines {
		var poItem *model.POLineItem
		for j := range po.Items {
			if po.Items[j].ID == lines[i].POItemID {
				poItem = &po.Items[j]
				break
			}
		}
		if poItem == nil {
			return apperror.Validation("receipt line references item not on the purchase order")
		}
		accepted := lines[i].AcceptedQuantity()
		newTotal := poItem.ReceivedQuantity.Add(accepted)
		limit := poItem.Quantity.Mul(factor)
		if newTotal.GreaterThan(limit) {
			return apperror.Validation(
				"item %s: receiving %s would exceed ordered quantity %s (already received %s)",
				poItem.ItemDescription, accepted.String(), poItem.Quantity.String(), poItem.ReceivedQuantity.String(),
			)
		}
	}
	return nil
}

// applyReceipt mutates the purchase order's quantities and receipt status from
// accepted line quantities. Caller persists.
func applyReceipt(po *model.PurchaseOrder, lines []model.GRNLineItem) {
	for i := range lines {
		for j := range po.Items {
			if po.Items[j].ID != lines[i].POItemID {
				continue
			}
			po.Items[j].ReceivedQuantity = po.Items[j].ReceivedQuantity.Add(lines[i].AcceptedQuantity())
			pending := po.Items[j].Quantity.Sub(po.Items[j].ReceivedQuantity)
			if pending.IsNegative() {
				pending = decimal.Zero
			}
			po.Items[j].PendingQuantity = pending
			break
		}
	}
	po.FulfillmentStatus = po.DeriveReceiptStatus()
}

func (s *grnService) audit(ctx context.Context, actorID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	}
	if userID, err := uuid.Parse(actorID); err == nil {
		entry.UserID = &userID
	}
	return s.auditRepo.Log(ctx, entry)
}

// --- Implementation ---

func (s *grnService) Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreateGRNRequest) (GRNResponse, error) {
	poID, err := uuid.Parse(req.POID)
	if err != nil {
		return GRNResponse{}, apperror.Validation("invalid po_id")
	}

	var result GRNResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if po.OrganizationID != orgID {
			return apperror.NotFound("purchase order not found")
		}
		if !po.CanReceive() {
			return apperror.InvalidState("purchase order in status %s cannot receive goods", po.Status())
		}

		lines, buildErr := s.buildLines(po, req.Items)
		if buildErr != nil {
			return buildErr
		}

		grn := &model.GoodsReceipt{
			OrganizationID:     orgID,
			POID:               po.ID,
			VendorID:           po.VendorID,
			GRNDate:            req.GRNDate,
			ReceivedBy:         req.ReceivedBy,
			WarehouseLocation:  req.WarehouseLocation,
			DeliveryNoteNumber: req.DeliveryNoteNumber,
			VehicleNumber:      req.VehicleNumber,
			TransporterName:    req.TransporterName,
			Status:             model.GRNStatusDraft,
			Remarks:            req.Remarks,
			Items:              lines,
			CreatedBy:          actorID,
			UpdatedBy:          actorID,
		}

		if req.GRNNumber != "" {
			exists, existsErr := s.grnRepo.ExistsByNumber(txCtx, orgID, req.GRNNumber)
			if existsErr != nil {
				return apperror.Wrap(apperror.KindInternal, existsErr, "failed to check grn number")
			}
			if exists {
				return apperror.Conflict("grn number %s already exists", req.GRNNumber)
			}
			grn.GRNNumber = req.GRNNumber
		} else {
			prefix := "GRN-" + time.Now().Format("20060102") + "-"
			number, genErr := s.grnRepo.NextNumber(txCtx, orgID, prefix)
			if genErr != nil {
				return apperror.Wrap(apperror.KindInternal, genErr, "failed to generate grn number")
			}
			grn.GRNNumber = number
		}

		if req.Complete {
			if checkErr := s.checkOverReceipt(po, lines); checkErr != nil {
				return checkErr
			}
			grn.Status = model.GRNStatusCompleted
		}

		if createErr := s.grnRepo.Create(txCtx, grn); createErr != nil {
			return apperror.Wrap(apperror.KindInternal, createErr, "failed to create grn")
		}

		if req.Complete {
			applyReceipt(po, grn.Items)
			if updateErr := s.poRepo.UpdateItemQuantities(txCtx, po.Items); updateErr != nil {
				return apperror.Wrap(apperror.KindInternal, updateErr, "failed to update po quantities")
			}
			po.UpdatedBy = actorID
			if saveErr := s.poRepo.Update(txCtx, po); saveErr != nil {
				return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update purchase order")
			}
		}

		action := model.ActionCreateGRN
		if req.Complete {
			action = model.ActionCompleteGRN
		}
		if auditErr := s.audit(txCtx, actorID, action, grn.ID.String(), grn.GRNNumber, map[string]interface{}{
			"po_id":      po.ID.String(),
			"grn_number": grn.GRNNumber,
			"status":     grn.Status,
		}); auditErr != nil {
			return auditErr
		}

		result = toGRNResponse(*grn)
		return nil
	})
	if err != nil {
		return GRNResponse{}, err
	}
	return result, nil
}

func (s *grnService) UpdateDraft(ctx context.Context, orgID uuid.UUID, actorID, id string, req UpdateGRNRequest) (GRNResponse, error) {
	grnID, err := uuid.Parse(id)
	if err != nil {
		return GRNResponse{}, apperror.Validation("invalid grn id")
	}

	var result GRNResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		grn, findErr := s.grnRepo.FindByIDForUpdate(txCtx, grnID)
		if findErr != nil {
			return apperror.NotFound("grn not found")
		}
		if grn.OrganizationID != orgID {
			return apperror.NotFound("grn not found")
		}
		if !grn.IsDraft() {
			return apperror.InvalidState("grn in status %s cannot be edited", grn.Status)
		}

		if req.GRNDate != nil {
			grn.GRNDate = *req.GRNDate
		}
		if req.ReceivedBy != nil {
			grn.ReceivedBy = *req.ReceivedBy
		}
		if req.WarehouseLocation != nil {
			grn.WarehouseLocation = *req.WarehouseLocation
		}
		if req.DeliveryNoteNumber != nil {
			grn.DeliveryNoteNumber = *req.DeliveryNoteNumber
		}
		if req.VehicleNumber != nil {
			grn.VehicleNumber = *req.VehicleNumber
		}
		if req.TransporterName != nil {
			grn.TransporterName = *req.TransporterName
		}
		if req.Remarks != nil {
			grn.Remarks = *req.Remarks
		}

		if req.Items != nil {
			po, poErr := s.poRepo.FindByIDWithItems(txCtx, grn.POID)
			if poErr != nil {
				return apperror.NotFound("purchase order not found")
			}
			lines, buildErr := s.buildLines(po, *req.Items)
			if buildErr != nil {
				return buildErr
			}
			if replaceErr := s.grnRepo.ReplaceItems(txCtx, grn.ID, lines); replaceErr != nil {
				return apperror.Wrap(apperror.KindInternal, replaceErr, "failed to replace grn lines")
			}
			grn.Items = lines
		}

		grn.UpdatedBy = actorID
		if saveErr := s.grnRepo.Update(txCtx, grn); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update grn")
		}

		if auditErr := s.audit(txCtx, actorID, model.ActionUpdateGRN, grn.ID.String(), grn.GRNNumber, nil); auditErr != nil {
			return auditErr
		}

		result = toGRNResponse(*grn)
		return nil
	})
	if err != nil {
		return GRNResponse{}, err
	}
	return result, nil
}

// Complete finalizes a draft receipt: the only path that mutates purchase
// order quantities. The PO is locked before validation so concurrent receipts
// against the same order serialize.
func (s *grnService) Complete(ctx context.Context, orgID uuid.UUID, actorID, id string) (GRNResponse, error) {
	grnID, err := uuid.Parse(id)
	if err != nil {
		return GRNResponse{}, apperror.Validation("invalid grn id")
	}

	var result GRNResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		grn, findErr := s.grnRepo.FindByIDForUpdate(txCtx, grnID)
		if findErr != nil {
			return apperror.NotFound("grn not found")
		}
		if grn.OrganizationID != orgID {
			return apperror.NotFound("grn not found")
		}
		if !grn.IsDraft() {
			return apperror.InvalidState("grn is already %s", grn.Status)
		}

		po, poErr := s.poRepo.FindByIDForUpdate(txCtx, grn.POID)
		if poErr != nil {
			return apperror.NotFound("purchase order not found")
		}
		if !po.CanReceive() {
			return apperror.InvalidState("purchase order in status %s cannot receive goods", po.Status())
		}
		if checkErr := s.checkOverReceipt(po, grn.Items); checkErr != nil {
			return checkErr
		}

		grn.Status = model.GRNStatusCompleted
		grn.UpdatedBy = actorID
		if saveErr := s.grnRepo.Update(txCtx, grn); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to complete grn")
		}

		applyReceipt(po, grn.Items)
		if updateErr := s.poRepo.UpdateItemQuantities(txCtx, po.Items); updateErr != nil {
			return apperror.Wrap(apperror.KindInternal, updateErr, "failed to update po quantities")
		}
		po.UpdatedBy = actorID
		if saveErr := s.poRepo.Update(txCtx, po); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to update purchase order")
		}

		if auditErr := s.audit(txCtx, actorID, model.ActionCompleteGRN, grn.ID.String(), grn.GRNNumber, map[string]interface{}{
			"po_id":             po.ID.String(),
			"fulfillment_after": po.FulfillmentStatus,
		}); auditErr != nil {
			return auditErr
		}

		result = toGRNResponse(*grn)
		return nil
	})
	if err != nil {
		return GRNResponse{}, err
	}
	return result, nil
}

// Cancel discards a draft receipt. Completed receipts have already moved
// quantities and cannot be cancelled.
func (s *grnService) Cancel(ctx context.Context, orgID uuid.UUID, actorID, id string) (GRNResponse, error) {
	grnID, err := uuid.Parse(id)
	if err != nil {
		return GRNResponse{}, apperror.Validation("invalid grn id")
	}

	var result GRNResponse
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		grn, findErr := s.grnRepo.FindByIDForUpdate(txCtx, grnID)
		if findErr != nil {
			return apperror.NotFound("grn not found")
		}
		if grn.OrganizationID != orgID {
			return apperror.NotFound("grn not found")
		}
		if !grn.IsDraft() {
			return apperror.InvalidState("grn in status %s cannot be cancelled", grn.Status)
		}

		grn.Status = model.GRNStatusCancelled
		grn.UpdatedBy = actorID
		if saveErr := s.grnRepo.Update(txCtx, grn); saveErr != nil {
			return apperror.Wrap(apperror.KindInternal, saveErr, "failed to cancel grn")
		}

		if auditErr := s.audit(txCtx, actorID, model.ActionCancelGRN, grn.ID.String(), grn.GRNNumber, nil); auditErr != nil {
			return auditErr
		}

		result = toGRNResponse(*grn)
		return nil
	})
	if err != nil {
		return GRNResponse{}, err
	}
	return result, nil
}

func (s *grnService) Get(ctx context.Context, orgID uuid.UUID, id string) (GRNResponse, error) {
	grnID, err := uuid.Parse(id)
	if err != nil {
		return GRNResponse{}, apperror.Validation("invalid grn id")
	}
	grn, err := s.grnRepo.FindByIDWithItems(ctx, grnID)
	if err != nil {
		return GRNResponse{}, apperror.NotFound("grn not found")
	}
	if grn.OrganizationID != orgID {
		return GRNResponse{}, apperror.NotFound("grn not found")
	}
	return toGRNResponse(*grn), nil
}

func (s *grnService) List(ctx context.Context, orgID uuid.UUID, status string, page, limit int) ([]GRNResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	grns, total, err := s.grnRepo.List(ctx, orgID, status, page, limit)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.KindInternal, err, "failed to fetch grns")
	}
	res := make([]GRNResponse, 0, len(grns))
	for _, grn := range grns {
		res = append(res, toGRNResponse(grn))
	}
	return res, total, nil
}

// AvailableItems lists purchase order lines that still have pending quantity.
func (s *grnService) AvailableItems(ctx context.Context, orgID uuid.UUID, poID string) ([]AvailableItemResponse, error) {
	id, err := uuid.Parse(poID)
	if err != nil {
		return nil, apperror.Validation("invalid po_id")
	}
	po, err := s.poRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("purchase order not found")
	}
	if po.OrganizationID != orgID {
		return nil, apperror.NotFound("purchase order not found")
	}
	if !po.CanReceive() {
		return nil, apperror.InvalidState("purchase order in status %s cannot receive goods", po.Status())
	}

	res := make([]AvailableItemResponse, 0, len(po.Items))
	for _, item := range po.Items {
		if !item.PendingQuantity.IsPositive() {
			continue
		}
		res = append(res, AvailableItemResponse{
			POItemID:         item.ID,
			ItemDescription:  item.ItemDescription,
			Unit:             item.Unit,
			OrderedQuantity:  item.Quantity,
			ReceivedQuantity: item.ReceivedQuantity,
			PendingQuantity:  item.PendingQuantity,
		})
	}
	return res, nil
}

func (s *grnService) Summary(ctx context.Context, orgID uuid.UUID, poID string) (POGRNSummary, error) {
	id, err := uuid.Parse(poID)
	if err != nil {
		return POGRNSummary{}, apperror.Validation("invalid po_id")
	}
	po, err := s.poRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		return POGRNSummary{}, apperror.NotFound("purchase order not found")
	}
	if po.OrganizationID != orgID {
		return POGRNSummary{}, apperror.NotFound("purchase order not found")
	}
	grns, err := s.grnRepo.ListByPO(ctx, id)
	if err != nil {
		return POGRNSummary{}, apperror.Wrap(apperror.KindInternal, err, "failed to fetch grns")
	}

	summary := POGRNSummary{
		POID:          po.ID,
		PONumber:      po.PONumber,
		TotalOrdered:  po.TotalOrdered(),
		TotalReceived: po.TotalReceived(),
	}
	if summary.TotalOrdered.IsPositive() {
		summary.CompletionPercent = summary.TotalReceived.
			Div(summary.TotalOrdered).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}
	for _, grn := range grns {
		summary.GRNs = append(summary.GRNs, POGRNSummaryEntry{
			GRNID:         grn.ID,
			GRNNumber:     grn.GRNNumber,
			GRNDate:       grn.GRNDate,
			Status:        grn.Status,
			TotalReceived: grn.TotalReceived(),
			TotalRejected: grn.TotalRejected(),
		})
	}
	return summary, nil
}

// --- Response mappers ---

func toGRNResponse(grn model.GoodsReceipt) GRNResponse {
	items := make([]GRNLineResponse, 0, len(grn.Items))
	for _, item := range grn.Items {
		items = append(items, GRNLineResponse{
			ID:               item.ID,
			POItemID:         item.POItemID,
			ItemDescription:  item.ItemDescription,
			Unit:             item.Unit,
			OrderedQuantity:  item.OrderedQuantity,
			ReceivedQuantity: item.ReceivedQuantity,
			RejectedQuantity: item.RejectedQuantity,
			AcceptedQuantity: item.AcceptedQuantity(),
			RejectionReason:  item.RejectionReason,
			Remarks:          item.Remarks,
		})
	}

	res := GRNResponse{
		ID:                 grn.ID,
		GRNNumber:          grn.GRNNumber,
		POID:               grn.POID,
		VendorID:           grn.VendorID,
		GRNDate:            grn.GRNDate,
		ReceivedBy:         grn.ReceivedBy,
		WarehouseLocation:  grn.WarehouseLocation,
		DeliveryNoteNumber: grn.DeliveryNoteNumber,
		VehicleNumber:      grn.VehicleNumber,
		TransporterName:    grn.TransporterName,
		Status:             grn.Status,
		Remarks:            grn.Remarks,
		Items:              items,
		CreatedAt:          grn.CreatedAt,
		CreatedBy:          grn.CreatedBy,
	}
	if grn.Vendor != nil {
		res.VendorName = grn.Vendor.BusinessName
	}
	return res
}
