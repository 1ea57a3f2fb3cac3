package service

import (
	"context"
	"net/mail"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/pkg/apperror"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateVendorRequest struct {
	VendorCode    string `json:"vendor_code"`
	BusinessName  string `json:"business_name" binding:"required"`
	GSTIN         string `json:"gstin"`
	ContactPerson string `json:"contact_person"`
	Phone         string `json:"phone"`
	Email         string `json:"email"`
	Address       string `json:"address"`
	BankAccount   string `json:"bank_account"`
}

type UpdateVendorRequest struct {
	VendorCode    *string `json:"vendor_code"`
	BusinessName  *string `json:"business_name"`
	GSTIN         *string `json:"gstin"`
	ContactPerson *string `json:"contact_person"`
	Phone         *string `json:"phone"`
	Email         *string `json:"email"`
	Address       *string `json:"address"`
	BankAccount   *string `json:"bank_account"`
	IsActive      *bool   `json:"is_active"`
}

type VendorResponse struct {
	ID            uuid.UUID `json:"id"`
	VendorCode    string    `json:"vendor_code"`
	BusinessName  string    `json:"business_name"`
	GSTIN         string    `json:"gstin"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	BankAccount   string    `json:"bank_account"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// --- Interface ---

type VendorService interface {
	Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreateVendorRequest) (VendorResponse, error)
	Update(ctx context.Context, orgID uuid.UUID, actorID, id string, req UpdateVendorRequest) (VendorResponse, error)
	Delete(ctx context.Context, orgID uuid.UUID, actorID, id string) error
	Get(ctx context.Context, orgID uuid.UUID, id string) (VendorResponse, error)
	List(ctx context.Context, orgID uuid.UUID, search string, page, limit int) ([]VendorResponse, int64, error)
}

type vendorService struct {
	vendorRepo repository.VendorRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewVendorService(vendorRepo repository.VendorRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager) VendorService {
	return &vendorService{vendorRepo: vendorRepo, auditRepo: auditRepo, txManager: txManager}
}

// --- Implementation ---

func (s *vendorService) Create(ctx context.Context, orgID uuid.UUID, actorID string, req CreateVendorRequest) (VendorResponse, error) {
	if req.BusinessName == "" {
		return VendorResponse{}, apperror.Validation("business_name is required")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return VendorResponse{}, apperror.Validation("invalid email format")
		}
	}

	vendor := &model.Vendor{
		OrganizationID: orgID,
		VendorCode:     req.VendorCode,
		BusinessName:   req.BusinessName,
		GSTIN:          req.GSTIN,
		ContactPerson:  req.ContactPerson,
		Phone:          req.Phone,
		Email:          req.Email,
		Address:        req.Address,
		BankAccount:    req.BankAccount,
		IsActive:       true,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.VendorCode != "" {
			exists, existsErr := s.vendorRepo.ExistsByCode(txCtx, orgID, req.VendorCode)
			if existsErr != nil {
				return apperror.Wrap(apperror.KindInternal, existsErr, "failed to check vendor code")
			}
			if exists {
				return apperror.Conflict("vendor code %s already exists", req.VendorCode)
			}
		}
		if createErr := s.vendorRepo.Create(txCtx, vendor); createErr != nil {
			return apperror.Wrap(apperror.KindInternal, createErr, "failed to create vendor")
		}
		return s.audit(txCtx, actorID, model.ActionCreateVendor, vendor.ID.String(), vendor.BusinessName)
	})
	if err != nil {
		return VendorResponse{}, err
	}
	return toVendorResponse(*vendor), nil
}

func (s *vendorService) Update(ctx context.Context, orgID uuid.UUID, actorID, id string, req UpdateVendorRequest) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, apperror.Validation("invalid vendor id")
	}

	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil || vendor.OrganizationID != orgID {
		return VendorResponse{}, apperror.NotFound("vendor not found")
	}

	if req.BusinessName != nil {
		if *req.BusinessName == "" {
			return VendorResponse{}, apperror.Validation("business_name cannot be empty")
		}
		vendor.BusinessName = *req.BusinessName
	}
	if req.Email != nil && *req.Email != "" {
		if _, mailErr := mail.ParseAddress(*req.Email); mailErr != nil {
			return VendorResponse{}, apperror.Validation("invalid email format")
		}
		vendor.Email = *req.Email
	} else if req.Email != nil {
		vendor.Email = ""
	}
	if req.VendorCode != nil {
		vendor.VendorCode = *req.VendorCode
	}
	if req.GSTIN != nil {
		vendor.GSTIN = *req.GSTIN
	}
	if req.ContactPerson != nil {
		vendor.ContactPerson = *req.ContactPerson
	}
	if req.Phone != nil {
		vendor.Phone = *req.Phone
	}
	if req.Address != nil {
		vendor.Address = *req.Address
	}
	if req.BankAccount != nil {
		vendor.BankAccount = *req.BankAccount
	}
	if req.IsActive != nil {
		vendor.IsActive = *req.IsActive
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.vendorRepo.Update(txCtx, vendor); updateErr != nil {
			return apperror.Wrap(apperror.KindInternal, updateErr, "failed to update vendor")
		}
		return s.audit(txCtx, actorID, model.ActionUpdateVendor, vendor.ID.String(), vendor.BusinessName)
	})
	if err != nil {
		return VendorResponse{}, err
	}
	return toVendorResponse(*vendor), nil
}

func (s *vendorService) Delete(ctx context.Context, orgID uuid.UUID, actorID, id string) error {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid vendor id")
	}
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil || vendor.OrganizationID != orgID {
		return apperror.NotFound("vendor not found")
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if deleteErr := s.vendorRepo.Delete(txCtx, vendorID); deleteErr != nil {
			return apperror.Wrap(apperror.KindInternal, deleteErr, "failed to delete vendor")
		}
		return s.audit(txCtx, actorID, model.ActionDeleteVendor, vendor.ID.String(), vendor.BusinessName)
	})
}

func (s *vendorService) Get(ctx context.Context, orgID uuid.UUID, id string) (VendorResponse, error) {
	vendorID, err := uuid.Parse(id)
	if err != nil {
		return VendorResponse{}, apperror.Validation("invalid vendor id")
	}
	vendor, err := s.vendorRepo.FindByID(ctx, vendorID)
	if err != nil || vendor.OrganizationID != orgID {
		return VendorResponse{}, apperror.NotFound("vendor not found")
	}
	return toVendorResponse(*vendor), nil
}

func (s *vendorService) List(ctx context.Context, orgID uuid.UUID, search string, page, limit int) ([]VendorResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	vendors, total, err := s.vendorRepo.List(ctx, orgID, search, page, limit)
	if err != nil {
		return nil, 0, apperror.Wrap(apperror.KindInternal, err, "failed to fetch vendors")
	}
	res := make([]VendorResponse, 0, len(vendors))
	for _, vendor := range vendors {
		res = append(res, toVendorResponse(vendor))
	}
	return res, total, nil
}

func (s *vendorService) audit(ctx context.Context, actorID, action, entityID, entityName string) error {
	entry := &model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    "{}",
	}
	if userID, err := uuid.Parse(actorID); err == nil {
		entry.UserID = &userID
	}
	return s.auditRepo.Log(ctx, entry)
}

// --- Response mappers ---

func toVendorResponse(v model.Vendor) VendorResponse {
	return VendorResponse{
		ID:            v.ID,
		VendorCode:    v.VendorCode,
		BusinessName:  v.BusinessName,
		GSTIN:         v.GSTIN,
		ContactPerson: v.ContactPerson,
		Phone:         v.Phone,
		Email:         v.Email,
		Address:       v.Address,
		BankAccount:   v.BankAccount,
		IsActive:      v.IsActive,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}
}
