package service

import (
	"context"
	"testing"

	"backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type vendorFixture struct {
	orgID      uuid.UUID
	vendorRepo *memoryVendorRepo
	auditRepo  *memoryAuditRepo
	svc        VendorService
}

func newVendorFixture(t *testing.T) *vendorFixture {
	t.Helper()
	f := &vendorFixture{
		orgID:      uuid.New(),
		vendorRepo: newMemoryVendorRepo(),
		auditRepo:  &memoryAuditRepo{},
	}
	f.svc = NewVendorService(f.vendorRepo, f.auditRepo, fakeTxManager{})
	return f
}

func TestCreateVendor(t *testing.T) {
	f := newVendorFixture(t)

	res, err := f.svc.Create(context.Background(), f.orgID, "admin-1", CreateVendorRequest{
		VendorCode:   "V-001",
		BusinessName: "Sharma Steel Traders",
		Email:        "accounts@sharmasteel.example",
	})
	require.NoError(t, err)
	require.True(t, res.IsActive)
	require.Equal(t, "Sharma Steel Traders", res.BusinessName)
	require.Len(t, f.auditRepo.entries, 1)

	// same code in the same organization collides
	_, err = f.svc.Create(context.Background(), f.orgID, "admin-1", CreateVendorRequest{
		VendorCode:   "V-001",
		BusinessName: "Other Traders",
	})
	require.True(t, apperror.Is(err, apperror.KindConflict))

	// another organization can reuse the code
	_, err = f.svc.Create(context.Background(), uuid.New(), "admin-2", CreateVendorRequest{
		VendorCode:   "V-001",
		BusinessName: "Other Traders",
	})
	require.NoError(t, err)
}

func TestCreateVendorRejectsBadEmail(t *testing.T) {
	f := newVendorFixture(t)

	_, err := f.svc.Create(context.Background(), f.orgID, "admin-1", CreateVendorRequest{
		BusinessName: "No Mail Traders",
		Email:        "not-an-address",
	})
	require.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestUpdateVendorPartialFields(t *testing.T) {
	f := newVendorFixture(t)

	res, err := f.svc.Create(context.Background(), f.orgID, "admin-1", CreateVendorRequest{
		BusinessName: "Sharma Steel Traders",
		Phone:        "9876543210",
	})
	require.NoError(t, err)

	name := "Sharma Steel & Alloys"
	inactive := false
	updated, err := f.svc.Update(context.Background(), f.orgID, "admin-1", res.ID.String(), UpdateVendorRequest{
		BusinessName: &name,
		IsActive:     &inactive,
	})
	require.NoError(t, err)
	require.Equal(t, "Sharma Steel & Alloys", updated.BusinessName)
	require.False(t, updated.IsActive)
	require.Equal(t, "9876543210", updated.Phone, "untouched fields survive")

	empty := ""
	_, err = f.svc.Update(context.Background(), f.orgID, "admin-1", res.ID.String(), UpdateVendorRequest{
		BusinessName: &empty,
	})
	require.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestVendorCrossOrgIsNotFound(t *testing.T) {
	f := newVendorFixture(t)

	res, err := f.svc.Create(context.Background(), f.orgID, "admin-1", CreateVendorRequest{
		BusinessName: "Sharma Steel Traders",
	})
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), uuid.New(), res.ID.String())
	require.True(t, apperror.Is(err, apperror.KindNotFound))

	err = f.svc.Delete(context.Background(), uuid.New(), "admin-1", res.ID.String())
	require.True(t, apperror.Is(err, apperror.KindNotFound))
}

func TestDeleteVendor(t *testing.T) {
	f := newVendorFixture(t)

	res, err := f.svc.Create(context.Background(), f.orgID, "admin-1", CreateVendorRequest{
		BusinessName: "Sharma Steel Traders",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), f.orgID, "admin-1", res.ID.String()))

	_, err = f.svc.Get(context.Background(), f.orgID, res.ID.String())
	require.True(t, apperror.Is(err, apperror.KindNotFound))
}
