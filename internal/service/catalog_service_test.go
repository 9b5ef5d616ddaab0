package service

import (
	"context"
	"errors"
	"testing"

	"salonbook/internal/domain"
	"salonbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogService_Lookups(t *testing.T) {
	c := setupCatalog(t, setupDB(t), models.EligibilityPermissive)
	ctx := context.Background()

	services, err := c.ListServices(ctx)
	require.NoError(t, err)
	assert.Len(t, services, 4)

	svc, err := c.GetService(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Gel Overlay", svc.Name)
	assert.Equal(t, 90, svc.Minutes())

	_, err = c.GetService(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	st, err := c.GetStaff(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Emma", st.Name)

	_, err = c.GetStaff(ctx, 42)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.Equal(t, []string{"CUTS", "GEL NAILS", "LASHES"}, c.Categories(ctx))
	cuts := c.ServicesByCategory(ctx, "CUTS")
	require.Len(t, cuts, 2)
	assert.Empty(t, c.ServicesByCategory(ctx, "WAXING"))
}

func TestCatalogService_EligibilityPolicy(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	tests := []struct {
		policy    string
		staffID   int64
		serviceID int64
		want      bool
	}{
		{models.EligibilityPermissive, 1, 1, true},
		{models.EligibilityPermissive, 1, 3, false}, // Sarah has rows, lashes is not one of them
		{models.EligibilityPermissive, 2, 3, true},  // Emma has no rows
		{models.EligibilityStrict, 1, 2, true},
		{models.EligibilityStrict, 2, 3, false},
	}

	for _, tt := range tests {
		c := setupCatalog(t, db, tt.policy)
		got, err := c.IsEligible(ctx, tt.staffID, tt.serviceID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s staff=%d service=%d", tt.policy, tt.staffID, tt.serviceID)
	}
}

func TestCatalogService_ListStaffForService(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	lashes := int64(3)

	permissive := setupCatalog(t, db, models.EligibilityPermissive)
	staff, err := permissive.ListStaff(ctx, &lashes)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, "Emma", staff[0].Name)

	strict := setupCatalog(t, db, models.EligibilityStrict)
	staff, err = strict.ListStaff(ctx, &lashes)
	require.NoError(t, err)
	assert.Empty(t, staff)

	all, err := strict.ListStaff(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	unknown := int64(99)
	_, err = strict.ListStaff(ctx, &unknown)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

type failingRepo struct{}

func (failingRepo) ListServices(context.Context) ([]models.Service, error) {
	return nil, errors.New("disk I/O error")
}
func (failingRepo) ListStaff(context.Context) ([]models.Staff, error) { return nil, nil }
func (failingRepo) ListStaffServices(context.Context) ([]models.StaffService, error) {
	return nil, nil
}

func TestCatalogService_RefreshError(t *testing.T) {
	c := NewCatalogService(failingRepo{}, "", nil)
	assert.Error(t, c.Refresh(context.Background()))

	services, err := c.ListServices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, services)
}
