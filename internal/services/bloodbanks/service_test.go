package bloodbanks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bloodlink/internal/adapters/memory"
	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

var admin = domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}

func setup(t *testing.T) (*Service, *memory.Store, domain.BloodBank) {
	t.Helper()
	store := memory.New()
	svc := New(store, zap.NewNop())
	bank, err := svc.Create(context.Background(), admin, ports.NewBloodBank{
		Name: "Central", RegistrationNumber: "BB-1",
		Inventory: []domain.InventoryUpdate{{BloodGroup: domain.OPositive, Quantity: 5}},
	})
	require.NoError(t, err)
	return svc, store, bank
}

func TestCreate(t *testing.T) {
	svc, _, bank := setup(t)
	assert.Len(t, bank.Inventory, 8)
	assert.Equal(t, 5, bank.Inventory.Quantity(domain.OPositive))

	_, err := svc.Create(context.Background(), admin, ports.NewBloodBank{Name: "Dup", RegistrationNumber: "BB-1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = svc.Create(context.Background(), domain.Principal{ID: "h", Role: domain.RoleHospital}, ports.NewBloodBank{Name: "X", RegistrationNumber: "BB-2"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Create(context.Background(), admin, ports.NewBloodBank{Name: "X", RegistrationNumber: "BB-3",
		Inventory: []domain.InventoryUpdate{{BloodGroup: "C+", Quantity: 1}}})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestFilterByGroup(t *testing.T) {
	svc, _, bank := setup(t)
	ctx := context.Background()
	_, err := svc.Create(ctx, admin, ports.NewBloodBank{Name: "Empty", RegistrationNumber: "BB-2"})
	require.NoError(t, err)

	banks, err := svc.FilterByGroup(ctx, "O ")
	require.NoError(t, err)
	require.Len(t, banks, 1)
	assert.Equal(t, bank.ID, banks[0].ID)

	banks, err = svc.FilterByGroup(ctx, "AB-")
	require.NoError(t, err)
	assert.Empty(t, banks)

	_, err = svc.FilterByGroup(ctx, "Z")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateInventoryOperations(t *testing.T) {
	svc, _, bank := setup(t)
	ctx := context.Background()
	self := domain.Principal{ID: bank.ID, Role: domain.RoleBloodBank}

	inv, err := svc.UpdateInventory(ctx, self, bank.ID, ports.InventoryChange{Operation: "add", BloodGroup: "O+", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, 8, inv.Quantity(domain.OPositive))

	inv, err = svc.UpdateInventory(ctx, self, bank.ID, ports.InventoryChange{Operation: "remove", BloodGroup: "O+", Quantity: 20})
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Quantity(domain.OPositive), "remove clamps at zero")

	inv, err = svc.UpdateInventory(ctx, admin, bank.ID, ports.InventoryChange{Operation: "set", BloodGroup: "A-", Quantity: -4})
	require.NoError(t, err)
	assert.Equal(t, 0, inv.Quantity(domain.ANegative))

	_, err = svc.UpdateInventory(ctx, self, bank.ID, ports.InventoryChange{Operation: "swap", BloodGroup: "A-", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpdateInventory(ctx, self, bank.ID, ports.InventoryChange{Operation: "add", BloodGroup: "A-", Quantity: -1})
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, err := svc.Get(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Inventory.Quantity(domain.OPositive))
}

func TestRemoveRequiresExistingEntry(t *testing.T) {
	store := memory.New()
	svc := New(store, zap.NewNop())
	ctx := context.Background()
	bank := domain.BloodBank{Name: "Sparse", RegistrationNumber: "S-1", CreatedAt: time.Now()}
	require.NoError(t, store.CreateBloodBank(ctx, &bank))

	_, err := svc.UpdateInventory(ctx, admin, bank.ID, ports.InventoryChange{Operation: "remove", BloodGroup: "B+", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	inv, err := svc.UpdateInventory(ctx, admin, bank.ID, ports.InventoryChange{Operation: "add", BloodGroup: "B+", Quantity: 2})
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 2, inv[0].Quantity)
}

func TestInventoryAccessControl(t *testing.T) {
	svc, _, bank := setup(t)
	ctx := context.Background()
	other := domain.Principal{ID: "other-bank", Role: domain.RoleBloodBank}
	hospital := domain.Principal{ID: bank.ID, Role: domain.RoleHospital}

	_, err := svc.Inventory(ctx, other, bank.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Inventory(ctx, hospital, bank.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.UpdateInventory(ctx, other, bank.ID, ports.InventoryChange{Operation: "add", BloodGroup: "O+", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	inv, err := svc.Inventory(ctx, admin, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, inv.Quantity(domain.OPositive))
}

func TestBulkUpdateIsAllOrNothing(t *testing.T) {
	svc, _, bank := setup(t)
	ctx := context.Background()

	_, err := svc.BulkUpdateInventory(ctx, admin, bank.ID, []domain.InventoryUpdate{
		{BloodGroup: "A+", Quantity: 10},
		{BloodGroup: "X+", Quantity: 3},
	})
	require.ErrorIs(t, err, domain.ErrValidation)
	stored, _ := svc.Get(ctx, bank.ID)
	assert.Equal(t, 0, stored.Inventory.Quantity(domain.APositive))

	inv, err := svc.BulkUpdateInventory(ctx, admin, bank.ID, []domain.InventoryUpdate{
		{BloodGroup: "A+", Quantity: 10},
		{BloodGroup: "O+", Quantity: -2},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, inv.Quantity(domain.APositive))
	assert.Equal(t, 0, inv.Quantity(domain.OPositive))

	_, err = svc.BulkUpdateInventory(ctx, admin, bank.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestUpdateProfile(t *testing.T) {
	svc, _, bank := setup(t)
	ctx := context.Background()
	self := domain.Principal{ID: bank.ID, Role: domain.RoleBloodBank}
	name := "Central Blood Bank"
	verified := true

	updated, err := svc.UpdateProfile(ctx, self, bank.ID, ports.BloodBankPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, 5, updated.Inventory.Quantity(domain.OPositive), "inventory untouched")

	_, err = svc.UpdateProfile(ctx, self, bank.ID, ports.BloodBankPatch{Verified: &verified})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err = svc.UpdateProfile(ctx, admin, bank.ID, ports.BloodBankPatch{Verified: &verified})
	require.NoError(t, err)
	assert.True(t, updated.Verified)

	_, err = svc.UpdateProfile(ctx, admin, "missing", ports.BloodBankPatch{Name: &name})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
