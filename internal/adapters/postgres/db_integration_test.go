//go:build integration

package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("Skipping integration test: DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Connect(ctx, url)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
	}
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func uniq(prefix string) string { return prefix + "-" + uuid.NewString()[:8] }

func newBank(t *testing.T, db *DB) domain.BloodBank {
	t.Helper()
	now := time.Now().UTC()
	bank := domain.BloodBank{
		Name:               "Central",
		RegistrationNumber: uniq("BB"),
		Address:            domain.Address{City: "Pune", State: "Maharashtra"},
		Inventory:          domain.NewInventory(now),
		OperatingHours:     domain.OperatingHours{Open: "09:00", Close: "17:00"},
		CreatedAt:          now,
	}
	require.NoError(t, db.CreateBloodBank(context.Background(), &bank))
	return bank
}

func TestBloodBankInventoryRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	bank := newBank(t, db)

	got, err := db.GetBloodBank(ctx, bank.ID)
	require.NoError(t, err)
	assert.Len(t, got.Inventory, 8)
	assert.Equal(t, domain.APositive, got.Inventory[0].BloodGroup)

	entry, err := got.Inventory.Add(domain.ONegative, 4, time.Now())
	require.NoError(t, err)
	require.NoError(t, db.SaveInventory(ctx, bank.ID, entry))

	got, err = db.GetBloodBank(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Inventory.Quantity(domain.ONegative))

	banks, err := db.ListBloodBanksWithStock(ctx, domain.ONegative)
	require.NoError(t, err)
	var ids []string
	for _, b := range banks {
		ids = append(ids, b.ID)
	}
	assert.Contains(t, ids, bank.ID)

	dup := domain.BloodBank{Name: "Copy", RegistrationNumber: bank.RegistrationNumber, Inventory: domain.NewInventory(time.Now())}
	err = db.CreateBloodBank(ctx, &dup)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestGetMissingAndMalformedIDs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	_, err := db.GetBloodBank(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = db.GetRequest(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInTxRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	bank := newBank(t, db)

	boom := errors.New("boom")
	err := db.InTx(ctx, func(tx ports.Store) error {
		locked, err := tx.LockBloodBank(ctx, bank.ID)
		if err != nil {
			return err
		}
		entry, err := locked.Inventory.Set(domain.BPositive, 9, time.Now())
		if err != nil {
			return err
		}
		if err := tx.SaveInventory(ctx, bank.ID, entry); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := db.GetBloodBank(ctx, bank.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Inventory.Quantity(domain.BPositive))
}

func TestDonorUpsertKeysAndRecommendation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	city := uniq("City")
	// an empty state would match every donor
	nowhere := uniq("State")
	long := time.Now().AddDate(-1, 0, 0).UTC()

	mk := func(name string, count int, last *time.Time) domain.Donor {
		d := domain.Donor{
			FullName:         name,
			Phone:            uniq("9"),
			BloodGroup:       domain.ABNegative,
			Address:          domain.Address{City: city, State: "Maharashtra"},
			Available:        true,
			DonationCount:    count,
			LastDonationDate: last,
			CreatedAt:        time.Now().UTC(),
		}
		require.NoError(t, db.CreateDonor(ctx, &d))
		return d
	}
	top := mk("top", 5, &long)
	never := mk("never", 0, nil)
	old := mk("old", 0, &long)

	dup := domain.Donor{FullName: "dup", Phone: top.Phone, BloodGroup: domain.ABNegative}
	assert.ErrorIs(t, db.CreateDonor(ctx, &dup), domain.ErrConflict)

	found, err := db.GetDonorByPhone(ctx, never.Phone)
	require.NoError(t, err)
	assert.Equal(t, never.ID, found.ID)

	got, err := db.FindRecommended(ctx, ports.DonorQuery{BloodGroup: domain.ABNegative, City: city[:6] + "%_", State: nowhere, Limit: 3})
	require.NoError(t, err)
	assert.Empty(t, got, "wildcards in the city must match literally")

	got, err = db.FindRecommended(ctx, ports.DonorQuery{BloodGroup: domain.ABNegative, City: city, State: nowhere, Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{top.ID, never.ID, old.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	require.NoError(t, db.RecordDonation(ctx, never.ID, time.Now()))
	found, err = db.GetDonor(ctx, never.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.DonationCount)
	assert.NotNil(t, found.LastDonationDate)
}

func TestRequestsAndJobQueue(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	h := domain.Hospital{Name: "General", RegistrationNumber: uniq("H"), Email: uniq("h") + "@x.io", Active: true}
	require.NoError(t, db.CreateHospital(ctx, &h))

	req := domain.BloodRequest{
		RequestedBy:   h.ID,
		PatientName:   "Ravi",
		BloodGroup:    domain.OPositive,
		UnitsRequired: 2,
		Urgency:       domain.UrgencyHigh,
		RequiredBy:    time.Now().Add(48 * time.Hour).UTC(),
		Status:        domain.RequestPending,
		CreatedAt:     time.Now().UTC(),
	}
	require.NoError(t, db.CreateRequest(ctx, &req))
	_, err := db.EnqueueRecommendation(ctx, req.ID)
	require.NoError(t, err)

	jobID, err := db.StartJobForRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NoError(t, db.SetRecommendation(ctx, req.ID, "ok", []string{}))
	require.NoError(t, db.MarkCompleted(ctx, jobID))

	got, err := db.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.MLPrediction)

	list, err := db.ListRequests(ctx, ports.RequestFilter{RequestedBy: h.ID, Statuses: []domain.RequestStatus{domain.RequestPending}})
	require.NoError(t, err)
	require.Len(t, list, 1)

	// req was read before the recommendation was stored.
	req.Status = domain.RequestApproved
	require.NoError(t, db.UpdateRequest(ctx, req))
	got, err = db.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, got.Status)
	assert.Equal(t, "ok", got.MLPrediction)

	require.NoError(t, db.DeleteRequest(ctx, req.ID))
	_, err = db.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
