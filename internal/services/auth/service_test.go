package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"

	"bloodlink/internal/adapters/memory"
	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
)

func init() { hashCost = bcrypt.MinCost }

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	return New(store, NewTokens("test-secret", 7*24*time.Hour), zap.NewNop()), store
}

func TestRegisterBloodBankCreatesLedger(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	ident, sess, err := svc.Register(ctx, ports.Registration{
		Email: "Bank@Example.com", Password: "secret1", Role: "bloodbank",
		Name: "City Bank", RegistrationNumber: "BB-100", Phone: "555",
	})
	require.NoError(t, err)
	assert.Equal(t, "bank@example.com", ident.Email)
	assert.NotEmpty(t, sess.Token)

	bank, err := store.GetBloodBank(ctx, ident.ID)
	require.NoError(t, err)
	require.Len(t, bank.Inventory, len(domain.BloodGroups))
	for i, e := range bank.Inventory {
		assert.Equal(t, domain.BloodGroups[i], e.BloodGroup)
		assert.Zero(t, e.Quantity)
	}
	assert.Equal(t, domain.OperatingHours{Open: "09:00", Close: "17:00"}, bank.OperatingHours)
	assert.Equal(t, "bank@example.com", bank.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	cases := []ports.Registration{
		{Email: "", Password: "secret1", Role: "donor"},
		{Email: "not-an-email", Password: "secret1", Role: "donor"},
		{Email: "a@b.io", Password: "123", Role: "donor"},
		{Email: "a@b.io", Password: "secret1", Role: "pilot"},
		{Email: "a@b.io", Password: "secret1", Role: "hospital", Name: "General"},
	}
	for _, reg := range cases {
		_, _, err := svc.Register(ctx, reg)
		assert.ErrorIs(t, err, domain.ErrValidation, "%+v", reg)
	}
	users, _ := store.ListIdentities(ctx)
	assert.Empty(t, users)
}

func TestRegisterDuplicateRollsBack(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, ports.Registration{Email: "h1@x.io", Password: "secret1", Role: "hospital", Name: "H1", RegistrationNumber: "R1"})
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, ports.Registration{Email: "h2@x.io", Password: "secret1", Role: "hospital", Name: "H2", RegistrationNumber: "R1"})
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = store.GetIdentityByEmail(ctx, "h2@x.io")
	assert.ErrorIs(t, err, domain.ErrNotFound, "identity must roll back with the profile")

	_, _, err = svc.Register(ctx, ports.Registration{Email: "H1@x.io", Password: "secret1", Role: "donor"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRegisterDonorLinksProfile(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	ident, _, err := svc.Register(ctx, ports.Registration{Email: "d@x.io", Password: "secret1", Role: "donor", Name: "Dee", Phone: "9000"})
	require.NoError(t, err)

	d, err := store.GetDonor(ctx, ident.ID)
	require.NoError(t, err)
	assert.Equal(t, "9000", d.Phone)
	assert.True(t, d.Available)

	p, err := svc.Profile(ctx, ident.Principal())
	require.NoError(t, err)
	assert.IsType(t, domain.Donor{}, p)
}

func TestAdminBootstrap(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, _, err := svc.Register(ctx, ports.Registration{Email: "root@x.io", Password: "secret1", Role: "admin"})
	require.NoError(t, err)
	_, _, err = svc.Register(ctx, ports.Registration{Email: "evil@x.io", Password: "secret1", Role: "admin"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLoginAndAuthenticate(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	ident, _, err := svc.Register(ctx, ports.Registration{Email: "h@x.io", Password: "secret1", Role: "hospital", Name: "H", RegistrationNumber: "R"})
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "h@x.io", "wrong-pass")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, _, err = svc.Login(ctx, "nobody@x.io", "secret1")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, sess, err := svc.Login(ctx, " H@X.io ", "secret1")
	require.NoError(t, err)

	p, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, p.ID)
	assert.Equal(t, domain.RoleHospital, p.Role)

	_, err = svc.Authenticate(ctx, sess.Token+"x")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestDeactivatedAccountRejectedWithValidToken(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	admin, _, err := svc.Register(ctx, ports.Registration{Email: "root@x.io", Password: "secret1", Role: "admin"})
	require.NoError(t, err)
	hosp, sess, err := svc.Register(ctx, ports.Registration{Email: "h@x.io", Password: "secret1", Role: "hospital", Name: "H", RegistrationNumber: "R"})
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, hosp.Principal(), hosp.ID, false)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.SetActive(ctx, admin.Principal(), hosp.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Active)

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, _, err = svc.Login(ctx, "h@x.io", "secret1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	h, err := store.GetHospital(ctx, hosp.ID)
	require.NoError(t, err)
	assert.False(t, h.Active)

	_, err = svc.SetActive(ctx, admin.Principal(), admin.ID, false)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestExpiredToken(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, sess, err := svc.Register(ctx, ports.Registration{Email: "d@x.io", Password: "secret1", Role: "donor"})
	require.NoError(t, err)

	svc.tokens.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }
	_, err = svc.Authenticate(ctx, sess.Token)
	require.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "token expired", domain.Message(err))
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	a := NewTokens("one", time.Hour)
	b := NewTokens("two", time.Hour)
	sess, err := a.Issue(domain.Identity{ID: "u1", Role: domain.RoleDonor})
	require.NoError(t, err)
	_, err = b.Parse(sess.Token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	claims, err := a.Parse(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "donor", claims.Role)
}

func TestAdminUserManagement(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	admin, _, err := svc.Register(ctx, ports.Registration{Email: "root@x.io", Password: "secret1", Role: "admin"})
	require.NoError(t, err)

	created, err := svc.CreateUser(ctx, admin.Principal(), "staff@x.io", "secret1", "donor")
	require.NoError(t, err)
	assert.True(t, created.Active)

	_, err = svc.CreateUser(ctx, created.Principal(), "more@x.io", "secret1", "donor")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	users, err := svc.ListUsers(ctx, admin.Principal())
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, created.ID, users[0].ID)
}
