package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"bloodlink/internal/adapters/memory"
	"bloodlink/internal/domain"
	"bloodlink/internal/ports"
	"bloodlink/internal/recommend"
	"bloodlink/internal/services/auth"
	"bloodlink/internal/services/bloodbanks"
	"bloodlink/internal/services/dashboards"
	"bloodlink/internal/services/donations"
	"bloodlink/internal/services/donors"
	"bloodlink/internal/services/hospitals"
	"bloodlink/internal/services/requests"
	"bloodlink/internal/workers/recommendrunner"
)

type testEnv struct {
	srv   *httptest.Server
	store *memory.Store
}

func newEnv(t *testing.T, rdb *redis.Client, authLimit int, with ...func(*Deps)) testEnv {
	t.Helper()
	store := memory.New()
	log := zap.NewNop()
	rec := recommend.New(recommend.StaticProcedure{Prediction: "donors nearby"}, store, log)
	proc := recommendrunner.RequestProcessor{Requests: store, Recommender: rec, Log: log}

	deps := Deps{
		Accounts:   auth.New(store, auth.NewTokens("test-secret", time.Hour), log),
		BloodBanks: bloodbanks.New(store, log),
		Donors:     donors.New(store, log),
		Donations:  donations.New(store, log, donations.Options{}),
		Requests:   requests.New(store, rec, proc, log, requests.Options{DefaultState: "Maharashtra", DefaultMonths: 3}),
		Hospitals:  hospitals.New(store),
		Dashboards: dashboards.New(store),
		Redis:      rdb,
	}
	for _, fn := range with {
		fn(&deps)
	}
	s := New(deps, log, Options{AuthRateLimit: authLimit})

	srv := httptest.NewServer(s.Routes())
	t.Cleanup(srv.Close)
	return testEnv{srv: srv, store: store}
}

// client keeps its own cookie jar and never follows redirects.
type client struct {
	t    *testing.T
	base string
	http *http.Client
}

func (e testEnv) client(t *testing.T) *client {
	t.Helper()
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	return &client{t: t, base: e.srv.URL, http: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

type reply struct {
	Code     int
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Data     json.RawMessage `json:"data"`
	Location string
}

func (c *client) do(method, path string, body any) reply {
	c.t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req)
}

func (c *client) form(path string, values url.Values) reply {
	c.t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.base+path, strings.NewReader(values.Encode()))
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.send(req)
}

func (c *client) send(req *http.Request) reply {
	c.t.Helper()
	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	out := reply{Code: resp.StatusCode, Location: resp.Header.Get("Location")}
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return out
}

func (r reply) into(t *testing.T, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Data, dst))
}

func (c *client) register(body map[string]any) domain.Identity {
	c.t.Helper()
	res := c.do(http.MethodPost, "/register", body)
	require.Equal(c.t, http.StatusCreated, res.Code, res.Message)
	var ident domain.Identity
	res.into(c.t, &ident)
	return ident
}

func registerBank(c *client, email, regNo string) domain.Identity {
	return c.register(map[string]any{
		"email": email, "password": "secret1", "role": "bloodbank",
		"name": "Bank " + regNo, "registrationNumber": regNo, "city": "Pune",
	})
}

func registerHospital(c *client, email, regNo string) domain.Identity {
	return c.register(map[string]any{
		"email": email, "password": "secret1", "role": "hospital",
		"name": "Hospital " + regNo, "registrationNumber": regNo,
		"address": map[string]string{"city": "Pune", "state": "Maharashtra"},
	})
}

func TestHealthz(t *testing.T) {
	env := newEnv(t, nil, 0)
	res := env.client(t).do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "success", res.Status)
}

func TestHealthzReportsStorageFailure(t *testing.T) {
	s := New(Deps{Health: func(context.Context) error { return errors.New("down") }}, zap.NewNop(), Options{})
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRegisterSetsCookieAndProfile(t *testing.T) {
	env := newEnv(t, nil, 0)
	c := env.client(t)
	ident := registerBank(c, "bank@x.io", "BB-1")
	assert.Equal(t, domain.RoleBloodBank, ident.Role)

	res := c.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var bank domain.BloodBank
	res.into(t, &bank)
	assert.Equal(t, ident.ID, bank.ID)
	assert.Len(t, bank.Inventory, 8)
	assert.Equal(t, "Pune", bank.Address.City)

	res = c.do(http.MethodGet, "/logout", nil)
	assert.Equal(t, http.StatusOK, res.Code)
	res = c.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLoginSessionAndRoleGates(t *testing.T) {
	env := newEnv(t, nil, 0)
	registerHospital(env.client(t), "h@x.io", "H-1")

	c := env.client(t)
	res := c.do(http.MethodPost, "/login", map[string]string{"email": "h@x.io", "password": "wrong1"})
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "invalid credentials", res.Message)

	res = c.do(http.MethodPost, "/login", map[string]string{"email": "h@x.io", "password": "secret1"})
	require.Equal(t, http.StatusOK, res.Code)
	res = c.do(http.MethodGet, "/hospital-dashboard", nil)
	assert.Equal(t, http.StatusOK, res.Code)

	res = c.do(http.MethodGet, "/bloodbank-dashboard", nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestFormLoginRedirects(t *testing.T) {
	env := newEnv(t, nil, 0)
	registerHospital(env.client(t), "h@x.io", "H-1")
	c := env.client(t)

	res := c.form("/login", url.Values{"email": {"h@x.io"}, "password": {"nope12"}})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/login?error=invalid+credentials", res.Location)

	res = c.form("/login", url.Values{"email": {"h@x.io"}, "password": {"secret1"}})
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.True(t, strings.HasPrefix(res.Location, "/hospital-dashboard?success="), res.Location)
}

func TestHTMLClientRedirectedToLogin(t *testing.T) {
	env := newEnv(t, nil, 0)
	req, err := http.NewRequest(http.MethodGet, env.srv.URL+"/profile", nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "text/html")
	res := env.client(t).send(req)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.True(t, strings.HasPrefix(res.Location, "/login?error="), res.Location)
}

func TestDeactivatedAccountRejectedWithValidToken(t *testing.T) {
	env := newEnv(t, nil, 0)
	admin := env.client(t)
	admin.register(map[string]any{"email": "root@x.io", "password": "secret1", "role": "admin"})

	bankClient := env.client(t)
	bank := registerBank(bankClient, "bank@x.io", "BB-1")
	require.Equal(t, http.StatusOK, bankClient.do(http.MethodGet, "/profile", nil).Code)

	res := admin.do(http.MethodPut, "/users/"+bank.ID+"/active", map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, res.Code, res.Message)

	res = bankClient.do(http.MethodGet, "/profile", nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
	assert.Equal(t, "account is deactivated", res.Message)

	res = admin.do(http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var users []domain.Identity
	res.into(t, &users)
	assert.Len(t, users, 2)

	// a second public admin registration is refused
	res = env.client(t).do(http.MethodPost, "/register", map[string]any{"email": "x@x.io", "password": "secret1", "role": "admin"})
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestInventoryRoutesRequireOwner(t *testing.T) {
	env := newEnv(t, nil, 0)
	owner := env.client(t)
	bank := registerBank(owner, "a@x.io", "BB-1")
	other := env.client(t)
	registerBank(other, "b@x.io", "BB-2")

	path := "/bloodBank/" + bank.ID + "/inventory"
	res := owner.do(http.MethodPut, path, map[string]any{"operation": "add", "bloodGroup": "O+", "quantity": "4"})
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	var inv domain.Inventory
	res.into(t, &inv)
	assert.Equal(t, 4, inv.Quantity(domain.OPositive))

	res = owner.do(http.MethodPut, path, map[string]any{"operation": "remove", "bloodGroup": "O+", "quantity": 10})
	require.Equal(t, http.StatusOK, res.Code)
	res.into(t, &inv)
	assert.Equal(t, 0, inv.Quantity(domain.OPositive))

	res = owner.do(http.MethodPut, path, map[string]any{"operation": "double", "bloodGroup": "O+", "quantity": 1})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	res = owner.do(http.MethodPut, path+"/bulk", map[string]any{"inventory": []map[string]any{
		{"bloodGroup": "A+", "quantity": 3}, {"bloodGroup": "B-", "quantity": 2},
	}})
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	res.into(t, &inv)
	assert.Equal(t, 3, inv.Quantity(domain.APositive))

	assert.Equal(t, http.StatusForbidden, other.do(http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, env.client(t).do(http.MethodGet, path, nil).Code)

	res = env.client(t).do(http.MethodGet, "/bloodBank/filter?bloodGroup=A%2B", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var banks []domain.BloodBank
	res.into(t, &banks)
	require.Len(t, banks, 1)
	assert.Equal(t, bank.ID, banks[0].ID)
}

func TestDonationCompletionCreditsOnce(t *testing.T) {
	env := newEnv(t, nil, 0)
	bankClient := env.client(t)
	bank := registerBank(bankClient, "bank@x.io", "BB-1")

	res := env.client(t).form("/donation/schedule", url.Values{
		"fullName": {"Asha"}, "phone": {"9000000001"}, "bloodGroup": {"B+"},
		"bloodBankId": {bank.ID}, "quantity": {"2"}, "donationDate": {"2026-11-02"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.True(t, strings.HasPrefix(res.Location, "/?success="), res.Location)

	res = bankClient.do(http.MethodGet, "/donation/donation", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var list []domain.Donation
	res.into(t, &list)
	require.Len(t, list, 1)
	id := list[0].ID

	for range 2 {
		res = bankClient.do(http.MethodPut, "/donation/"+id+"/status", map[string]any{"status": "completed"})
		require.Equal(t, http.StatusOK, res.Code, res.Message)
	}

	res = bankClient.do(http.MethodGet, "/bloodBank/"+bank.ID+"/inventory", nil)
	var inv domain.Inventory
	res.into(t, &inv)
	assert.Equal(t, 2, inv.Quantity(domain.BPositive))

	res = bankClient.do(http.MethodGet, "/donation/"+id, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var details domain.DonationDetails
	res.into(t, &details)
	require.NotNil(t, details.Donor)
	assert.Equal(t, 1, details.Donor.DonationCount)
	assert.Equal(t, domain.DonationCompleted, details.Status)
}

func TestRequestLifecycle(t *testing.T) {
	env := newEnv(t, nil, 0)
	bankClient := env.client(t)
	bank := registerBank(bankClient, "bank@x.io", "BB-1")
	hosp := env.client(t)
	registerHospital(hosp, "h@x.io", "H-1")

	res := hosp.do(http.MethodPost, "/request/createRequest?wait=true&timeout=5", map[string]any{
		"patientName": "Ravi", "bloodGroup": "O-", "unitsRequired": 2,
		"urgency": "high", "requiredBy": "2026-12-01",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	var req domain.BloodRequest
	res.into(t, &req)
	assert.Equal(t, domain.RequestPending, req.Status)
	assert.Equal(t, "Pune", req.City)
	assert.Equal(t, "donors nearby", req.MLPrediction)

	statusPath := "/request/" + req.ID + "/status"
	res = bankClient.do(http.MethodPut, statusPath, map[string]any{"status": "fulfilled"})
	assert.Equal(t, http.StatusConflict, res.Code)
	assert.Equal(t, "insufficient inventory", res.Message)

	res = hosp.do(http.MethodPut, statusPath, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = bankClient.do(http.MethodPut, "/bloodBank/"+bank.ID+"/inventory", map[string]any{"operation": "set", "bloodGroup": "O-", "quantity": 5})
	require.Equal(t, http.StatusOK, res.Code)

	res = bankClient.form("/request/requestStatus", url.Values{"id": {req.ID}, "status": {"fulfilled"}})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.True(t, strings.HasPrefix(res.Location, "/bloodbank-dashboard?success="), res.Location)

	res = hosp.do(http.MethodGet, "/request/"+req.ID, nil)
	res.into(t, &req)
	assert.Equal(t, domain.RequestFulfilled, req.Status)
	assert.Equal(t, bank.ID, req.FulfilledBy)

	res = bankClient.do(http.MethodGet, "/bloodBank/"+bank.ID+"/inventory", nil)
	var inv domain.Inventory
	res.into(t, &inv)
	assert.Equal(t, 3, inv.Quantity(domain.ONegative))

	res = hosp.do(http.MethodDelete, "/request/"+req.ID, nil)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = hosp.do(http.MethodGet, "/request/allRequests?status=fulfilled", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var list []domain.BloodRequest
	res.into(t, &list)
	assert.Len(t, list, 1)
}

// slowInline gives up on every inline recommendation.
type slowInline struct {
	ports.Requests
}

func (slowInline) ProcessRecommendation(context.Context, string) (domain.BloodRequest, error) {
	return domain.BloodRequest{}, context.DeadlineExceeded
}

func TestWaitedCreateSurvivesRecommendationTimeout(t *testing.T) {
	env := newEnv(t, nil, 0, func(d *Deps) { d.Requests = slowInline{d.Requests} })
	hosp := env.client(t)
	registerHospital(hosp, "h@x.io", "H-1")

	res := hosp.do(http.MethodPost, "/request/createRequest?wait=true&timeout=1", map[string]any{
		"patientName": "Ravi", "bloodGroup": "A+", "unitsRequired": 1, "requiredBy": "2026-12-01",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	var req domain.BloodRequest
	res.into(t, &req)
	require.NotEmpty(t, req.ID)

	res = hosp.form("/request/createRequest?wait=true", url.Values{
		"patientName": {"Meera"}, "bloodGroup": {"B+"}, "unitsRequired": {"1"}, "requiredBy": {"2026-12-01"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.True(t, strings.HasPrefix(res.Location, "/hospital-dashboard?success="), res.Location)

	res = hosp.do(http.MethodGet, "/request/allRequests", nil)
	var list []domain.BloodRequest
	res.into(t, &list)
	assert.Len(t, list, 2)
}

func TestDeletePendingRequest(t *testing.T) {
	env := newEnv(t, nil, 0)
	hosp := env.client(t)
	registerHospital(hosp, "h@x.io", "H-1")
	other := env.client(t)
	registerHospital(other, "g@x.io", "H-2")

	res := hosp.do(http.MethodPost, "/request/createRequest", map[string]any{
		"patientName": "Ravi", "bloodGroup": "A+", "unitsRequired": "1", "requiredBy": "2026-12-01",
	})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	var req domain.BloodRequest
	res.into(t, &req)

	res = hosp.do(http.MethodGet, "/request/"+req.ID+"/donors", nil)
	require.Equal(t, http.StatusOK, res.Code)
	var recs domain.RequestRecommendations
	res.into(t, &recs)
	assert.Equal(t, recommend.NoPrediction, recs.Prediction)
	assert.NotNil(t, recs.Donors)

	assert.Equal(t, http.StatusForbidden, other.do(http.MethodPost, "/request/"+req.ID+"/delete", nil).Code)
	assert.Equal(t, http.StatusOK, hosp.do(http.MethodPost, "/request/"+req.ID+"/delete", nil).Code)
	assert.Equal(t, http.StatusNotFound, hosp.do(http.MethodGet, "/request/"+req.ID, nil).Code)
}

func TestValidationErrors(t *testing.T) {
	env := newEnv(t, nil, 0)
	c := env.client(t)

	res := c.do(http.MethodPost, "/register", map[string]any{"email": "a@x.io", "password": "secret1", "role": "pilot"})
	assert.Equal(t, http.StatusBadRequest, res.Code)

	req, err := http.NewRequest(http.MethodPost, env.srv.URL+"/login", strings.NewReader("{"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res = c.send(req)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "malformed request body", res.Message)

	res = c.do(http.MethodGet, "/bloodBank/filter?bloodGroup=Z", nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	res = c.do(http.MethodGet, "/bloodBank/missing", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestAuthRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newEnv(t, rdb, 2)
	c := env.client(t)
	body := map[string]string{"email": "nobody@x.io", "password": "secret1"}
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/login", body).Code)
	assert.Equal(t, http.StatusUnauthorized, c.do(http.MethodPost, "/login", body).Code)
	res := c.do(http.MethodPost, "/login", body)
	assert.Equal(t, http.StatusTooManyRequests, res.Code)

	// still blocked after the window rolls over
	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodPost, "/login", body).Code)

	// other routes are not limited
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/bloodBank/allBanks", nil).Code)
}

func TestAuthRateLimitIgnoresForwardedHeaders(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	env := newEnv(t, rdb, 2)
	c := env.client(t)
	login := func(forwarded string) int {
		req, err := http.NewRequest(http.MethodPost, c.base+"/login",
			strings.NewReader(`{"email":"nobody@x.io","password":"secret1"}`))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		req.Header.Set("X-Real-IP", forwarded)
		return c.send(req).Code
	}
	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.1"))
	assert.Equal(t, http.StatusUnauthorized, login("10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, login("10.0.0.3"))
}
