package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"findmyservice.org/internal/auth"
	"findmyservice.org/internal/market"
	"findmyservice.org/internal/payment"
)

// fakeGateway counts calls so tests can assert the gateway was (not)
// reached.
type fakeGateway struct {
	createCalls   atomic.Int64
	retrieveCalls atomic.Int64
	intentStatus  string
	lastAmount    int64
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amountMinor int64, orderID string) (payment.Intent, error) {
	n := g.createCalls.Add(1)
	g.lastAmount = amountMinor
	return payment.Intent{
		ID:           fmt.Sprintf("pi_%d", n),
		ClientSecret: fmt.Sprintf("pi_%d_secret", n),
		Status:       "requires_payment_method",
	}, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (payment.Intent, error) {
	g.retrieveCalls.Add(1)
	status := g.intentStatus
	if status == "" {
		status = payment.StatusSucceeded
	}
	return payment.Intent{ID: intentID, Status: status}, nil
}

type apiClient struct {
	baseURL string
	client  *http.Client
	store   market.Store
	gateway *fakeGateway
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("FINDMY_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	store := market.NewInMemory()
	gw := &fakeGateway{}
	api := New(store, market.NewPayments(store, gw), ReadyProbe{}, Options{
		Version:    "test",
		RateBurst:  1000,
		RatePerSec: 1000,
	})

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		store:   store,
		gateway: gw,
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) get(path, token string) *http.Response {
	return c.do(http.MethodGet, path, nil, token)
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	return c.do(http.MethodPost, path, body, token)
}

// seedUser creates a user row directly and returns its id with a token.
func (c *apiClient) seedUser(name string, role market.Role) (string, string) {
	c.t.Helper()
	u := &market.User{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	if err := c.store.Users().Create(context.Background(), u); err != nil {
		c.t.Fatalf("seed user: %v", err)
	}
	token, _, err := auth.IssueToken(u.ID, u.Email, string(role), time.Hour)
	if err != nil {
		c.t.Fatalf("issue token: %v", err)
	}
	return u.ID, token
}

// seedProvider creates a provider with one catalog entry.
func (c *apiClient) seedProvider(name string, cost float64) (providerID, serviceID, token string) {
	c.t.Helper()
	p := &market.Provider{Name: name, Email: name + "@example.com", PasswordHash: "x"}
	if err := c.store.Providers().Create(context.Background(), p); err != nil {
		c.t.Fatalf("seed provider: %v", err)
	}
	svc := &market.ServiceOffering{ProviderID: p.ID, Name: name + " service", Cost: cost}
	if err := c.store.Services().Create(context.Background(), svc); err != nil {
		c.t.Fatalf("seed service: %v", err)
	}
	tok, _, err := auth.IssueToken(p.ID, p.Email, string(market.RoleProvider), time.Hour)
	if err != nil {
		c.t.Fatalf("issue token: %v", err)
	}
	return p.ID, svc.ID, tok
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestHealthAndInfo(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["status"] != "ok" {
		t.Fatalf("unexpected healthz body: %v", body)
	}

	resp = api.get("/v1/info", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("info status: %d", resp.StatusCode)
	}
	info := decode[map[string]any](t, resp)
	if info["version"] != "test" {
		t.Fatalf("unexpected version: %v", info["version"])
	}

	resp = api.get("/readyz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status: %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegisterAndLoginFlow(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/v1/auth/register", map[string]any{
		"name":     "Asha",
		"email":    "asha@example.com",
		"password": "s3cret!",
		"role":     "USER",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	if created["userId"] == "" {
		t.Fatal("expected userId in register response")
	}

	// Same email again conflicts.
	resp = api.post("/api/v1/auth/register", map[string]any{
		"name":     "Asha",
		"email":    "ASHA@example.com",
		"password": "other",
		"role":     "USER",
	}, "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/api/v1/auth/login", map[string]any{
		"email":    "asha@example.com",
		"password": "wrong",
		"role":     "USER",
	}, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong password status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/api/v1/auth/login", map[string]any{
		"email":    "asha@example.com",
		"password": "s3cret!",
		"role":     "ADMIN",
	}, "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("role mismatch status: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/api/v1/auth/login", map[string]any{
		"email":    "asha@example.com",
		"password": "s3cret!",
		"role":     "USER",
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status: %d", resp.StatusCode)
	}
	login := decode[map[string]any](t, resp)
	if login["token"] == "" || login["userId"] != created["userId"] {
		t.Fatalf("unexpected login response: %v", login)
	}
}

func TestProviderRegistrationCreatesProviderRow(t *testing.T) {
	api := newTestAPI(t)

	resp := api.post("/api/v1/auth/register", map[string]any{
		"name":     "FixIt",
		"email":    "fixit@example.com",
		"password": "s3cret!",
		"role":     "PROVIDER",
	}, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status: %d", resp.StatusCode)
	}
	created := decode[map[string]any](t, resp)
	providerID, _ := created["providerId"].(string)
	if providerID == "" {
		t.Fatal("expected providerId in register response")
	}
	if _, err := api.store.Providers().Find(context.Background(), providerID); err != nil {
		t.Fatalf("provider row missing: %v", err)
	}

	resp = api.post("/api/v1/auth/login", map[string]any{
		"email":    "fixit@example.com",
		"password": "s3cret!",
		"role":     "PROVIDER",
	}, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("provider login status: %d", resp.StatusCode)
	}
	login := decode[map[string]any](t, resp)
	if login["providerId"] != providerID {
		t.Fatalf("unexpected provider login response: %v", login)
	}
}

func TestErrorBodyIsCanonical(t *testing.T) {
	api := newTestAPI(t)

	resp := api.get("/api/v1/users", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decode[map[string]any](t, resp)
	if body["error"] != "unauthorized" {
		t.Fatalf("unexpected error label: %v", body["error"])
	}
	if body["message"] == "" {
		t.Fatal("expected message in error body")
	}
	if body["request_id"] == "" {
		t.Fatal("expected request_id in error body")
	}
}

func TestUserCRUDOwnership(t *testing.T) {
	api := newTestAPI(t)
	userID, userToken := api.seedUser("asha", market.RoleUser)
	otherID, otherToken := api.seedUser("bilal", market.RoleUser)
	_, adminToken := api.seedUser("root", market.RoleAdmin)

	// Listing is admin-only.
	resp := api.get("/api/v1/users", userToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("list as user: %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = api.get("/api/v1/users", adminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list as admin: %d", resp.StatusCode)
	}
	users := decode[[]map[string]any](t, resp)
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}

	// Reading someone else's account is forbidden; admins bypass.
	resp = api.get("/api/v1/users/"+otherID, userToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("cross read: %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = api.get("/api/v1/users/"+userID, adminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin read: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Owner update.
	resp = api.do(http.MethodPut, "/api/v1/users/"+userID, map[string]any{"name": "Asha K"}, userToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner update: %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["name"] != "Asha K" {
		t.Fatalf("name not updated: %v", updated["name"])
	}

	// Owner delete.
	resp = api.do(http.MethodDelete, "/api/v1/users/"+otherID, nil, otherToken)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("owner delete: %d", resp.StatusCode)
	}
	resp.Body.Close()
	if _, err := api.store.Users().Find(context.Background(), otherID); err == nil {
		t.Fatal("user should be gone")
	}
}

func TestServiceCatalogFlow(t *testing.T) {
	api := newTestAPI(t)
	providerID, _, providerToken := api.seedProvider("fixit", 50)
	_, _, rivalToken := api.seedProvider("rival", 60)

	// Providers create their own services; the catalog is public.
	resp := api.post("/api/v1/services", map[string]any{
		"name": "Deep clean",
		"cost": 79.5,
	}, providerToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create service: %d", resp.StatusCode)
	}
	svc := decode[map[string]any](t, resp)
	svcID := svc["id"].(string)
	if svc["provider_id"] != providerID {
		t.Fatalf("service owner mismatch: %v", svc["provider_id"])
	}

	resp = api.get("/api/v1/services/"+svcID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("public get: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/api/v1/providers/"+providerID+"/services", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("provider services: %d", resp.StatusCode)
	}
	listed := decode[[]map[string]any](t, resp)
	if len(listed) != 2 {
		t.Fatalf("expected 2 services for provider, got %d", len(listed))
	}

	// A rival provider cannot edit someone else's offering.
	resp = api.do(http.MethodPut, "/api/v1/services/"+svcID, map[string]any{"cost": 1.0}, rivalToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("rival update: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.do(http.MethodPut, "/api/v1/services/"+svcID, map[string]any{"cost": 89.0}, providerToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("owner update: %d", resp.StatusCode)
	}
	updated := decode[map[string]any](t, resp)
	if updated["cost"] != 89.0 {
		t.Fatalf("cost not updated: %v", updated["cost"])
	}
}

func TestFeedbackFoldsRatings(t *testing.T) {
	api := newTestAPI(t)
	providerID, svcID, _ := api.seedProvider("fixit", 50)
	_, userToken := api.seedUser("asha", market.RoleUser)

	resp := api.post("/api/v1/feedbacks", map[string]any{
		"serviceId": svcID,
		"rating":    5,
		"comment":   "great work",
	}, userToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create feedback: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.post("/api/v1/feedbacks", map[string]any{
		"serviceId": svcID,
		"rating":    4,
	}, userToken)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("second feedback: %d", resp.StatusCode)
	}
	resp.Body.Close()

	svc, err := api.store.Services().Find(context.Background(), svcID)
	if err != nil {
		t.Fatalf("find service: %v", err)
	}
	if svc.AvgRating != 4.5 || svc.TotalRatings != 2 {
		t.Fatalf("service fold wrong: avg=%v total=%v", svc.AvgRating, svc.TotalRatings)
	}
	p, err := api.store.Providers().Find(context.Background(), providerID)
	if err != nil {
		t.Fatalf("find provider: %v", err)
	}
	if p.AvgRating != 4.5 || p.TotalRatings != 2 {
		t.Fatalf("provider fold wrong: avg=%v total=%v", p.AvgRating, p.TotalRatings)
	}

	// Out-of-range rating rejected.
	resp = api.post("/api/v1/feedbacks", map[string]any{
		"serviceId": svcID,
		"rating":    6,
	}, userToken)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad rating: %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Listing is public.
	resp = api.get("/api/v1/feedbacks/service/"+svcID, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list feedback: %d", resp.StatusCode)
	}
	items := decode[[]map[string]any](t, resp)
	if len(items) != 2 {
		t.Fatalf("expected 2 feedback items, got %d", len(items))
	}
}

func TestFeedbackListAllIsAdminOnly(t *testing.T) {
	api := newTestAPI(t)
	_, svcID, _ := api.seedProvider("tidy", 20)
	_, otherSvcID, _ := api.seedProvider("shine", 22)
	_, userToken := api.seedUser("dev", market.RoleUser)
	_, adminToken := api.seedUser("boss", market.RoleAdmin)

	for _, target := range []string{svcID, otherSvcID} {
		resp := api.post("/api/v1/feedbacks", map[string]any{
			"serviceId": target,
			"rating":    4,
		}, userToken)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create feedback: %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	resp := api.get("/api/v1/feedbacks", userToken)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user list-all: %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = api.get("/api/v1/feedbacks", adminToken)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin list-all: %d", resp.StatusCode)
	}
	all := decode[[]map[string]any](t, resp)
	if len(all) != 2 {
		t.Fatalf("expected 2 feedback items across services, got %d", len(all))
	}
}
