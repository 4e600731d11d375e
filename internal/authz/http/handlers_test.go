package authzhttp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/argus-soc/argus/internal/audit"
	"github.com/argus-soc/argus/internal/authz"
	authzhttp "github.com/argus-soc/argus/internal/authz/http"
	"github.com/argus-soc/argus/internal/shared"
	_ "github.com/argus-soc/argus/testing"
)

type memPolicyRepo struct {
	defaults map[authz.Role][]authz.Permission
}

func (m *memPolicyRepo) GetDefaults(ctx context.Context, role authz.Role) ([]authz.Permission, error) {
	return m.defaults[role], nil
}

func (m *memPolicyRepo) SetDefaults(ctx context.Context, role authz.Role, permissions []authz.Permission) error {
	m.defaults[role] = permissions
	return nil
}

type overrideKey struct {
	userID     int64
	permission authz.Permission
}

type memOverrideRepo struct {
	rows map[overrideKey]authz.UserOverride
}

func (m *memOverrideRepo) Upsert(ctx context.Context, override authz.UserOverride) error {
	m.rows[overrideKey{override.UserID, override.Permission}] = override
	return nil
}

func (m *memOverrideRepo) Delete(ctx context.Context, userID int64, permission authz.Permission) (bool, error) {
	key := overrideKey{userID, permission}
	if _, ok := m.rows[key]; !ok {
		return false, nil
	}
	delete(m.rows, key)
	return true, nil
}

func (m *memOverrideRepo) ListForUser(ctx context.Context, userID int64) ([]authz.UserOverride, error) {
	var out []authz.UserOverride
	for key, row := range m.rows {
		if key.userID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

type stubActors struct {
	actors map[int64]authz.Actor
}

func (s stubActors) Actor(ctx context.Context, userID int64) (authz.Actor, error) {
	actor, ok := s.actors[userID]
	if !ok {
		return authz.Actor{}, shared.ErrNotFound
	}
	return actor, nil
}

func (s stubActors) Exists(ctx context.Context, userID int64) (bool, error) {
	_, ok := s.actors[userID]
	return ok, nil
}

type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, event audit.Event) error { return nil }

type testEnv struct {
	router   http.Handler
	sessions *shared.SessionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	actors := stubActors{actors: map[int64]authz.Actor{
		1: {UserID: 1, Role: authz.RoleAdmin},
		7: {UserID: 7, Role: authz.RoleViewer},
	}}
	recorder := noopRecorder{}
	service := authz.NewService(
		authz.DefaultRegistry(),
		&memPolicyRepo{defaults: authz.SeedDefaults()},
		&memOverrideRepo{rows: make(map[overrideKey]authz.UserOverride)},
		actors,
		recorder,
		nil,
	)
	mw := authz.Middleware{
		Service: service,
		Guard:   authz.NewGuard(recorder, nil),
		Actors:  actors,
	}
	handler := authzhttp.NewHandler(nil, service, authz.NewImpersonator(recorder, nil), mw, authz.DefaultPages())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			if err != nil {
				t.Fatalf("load session: %v", err)
			}
			ctx := shared.ContextWithSession(req.Context(), sess)
			next.ServeHTTP(w, req.WithContext(ctx))
			if err := sessions.Commit(ctx, w, req, sess); err != nil {
				t.Fatalf("commit session: %v", err)
			}
		})
	})
	r.Route("/authz", handler.MountRoutes)

	return &testEnv{router: r, sessions: sessions}
}

// loginAs seeds a session for the user and returns its cookie.
func (e *testEnv) loginAs(t *testing.T, userID int64) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := e.sessions.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	sess.SetUser(fmt.Sprintf("%d", userID))
	res := httptest.NewRecorder()
	if err := e.sessions.Commit(context.Background(), res, req, sess); err != nil {
		t.Fatalf("commit session: %v", err)
	}
	for _, cookie := range res.Result().Cookies() {
		if cookie.Name == e.sessions.CookieName() {
			return cookie
		}
	}
	t.Fatalf("session cookie not issued")
	return nil
}

func (e *testEnv) do(t *testing.T, method, target string, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	res := httptest.NewRecorder()
	e.router.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestMeRequiresAuthentication(t *testing.T) {
	env := newTestEnv(t)
	res := env.do(t, http.MethodGet, "/authz/me", "", nil)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestMeReturnsEffectiveSetAndPages(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 7)

	res := env.do(t, http.MethodGet, "/authz/me", "", cookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	if body["role"] != "VIEWER" {
		t.Fatalf("expected viewer role, got %v", body["role"])
	}
	pages, _ := body["pages"].([]any)
	for _, raw := range pages {
		page := raw.(map[string]any)
		if page["key"] == "rbac" {
			t.Fatalf("viewer must not see the rbac page")
		}
	}
	if _, ok := body["impersonating"]; ok {
		t.Fatalf("normal session must not report impersonation")
	}
}

func TestPolicyEndpointsRequireManageRBAC(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 7)

	res := env.do(t, http.MethodGet, "/authz/roles/VIEWER/policy", "", cookie)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", res.Code)
	}

	res = env.do(t, http.MethodPut, "/authz/roles/VIEWER/policy", `{"permissions":["view:feed"]}`, cookie)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", res.Code)
	}
}

func TestUpdatePolicyRejectsUnregisteredTokens(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPut, "/authz/roles/VIEWER/policy", `{"permissions":["view:feed","bogus token"]}`, cookie)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
	}

	// The stored policy is untouched by the rejected write.
	res = env.do(t, http.MethodGet, "/authz/roles/VIEWER/policy", "", cookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	perms, _ := body["permissions"].([]any)
	if len(perms) != 3 {
		t.Fatalf("expected seeded viewer policy intact, got %v", perms)
	}
}

func TestUpdatePolicyRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPut, "/authz/roles/VIEWER/policy", `{"permissions":["view:feed","export:intel"]}`, cookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	body := decodeBody(t, res)
	perms, _ := body["permissions"].([]any)
	if len(perms) != 2 || perms[0] != "export:intel" || perms[1] != "view:feed" {
		t.Fatalf("expected sorted updated policy, got %v", perms)
	}
}

func TestUpdatePolicyUnknownRole(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPut, "/authz/roles/ROOT/policy", `{"permissions":[]}`, cookie)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown role, got %d", res.Code)
	}
}

func TestOverrideLifecycle(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPut, "/authz/users/7/overrides/export:intel", `{"granted":true,"reason":"incident 42"}`, cookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	res = env.do(t, http.MethodGet, "/authz/users/7/overrides", "", cookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	body := decodeBody(t, res)
	overrides, _ := body["overrides"].([]any)
	if len(overrides) != 1 {
		t.Fatalf("expected one override, got %v", overrides)
	}

	res = env.do(t, http.MethodDelete, "/authz/users/7/overrides/export:intel", "", cookie)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}

	// Removing again is a silent no-op.
	res = env.do(t, http.MethodDelete, "/authz/users/7/overrides/export:intel", "", cookie)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on repeat delete, got %d", res.Code)
	}
}

func TestSetOverrideUnknownUserIs404(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPut, "/authz/users/99/overrides/export:intel", `{"granted":true,"reason":"incident 42"}`, cookie)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.Code, res.Body.String())
	}
}

func TestImpersonationFlow(t *testing.T) {
	env := newTestEnv(t)
	adminCookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPost, "/authz/impersonate", `{"role":"VIEWER"}`, adminCookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	res = env.do(t, http.MethodGet, "/authz/me", "", adminCookie)
	body := decodeBody(t, res)
	if body["impersonating"] != "VIEWER" {
		t.Fatalf("expected impersonation reported, got %v", body)
	}
	if body["role"] != "ADMIN" {
		t.Fatalf("true role must stay visible, got %v", body["role"])
	}

	// Impersonating viewer means losing the rbac surface.
	res = env.do(t, http.MethodGet, "/authz/roles/VIEWER/policy", "", adminCookie)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while impersonating viewer, got %d", res.Code)
	}

	res = env.do(t, http.MethodDelete, "/authz/impersonate", "", adminCookie)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}

	res = env.do(t, http.MethodGet, "/authz/roles/VIEWER/policy", "", adminCookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected restored admin access, got %d", res.Code)
	}
}

func TestImpersonationDeniedForNonAdmin(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.loginAs(t, 7)

	res := env.do(t, http.MethodPost, "/authz/impersonate", `{"role":"ADMIN"}`, cookie)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", res.Code, res.Body.String())
	}

	res = env.do(t, http.MethodGet, "/authz/me", "", cookie)
	body := decodeBody(t, res)
	if _, ok := body["impersonating"]; ok {
		t.Fatalf("denied impersonation must not stick: %v", body)
	}
}

func TestImpersonationBlockedByRevokedToken(t *testing.T) {
	env := newTestEnv(t)
	adminCookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPut, "/authz/users/1/overrides/impersonate:role", `{"granted":false,"reason":"access drill"}`, adminCookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 setting override, got %d: %s", res.Code, res.Body.String())
	}

	res = env.do(t, http.MethodPost, "/authz/impersonate", `{"role":"VIEWER"}`, adminCookie)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with revoked token, got %d: %s", res.Code, res.Body.String())
	}

	res = env.do(t, http.MethodDelete, "/authz/users/1/overrides/impersonate:role", "", adminCookie)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 removing override, got %d", res.Code)
	}

	res = env.do(t, http.MethodPost, "/authz/impersonate", `{"role":"VIEWER"}`, adminCookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 after restoring token, got %d: %s", res.Code, res.Body.String())
	}
}

func TestImpersonationSwitchRequiresRestore(t *testing.T) {
	env := newTestEnv(t)
	adminCookie := env.loginAs(t, 1)

	res := env.do(t, http.MethodPost, "/authz/impersonate", `{"role":"VIEWER"}`, adminCookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	// The viewer set does not carry the impersonation token, so switching
	// roles directly is denied.
	res = env.do(t, http.MethodPost, "/authz/impersonate", `{"role":"TH"}`, adminCookie)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 while impersonating, got %d: %s", res.Code, res.Body.String())
	}

	res = env.do(t, http.MethodDelete, "/authz/impersonate", "", adminCookie)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}

	res = env.do(t, http.MethodPost, "/authz/impersonate", `{"role":"TH"}`, adminCookie)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 after restore, got %d: %s", res.Code, res.Body.String())
	}
}
