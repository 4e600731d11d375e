package shared

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) (*SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "argus_session", "test-secret", time.Hour, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load fresh session: %v", err)
	}
	sess.SetUser("user-1")
	sess.Set("impersonate_role", "TH")

	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "argus_session" {
		t.Fatalf("expected one session cookie, got %v", cookies)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	loaded, err := sm.Load(ctx, req)
	if err != nil {
		t.Fatalf("reload session: %v", err)
	}
	if loaded.User() != "user-1" {
		t.Fatalf("user = %q, want user-1", loaded.User())
	}
	if got := loaded.Get("impersonate_role"); got != "TH" {
		t.Fatalf("value = %q, want TH", got)
	}

	if got := mr.Keys(); len(got) != 1 {
		t.Fatalf("expected one redis key, got %v", got)
	}
}

func TestSessionPayloadShape(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("user-2")

	if err := sm.Commit(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	raw, err := mr.Get("session:" + sess.ID)
	if err != nil {
		t.Fatalf("read stored payload: %v", err)
	}
	var stored map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("payload has %d fields, want values and user_id only: %v", len(stored), stored)
	}
	for _, key := range []string{"values", "user_id"} {
		if _, ok := stored[key]; !ok {
			t.Fatalf("payload missing %q: %v", key, stored)
		}
	}
}

func TestSessionDestroy(t *testing.T) {
	sm, mr := newTestManager(t)
	ctx := context.Background()

	sess, err := sm.Load(ctx, httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetUser("user-3")
	if err := sm.Commit(ctx, httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit: %v", err)
	}

	sm.Destroy(sess)
	rec := httptest.NewRecorder()
	if err := sm.Commit(ctx, rec, httptest.NewRequest(http.MethodGet, "/", nil), sess); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}

	if mr.Exists("session:" + sess.ID) {
		t.Fatal("session key should be deleted after destroy")
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Fatalf("expected expiring cookie, got %v", cookies)
	}
}
