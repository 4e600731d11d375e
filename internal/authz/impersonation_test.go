package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/argus-soc/argus/internal/audit"
	"github.com/argus-soc/argus/internal/shared"
)

func newTestSession(t *testing.T) *shared.Session {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	manager := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	return sess
}

func TestImpersonatorStartRequiresAdmin(t *testing.T) {
	recorder := &captureRecorder{}
	imp := NewImpersonator(recorder, nil)
	sess := newTestSession(t)

	err := imp.Start(context.Background(), sess, Actor{UserID: 7, Role: RoleTI}, RoleViewer)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if ActiveImpersonation(sess) != RoleNone {
		t.Fatalf("denied start must not alter the session")
	}
	if len(recorder.events) != 1 || !recorder.events[0].Denied {
		t.Fatalf("denied start must be audited: %+v", recorder.events)
	}
}

func TestImpersonatorStartRejectsUnknownRole(t *testing.T) {
	recorder := &captureRecorder{}
	imp := NewImpersonator(recorder, nil)
	sess := newTestSession(t)

	err := imp.Start(context.Background(), sess, Actor{UserID: 1, Role: RoleAdmin}, Role("SUPERUSER"))
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if ActiveImpersonation(sess) != RoleNone {
		t.Fatalf("failed start must not alter the session")
	}
}

func TestImpersonatorStartAndRestore(t *testing.T) {
	recorder := &captureRecorder{}
	imp := NewImpersonator(recorder, nil)
	sess := newTestSession(t)
	actor := Actor{UserID: 1, Role: RoleAdmin}

	if err := imp.Start(context.Background(), sess, actor, RoleViewer); err != nil {
		t.Fatalf("start: %v", err)
	}
	if ActiveImpersonation(sess) != RoleViewer {
		t.Fatalf("expected active impersonation VIEWER, got %s", ActiveImpersonation(sess))
	}

	if err := imp.Restore(context.Background(), sess, actor); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if ActiveImpersonation(sess) != RoleNone {
		t.Fatalf("restore must clear the session flag")
	}

	if len(recorder.events) != 2 {
		t.Fatalf("expected start and end events, got %d", len(recorder.events))
	}
	start, end := recorder.events[0], recorder.events[1]
	if start.Action != audit.ActionImpersonationStart || start.ActedAs != string(RoleViewer) || start.ActorID != 1 {
		t.Fatalf("unexpected start event: %+v", start)
	}
	if end.Action != audit.ActionImpersonationEnd || end.ActedAs != string(RoleViewer) {
		t.Fatalf("unexpected end event: %+v", end)
	}
}

func TestImpersonatorRestoreIsIdempotent(t *testing.T) {
	recorder := &captureRecorder{}
	imp := NewImpersonator(recorder, nil)
	sess := newTestSession(t)

	if err := imp.Restore(context.Background(), sess, Actor{UserID: 1, Role: RoleAdmin}); err != nil {
		t.Fatalf("restore on normal session must be a no-op, got %v", err)
	}
	if len(recorder.events) != 0 {
		t.Fatalf("no-op restore must not be audited")
	}
}

func TestActiveImpersonationIgnoresGarbageValues(t *testing.T) {
	sess := newTestSession(t)
	sess.Set(ImpersonationSessionKey, "not-a-role")
	if ActiveImpersonation(sess) != RoleNone {
		t.Fatalf("unparseable stored role must read as no impersonation")
	}
	if ActiveImpersonation(nil) != RoleNone {
		t.Fatalf("nil session must read as no impersonation")
	}
}
