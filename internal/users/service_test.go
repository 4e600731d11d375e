package users

import (
	"context"
	"errors"
	"testing"

	"github.com/argus-soc/argus/internal/authz"
	"github.com/argus-soc/argus/internal/shared"
)

type stubRepo struct {
	users map[int64]User
}

func (s stubRepo) ListUsers(ctx context.Context) ([]User, error) {
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	return out, nil
}

func (s stubRepo) GetUser(ctx context.Context, id int64) (User, error) {
	u, ok := s.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return u, nil
}

func (s stubRepo) Exists(ctx context.Context, id int64) (bool, error) {
	_, ok := s.users[id]
	return ok, nil
}

func TestActorCarriesStoredRole(t *testing.T) {
	svc := NewService(stubRepo{users: map[int64]User{
		7: {ID: 7, Email: "viewer@argus.local", Role: authz.RoleViewer, IsActive: true},
	}})

	actor, err := svc.Actor(context.Background(), 7)
	if err != nil {
		t.Fatalf("actor: %v", err)
	}
	if actor.UserID != 7 || actor.Role != authz.RoleViewer {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestActorUnknownUser(t *testing.T) {
	svc := NewService(stubRepo{users: map[int64]User{}})
	if _, err := svc.Actor(context.Background(), 99); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
