package users

import (
	"context"

	"github.com/argus-soc/argus/internal/authz"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	Exists(ctx context.Context, id int64) (bool, error)
}

// Service handles user account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// Actor loads the user's identity and validated stored role for
// authorization.
func (s *Service) Actor(ctx context.Context, userID int64) (authz.Actor, error) {
	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return authz.Actor{}, err
	}
	return authz.Actor{UserID: user.ID, Role: user.Role}, nil
}

var _ authz.ActorLoader = (*Service)(nil)
