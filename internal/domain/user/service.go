package user

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service exposes the directory reads the task core depends on.
type Service interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	// ResolveNames maps member ids to display names, in the order given.
	// Unknown ids resolve to an empty string rather than failing; the caller
	// stores the names as a denormalized cache that is never re-validated.
	ResolveNames(ctx context.Context, ids []uuid.UUID) ([]string, error)
}

type service struct {
	repo   Repository
	logger *zap.Logger
}

func NewService(repo Repository, logger *zap.Logger) Service {
	return &service{repo: repo, logger: logger}
}

func (s *service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *service) GetUser(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) ResolveNames(ctx context.Context, ids []uuid.UUID) ([]string, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		byID[u.ID] = u.Name
	}

	names := make([]string, len(ids))
	for i, id := range ids {
		name, ok := byID[id]
		if !ok {
			s.logger.Warn("assigned member missing from directory", zap.String("user_id", id.String()))
		}
		names[i] = name
	}
	return names, nil
}
