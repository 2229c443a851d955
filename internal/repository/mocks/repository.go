package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/hashlink/internal/domain"
)

// LinkRepository is a mock implementation of repository.LinkRepository
type LinkRepository struct {
	mock.Mock
}

// CreateLink persists a new active link
func (m *LinkRepository) CreateLink(ctx context.Context, link *domain.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

// RegisterVisit appends a visit to an active link
func (m *LinkRepository) RegisterVisit(ctx context.Context, hash string, visitedAt time.Time) (*domain.Link, error) {
	args := m.Called(ctx, hash, visitedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// Deactivate soft-deletes an active link
func (m *LinkRepository) Deactivate(ctx context.Context, hash, removeToken string, removedAt time.Time) (*domain.Link, error) {
	args := m.Called(ctx, hash, removeToken, removedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// Ping checks that the store is reachable
func (m *LinkRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the repository connection
func (m *LinkRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
