package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/joshdurbin/hashlink/internal/domain"
)

// LinkService is a mock implementation of service.LinkService
type LinkService struct {
	mock.Mock
}

// GenerateHash produces a fresh hash
func (m *LinkService) GenerateHash(ctx context.Context, originalURL string) (string, error) {
	args := m.Called(ctx, originalURL)
	return args.String(0), args.Error(1)
}

// Shorten stores originalURL under hash
func (m *LinkService) Shorten(ctx context.Context, originalURL, hash string) (*domain.ShortenResult, error) {
	args := m.Called(ctx, originalURL, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ShortenResult), args.Error(1)
}

// Lookup resolves an active hash
func (m *LinkService) Lookup(ctx context.Context, hash string) (*domain.Link, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Link), args.Error(1)
}

// Remove soft-deletes an active link
func (m *LinkService) Remove(ctx context.Context, hash, removeToken string) error {
	args := m.Called(ctx, hash, removeToken)
	return args.Error(0)
}

// Ping checks that the link store is reachable
func (m *LinkService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the service
func (m *LinkService) Close() error {
	args := m.Called()
	return args.Error(0)
}
