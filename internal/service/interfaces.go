package service

import (
	"context"

	"github.com/joshdurbin/hashlink/internal/domain"
)

// LinkService defines the link shortening operations
type LinkService interface {
	// GenerateHash produces a fresh hash for originalURL
	GenerateHash(ctx context.Context, originalURL string) (string, error)

	// Shorten validates originalURL and stores it under hash
	Shorten(ctx context.Context, originalURL, hash string) (*domain.ShortenResult, error)

	// Lookup resolves an active hash, records a visit and returns the link as
	// it was before the visit
	Lookup(ctx context.Context, hash string) (*domain.Link, error)

	// Remove soft-deletes the active link matching hash and removeToken
	Remove(ctx context.Context, hash, removeToken string) error

	// Ping checks that the link store is reachable
	Ping(ctx context.Context) error

	// Close closes the service and its dependencies
	Close() error
}
