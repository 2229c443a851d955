package repository

import (
	"context"
	"time"

	"github.com/joshdurbin/hashlink/internal/domain"
)

// Store driver names
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// LinkRepository defines the link record store. Every method that mutates a
// record matches and mutates in a single atomic store operation.
type LinkRepository interface {
	// CreateLink persists a new active link and fills in ID and CreatedAt.
	// Returns domain.ErrHashConflict when an active link already uses the hash.
	CreateLink(ctx context.Context, link *domain.Link) error

	// RegisterVisit finds the active link with the given hash, appends a visit
	// at visitedAt and returns the link as it was before the append.
	// Returns domain.ErrNotFound when no active link matches.
	RegisterVisit(ctx context.Context, hash string, visitedAt time.Time) (*domain.Link, error)

	// Deactivate finds the active link with the given hash and remove token,
	// marks it inactive and stamps removedAt.
	// Returns domain.ErrNotFound when no active link matches both values.
	Deactivate(ctx context.Context, hash, removeToken string, removedAt time.Time) (*domain.Link, error)

	// Ping checks that the store is reachable
	Ping(ctx context.Context) error

	// Close closes the repository connection
	Close() error
}

// PriorVisits drops the visit appended by RegisterVisit from a post-update
// image, leaving the record as it was matched
func PriorVisits(visits []domain.Visit) []domain.Visit {
	if len(visits) == 0 {
		return []domain.Visit{}
	}
	return visits[:len(visits)-1]
}
