package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/repository"
)

const (
	activeHashConstraint = "links_active_hash_key"
	uniqueViolation      = "23505"

	linkColumns = `id, hash, url, protocol, domain, path, is_custom, remove_token, active, created_at, removed_at, visits`
)

// Options tunes the connection pool
type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultOptions returns pool settings suitable for a single service instance
func DefaultOptions() Options {
	return Options{
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: 30 * time.Minute,
		MaxConnIdleTime: 5 * time.Minute,
	}
}

// Repository implements repository.LinkRepository using PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, applies pending migrations and returns the repository
func New(ctx context.Context, dsn string, opts Options) (*Repository, error) {
	if err := Migrate(dsn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		config.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// CreateLink inserts a new active link
func (r *Repository) CreateLink(ctx context.Context, link *domain.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO links (hash, url, protocol, domain, path, is_custom, remove_token, active, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8)
		 RETURNING id, created_at`,
		link.Hash, link.URL, link.Protocol, link.Domain, link.Path, link.IsCustom, link.RemoveToken, link.CreatedAt,
	).Scan(&id, &link.CreatedAt)
	if err != nil {
		if isActiveHashViolation(err) {
			return domain.ErrHashConflict
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	link.ID = strconv.FormatInt(id, 10)
	link.CreatedAt = link.CreatedAt.UTC()
	link.Active = true
	link.Visits = []domain.Visit{}
	return nil
}

// RegisterVisit appends a visit to the active link in a single UPDATE
func (r *Repository) RegisterVisit(ctx context.Context, hash string, visitedAt time.Time) (*domain.Link, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE links SET visits = array_append(visits, $1::timestamptz)
		 WHERE hash = $2 AND active
		 RETURNING `+linkColumns,
		visitedAt, hash,
	)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to register visit: %w", err)
	}

	link.Visits = repository.PriorVisits(link.Visits)
	return link, nil
}

// Deactivate soft-deletes the active link when the remove token matches
func (r *Repository) Deactivate(ctx context.Context, hash, removeToken string, removedAt time.Time) (*domain.Link, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE links SET active = FALSE, removed_at = $1
		 WHERE hash = $2 AND remove_token = $3 AND active
		 RETURNING `+linkColumns,
		removedAt, hash, removeToken,
	)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to deactivate link: %w", err)
	}

	return link, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the connection pool
func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func scanLink(row pgx.Row) (*domain.Link, error) {
	var (
		id     int64
		link   domain.Link
		visits []time.Time
	)

	err := row.Scan(&id, &link.Hash, &link.URL, &link.Protocol, &link.Domain, &link.Path,
		&link.IsCustom, &link.RemoveToken, &link.Active, &link.CreatedAt, &link.RemovedAt, &visits)
	if err != nil {
		return nil, err
	}

	link.ID = strconv.FormatInt(id, 10)
	link.CreatedAt = link.CreatedAt.UTC()
	if link.RemovedAt != nil {
		t := link.RemovedAt.UTC()
		link.RemovedAt = &t
	}
	for i := range visits {
		visits[i] = visits[i].UTC()
	}
	link.Visits = domain.VisitsFromTimes(visits)

	return &link, nil
}

func isActiveHashViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == activeHashConstraint
}

// Ensure Repository implements the interface
var _ repository.LinkRepository = (*Repository)(nil)
