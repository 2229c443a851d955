package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/repository"
)

const linkColumns = `id, hash, url, protocol, domain, path, is_custom, remove_token, active, created_at, removed_at, visits`

// Repository implements repository.LinkRepository using SQLite
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository and applies pending migrations
func New(databasePath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dsn(databasePath))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to :memory: is a separate database
	if databasePath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	repo := &Repository{db: db}

	if err := repo.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

// dsn applies the connection pragmas to every pooled connection
func dsn(databasePath string) string {
	params := "_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate"
	if strings.Contains(databasePath, "?") {
		return databasePath + "&" + params
	}
	return databasePath + "?" + params
}

// CreateLink inserts a new active link
func (r *Repository) CreateLink(ctx context.Context, link *domain.Link) error {
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO links (hash, url, protocol, domain, path, is_custom, remove_token, active, created_at, visits)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, '[]')`,
		link.Hash, link.URL, link.Protocol, link.Domain, link.Path, link.IsCustom, link.RemoveToken, link.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrHashConflict
		}
		return fmt.Errorf("failed to create link: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read link id: %w", err)
	}

	link.ID = fmt.Sprintf("%d", id)
	link.Active = true
	link.CreatedAt = time.UnixMilli(link.CreatedAt.UnixMilli()).UTC()
	link.Visits = []domain.Visit{}
	return nil
}

// RegisterVisit appends a visit to the active link in a single UPDATE
func (r *Repository) RegisterVisit(ctx context.Context, hash string, visitedAt time.Time) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE links SET visits = json_insert(visits, '$[#]', ?)
		 WHERE hash = ? AND active = 1
		 RETURNING `+linkColumns,
		visitedAt.UnixMilli(), hash,
	)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to register visit: %w", err)
	}

	link.Visits = repository.PriorVisits(link.Visits)
	return link, nil
}

// Deactivate soft-deletes the active link when the remove token matches
func (r *Repository) Deactivate(ctx context.Context, hash, removeToken string, removedAt time.Time) (*domain.Link, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE links SET active = 0, removed_at = ?
		 WHERE hash = ? AND remove_token = ? AND active = 1
		 RETURNING `+linkColumns,
		removedAt.UnixMilli(), hash, removeToken,
	)

	link, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to deactivate link: %w", err)
	}

	return link, nil
}

// Ping checks the database connection
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the repository connection
func (r *Repository) Close() error {
	return r.db.Close()
}

// scanLink converts a links row to domain.Link
func scanLink(row *sql.Row) (*domain.Link, error) {
	var (
		id        int64
		link      domain.Link
		createdAt int64
		removedAt sql.NullInt64
		visits    string
	)

	err := row.Scan(&id, &link.Hash, &link.URL, &link.Protocol, &link.Domain, &link.Path,
		&link.IsCustom, &link.RemoveToken, &link.Active, &createdAt, &removedAt, &visits)
	if err != nil {
		return nil, err
	}

	var millis []int64
	if err := json.Unmarshal([]byte(visits), &millis); err != nil {
		return nil, fmt.Errorf("failed to decode visits: %w", err)
	}

	link.ID = fmt.Sprintf("%d", id)
	link.CreatedAt = time.UnixMilli(createdAt).UTC()
	if removedAt.Valid {
		t := time.UnixMilli(removedAt.Int64).UTC()
		link.RemovedAt = &t
	}
	link.Visits = make([]domain.Visit, len(millis))
	for i, ms := range millis {
		link.Visits[i] = domain.Visit{Date: time.UnixMilli(ms).UTC()}
	}

	return &link, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// Ensure Repository implements the interface
var _ repository.LinkRepository = (*Repository)(nil)
