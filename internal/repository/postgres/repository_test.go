package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/repository"
	"github.com/joshdurbin/hashlink/internal/repository/storetest"
)

// startPostgres runs a disposable PostgreSQL container and returns its DSN
func startPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	tc.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("hashlink"),
		tcpostgres.WithUsername("hashlink"),
		tcpostgres.WithPassword("hashlink"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestRepository_Contract(t *testing.T) {
	dsn := startPostgres(t)

	storetest.Run(t, func(t *testing.T) repository.LinkRepository {
		ctx := context.Background()
		repo, err := New(ctx, dsn, DefaultOptions())
		require.NoError(t, err)

		_, err = repo.pool.Exec(ctx, "TRUNCATE TABLE links")
		require.NoError(t, err)

		t.Cleanup(func() { repo.Close() })
		return repo
	})
}

func TestRepository_Migrate_Idempotent(t *testing.T) {
	dsn := startPostgres(t)

	require.NoError(t, Migrate(dsn))
	require.NoError(t, Migrate(dsn))

	repo, err := New(context.Background(), dsn, Options{})
	require.NoError(t, err)
	defer repo.Close()

	assert.NoError(t, repo.Ping(context.Background()))
}

func TestRepository_New_InvalidDSN(t *testing.T) {
	repo, err := New(context.Background(), "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1", DefaultOptions())
	assert.Error(t, err)
	assert.Nil(t, repo)
}

func TestIsActiveHashViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"active hash index", &pgconn.PgError{Code: "23505", ConstraintName: "links_active_hash_key"}, true},
		{"wrapped", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", ConstraintName: "links_active_hash_key"}), true},
		{"other unique constraint", &pgconn.PgError{Code: "23505", ConstraintName: "links_pkey"}, false},
		{"other code", &pgconn.PgError{Code: "23502", ConstraintName: "links_active_hash_key"}, false},
		{"plain error", assert.AnError, false},
		{"domain conflict", domain.ErrHashConflict, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isActiveHashViolation(tt.err))
		})
	}
}
