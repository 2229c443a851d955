package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/repository"
	"github.com/joshdurbin/hashlink/internal/repository/storetest"
)

func TestRepository_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) repository.LinkRepository {
		return setupTestRepo(t)
	})
}

func TestRepository_New(t *testing.T) {
	dbPath := createTempDB(t)

	repo, err := New(dbPath)
	require.NoError(t, err)
	assert.NotNil(t, repo)
	assert.NotNil(t, repo.db)

	// Verify database connection is working
	assert.NoError(t, repo.db.Ping())

	version, err := repo.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	assert.NoError(t, repo.Close())
}

func TestRepository_New_Reopen(t *testing.T) {
	dbPath := createTempDB(t)
	ctx := context.Background()

	repo, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, repo.CreateLink(ctx, storetest.NewLink("keep-000000")))
	require.NoError(t, repo.Close())

	// Migrations are idempotent and data survives
	repo, err = New(dbPath)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.RegisterVisit(ctx, "keep-000000", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/page?x=1", got.URL)
}

func TestRepository_New_InvalidPath(t *testing.T) {
	repo, err := New("/invalid/path/to/database.db")
	assert.Error(t, err)
	assert.Nil(t, repo)
}

func TestRepository_InMemory(t *testing.T) {
	repo, err := New(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()
	require.NoError(t, repo.CreateLink(ctx, storetest.NewLink("mem-000000")))

	_, err = repo.RegisterVisit(ctx, "mem-000000", time.Now())
	assert.NoError(t, err)
}

func TestRepository_CreateLink_ConflictIsNotWrapped(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateLink(ctx, storetest.NewLink("same")))
	err := repo.CreateLink(ctx, storetest.NewLink("same"))
	assert.Equal(t, domain.ErrHashConflict, err)
}

func TestRepository_Deactivate_KeepsVisits(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	link := storetest.NewLink("hist-000000")
	require.NoError(t, repo.CreateLink(ctx, link))

	_, err := repo.RegisterVisit(ctx, link.Hash, time.Now())
	require.NoError(t, err)

	got, err := repo.Deactivate(ctx, link.Hash, link.RemoveToken, time.Now())
	require.NoError(t, err)
	assert.Len(t, got.Visits, 1)
}

func TestRepository_Close(t *testing.T) {
	repo, err := New(createTempDB(t))
	require.NoError(t, err)

	assert.NoError(t, repo.Close())

	// Try to use after close (should fail)
	_, err = repo.RegisterVisit(context.Background(), "abc", time.Now())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
	assert.Error(t, repo.Ping(context.Background()))
}

func TestRepository_ContextCancellation(t *testing.T) {
	repo := setupTestRepo(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repo.CreateLink(ctx, storetest.NewLink("ctx-000000"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "/tmp/a.db?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dsn("/tmp/a.db"))
	assert.Equal(t, "file:a.db?cache=shared&_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", dsn("file:a.db?cache=shared"))
}

// Helper functions

func createTempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "links.db")
}

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(createTempDB(t))
	require.NoError(t, err)

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}
