// Package storetest holds the behavioral checks every repository.LinkRepository
// implementation must pass.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/repository"
)

// Factory returns an empty store. The store is closed by the caller's cleanup.
type Factory func(t *testing.T) repository.LinkRepository

// Run executes the shared store suite against stores built by newRepo
func Run(t *testing.T, newRepo Factory) {
	t.Run("CreateLink", func(t *testing.T) { testCreateLink(t, newRepo(t)) })
	t.Run("CreateLink_HashConflict", func(t *testing.T) { testHashConflict(t, newRepo(t)) })
	t.Run("RegisterVisit_ReturnsPriorSnapshot", func(t *testing.T) { testRegisterVisit(t, newRepo(t)) })
	t.Run("RegisterVisit_NotFound", func(t *testing.T) { testRegisterVisitNotFound(t, newRepo(t)) })
	t.Run("RegisterVisit_Concurrent", func(t *testing.T) { testConcurrentVisits(t, newRepo(t)) })
	t.Run("Deactivate", func(t *testing.T) { testDeactivate(t, newRepo(t)) })
	t.Run("Deactivate_WrongToken", func(t *testing.T) { testDeactivateWrongToken(t, newRepo(t)) })
	t.Run("Deactivate_Twice", func(t *testing.T) { testDeactivateTwice(t, newRepo(t)) })
	t.Run("HashReuseAfterRemoval", func(t *testing.T) { testHashReuse(t, newRepo(t)) })
	t.Run("Ping", func(t *testing.T) { assert.NoError(t, newRepo(t).Ping(context.Background())) })
}

// NewLink builds an unsaved link for hash
func NewLink(hash string) *domain.Link {
	return &domain.Link{
		URL:         "https://example.com/page?x=1",
		Hash:        hash,
		Protocol:    "https",
		Domain:      "example.com",
		Path:        "/page?x=1",
		RemoveToken: "token-" + hash,
		CreatedAt:   time.Now().UTC(),
	}
}

func testCreateLink(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("abc-123456")

	require.NoError(t, repo.CreateLink(ctx, link))
	assert.NotEmpty(t, link.ID)
	assert.True(t, link.Active)
	assert.Empty(t, link.Visits)

	got, err := repo.RegisterVisit(ctx, link.Hash, time.Now())
	require.NoError(t, err)
	assert.Equal(t, link.ID, got.ID)
	assert.Equal(t, link.URL, got.URL)
	assert.Equal(t, link.Hash, got.Hash)
	assert.Equal(t, link.Protocol, got.Protocol)
	assert.Equal(t, link.Domain, got.Domain)
	assert.Equal(t, link.Path, got.Path)
	assert.Equal(t, link.RemoveToken, got.RemoveToken)
	assert.False(t, got.IsCustom)
	assert.True(t, got.Active)
	assert.Nil(t, got.RemovedAt)
	assert.WithinDuration(t, link.CreatedAt, got.CreatedAt, time.Second)
}

func testHashConflict(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()

	require.NoError(t, repo.CreateLink(ctx, NewLink("dup-000000")))

	err := repo.CreateLink(ctx, NewLink("dup-000000"))
	assert.ErrorIs(t, err, domain.ErrHashConflict)
}

func testRegisterVisit(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("vis-000000")
	require.NoError(t, repo.CreateLink(ctx, link))

	first := time.UnixMilli(1700000000000).UTC()
	second := first.Add(time.Minute)

	got, err := repo.RegisterVisit(ctx, link.Hash, first)
	require.NoError(t, err)
	assert.Empty(t, got.Visits)

	got, err = repo.RegisterVisit(ctx, link.Hash, second)
	require.NoError(t, err)
	require.Len(t, got.Visits, 1)
	assert.True(t, first.Equal(got.Visits[0].Date))

	got, err = repo.RegisterVisit(ctx, link.Hash, second.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, got.Visits, 2)
	assert.True(t, first.Equal(got.Visits[0].Date))
	assert.True(t, second.Equal(got.Visits[1].Date))
}

func testRegisterVisitNotFound(t *testing.T, repo repository.LinkRepository) {
	_, err := repo.RegisterVisit(context.Background(), "missing", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testConcurrentVisits(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("con-000000")
	require.NoError(t, repo.CreateLink(ctx, link))

	const visitors = 20
	var wg sync.WaitGroup
	errs := make(chan error, visitors)

	for i := 0; i < visitors; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.RegisterVisit(ctx, link.Hash, time.Now())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	got, err := repo.RegisterVisit(ctx, link.Hash, time.Now())
	require.NoError(t, err)
	assert.Len(t, got.Visits, visitors)
}

func testDeactivate(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("del-000000")
	require.NoError(t, repo.CreateLink(ctx, link))

	removedAt := time.UnixMilli(1700000000000).UTC()
	got, err := repo.Deactivate(ctx, link.Hash, link.RemoveToken, removedAt)
	require.NoError(t, err)
	assert.False(t, got.Active)
	require.NotNil(t, got.RemovedAt)
	assert.True(t, removedAt.Equal(*got.RemovedAt))

	_, err = repo.RegisterVisit(ctx, link.Hash, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testDeactivateWrongToken(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("tok-000000")
	require.NoError(t, repo.CreateLink(ctx, link))

	_, err := repo.Deactivate(ctx, link.Hash, "wrong", time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = repo.Deactivate(ctx, "missing", link.RemoveToken, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := repo.RegisterVisit(ctx, link.Hash, time.Now())
	require.NoError(t, err)
	assert.True(t, got.Active)
}

func testDeactivateTwice(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	link := NewLink("two-000000")
	require.NoError(t, repo.CreateLink(ctx, link))

	_, err := repo.Deactivate(ctx, link.Hash, link.RemoveToken, time.Now())
	require.NoError(t, err)

	_, err = repo.Deactivate(ctx, link.Hash, link.RemoveToken, time.Now())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testHashReuse(t *testing.T, repo repository.LinkRepository) {
	ctx := context.Background()
	old := NewLink("reu-000000")
	require.NoError(t, repo.CreateLink(ctx, old))

	_, err := repo.Deactivate(ctx, old.Hash, old.RemoveToken, time.Now())
	require.NoError(t, err)

	replacement := NewLink(old.Hash)
	replacement.URL = "https://other.example.com"
	replacement.RemoveToken = fmt.Sprintf("%s-new", old.RemoveToken)
	require.NoError(t, repo.CreateLink(ctx, replacement))

	got, err := repo.RegisterVisit(ctx, old.Hash, time.Now())
	require.NoError(t, err)
	assert.Equal(t, replacement.URL, got.URL)
	assert.Equal(t, replacement.ID, got.ID)
}
