package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/metrics"
	repoMocks "github.com/joshdurbin/hashlink/internal/repository/mocks"
)

const testServerURL = "http://localhost:8080"

var fixedNow = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestService(repo *repoMocks.LinkRepository) *linkService {
	svc := NewLinkService(repo, NewTestGenerator(), testServerURL+"/", nil).(*linkService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestLinkService_Shorten(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		originalURL string
		setupMocks  func(*repoMocks.LinkRepository)
		want        *domain.ShortenResult
		wantErr     error
		wantPersist bool
	}{
		{
			name:        "successful creation",
			originalURL: "https://example.com/page?x=1",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("CreateLink", ctx, mock.MatchedBy(func(l *domain.Link) bool {
					return l.URL == "https://example.com/page?x=1" &&
						l.Hash == "abc-123456" &&
						l.Protocol == "https" &&
						l.Domain == "example.com" &&
						l.Path == "/page?x=1" &&
						!l.IsCustom &&
						l.Active &&
						l.RemoveToken == "token-000001" &&
						len(l.Visits) == 0 &&
						l.CreatedAt.Equal(fixedNow)
				})).Return(nil)
			},
			want: &domain.ShortenResult{
				URL:          "https://example.com/page?x=1",
				ShortenedURL: "http://localhost:8080/abc-123456",
				Hash:         "abc-123456",
				RemoveURL:    "http://localhost:8080/abc-123456/remove/token-000001",
			},
		},
		{
			name:        "invalid URL",
			originalURL: "not-a-url",
			setupMocks:  func(repo *repoMocks.LinkRepository) {},
			wantErr:     domain.ErrInvalidURL,
		},
		{
			name:        "empty URL",
			originalURL: "",
			setupMocks:  func(repo *repoMocks.LinkRepository) {},
			wantErr:     domain.ErrInvalidURL,
		},
		{
			name:        "hash conflict",
			originalURL: "https://example.com",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(domain.ErrHashConflict)
			},
			wantErr: domain.ErrHashConflict,
		},
		{
			name:        "repository error",
			originalURL: "https://example.com",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(assert.AnError)
			},
			wantErr:     assert.AnError,
			wantPersist: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.LinkRepository{}
			tt.setupMocks(repo)

			svc := newTestService(repo)
			result, err := svc.Shorten(ctx, tt.originalURL, "abc-123456")

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantPersist, domain.IsPersistence(err))
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, result)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestLinkService_Shorten_InvalidURLsNeverReachStore(t *testing.T) {
	invalid := []string{"", "example.com", "not a url", "/relative", "http:////host", "https://example.com/%zz"}

	for _, candidate := range invalid {
		t.Run(candidate, func(t *testing.T) {
			repo := &repoMocks.LinkRepository{}
			svc := newTestService(repo)

			_, err := svc.Shorten(context.Background(), candidate, "abc-123456")
			assert.ErrorIs(t, err, domain.ErrInvalidURL)
			repo.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything)
		})
	}
}

func TestLinkService_Shorten_TokenFailure(t *testing.T) {
	repo := &repoMocks.LinkRepository{}
	svc := NewLinkService(repo, failingGenerator{}, testServerURL, nil)

	_, err := svc.Shorten(context.Background(), "https://example.com", "abc-123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate remove token")
	repo.AssertNotCalled(t, "CreateLink", mock.Anything, mock.Anything)
}

func TestLinkService_GenerateHash(t *testing.T) {
	svc := newTestService(&repoMocks.LinkRepository{})

	first, err := svc.GenerateHash(context.Background(), "https://example.com")
	require.NoError(t, err)
	second, err := svc.GenerateHash(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, "test-000001", first)
	assert.Equal(t, "test-000002", second)

	_, err = NewLinkService(nil, failingGenerator{}, testServerURL, nil).GenerateHash(context.Background(), "https://example.com")
	assert.ErrorContains(t, err, "failed to generate hash")
}

func TestLinkService_Lookup(t *testing.T) {
	ctx := context.Background()
	stored := &domain.Link{
		ID:     "1",
		URL:    "https://example.com",
		Hash:   "abc-123456",
		Active: true,
		Visits: []domain.Visit{},
	}

	tests := []struct {
		name        string
		setupMocks  func(*repoMocks.LinkRepository)
		want        *domain.Link
		wantErr     error
		wantPersist bool
	}{
		{
			name: "found",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("RegisterVisit", ctx, "abc-123456", fixedNow).Return(stored, nil)
			},
			want: stored,
		},
		{
			name: "not found",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("RegisterVisit", ctx, "abc-123456", fixedNow).Return(nil, domain.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "repository error",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("RegisterVisit", ctx, "abc-123456", fixedNow).Return(nil, assert.AnError)
			},
			wantErr:     assert.AnError,
			wantPersist: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.LinkRepository{}
			tt.setupMocks(repo)

			link, err := newTestService(repo).Lookup(ctx, "abc-123456")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantPersist, domain.IsPersistence(err))
				assert.Nil(t, link)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, link)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestLinkService_Remove(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		hash        string
		token       string
		setupMocks  func(*repoMocks.LinkRepository)
		wantErr     error
		wantPersist bool
	}{
		{
			name:  "successful removal",
			hash:  "abc-123456",
			token: "secret",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("Deactivate", ctx, "abc-123456", "secret", fixedNow).
					Return(&domain.Link{Hash: "abc-123456", Active: false}, nil)
			},
		},
		{
			name:  "wrong token",
			hash:  "abc-123456",
			token: "wrong",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("Deactivate", ctx, "abc-123456", "wrong", fixedNow).Return(nil, domain.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:  "unknown hash",
			hash:  "missing",
			token: "secret",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("Deactivate", ctx, "missing", "secret", fixedNow).Return(nil, domain.ErrNotFound)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name:  "repository error",
			hash:  "abc-123456",
			token: "secret",
			setupMocks: func(repo *repoMocks.LinkRepository) {
				repo.On("Deactivate", ctx, "abc-123456", "secret", fixedNow).Return(nil, assert.AnError)
			},
			wantErr:     assert.AnError,
			wantPersist: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &repoMocks.LinkRepository{}
			tt.setupMocks(repo)

			err := newTestService(repo).Remove(ctx, tt.hash, tt.token)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.wantPersist, domain.IsPersistence(err))
			} else {
				assert.NoError(t, err)
			}

			repo.AssertExpectations(t)
		})
	}
}

func TestLinkService_Remove_OutcomesIndistinguishable(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.LinkRepository{}
	repo.On("Deactivate", ctx, "abc-123456", "wrong", fixedNow).Return(nil, domain.ErrNotFound)
	repo.On("Deactivate", ctx, "missing", "any", fixedNow).Return(nil, domain.ErrNotFound)

	svc := newTestService(repo)
	wrongToken := svc.Remove(ctx, "abc-123456", "wrong")
	unknownHash := svc.Remove(ctx, "missing", "any")

	assert.Equal(t, wrongToken, unknownHash)
	assert.Equal(t, wrongToken.Error(), unknownHash.Error())
}

func TestLinkService_Metrics(t *testing.T) {
	ctx := context.Background()
	repo := &repoMocks.LinkRepository{}
	repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(nil).Once()
	repo.On("CreateLink", ctx, mock.AnythingOfType("*domain.Link")).Return(domain.ErrHashConflict).Once()
	repo.On("RegisterVisit", ctx, "abc-123456", mock.AnythingOfType("time.Time")).Return(&domain.Link{}, nil)
	repo.On("RegisterVisit", ctx, "missing", mock.AnythingOfType("time.Time")).Return(nil, domain.ErrNotFound)
	repo.On("Deactivate", ctx, "abc-123456", "secret", mock.AnythingOfType("time.Time")).Return(&domain.Link{}, nil)

	m := metrics.New()
	svc := NewLinkService(repo, NewTestGenerator(), testServerURL, m)

	_, err := svc.Shorten(ctx, "https://example.com", "abc-123456")
	require.NoError(t, err)
	_, err = svc.Shorten(ctx, "https://example.com", "abc-123456")
	require.ErrorIs(t, err, domain.ErrHashConflict)
	_, _ = svc.Lookup(ctx, "abc-123456")
	_, _ = svc.Lookup(ctx, "abc-123456")
	_, _ = svc.Lookup(ctx, "missing")
	require.NoError(t, svc.Remove(ctx, "abc-123456", "secret"))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, "hashlink_links_shortened_total 1")
	assert.Contains(t, body, "hashlink_hash_conflicts_total 1")
	assert.Contains(t, body, `hashlink_lookups_total{result="found"} 2`)
	assert.Contains(t, body, `hashlink_lookups_total{result="not_found"} 1`)
	assert.Contains(t, body, `hashlink_removals_total{result="removed"} 1`)
}

func TestLinkService_Close(t *testing.T) {
	repo := &repoMocks.LinkRepository{}
	repo.On("Close").Return(nil).Once()
	assert.NoError(t, NewLinkService(repo, NewTestGenerator(), testServerURL, nil).Close())

	failing := &repoMocks.LinkRepository{}
	failing.On("Close").Return(assert.AnError).Once()
	err := NewLinkService(failing, NewTestGenerator(), testServerURL, nil).Close()
	assert.ErrorContains(t, err, "failed to close repository")

	repo.AssertExpectations(t)
	failing.AssertExpectations(t)
}

// failingGenerator fails every draw
type failingGenerator struct{}

func (failingGenerator) GenerateHash(context.Context, string, time.Time) (string, error) {
	return "", errors.New("entropy exhausted")
}

func (failingGenerator) GenerateRemoveToken(context.Context, time.Time) (string, error) {
	return "", errors.New("entropy exhausted")
}

func (failingGenerator) Type() string { return "failing" }

func (failingGenerator) Close() error { return nil }
