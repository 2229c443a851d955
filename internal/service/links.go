package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joshdurbin/hashlink/internal/domain"
	"github.com/joshdurbin/hashlink/internal/linkurl"
	"github.com/joshdurbin/hashlink/internal/metrics"
	"github.com/joshdurbin/hashlink/internal/repository"
	"github.com/joshdurbin/hashlink/internal/shortener"
)

// linkService implements LinkService
type linkService struct {
	repo      repository.LinkRepository
	generator shortener.Generator
	serverURL string
	metrics   *metrics.Metrics
	now       func() time.Time
}

// NewLinkService creates a new link service. serverURL is the public
// protocol and host used to build absolute links, without a trailing slash.
func NewLinkService(repo repository.LinkRepository, generator shortener.Generator, serverURL string, m *metrics.Metrics) LinkService {
	return &linkService{
		repo:      repo,
		generator: generator,
		serverURL: strings.TrimRight(serverURL, "/"),
		metrics:   m,
		now:       time.Now,
	}
}

// GenerateHash produces a fresh hash for originalURL
func (s *linkService) GenerateHash(ctx context.Context, originalURL string) (string, error) {
	hash, err := s.generator.GenerateHash(ctx, originalURL, s.now())
	if err != nil {
		return "", fmt.Errorf("failed to generate hash: %w", err)
	}
	return hash, nil
}

// Shorten validates originalURL and stores it under hash
func (s *linkService) Shorten(ctx context.Context, originalURL, hash string) (*domain.ShortenResult, error) {
	if !linkurl.IsValid(originalURL) {
		return nil, domain.ErrInvalidURL
	}

	createdAt := s.now()
	removeToken, err := s.generator.GenerateRemoveToken(ctx, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate remove token: %w", err)
	}

	parts := linkurl.Decompose(originalURL)
	link := &domain.Link{
		URL:         originalURL,
		Hash:        hash,
		Protocol:    parts.Protocol,
		Domain:      parts.Domain,
		Path:        parts.Path,
		IsCustom:    false,
		RemoveToken: removeToken,
		Active:      true,
		CreatedAt:   createdAt,
		Visits:      []domain.Visit{},
	}

	if err := s.repo.CreateLink(ctx, link); err != nil {
		if errors.Is(err, domain.ErrHashConflict) {
			s.metrics.HashConflict()
			return nil, err
		}
		return nil, &domain.PersistenceError{Op: "create link", Err: err}
	}

	s.metrics.LinkShortened()

	return &domain.ShortenResult{
		URL:          originalURL,
		ShortenedURL: s.shortenedURL(hash),
		Hash:         hash,
		RemoveURL:    s.shortenedURL(hash) + "/remove/" + removeToken,
	}, nil
}

// Lookup resolves an active hash and records a visit
func (s *linkService) Lookup(ctx context.Context, hash string) (*domain.Link, error) {
	link, err := s.repo.RegisterVisit(ctx, hash, s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.Lookup(metrics.ResultNotFound)
			return nil, domain.ErrNotFound
		}
		s.metrics.Lookup(metrics.ResultError)
		return nil, &domain.PersistenceError{Op: "lookup link", Err: err}
	}

	s.metrics.Lookup(metrics.ResultFound)
	return link, nil
}

// Remove soft-deletes the active link matching hash and removeToken. A wrong
// token is reported exactly like an unknown hash.
func (s *linkService) Remove(ctx context.Context, hash, removeToken string) error {
	if _, err := s.repo.Deactivate(ctx, hash, removeToken, s.now()); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.metrics.Removal(metrics.ResultNotFound)
			return domain.ErrNotFound
		}
		s.metrics.Removal(metrics.ResultError)
		return &domain.PersistenceError{Op: "remove link", Err: err}
	}

	s.metrics.Removal(metrics.ResultRemoved)
	return nil
}

// Ping checks that the link store is reachable
func (s *linkService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// Close closes the service and its dependencies
func (s *linkService) Close() error {
	if err := s.generator.Close(); err != nil {
		return fmt.Errorf("failed to close generator: %w", err)
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("failed to close repository: %w", err)
	}
	return nil
}

func (s *linkService) shortenedURL(hash string) string {
	return s.serverURL + "/" + hash
}

// Ensure linkService implements LinkService interface
var _ LinkService = (*linkService)(nil)
