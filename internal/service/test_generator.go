package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joshdurbin/hashlink/internal/shortener"
)

// TestGenerator is a deterministic generator for testing purposes
type TestGenerator struct {
	mu     sync.Mutex
	hashes int
	tokens int
}

// NewTestGenerator creates a new test generator
func NewTestGenerator() *TestGenerator {
	return &TestGenerator{}
}

// GenerateHash returns test-000001, test-000002, ...
func (g *TestGenerator) GenerateHash(ctx context.Context, originalURL string, timestamp time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.hashes++
	return fmt.Sprintf("test-%06d", g.hashes), nil
}

// GenerateRemoveToken returns token-000001, token-000002, ...
func (g *TestGenerator) GenerateRemoveToken(ctx context.Context, timestamp time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tokens++
	return fmt.Sprintf("token-%06d", g.tokens), nil
}

// Type returns the generator type
func (g *TestGenerator) Type() string {
	return "test"
}

// Close performs cleanup
func (g *TestGenerator) Close() error {
	return nil
}

var _ shortener.Generator = (*TestGenerator)(nil)
