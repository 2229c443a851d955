package shortener

import (
	"context"
	"time"
)

// Generator defines the interface for generating link hashes and remove tokens
type Generator interface {
	// GenerateHash generates the public hash for the given URL. The URL does
	// not take part in derivation; hashes are time and randomness derived.
	GenerateHash(ctx context.Context, originalURL string, timestamp time.Time) (string, error)

	// GenerateRemoveToken generates the secret that authorizes removal
	GenerateRemoveToken(ctx context.Context, timestamp time.Time) (string, error)

	// Type returns the type identifier of the generator
	Type() string

	// Close performs cleanup when the generator is no longer needed
	Close() error
}

// Config holds configuration for shortener generators
type Config struct {
	SuffixLength int `json:"suffix_length" envconfig:"SUFFIX_LENGTH" default:"6"` // Number of random characters after the timestamp
}

// GeneratorType constants
const (
	TypeTimestamp = "timestamp"
)

// DefaultSuffixLength is the number of random characters in hashes and tokens
const DefaultSuffixLength = 6

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		SuffixLength: DefaultSuffixLength,
	}
}
