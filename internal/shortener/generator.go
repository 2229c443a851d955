package shortener

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const (
	// Base62 characters: 0-9, a-z, A-Z (case sensitive)
	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	separator   = "-"
)

// TimestampGenerator builds identifiers of the form <base36 millis>-<random suffix>
type TimestampGenerator struct {
	random       io.Reader
	suffixLength int
}

// NewTimestampGenerator creates a generator drawing from crypto/rand
func NewTimestampGenerator(suffixLength int) *TimestampGenerator {
	return newTimestampGenerator(rand.Reader, suffixLength)
}

func newTimestampGenerator(random io.Reader, suffixLength int) *TimestampGenerator {
	if suffixLength <= 0 {
		suffixLength = DefaultSuffixLength
	}
	return &TimestampGenerator{
		random:       random,
		suffixLength: suffixLength,
	}
}

// GenerateHash generates a hash for the link; originalURL is not used
func (g *TimestampGenerator) GenerateHash(ctx context.Context, originalURL string, timestamp time.Time) (string, error) {
	return g.generate(timestamp)
}

// GenerateRemoveToken generates an independent identifier used as the removal secret
func (g *TimestampGenerator) GenerateRemoveToken(ctx context.Context, timestamp time.Time) (string, error) {
	return g.generate(timestamp)
}

func (g *TimestampGenerator) generate(timestamp time.Time) (string, error) {
	suffix, err := g.randomSuffix()
	if err != nil {
		return "", fmt.Errorf("failed to generate random suffix: %w", err)
	}
	return toBase36(timestamp.UnixMilli()) + separator + suffix, nil
}

// randomSuffix draws suffixLength characters uniformly, with replacement
func (g *TimestampGenerator) randomSuffix() (string, error) {
	var sb strings.Builder
	sb.Grow(g.suffixLength)

	buf := make([]byte, g.suffixLength)
	for sb.Len() < g.suffixLength {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", err
		}
		// Keep the low 6 bits and reject 62 and 63 so every character is equally likely
		for _, b := range buf {
			v := b & 0x3f
			if v >= byte(len(base62Chars)) {
				continue
			}
			sb.WriteByte(base62Chars[v])
			if sb.Len() == g.suffixLength {
				break
			}
		}
	}
	return sb.String(), nil
}

// toBase36 converts milliseconds to lower-case base36
func toBase36(millis int64) string {
	return strconv.FormatInt(millis, 36)
}

// Type returns the generator type
func (g *TimestampGenerator) Type() string {
	return TypeTimestamp
}

// Close performs cleanup
func (g *TimestampGenerator) Close() error {
	return nil
}

// Ensure TimestampGenerator implements Generator interface
var _ Generator = (*TimestampGenerator)(nil)
