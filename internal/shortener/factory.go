package shortener

import (
	"fmt"
)

// MaxSuffixLength bounds the random part of generated identifiers
const MaxSuffixLength = 32

// NewGenerator creates the timestamp-based generator described by config
func NewGenerator(config Config) (Generator, error) {
	if config.SuffixLength < 1 || config.SuffixLength > MaxSuffixLength {
		return nil, fmt.Errorf("suffix length must be between 1 and %d, got: %d", MaxSuffixLength, config.SuffixLength)
	}

	return NewTimestampGenerator(config.SuffixLength), nil
}
