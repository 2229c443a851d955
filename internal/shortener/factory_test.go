package shortener

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestNewGenerator(t *testing.T) {
	testCases := []struct {
		name         string
		config       Config
		expectedType string
		shouldError  bool
	}{
		{
			name:         "Default config",
			config:       DefaultConfig(),
			expectedType: TypeTimestamp,
			shouldError:  false,
		},
		{
			name: "Longer suffix",
			config: Config{
				SuffixLength: 10,
			},
			expectedType: TypeTimestamp,
			shouldError:  false,
		},
		{
			name: "Zero suffix",
			config: Config{
				SuffixLength: 0,
			},
			shouldError: true,
		},
		{
			name: "Suffix too long",
			config: Config{
				SuffixLength: MaxSuffixLength + 1,
			},
			shouldError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			generator, err := NewGenerator(tc.config)

			if tc.shouldError {
				if err == nil {
					t.Error("Expected error but got none")
				}
				if generator != nil {
					t.Error("Expected nil generator on error")
				}
				return
			}

			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if generator.Type() != tc.expectedType {
				t.Errorf("Expected type %s, got %s", tc.expectedType, generator.Type())
			}

			hash, err := generator.GenerateHash(context.Background(), "https://example.com", time.Now())
			if err != nil {
				t.Fatalf("GenerateHash failed: %v", err)
			}
			suffix := strings.SplitN(hash, separator, 2)[1]
			if len(suffix) != tc.config.SuffixLength {
				t.Errorf("Expected suffix length %d, got %d (%s)", tc.config.SuffixLength, len(suffix), hash)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.SuffixLength != 6 {
		t.Errorf("Expected default suffix length 6, got %d", config.SuffixLength)
	}
}
