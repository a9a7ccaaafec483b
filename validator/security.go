package validator

import (
	"errors"
	"strings"
)

var (
	// ErrExcessiveTokenDots is returned when a token contains too many dots.
	ErrExcessiveTokenDots = errors.New("token contains excessive dots")

	// ErrTokenTooLarge is returned for tokens over maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size (1MB)")
)

const (
	// maxTokenDots is checked before any splitting or decoding so hostile
	// inputs never reach the parser. A compact JWS has exactly 2.
	maxTokenDots = 5

	// maxTokenSize bounds the raw token. EVE tokens are around 1KB.
	maxTokenSize = 1024 * 1024
)

// validateTokenFormat rejects obviously malformed input before parsing.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token is empty")
	}

	if len(tokenString) > maxTokenSize {
		return ErrTokenTooLarge
	}

	dotCount := strings.Count(tokenString, ".")
	if dotCount > maxTokenDots {
		return ErrExcessiveTokenDots
	}
	if dotCount != 2 {
		return errors.New("token is not a compact JWS (expected 3 segments)")
	}

	return nil
}
