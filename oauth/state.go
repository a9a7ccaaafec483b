package oauth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// stateSize is the number of random bytes in a CSRF state value.
const stateSize = 32

// GenerateState creates a cryptographically secure random state string for
// CSRF protection: 32 bytes, base64url-encoded without padding.
func GenerateState() (string, error) {
	b := make([]byte, stateSize)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CheckState compares the state stored before redirecting the user with the
// state the provider sent back, in constant time. An empty or different
// value is ErrCSRFStateMismatch.
func CheckState(expected, returned string) error {
	if expected == "" || returned == "" {
		return core.NewError(core.ErrCSRFStateMismatch, "state is missing", nil)
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(returned)) != 1 {
		return core.NewError(core.ErrCSRFStateMismatch, "state does not match", nil)
	}
	return nil
}
