package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	t.Run("it matches its own kind and nothing else", func(t *testing.T) {
		err := NewError(ErrTokenExpired, "token has expired", nil)

		assert.ErrorIs(t, err, ErrTokenExpired)
		assert.NotErrorIs(t, err, ErrInvalidSignature)
		assert.Equal(t, "token has expired", err.Error())
		assert.Equal(t, ErrorCodeTokenExpired, err.Code())
	})

	t.Run("it matches the kinds of wrapped causes", func(t *testing.T) {
		cause := NewError(ErrProviderUnreachable, "could not fetch JWKS", errors.New("connection refused"))
		err := NewError(ErrKeyUnavailable, "signing key unavailable", cause)

		assert.ErrorIs(t, err, ErrKeyUnavailable)
		assert.ErrorIs(t, err, ErrProviderUnreachable)
		assert.Equal(t, "signing key unavailable: could not fetch JWKS: connection refused", err.Error())
	})

	t.Run("it survives fmt.Errorf wrapping", func(t *testing.T) {
		err := fmt.Errorf("callback: %w", NewError(ErrCSRFStateMismatch, "state mismatch", nil))

		assert.ErrorIs(t, err, ErrCSRFStateMismatch)
		assert.Equal(t, ErrCSRFStateMismatch, KindOf(err))
	})
}

func TestKindOf(t *testing.T) {
	t.Run("it returns the outermost kind", func(t *testing.T) {
		inner := NewError(ErrNoUsableKey, "no RS256 key", nil)
		outer := NewError(ErrKeyUnavailable, "signing key unavailable", inner)

		assert.Equal(t, ErrKeyUnavailable, KindOf(outer))
		assert.Equal(t, ErrorCodeKeyUnavailable, CodeOf(outer))
	})

	t.Run("it returns nil for foreign errors", func(t *testing.T) {
		assert.Nil(t, KindOf(errors.New("boom")))
		assert.Equal(t, "unknown", CodeOf(errors.New("boom")))
		assert.Nil(t, KindOf(nil))
	})
}
