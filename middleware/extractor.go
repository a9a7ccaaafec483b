package middleware

import (
	"errors"
	"net/http"
	"strings"
)

// TokenExtractor takes a request and returns the access token in it. An
// error should only be returned if a token was present but malformed; a
// request without a token yields an empty string and no error.
type TokenExtractor func(r *http.Request) (string, error)

// ErrMalformedAuthHeader is returned by AuthHeaderTokenExtractor for an
// Authorization header that is not "Bearer {token}".
var ErrMalformedAuthHeader = errors.New("authorization header format must be Bearer {token}")

// AuthHeaderTokenExtractor extracts the token from the Authorization header.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", nil
	}

	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrMalformedAuthHeader
	}

	return parts[1], nil
}

// CookieTokenExtractor builds a TokenExtractor that reads the token from the
// named cookie.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// MultiTokenExtractor runs extractors in order and returns the first
// non-empty token. An extractor error is returned immediately.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
