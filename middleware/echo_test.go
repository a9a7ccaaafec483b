package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackrose-eve/eve-oauth2/core"
)

func newEchoServer(t *testing.T, m *Middleware, onError ...EchoErrorHandler) *echo.Echo {
	t.Helper()

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		claims, ok := EchoClaims(c)
		if !ok {
			return c.JSON(http.StatusOK, map[string]any{"name": "anonymous"})
		}
		fromCtx, _ := ClaimsFromContext(c.Request().Context())
		return c.JSON(http.StatusOK, map[string]any{"name": claims.Name, "same": fromCtx == claims})
	}, m.Echo(onError...))
	return e
}

func TestMiddleware_Echo(t *testing.T) {
	testCases := []struct {
		name          string
		verifier      *fakeVerifier
		options       []Option
		header        string
		wantStatus    int
		wantBody      string
		wantChallenge string
	}{
		{
			name:       "valid token",
			verifier:   &fakeVerifier{claims: testClaims},
			header:     "Bearer token",
			wantStatus: http.StatusOK,
			wantBody:   `{"name":"Rixx Javix","same":true}`,
		},
		{
			name:          "missing token",
			verifier:      &fakeVerifier{claims: testClaims},
			wantStatus:    http.StatusUnauthorized,
			wantBody:      `{"error":"token_missing","message":"An access token is required."}`,
			wantChallenge: `Bearer realm="eve-oauth2"`,
		},
		{
			name:       "optional credentials",
			verifier:   &fakeVerifier{claims: testClaims},
			options:    []Option{WithCredentialsOptional(true)},
			wantStatus: http.StatusOK,
			wantBody:   `{"name":"anonymous"}`,
		},
		{
			name:          "expired token",
			verifier:      &fakeVerifier{err: core.NewError(core.ErrTokenExpired, "expired", nil)},
			header:        "Bearer token",
			wantStatus:    http.StatusUnauthorized,
			wantBody:      `{"error":"token_expired","message":"The access token is invalid."}`,
			wantChallenge: `Bearer realm="eve-oauth2", error="invalid_token"`,
		},
		{
			name:       "keys unavailable",
			verifier:   &fakeVerifier{err: core.NewError(core.ErrKeyUnavailable, "no keys", nil)},
			header:     "Bearer token",
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"key_unavailable","message":"The token could not be verified right now."}`,
		},
		{
			name:          "missing scope",
			verifier:      &fakeVerifier{claims: testClaims},
			options:       []Option{WithRequiredScopes("esi-mail.read_mail.v1")},
			header:        "Bearer token",
			wantStatus:    http.StatusForbidden,
			wantBody:      `{"error":"insufficient_scope","message":"The access token lacks a required scope."}`,
			wantChallenge: `Bearer realm="eve-oauth2", error="insufficient_scope", scope="esi-mail.read_mail.v1"`,
		},
		{
			name:       "malformed header",
			verifier:   &fakeVerifier{claims: testClaims},
			header:     "token",
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid_request","message":"Authorization header format must be Bearer {token}."}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New(tc.verifier, tc.options...)
			require.NoError(t, err)

			r := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			newEchoServer(t, m).ServeHTTP(w, r)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
			assert.Equal(t, tc.wantChallenge, w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestMiddleware_EchoCustomErrorHandler(t *testing.T) {
	m, err := New(&fakeVerifier{claims: testClaims})
	require.NoError(t, err)

	var got error
	e := newEchoServer(t, m, func(c echo.Context, err error) error {
		got = err
		return c.NoContent(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.True(t, errors.Is(got, ErrTokenMissing), "got %v", got)
}
