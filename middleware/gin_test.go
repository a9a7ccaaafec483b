package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackrose-eve/eve-oauth2/core"
)

func newGinRouter(t *testing.T, m *Middleware, onError ...GinErrorHandler) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/me", m.Gin(onError...), func(c *gin.Context) {
		claims, ok := GinClaims(c)
		if !ok {
			c.JSON(http.StatusOK, gin.H{"name": "anonymous"})
			return
		}
		fromCtx, _ := ClaimsFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"name": claims.Name, "same": fromCtx == claims})
	})
	return router
}

func TestMiddleware_Gin(t *testing.T) {
	testCases := []struct {
		name       string
		verifier   *fakeVerifier
		options    []Option
		header     string
		wantStatus int
		wantBody   string
	}{
		{
			name:       "valid token",
			verifier:   &fakeVerifier{claims: testClaims},
			header:     "Bearer token",
			wantStatus: http.StatusOK,
			wantBody:   `{"name":"Rixx Javix","same":true}`,
		},
		{
			name:       "missing token",
			verifier:   &fakeVerifier{claims: testClaims},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"token_missing","message":"An access token is required."}`,
		},
		{
			name:       "optional credentials",
			verifier:   &fakeVerifier{claims: testClaims},
			options:    []Option{WithCredentialsOptional(true)},
			wantStatus: http.StatusOK,
			wantBody:   `{"name":"anonymous"}`,
		},
		{
			name:       "invalid issuer",
			verifier:   &fakeVerifier{err: core.NewError(core.ErrInvalidIssuer, "wrong issuer", nil)},
			header:     "Bearer token",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"invalid_issuer","message":"The access token is invalid."}`,
		},
		{
			name:       "missing scope",
			verifier:   &fakeVerifier{claims: testClaims},
			options:    []Option{WithRequiredScopes("esi-mail.read_mail.v1")},
			header:     "Bearer token",
			wantStatus: http.StatusForbidden,
			wantBody:   `{"error":"insufficient_scope","message":"The access token lacks a required scope."}`,
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
			newGinRouter(t, m).ServeHTTP(w, r)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.JSONEq(t, tc.wantBody, w.Body.String())
		})
	}
}

func TestMiddleware_GinCustomErrorHandler(t *testing.T) {
	m, err := New(&fakeVerifier{claims: testClaims})
	require.NoError(t, err)

	router := newGinRouter(t, m, func(c *gin.Context, err error) {
		c.AbortWithStatus(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
