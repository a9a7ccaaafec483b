package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/internal/testprovider"
	"github.com/blackrose-eve/eve-oauth2/jwks"
	"github.com/blackrose-eve/eve-oauth2/validator"
)

type fakeVerifier struct {
	claims *validator.IdentityClaims
	err    error
	calls  int
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (*validator.IdentityClaims, error) {
	f.calls++
	return f.claims, f.err
}

var testClaims = &validator.IdentityClaims{
	Subject: "CHARACTER:EVE:2112625428",
	Name:    "Rixx Javix",
	Scopes:  []string{"publicData", "esi-skills.read_skills.v1"},
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	name := "anonymous"
	if claims, ok := ClaimsFromContext(r.Context()); ok {
		name = claims.Name
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"name": name})
})

func TestNew(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)

	invalid := map[string]Option{
		"nil extractor":     WithTokenExtractor(nil),
		"nil error handler": WithErrorHandler(nil),
		"empty scope":       WithRequiredScopes("publicData", ""),
		"nil logger":        WithLogger(nil),
	}
	for name, opt := range invalid {
		t.Run(name, func(t *testing.T) {
			m, err := New(&fakeVerifier{}, opt)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestMiddleware_Handler(t *testing.T) {
	testCases := []struct {
		name          string
		verifier      *fakeVerifier
		options       []Option
		method        string
		header        string
		wantStatus    int
		wantError     string
		wantName      string
		wantChallenge string
		wantCalls     int
	}{
		{
			name:       "valid token",
			verifier:   &fakeVerifier{claims: testClaims},
			header:     "Bearer token",
			wantStatus: http.StatusOK,
			wantName:   "Rixx Javix",
			wantCalls:  1,
		},
		{
			name:          "missing token",
			verifier:      &fakeVerifier{claims: testClaims},
			wantStatus:    http.StatusUnauthorized,
			wantError:     "token_missing",
			wantChallenge: `Bearer realm="eve-oauth2"`,
		},
		{
			name:       "missing token with optional credentials",
			verifier:   &fakeVerifier{claims: testClaims},
			options:    []Option{WithCredentialsOptional(true)},
			wantStatus: http.StatusOK,
			wantName:   "anonymous",
		},
		{
			name:          "invalid token with optional credentials",
			verifier:      &fakeVerifier{err: core.NewError(core.ErrTokenExpired, "token expired", nil)},
			options:       []Option{WithCredentialsOptional(true)},
			header:        "Bearer token",
			wantStatus:    http.StatusUnauthorized,
			wantError:     core.ErrorCodeTokenExpired,
			wantChallenge: `Bearer realm="eve-oauth2", error="invalid_token"`,
			wantCalls:     1,
		},
		{
			name:       "malformed header",
			verifier:   &fakeVerifier{claims: testClaims},
			header:     "Token abc",
			wantStatus: http.StatusBadRequest,
			wantError:  "invalid_request",
		},
		{
			name:          "bad signature",
			verifier:      &fakeVerifier{err: core.NewError(core.ErrInvalidSignature, "bad signature", nil)},
			header:        "Bearer token",
			wantStatus:    http.StatusUnauthorized,
			wantError:     core.ErrorCodeInvalidSignature,
			wantChallenge: `Bearer realm="eve-oauth2", error="invalid_token"`,
			wantCalls:     1,
		},
		{
			name: "keys unavailable",
			verifier: &fakeVerifier{err: core.NewError(core.ErrKeyUnavailable, "no keys",
				core.NewError(core.ErrProviderUnreachable, "down", nil))},
			header:     "Bearer token",
			wantStatus: http.StatusServiceUnavailable,
			wantError:  core.ErrorCodeKeyUnavailable,
			wantCalls:  1,
		},
		{
			name:       "required scopes granted",
			verifier:   &fakeVerifier{claims: testClaims},
			options:    []Option{WithRequiredScopes("esi-skills.read_skills.v1")},
			header:     "Bearer token",
			wantStatus: http.StatusOK,
			wantName:   "Rixx Javix",
			wantCalls:  1,
		},
		{
			name:          "required scope missing",
			verifier:      &fakeVerifier{claims: testClaims},
			options:       []Option{WithRequiredScopes("publicData", "esi-wallet.read_character_wallet.v1")},
			header:        "Bearer token",
			wantStatus:    http.StatusForbidden,
			wantError:     "insufficient_scope",
			wantChallenge: `Bearer realm="eve-oauth2", error="insufficient_scope", scope="esi-wallet.read_character_wallet.v1"`,
			wantCalls:     1,
		},
		{
			name:       "OPTIONS skipped",
			verifier:   &fakeVerifier{claims: testClaims},
			options:    []Option{WithValidateOnOptions(false)},
			method:     http.MethodOptions,
			wantStatus: http.StatusOK,
			wantName:   "anonymous",
		},
		{
			name:          "OPTIONS verified by default",
			verifier:      &fakeVerifier{claims: testClaims},
			method:        http.MethodOptions,
			wantStatus:    http.StatusUnauthorized,
			wantError:     "token_missing",
			wantChallenge: `Bearer realm="eve-oauth2"`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := New(tc.verifier, tc.options...)
			require.NoError(t, err)

			method := tc.method
			if method == "" {
				method = http.MethodGet
			}
			r := httptest.NewRequest(method, "/me", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			m.Handler(okHandler).ServeHTTP(w, r)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tc.wantChallenge, w.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tc.wantCalls, tc.verifier.calls)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tc.wantError != "" {
				assert.Equal(t, tc.wantError, body["error"])
				assert.NotEmpty(t, body["message"])
			} else {
				assert.Equal(t, tc.wantName, body["name"])
			}
		})
	}
}

func TestMiddleware_CustomErrorHandler(t *testing.T) {
	var got error
	m, err := New(&fakeVerifier{err: core.NewError(core.ErrInvalidAudience, "wrong audience", nil)},
		WithErrorHandler(func(w http.ResponseWriter, _ *http.Request, err error) {
			got = err
			w.WriteHeader(http.StatusTeapot)
		}),
	)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer token")
	w := httptest.NewRecorder()
	m.Handler(okHandler).ServeHTTP(w, r)

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.ErrorIs(t, got, ErrTokenInvalid)
	assert.ErrorIs(t, got, core.ErrInvalidAudience)
}

func TestMiddleware_WithValidator(t *testing.T) {
	p := testprovider.New(t)
	key := testprovider.NewRSAKey(t, "JWT-Signature-Key")
	p.SetKeys(key)

	cache, err := jwks.New(jwks.WithJWKSURI(p.JWKSURI()))
	require.NoError(t, err)
	v, err := validator.New(validator.WithKeySource(cache))
	require.NoError(t, err)

	m, err := New(v, WithRequiredScopes("publicData"))
	require.NoError(t, err)
	handler := m.Handler(okHandler)

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer "+testprovider.Sign(t, key, testprovider.Claims("2112625428", "Rixx Javix")))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"name":"Rixx Javix"}`, w.Body.String())
	})

	t.Run("expired", func(t *testing.T) {
		claims := testprovider.Claims("2112625428", "Rixx Javix")
		claims["exp"] = time.Now().Add(-time.Hour).Unix()

		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer "+testprovider.Sign(t, key, claims))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"error":"token_expired","message":"The access token is invalid."}`, w.Body.String())
	})
}

func TestMustClaims(t *testing.T) {
	assert.Panics(t, func() { MustClaims(context.Background()) })

	ctx := WithClaims(context.Background(), testClaims)
	assert.Same(t, testClaims, MustClaims(ctx))

	_, ok := ClaimsFromContext(WithClaims(context.Background(), nil))
	assert.False(t, ok)
}
