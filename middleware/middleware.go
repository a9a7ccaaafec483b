package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/validator"
)

// Verifier checks an access token. It is satisfied by *validator.Validator
// and *eveoauth2.SSO.
type Verifier interface {
	Verify(ctx context.Context, accessToken string) (*validator.IdentityClaims, error)
}

// Middleware protects HTTP handlers with EVE SSO bearer tokens.
type Middleware struct {
	verifier            Verifier
	tokenExtractor      TokenExtractor
	errorHandler        ErrorHandler
	credentialsOptional bool
	validateOnOptions   bool
	requiredScopes      []string
	logger              core.Logger
}

// New constructs a Middleware that verifies tokens with verifier.
//
// Example:
//
//	mw, err := middleware.New(sso,
//	    middleware.WithRequiredScopes("esi-skills.read_skills.v1"),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
//	http.Handle("/api/", mw.Handler(apiHandler))
func New(verifier Verifier, opts ...Option) (*Middleware, error) {
	if verifier == nil {
		return nil, errors.New("verifier cannot be nil")
	}

	m := &Middleware{
		verifier:          verifier,
		tokenExtractor:    AuthHeaderTokenExtractor,
		errorHandler:      DefaultErrorHandler,
		validateOnOptions: true,
		logger:            core.NopLogger{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return m, nil
}

// Handler wraps next so that it only runs for requests with a valid token.
// The verified claims are available to next through ClaimsFromContext.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, skip, err := m.check(r)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}
		if skip || claims == nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

// check extracts and verifies the request's token. skip reports that the
// request passes without verification.
func (m *Middleware) check(r *http.Request) (claims *validator.IdentityClaims, skip bool, err error) {
	if !m.validateOnOptions && r.Method == http.MethodOptions {
		m.logger.Debug("skipping token verification for OPTIONS request")
		return nil, true, nil
	}

	token, err := m.tokenExtractor(r)
	if err != nil {
		m.logger.Warn("failed to extract token from request",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path)
		return nil, false, fmt.Errorf("error extracting token: %w", err)
	}

	return m.authorize(r.Context(), token, "method", r.Method, "path", r.URL.Path)
}

// authorize verifies token and checks the required scopes. An empty token
// either skips or fails with ErrTokenMissing. fields are added to the log
// lines.
func (m *Middleware) authorize(ctx context.Context, token string, fields ...any) (claims *validator.IdentityClaims, skip bool, err error) {
	if token == "" {
		if m.credentialsOptional {
			m.logger.Debug("no credentials provided, continuing without claims", fields...)
			return nil, true, nil
		}
		return nil, false, ErrTokenMissing
	}

	claims, err = m.verifier.Verify(ctx, token)
	if err != nil {
		m.logger.Warn("token verification failed",
			append([]any{"error", err, "code", core.CodeOf(err)}, fields...)...)
		return nil, false, &invalidError{details: err}
	}

	var missing []string
	for _, scope := range m.requiredScopes {
		if !claims.HasScope(scope) {
			missing = append(missing, scope)
		}
	}
	if len(missing) > 0 {
		m.logger.Warn("token lacks required scopes",
			"subject", claims.Subject,
			"missing", missing)
		return nil, false, &scopeError{missing: missing}
	}

	return claims, false, nil
}
