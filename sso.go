package eveoauth2

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/jwks"
	"github.com/blackrose-eve/eve-oauth2/oauth"
	"github.com/blackrose-eve/eve-oauth2/validator"
)

// SSO ties together the login flow, the key set cache and token
// verification for one EVE Online application.
type SSO struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       []string

	cache     *jwks.Cache
	validator *validator.Validator
	flow      *oauth.Flow
	logger    core.Logger
}

// New builds an SSO. WithClientCredentials and WithRedirectURL are required.
//
// Example:
//
//	sso, err := eveoauth2.New(
//	    eveoauth2.WithClientCredentials(clientID, clientSecret),
//	    eveoauth2.WithRedirectURL("http://localhost:8000/callback"),
//	    eveoauth2.WithScopes("publicData"),
//	)
func New(opts ...Option) (*SSO, error) {
	s := &settings{}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if s.clientID == "" {
		return nil, errors.New("client credentials are required (use WithClientCredentials)")
	}
	u, err := url.Parse(s.redirectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, core.NewError(core.ErrInvalidRedirectURL,
			fmt.Sprintf("redirect URL %q is not an absolute URL", s.redirectURL), err)
	}

	cacheOpts, validatorOpts, flowOpts := s.componentOptions()

	cache, err := jwks.New(cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("jwks cache: %w", err)
	}

	v, err := validator.New(append([]validator.Option{validator.WithKeySource(cache)}, validatorOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("validator: %w", err)
	}

	flow, err := oauth.NewFlow(flowOpts...)
	if err != nil {
		return nil, fmt.Errorf("oauth flow: %w", err)
	}

	logger := s.logger
	if logger == nil {
		logger = core.NopLogger{}
	}

	return &SSO{
		clientID:     s.clientID,
		clientSecret: s.clientSecret,
		redirectURL:  s.redirectURL,
		scopes:       s.scopes,
		cache:        cache,
		validator:    v,
		flow:         flow,
		logger:       logger,
	}, nil
}

// componentOptions puts the shared settings ahead of component-specific
// ones.
func (s *settings) componentOptions() ([]jwks.Option, []validator.Option, []oauth.Option) {
	var (
		cacheOpts     []jwks.Option
		validatorOpts []validator.Option
		flowOpts      []oauth.Option
	)

	if s.httpClient != nil {
		cacheOpts = append(cacheOpts, jwks.WithHTTPClient(s.httpClient))
		flowOpts = append(flowOpts, oauth.WithHTTPClient(s.httpClient))
	}
	if s.logger != nil {
		cacheOpts = append(cacheOpts, jwks.WithLogger(s.logger))
		validatorOpts = append(validatorOpts, validator.WithLogger(s.logger))
		flowOpts = append(flowOpts, oauth.WithLogger(s.logger))
	}
	if s.metrics != nil {
		cacheOpts = append(cacheOpts, jwks.WithMetrics(s.metrics))
		validatorOpts = append(validatorOpts, validator.WithMetrics(s.metrics))
		flowOpts = append(flowOpts, oauth.WithMetrics(s.metrics))
	}
	if s.tracer != nil {
		cacheOpts = append(cacheOpts, jwks.WithTracerProvider(s.tracer))
		validatorOpts = append(validatorOpts, validator.WithTracerProvider(s.tracer))
		flowOpts = append(flowOpts, oauth.WithTracerProvider(s.tracer))
	}

	return append(cacheOpts, s.cacheOpts...),
		append(validatorOpts, s.validatorOpts...),
		append(flowOpts, s.flowOpts...)
}

// BuildLoginRequest returns a login URL and the state to store until the
// callback.
func (s *SSO) BuildLoginRequest() (*oauth.AuthenticationRequest, error) {
	return s.flow.BuildLoginRequest(s.clientID, s.clientSecret, s.redirectURL, s.scopes)
}

// ExchangeCode trades the callback's authorization code for a token.
func (s *SSO) ExchangeCode(ctx context.Context, code string, opts ...oauth.ExchangeOption) (*oauth.AccessToken, error) {
	return s.flow.ExchangeCode(ctx, s.clientID, s.clientSecret, code, opts...)
}

// Verify checks an access token and returns its claims.
func (s *SSO) Verify(ctx context.Context, accessToken string) (*validator.IdentityClaims, error) {
	return s.validator.Verify(ctx, accessToken)
}

// Authenticate handles a login callback: it checks the returned state
// against the stored one, exchanges the code, and verifies the access token.
func (s *SSO) Authenticate(ctx context.Context, expectedState, returnedState, code string, opts ...oauth.ExchangeOption) (*validator.IdentityClaims, error) {
	if err := oauth.CheckState(expectedState, returnedState); err != nil {
		s.logger.Warn("login callback rejected", "error", err)
		return nil, err
	}

	token, err := s.ExchangeCode(ctx, code, opts...)
	if err != nil {
		return nil, err
	}

	claims, err := s.Verify(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	s.logger.Info("character logged in", "subject", claims.Subject, "name", claims.Name)

	return claims, nil
}

// KeySet returns the current provider key set, refreshing it if stale.
func (s *SSO) KeySet(ctx context.Context) (*jwks.KeySet, error) {
	return s.cache.Keys(ctx)
}
