package oauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// EVE Online's OAuth2 v2 endpoints.
const (
	DefaultAuthURL  = "https://login.eveonline.com/v2/oauth/authorize/"
	DefaultTokenURL = "https://login.eveonline.com/v2/oauth/token"

	instrumentationName = "github.com/blackrose-eve/eve-oauth2/oauth"
)

// Metric names.
const (
	MetricExchanges        = "token_exchanges_total"
	MetricExchangeDuration = "token_exchange_duration_seconds"
)

// Endpoint is EVE Online's authorization server. Client credentials go in
// the Authorization header.
var Endpoint = oauth2.Endpoint{
	AuthURL:   DefaultAuthURL,
	TokenURL:  DefaultTokenURL,
	AuthStyle: oauth2.AuthStyleInHeader,
}

// AuthenticationRequest is a login redirect and the values the caller must
// keep until the callback.
type AuthenticationRequest struct {
	// LoginURL is where to send the user.
	LoginURL string

	// State must be stored (e.g. in a cookie) and compared with CheckState.
	State string

	// CodeVerifier is set when PKCE is enabled; pass it to ExchangeCode with
	// WithCodeVerifier.
	CodeVerifier string
}

// AccessToken is the token endpoint's response.
type AccessToken struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	// Expiry is zero if the provider sent no expires_in.
	Expiry  time.Time
	IDToken string
}

// Flow builds login requests and exchanges authorization codes. It is safe
// for concurrent use.
type Flow struct {
	endpoint oauth2.Endpoint
	client   *http.Client
	pkce     bool
	now      func() time.Time
	logger   core.Logger
	metrics  core.Metrics
	tracer   trace.Tracer
}

// NewFlow returns a Flow for EVE Online unless WithEndpoint says otherwise.
func NewFlow(opts ...Option) (*Flow, error) {
	f := &Flow{
		endpoint: Endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
		now:      time.Now,
		logger:   core.NopLogger{},
		metrics:  core.NoopMetrics{},
		tracer:   otel.GetTracerProvider().Tracer(instrumentationName),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return f, nil
}

func (f *Flow) config(clientID, clientSecret, redirectURL string, scopes []string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     f.endpoint,
		Scopes:       scopes,
	}
}

// BuildLoginRequest creates the authorization URL for the given client with
// a fresh state (and PKCE verifier when enabled). It performs no I/O.
//
// redirectURL must be absolute, otherwise the error is
// ErrInvalidRedirectURL.
func (f *Flow) BuildLoginRequest(clientID, clientSecret, redirectURL string, scopes []string) (*AuthenticationRequest, error) {
	u, err := url.Parse(redirectURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, core.NewError(core.ErrInvalidRedirectURL,
			fmt.Sprintf("redirect URL %q is not an absolute URL", redirectURL), err)
	}

	state, err := GenerateState()
	if err != nil {
		return nil, err
	}

	req := &AuthenticationRequest{State: state}

	var opts []oauth2.AuthCodeOption
	if f.pkce {
		req.CodeVerifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(req.CodeVerifier))
	}

	req.LoginURL = f.config(clientID, clientSecret, redirectURL, scopes).AuthCodeURL(state, opts...)

	return req, nil
}

// ExchangeOption adds a parameter to the token request.
type ExchangeOption func(*exchangeParams)

type exchangeParams struct {
	redirectURI  string
	codeVerifier string
}

// WithRedirectURI sends redirect_uri, which must then match the one used in
// the login request.
func WithRedirectURI(redirectURI string) ExchangeOption {
	return func(p *exchangeParams) {
		p.redirectURI = redirectURI
	}
}

// WithCodeVerifier sends the PKCE code_verifier.
func WithCodeVerifier(verifier string) ExchangeOption {
	return func(p *exchangeParams) {
		p.codeVerifier = verifier
	}
}

// ExchangeCode trades an authorization code for an access token. It makes a
// single attempt; any failure is ErrTokenExchangeFailed.
func (f *Flow) ExchangeCode(ctx context.Context, clientID, clientSecret, code string, opts ...ExchangeOption) (token *AccessToken, err error) {
	ctx, span := f.tracer.Start(ctx, "oauth.exchange")
	started := f.now()

	defer func() {
		result := "ok"
		if err != nil {
			result = core.CodeOf(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, result)
			f.logger.Warn("token exchange failed", "error", err)
		}
		tags := map[string]string{"result": result}
		f.metrics.IncCounter(MetricExchanges, tags)
		f.metrics.ObserveHistogram(MetricExchangeDuration, f.now().Sub(started).Seconds(), tags)
		span.End()
	}()

	if code == "" {
		return nil, core.NewError(core.ErrTokenExchangeFailed, "authorization code is empty", nil)
	}

	var params exchangeParams
	for _, opt := range opts {
		opt(&params)
	}

	var authOpts []oauth2.AuthCodeOption
	if params.codeVerifier != "" {
		authOpts = append(authOpts, oauth2.VerifierOption(params.codeVerifier))
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	tok, err := f.config(clientID, clientSecret, params.redirectURI, nil).Exchange(ctx, code, authOpts...)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			msg := fmt.Sprintf("token endpoint returned status %d", retrieveErr.Response.StatusCode)
			if retrieveErr.ErrorCode != "" {
				msg += " (" + retrieveErr.ErrorCode + ")"
			}
			return nil, core.NewError(core.ErrTokenExchangeFailed, msg, err)
		}
		return nil, core.NewError(core.ErrTokenExchangeFailed, "could not exchange authorization code", err)
	}

	token = &AccessToken{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.TokenType,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		token.IDToken = idToken
	}

	f.logger.Debug("authorization code exchanged", "token_type", token.TokenType, "expiry", token.Expiry)

	return token, nil
}
