package eveoauth2

import (
	"errors"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/jwks"
	"github.com/blackrose-eve/eve-oauth2/oauth"
	"github.com/blackrose-eve/eve-oauth2/validator"
)

// Option configures an SSO.
type Option func(*settings) error

type settings struct {
	clientID     string
	clientSecret string
	redirectURL  string
	scopes       []string

	httpClient *http.Client
	logger     core.Logger
	metrics    core.Metrics
	tracer     trace.TracerProvider

	cacheOpts     []jwks.Option
	validatorOpts []validator.Option
	flowOpts      []oauth.Option
}

// WithClientCredentials sets the application's client id and secret from
// the EVE developer portal. This is a required option.
func WithClientCredentials(clientID, clientSecret string) Option {
	return func(s *settings) error {
		if clientID == "" || clientSecret == "" {
			return errors.New("client id and secret cannot be empty")
		}
		s.clientID, s.clientSecret = clientID, clientSecret
		return nil
	}
}

// WithRedirectURL sets the callback URL, which must match the one registered
// for the application. This is a required option.
func WithRedirectURL(redirectURL string) Option {
	return func(s *settings) error {
		s.redirectURL = redirectURL
		return nil
	}
}

// WithScopes sets the scopes requested at login.
func WithScopes(scopes ...string) Option {
	return func(s *settings) error {
		s.scopes = append([]string(nil), scopes...)
		return nil
	}
}

// WithHTTPClient sets the client used for discovery, JWKS and token
// requests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		s.httpClient = client
		return nil
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger core.Logger) Option {
	return func(s *settings) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for every component.
func WithMetrics(metrics core.Metrics) Option {
	return func(s *settings) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		s.metrics = metrics
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider for every
// component.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *settings) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		s.tracer = tp
		return nil
	}
}

// WithPKCE adds an S256 code challenge to login requests.
func WithPKCE() Option {
	return func(s *settings) error {
		s.flowOpts = append(s.flowOpts, oauth.WithPKCE())
		return nil
	}
}

// WithEndpoint overrides the authorization and token URLs.
func WithEndpoint(authURL, tokenURL string) Option {
	return func(s *settings) error {
		s.flowOpts = append(s.flowOpts, oauth.WithEndpoint(authURL, tokenURL))
		return nil
	}
}

// WithDiscoveryURL overrides the provider metadata endpoint.
func WithDiscoveryURL(discoveryURL string) Option {
	return func(s *settings) error {
		s.cacheOpts = append(s.cacheOpts, jwks.WithDiscoveryURL(discoveryURL))
		return nil
	}
}

// WithJWKSURI fetches keys from jwksURI without discovery.
func WithJWKSURI(jwksURI string) Option {
	return func(s *settings) error {
		s.cacheOpts = append(s.cacheOpts, jwks.WithJWKSURI(jwksURI))
		return nil
	}
}

// WithKeySetTTL sets the maximum age of the cached key set (default 3 hours).
func WithKeySetTTL(ttl time.Duration) Option {
	return func(s *settings) error {
		s.cacheOpts = append(s.cacheOpts, jwks.WithTTL(ttl))
		return nil
	}
}

// WithFetchTimeout bounds a key set refresh.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(s *settings) error {
		s.cacheOpts = append(s.cacheOpts, jwks.WithFetchTimeout(timeout))
		return nil
	}
}

// WithKeySetStore shares fetched key sets through store.
func WithKeySetStore(store jwks.Store) Option {
	return func(s *settings) error {
		s.cacheOpts = append(s.cacheOpts, jwks.WithStore(store))
		return nil
	}
}

// WithIssuer overrides the expected token issuer.
func WithIssuer(issuer string) Option {
	return func(s *settings) error {
		s.validatorOpts = append(s.validatorOpts, validator.WithIssuer(issuer))
		return nil
	}
}

// WithAudience overrides the audience tokens must contain.
func WithAudience(audience string) Option {
	return func(s *settings) error {
		s.validatorOpts = append(s.validatorOpts, validator.WithAudience(audience))
		return nil
	}
}

// WithAllowedClockSkew sets the tolerance for exp and nbf (at most 5 minutes).
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(s *settings) error {
		s.validatorOpts = append(s.validatorOpts, validator.WithAllowedClockSkew(skew))
		return nil
	}
}
