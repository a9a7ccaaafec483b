package jwks

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// Option is how options for the Cache are set up.
type Option func(*Cache) error

// WithDiscoveryURL sets the provider's metadata endpoint.
// If not specified, EVE Online's well-known endpoint is used.
func WithDiscoveryURL(discoveryURL string) Option {
	return func(c *Cache) error {
		if err := checkAbsoluteURL(discoveryURL); err != nil {
			return fmt.Errorf("invalid discovery URL: %w", err)
		}
		c.discoveryURL = discoveryURL
		return nil
	}
}

// WithJWKSURI sets the JWKS endpoint directly. When set, the Cache fetches
// the key set from this URI and skips metadata discovery.
func WithJWKSURI(jwksURI string) Option {
	return func(c *Cache) error {
		if err := checkAbsoluteURL(jwksURI); err != nil {
			return fmt.Errorf("invalid JWKS URI: %w", err)
		}
		c.jwksURI = jwksURI
		return nil
	}
}

// WithHTTPClient sets a custom HTTP client.
// If not specified, a default client with 30s timeout is used.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.client = client
		return nil
	}
}

// WithTTL sets the maximum age of a cached key set.
// If not specified, or zero, defaults to 3 hours.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) error {
		if ttl < 0 {
			return errors.New("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = DefaultTTL
		}
		c.ttl = ttl
		return nil
	}
}

// WithFetchTimeout bounds one refresh (metadata and JWKS fetch together).
// If not specified, defaults to 10 seconds.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Cache) error {
		if timeout <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		c.fetchTimeout = timeout
		return nil
	}
}

// WithStore sets a shared second-level Store consulted before the network.
func WithStore(store Store) Option {
	return func(c *Cache) error {
		if store == nil {
			return errors.New("store cannot be nil")
		}
		c.store = store
		return nil
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(c *Cache) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics core.Metrics) Option {
	return func(c *Cache) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
// If not specified, the global provider is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Cache) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		c.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}

func checkAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", raw)
	}
	return nil
}
