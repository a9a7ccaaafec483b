package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// Option is how options for the Flow are set up.
type Option func(*Flow) error

// WithEndpoint sets the authorization and token URLs. Client credentials are
// still sent in the Authorization header.
func WithEndpoint(authURL, tokenURL string) Option {
	return func(f *Flow) error {
		for _, raw := range []string{authURL, tokenURL} {
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("endpoint %q is not an absolute URL", raw)
			}
		}
		f.endpoint = oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		}
		return nil
	}
}

// WithHTTPClient sets the client used for the token request.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Flow) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		f.client = client
		return nil
	}
}

// WithPKCE adds an S256 code challenge to login requests.
func WithPKCE() Option {
	return func(f *Flow) error {
		f.pkce = true
		return nil
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		f.now = now
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(f *Flow) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		f.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics core.Metrics) Option {
	return func(f *Flow) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		f.metrics = metrics
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(f *Flow) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		f.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}
