package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithKeySource sets where signing keys come from, normally a *jwks.Cache.
// This is a required option.
func WithKeySource(keys KeySource) Option {
	return func(v *Validator) error {
		if keys == nil {
			return errors.New("key source cannot be nil")
		}
		v.keys = keys
		return nil
	}
}

// WithAlgorithm sets the signature algorithm that tokens must use.
// If not specified, RS256 is used.
func WithAlgorithm(algorithm SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if _, ok := allowedSigningAlgorithms[algorithm]; !ok {
			return fmt.Errorf("unsupported signature algorithm: %s", algorithm)
		}
		v.algorithm = algorithm
		return nil
	}
}

// WithIssuer sets the expected issuer claim (iss), compared exactly.
// If not specified, "https://login.eveonline.com" is used.
func WithIssuer(issuerURL string) Option {
	return func(v *Validator) error {
		if issuerURL == "" {
			return errors.New("issuer cannot be empty")
		}
		if _, err := url.Parse(issuerURL); err != nil {
			return fmt.Errorf("invalid issuer URL: %w", err)
		}
		v.issuer = issuerURL
		return nil
	}
}

// WithAudience sets the audience the aud claim must contain.
// If not specified, "EVE Online" is used.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.audience = audience
		return nil
	}
}

// WithAllowedClockSkew sets the tolerance applied to exp and nbf.
// The default is 0; values above MaxAllowedClockSkew are rejected.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		if skew > MaxAllowedClockSkew {
			return fmt.Errorf("clock skew %s exceeds the maximum of %s", skew, MaxAllowedClockSkew)
		}
		v.allowedClockSkew = skew
		return nil
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(v *Validator) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		v.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(metrics core.Metrics) Option {
	return func(v *Validator) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		v.metrics = metrics
		return nil
	}
}

// WithTracerProvider sets the OpenTelemetry tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(v *Validator) error {
		if tp == nil {
			return errors.New("tracer provider cannot be nil")
		}
		v.tracer = tp.Tracer(instrumentationName)
		return nil
	}
}
