package middleware

import (
	"errors"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// Option configures the Middleware.
type Option func(*Middleware) error

// WithTokenExtractor sets how the token is read from a request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(m *Middleware) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		m.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets the handler for rejected requests.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return errors.New("error handler cannot be nil")
		}
		m.errorHandler = h
		return nil
	}
}

// WithCredentialsOptional lets requests without a token through, with no
// claims in their context. A token that is present must still be valid.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *Middleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are verified.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithRequiredScopes rejects tokens that were not granted every scope.
func WithRequiredScopes(scopes ...string) Option {
	return func(m *Middleware) error {
		for _, s := range scopes {
			if s == "" {
				return errors.New("required scope cannot be empty")
			}
		}
		m.requiredScopes = append([]string(nil), scopes...)
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger core.Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		m.logger = logger
		return nil
	}
}
