package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/blackrose-eve/eve-oauth2/validator"
)

// EchoClaimsKey is the echo context key holding the verified claims.
const EchoClaimsKey = "eve-oauth2.claims"

// EchoErrorHandler writes the response for a request the echo middleware
// rejected. Its return value is returned from the middleware.
type EchoErrorHandler func(c echo.Context, err error) error

// DefaultEchoErrorHandler responds like DefaultErrorHandler.
func DefaultEchoErrorHandler(c echo.Context, err error) error {
	status, challenge, body := Classify(err)
	if challenge != "" {
		c.Response().Header().Set("WWW-Authenticate", challenge)
	}
	return c.JSON(status, body)
}

// Echo returns the middleware as an echo.MiddlewareFunc. Verified claims are
// stored both under EchoClaimsKey and in the request context.
func (m *Middleware) Echo(errorHandler ...EchoErrorHandler) echo.MiddlewareFunc {
	onError := DefaultEchoErrorHandler
	if len(errorHandler) > 0 && errorHandler[0] != nil {
		onError = errorHandler[0]
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, skip, err := m.check(c.Request())
			if err != nil {
				return onError(c, err)
			}
			if skip || claims == nil {
				return next(c)
			}

			c.Set(EchoClaimsKey, claims)
			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

// EchoClaims returns the claims stored by the echo middleware, if any.
func EchoClaims(c echo.Context) (*validator.IdentityClaims, bool) {
	claims, ok := c.Get(EchoClaimsKey).(*validator.IdentityClaims)
	return claims, ok && claims != nil
}
