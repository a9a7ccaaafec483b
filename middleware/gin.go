package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/blackrose-eve/eve-oauth2/validator"
)

// GinClaimsKey is the gin context key holding the verified claims.
const GinClaimsKey = "eve-oauth2.claims"

// GinErrorHandler writes the response for a request the gin middleware
// rejected. It must abort the context.
type GinErrorHandler func(c *gin.Context, err error)

// DefaultGinErrorHandler responds like DefaultErrorHandler and aborts.
func DefaultGinErrorHandler(c *gin.Context, err error) {
	status, challenge, body := Classify(err)
	if challenge != "" {
		c.Header("WWW-Authenticate", challenge)
	}
	c.AbortWithStatusJSON(status, body)
}

// Gin returns the middleware as a gin.HandlerFunc. Verified claims are stored
// both under GinClaimsKey and in the request context.
func (m *Middleware) Gin(errorHandler ...GinErrorHandler) gin.HandlerFunc {
	onError := DefaultGinErrorHandler
	if len(errorHandler) > 0 && errorHandler[0] != nil {
		onError = errorHandler[0]
	}

	return func(c *gin.Context) {
		claims, skip, err := m.check(c.Request)
		if err != nil {
			onError(c, err)
			return
		}
		if skip || claims == nil {
			c.Next()
			return
		}

		c.Set(GinClaimsKey, claims)
		c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// GinClaims returns the claims stored by the gin middleware, if any.
func GinClaims(c *gin.Context) (*validator.IdentityClaims, bool) {
	v, ok := c.Get(GinClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*validator.IdentityClaims)
	return claims, ok && claims != nil
}
