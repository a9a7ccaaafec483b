package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/middleware"
	"github.com/blackrose-eve/eve-oauth2/oauth"
	"github.com/blackrose-eve/eve-oauth2/validator"
)

const (
	stateCookie    = "eve_sso_state"
	verifierCookie = "eve_sso_verifier"
	loginTTL       = 10 * time.Minute

	loginFailedMessage = "There was an issue logging you in, please try again."
)

// authenticator is the part of *eveoauth2.SSO the handlers use.
type authenticator interface {
	BuildLoginRequest() (*oauth.AuthenticationRequest, error)
	Authenticate(ctx context.Context, expectedState, returnedState, code string, opts ...oauth.ExchangeOption) (*validator.IdentityClaims, error)
	Verify(ctx context.Context, accessToken string) (*validator.IdentityClaims, error)
}

// character is the callback response body.
type character struct {
	CharacterID   int64  `json:"character_id"`
	CharacterName string `json:"character_name"`
}

type server struct {
	sso    authenticator
	logger core.Logger
	// secureCookies marks the login cookies Secure.
	secureCookies bool
}

func newRouter(s *server, gatherer prometheus.Gatherer, mw *middleware.Middleware) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/login", s.login)
	router.GET("/callback", s.callback)
	router.GET("/me", mw.Gin(), s.me)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return router
}

func (s *server) login(c *gin.Context) {
	req, err := s.sso.BuildLoginRequest()
	if err != nil {
		s.logger.Error("failed to build login request", "error", err)
		c.String(http.StatusInternalServerError, loginFailedMessage)
		return
	}

	s.setCookie(c, stateCookie, req.State, int(loginTTL.Seconds()))
	if req.CodeVerifier != "" {
		s.setCookie(c, verifierCookie, req.CodeVerifier, int(loginTTL.Seconds()))
	}

	c.Redirect(http.StatusTemporaryRedirect, req.LoginURL)
}

func (s *server) callback(c *gin.Context) {
	expected, _ := c.Cookie(stateCookie)
	verifier, _ := c.Cookie(verifierCookie)
	s.setCookie(c, stateCookie, "", -1)
	s.setCookie(c, verifierCookie, "", -1)

	var opts []oauth.ExchangeOption
	if verifier != "" {
		opts = append(opts, oauth.WithCodeVerifier(verifier))
	}

	claims, err := s.sso.Authenticate(c.Request.Context(), expected, c.Query("state"), c.Query("code"), opts...)
	if err != nil {
		s.logger.Warn("login failed", "error", err, "code", core.CodeOf(err))
		c.String(callbackStatus(err), loginFailedMessage)
		return
	}

	id, err := claims.CharacterID()
	if err != nil {
		s.logger.Error("token subject is not a character", "subject", claims.Subject)
		c.String(http.StatusBadGateway, loginFailedMessage)
		return
	}

	c.JSON(http.StatusOK, character{CharacterID: id, CharacterName: claims.Name})
}

func (s *server) me(c *gin.Context) {
	claims, ok := middleware.GinClaims(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	id, err := claims.CharacterID()
	if err != nil {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"character_id":   id,
		"character_name": claims.Name,
		"scopes":         claims.Scopes,
		"expires_at":     claims.ExpiresAt,
	})
}

func (s *server) setCookie(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", s.secureCookies, true)
}

// callbackStatus picks the response status for a failed login.
func callbackStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrCSRFStateMismatch):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrKeyUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrTokenExchangeFailed):
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}
