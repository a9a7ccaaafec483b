/*
Package eveoauth2 logs characters in with EVE Online SSO and verifies their
access tokens.

An SSO combines the pieces in the sub-packages:

  - oauth: login URL and CSRF state, authorization code exchange
  - jwks: provider key set discovery and caching
  - validator: access token verification and EVE claims
  - middleware: bearer token protection for HTTP handlers

# Basic Usage

	sso, err := eveoauth2.New(
	    eveoauth2.WithClientCredentials(os.Getenv("ESI_CLIENT_ID"), os.Getenv("ESI_CLIENT_SECRET")),
	    eveoauth2.WithRedirectURL("http://localhost:8000/callback"),
	    eveoauth2.WithScopes("publicData"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	// GET /login
	req, err := sso.BuildLoginRequest()
	// store req.State in the user's session, then redirect to req.LoginURL

	// GET /callback
	claims, err := sso.Authenticate(r.Context(), storedState,
	    r.URL.Query().Get("state"), r.URL.Query().Get("code"))
	if err != nil {
	    // errors.Is(err, core.ErrCSRFStateMismatch), core.ErrTokenExchangeFailed, ...
	}
	characterID, err := claims.CharacterID()

# Errors

Every failure carries a core kind, matchable with errors.Is; core.CodeOf
gives its machine-readable code.

# Observability

WithLogger, WithMetrics and WithTracerProvider apply to every component.
Adapters exist for zap, zerolog and logrus (core.NewZapLogger and friends)
and for Prometheus (core.NewPrometheusMetrics).
*/
package eveoauth2
