/*
Package oauth implements the EVE Online SSO authorization code flow on top of
golang.org/x/oauth2.

	flow, _ := oauth.NewFlow()

	req, err := flow.BuildLoginRequest(clientID, clientSecret,
	    "https://example.com/callback", []string{"publicData"})
	// store req.State, redirect to req.LoginURL

	// on callback:
	if err := oauth.CheckState(storedState, r.URL.Query().Get("state")); err != nil {
	    // errors.Is(err, core.ErrCSRFStateMismatch)
	}
	token, err := flow.ExchangeCode(ctx, clientID, clientSecret, r.URL.Query().Get("code"))

The access token is a JWT; verify it with package validator before trusting
any of its claims.
*/
package oauth
