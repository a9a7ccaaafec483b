/*
Package oidc fetches identity provider documents: the authorization server
metadata published at the discovery endpoint, and raw documents such as the
JSON Web Key Set it points to.

EVE Online publishes its metadata at

	https://login.eveonline.com/.well-known/oauth-authorization-server

which contains, among others:
  - issuer: the issuer identifier
  - jwks_uri: URL to fetch JSON Web Keys
  - authorization_endpoint: OAuth 2.0 authorization endpoint
  - token_endpoint: OAuth 2.0 token endpoint

# Usage

	client := &http.Client{Timeout: 10 * time.Second}

	metadata, err := oidc.FetchMetadata(ctx, client, discoveryURL)
	if err != nil {
	    // errors.Is(err, core.ErrProviderUnreachable)
	    // errors.Is(err, core.ErrMalformedProviderResponse)
	}

	doc, err := oidc.Get(ctx, client, metadata.JWKSURI)

# Specification

RFC 8414, OAuth 2.0 Authorization Server Metadata, and
OpenID Connect Discovery 1.0.
*/
package oidc
