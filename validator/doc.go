/*
Package validator verifies EVE Online SSO access tokens using the
lestrrat-go/jwx v2 library.

Tokens are compact JWS signed with a key from the provider's JWKS. The
Validator gets keys from a KeySource (normally a *jwks.Cache), checks the
signature, then the registered claims, and returns IdentityClaims.

# Basic Usage

	cache, err := jwks.New()
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(validator.WithKeySource(cache))
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.Verify(ctx, accessToken)
	if err != nil {
	    switch {
	    case errors.Is(err, core.ErrTokenExpired):
	        // ask the user to log in again
	    case errors.Is(err, core.ErrKeyUnavailable):
	        // the provider could not be reached
	    }
	}

	characterID, err := claims.CharacterID()

# Key Selection

The header kid selects the key. If no key has that kid, the first key with
the configured algorithm is tried, so a token signed by an unpublished key
fails with ErrInvalidSignature. ErrKeyUnavailable (wrapping ErrNoUsableKey)
means no published key uses the algorithm at all.

# Claims

iss must equal the configured issuer and aud, a string or an array, must
contain the configured audience. exp is required; nbf is checked when
present. sub, name, jti and iat must be present. The scp claim may be a
string or an array.

# Clock Skew

WithAllowedClockSkew applies to exp and nbf and is capped at five minutes.
*/
package validator
