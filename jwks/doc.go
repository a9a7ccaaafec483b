/*
Package jwks fetches and caches the identity provider's JSON Web Key Set.

# Overview

A Cache holds the most recent KeySet in memory and handles:
  - Provider metadata discovery (the jwks_uri of the well-known document)
  - Fetching and parsing the JWKS document
  - A time-to-live on the cached set (default: 3 hours)
  - Single-flight refresh: concurrent callers share one network round trip
  - An optional shared Store (e.g. Redis) for fleets of processes

Metadata is fetched fresh on each refresh; it is only used to find the JWKS.

# Basic Usage

	cache, err := jwks.New()
	if err != nil {
	    log.Fatal(err)
	}

	keys, err := cache.Keys(ctx)
	if err != nil {
	    // errors.Is(err, core.ErrProviderUnreachable)
	    // errors.Is(err, core.ErrMalformedProviderResponse)
	}

	for _, k := range keys.Keys {
	    fmt.Println(k.KeyID, k.Algorithm)
	}

# Configuration

	cache, err := jwks.New(
	    jwks.WithDiscoveryURL("https://login.eveonline.com/.well-known/oauth-authorization-server"),
	    jwks.WithTTL(time.Hour),
	    jwks.WithFetchTimeout(5*time.Second),
	    jwks.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}),
	)

WithJWKSURI skips discovery and fetches the key set directly.

# Refresh Semantics

Keys returns the cached set while its age does not exceed the TTL. Once it
does, the next call refreshes; callers arriving during the refresh wait for
it and share its result. A refresh replaces the whole set; it is never
partially updated. There is no retry: a failed refresh is reported to every
waiting caller and the next call tries again.

The refresh itself is bounded by the fetch timeout and is not cancelled
when the caller that started it goes away; each caller still stops waiting
when its own context is done.

# Shared Store

With WithStore, a stale cache first asks the Store for a document whose fetch
time is within the TTL, and saves every document it fetches from the
network. Store failures are logged and the network is used instead. See
package redisstore.

# Key Types

SigningKey exposes the algorithm, key id, use, and the public components of
RSA (modulus, exponent) and EC (curve, x, y) keys. Keys marked for
encryption and symmetric keys are skipped.
*/
package jwks
