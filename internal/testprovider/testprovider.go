// Package testprovider runs a fake EVE Online SSO server for tests: metadata
// discovery, JWKS, and the OAuth2 token endpoint, plus helpers to mint signed
// tokens.
package testprovider

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/require"
)

// Paths served by the fake provider.
const (
	DiscoveryPath = "/.well-known/oauth-authorization-server"
	JWKSPath      = "/oauth/jwks"
	AuthorizePath = "/v2/oauth/authorize/"
	TokenPath     = "/v2/oauth/token"
)

// Values the fake provider uses in its documents and tokens.
const (
	Issuer       = "https://login.eveonline.com"
	Audience     = "EVE Online"
	ClientID     = "client-id"
	ClientSecret = "client-secret"
	ValidCode    = "valid-code"
)

// Provider is a fake identity provider backed by httptest.Server.
type Provider struct {
	t      testing.TB
	Server *httptest.Server

	mu             sync.Mutex
	keys           []jwk.Key
	requests       map[string]int
	status         map[string]int
	delay          time.Duration
	accessToken    string
	lastForm       url.Values
	lastUser       string
	lastPass       string
	tokenResponder func(w http.ResponseWriter, r *http.Request)
}

// New starts a fake provider; it is closed when the test ends.
func New(t testing.TB) *Provider {
	t.Helper()

	p := &Provider{
		t:        t,
		requests: make(map[string]int),
		status:   make(map[string]int),
	}
	p.Server = httptest.NewServer(http.HandlerFunc(p.serveHTTP))
	t.Cleanup(p.Server.Close)

	return p
}

// URL returns the server's base URL.
func (p *Provider) URL() string { return p.Server.URL }

// DiscoveryURL returns the metadata endpoint.
func (p *Provider) DiscoveryURL() string { return p.Server.URL + DiscoveryPath }

// JWKSURI returns the JWKS endpoint.
func (p *Provider) JWKSURI() string { return p.Server.URL + JWKSPath }

// AuthURL returns the authorization endpoint.
func (p *Provider) AuthURL() string { return p.Server.URL + AuthorizePath }

// TokenURL returns the token endpoint.
func (p *Provider) TokenURL() string { return p.Server.URL + TokenPath }

// AddKey publishes the public half of key in the JWKS.
func (p *Provider) AddKey(key jwk.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
}

// SetKeys replaces the published keys.
func (p *Provider) SetKeys(keys ...jwk.Key) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = keys
}

// SetStatus makes path answer with status and an empty JSON body.
// A zero status restores normal behavior.
func (p *Provider) SetStatus(path string, status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status[path] = status
}

// SetDelay delays every response.
func (p *Provider) SetDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.delay = d
}

// SetTokenResponder overrides the token endpoint handler.
func (p *Provider) SetTokenResponder(h func(w http.ResponseWriter, r *http.Request)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenResponder = h
}

// SetAccessToken sets the access_token the token endpoint returns for
// ValidCode.
func (p *Provider) SetAccessToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessToken = token
}

// LastTokenRequest returns the form and basic auth credentials of the most
// recent token request.
func (p *Provider) LastTokenRequest() (form url.Values, user, pass string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastForm, p.lastUser, p.lastPass
}

// Requests returns how many requests path has served.
func (p *Provider) Requests(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.requests[path]
}

// ResetRequests zeroes the request counters.
func (p *Provider) ResetRequests() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = make(map[string]int)
}

func (p *Provider) serveHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	p.requests[r.URL.Path]++
	status := p.status[r.URL.Path]
	delay := p.delay
	responder := p.tokenResponder
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{}`))
		return
	}

	switch r.URL.Path {
	case DiscoveryPath:
		writeJSON(w, map[string]any{
			"issuer":                           "login.eveonline.com",
			"authorization_endpoint":           p.AuthURL(),
			"token_endpoint":                   p.TokenURL(),
			"jwks_uri":                         p.JWKSURI(),
			"response_types_supported":         []string{"code", "token"},
			"code_challenge_methods_supported": []string{"S256"},
		})
	case JWKSPath:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(p.JWKSDocument())
	case TokenPath:
		if responder != nil {
			responder(w, r)
			return
		}
		p.serveToken(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (p *Provider) serveToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	user, pass, _ := r.BasicAuth()

	p.mu.Lock()
	p.lastForm = r.PostForm
	p.lastUser, p.lastPass = user, pass
	accessToken := p.accessToken
	p.mu.Unlock()

	if user != ClientID || pass != ClientSecret {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" || r.PostForm.Get("code") != ValidCode {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Authorization code not found"}`))
		return
	}

	writeJSON(w, map[string]any{
		"access_token":  accessToken,
		"token_type":    "Bearer",
		"expires_in":    1199,
		"refresh_token": "refresh-token",
	})
}

// JWKSDocument renders the published keys the way EVE does, including its
// non-standard top-level member.
func (p *Provider) JWKSDocument() []byte {
	p.mu.Lock()
	keys := append([]jwk.Key(nil), p.keys...)
	p.mu.Unlock()

	set := jwk.NewSet()
	for _, key := range keys {
		pub, err := key.PublicKey()
		require.NoError(p.t, err)
		require.NoError(p.t, set.AddKey(pub))
	}

	raw, err := json.Marshal(set)
	require.NoError(p.t, err)

	var doc map[string]any
	require.NoError(p.t, json.Unmarshal(raw, &doc))
	if doc["keys"] == nil {
		doc["keys"] = []any{}
	}
	doc["SkipUnresolvedJsonWebKeys"] = true

	out, err := json.Marshal(doc)
	require.NoError(p.t, err)
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// NewRSAKey generates an RS256 signing key with the given key id.
func NewRSAKey(t testing.TB, kid string) jwk.Key {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return fromRaw(t, raw, kid, jwa.RS256)
}

// NewECKey generates an ES256 signing key with the given key id.
func NewECKey(t testing.TB, kid string) jwk.Key {
	t.Helper()

	raw, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	return fromRaw(t, raw, kid, jwa.ES256)
}

func fromRaw(t testing.TB, raw any, kid string, alg jwa.SignatureAlgorithm) jwk.Key {
	t.Helper()

	key, err := jwk.FromRaw(raw)
	require.NoError(t, err)
	require.NoError(t, key.Set(jwk.KeyIDKey, kid))
	require.NoError(t, key.Set(jwk.AlgorithmKey, alg))
	require.NoError(t, key.Set(jwk.KeyUsageKey, "sig"))

	return key
}

// Claims returns a valid EVE access token payload for the given character.
func Claims(characterID, name string) map[string]any {
	now := time.Now()
	return map[string]any{
		"scp":    []string{"publicData", "esi-wallet.read_character_wallet.v1"},
		"jti":    "998e12c7-3241-43c5-8355-2c48822e0a1b",
		"kid":    "JWT-Signature-Key",
		"sub":    "CHARACTER:EVE:" + characterID,
		"azp":    ClientID,
		"tenant": "tranquility",
		"tier":   "live",
		"region": "world",
		"aud":    []string{ClientID, Audience},
		"name":   name,
		"owner":  "8PmzCeTKb4VFUDrHLc/AeZXDSWM=",
		"exp":    now.Add(20 * time.Minute).Unix(),
		"iat":    now.Unix(),
		"iss":    Issuer,
	}
}

// Sign serializes claims as a JWT signed by key, with key's id in the header.
func Sign(t testing.TB, key jwk.Key, claims map[string]any) string {
	t.Helper()

	alg := jwa.SignatureAlgorithm(key.Algorithm().String())
	return SignWith(t, key, alg, key.KeyID(), claims)
}

// SignWith is Sign with an explicit algorithm and header key id.
func SignWith(t testing.TB, key jwk.Key, alg jwa.SignatureAlgorithm, kid string, claims map[string]any) string {
	t.Helper()

	tok := jwt.New()
	for k, v := range claims {
		require.NoError(t, tok.Set(k, v))
	}

	headers := jws.NewHeaders()
	if kid != "" {
		require.NoError(t, headers.Set(jws.KeyIDKey, kid))
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(alg, key, jws.WithProtectedHeaders(headers)))
	require.NoError(t, err)

	return string(signed)
}
