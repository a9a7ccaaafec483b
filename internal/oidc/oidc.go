package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// maxDocumentSize bounds discovery and JWKS documents.
const maxDocumentSize = 1 << 20

// ProviderMetadata holds the authorization server metadata published at the
// provider's well-known discovery endpoint (RFC 8414 / OIDC Discovery).
type ProviderMetadata struct {
	Issuer                                 string   `json:"issuer"`
	JWKSURI                                string   `json:"jwks_uri"`
	AuthorizationEndpoint                  string   `json:"authorization_endpoint,omitempty"`
	TokenEndpoint                          string   `json:"token_endpoint,omitempty"`
	RevocationEndpoint                     string   `json:"revocation_endpoint,omitempty"`
	ResponseTypesSupported                 []string `json:"response_types_supported,omitempty"`
	CodeChallengeMethodsSupported          []string `json:"code_challenge_methods_supported,omitempty"`
	TokenEndpointAuthMethodsSupported      []string `json:"token_endpoint_auth_methods_supported,omitempty"`
	TokenEndpointAuthSigningAlgsSupported  []string `json:"token_endpoint_auth_signing_alg_values_supported,omitempty"`
	RevocationEndpointAuthMethodsSupported []string `json:"revocation_endpoint_auth_methods_supported,omitempty"`
}

// FetchMetadata gets the provider metadata from discoveryURL.
//
// Transport failures and non-200 responses are ErrProviderUnreachable; a body
// that does not decode, or lacks an absolute jwks_uri, is
// ErrMalformedProviderResponse.
func FetchMetadata(ctx context.Context, client *http.Client, discoveryURL string) (*ProviderMetadata, error) {
	body, err := Get(ctx, client, discoveryURL)
	if err != nil {
		return nil, err
	}

	var metadata ProviderMetadata
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, core.NewError(core.ErrMalformedProviderResponse,
			"could not decode provider metadata", err)
	}

	if metadata.JWKSURI == "" {
		return nil, core.NewError(core.ErrMalformedProviderResponse,
			"provider metadata has no jwks_uri", nil)
	}
	u, err := url.Parse(metadata.JWKSURI)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, core.NewError(core.ErrMalformedProviderResponse,
			fmt.Sprintf("provider metadata has an invalid jwks_uri %q", metadata.JWKSURI), err)
	}

	return &metadata, nil
}

// Get performs a GET of a provider document and returns its body, limited to
// 1 MiB. Errors are ErrProviderUnreachable.
func Get(ctx context.Context, client *http.Client, documentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, documentURL, nil)
	if err != nil {
		return nil, core.NewError(core.ErrProviderUnreachable,
			"could not build request to "+documentURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, core.NewError(core.ErrProviderUnreachable,
			"could not fetch "+documentURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, core.NewError(core.ErrProviderUnreachable,
			fmt.Sprintf("%s returned status %d, expected 200", documentURL, resp.StatusCode), nil)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, core.NewError(core.ErrProviderUnreachable,
			"could not read response from "+documentURL, err)
	}
	if len(body) > maxDocumentSize {
		return nil, core.NewError(core.ErrMalformedProviderResponse,
			documentURL+" returned a document larger than 1MB", nil)
	}

	return body, nil
}
