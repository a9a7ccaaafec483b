package validator

import (
	"errors"
	"testing"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/jwks"
)

func TestSelectSigningKey(t *testing.T) {
	rsa1 := jwks.SigningKey{KeyID: "k1", Algorithm: jwa.RS256}
	rsa2 := jwks.SigningKey{KeyID: "k2", Algorithm: jwa.RS256}
	ec1 := jwks.SigningKey{KeyID: "e1", Algorithm: jwa.ES256}

	testCases := []struct {
		name    string
		keys    []jwks.SigningKey
		alg     SignatureAlgorithm
		kid     string
		wantKID string
		wantErr bool
	}{
		{
			name:    "kid and algorithm match",
			keys:    []jwks.SigningKey{rsa1, rsa2},
			alg:     RS256,
			kid:     "k2",
			wantKID: "k2",
		},
		{
			name:    "kid unknown falls back to first key with algorithm",
			keys:    []jwks.SigningKey{ec1, rsa1, rsa2},
			alg:     RS256,
			kid:     "k9",
			wantKID: "k1",
		},
		{
			name:    "kid matches a key with another algorithm",
			keys:    []jwks.SigningKey{ec1, rsa1},
			alg:     RS256,
			kid:     "e1",
			wantKID: "k1",
		},
		{
			name:    "no kid",
			keys:    []jwks.SigningKey{ec1, rsa2, rsa1},
			alg:     RS256,
			wantKID: "k2",
		},
		{
			name:    "EC algorithm",
			keys:    []jwks.SigningKey{rsa1, ec1},
			alg:     ES256,
			kid:     "e1",
			wantKID: "e1",
		},
		{
			name:    "no key uses the algorithm",
			keys:    []jwks.SigningKey{ec1},
			alg:     RS256,
			kid:     "e1",
			wantErr: true,
		},
		{
			name:    "empty key set",
			alg:     RS256,
			kid:     "k1",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := SelectSigningKey(tc.keys, tc.alg, tc.kid)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrNoUsableKey))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantKID, key.KeyID)
		})
	}
}
