package validator

import (
	"fmt"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/jwks"
)

// SelectSigningKey picks the key to verify a token signed with alg whose
// header carries kid.
//
// A key matching both kid and alg wins. Otherwise, including when kid is
// empty or matches nothing, the first key using alg is returned; if that key
// did not sign the token, verification fails with ErrInvalidSignature rather
// than here. ErrNoUsableKey is returned only when no key uses alg.
func SelectSigningKey(keys []jwks.SigningKey, alg SignatureAlgorithm, kid string) (jwks.SigningKey, error) {
	if kid != "" {
		for _, k := range keys {
			if k.KeyID == kid && string(k.Algorithm) == string(alg) {
				return k, nil
			}
		}
	}

	for _, k := range keys {
		if string(k.Algorithm) == string(alg) {
			return k, nil
		}
	}

	return jwks.SigningKey{}, core.NewError(core.ErrNoUsableKey,
		fmt.Sprintf("no %s key among %d published keys", alg, len(keys)), nil)
}
