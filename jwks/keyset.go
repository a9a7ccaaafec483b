package jwks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/blackrose-eve/eve-oauth2/core"
)

// KeySet is an immutable snapshot of the provider's signing keys.
type KeySet struct {
	// Keys are the usable signing keys in document order.
	Keys []SigningKey

	// FetchedAt is when the refresh that produced this set started.
	FetchedAt time.Time
}

// Age returns how old the set is at now.
func (ks *KeySet) Age(now time.Time) time.Duration {
	return now.Sub(ks.FetchedAt)
}

// RSAComponents are the public components of an RSA key.
type RSAComponents struct {
	Modulus  []byte // n, big-endian
	Exponent []byte // e, big-endian
}

// ECComponents are the public components of an elliptic curve key.
type ECComponents struct {
	Curve string // e.g. "P-256"
	X     []byte
	Y     []byte
}

// SigningKey is a public verification key from a JWKS document. Exactly one
// of RSA and EC is set, according to KeyType.
type SigningKey struct {
	Algorithm jwa.SignatureAlgorithm
	KeyID     string
	KeyType   jwa.KeyType
	Use       string

	RSA *RSAComponents
	EC  *ECComponents

	key jwk.Key
}

// JWK returns the public key as a jwk.Key, for use with jws.Verify.
func (k SigningKey) JWK() jwk.Key {
	return k.key
}

// NewSigningKey builds a SigningKey from a parsed JWK. Private keys are
// reduced to their public half.
func NewSigningKey(key jwk.Key) (SigningKey, error) {
	pub, err := key.PublicKey()
	if err != nil {
		return SigningKey{}, fmt.Errorf("could not derive public key: %w", err)
	}

	sk := SigningKey{
		KeyID:   pub.KeyID(),
		KeyType: pub.KeyType(),
		Use:     pub.KeyUsage(),
		key:     pub,
	}
	if alg := pub.Algorithm(); alg != nil {
		sk.Algorithm = jwa.SignatureAlgorithm(alg.String())
	}

	switch k := pub.(type) {
	case jwk.RSAPublicKey:
		sk.RSA = &RSAComponents{Modulus: k.N(), Exponent: k.E()}
	case jwk.ECDSAPublicKey:
		sk.EC = &ECComponents{Curve: k.Crv().String(), X: k.X(), Y: k.Y()}
	default:
		return SigningKey{}, fmt.Errorf("unsupported key type %q", pub.KeyType())
	}

	return sk, nil
}

// ParseKeySet parses a JWKS document into a KeySet stamped with fetchedAt.
//
// Keys whose use is not "sig" and keys of unsupported types are skipped and
// reported through skipped. A document that does not decode, or has no
// "keys" array, is ErrMalformedProviderResponse.
func ParseKeySet(doc []byte, fetchedAt time.Time) (ks *KeySet, skipped []string, err error) {
	var shape struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.Unmarshal(doc, &shape); err != nil {
		return nil, nil, core.NewError(core.ErrMalformedProviderResponse, "could not decode JWKS", err)
	}
	if shape.Keys == nil {
		return nil, nil, core.NewError(core.ErrMalformedProviderResponse, "JWKS has no keys member", nil)
	}

	set, err := jwk.Parse(doc)
	if err != nil {
		return nil, nil, core.NewError(core.ErrMalformedProviderResponse, "could not parse JWKS", err)
	}

	ks = &KeySet{
		Keys:      make([]SigningKey, 0, set.Len()),
		FetchedAt: fetchedAt,
	}
	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if use := key.KeyUsage(); use != "" && use != string(jwk.ForSignature) {
			skipped = append(skipped, fmt.Sprintf("%s: use %q", key.KeyID(), use))
			continue
		}
		sk, err := NewSigningKey(key)
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", key.KeyID(), err))
			continue
		}
		ks.Keys = append(ks.Keys, sk)
	}

	return ks, skipped, nil
}
