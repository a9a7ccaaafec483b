package jwks

import (
	"context"
	"errors"
	"time"
)

// ErrStoreMiss is returned by a Store that holds no document for a key.
var ErrStoreMiss = errors.New("jwks: no stored key set")

// Store is an optional second-level cache shared between processes (e.g.
// Redis-backed). It holds raw JWKS documents exactly as fetched from the
// provider, together with the time they were fetched.
type Store interface {
	// Load returns the stored document for key, or ErrStoreMiss.
	Load(ctx context.Context, key string) (doc []byte, fetchedAt time.Time, err error)

	// Save stores a document fetched at fetchedAt. Implementations may expire
	// it after ttl.
	Save(ctx context.Context, key string, doc []byte, fetchedAt time.Time, ttl time.Duration) error
}
