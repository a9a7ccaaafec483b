// Package redisstore implements jwks.Store on Redis, so that a fleet of
// processes refreshing the same provider shares one JWKS document.
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	cache, err := jwks.New(jwks.WithStore(redisstore.New(client)))
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/blackrose-eve/eve-oauth2/jwks"
)

// DefaultKeyPrefix namespaces the keys written by a Store.
const DefaultKeyPrefix = "eve-oauth2:jwks"

// Store is a Redis-backed jwks.Store.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix replaces DefaultKeyPrefix. An empty prefix stores documents
// under the bare cache key.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.keyPrefix = prefix
	}
}

// New returns a Store using client. The client is not closed by the Store.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// entry is the value stored under each key.
type entry struct {
	FetchedAt time.Time `json:"fetched_at"`
	Document  string    `json:"document"`
}

func (s *Store) fullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load implements jwks.Store.
func (s *Store) Load(ctx context.Context, key string) ([]byte, time.Time, error) {
	raw, err := s.client.Get(ctx, s.fullKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, time.Time{}, jwks.ErrStoreMiss
		}
		return nil, time.Time{}, fmt.Errorf("redis get %q: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode stored key set %q: %w", key, err)
	}

	return []byte(e.Document), e.FetchedAt, nil
}

// Save implements jwks.Store. The entry expires after ttl; a zero ttl keeps
// it until overwritten.
func (s *Store) Save(ctx context.Context, key string, doc []byte, fetchedAt time.Time, ttl time.Duration) error {
	data, err := json.Marshal(entry{FetchedAt: fetchedAt, Document: string(doc)})
	if err != nil {
		return fmt.Errorf("encode key set %q: %w", key, err)
	}
	if err := s.client.Set(ctx, s.fullKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %q: %w", key, err)
	}
	return nil
}

var _ jwks.Store = (*Store)(nil)
