package config

import (
	"github.com/redis/go-redis/v9"

	"github.com/blackrose-eve/eve-oauth2/jwks/redisstore"
)

// RedisClient returns a client for the configured Redis, or nil when no
// address is set.
func (s *Settings) RedisClient() redis.UniversalClient {
	if s.Redis.Addr == "" {
		return nil
	}
	return redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{s.Redis.Addr},
		Password: s.Redis.Password,
		DB:       s.Redis.DB,
	})
}

// KeySetStore returns a Redis-backed key set store and the client it uses,
// or nils when no address is set. The caller closes the client.
func (s *Settings) KeySetStore() (*redisstore.Store, redis.UniversalClient) {
	client := s.RedisClient()
	if client == nil {
		return nil, nil
	}

	var opts []redisstore.Option
	if s.Redis.KeyPrefix != "" {
		opts = append(opts, redisstore.WithKeyPrefix(s.Redis.KeyPrefix))
	}
	return redisstore.New(client, opts...), client
}
