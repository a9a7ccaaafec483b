package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackrose-eve/eve-oauth2/internal/testprovider"
	"github.com/blackrose-eve/eve-oauth2/jwks"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return New(client, opts...), mini
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()
	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := []byte(`{"keys":[]}`)

	require.NoError(t, store.Save(ctx, "https://login.eveonline.com/oauth/jwks", doc, fetchedAt, time.Hour))

	got, gotFetchedAt, err := store.Load(ctx, "https://login.eveonline.com/oauth/jwks")
	require.NoError(t, err)
	assert.Equal(t, doc, got)
	assert.True(t, fetchedAt.Equal(gotFetchedAt))

	assert.True(t, mini.Exists(DefaultKeyPrefix+":https://login.eveonline.com/oauth/jwks"))
	assert.Equal(t, time.Hour, mini.TTL(DefaultKeyPrefix+":https://login.eveonline.com/oauth/jwks"))
}

func TestStore_LoadMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, err := store.Load(context.Background(), "nonexistent")
	assert.True(t, errors.Is(err, jwks.ErrStoreMiss), "got %v", err)
}

func TestStore_Expiry(t *testing.T) {
	store, mini := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", []byte(`{"keys":[]}`), time.Now(), 2*time.Second))
	mini.FastForward(3 * time.Second)

	_, _, err := store.Load(ctx, "k")
	assert.True(t, errors.Is(err, jwks.ErrStoreMiss), "got %v", err)
}

func TestStore_KeyPrefix(t *testing.T) {
	t.Run("custom", func(t *testing.T) {
		store, mini := newTestStore(t, WithKeyPrefix("myprefix"))
		require.NoError(t, store.Save(context.Background(), "k", []byte(`{}`), time.Now(), 0))
		assert.True(t, mini.Exists("myprefix:k"))
	})

	t.Run("empty", func(t *testing.T) {
		store, mini := newTestStore(t, WithKeyPrefix(""))
		require.NoError(t, store.Save(context.Background(), "k", []byte(`{}`), time.Now(), 0))
		assert.True(t, mini.Exists("k"))
	})
}

func TestStore_CorruptEntry(t *testing.T) {
	store, mini := newTestStore(t)
	require.NoError(t, mini.Set(DefaultKeyPrefix+":k", "not json"))

	_, _, err := store.Load(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, jwks.ErrStoreMiss))
}

func TestStore_Unavailable(t *testing.T) {
	store, mini := newTestStore(t)
	mini.Close()

	_, _, err := store.Load(context.Background(), "k")
	require.Error(t, err)
	assert.False(t, errors.Is(err, jwks.ErrStoreMiss))

	err = store.Save(context.Background(), "k", []byte(`{}`), time.Now(), time.Minute)
	assert.Error(t, err)
}

func TestStore_SharedBetweenCaches(t *testing.T) {
	p := testprovider.New(t)
	p.SetKeys(testprovider.NewRSAKey(t, "k1"))
	store, _ := newTestStore(t)

	first, err := jwks.New(jwks.WithDiscoveryURL(p.DiscoveryURL()), jwks.WithStore(store))
	require.NoError(t, err)
	second, err := jwks.New(jwks.WithDiscoveryURL(p.DiscoveryURL()), jwks.WithStore(store))
	require.NoError(t, err)

	_, err = first.Keys(context.Background())
	require.NoError(t, err)
	ks, err := second.Keys(context.Background())
	require.NoError(t, err)

	require.Len(t, ks.Keys, 1)
	assert.Equal(t, "k1", ks.Keys[0].KeyID)
	assert.Equal(t, 1, p.Requests(testprovider.JWKSPath))
}
