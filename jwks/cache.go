package jwks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/blackrose-eve/eve-oauth2/core"
	"github.com/blackrose-eve/eve-oauth2/internal/oidc"
)

const (
	// DefaultDiscoveryURL is EVE Online's authorization server metadata endpoint.
	DefaultDiscoveryURL = "https://login.eveonline.com/.well-known/oauth-authorization-server"

	// DefaultTTL is the maximum age of a cached key set.
	DefaultTTL = 3 * time.Hour

	// DefaultFetchTimeout bounds a single refresh.
	DefaultFetchTimeout = 10 * time.Second

	instrumentationName = "github.com/blackrose-eve/eve-oauth2/jwks"
	refreshKey          = "keyset"
)

// Metric names.
const (
	MetricCacheRequests   = "jwks_cache_requests_total"
	MetricRefreshes       = "jwks_refresh_total"
	MetricRefreshDuration = "jwks_refresh_duration_seconds"
	MetricKeys            = "jwks_keys"
)

// Cache holds the most recent KeySet fetched from the provider and refreshes
// it when it is older than the TTL. It is safe for concurrent use; concurrent
// callers hitting a stale or empty cache share a single refresh.
type Cache struct {
	discoveryURL string
	jwksURI      string
	client       *http.Client
	ttl          time.Duration
	fetchTimeout time.Duration
	store        Store
	now          func() time.Time
	logger       core.Logger
	metrics      core.Metrics
	tracer       trace.Tracer

	mu      sync.RWMutex
	current *KeySet

	group singleflight.Group
}

// New builds and returns a new *Cache.
//
// Optional options:
//   - WithDiscoveryURL: metadata endpoint (default: EVE Online)
//   - WithJWKSURI: JWKS endpoint (skips discovery)
//   - WithHTTPClient: custom HTTP client
//   - WithTTL: maximum key set age (default: 3 hours)
//   - WithFetchTimeout: per-refresh timeout (default: 10 seconds)
//   - WithStore: shared second-level store
//
// Example:
//
//	cache, err := jwks.New(
//	    jwks.WithTTL(time.Hour),
//	    jwks.WithHTTPClient(myHTTPClient),
//	)
//	keys, err := cache.Keys(ctx)
func New(opts ...Option) (*Cache, error) {
	c := &Cache{
		discoveryURL: DefaultDiscoveryURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		ttl:          DefaultTTL,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		logger:       core.NopLogger{},
		metrics:      core.NoopMetrics{},
		tracer:       otel.GetTracerProvider().Tracer(instrumentationName),
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return c, nil
}

// TTL returns the configured maximum key set age.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Keys returns a KeySet no older than the TTL, refreshing it first when
// needed. Errors are ErrProviderUnreachable or ErrMalformedProviderResponse;
// a stale set is never returned in place of a failed refresh.
func (c *Cache) Keys(ctx context.Context) (*KeySet, error) {
	if ks := c.fresh(); ks != nil {
		c.metrics.IncCounter(MetricCacheRequests, map[string]string{"result": "hit"})
		return ks, nil
	}
	c.metrics.IncCounter(MetricCacheRequests, map[string]string{"result": "miss"})

	return c.refresh(ctx, false)
}

// Refresh fetches a new KeySet regardless of the cached one's age, bypassing
// the shared Store. Concurrent refreshes are still coalesced.
func (c *Cache) Refresh(ctx context.Context) (*KeySet, error) {
	return c.refresh(ctx, true)
}

// fresh returns the cached set if its age does not exceed the TTL.
func (c *Cache) fresh() *KeySet {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil || c.current.Age(c.now()) > c.ttl {
		return nil
	}
	return c.current
}

func (c *Cache) refresh(ctx context.Context, force bool) (*KeySet, error) {
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		// Another flight may have completed between our staleness check
		// and joining the group.
		if !force {
			if ks := c.fresh(); ks != nil {
				return ks, nil
			}
		}

		// The flight is shared, so it must not die with the caller that
		// happened to start it.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		return c.load(fetchCtx, force)
	})

	select {
	case <-ctx.Done():
		return nil, core.NewError(core.ErrProviderUnreachable,
			"gave up waiting for key set refresh", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}

// load produces a new KeySet from the shared store or the network and
// installs it as the current set.
func (c *Cache) load(ctx context.Context, force bool) (*KeySet, error) {
	ctx, span := c.tracer.Start(ctx, "jwks.refresh")
	defer span.End()

	started := c.now()

	ks, source, err := c.loadShared(ctx, force)
	if ks == nil && err == nil {
		source = "network"
		ks, err = c.fetch(ctx, started)
	}

	duration := c.now().Sub(started)
	tags := map[string]string{"source": source, "result": "ok"}
	if err != nil {
		tags["result"] = core.CodeOf(err)
		c.metrics.IncCounter(MetricRefreshes, tags)
		c.metrics.ObserveHistogram(MetricRefreshDuration, duration.Seconds(), tags)

		span.RecordError(err)
		span.SetStatus(codes.Error, core.CodeOf(err))
		c.logger.Error("jwks refresh failed", "source", source, "error", err, "duration", duration)
		return nil, err
	}

	c.mu.Lock()
	c.current = ks
	c.mu.Unlock()

	c.metrics.IncCounter(MetricRefreshes, tags)
	c.metrics.ObserveHistogram(MetricRefreshDuration, duration.Seconds(), tags)
	c.metrics.SetGauge(MetricKeys, float64(len(ks.Keys)), map[string]string{})

	span.SetAttributes(
		attribute.String("jwks.source", source),
		attribute.Int("jwks.keys", len(ks.Keys)),
	)
	c.logger.Info("jwks refreshed", "source", source, "keys", len(ks.Keys), "duration", duration)

	return ks, nil
}

// loadShared consults the shared store. It returns (nil, "", nil) when the
// network must be used; store failures are logged, never returned.
func (c *Cache) loadShared(ctx context.Context, force bool) (*KeySet, string, error) {
	if c.store == nil || force {
		return nil, "", nil
	}

	doc, fetchedAt, err := c.store.Load(ctx, c.storeKey())
	if err != nil {
		if !errors.Is(err, ErrStoreMiss) {
			c.logger.Warn("jwks store load failed", "error", err)
		}
		return nil, "", nil
	}
	if c.now().Sub(fetchedAt) > c.ttl {
		return nil, "", nil
	}

	ks, skipped, err := ParseKeySet(doc, fetchedAt)
	if err != nil {
		c.logger.Warn("jwks store returned an unusable document", "error", err)
		return nil, "", nil
	}
	c.logSkipped(skipped)

	return ks, "store", nil
}

// fetch performs a full refresh from the provider: metadata, then JWKS.
func (c *Cache) fetch(ctx context.Context, started time.Time) (*KeySet, error) {
	jwksURI := c.jwksURI
	if jwksURI == "" {
		metadata, err := oidc.FetchMetadata(ctx, c.client, c.discoveryURL)
		if err != nil {
			return nil, err
		}
		jwksURI = metadata.JWKSURI
	}

	doc, err := oidc.Get(ctx, c.client, jwksURI)
	if err != nil {
		return nil, err
	}

	ks, skipped, err := ParseKeySet(doc, started)
	if err != nil {
		return nil, err
	}
	c.logSkipped(skipped)

	if c.store != nil {
		if err := c.store.Save(ctx, c.storeKey(), doc, started, c.ttl); err != nil {
			c.logger.Warn("jwks store save failed", "error", err)
		}
	}

	return ks, nil
}

func (c *Cache) storeKey() string {
	if c.jwksURI != "" {
		return c.jwksURI
	}
	return c.discoveryURL
}

func (c *Cache) logSkipped(skipped []string) {
	for _, s := range skipped {
		c.logger.Debug("jwks key skipped", "key", s)
	}
}
