// Package geocode resolves free-form addresses to coordinates via Nominatim
// (primary) and the Census Geocoder (fallback).
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrNoMatch is returned when no provider can resolve an address. Callers
// treat it as recoverable: skip the address and continue.
var ErrNoMatch = eris.New("geocode: no match for address")

// Result holds the geocoding output for an address.
type Result struct {
	Latitude    float64
	Longitude   float64
	Source      string // "nominatim" or "census"
	DisplayName string
	Matched     bool
}

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Client geocodes addresses by trying providers in order.
type Client interface {
	// Geocode resolves a single address. Returns ErrNoMatch when no
	// provider matches.
	Geocode(ctx context.Context, address string) (*Result, error)

	// BatchGeocode resolves multiple addresses. Unmatched addresses come
	// back with Matched=false rather than failing the batch.
	BatchGeocode(ctx context.Context, addresses []string) ([]Result, error)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client for all provider requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent to providers. Nominatim
// rejects requests without one.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithRetries sets the number of retries per provider request.
func WithRetries(n int) Option {
	return func(g *geocoder) {
		if n >= 0 {
			g.retries = n
		}
	}
}

// WithRateLimit sets the requests-per-second limit across all providers.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		if rps > 0 {
			g.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// WithCache enables a SQLite response cache at the given path. Cache failures
// are logged and ignored; the cache never blocks a lookup.
func WithCache(path string) Option {
	return func(g *geocoder) {
		cache, err := newSQLiteCache(path)
		if err != nil {
			zap.L().Warn("geocode: cache unavailable", zap.String("path", path), zap.Error(err))
			return
		}
		g.cache = cache
	}
}

// WithProviders replaces the default provider cascade.
func WithProviders(providers ...Provider) Option {
	return func(g *geocoder) {
		g.providers = providers
	}
}

// WithBatchConcurrency sets the max parallel lookups for BatchGeocode.
func WithBatchConcurrency(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.batchConcurrency = n
		}
	}
}

type geocoder struct {
	httpClient       *http.Client
	userAgent        string
	retries          int
	limiter          *rate.Limiter
	cache            *sqliteCache
	providers        []Provider
	batchConcurrency int
}

// NewClient creates a geocoding Client with the default Nominatim-then-Census
// cascade.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		userAgent:        "placewell/1.0",
		retries:          2,
		limiter:          rate.NewLimiter(1, 1), // Nominatim usage policy: 1 req/s
		batchConcurrency: 4,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.providers == nil {
		g.providers = []Provider{
			&NominatimProvider{client: g},
			&CensusProvider{client: g},
		}
	}
	return g
}

// Geocode implements Client by trying each provider in order.
func (g *geocoder) Geocode(ctx context.Context, address string) (*Result, error) {
	key := cacheKey(address)

	if g.cache != nil {
		if cached, err := g.cache.get(ctx, key); err == nil && cached != nil {
			if !cached.Matched {
				return nil, eris.Wrapf(ErrNoMatch, "geocode: %q", address)
			}
			return cached, nil
		}
	}

	for _, p := range g.providers {
		result, err := p.Geocode(ctx, address)
		if err != nil {
			zap.L().Debug("geocode: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			if g.cache != nil {
				if err := g.cache.put(ctx, key, result); err != nil {
					zap.L().Debug("geocode: cache store failed", zap.Error(err))
				}
			}
			return result, nil
		}
	}

	// All providers missed. Cache the non-match so repeated lookups of a
	// bad address stay cheap.
	if g.cache != nil {
		if err := g.cache.put(ctx, key, &Result{Matched: false}); err != nil {
			zap.L().Debug("geocode: cache store failed", zap.Error(err))
		}
	}
	return nil, eris.Wrapf(ErrNoMatch, "geocode: %q", address)
}

// BatchGeocode implements Client by resolving addresses in parallel.
func (g *geocoder) BatchGeocode(ctx context.Context, addresses []string) ([]Result, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	results := make([]Result, len(addresses))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.batchConcurrency)

	for i, addr := range addresses {
		i, addr := i, addr
		eg.Go(func() error {
			r, err := g.Geocode(gCtx, addr)
			if err != nil || r == nil {
				results[i] = Result{Matched: false}
				return nil //nolint:nilerr // individual misses don't fail the batch
			}
			results[i] = *r
			return nil
		})
	}

	_ = eg.Wait()
	return results, nil
}

// doWithRetries performs an HTTP request, retrying transient failures. The
// request body must be nil (all provider requests are GETs).
func (g *geocoder) doWithRetries(ctx context.Context, req *http.Request) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= g.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "geocode: retry wait")
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geocode: rate limit")
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close() //nolint:errcheck
			lastErr = eris.Errorf("geocode: status %d", resp.StatusCode)
			continue
		}
		return resp, nil
	}
	return nil, eris.Wrap(lastErr, "geocode: request failed")
}
