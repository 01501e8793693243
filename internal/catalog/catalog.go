// Package catalog serves the read-mostly reference datasets (materials,
// frame types, glazing types) from a time-boxed local cache in front of
// the remote API.
//
// Each catalog is stored under its key as raw JSON, with its expiry as
// epoch milliseconds under key+"_expiry". Catalogs are independent:
// refreshing one never touches another.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/zulandar/stratum/internal/kv"
	"github.com/zulandar/stratum/internal/logger"
	"golang.org/x/sync/singleflight"
)

// Catalog keys.
const (
	Materials = "materials"
	Frames    = "frames"
	Glazing   = "glazing"
)

// DefaultTTL is how long a fetched catalog is served without refetching.
const DefaultTTL = 24 * time.Hour

// DefaultFetchTimeout bounds one shared fetch.
const DefaultFetchTimeout = 30 * time.Second

const expirySuffix = "_expiry"

// ErrUnknownCatalog is returned for a key outside the configured set.
var ErrUnknownCatalog = errors.New("unknown catalog")

// Fetcher retrieves one catalog from the source of truth.
type Fetcher interface {
	FetchCatalog(ctx context.Context, key string) (json.RawMessage, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, key string) (json.RawMessage, error)

func (f FetcherFunc) FetchCatalog(ctx context.Context, key string) (json.RawMessage, error) {
	return f(ctx, key)
}

// Options holds parameters for New.
type Options struct {
	Store   kv.Store
	Fetcher Fetcher
	TTL     time.Duration    // defaults to DefaultTTL
	Now     func() time.Time // defaults to time.Now
	Logger  *logger.Logger   // defaults to a no-op logger
	Metrics *Metrics         // optional
	Keys    []string         // allowed catalog keys; empty allows any
	// FetchTimeout bounds a fetch shared by concurrent callers; defaults
	// to DefaultFetchTimeout.
	FetchTimeout time.Duration
	// CloseStore makes Close also close Store.
	CloseStore bool
}

// Cache is the reference data cache. It is safe for concurrent use.
type Cache struct {
	store        kv.Store
	fetcher      Fetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger
	metrics      *Metrics
	keys         []string
	closeStore   bool
	group        singleflight.Group
}

// New builds a Cache.
func New(opts Options) (*Cache, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("catalog: store is required")
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("catalog: fetcher is required")
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Cache{
		store:        opts.Store,
		fetcher:      opts.Fetcher,
		ttl:          opts.TTL,
		fetchTimeout: opts.FetchTimeout,
		now:          opts.Now,
		log:          opts.Logger.With("component", "catalog"),
		metrics:      opts.Metrics,
		keys:         slices.Clone(opts.Keys),
		closeStore:   opts.CloseStore,
	}, nil
}

// Close releases the store when the cache owns it.
func (c *Cache) Close() error {
	if c.closeStore {
		return c.store.Close()
	}
	return nil
}

func (c *Cache) checkKey(key string) error {
	if key == "" || (len(c.keys) > 0 && !slices.Contains(c.keys, key)) {
		return fmt.Errorf("catalog: %q: %w", key, ErrUnknownCatalog)
	}
	return nil
}

// Load returns the cached catalog while it is fresh, without touching the
// network. Otherwise it fetches, stores the result with a new expiry and
// returns it. A failed fetch leaves the stored entry exactly as it was.
func (c *Cache) Load(ctx context.Context, key string) (json.RawMessage, error) {
	if err := c.checkKey(key); err != nil {
		return nil, err
	}
	expiry, ok, err := c.Expiry(ctx, key)
	if err != nil {
		return nil, err
	}
	if ok && c.now().Before(expiry) {
		raw, err := c.store.Get(ctx, key)
		if err == nil {
			c.metrics.hit(key)
			return raw, nil
		}
		if !errors.Is(err, kv.ErrNotFound) {
			return nil, fmt.Errorf("catalog: read %s: %w", key, err)
		}
	}
	c.metrics.miss(key)
	return c.fetch(ctx, key)
}

// Refresh fetches and overwrites the entry regardless of its expiry.
func (c *Cache) Refresh(ctx context.Context, key string) (json.RawMessage, error) {
	if err := c.checkKey(key); err != nil {
		return nil, err
	}
	return c.fetch(ctx, key)
}

// Invalidate removes the entry and its expiry so the next Load fetches.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if err := c.checkKey(key); err != nil {
		return err
	}
	if err := c.store.Delete(ctx, key, key+expirySuffix); err != nil {
		return fmt.Errorf("catalog: invalidate %s: %w", key, err)
	}
	c.log.Info("catalog invalidated", "catalog", key)
	return nil
}

// Expiry returns the stored expiry of key; ok is false when none is stored
// or it cannot be parsed.
func (c *Cache) Expiry(ctx context.Context, key string) (time.Time, bool, error) {
	raw, err := c.store.Get(ctx, key+expirySuffix)
	if errors.Is(err, kv.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("catalog: read %s expiry: %w", key, err)
	}
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		c.log.Warn("ignoring unparseable catalog expiry", "catalog", key, "raw", string(raw))
		return time.Time{}, false, nil
	}
	return time.UnixMilli(ms), true, nil
}

// Peek returns whatever is stored for key, fresh or not, without fetching.
// It returns kv.ErrNotFound when nothing was ever stored.
func (c *Cache) Peek(ctx context.Context, key string) (json.RawMessage, error) {
	if err := c.checkKey(key); err != nil {
		return nil, err
	}
	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("catalog: peek %s: %w", key, err)
	}
	return raw, nil
}

// LoadOrStale is Load, except that a failed fetch falls back to a
// previously stored (expired) entry. stale reports whether it did. With no
// stored entry the fetch error is returned.
func (c *Cache) LoadOrStale(ctx context.Context, key string) (raw json.RawMessage, stale bool, err error) {
	raw, err = c.Load(ctx, key)
	if err == nil {
		return raw, false, nil
	}
	prev, peekErr := c.Peek(ctx, key)
	if peekErr != nil {
		return nil, false, err
	}
	c.log.Warn("serving stale catalog after fetch failure", "catalog", key, "error", err)
	return prev, true, nil
}

// fetch collapses concurrent fetches of one key into a single request.
// The shared request runs detached from any one caller's context, bounded
// by the fetch timeout; each caller stops waiting when its own ctx ends.
func (c *Cache) fetch(ctx context.Context, key string) (json.RawMessage, error) {
	ch := c.group.DoChan(key, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()
		return c.fetchAndStore(fctx, key)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("catalog: fetch %s: %w", key, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(json.RawMessage), nil
	}
}

func (c *Cache) fetchAndStore(ctx context.Context, key string) (json.RawMessage, error) {
	raw, err := c.fetcher.FetchCatalog(ctx, key)
	if err != nil {
		c.metrics.fetchError(key)
		return nil, fmt.Errorf("catalog: fetch %s: %w", key, err)
	}
	if !json.Valid(raw) {
		c.metrics.fetchError(key)
		return nil, fmt.Errorf("catalog: fetch %s: malformed JSON response", key)
	}

	prev, err := c.store.Get(ctx, key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("catalog: read %s: %w", key, err)
	}
	hadPrev := err == nil
	if err := c.store.Set(ctx, key, raw); err != nil {
		return nil, fmt.Errorf("catalog: store %s: %w", key, err)
	}
	expiry := c.now().Add(c.ttl)
	if err := c.store.Set(ctx, key+expirySuffix, []byte(strconv.FormatInt(expiry.UnixMilli(), 10))); err != nil {
		// The new payload must not be served under the old expiry.
		var rerr error
		if hadPrev {
			rerr = c.store.Set(ctx, key, prev)
		} else {
			rerr = c.store.Delete(ctx, key)
		}
		if rerr != nil {
			c.log.Error("failed to restore catalog after expiry write error", "catalog", key, "error", rerr)
		}
		return nil, fmt.Errorf("catalog: store %s expiry: %w", key, err)
	}
	c.log.Debug("catalog fetched", "catalog", key, "bytes", len(raw), "expires", expiry)
	return raw, nil
}
