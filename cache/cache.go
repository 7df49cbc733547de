// Package cache implements the three-tier image metadata cache: a
// process-local in-memory snapshot, a cross-process persistent tier behind
// the PersistentStore interface, and the origin listing adapter as the source
// of truth. Reads are served stale-while-revalidate; origin fetches are
// coalesced so one real fetch runs per process at a time.
package cache

import (
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
)

// Now returns the current time and can be "synthesized" if needed.
var Now = time.Now

// Origin lists the whole image collection from the origin provider. The
// origin subpackage implements it over the paginated listing API.
type Origin interface {
	ListImages(ctx context.Context, pageSize, maxPages int) ([]photarium.ImageRecord, error)
}

// VectorDeleter removes an image's embedding record. Removing an image from
// the cache also removes its vectors; the two calls are not transactional.
type VectorDeleter interface {
	DeleteVectors(ctx context.Context, imageID string) error
}

// Options are the cache tunables.
type Options struct {
	// MemoryTTL bounds how long the in-memory snapshot is served as fresh.
	MemoryTTL time.Duration `json:"memory_ttl"`
	// PersistentTTL bounds how long a persistent-tier entry is trusted.
	PersistentTTL time.Duration `json:"persistent_ttl"`
	// PageSize is the origin listing page size, bounded to the provider max.
	PageSize int `json:"page_size"`
	// MaxPages guards against unbounded pagination on misconfigured origins.
	// Zero means no guard.
	MaxPages int `json:"max_pages,omitempty"`
}

// DefaultOptions.
func DefaultOptions() Options {
	return Options{
		MemoryTTL:     5 * time.Minute,
		PersistentTTL: time.Hour,
		PageSize:      50,
	}
}

// Cache is the metadata cache service. Storage backends are injected, and
// Reset gives tests a clean slate; there is no ambient global state.
type Cache struct {
	opts    Options
	store   PersistentStore
	origin  Origin
	vectors VectorDeleter

	mu   sync.RWMutex
	snap *Snapshot

	group      singleflight.Group
	refreshing atomic.Bool
}

// New creates a metadata cache over the given tiers. store may be nil (no
// persistent tier) and vectors may be nil (no embedding cleanup on remove).
func New(opts Options, store PersistentStore, origin Origin, vectors VectorDeleter) *Cache {
	if opts.MemoryTTL <= 0 {
		opts.MemoryTTL = DefaultOptions().MemoryTTL
	}
	if opts.PersistentTTL <= 0 {
		opts.PersistentTTL = DefaultOptions().PersistentTTL
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultOptions().PageSize
	}
	return &Cache{
		opts:   opts,
		store:  store,
		origin: origin,
		vectors: vectors,
	}
}

// Get returns the image collection. A fresh in-memory snapshot is served
// directly. A stale one is served as-is while one background refresh runs.
// With no snapshot in memory the persistent tier is consulted, and only when
// that also misses does the caller wait on a (single-flight) origin fetch.
func (c *Cache) Get(ctx context.Context) ([]photarium.ImageRecord, error) {
	now := Now()

	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if snap != nil {
		if now.Sub(snap.Timestamp) <= c.opts.MemoryTTL {
			return snap.Images, nil
		}
		// Stale but valid: serve it and refresh behind the caller's back.
		c.refreshInBackground()
		return snap.Images, nil
	}

	if entry := c.loadPersistent(ctx); entry != nil && now.Sub(entry.Timestamp) <= c.opts.PersistentTTL {
		snap = NewSnapshot(entry.Images, entry.Timestamp)
		c.setSnapshot(snap)
		if now.Sub(entry.Timestamp) > c.opts.MemoryTTL {
			c.refreshInBackground()
		}
		return snap.Images, nil
	}

	snap, err := c.fetchOriginShared(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Images, nil
}

// Lookup returns one cached record by image id.
func (c *Cache) Lookup(ctx context.Context, imageID string) (*photarium.ImageRecord, error) {
	if _, err := c.Get(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, nil
	}
	return c.snap.Lookup(imageID), nil
}

// Refresh rebuilds the collection from origin. When force is false a fresh
// in-memory snapshot short-circuits the rebuild. On origin failure a good
// in-memory snapshot is served as fallback (logged); with none, the error
// propagates to the caller.
func (c *Cache) Refresh(ctx context.Context, force bool) ([]photarium.ImageRecord, error) {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()

	if !force && snap != nil && Now().Sub(snap.Timestamp) <= c.opts.MemoryTTL {
		return snap.Images, nil
	}

	fresh, err := c.fetchOriginShared(ctx)
	if err != nil {
		if snap != nil {
			log.Warn(fmt.Sprintf("origin refresh failed, serving last good snapshot, details: %v", err))
			return snap.Images, nil
		}
		return nil, err
	}
	return fresh.Images, nil
}

// Upsert adds or replaces one record in the snapshot and persists
// fire-and-forget. The snapshot timestamp is kept: touching one record does
// not extend the collection's freshness. A cold cache is hydrated first so
// the snapshot keeps describing the whole collection, not just this record.
func (c *Cache) Upsert(ctx context.Context, rec photarium.ImageRecord) {
	c.mu.RLock()
	cold := c.snap == nil
	c.mu.RUnlock()
	if cold {
		if _, err := c.Get(ctx); err != nil {
			log.Warn(fmt.Sprintf("hydrating cache before upsert failed, details: %v", err))
		}
	}

	c.mu.Lock()
	if c.snap == nil {
		// Hydration failed. Hold the record under a zero timestamp so the
		// next read still rebuilds from origin; the zero timestamp also
		// keeps this partial snapshot out of the persistent tier.
		c.snap = NewSnapshot(nil, time.Time{})
	}
	c.snap = c.snap.With(rec)
	snap := c.snap
	c.mu.Unlock()
	if !snap.Timestamp.IsZero() {
		c.persistAsync(snap)
	}
}

// Remove deletes one record and its embedding record. The two deletions are
// separate calls, not a transaction; a vector-delete failure only logs.
func (c *Cache) Remove(ctx context.Context, imageID string) {
	c.mu.Lock()
	if c.snap != nil {
		c.snap = c.snap.Without(imageID)
	}
	snap := c.snap
	c.mu.Unlock()

	if c.vectors != nil {
		if err := c.vectors.DeleteVectors(ctx, imageID); err != nil {
			log.Warn(fmt.Sprintf("vector delete for image %s failed, details: %v", imageID, err))
		}
	}
	if snap != nil && !snap.Timestamp.IsZero() {
		c.persistAsync(snap)
	}
}

// Reset clears the in-memory tier. Intended for test isolation.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.snap = nil
	c.mu.Unlock()
}

func (c *Cache) setSnapshot(s *Snapshot) {
	c.mu.Lock()
	c.snap = s
	c.mu.Unlock()
}

// fetchOriginShared coalesces concurrent origin fetches: all callers await
// the same attempt and receive the same result or the same error.
func (c *Cache) fetchOriginShared(ctx context.Context) (*Snapshot, error) {
	v, err, _ := c.group.Do("origin", func() (any, error) {
		return c.fetchOrigin(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (c *Cache) fetchOrigin(ctx context.Context) (*Snapshot, error) {
	cycle := uuid.NewString()
	started := Now()
	images, err := c.origin.ListImages(ctx, c.opts.PageSize, c.opts.MaxPages)
	if err != nil {
		return nil, fmt.Errorf("origin listing failed: %w", err)
	}
	snap := NewSnapshot(images, Now())
	c.setSnapshot(snap)
	c.persistAsync(snap)
	log.Debug(fmt.Sprintf("cache rebuild %s: %d images in %v", cycle, len(images), Now().Sub(started)))
	return snap, nil
}

// refreshInBackground starts at most one concurrent background refresh. It
// is fire-and-forget: failure only logs, the caller already got stale data.
func (c *Cache) refreshInBackground() {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.refreshing.Store(false)
		if _, err := c.fetchOrigin(context.Background()); err != nil {
			log.Warn(fmt.Sprintf("background cache refresh failed, details: %v", err))
		}
	}()
}

// persistAsync writes the snapshot to the persistent tier without blocking
// the read path that triggered it.
func (c *Cache) persistAsync(snap *Snapshot) {
	if c.store == nil || snap == nil {
		return
	}
	go func() {
		entry := &Entry{Images: snap.Images, Timestamp: snap.Timestamp}
		if err := c.store.Save(context.Background(), entry); err != nil {
			log.Warn(fmt.Sprintf("persistent cache save failed, details: %v", err))
		}
	}()
}

// loadPersistent reads the persistent tier; malformed or unreadable entries
// are logged and treated as a miss.
func (c *Cache) loadPersistent(ctx context.Context) *Entry {
	if c.store == nil {
		return nil
	}
	entry, err := c.store.Load(ctx)
	if err != nil {
		log.Warn(fmt.Sprintf("persistent cache load failed, treating as miss, details: %v", err))
		return nil
	}
	return entry
}
