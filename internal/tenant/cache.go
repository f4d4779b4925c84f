// internal/tenant/cache.go
//
// Lazy tenant cache: domain → *Tenant with singleflight loading and
// idle/LRU eviction.  Tenants hold only immutable data (row + globals
// map), so eviction is purely a memory concern.
package tenant

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"github.com/SidebySideWeb/ftiaxesitecms/internal/metrics"
	"github.com/SidebySideWeb/ftiaxesitecms/internal/settings"
)

// Static defaults.  Override via the New parameters if desired.
const (
	IdleTTL       = 30 * time.Minute
	MaxEntries    = 100
	EvictInterval = 5 * time.Minute
)

// ErrNotFound is returned when a domain or slug is not present in the
// tenants table (or the row is suspended or deleted).
var ErrNotFound = errors.New("tenant not found")

// Cache lazily loads tenants, stores them in a sync.Map, and evicts them
// on idle TTL or LRU pressure.
type Cache struct {
	db          *sqlx.DB
	sfg         singleflight.Group
	m           sync.Map
	evictTicker *time.Ticker
	idleTTL     time.Duration
	maxEntries  int
}

// New constructs a Cache and starts the background evictor.
func New(db *sqlx.DB, idleTTL time.Duration, maxEntries int) *Cache {
	c := &Cache{
		db:         db,
		idleTTL:    idleTTL,
		maxEntries: maxEntries,
	}
	c.evictTicker = time.NewTicker(EvictInterval)
	go c.evictLoop()
	return c
}

// Get returns the Tenant for domain, loading it on demand.
func (c *Cache) Get(domain string) (*Tenant, error) {
	if v, ok := c.m.Load(domain); ok {
		ent := v.(*entry)
		atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
		return ent.tenant, nil
	}

	v, err, _ := c.sfg.Do(domain, func() (interface{}, error) {
		// Double-check after singleflight barrier.
		if v, ok := c.m.Load(domain); ok {
			ent := v.(*entry)
			atomic.StoreInt64(&ent.lastSeen, time.Now().UnixNano())
			return ent.tenant, nil
		}
		ten, err := loadTenant(context.Background(), c.db, domain)
		if err != nil {
			metrics.TenantLoadErrorsTotal.Inc()
			return nil, err
		}
		ent := &entry{
			tenant:   ten,
			lastSeen: time.Now().UnixNano(),
		}
		c.m.Store(domain, ent)
		metrics.TenantLoadTotal.Inc()
		metrics.ActiveTenants.Inc()
		return ten, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Tenant), nil
}

// Invalidate drops one entry so the next Get reloads fresh globals (the
// settings editor calls this after an upsert).
func (c *Cache) Invalidate(domain string) {
	if _, ok := c.m.LoadAndDelete(domain); ok {
		metrics.ActiveTenants.Dec()
	}
}

// loadTenant turns domain → *Tenant.  Steps:
//
//  1. Fetch the tenants row by domain.
//  2. Fetch the tenant's published globals.
func loadTenant(ctx context.Context, db *sqlx.DB, domain string) (*Tenant, error) {
	rec, err := ByDomain(ctx, db, domain)
	if err != nil {
		return nil, err
	}

	globals, err := settings.AllFor(ctx, db, rec.ID)
	if err != nil {
		return nil, err
	}

	return &Tenant{
		Meta:    *rec,
		Globals: globals,
	}, nil
}
