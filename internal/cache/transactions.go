package cache

import (
	"context"
	"sync"
	"time"

	"finance-dashboard-backend/internal/models"
)

const maxLoadAttempts = 5

// Lister is the part of the transaction store the cache reads from.
type Lister interface {
	List(ctx context.Context) ([]models.Transaction, error)
}

// TransactionCache keeps a snapshot of the whole transaction list. Readers get
// a copy; the snapshot is only replaced by Refresh, by Put, or by a reload
// after Invalidate or TTL expiry.
type TransactionCache struct {
	store Lister
	ttl   time.Duration
	now   func() time.Time

	mu       sync.RWMutex
	items    []models.Transaction
	loaded   bool
	loadedAt time.Time
	// gen counts writes; a load only installs its result if gen is unchanged.
	gen uint64
}

// NewTransactionCache creates an empty cache. A zero ttl never expires.
func NewTransactionCache(store Lister, ttl time.Duration) *TransactionCache {
	return &TransactionCache{store: store, ttl: ttl, now: time.Now}
}

// Snapshot returns the cached list, loading it from the store first when the
// cache is empty, invalidated or expired.
func (c *TransactionCache) Snapshot(ctx context.Context) ([]models.Transaction, error) {
	c.mu.RLock()
	if c.fresh() {
		out := clone(c.items)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	return c.load(ctx)
}

// Refresh reloads the snapshot from the store unconditionally.
func (c *TransactionCache) Refresh(ctx context.Context) error {
	_, err := c.load(ctx)
	return err
}

// load lists the store and installs the result unless an Invalidate or Put
// happened while the list was being read. In that case the read may predate
// the write, so it is retried.
func (c *TransactionCache) load(ctx context.Context) ([]models.Transaction, error) {
	for attempt := 1; ; attempt++ {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		items, err := c.store.List(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if c.gen == gen {
			c.items = items
			c.loaded = true
			c.loadedAt = c.now()
			out := clone(items)
			c.mu.Unlock()
			return out, nil
		}
		c.mu.Unlock()

		if attempt == maxLoadAttempts {
			// Still racing with writers: serve this read without caching it.
			return clone(items), nil
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}

// Invalidate drops the snapshot; the next Snapshot reloads it.
func (c *TransactionCache) Invalidate() {
	c.mu.Lock()
	c.gen++
	c.items = nil
	c.loaded = false
	c.mu.Unlock()
}

// Put replaces the cached copy of tx in place. Unknown ids are ignored, the
// next reload will pick them up.
func (c *TransactionCache) Put(tx models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	for i := range c.items {
		if c.items[i].ID == tx.ID {
			c.items[i] = tx
			return
		}
	}
}

func (c *TransactionCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *TransactionCache) fresh() bool {
	if !c.loaded {
		return false
	}
	return c.ttl == 0 || c.now().Sub(c.loadedAt) < c.ttl
}

func clone(items []models.Transaction) []models.Transaction {
	if items == nil {
		return []models.Transaction{}
	}
	out := make([]models.Transaction, len(items))
	copy(out, items)
	return out
}
