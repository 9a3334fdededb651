// Package cache provides caching infrastructure with PostgreSQL LISTEN/NOTIFY support.
package cache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/singleflight"

	"bizreports/internal/domain/currency"
	"bizreports/pkg/logger"
)

// CurrencyChannel is the NOTIFY channel that invalidates cached currencies.
// Payload is a currency id, or empty to drop everything.
const CurrencyChannel = "currencies_changed"

type cachedCurrency struct {
	value    currency.Currency
	loadedAt time.Time
}

// CurrencyCache is a read-through cache in front of a currency.Lookup.
// Concurrent misses for one id share a single load.
type CurrencyCache struct {
	loader currency.Lookup
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	items map[int64]cachedCurrency
	group singleflight.Group

	// LISTEN lifecycle; pool is nil when invalidation is TTL-only.
	pool        *pgxpool.Pool
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewCurrencyCache wraps loader. A zero ttl keeps entries until invalidated.
func NewCurrencyCache(loader currency.Lookup, ttl time.Duration) *CurrencyCache {
	return &CurrencyCache{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
		items:  make(map[int64]cachedCurrency),
	}
}

// WithNotify enables LISTEN-based invalidation over pool once Start is called.
func (c *CurrencyCache) WithNotify(pool *pgxpool.Pool) *CurrencyCache {
	c.pool = pool
	return c
}

// Get returns the currency, loading it on a miss or after expiry.
func (c *CurrencyCache) Get(ctx context.Context, id int64) (*currency.Currency, error) {
	if cur, ok := c.lookup(id); ok {
		return cur, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(id, 10), func() (any, error) {
		if cur, ok := c.lookup(id); ok {
			return cur, nil
		}
		// The load is shared by every waiter, so one caller's cancellation must not fail the rest.
		cur, err := c.loader.Get(context.WithoutCancel(ctx), id)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items[id] = cachedCurrency{value: *cur, loadedAt: c.now()}
		c.mu.Unlock()
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	cur := *v.(*currency.Currency)
	return &cur, nil
}

func (c *CurrencyCache) lookup(id int64) (*currency.Currency, bool) {
	c.mu.RLock()
	item, ok := c.items[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(item.loadedAt) > c.ttl {
		return nil, false
	}
	cur := item.value
	return &cur, true
}

// Invalidate drops one cached currency.
func (c *CurrencyCache) Invalidate(id int64) {
	c.mu.Lock()
	delete(c.items, id)
	c.mu.Unlock()
}

// InvalidateAll drops every cached currency.
func (c *CurrencyCache) InvalidateAll() {
	c.mu.Lock()
	c.items = make(map[int64]cachedCurrency)
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired ones included.
func (c *CurrencyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Start begins listening for invalidation notifications. It is a no-op without a pool.
func (c *CurrencyCache) Start(ctx context.Context) {
	if c.pool == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.started {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "currency cache listening", "channel", CurrencyChannel)
}

// Stop ends the listener and waits for it to exit.
func (c *CurrencyCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	cancel()
	c.wg.Wait()
}

func (c *CurrencyCache) listenLoop() {
	defer c.wg.Done()

	for c.ctx.Err() == nil {
		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			sleepCtx(c.ctx, time.Second)
			continue
		}

		if _, err := conn.Exec(c.ctx, "LISTEN "+CurrencyChannel); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			sleepCtx(c.ctx, time.Second)
			continue
		}

		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *CurrencyCache) waitForNotifications(conn *pgxpool.Conn) {
	for c.ctx.Err() == nil {
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		n, err := conn.Conn().WaitForNotification(ctx)
		cancel()
		if err != nil {
			if c.ctx.Err() != nil || ctx.Err() == nil {
				// shutting down, or the connection broke and must be re-acquired
				return
			}
			continue
		}
		c.handleNotification(n.Payload)
	}
}

// handleNotification applies one NOTIFY payload.
func (c *CurrencyCache) handleNotification(payload string) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		c.InvalidateAll()
		return
	}
	id, err := strconv.ParseInt(payload, 10, 64)
	if err != nil {
		c.InvalidateAll()
		return
	}
	c.Invalidate(id)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

var _ currency.Lookup = (*CurrencyCache)(nil)
