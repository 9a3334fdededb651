package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	appctx "bizreports/internal/core/context"
	"bizreports/internal/core/security"
	"bizreports/pkg/logger"
)

// FeatureLoader returns the features enabled for one account.
type FeatureLoader interface {
	AccountFeatures(ctx context.Context, accountID string) ([]string, error)
}

type cachedFeatures struct {
	enabled  map[string]struct{}
	loadedAt time.Time
}

// CacheBackedFlags implements security.FeatureFlagProvider over per-account feature sets.
// A failed load disables the flag for that call and is not cached.
type CacheBackedFlags struct {
	loader FeatureLoader
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	items map[string]cachedFeatures
	group singleflight.Group
}

// NewCacheBackedFlags creates a feature flag provider backed by loader.
// A zero ttl keeps entries until invalidated.
func NewCacheBackedFlags(loader FeatureLoader, ttl time.Duration) *CacheBackedFlags {
	return &CacheBackedFlags{
		loader: loader,
		ttl:    ttl,
		now:    time.Now,
		items:  make(map[string]cachedFeatures),
	}
}

// IsEnabled checks if feature is enabled for context's account.
func (f *CacheBackedFlags) IsEnabled(ctx context.Context, flag string) bool {
	accountID := appctx.GetTenantID(ctx)
	if accountID == "" {
		return false
	}

	features, ok := f.lookup(accountID)
	if !ok {
		v, err, _ := f.group.Do(accountID, func() (any, error) {
			if cached, ok := f.lookup(accountID); ok {
				return cached, nil
			}
			names, err := f.loader.AccountFeatures(context.WithoutCancel(ctx), accountID)
			if err != nil {
				return nil, err
			}
			enabled := make(map[string]struct{}, len(names))
			for _, n := range names {
				enabled[n] = struct{}{}
			}
			f.mu.Lock()
			f.items[accountID] = cachedFeatures{enabled: enabled, loadedAt: f.now()}
			f.mu.Unlock()
			return enabled, nil
		})
		if err != nil {
			logger.Warn(ctx, "feature flags unavailable", "account_id", accountID, "flag", flag, "error", err)
			return false
		}
		features = v.(map[string]struct{})
	}

	_, enabled := features[flag]
	return enabled
}

func (f *CacheBackedFlags) lookup(accountID string) (map[string]struct{}, bool) {
	f.mu.RLock()
	item, ok := f.items[accountID]
	f.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if f.ttl > 0 && f.now().Sub(item.loadedAt) > f.ttl {
		return nil, false
	}
	return item.enabled, true
}

// Invalidate drops the cached features of one account.
func (f *CacheBackedFlags) Invalidate(accountID string) {
	f.mu.Lock()
	delete(f.items, accountID)
	f.mu.Unlock()
}

// Ensure interface compliance at compile time.
var _ security.FeatureFlagProvider = (*CacheBackedFlags)(nil)
