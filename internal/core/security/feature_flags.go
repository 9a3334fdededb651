// Package security holds account-level capability checks.
package security

import (
	"context"
	"sync"

	appctx "bizreports/internal/core/context"
)

// FeatureFlagProvider provides feature flag evaluation for the account in ctx.
type FeatureFlagProvider interface {
	IsEnabled(ctx context.Context, flag string) bool
}

// Feature flag names.
const (
	// FlagAdvancedReports unlocks report generation, export and scheduled delivery.
	FlagAdvancedReports = "advanced_reports"
)

// InMemoryFlags is a simple in-memory feature flag provider.
// Account overrides win over the global value.
type InMemoryFlags struct {
	mu       sync.RWMutex
	flags    map[string]bool
	accounts map[string]map[string]bool
}

// NewInMemoryFlags creates an in-memory flag provider.
func NewInMemoryFlags() *InMemoryFlags {
	return &InMemoryFlags{
		flags:    make(map[string]bool),
		accounts: make(map[string]map[string]bool),
	}
}

// IsEnabled checks the account override for ctx's tenant, then the global flag.
func (f *InMemoryFlags) IsEnabled(ctx context.Context, flag string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if overrides, ok := f.accounts[appctx.GetTenantID(ctx)]; ok {
		if enabled, ok := overrides[flag]; ok {
			return enabled
		}
	}
	return f.flags[flag]
}

// SetFlag sets a boolean flag for every account.
func (f *InMemoryFlags) SetFlag(flag string, enabled bool) *InMemoryFlags {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flags[flag] = enabled
	return f
}

// SetAccountFlag overrides a flag for one account.
func (f *InMemoryFlags) SetAccountFlag(accountID, flag string, enabled bool) *InMemoryFlags {
	f.mu.Lock()
	defer f.mu.Unlock()
	overrides, ok := f.accounts[accountID]
	if !ok {
		overrides = make(map[string]bool)
		f.accounts[accountID] = overrides
	}
	overrides[flag] = enabled
	return f
}

// AllowAll is a provider with every flag enabled.
type AllowAll struct{}

func (AllowAll) IsEnabled(context.Context, string) bool { return true }

var (
	_ FeatureFlagProvider = (*InMemoryFlags)(nil)
	_ FeatureFlagProvider = AllowAll{}
)
