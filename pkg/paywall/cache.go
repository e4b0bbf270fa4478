package paywall

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// BuilderPaywall is a prefetched paywall ready to be rendered.
type BuilderPaywall struct {
	Paywall       Paywall
	Configuration Configuration
	Products      []Product
}

// Cache holds prefetched paywalls keyed by placement id. It is safe for
// concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]BuilderPaywall
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]BuilderPaywall)}
}

// Put stores bp under its placement id, replacing any previous entry.
func (c *Cache) Put(bp BuilderPaywall) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[bp.Paywall.PlacementID] = bp
}

// Lookup returns the entry for placementID.
func (c *Cache) Lookup(placementID string) (BuilderPaywall, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bp, ok := c.entries[placementID]
	return bp, ok
}

// Remove deletes the entry for placementID.
func (c *Cache) Remove(placementID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, placementID)
}

// Len returns the number of cached placements.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Prefetch loads each placement through sdk and stores it. Placements
// without a view configuration are skipped. Failures do not stop the other
// placements; they are returned joined.
func (c *Cache) Prefetch(ctx context.Context, sdk SDK, placementIDs ...string) error {
	var errs []error
	for _, id := range placementIDs {
		bp, err := fetchBuilderPaywall(ctx, sdk, id)
		if err != nil {
			if errors.Is(err, ErrNoViewConfiguration) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		c.Put(bp)
	}
	return errors.Join(errs...)
}

func fetchBuilderPaywall(ctx context.Context, sdk SDK, placementID string) (BuilderPaywall, error) {
	pw, err := sdk.FetchPaywall(ctx, placementID)
	if err != nil {
		return BuilderPaywall{}, fmt.Errorf("paywall %q: fetch: %w", placementID, err)
	}
	if !pw.HasViewConfiguration {
		return BuilderPaywall{}, fmt.Errorf("paywall %q: %w", placementID, ErrNoViewConfiguration)
	}
	cfg, err := sdk.FetchConfiguration(ctx, pw)
	if err != nil {
		return BuilderPaywall{}, fmt.Errorf("paywall %q: fetch configuration: %w", placementID, err)
	}
	products, err := sdk.FetchProducts(ctx, pw)
	if err != nil {
		return BuilderPaywall{}, fmt.Errorf("paywall %q: fetch products: %w", placementID, err)
	}
	return BuilderPaywall{Paywall: pw, Configuration: cfg, Products: products}, nil
}
