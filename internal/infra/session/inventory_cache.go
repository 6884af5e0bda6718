package session

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"campcal/internal/app/policies"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

// InventoryCache shares board snapshots between sessions looking at the
// same campground window.
type InventoryCache struct {
	Source policies.InventoryPort
	items  *cache.Cache
}

func NewInventoryCache(source policies.InventoryPort, ttl time.Duration) *InventoryCache {
	return &InventoryCache{Source: source, items: cache.New(ttl, 2*ttl)}
}

func (c *InventoryCache) Inventory(ctx context.Context, campgroundID string, window daterange.DateRange) (reservation.Inventory, error) {
	key := inventoryKey(campgroundID, window)
	if v, ok := c.items.Get(key); ok {
		return v.(reservation.Inventory), nil
	}
	inv, err := c.Source.Inventory(ctx, campgroundID, window)
	if err != nil {
		return reservation.Inventory{}, err
	}
	c.items.SetDefault(key, inv)
	return inv, nil
}

// Invalidate drops every window cached for campgroundID, or everything when
// campgroundID is empty.
func (c *InventoryCache) Invalidate(campgroundID string) {
	if campgroundID == "" {
		c.items.Flush()
		return
	}
	prefix := campgroundID + "|"
	for key := range c.items.Items() {
		if strings.HasPrefix(key, prefix) {
			c.items.Delete(key)
		}
	}
}

func inventoryKey(campgroundID string, window daterange.DateRange) string {
	return campgroundID + "|" + window.String()
}

var _ policies.InventoryPort = (*InventoryCache)(nil)
