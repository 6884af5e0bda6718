// Package session keeps live calendar engines, one per staff session, and
// the inventory they share.
package session

import (
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"campcal/internal/app/calendar"
)

var ErrSessionNotFound = errors.New("session: not found or expired")

// Registry expires sessions that stay idle longer than its ttl. Every Get
// counts as activity.
type Registry struct {
	items     *cache.Cache
	Inventory *InventoryCache
}

func NewRegistry(ttl time.Duration, inventory *InventoryCache) *Registry {
	return &Registry{items: cache.New(ttl, time.Minute), Inventory: inventory}
}

func (r *Registry) Put(e *calendar.Engine) {
	r.items.SetDefault(e.Config().SessionID, e)
}

func (r *Registry) Get(id string) (*calendar.Engine, error) {
	v, ok := r.items.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e := v.(*calendar.Engine)
	r.items.SetDefault(id, e)
	return e, nil
}

func (r *Registry) Delete(id string) bool {
	if _, ok := r.items.Get(id); !ok {
		return false
	}
	r.items.Delete(id)
	return true
}

func (r *Registry) Len() int { return r.items.ItemCount() }

// Invalidate forces sessions on campgroundID to reload inventory on their
// next lookup. An empty id means every campground.
func (r *Registry) Invalidate(campgroundID string) {
	if r.Inventory != nil {
		r.Inventory.Invalidate(campgroundID)
	}
	for _, item := range r.items.Items() {
		e := item.Object.(*calendar.Engine)
		if campgroundID == "" || e.Config().CampgroundID == campgroundID {
			e.Invalidate()
		}
	}
}
