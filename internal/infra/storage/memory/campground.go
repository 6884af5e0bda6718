package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"campcal/internal/app/policies"
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

var (
	ErrUnknownCampground = errors.New("memory: unknown campground")
	ErrSiteTaken         = errors.New("memory: site already booked for those dates")
	ErrSiteClosed        = errors.New("memory: site closed by blackout")
	ErrNotChangeable     = errors.New("memory: reservation cannot be changed in its status")
)

// Campground is the in-process data layer used when no reservation service
// is configured. It owns the canonical reservation set for one campground.
type Campground struct {
	ID    string
	Rates pricing.RateCard
	Now   func() time.Time

	mu           sync.RWMutex
	sites        []reservation.Site
	reservations map[reservation.ID]reservation.Reservation
	blackouts    []reservation.Blackout
	holds        []reservation.Hold
	listeners    []func(reservation.ID)
}

func NewCampground(id string, rates pricing.RateCard) *Campground {
	return &Campground{
		ID:           id,
		Rates:        rates,
		reservations: make(map[reservation.ID]reservation.Reservation),
	}
}

func (c *Campground) AddSite(site reservation.Site) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sites = append(c.sites, site)
}

func (c *Campground) AddReservation(r reservation.Reservation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reservations[r.ID] = r
}

func (c *Campground) AddBlackout(b reservation.Blackout) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blackouts = append(c.blackouts, b)
}

// OnChange registers fn to run after a reservation is changed.
func (c *Campground) OnChange(fn func(reservation.ID)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Campground) AvailableSites(ctx context.Context, campgroundID string, dr daterange.DateRange) ([]reservation.Site, error) {
	if err := c.check(campgroundID); err != nil {
		return nil, err
	}
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]reservation.Site, 0, len(c.sites))
	for _, s := range c.sites {
		if c.takenLocked(s.ID, dr, "") || c.closedLocked(s.ID, dr) {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Campground) CheckOverlap(ctx context.Context, campgroundID string, req policies.OverlapRequest) (bool, error) {
	if err := c.check(campgroundID); err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.takenLocked(req.SiteID, req.Range, req.Exclude), nil
}

func (c *Campground) Quote(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange) (pricing.Quote, error) {
	if err := c.check(campgroundID); err != nil {
		return pricing.Quote{}, err
	}
	if !c.hasSite(site) {
		return pricing.Quote{}, reservation.ErrSiteNotFound
	}
	return c.Rates.Quote(dr)
}

func (c *Campground) Inventory(ctx context.Context, campgroundID string, window daterange.DateRange) (reservation.Inventory, error) {
	if err := c.check(campgroundID); err != nil {
		return reservation.Inventory{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	inv := reservation.Inventory{Sites: append([]reservation.Site(nil), c.sites...)}
	for _, r := range c.reservations {
		if r.Range.Overlaps(window) {
			inv.Reservations = append(inv.Reservations, r)
		}
	}
	sort.Slice(inv.Reservations, func(i, j int) bool { return inv.Reservations[i].ID < inv.Reservations[j].ID })
	for _, b := range c.blackouts {
		if b.Range().Overlaps(window) {
			inv.Blackouts = append(inv.Blackouts, b)
		}
	}
	return inv, nil
}

func (c *Campground) UpdateReservation(ctx context.Context, id reservation.ID, site reservation.SiteID, dr daterange.DateRange) (reservation.Reservation, error) {
	if err := dr.Validate(); err != nil {
		return reservation.Reservation{}, err
	}
	c.mu.Lock()
	current, ok := c.reservations[id]
	if !ok {
		c.mu.Unlock()
		return reservation.Reservation{}, reservation.ErrReservationNotFound
	}
	if err := c.admitLocked(current, site, dr); err != nil {
		c.mu.Unlock()
		return reservation.Reservation{}, err
	}
	if q, err := c.Rates.Quote(dr); err == nil {
		current.TotalCents = q.Total.Amount
	}
	current.SiteID = site
	current.Range = dr
	c.reservations[id] = current
	listeners := c.listeners
	c.mu.Unlock()

	notify(listeners, id)
	return current, nil
}

// SplitReservation keeps the first segment under the original id and adds
// one reservation per further segment.
func (c *Campground) SplitReservation(ctx context.Context, id reservation.ID, segments []reservation.Segment) error {
	c.mu.Lock()
	current, ok := c.reservations[id]
	if !ok {
		c.mu.Unlock()
		return reservation.ErrReservationNotFound
	}
	if err := reservation.ValidateSegments(current.Range, segments); err != nil {
		c.mu.Unlock()
		return err
	}
	for _, seg := range segments {
		if err := c.admitLocked(current, seg.SiteID, seg.Range); err != nil {
			c.mu.Unlock()
			return err
		}
	}
	nights := int64(current.Range.Nights())
	for i, seg := range segments {
		part := current
		part.SiteID = seg.SiteID
		part.Range = seg.Range
		part.TotalCents = current.TotalCents * int64(seg.Range.Nights()) / nights
		if i > 0 {
			part.ID = reservation.ID(fmt.Sprintf("%s-%d", id, i+1))
			part.PaidCents = 0
		}
		c.reservations[part.ID] = part
	}
	listeners := c.listeners
	c.mu.Unlock()

	notify(listeners, id)
	return nil
}

func (c *Campground) CreateHold(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange, minutes int) (reservation.Hold, error) {
	if err := c.check(campgroundID); err != nil {
		return reservation.Hold{}, err
	}
	if err := dr.Validate(); err != nil {
		return reservation.Hold{}, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasSiteLocked(site) {
		return reservation.Hold{}, reservation.ErrSiteNotFound
	}
	if c.takenLocked(site, dr, "") {
		return reservation.Hold{}, ErrSiteTaken
	}
	if c.closedLocked(site, dr) {
		return reservation.Hold{}, ErrSiteClosed
	}
	hold := reservation.Hold{
		ID:        uuid.NewString(),
		SiteID:    site,
		Range:     dr,
		ExpiresAt: c.now().Add(time.Duration(minutes) * time.Minute),
	}
	c.holds = append(c.holds, hold)
	return hold, nil
}

func (c *Campground) admitLocked(current reservation.Reservation, site reservation.SiteID, dr daterange.DateRange) error {
	switch current.Status {
	case reservation.StatusCancelled, reservation.StatusCheckedOut:
		return ErrNotChangeable
	}
	if !c.hasSiteLocked(site) {
		return reservation.ErrSiteNotFound
	}
	if c.takenLocked(site, dr, current.ID) {
		return ErrSiteTaken
	}
	if c.closedLocked(site, dr) {
		return ErrSiteClosed
	}
	return nil
}

// takenLocked reports whether an occupying reservation or a live hold sits
// on site during dr.
func (c *Campground) takenLocked(site reservation.SiteID, dr daterange.DateRange, exclude reservation.ID) bool {
	for _, r := range c.reservations {
		if r.ID == exclude || r.SiteID != site || !r.Status.Occupies() {
			continue
		}
		if r.Range.Overlaps(dr) {
			return true
		}
	}
	now := c.now()
	for _, h := range c.holds {
		if h.SiteID == site && h.ExpiresAt.After(now) && h.Range.Overlaps(dr) {
			return true
		}
	}
	return false
}

func (c *Campground) closedLocked(site reservation.SiteID, dr daterange.DateRange) bool {
	for _, b := range c.blackouts {
		if b.AppliesTo(site) && b.Range().Overlaps(dr) {
			return true
		}
	}
	return false
}

func (c *Campground) hasSite(site reservation.SiteID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hasSiteLocked(site)
}

func (c *Campground) hasSiteLocked(site reservation.SiteID) bool {
	for _, s := range c.sites {
		if s.ID == site {
			return true
		}
	}
	return false
}

func (c *Campground) check(campgroundID string) error {
	if campgroundID != c.ID {
		return fmt.Errorf("%w: %s", ErrUnknownCampground, campgroundID)
	}
	return nil
}

func (c *Campground) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func notify(listeners []func(reservation.ID), id reservation.ID) {
	for _, fn := range listeners {
		fn(id)
	}
}

var (
	_ policies.AvailabilityPort = (*Campground)(nil)
	_ policies.OverlapPort      = (*Campground)(nil)
	_ policies.QuotePort        = (*Campground)(nil)
	_ policies.InventoryPort    = (*Campground)(nil)
	_ policies.ReservationPort  = (*Campground)(nil)
	_ policies.HoldPort         = (*Campground)(nil)
)
