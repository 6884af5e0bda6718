package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/app/policies"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

type fakeAvailability struct {
	sites []reservation.Site
	err   error
	calls int
}

func (f *fakeAvailability) AvailableSites(context.Context, string, daterange.DateRange) ([]reservation.Site, error) {
	f.calls++
	return f.sites, f.err
}

type fakeOverlap struct {
	conflict bool
	err      error
	last     policies.OverlapRequest
}

func (f *fakeOverlap) CheckOverlap(_ context.Context, _ string, req policies.OverlapRequest) (bool, error) {
	f.last = req
	return f.conflict, f.err
}

var errDown = errors.New("connection refused")

func request() Request {
	return Request{CampgroundID: "cg1", SiteID: "s1", Range: daterange.MustParse("2024-01-02", "2024-01-04")}
}

func TestResolveClear(t *testing.T) {
	r := &Resolver{
		Availability: &fakeAvailability{sites: []reservation.Site{{ID: "s1"}}},
		Overlap:      &fakeOverlap{},
	}
	res := r.Resolve(context.Background(), request(), reservation.Inventory{})
	assert.False(t, res.Blocked())
	assert.Empty(t, res.Warnings)
}

func TestResolveConflictBlocks(t *testing.T) {
	overlap := &fakeOverlap{conflict: true}
	r := &Resolver{Availability: &fakeAvailability{sites: []reservation.Site{{ID: "s1"}}}, Overlap: overlap}
	res := r.Resolve(context.Background(), request(), reservation.Inventory{})
	assert.True(t, res.Conflict)
	assert.True(t, res.Blocked())
	assert.Equal(t, reservation.SiteID("s1"), overlap.last.SiteID)
}

func TestResolveNetworkFailuresDowngrade(t *testing.T) {
	r := &Resolver{
		Availability: &fakeAvailability{err: errDown},
		Overlap:      &fakeOverlap{err: errDown},
	}
	res := r.Resolve(context.Background(), request(), reservation.Inventory{})
	assert.False(t, res.Blocked())
	require.Len(t, res.Warnings, 2)
	assert.Equal(t, WarnAvailabilityUnreachable, res.Warnings[0].Code)
	assert.Equal(t, WarnOverlapUnreachable, res.Warnings[1].Code)
}

func TestResolveSiteMissing(t *testing.T) {
	r := &Resolver{Availability: &fakeAvailability{sites: []reservation.Site{{ID: "s2"}}}, Overlap: &fakeOverlap{}}

	res := r.Resolve(context.Background(), request(), reservation.Inventory{})
	assert.True(t, res.Unavailable)
	assert.True(t, res.Blocked())

	change := request()
	change.Reservation = "r1"
	res = r.Resolve(context.Background(), change, reservation.Inventory{})
	assert.False(t, res.Blocked())
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarnSiteNotListed, res.Warnings[0].Code)
}

func TestResolveExcludesChangedReservation(t *testing.T) {
	overlap := &fakeOverlap{}
	r := &Resolver{Overlap: overlap}
	req := request()
	req.Reservation = "r1"
	inv := reservation.Inventory{Reservations: []reservation.Reservation{
		{ID: "r1", SiteID: "s1", Range: daterange.MustParse("2024-01-01", "2024-01-03"), Status: reservation.StatusConfirmed},
		{ID: "r2", SiteID: "s1", Range: daterange.MustParse("2024-01-03", "2024-01-05"), Status: reservation.StatusConfirmed},
	}}
	res := r.Resolve(context.Background(), req, inv)
	assert.Equal(t, reservation.ID("r1"), overlap.last.Exclude)
	require.Len(t, res.LocalOverlaps, 1)
	assert.Equal(t, reservation.ID("r2"), res.LocalOverlaps[0].ID)
}

func TestResolveBlackoutBlocks(t *testing.T) {
	r := &Resolver{}
	inv := reservation.Inventory{Blackouts: []reservation.Blackout{
		{ID: "b1", Start: daterange.MustDateKey("2024-01-03"), End: daterange.MustDateKey("2024-01-03"), Reason: "pool resurfacing"},
	}}
	res := r.Resolve(context.Background(), request(), inv)
	require.Len(t, res.Blackouts, 1)
	assert.True(t, res.Blocked())
}
