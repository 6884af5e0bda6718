package availability

import (
	"sort"

	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

// DetectConflicts sorts each site's occupying reservations by arrival and
// reports every adjacent pair whose ranges overlap inside bounds. The result
// is for highlighting only; it never gates a mutation.
func DetectConflicts(reservations []reservation.Reservation, bounds daterange.DateRange) []reservation.Conflict {
	inv := reservation.Inventory{Reservations: reservations}
	bySite := inv.BySite()

	sites := make([]reservation.SiteID, 0, len(bySite))
	for site := range bySite {
		sites = append(sites, site)
	}
	sort.Slice(sites, func(i, j int) bool { return sites[i] < sites[j] })

	var out []reservation.Conflict
	for _, site := range sites {
		list := bySite[site]
		for i := 1; i < len(list); i++ {
			a, b := list[i-1], list[i]
			overlap, ok := a.Range.Intersection(b.Range)
			if !ok {
				continue
			}
			visible, ok := overlap.Intersection(bounds)
			if !ok {
				continue
			}
			out = append(out, reservation.Conflict{
				SiteID:       site,
				OverlapStart: visible.Arrival,
				OverlapEnd:   visible.Departure,
				A:            a.ID,
				B:            b.ID,
			})
		}
	}
	return out
}

// ConflictedIDs indexes the reservations taking part in any conflict.
func ConflictedIDs(conflicts []reservation.Conflict) map[reservation.ID]bool {
	out := make(map[reservation.ID]bool, len(conflicts)*2)
	for _, c := range conflicts {
		out[c.A] = true
		out[c.B] = true
	}
	return out
}

// CoveringBlackouts returns the blackouts that close site for any night of r.
// A blackout covers a night when start <= night <= end, and applies when it is
// park-wide or scoped to the site.
func CoveringBlackouts(blackouts []reservation.Blackout, site reservation.SiteID, r daterange.DateRange) []reservation.Blackout {
	var out []reservation.Blackout
	for _, b := range blackouts {
		if !b.AppliesTo(site) {
			continue
		}
		if b.Range().Overlaps(r) {
			out = append(out, b)
		}
	}
	return out
}

// LocalOverlaps lists loaded reservations on site that intersect r, skipping
// the reservation being changed.
func LocalOverlaps(reservations []reservation.Reservation, site reservation.SiteID, r daterange.DateRange, skip reservation.ID) []reservation.Reservation {
	var out []reservation.Reservation
	for _, res := range reservations {
		if res.SiteID != site || res.ID == skip || !res.Status.Occupies() {
			continue
		}
		if res.Range.Overlaps(r) {
			out = append(out, res)
		}
	}
	return out
}
