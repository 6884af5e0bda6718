package availability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

var bounds = daterange.MustParse("2024-01-01", "2024-02-01")

func res(id string, site string, arrival, departure string, status reservation.Status) reservation.Reservation {
	return reservation.Reservation{
		ID:     reservation.ID(id),
		SiteID: reservation.SiteID(site),
		Range:  daterange.MustParse(arrival, departure),
		Status: status,
	}
}

func TestDetectConflictsReportsOverlap(t *testing.T) {
	list := []reservation.Reservation{
		res("b", "s1", "2024-01-03", "2024-01-06", reservation.StatusConfirmed),
		res("a", "s1", "2024-01-01", "2024-01-04", reservation.StatusConfirmed),
		res("c", "s2", "2024-01-01", "2024-01-04", reservation.StatusConfirmed),
	}
	conflicts := DetectConflicts(list, bounds)
	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, reservation.SiteID("s1"), c.SiteID)
	assert.Equal(t, reservation.ID("a"), c.A)
	assert.Equal(t, reservation.ID("b"), c.B)
	assert.Equal(t, "2024-01-03", daterange.ToDateKey(c.OverlapStart))
	assert.Equal(t, "2024-01-04", daterange.ToDateKey(c.OverlapEnd))

	flagged := ConflictedIDs(conflicts)
	assert.True(t, flagged["a"])
	assert.False(t, flagged["c"])
}

func TestDetectConflictsIgnoresAdjacentAndCancelled(t *testing.T) {
	list := []reservation.Reservation{
		res("a", "s1", "2024-01-01", "2024-01-03", reservation.StatusConfirmed),
		res("b", "s1", "2024-01-03", "2024-01-05", reservation.StatusPending),
		res("x", "s1", "2024-01-02", "2024-01-04", reservation.StatusCancelled),
	}
	assert.Empty(t, DetectConflicts(list, bounds))
}

func TestDetectConflictsOutsideBounds(t *testing.T) {
	list := []reservation.Reservation{
		res("a", "s1", "2023-12-01", "2023-12-05", reservation.StatusConfirmed),
		res("b", "s1", "2023-12-03", "2023-12-06", reservation.StatusConfirmed),
	}
	assert.Empty(t, DetectConflicts(list, bounds))
}

func TestCoveringBlackouts(t *testing.T) {
	blackouts := []reservation.Blackout{
		{ID: "park", Start: daterange.MustDateKey("2024-01-10"), End: daterange.MustDateKey("2024-01-10")},
		{ID: "s1-only", SiteID: "s1", Start: daterange.MustDateKey("2024-01-04"), End: daterange.MustDateKey("2024-01-05")},
	}

	// The stay occupies the nights of Jan 3 and 4, and Jan 4 is blacked out for s1.
	got := CoveringBlackouts(blackouts, "s1", daterange.MustParse("2024-01-03", "2024-01-05"))
	require.Len(t, got, 1)
	assert.Equal(t, "s1-only", got[0].ID)

	assert.Empty(t, CoveringBlackouts(blackouts, "s2", daterange.MustParse("2024-01-03", "2024-01-05")))

	// Departure day is not an occupied night.
	assert.Empty(t, CoveringBlackouts(blackouts, "s2", daterange.MustParse("2024-01-08", "2024-01-10")))
	assert.Len(t, CoveringBlackouts(blackouts, "s2", daterange.MustParse("2024-01-09", "2024-01-11")), 1)
}

func TestLocalOverlapsSkipsSelf(t *testing.T) {
	list := []reservation.Reservation{
		res("a", "s1", "2024-01-01", "2024-01-04", reservation.StatusConfirmed),
		res("b", "s1", "2024-01-05", "2024-01-07", reservation.StatusConfirmed),
	}
	got := LocalOverlaps(list, "s1", daterange.MustParse("2024-01-02", "2024-01-06"), "a")
	require.Len(t, got, 1)
	assert.Equal(t, reservation.ID("b"), got[0].ID)
}
