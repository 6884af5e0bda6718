package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/domain/availability"
	"campcal/internal/domain/drag"
	"campcal/internal/domain/grid"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

func TestProjectPaintOrder(t *testing.T) {
	w, err := grid.NewWindow(daterange.MustDateKey("2024-01-01"), 14)
	require.NoError(t, err)

	inv := reservation.Inventory{
		Sites: []reservation.Site{{ID: "s1"}, {ID: "s2"}},
		Reservations: []reservation.Reservation{
			{ID: "late", SiteID: "s2", Range: daterange.MustParse("2024-01-05", "2024-01-07"), Status: reservation.StatusConfirmed},
			{ID: "a", SiteID: "s1", Range: daterange.MustParse("2024-01-02", "2024-01-05"), Status: reservation.StatusConfirmed, Guest: reservation.Guest{FirstName: "Ada", LastName: "Park"}},
			{ID: "b", SiteID: "s1", Range: daterange.MustParse("2024-01-04", "2024-01-06"), Status: reservation.StatusCheckedIn},
			{ID: "gone", SiteID: "s1", Range: daterange.MustParse("2024-01-08", "2024-01-09"), Status: reservation.StatusCancelled},
			{ID: "past", SiteID: "s1", Range: daterange.MustParse("2023-12-01", "2023-12-05"), Status: reservation.StatusCheckedOut},
		},
		Blackouts: []reservation.Blackout{
			{ID: "bo", SiteID: "s2", Start: daterange.MustDateKey("2024-01-10"), End: daterange.MustDateKey("2024-01-11"), Reason: "maintenance"},
		},
	}
	conflicts := availability.DetectConflicts(inv.Reservations, w.Range())

	items := Project(Input{
		Window:    w,
		Inventory: inv,
		Selection: &Selection{SiteID: "s2", Range: daterange.MustParse("2024-01-12", "2024-01-13")},
		Drag:      &drag.Snapshot{SiteID: "s1", StartIndex: 9, EndIndex: 7},
		Conflicts: conflicts,
	})

	require.Len(t, items, 6)
	var layers []int
	for _, it := range items {
		layers = append(layers, int(it.Layer))
	}
	assert.IsNonDecreasing(t, layers)

	assert.Equal(t, LayerBlackout, items[0].Layer)
	assert.Equal(t, grid.Span{ColumnStart: 9, ColumnSpan: 2}, items[0].Span)

	assert.Equal(t, reservation.ID("a"), items[1].ReservationID)
	assert.Equal(t, "Ada Park", items[1].Label)
	assert.True(t, items[1].Conflicted)
	assert.Equal(t, reservation.ID("b"), items[2].ReservationID)
	assert.True(t, items[2].Conflicted)
	assert.Equal(t, reservation.ID("late"), items[3].ReservationID)
	assert.False(t, items[3].Conflicted)

	assert.Equal(t, LayerStoredSelection, items[4].Layer)
	assert.Equal(t, LayerDragSelection, items[5].Layer)
	assert.Equal(t, grid.Span{ColumnStart: 7, ColumnSpan: 3}, items[5].Span)
}

func TestProjectParkWideBlackoutFirst(t *testing.T) {
	w, err := grid.NewWindow(daterange.MustDateKey("2024-01-01"), 7)
	require.NoError(t, err)
	items := Project(Input{
		Window: w,
		Inventory: reservation.Inventory{
			Sites: []reservation.Site{{ID: "s1"}},
			Blackouts: []reservation.Blackout{
				{ID: "site", SiteID: "s1", Start: daterange.MustDateKey("2024-01-01"), End: daterange.MustDateKey("2024-01-01")},
				{ID: "park", Start: daterange.MustDateKey("2024-01-03"), End: daterange.MustDateKey("2024-01-20")},
			},
		},
	})
	require.Len(t, items, 2)
	assert.Equal(t, "park", items[0].BlackoutID)
	assert.True(t, items[0].ParkWide)
	assert.Equal(t, grid.Span{ColumnStart: 2, ColumnSpan: 5}, items[0].Span)
}
