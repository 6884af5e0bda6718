package availability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/app/dto"
	"campcal/internal/app/queries"
	"campcal/internal/domain/grid"
	"campcal/internal/domain/render"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

type staticInventory reservation.Inventory

func (s staticInventory) Inventory(context.Context, string, daterange.DateRange) (reservation.Inventory, error) {
	return reservation.Inventory(s), nil
}

func TestGetGridThroughBus(t *testing.T) {
	inv := staticInventory{
		Sites: []reservation.Site{{ID: "s1", Name: "Loop A 1"}},
		Reservations: []reservation.Reservation{
			{ID: "a", SiteID: "s1", Range: daterange.MustParse("2024-01-02", "2024-01-05"), Status: reservation.StatusConfirmed},
			{ID: "b", SiteID: "s1", Range: daterange.MustParse("2024-01-04", "2024-01-06"), Status: reservation.StatusConfirmed},
		},
	}
	bus := queries.NewInMemoryBus()
	Register(bus, &GetGridHandler{Inventory: inv})

	w, err := grid.NewWindow(daterange.MustDateKey("2024-01-01"), 7)
	require.NoError(t, err)
	out, err := queries.Ask[GetGridQuery, dto.Grid](context.Background(), bus, GetGridQuery{
		CampgroundID: "cg1",
		Window:       w,
		Today:        daterange.MustDateKey("2024-01-03"),
		Selection:    &render.Selection{SiteID: "s1", Range: daterange.MustParse("2024-01-06", "2024-01-07")},
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-01-01", out.Start)
	require.Len(t, out.Days, 7)
	assert.True(t, out.Days[2].IsToday)
	require.Len(t, out.Conflicts, 1)
	assert.Equal(t, "2024-01-04", out.Conflicts[0].OverlapStart)
	require.Len(t, out.Items, 3)
	assert.Equal(t, "selection", out.Items[2].Layer)
	assert.Equal(t, 5, out.Items[2].ColumnStart)
	assert.True(t, out.Items[0].Conflicted)
}
