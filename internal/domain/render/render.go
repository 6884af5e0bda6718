// Package render projects blackouts, reservations and selections onto grid
// spans in paint order.
package render

import (
	"sort"

	"campcal/internal/domain/availability"
	"campcal/internal/domain/drag"
	"campcal/internal/domain/grid"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

// Layer orders painting; higher layers paint above lower ones.
type Layer int

const (
	LayerGrid Layer = iota
	LayerBlackout
	LayerReservation
	LayerStoredSelection
	LayerDragSelection
)

func (l Layer) String() string {
	switch l {
	case LayerGrid:
		return "grid"
	case LayerBlackout:
		return "blackout"
	case LayerReservation:
		return "reservation"
	case LayerStoredSelection:
		return "selection"
	case LayerDragSelection:
		return "drag"
	default:
		return "unknown"
	}
}

type Item struct {
	Layer         Layer
	SiteID        reservation.SiteID
	Span          grid.Span
	ReservationID reservation.ID
	BlackoutID    string
	Status        reservation.Status
	Label         string
	Conflicted    bool
	Blocked       bool
	// ParkWide blackouts carry no site and span every row.
	ParkWide bool
}

type Selection struct {
	SiteID  reservation.SiteID
	Range   daterange.DateRange
	Blocked bool
}

type Input struct {
	Window    grid.Window
	Inventory reservation.Inventory
	Selection *Selection
	Drag      *drag.Snapshot
	Conflicts []reservation.Conflict
}

// Project builds the paint list. Entities outside the window are omitted.
func Project(in Input) []Item {
	rows := make(map[reservation.SiteID]int, len(in.Inventory.Sites))
	for i, s := range in.Inventory.Sites {
		rows[s.ID] = i
	}

	items := make([]Item, 0, len(in.Inventory.Reservations)+len(in.Inventory.Blackouts)+2)
	for _, b := range in.Inventory.Blackouts {
		span, ok := in.Window.Project(b.Range())
		if !ok {
			continue
		}
		items = append(items, Item{
			Layer:      LayerBlackout,
			SiteID:     b.SiteID,
			Span:       span,
			BlackoutID: b.ID,
			Label:      b.Reason,
			ParkWide:   b.ParkWide(),
		})
	}

	conflicted := availability.ConflictedIDs(in.Conflicts)
	for _, r := range in.Inventory.Reservations {
		if !r.Status.Occupies() {
			continue
		}
		span, ok := in.Window.Project(r.Range)
		if !ok {
			continue
		}
		items = append(items, Item{
			Layer:         LayerReservation,
			SiteID:        r.SiteID,
			Span:          span,
			ReservationID: r.ID,
			Status:        r.Status,
			Label:         r.Guest.DisplayName(),
			Conflicted:    conflicted[r.ID],
		})
	}

	if sel := in.Selection; sel != nil {
		if span, ok := in.Window.Project(sel.Range); ok {
			items = append(items, Item{
				Layer:   LayerStoredSelection,
				SiteID:  sel.SiteID,
				Span:    span,
				Blocked: sel.Blocked,
			})
		}
	}

	if d := in.Drag; d != nil {
		if span, ok := in.Window.IndexSpan(d.StartIndex, d.EndIndex); ok {
			items = append(items, Item{
				Layer:         LayerDragSelection,
				SiteID:        d.SiteID,
				Span:          span,
				ReservationID: d.ReservationID,
			})
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.Layer != b.Layer {
			return a.Layer < b.Layer
		}
		ra, rb := rowOf(rows, a), rowOf(rows, b)
		if ra != rb {
			return ra < rb
		}
		return a.Span.ColumnStart < b.Span.ColumnStart
	})
	return items
}

func rowOf(rows map[reservation.SiteID]int, it Item) int {
	if it.ParkWide {
		return -1
	}
	if r, ok := rows[it.SiteID]; ok {
		return r
	}
	return len(rows)
}
