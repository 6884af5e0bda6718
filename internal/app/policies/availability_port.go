package policies

import (
	"context"

	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

type AvailabilityPort interface {
	AvailableSites(ctx context.Context, campgroundID string, dr daterange.DateRange) ([]reservation.Site, error)
}

type OverlapRequest struct {
	SiteID reservation.SiteID
	Range  daterange.DateRange
	// Exclude skips the reservation being changed so it does not collide with itself.
	Exclude reservation.ID
}

type OverlapPort interface {
	CheckOverlap(ctx context.Context, campgroundID string, req OverlapRequest) (bool, error)
}

// InventoryPort loads the read-only board contents for a window.
type InventoryPort interface {
	Inventory(ctx context.Context, campgroundID string, window daterange.DateRange) (reservation.Inventory, error)
}
