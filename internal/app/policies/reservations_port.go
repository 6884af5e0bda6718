package policies

import (
	"context"

	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

// ReservationPort issues change requests. The data layer alone updates the
// canonical reservation set.
type ReservationPort interface {
	UpdateReservation(ctx context.Context, id reservation.ID, site reservation.SiteID, dr daterange.DateRange) (reservation.Reservation, error)
	SplitReservation(ctx context.Context, id reservation.ID, segments []reservation.Segment) error
}

type HoldPort interface {
	CreateHold(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange, minutes int) (reservation.Hold, error)
}
