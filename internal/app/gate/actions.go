package gate

import (
	"context"
	"time"

	"campcal/internal/app/commands"
	"campcal/internal/app/handlers/reservations"
	"campcal/internal/app/middleware"
	"campcal/internal/app/resolver"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

// Hold places a short hold on a resolved selection.
func (g *Gate) Hold(ctx context.Context, r resolver.Resolution, minutes int) (*reservations.CreateHoldResult, error) {
	if !middleware.CanMutate(ctx) {
		return nil, ErrNotPermitted
	}
	if b := Judge(r); b != nil {
		return nil, b
	}
	res, err := commands.Dispatch[reservations.CreateHoldCommand, *reservations.CreateHoldResult](ctx, g.Bus, reservations.CreateHoldCommand{
		CampgroundID:    r.CampgroundID,
		SiteID:          r.SiteID,
		Range:           r.Range,
		Minutes:         minutes,
		IdempotencyKeyV: g.newKey(),
	})
	if err != nil {
		return nil, &MutationError{Op: "hold", Err: err}
	}
	return res, nil
}

// CreateIntent hands a resolved selection to the booking flow. Nothing is
// issued from the calendar itself.
func (g *Gate) CreateIntent(ctx context.Context, r resolver.Resolution) (*Intent, error) {
	if !middleware.CanMutate(ctx) {
		return nil, ErrNotPermitted
	}
	if b := Judge(r); b != nil {
		return nil, b
	}
	return &Intent{FollowOn: FollowOnCreateReservation, SiteID: r.SiteID, Range: r.Range}, nil
}

// SplitAt divides res at the given night: [arrival, at) stays on its site and
// [at, departure) goes to target.
func SplitAt(res reservation.Reservation, at time.Time, target reservation.SiteID) ([]reservation.Segment, error) {
	day := daterange.Normalize(at)
	if !day.After(res.Range.Arrival) || !day.Before(res.Range.Departure) {
		return nil, blocked(ReasonNotMovable, "Split date must fall strictly inside the stay.")
	}
	if target == "" {
		target = res.SiteID
	}
	segs := []reservation.Segment{
		{SiteID: res.SiteID, Range: daterange.DateRange{Arrival: res.Range.Arrival, Departure: day}},
		{SiteID: target, Range: daterange.DateRange{Arrival: day, Departure: res.Range.Departure}},
	}
	if err := reservation.ValidateSegments(res.Range, segs); err != nil {
		return nil, err
	}
	return segs, nil
}

// Split issues a split request for res.
func (g *Gate) Split(ctx context.Context, res reservation.Reservation, segments []reservation.Segment) (*reservations.SplitReservationResult, error) {
	if !middleware.CanMutate(ctx) {
		return nil, ErrNotPermitted
	}
	switch res.Status {
	case reservation.StatusCancelled, reservation.StatusCheckedOut:
		return nil, blocked(ReasonNotMovable, "Only active reservations can be split.")
	}
	if res.SiteLocked {
		for _, seg := range segments {
			if seg.SiteID != res.SiteID {
				return nil, blocked(ReasonSiteLocked, "This reservation is locked to its site.")
			}
		}
	}
	out, err := commands.Dispatch[reservations.SplitReservationCommand, *reservations.SplitReservationResult](ctx, g.Bus, reservations.SplitReservationCommand{
		ReservationID:   res.ID,
		Original:        res.Range,
		Segments:        segments,
		IdempotencyKeyV: g.newKey(),
	})
	if err != nil {
		return nil, &MutationError{Op: "split", Err: err}
	}
	return out, nil
}
