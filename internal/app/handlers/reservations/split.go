package reservations

import (
	"context"
	"time"

	"campcal/internal/app/commands"
	"campcal/internal/app/middleware"
	"campcal/internal/app/outbox"
	"campcal/internal/app/policies"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/events"
)

const splitReservationKey = "reservations.split"

type SplitReservationCommand struct {
	ReservationID   reservation.ID
	Original        daterange.DateRange
	Segments        []reservation.Segment
	IdempotencyKeyV string
}

func (c SplitReservationCommand) Key() string { return splitReservationKey }

func (c SplitReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SplitReservationCommand) ResultPrototype() any { return &SplitReservationResult{} }

func (c SplitReservationCommand) Validate() error {
	if c.ReservationID == "" {
		return ErrReservationRequired
	}
	return reservation.ValidateSegments(c.Original, c.Segments)
}

type SplitSegment struct {
	SiteID    string `json:"site_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

type SplitReservationResult struct {
	ReservationID string         `json:"reservation_id"`
	Segments      []SplitSegment `json:"segments"`
}

type SplitReservationHandler struct {
	Reservations policies.ReservationPort
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Clock        func() time.Time
}

func (h *SplitReservationHandler) Handle(ctx context.Context, cmd SplitReservationCommand) (*SplitReservationResult, error) {
	if h.Reservations == nil {
		return nil, ErrPortMissing
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if err := h.Reservations.SplitReservation(ctx, cmd.ReservationID, cmd.Segments); err != nil {
		return nil, err
	}

	ev := reservation.SplitRequested{ReservationID: cmd.ReservationID, Segments: cmd.Segments, At: now(h.Clock)}
	encoder := h.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, encoder, []events.DomainEvent{ev}); err != nil {
		return nil, err
	}

	out := &SplitReservationResult{ReservationID: string(cmd.ReservationID)}
	for _, seg := range cmd.Segments {
		out.Segments = append(out.Segments, SplitSegment{
			SiteID:    string(seg.SiteID),
			StartDate: seg.Range.ArrivalKey(),
			EndDate:   seg.Range.DepartureKey(),
		})
	}
	return out, nil
}

var _ commands.Handler[SplitReservationCommand, *SplitReservationResult] = (*SplitReservationHandler)(nil)
var _ middleware.IdempotentCommand = (*SplitReservationCommand)(nil)
