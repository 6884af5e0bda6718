package reservations

import (
	"context"
	"errors"
	"time"

	"campcal/internal/app/commands"
	"campcal/internal/app/middleware"
	"campcal/internal/app/outbox"
	"campcal/internal/app/policies"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/events"
)

const moveReservationKey = "reservations.move"

var (
	ErrReservationRequired = errors.New("reservations: reservation id required")
	ErrSiteRequired        = errors.New("reservations: site id required")
	ErrPortMissing         = errors.New("reservations: data layer not configured")
)

// MoveReservationCommand covers move, extend and site reassignment; the data
// layer takes the same request for all three.
type MoveReservationCommand struct {
	ReservationID   reservation.ID
	FromSite        reservation.SiteID
	FromRange       daterange.DateRange
	SiteID          reservation.SiteID
	Range           daterange.DateRange
	DeltaCents      int64
	KeptPrice       bool
	IdempotencyKeyV string
}

func (c MoveReservationCommand) Key() string { return moveReservationKey }

func (c MoveReservationCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c MoveReservationCommand) ResultPrototype() any { return &MoveReservationResult{} }

func (c MoveReservationCommand) Validate() error {
	if c.ReservationID == "" {
		return ErrReservationRequired
	}
	if c.SiteID == "" {
		return ErrSiteRequired
	}
	return c.Range.Validate()
}

type MoveReservationResult struct {
	ReservationID string `json:"reservation_id"`
	SiteID        string `json:"site_id"`
	Arrival       string `json:"arrival_date"`
	Departure     string `json:"departure_date"`
	Status        string `json:"status"`
}

type MoveReservationHandler struct {
	Reservations policies.ReservationPort
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	Clock        func() time.Time
}

func (h *MoveReservationHandler) Handle(ctx context.Context, cmd MoveReservationCommand) (*MoveReservationResult, error) {
	if h.Reservations == nil {
		return nil, ErrPortMissing
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	updated, err := h.Reservations.UpdateReservation(ctx, cmd.ReservationID, cmd.SiteID, cmd.Range)
	if err != nil {
		return nil, err
	}

	ev := reservation.MoveRequested{
		ReservationID: cmd.ReservationID,
		FromSite:      cmd.FromSite,
		ToSite:        cmd.SiteID,
		From:          cmd.FromRange,
		To:            cmd.Range,
		DeltaCents:    cmd.DeltaCents,
		KeptPrice:     cmd.KeptPrice,
		At:            now(h.Clock),
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.encoder(), []events.DomainEvent{ev}); err != nil {
		return nil, err
	}

	site := updated.SiteID
	dr := updated.Range
	if site == "" {
		site = cmd.SiteID
	}
	if dr.Validate() != nil {
		dr = cmd.Range
	}
	return &MoveReservationResult{
		ReservationID: string(cmd.ReservationID),
		SiteID:        string(site),
		Arrival:       dr.ArrivalKey(),
		Departure:     dr.DepartureKey(),
		Status:        string(updated.Status),
	}, nil
}

func (h *MoveReservationHandler) encoder() outbox.EventEncoder {
	if h.Encoder != nil {
		return h.Encoder
	}
	return outbox.JSONEventEncoder{}
}

func now(clock func() time.Time) time.Time {
	if clock != nil {
		return clock().UTC()
	}
	return time.Now().UTC()
}

var _ commands.Handler[MoveReservationCommand, *MoveReservationResult] = (*MoveReservationHandler)(nil)
var _ middleware.IdempotentCommand = (*MoveReservationCommand)(nil)
