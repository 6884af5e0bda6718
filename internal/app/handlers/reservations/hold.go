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

const createHoldKey = "reservations.hold"

const DefaultHoldMinutes = 15

var ErrInvalidHoldMinutes = errors.New("reservations: hold minutes must be positive")

type CreateHoldCommand struct {
	CampgroundID    string
	SiteID          reservation.SiteID
	Range           daterange.DateRange
	Minutes         int
	IdempotencyKeyV string
}

func (c CreateHoldCommand) Key() string { return createHoldKey }

func (c CreateHoldCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateHoldCommand) ResultPrototype() any { return &CreateHoldResult{} }

func (c CreateHoldCommand) Validate() error {
	if c.SiteID == "" {
		return ErrSiteRequired
	}
	if c.Minutes < 0 {
		return ErrInvalidHoldMinutes
	}
	return c.Range.Validate()
}

type CreateHoldResult struct {
	HoldID    string    `json:"hold_id"`
	SiteID    string    `json:"site_id"`
	Arrival   string    `json:"arrival_date"`
	Departure string    `json:"departure_date"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateHoldHandler struct {
	Holds   policies.HoldPort
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Clock   func() time.Time
}

func (h *CreateHoldHandler) Handle(ctx context.Context, cmd CreateHoldCommand) (*CreateHoldResult, error) {
	if h.Holds == nil {
		return nil, ErrPortMissing
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	minutes := cmd.Minutes
	if minutes == 0 {
		minutes = DefaultHoldMinutes
	}
	hold, err := h.Holds.CreateHold(ctx, cmd.CampgroundID, cmd.SiteID, cmd.Range, minutes)
	if err != nil {
		return nil, err
	}

	at := now(h.Clock)
	ev := reservation.HoldRequested{
		HoldID:       hold.ID,
		CampgroundID: cmd.CampgroundID,
		SiteID:       cmd.SiteID,
		Range:        cmd.Range,
		Minutes:      minutes,
		At:           at,
	}
	encoder := h.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, encoder, []events.DomainEvent{ev}); err != nil {
		return nil, err
	}

	expires := hold.ExpiresAt
	if expires.IsZero() {
		expires = at.Add(time.Duration(minutes) * time.Minute)
	}
	return &CreateHoldResult{
		HoldID:    hold.ID,
		SiteID:    string(cmd.SiteID),
		Arrival:   cmd.Range.ArrivalKey(),
		Departure: cmd.Range.DepartureKey(),
		ExpiresAt: expires,
	}, nil
}

var _ commands.Handler[CreateHoldCommand, *CreateHoldResult] = (*CreateHoldHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateHoldCommand)(nil)
