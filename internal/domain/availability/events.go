package availability

import (
	"time"

	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

type SelectionFinalized struct {
	SessionID string
	SiteID    reservation.SiteID
	Range     daterange.DateRange
	Mode      string
	At        time.Time
}

func (e SelectionFinalized) EventName() string     { return "calendar.selection_finalized" }
func (e SelectionFinalized) AggregateID() string   { return e.SessionID }
func (e SelectionFinalized) OccurredAt() time.Time { return e.At }

type MutationBlocked struct {
	SessionID     string
	ReservationID reservation.ID
	SiteID        reservation.SiteID
	Range         daterange.DateRange
	Reason        string
	At            time.Time
}

func (e MutationBlocked) EventName() string     { return "calendar.mutation_blocked" }
func (e MutationBlocked) AggregateID() string   { return e.SessionID }
func (e MutationBlocked) OccurredAt() time.Time { return e.At }
