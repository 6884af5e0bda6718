package reservation

import (
	"time"

	"campcal/internal/domain/shared/daterange"
)

type MoveRequested struct {
	ReservationID ID
	FromSite      SiteID
	ToSite        SiteID
	From          daterange.DateRange
	To            daterange.DateRange
	DeltaCents    int64
	KeptPrice     bool
	At            time.Time
}

func (e MoveRequested) EventName() string     { return "reservation.move_requested" }
func (e MoveRequested) AggregateID() string   { return string(e.ReservationID) }
func (e MoveRequested) OccurredAt() time.Time { return e.At }

type HoldRequested struct {
	HoldID       string
	CampgroundID string
	SiteID       SiteID
	Range        daterange.DateRange
	Minutes      int
	At           time.Time
}

func (e HoldRequested) EventName() string     { return "reservation.hold_requested" }
func (e HoldRequested) AggregateID() string   { return string(e.SiteID) }
func (e HoldRequested) OccurredAt() time.Time { return e.At }

type SplitRequested struct {
	ReservationID ID
	Segments      []Segment
	At            time.Time
}

func (e SplitRequested) EventName() string     { return "reservation.split_requested" }
func (e SplitRequested) AggregateID() string   { return string(e.ReservationID) }
func (e SplitRequested) OccurredAt() time.Time { return e.At }
