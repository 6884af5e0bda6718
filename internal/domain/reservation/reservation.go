package reservation

import (
	"errors"
	"sort"
	"strings"
	"time"

	"campcal/internal/domain/shared/daterange"
)

var (
	ErrReservationNotFound = errors.New("reservation: not found")
	ErrSiteNotFound        = errors.New("reservation: site not found")
	ErrInvalidSegments     = errors.New("reservation: segments must be contiguous and non-empty")
)

type ID string

type SiteID string

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked_in"
	StatusCheckedOut Status = "checked_out"
	StatusCancelled  Status = "cancelled"
)

func ParseStatus(raw string) Status {
	switch s := Status(strings.ToLower(strings.TrimSpace(raw))); s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return s
	default:
		return StatusPending
	}
}

// Occupies reports whether a reservation in this status takes up grid cells.
func (s Status) Occupies() bool {
	return s != StatusCancelled
}

type Site struct {
	ID          SiteID
	Name        string
	SiteClassID string
}

type Guest struct {
	FirstName string
	LastName  string
	Email     string
}

func (g Guest) DisplayName() string {
	return strings.TrimSpace(g.FirstName + " " + g.LastName)
}

// Reservation is owned by the external data layer. The calendar only reads it
// and issues change requests.
type Reservation struct {
	ID         ID
	SiteID     SiteID
	Range      daterange.DateRange
	Status     Status
	Guest      Guest
	TotalCents int64
	PaidCents  int64
	SiteLocked bool
}

func (r Reservation) BalanceCents() int64 {
	return r.TotalCents - r.PaidCents
}

// Blackout closes a site, or the whole park when SiteID is empty, from Start
// through End inclusive.
type Blackout struct {
	ID     string
	SiteID SiteID
	Start  time.Time
	End    time.Time
	Reason string
}

func (b Blackout) ParkWide() bool {
	return b.SiteID == ""
}

func (b Blackout) AppliesTo(site SiteID) bool {
	return b.ParkWide() || b.SiteID == site
}

// Range converts the inclusive blackout span to a half-open range.
func (b Blackout) Range() daterange.DateRange {
	return daterange.DateRange{
		Arrival:   daterange.Normalize(b.Start),
		Departure: daterange.AddDays(b.End, 1),
	}
}

type Hold struct {
	ID        string
	SiteID    SiteID
	Range     daterange.DateRange
	ExpiresAt time.Time
}

type Segment struct {
	SiteID SiteID
	Range  daterange.DateRange
}

// ValidateSegments checks that segments cover the original stay end to end.
func ValidateSegments(original daterange.DateRange, segments []Segment) error {
	if len(segments) < 2 {
		return ErrInvalidSegments
	}
	cursor := original.Arrival
	for _, seg := range segments {
		if err := seg.Range.Validate(); err != nil {
			return ErrInvalidSegments
		}
		if seg.SiteID == "" || !seg.Range.Arrival.Equal(cursor) {
			return ErrInvalidSegments
		}
		cursor = seg.Range.Departure
	}
	if !cursor.Equal(original.Departure) {
		return ErrInvalidSegments
	}
	return nil
}

// Conflict is derived per render pass from two overlapping reservations on one site.
type Conflict struct {
	SiteID       SiteID
	OverlapStart time.Time
	OverlapEnd   time.Time
	A            ID
	B            ID
}

// Inventory is the read-only snapshot of a campground the calendar paints.
type Inventory struct {
	Sites        []Site
	Reservations []Reservation
	Blackouts    []Blackout
}

func (inv Inventory) Reservation(id ID) (Reservation, bool) {
	for _, r := range inv.Reservations {
		if r.ID == id {
			return r, true
		}
	}
	return Reservation{}, false
}

func (inv Inventory) HasSite(id SiteID) bool {
	for _, s := range inv.Sites {
		if s.ID == id {
			return true
		}
	}
	return false
}

// BySite groups occupying reservations per site, sorted by arrival.
func (inv Inventory) BySite() map[SiteID][]Reservation {
	out := make(map[SiteID][]Reservation)
	for _, r := range inv.Reservations {
		if !r.Status.Occupies() {
			continue
		}
		out[r.SiteID] = append(out[r.SiteID], r)
	}
	for site := range out {
		list := out[site]
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Range.Arrival.Before(list[j].Range.Arrival)
		})
	}
	return out
}
