package daterange

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// KeyLayout is the wire and display form of a calendar date.
const KeyLayout = "2006-01-02"

var (
	ErrInvalidRange = errors.New("daterange: departure must be after arrival")
	ErrInvalidKey   = errors.New("daterange: invalid date key")
)

// Normalize drops the time-of-day and location of t, keeping the calendar day
// t falls on in its own location. The result is midnight UTC of that day.
func Normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayOffset returns the number of whole calendar days from b to a.
// Both sides are reduced to UTC year/month/day first, so DST transitions in
// the callers' locations never produce 23h or 25h days.
func DayOffset(a, b time.Time) int {
	return int(Normalize(a).Sub(Normalize(b)) / (24 * time.Hour))
}

// AddDays moves the calendar day of t by n days.
func AddDays(t time.Time, n int) time.Time {
	return Normalize(t).AddDate(0, 0, n)
}

func ToDateKey(t time.Time) string {
	return t.Format(KeyLayout)
}

func FromDateKey(key string) (time.Time, error) {
	key = strings.TrimSpace(key)
	t, err := time.ParseInLocation(KeyLayout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return t, nil
}

// MustDateKey is FromDateKey for fixtures and tests.
func MustDateKey(key string) time.Time {
	t, err := FromDateKey(key)
	if err != nil {
		panic(err)
	}
	return t
}

// DateRange represents a half-open interval [Arrival, Departure) of calendar days.
type DateRange struct {
	Arrival   time.Time
	Departure time.Time
}

func New(arrival, departure time.Time) (DateRange, error) {
	dr := DateRange{Arrival: Normalize(arrival), Departure: Normalize(departure)}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// Parse builds a range from two YYYY-MM-DD keys.
func Parse(arrival, departure string) (DateRange, error) {
	a, err := FromDateKey(arrival)
	if err != nil {
		return DateRange{}, err
	}
	d, err := FromDateKey(departure)
	if err != nil {
		return DateRange{}, err
	}
	return New(a, d)
}

func MustParse(arrival, departure string) DateRange {
	dr, err := Parse(arrival, departure)
	if err != nil {
		panic(err)
	}
	return dr
}

func (dr DateRange) Validate() error {
	if dr.Arrival.IsZero() || dr.Departure.IsZero() {
		return ErrInvalidRange
	}
	if !dr.Departure.After(dr.Arrival) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return DayOffset(dr.Departure, dr.Arrival)
}

func (dr DateRange) ArrivalKey() string   { return ToDateKey(dr.Arrival) }
func (dr DateRange) DepartureKey() string { return ToDateKey(dr.Departure) }

func (dr DateRange) String() string {
	return dr.ArrivalKey() + "/" + dr.DepartureKey()
}

func (dr DateRange) Equal(other DateRange) bool {
	return dr.Arrival.Equal(other.Arrival) && dr.Departure.Equal(other.Departure)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.Arrival.Before(other.Departure) && other.Arrival.Before(dr.Departure)
}

// Intersection returns the overlapping part of two ranges.
func (dr DateRange) Intersection(other DateRange) (DateRange, bool) {
	if !dr.Overlaps(other) {
		return DateRange{}, false
	}
	start := dr.Arrival
	if other.Arrival.After(start) {
		start = other.Arrival
	}
	end := dr.Departure
	if other.Departure.Before(end) {
		end = other.Departure
	}
	return DateRange{Arrival: start, Departure: end}, true
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.Arrival.Before(dr.Arrival) && !other.Departure.After(dr.Departure)
}

// ContainsDate reports whether the night starting on t is part of the stay.
func (dr DateRange) ContainsDate(t time.Time) bool {
	t = Normalize(t)
	return !t.Before(dr.Arrival) && t.Before(dr.Departure)
}

func (dr DateRange) Adjacent(other DateRange) bool {
	return dr.Departure.Equal(other.Arrival) || dr.Arrival.Equal(other.Departure)
}

func (dr DateRange) Merge(other DateRange) (DateRange, bool) {
	if !(dr.Overlaps(other) || dr.Adjacent(other)) {
		return DateRange{}, false
	}
	start := dr.Arrival
	if other.Arrival.Before(start) {
		start = other.Arrival
	}
	end := dr.Departure
	if other.Departure.After(end) {
		end = other.Departure
	}
	return DateRange{Arrival: start, Departure: end}, true
}

// Days lists every occupied night of the range.
func (dr DateRange) Days() []time.Time {
	n := dr.Nights()
	if n <= 0 {
		return nil
	}
	out := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, AddDays(dr.Arrival, i))
	}
	return out
}
