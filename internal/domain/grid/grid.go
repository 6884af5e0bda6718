// Package grid maps calendar days onto the columns of the sites × days board.
package grid

import (
	"errors"
	"time"

	"campcal/internal/domain/shared/daterange"
)

var (
	ErrInvalidWindow = errors.New("grid: window needs a start date and at least one day")
	ErrOutOfWindow   = errors.New("grid: day index outside the visible window")
)

// MaxDays caps a window so a bad request cannot allocate an unbounded board.
const MaxDays = 366

// Window is the visible run of days, column 0 being Start.
type Window struct {
	Start    time.Time
	DayCount int
}

func NewWindow(start time.Time, dayCount int) (Window, error) {
	if start.IsZero() || dayCount <= 0 || dayCount > MaxDays {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: daterange.Normalize(start), DayCount: dayCount}, nil
}

// End is the first day after the window.
func (w Window) End() time.Time {
	return daterange.AddDays(w.Start, w.DayCount)
}

func (w Window) Range() daterange.DateRange {
	return daterange.DateRange{Arrival: w.Start, Departure: w.End()}
}

func (w Window) Valid(index int) bool {
	return index >= 0 && index < w.DayCount
}

// IndexOf returns the column of d, and false when d is outside the window.
func (w Window) IndexOf(d time.Time) (int, bool) {
	i := daterange.DayOffset(d, w.Start)
	return i, w.Valid(i)
}

// DateAt returns the date of column i. Indices outside the window are still
// resolved so ranges seeded from partially visible reservations keep their
// real dates.
func (w Window) DateAt(i int) time.Time {
	return daterange.AddDays(w.Start, i)
}

type Day struct {
	Date      time.Time
	Index     int
	IsWeekend bool
	IsToday   bool
}

func (d Day) Key() string { return daterange.ToDateKey(d.Date) }

func (w Window) Days(today time.Time) []Day {
	today = daterange.Normalize(today)
	days := make([]Day, 0, w.DayCount)
	for i := 0; i < w.DayCount; i++ {
		date := w.DateAt(i)
		wd := date.Weekday()
		days = append(days, Day{
			Date:      date,
			Index:     i,
			IsWeekend: wd == time.Saturday || wd == time.Sunday,
			IsToday:   date.Equal(today),
		})
	}
	return days
}

// Span is a column-start/column-span pair in the grid.
type Span struct {
	ColumnStart int `json:"column_start"`
	ColumnSpan  int `json:"column_span"`
}

func (s Span) End() int { return s.ColumnStart + s.ColumnSpan }

// Project clips a half-open range to the window. Ranges that do not touch the
// window report false and must not be painted.
func (w Window) Project(r daterange.DateRange) (Span, bool) {
	start := daterange.DayOffset(r.Arrival, w.Start)
	end := daterange.DayOffset(r.Departure, w.Start)
	if start < 0 {
		start = 0
	}
	if end > w.DayCount {
		end = w.DayCount
	}
	if end <= start {
		return Span{}, false
	}
	return Span{ColumnStart: start, ColumnSpan: end - start}, true
}

// IndexSpan clips an inclusive index pair, as held by a drag session.
func (w Window) IndexSpan(low, high int) (Span, bool) {
	if low > high {
		low, high = high, low
	}
	if low < 0 {
		low = 0
	}
	if high >= w.DayCount {
		high = w.DayCount - 1
	}
	if high < low {
		return Span{}, false
	}
	return Span{ColumnStart: low, ColumnSpan: high - low + 1}, true
}
