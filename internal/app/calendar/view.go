package calendar

import (
	"sync/atomic"

	"campcal/internal/app/dto"
	"campcal/internal/app/gate"
	"campcal/internal/app/handlers/reservations"
	"campcal/internal/app/resolver"
	"campcal/internal/domain/drag"
	"campcal/internal/domain/grid"
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/render"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

// Sequence hands out interaction tokens. A result is applied only while its
// token is still the latest one.
type Sequence struct {
	n atomic.Uint64
}

func (s *Sequence) Next() uint64 { return s.n.Add(1) }

func (s *Sequence) Current() uint64 { return s.n.Load() }

func (s *Sequence) IsCurrent(token uint64) bool { return s.n.Load() == token }

// Selection is the stored range of the last new-selection interaction.
type Selection struct {
	Token      uint64
	SiteID     reservation.SiteID
	Range      daterange.DateRange
	Resolving  bool
	Resolution *resolver.Resolution
	Blocked    *gate.BlockedError
	Quote      *pricing.QuotePreview
	Warnings   []resolver.Warning
}

func (s *Selection) renderInput() *render.Selection {
	if s == nil {
		return nil
	}
	return &render.Selection{SiteID: s.SiteID, Range: s.Range, Blocked: s.Blocked != nil}
}

// View is the reactive copy of a session. It changes only at interaction
// boundaries; per-move feedback goes through FastSpan instead.
type View struct {
	SessionID    string
	CampgroundID string
	Window       grid.Window
	CanMutate    bool
	Version      uint64
	Drag         *drag.Snapshot
	Selection    *Selection
	Focus        reservation.ID
	Gate         gate.State
	Pending      *pricing.PendingChange
	Blocked      *gate.BlockedError
	Warnings     []resolver.Warning
	Error        *gate.MutationError
	Intent       *gate.Intent
	LastMove     *reservations.MoveReservationResult
	LastHold     *reservations.CreateHoldResult
	LastSplit    *reservations.SplitReservationResult
}

func (v View) clone() View {
	out := v
	if v.Drag != nil {
		d := *v.Drag
		out.Drag = &d
	}
	if v.Selection != nil {
		s := *v.Selection
		s.Warnings = append([]resolver.Warning(nil), v.Selection.Warnings...)
		out.Selection = &s
	}
	out.Warnings = append([]resolver.Warning(nil), v.Warnings...)
	return out
}

func (v View) DTO() dto.SessionView {
	out := dto.SessionView{
		SessionID:    v.SessionID,
		CampgroundID: v.CampgroundID,
		Start:        v.Window.Range().ArrivalKey(),
		DayCount:     v.Window.DayCount,
		CanMutate:    v.CanMutate,
		Version:      v.Version,
		Drag:         v.Drag,
		Focus:        string(v.Focus),
		Gate:         string(v.Gate),
		Pending:      dto.MapPendingChange(v.Pending),
		Blocked:      dto.MapBlock(v.Blocked),
		Warnings:     dto.MapWarnings(v.Warnings),
		Error:        dto.MapMutationError(v.Error),
		Intent:       dto.MapIntent(v.Intent),
		LastMove:     v.LastMove,
		LastHold:     v.LastHold,
		LastSplit:    v.LastSplit,
	}
	if s := v.Selection; s != nil {
		out.Selection = &dto.Selection{
			Token:      s.Token,
			SiteID:     string(s.SiteID),
			Arrival:    s.Range.ArrivalKey(),
			Departure:  s.Range.DepartureKey(),
			Nights:     s.Range.Nights(),
			Resolving:  s.Resolving,
			Conflicted: s.Resolution != nil && s.Resolution.Conflict,
			Blocked:    dto.MapBlock(s.Blocked),
			Quote:      dto.MapQuotePreview(s.Quote),
			Warnings:   dto.MapWarnings(s.Warnings),
		}
	}
	return out
}

// FastSpan is the non-reactive drag handle. Writers never touch the View.
type FastSpan struct {
	current atomic.Pointer[SpanWrite]
	writes  atomic.Uint64
}

type SpanWrite struct {
	SiteID reservation.SiteID `json:"site_id"`
	Span   grid.Span          `json:"span"`
}

func (f *FastSpan) WriteSpan(site reservation.SiteID, span grid.Span) {
	f.current.Store(&SpanWrite{SiteID: site, Span: span})
	f.writes.Add(1)
}

func (f *FastSpan) Clear() { f.current.Store(nil) }

// Load returns the latest span write, or nil when nothing is being dragged.
func (f *FastSpan) Load() *SpanWrite { return f.current.Load() }

func (f *FastSpan) Writes() uint64 { return f.writes.Load() }

var _ drag.FastPath = (*FastSpan)(nil)
