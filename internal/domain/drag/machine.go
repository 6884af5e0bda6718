// Package drag owns the pointer interaction on the calendar board: which site,
// which columns and which mode an in-flight drag covers.
package drag

import (
	"errors"

	"campcal/internal/domain/grid"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

var (
	ErrNoSession       = errors.New("drag: no active session")
	ErrInvalidTarget   = errors.New("drag: pointer target is not draggable")
	ErrDegenerateRange = errors.New("drag: finalized range has no nights")
)

// FastPath receives the per-move span writes. Implementations must not
// trigger reactive work; they stand in for direct style writes.
type FastPath interface {
	WriteSpan(site reservation.SiteID, span grid.Span)
	Clear()
}

// Publisher receives the reactive copy of the session at boundaries only.
// A nil snapshot means the board is idle.
type Publisher interface {
	Publish(snapshot *Snapshot)
}

// Session is the single authoritative in-flight drag. Indices are inclusive
// columns and may fall outside the window when a pill is partly visible.
type Session struct {
	Token      uint64
	SiteID     reservation.SiteID
	StartIndex int
	EndIndex   int
	Mode       Mode
	IsDragging bool

	originSite  reservation.SiteID
	originStart int
	originEnd   int
	anchor      int
}

type Snapshot struct {
	Token         uint64             `json:"token"`
	SiteID        reservation.SiteID `json:"site_id"`
	StartIndex    int                `json:"start_index"`
	EndIndex      int                `json:"end_index"`
	Mode          ModeKind           `json:"mode"`
	ReservationID reservation.ID     `json:"reservation_id,omitempty"`
	IsDragging    bool               `json:"is_dragging"`
}

// Result is a finalized interaction, handed downstream after the session is gone.
type Result struct {
	Token      uint64
	Mode       Mode
	SiteID     reservation.SiteID
	OriginSite reservation.SiteID
	Range      daterange.DateRange
	Dragged    bool
}

// TokenSource issues interaction tokens. Sharing one source between the
// machine and its caller keeps session and selection tokens comparable.
type TokenSource interface {
	Next() uint64
}

type counter struct{ n uint64 }

func (c *counter) Next() uint64 {
	c.n++
	return c.n
}

// Machine is the only writer of the drag session. It is not safe for
// concurrent use; callers serialize pointer events.
type Machine struct {
	window    grid.Window
	fast      FastPath
	publisher Publisher
	session   *Session
	tokens    TokenSource
}

func NewMachine(window grid.Window, fast FastPath, publisher Publisher) *Machine {
	if fast == nil {
		fast = NopFastPath{}
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Machine{window: window, fast: fast, publisher: publisher, tokens: &counter{}}
}

// WithTokens makes the machine draw session tokens from src.
func (m *Machine) WithTokens(src TokenSource) *Machine {
	if src != nil {
		m.tokens = src
	}
	return m
}

func (m *Machine) Window() grid.Window { return m.window }

func (m *Machine) Active() bool { return m.session != nil }

func (m *Machine) Snapshot() *Snapshot {
	if m.session == nil {
		return nil
	}
	return m.session.snapshot()
}

// Start begins a session on pointer-down. A session left over from a lost
// pointer-up is discarded first.
func (m *Machine) Start(target Target) (*Snapshot, error) {
	s, err := m.seed(target)
	if err != nil {
		return nil, err
	}
	if m.session != nil {
		m.clear()
	}
	s.Token = m.tokens.Next()
	m.session = s
	m.writeFast()
	snap := s.snapshot()
	m.publisher.Publish(snap)
	return snap, nil
}

func (m *Machine) seed(target Target) (*Session, error) {
	if target.Kind == TargetCell {
		if target.SiteID == "" || !m.window.Valid(target.Index) {
			return nil, ErrInvalidTarget
		}
		return &Session{
			SiteID:      target.SiteID,
			StartIndex:  target.Index,
			EndIndex:    target.Index,
			Mode:        NewSelection{},
			originSite:  target.SiteID,
			originStart: target.Index,
			originEnd:   target.Index,
			anchor:      target.Index,
		}, nil
	}

	if target.Reservation == nil {
		return nil, ErrInvalidTarget
	}
	res := *target.Reservation
	if res.Range.Validate() != nil {
		return nil, ErrInvalidTarget
	}
	start := daterange.DayOffset(res.Range.Arrival, m.window.Start)
	end := daterange.DayOffset(res.Range.Departure, m.window.Start) - 1

	var mode Mode
	anchor := target.Index
	switch target.Kind {
	case TargetPillBody:
		mode = Move{Reservation: res, GrabIndex: target.Index}
	case TargetPillStartHandle:
		mode = ExtendStart{Reservation: res}
		anchor = start
	case TargetPillEndHandle:
		mode = ExtendEnd{Reservation: res}
		anchor = end
	default:
		return nil, ErrInvalidTarget
	}
	return &Session{
		SiteID:      res.SiteID,
		StartIndex:  start,
		EndIndex:    end,
		Mode:        mode,
		originSite:  res.SiteID,
		originStart: start,
		originEnd:   end,
		anchor:      anchor,
	}, nil
}

// Update applies a pointer-move over the cell (site, index). Only the fast
// path is written per move; the publisher hears about it when the drag
// becomes real or the row changes.
func (m *Machine) Update(site reservation.SiteID, index int) error {
	s := m.session
	if s == nil {
		return ErrNoSession
	}
	if !m.window.Valid(index) {
		return nil
	}

	boundary := false
	if !s.IsDragging && index != s.anchor {
		s.IsDragging = true
		boundary = true
	}

	switch mode := s.Mode.(type) {
	case NewSelection:
		s.EndIndex = index
	case Move:
		delta := index - mode.GrabIndex
		s.StartIndex = s.originStart + delta
		s.EndIndex = s.originEnd + delta
		if site != "" && site != s.SiteID {
			s.SiteID = site
			s.IsDragging = true
			boundary = true
		}
	case ExtendStart:
		s.StartIndex = min(index, s.EndIndex)
	case ExtendEnd:
		s.EndIndex = max(index, s.StartIndex)
	}

	m.writeFast()
	if boundary {
		m.publisher.Publish(s.snapshot())
	}
	return nil
}

// Finalize ends the session on pointer-up wherever the pointer is. Both
// representations are cleared before the result is returned.
func (m *Machine) Finalize() (Result, error) {
	s := m.session
	if s == nil {
		return Result{}, ErrNoSession
	}
	m.clear()

	low, high := min(s.StartIndex, s.EndIndex), max(s.StartIndex, s.EndIndex)
	r := daterange.DateRange{
		Arrival:   m.window.DateAt(low),
		Departure: daterange.AddDays(m.window.DateAt(high), 1),
	}
	if r.Validate() != nil {
		return Result{}, ErrDegenerateRange
	}
	return Result{
		Token:      s.Token,
		Mode:       s.Mode,
		SiteID:     s.SiteID,
		OriginSite: s.originSite,
		Range:      r,
		Dragged:    s.IsDragging,
	}, nil
}

// Cancel drops the session without producing a range.
func (m *Machine) Cancel() bool {
	if m.session == nil {
		return false
	}
	m.clear()
	return true
}

func (m *Machine) clear() {
	m.session = nil
	m.fast.Clear()
	m.publisher.Publish(nil)
}

func (m *Machine) writeFast() {
	s := m.session
	span, ok := m.window.IndexSpan(s.StartIndex, s.EndIndex)
	if !ok {
		m.fast.Clear()
		return
	}
	m.fast.WriteSpan(s.SiteID, span)
}

func (s *Session) snapshot() *Snapshot {
	snap := &Snapshot{
		Token:      s.Token,
		SiteID:     s.SiteID,
		StartIndex: s.StartIndex,
		EndIndex:   s.EndIndex,
		Mode:       s.Mode.Kind(),
		IsDragging: s.IsDragging,
	}
	if res, ok := ReservationOf(s.Mode); ok {
		snap.ReservationID = res.ID
	}
	return snap
}

type NopFastPath struct{}

func (NopFastPath) WriteSpan(reservation.SiteID, grid.Span) {}
func (NopFastPath) Clear()                                  {}

type NopPublisher struct{}

func (NopPublisher) Publish(*Snapshot) {}
