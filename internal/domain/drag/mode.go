package drag

import "campcal/internal/domain/reservation"

type ModeKind string

const (
	KindNewSelection ModeKind = "new-selection"
	KindMove         ModeKind = "move"
	KindExtendStart  ModeKind = "extend-start"
	KindExtendEnd    ModeKind = "extend-end"
)

// Mode selects what pointer moves and pointer-up mean for a session. The set
// is closed: NewSelection, Move, ExtendStart and ExtendEnd.
type Mode interface {
	Kind() ModeKind
	isMode()
}

type NewSelection struct{}

// Move drags a whole reservation. GrabIndex is the column the pill was
// grabbed at, so the stay keeps its offset under the pointer.
type Move struct {
	Reservation reservation.Reservation
	GrabIndex   int
}

type ExtendStart struct {
	Reservation reservation.Reservation
}

type ExtendEnd struct {
	Reservation reservation.Reservation
}

func (NewSelection) Kind() ModeKind { return KindNewSelection }
func (Move) Kind() ModeKind         { return KindMove }
func (ExtendStart) Kind() ModeKind  { return KindExtendStart }
func (ExtendEnd) Kind() ModeKind    { return KindExtendEnd }

func (NewSelection) isMode() {}
func (Move) isMode()         {}
func (ExtendStart) isMode()  {}
func (ExtendEnd) isMode()    {}

// ReservationOf returns the reservation a mode acts on, if any.
func ReservationOf(m Mode) (reservation.Reservation, bool) {
	switch v := m.(type) {
	case Move:
		return v.Reservation, true
	case ExtendStart:
		return v.Reservation, true
	case ExtendEnd:
		return v.Reservation, true
	default:
		return reservation.Reservation{}, false
	}
}

type TargetKind string

const (
	TargetCell            TargetKind = "cell"
	TargetPillBody        TargetKind = "pill"
	TargetPillStartHandle TargetKind = "pill_start"
	TargetPillEndHandle   TargetKind = "pill_end"
)

func ParseTargetKind(raw string) (TargetKind, bool) {
	switch k := TargetKind(raw); k {
	case TargetCell, TargetPillBody, TargetPillStartHandle, TargetPillEndHandle:
		return k, true
	default:
		return "", false
	}
}

// Target is what the pointer went down on.
type Target struct {
	Kind        TargetKind
	SiteID      reservation.SiteID
	Index       int
	Reservation *reservation.Reservation
}
