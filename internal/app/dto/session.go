package dto

import (
	"campcal/internal/app/gate"
	"campcal/internal/app/handlers/reservations"
	"campcal/internal/app/resolver"
	"campcal/internal/domain/drag"
)

type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type Block struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type Selection struct {
	Token      uint64        `json:"token"`
	SiteID     string        `json:"site_id"`
	Arrival    string        `json:"arrival_date"`
	Departure  string        `json:"departure_date"`
	Nights     int           `json:"nights"`
	Resolving  bool          `json:"resolving"`
	Conflicted bool          `json:"conflicted"`
	Blocked    *Block        `json:"blocked,omitempty"`
	Quote      *QuotePreview `json:"quote,omitempty"`
	Warnings   []Warning     `json:"warnings,omitempty"`
}

type MutationError struct {
	Op        string `json:"op"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

type Intent struct {
	FollowOn      string `json:"follow_on"`
	ReservationID string `json:"reservation_id,omitempty"`
	SiteID        string `json:"site_id"`
	Arrival       string `json:"arrival_date"`
	Departure     string `json:"departure_date"`
	AmountCents   int64  `json:"amount_cents,omitempty"`
}

type SessionView struct {
	SessionID    string                               `json:"session_id"`
	CampgroundID string                               `json:"campground_id"`
	Start        string                               `json:"start"`
	DayCount     int                                  `json:"day_count"`
	CanMutate    bool                                 `json:"can_mutate"`
	Version      uint64                               `json:"version"`
	Drag         *drag.Snapshot                       `json:"drag,omitempty"`
	Selection    *Selection                           `json:"selection,omitempty"`
	Focus        string                               `json:"focus_reservation_id,omitempty"`
	Gate         string                               `json:"gate_state"`
	Pending      *PendingChange                       `json:"pending,omitempty"`
	Blocked      *Block                               `json:"blocked,omitempty"`
	Warnings     []Warning                            `json:"warnings,omitempty"`
	Error        *MutationError                       `json:"error,omitempty"`
	Intent       *Intent                              `json:"intent,omitempty"`
	LastMove     *reservations.MoveReservationResult  `json:"last_move,omitempty"`
	LastHold     *reservations.CreateHoldResult       `json:"last_hold,omitempty"`
	LastSplit    *reservations.SplitReservationResult `json:"last_split,omitempty"`
}

func MapWarnings(ws []resolver.Warning) []Warning {
	if len(ws) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(ws))
	for _, w := range ws {
		out = append(out, Warning{Code: string(w.Code), Message: w.Message})
	}
	return out
}

func MapBlock(b *gate.BlockedError) *Block {
	if b == nil {
		return nil
	}
	return &Block{Reason: string(b.Reason), Message: b.Message}
}

func MapIntent(i *gate.Intent) *Intent {
	if i == nil {
		return nil
	}
	return &Intent{
		FollowOn:      string(i.FollowOn),
		ReservationID: string(i.ReservationID),
		SiteID:        string(i.SiteID),
		Arrival:       i.Range.ArrivalKey(),
		Departure:     i.Range.DepartureKey(),
		AmountCents:   i.AmountCents,
	}
}

func MapMutationError(err *gate.MutationError) *MutationError {
	if err == nil {
		return nil
	}
	return &MutationError{Op: err.Op, Message: err.Error(), Retryable: err.Retryable()}
}
