package pricing

import (
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/money"
)

type ChangeKind string

const (
	ChangeMove      ChangeKind = "move"
	ChangeExtension ChangeKind = "extension"
)

// Classify treats a change as an extension only when the site and arrival
// stay put and the departure moves later. Everything else is a move.
func Classify(original reservation.Reservation, site reservation.SiteID, next daterange.DateRange) ChangeKind {
	if site == original.SiteID &&
		next.Arrival.Equal(original.Range.Arrival) &&
		next.Departure.After(original.Range.Departure) {
		return ChangeExtension
	}
	return ChangeMove
}

// Delta is the amount still owed after a change, floored at zero.
func Delta(current, next money.Money) (money.Money, error) {
	diff, err := next.Sub(current)
	if err != nil {
		return money.Money{}, err
	}
	return diff.ClampZero(), nil
}

type Decision string

const (
	DecisionCommit           Decision = "commit"
	DecisionConfirmExtension Decision = "confirm_extension"
	DecisionConfirmMove      Decision = "confirm_move"
)

// Decide routes a priced change. Extensions always confirm, whatever the
// delta; moves confirm only when money is owed.
func Decide(kind ChangeKind, delta money.Money) Decision {
	switch {
	case kind == ChangeExtension:
		return DecisionConfirmExtension
	case delta.IsPositive():
		return DecisionConfirmMove
	default:
		return DecisionCommit
	}
}

// PendingChange is the confirmation-gate payload for a move or extension.
type PendingChange struct {
	Kind             ChangeKind
	Reservation      reservation.Reservation
	TargetSite       reservation.SiteID
	Range            daterange.DateRange
	CurrentTotal     money.Money
	NewTotal         money.Money
	Delta            money.Money
	QuoteUnavailable bool
}

// PriceChange builds the pending change for a quoted new range.
func PriceChange(original reservation.Reservation, site reservation.SiteID, next daterange.DateRange, q Quote) (PendingChange, error) {
	current := money.Money{Amount: original.TotalCents, Currency: q.Total.Currency}
	delta, err := Delta(current, q.Total)
	if err != nil {
		return PendingChange{}, err
	}
	return PendingChange{
		Kind:         Classify(original, site, next),
		Reservation:  original,
		TargetSite:   site,
		Range:        next,
		CurrentTotal: current,
		NewTotal:     q.Total,
		Delta:        delta,
	}, nil
}

// UnpricedChange is used when the quoting service could not answer. The
// change still goes through confirmation so nothing commits silently.
func UnpricedChange(original reservation.Reservation, site reservation.SiteID, next daterange.DateRange) PendingChange {
	current := money.Cents(original.TotalCents)
	return PendingChange{
		Kind:             Classify(original, site, next),
		Reservation:      original,
		TargetSite:       site,
		Range:            next,
		CurrentTotal:     current,
		NewTotal:         current,
		Delta:            money.Money{Currency: current.Currency},
		QuoteUnavailable: true,
	}
}

func (p PendingChange) Decision() Decision {
	if p.QuoteUnavailable {
		if p.Kind == ChangeExtension {
			return DecisionConfirmExtension
		}
		return DecisionConfirmMove
	}
	return Decide(p.Kind, p.Delta)
}

func (p PendingChange) Unchanged() bool {
	return p.TargetSite == p.Reservation.SiteID && p.Range.Equal(p.Reservation.Range)
}
