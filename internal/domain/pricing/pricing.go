package pricing

import (
	"errors"

	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/money"
)

var (
	ErrNegativeComponent = errors.New("pricing: quote components cannot be negative")
	ErrNightsMismatch    = errors.New("pricing: quote nights do not match the range")
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
)

// Quote is the quoting service's answer for one site and range. Rule
// adjustments are opaque here and arrive already summed in RulesDelta.
type Quote struct {
	Nights       int
	BaseSubtotal money.Money
	RulesDelta   money.Money
	Total        money.Money
	PerNight     money.Money
	DepositRule  DepositRule
}

func (q Quote) Validate(r daterange.DateRange) error {
	if q.Total.Currency == "" {
		return ErrCurrencyUnset
	}
	if q.BaseSubtotal.Amount < 0 || q.Total.Amount < 0 {
		return ErrNegativeComponent
	}
	if q.Nights != r.Nights() {
		return ErrNightsMismatch
	}
	return nil
}

type DepositRule string

const (
	DepositNone       DepositRule = "none"
	DepositFirstNight DepositRule = "first_night"
	DepositHalf       DepositRule = "percent_50"
	DepositFull       DepositRule = "full"
)

// Due returns the deposit owed at booking time for a quote.
func (d DepositRule) Due(q Quote) money.Money {
	switch d {
	case DepositFirstNight:
		if q.PerNight.Amount > q.Total.Amount {
			return q.Total
		}
		return q.PerNight
	case DepositHalf:
		return money.Money{Amount: q.Total.Amount / 2, Currency: q.Total.Currency}
	case DepositFull:
		return q.Total
	default:
		return money.Money{Currency: q.Total.Currency}
	}
}

// QuotePreview is the quote cached for the active selection only.
type QuotePreview struct {
	SiteID          reservation.SiteID
	Range           daterange.DateRange
	Nights          int
	BaseCents       int64
	RulesDeltaCents int64
	TotalCents      int64
	PerNightCents   int64
	DepositCents    int64
	DepositRule     DepositRule
	Currency        string
}

func NewPreview(site reservation.SiteID, r daterange.DateRange, q Quote) QuotePreview {
	return QuotePreview{
		SiteID:          site,
		Range:           r,
		Nights:          q.Nights,
		BaseCents:       q.BaseSubtotal.Amount,
		RulesDeltaCents: q.RulesDelta.Amount,
		TotalCents:      q.Total.Amount,
		PerNightCents:   q.PerNight.Amount,
		DepositCents:    q.DepositRule.Due(q).Amount,
		DepositRule:     q.DepositRule,
		Currency:        q.Total.Currency,
	}
}

// Matches reports whether the preview still belongs to (site, r).
func (p QuotePreview) Matches(site reservation.SiteID, r daterange.DateRange) bool {
	return p.SiteID == site && p.Range.Equal(r)
}
