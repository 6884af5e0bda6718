package dto

import (
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(m money.Money) MoneyDTO {
	return MoneyDTO{Amount: m.Amount, Currency: m.Currency}
}

type QuotePreview struct {
	SiteID          string `json:"site_id"`
	Arrival         string `json:"arrival"`
	Departure       string `json:"departure"`
	Nights          int    `json:"nights"`
	BaseCents       int64  `json:"base_cents"`
	RulesDeltaCents int64  `json:"rules_delta_cents"`
	TotalCents      int64  `json:"total_cents"`
	PerNightCents   int64  `json:"per_night_cents"`
	DepositCents    int64  `json:"deposit_cents"`
	DepositRule     string `json:"deposit_rule,omitempty"`
	Currency        string `json:"currency"`
}

func MapQuotePreview(p *pricing.QuotePreview) *QuotePreview {
	if p == nil {
		return nil
	}
	return &QuotePreview{
		SiteID:          string(p.SiteID),
		Arrival:         p.Range.ArrivalKey(),
		Departure:       p.Range.DepartureKey(),
		Nights:          p.Nights,
		BaseCents:       p.BaseCents,
		RulesDeltaCents: p.RulesDeltaCents,
		TotalCents:      p.TotalCents,
		PerNightCents:   p.PerNightCents,
		DepositCents:    p.DepositCents,
		DepositRule:     string(p.DepositRule),
		Currency:        p.Currency,
	}
}

type PendingChange struct {
	Kind             string   `json:"kind"`
	ReservationID    string   `json:"reservation_id"`
	CurrentSiteID    string   `json:"current_site_id"`
	TargetSiteID     string   `json:"target_site_id"`
	CurrentArrival   string   `json:"current_arrival"`
	CurrentDeparture string   `json:"current_departure"`
	NewArrival       string   `json:"new_arrival"`
	NewDeparture     string   `json:"new_departure"`
	CurrentTotal     MoneyDTO `json:"current_total"`
	NewTotal         MoneyDTO `json:"new_total"`
	Delta            MoneyDTO `json:"delta"`
	QuoteUnavailable bool     `json:"quote_unavailable,omitempty"`
}

func MapPendingChange(p *pricing.PendingChange) *PendingChange {
	if p == nil {
		return nil
	}
	return &PendingChange{
		Kind:             string(p.Kind),
		ReservationID:    string(p.Reservation.ID),
		CurrentSiteID:    string(p.Reservation.SiteID),
		TargetSiteID:     string(p.TargetSite),
		CurrentArrival:   p.Reservation.Range.ArrivalKey(),
		CurrentDeparture: p.Reservation.Range.DepartureKey(),
		NewArrival:       p.Range.ArrivalKey(),
		NewDeparture:     p.Range.DepartureKey(),
		CurrentTotal:     MapMoney(p.CurrentTotal),
		NewTotal:         MapMoney(p.NewTotal),
		Delta:            MapMoney(p.Delta),
		QuoteUnavailable: p.QuoteUnavailable,
	}
}
