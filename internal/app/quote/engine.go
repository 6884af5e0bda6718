// Package quote turns finalized ranges into previews and priced changes.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"campcal/internal/app/policies"
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

var ErrQuoteUnavailable = errors.New("quote: pricing unavailable")

type Engine struct {
	Quotes policies.QuotePort
	Logger *slog.Logger
}

// Preview prices a new selection. On failure the caller keeps the selection
// and drops the preview.
func (e *Engine) Preview(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange) (pricing.QuotePreview, error) {
	q, err := e.fetch(ctx, campgroundID, site, dr)
	if err != nil {
		return pricing.QuotePreview{}, err
	}
	return pricing.NewPreview(site, dr, q), nil
}

// Change prices a move or extension of original. When the quote cannot be
// fetched the returned change is unpriced and the error wraps
// ErrQuoteUnavailable.
func (e *Engine) Change(ctx context.Context, campgroundID string, original reservation.Reservation, site reservation.SiteID, dr daterange.DateRange) (pricing.PendingChange, error) {
	q, err := e.fetch(ctx, campgroundID, site, dr)
	if err != nil {
		return pricing.UnpricedChange(original, site, dr), err
	}
	change, err := pricing.PriceChange(original, site, dr, q)
	if err != nil {
		e.log("quote currency mismatch", site, dr, err)
		return pricing.UnpricedChange(original, site, dr), fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	return change, nil
}

func (e *Engine) fetch(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange) (pricing.Quote, error) {
	if e.Quotes == nil {
		return pricing.Quote{}, ErrQuoteUnavailable
	}
	q, err := e.Quotes.Quote(ctx, campgroundID, site, dr)
	if err != nil {
		e.log("quote request failed", site, dr, err)
		return pricing.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	if err := q.Validate(dr); err != nil {
		e.log("quote rejected", site, dr, err)
		return pricing.Quote{}, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	return q, nil
}

func (e *Engine) log(msg string, site reservation.SiteID, dr daterange.DateRange, err error) {
	if e.Logger == nil {
		return
	}
	e.Logger.Warn(msg, "site_id", string(site), "range", dr.String(), "error", err)
}
