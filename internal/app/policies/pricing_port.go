package policies

import (
	"context"

	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

// QuotePort is the opaque quoting service. Rule computation happens behind it.
type QuotePort interface {
	Quote(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange) (pricing.Quote, error)
}
