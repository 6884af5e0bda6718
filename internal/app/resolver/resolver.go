// Package resolver runs the availability, overlap and blackout checks for a
// finalized range. Lookup failures become warnings; only positive findings block.
package resolver

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"campcal/internal/app/policies"
	"campcal/internal/domain/availability"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

type WarningCode string

const (
	WarnAvailabilityUnreachable WarningCode = "availability_unreachable"
	WarnOverlapUnreachable      WarningCode = "overlap_unreachable"
	WarnSiteNotListed           WarningCode = "site_not_listed"
	WarnQuoteUnavailable        WarningCode = "quote_unavailable"
)

// Warning is a soft failure. The user may still proceed.
type Warning struct {
	Code    WarningCode `json:"code"`
	Message string      `json:"message"`
}

type Request struct {
	CampgroundID string
	SiteID       reservation.SiteID
	Range        daterange.DateRange
	// Reservation is set when an existing stay is being changed.
	Reservation reservation.ID
}

type Resolution struct {
	Request
	Unavailable   bool
	Conflict      bool
	Blackouts     []reservation.Blackout
	LocalOverlaps []reservation.Reservation
	Warnings      []Warning
}

func (r Resolution) Blocked() bool {
	return r.Conflict || r.Unavailable || len(r.Blackouts) > 0
}

type Resolver struct {
	Availability policies.AvailabilityPort
	Overlap      policies.OverlapPort
	Logger       *slog.Logger
}

// Resolve runs availability then overlap then the blackout scan. inv is the
// currently loaded board used for local checks.
func (r *Resolver) Resolve(ctx context.Context, req Request, inv reservation.Inventory) Resolution {
	span := trace.SpanFromContext(ctx)
	out := Resolution{Request: req}

	r.checkAvailability(ctx, req, &out)
	span.AddEvent("resolver.availability", trace.WithAttributes(
		attribute.String("site_id", string(req.SiteID)),
		attribute.Bool("unavailable", out.Unavailable),
	))

	r.checkOverlap(ctx, req, &out)
	span.AddEvent("resolver.overlap", trace.WithAttributes(attribute.Bool("conflict", out.Conflict)))

	out.Blackouts = availability.CoveringBlackouts(inv.Blackouts, req.SiteID, req.Range)
	out.LocalOverlaps = availability.LocalOverlaps(inv.Reservations, req.SiteID, req.Range, req.Reservation)
	if len(out.Blackouts) > 0 {
		span.AddEvent("resolver.blackout", trace.WithAttributes(attribute.Int("count", len(out.Blackouts))))
	}
	return out
}

func (r *Resolver) checkAvailability(ctx context.Context, req Request, out *Resolution) {
	if r.Availability == nil {
		return
	}
	sites, err := r.Availability.AvailableSites(ctx, req.CampgroundID, req.Range)
	if err != nil {
		r.warn(out, WarnAvailabilityUnreachable, "Availability could not be checked; proceed with care.", err)
		return
	}
	for _, s := range sites {
		if s.ID == req.SiteID {
			return
		}
	}
	if req.Reservation != "" {
		// The stay being changed occupies its own nights, so the collaborator
		// may leave the site out. The overlap check decides.
		out.Warnings = append(out.Warnings, Warning{
			Code:    WarnSiteNotListed,
			Message: "Site is not listed as available for these dates.",
		})
		return
	}
	out.Unavailable = true
}

func (r *Resolver) checkOverlap(ctx context.Context, req Request, out *Resolution) {
	if r.Overlap == nil {
		return
	}
	conflict, err := r.Overlap.CheckOverlap(ctx, req.CampgroundID, policies.OverlapRequest{
		SiteID:  req.SiteID,
		Range:   req.Range,
		Exclude: req.Reservation,
	})
	if err != nil {
		r.warn(out, WarnOverlapUnreachable, "Conflicts could not be checked; proceed with care.", err)
		return
	}
	out.Conflict = conflict
}

func (r *Resolver) warn(out *Resolution, code WarningCode, msg string, err error) {
	out.Warnings = append(out.Warnings, Warning{Code: code, Message: msg})
	if r.Logger != nil {
		r.Logger.Warn("resolver lookup failed",
			"code", string(code),
			"site_id", string(out.SiteID),
			"range", out.Range.String(),
			"error", err,
		)
	}
}
