package datalayer

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"campcal/internal/app/policies"
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/money"
)

type rangePayload struct {
	SiteID        string `json:"siteId,omitempty"`
	ArrivalDate   string `json:"arrivalDate"`
	DepartureDate string `json:"departureDate"`
}

func newRangePayload(site reservation.SiteID, dr daterange.DateRange) rangePayload {
	return rangePayload{SiteID: string(site), ArrivalDate: dr.ArrivalKey(), DepartureDate: dr.DepartureKey()}
}

type siteDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SiteClassID string `json:"siteClassId"`
}

func (s siteDTO) toDomain() reservation.Site {
	return reservation.Site{ID: reservation.SiteID(s.ID), Name: s.Name, SiteClassID: s.SiteClassID}
}

type guestDTO struct {
	FirstName string `json:"primaryFirstName"`
	LastName  string `json:"primaryLastName"`
	Email     string `json:"email"`
}

type reservationDTO struct {
	ID            string    `json:"id"`
	SiteID        string    `json:"siteId"`
	ArrivalDate   string    `json:"arrivalDate"`
	DepartureDate string    `json:"departureDate"`
	Status        string    `json:"status"`
	TotalAmount   int64     `json:"totalAmount"`
	PaidAmount    int64     `json:"paidAmount"`
	SiteLocked    bool      `json:"siteLocked"`
	Guest         *guestDTO `json:"guest,omitempty"`
}

func (r reservationDTO) toDomain() (reservation.Reservation, error) {
	dr, err := daterange.Parse(r.ArrivalDate, r.DepartureDate)
	if err != nil {
		return reservation.Reservation{}, fmt.Errorf("reservation %s: %w", r.ID, err)
	}
	out := reservation.Reservation{
		ID:         reservation.ID(r.ID),
		SiteID:     reservation.SiteID(r.SiteID),
		Range:      dr,
		Status:     reservation.ParseStatus(r.Status),
		TotalCents: r.TotalAmount,
		PaidCents:  r.PaidAmount,
		SiteLocked: r.SiteLocked,
	}
	if r.Guest != nil {
		out.Guest = reservation.Guest{FirstName: r.Guest.FirstName, LastName: r.Guest.LastName, Email: r.Guest.Email}
	}
	return out, nil
}

type blackoutDTO struct {
	ID        string `json:"id"`
	SiteID    string `json:"siteId,omitempty"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Reason    string `json:"reason"`
}

func (b blackoutDTO) toDomain() (reservation.Blackout, error) {
	start, err := daterange.FromDateKey(b.StartDate)
	if err != nil {
		return reservation.Blackout{}, fmt.Errorf("blackout %s: %w", b.ID, err)
	}
	end, err := daterange.FromDateKey(b.EndDate)
	if err != nil {
		return reservation.Blackout{}, fmt.Errorf("blackout %s: %w", b.ID, err)
	}
	return reservation.Blackout{ID: b.ID, SiteID: reservation.SiteID(b.SiteID), Start: start, End: end, Reason: b.Reason}, nil
}

// AvailableSites implements getAvailability.
func (c *Client) AvailableSites(ctx context.Context, campgroundID string, dr daterange.DateRange) ([]reservation.Site, error) {
	q := url.Values{}
	q.Set("arrivalDate", dr.ArrivalKey())
	q.Set("departureDate", dr.DepartureKey())
	var sites []siteDTO
	if err := c.do(ctx, "availability", http.MethodGet, campgroundPath(campgroundID, "/availability"), q, nil, &sites); err != nil {
		return nil, err
	}
	out := make([]reservation.Site, 0, len(sites))
	for _, s := range sites {
		out = append(out, s.toDomain())
	}
	return out, nil
}

type overlapRequest struct {
	rangePayload
	IgnoreReservationID string `json:"ignoreReservationId,omitempty"`
}

type overlapResponse struct {
	Conflict bool `json:"conflict"`
}

// CheckOverlap implements checkOverlap.
func (c *Client) CheckOverlap(ctx context.Context, campgroundID string, req policies.OverlapRequest) (bool, error) {
	var resp overlapResponse
	body := overlapRequest{rangePayload: newRangePayload(req.SiteID, req.Range), IgnoreReservationID: string(req.Exclude)}
	if err := c.do(ctx, "overlap", http.MethodPost, campgroundPath(campgroundID, "/reservations/overlap-check"), nil, body, &resp); err != nil {
		return false, err
	}
	return resp.Conflict, nil
}

type quoteResponse struct {
	Nights            int    `json:"nights"`
	BaseSubtotalCents int64  `json:"baseSubtotalCents"`
	RulesDeltaCents   int64  `json:"rulesDeltaCents"`
	TotalCents        int64  `json:"totalCents"`
	PerNightCents     int64  `json:"perNightCents"`
	Currency          string `json:"currency"`
	DepositRule       string `json:"depositRule"`
}

// Quote implements getQuote.
func (c *Client) Quote(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange) (pricing.Quote, error) {
	var resp quoteResponse
	if err := c.do(ctx, "quote", http.MethodPost, campgroundPath(campgroundID, "/quote"), nil, newRangePayload(site, dr), &resp); err != nil {
		return pricing.Quote{}, err
	}
	currency := resp.Currency
	if currency == "" {
		currency = money.DefaultCurrency
	}
	mk := func(v int64) (money.Money, error) { return money.New(v, currency) }
	base, err := mk(resp.BaseSubtotalCents)
	if err != nil {
		return pricing.Quote{}, err
	}
	rules, _ := mk(resp.RulesDeltaCents)
	total, _ := mk(resp.TotalCents)
	perNight, _ := mk(resp.PerNightCents)
	return pricing.Quote{
		Nights:       resp.Nights,
		BaseSubtotal: base,
		RulesDelta:   rules,
		Total:        total,
		PerNight:     perNight,
		DepositRule:  pricing.DepositRule(resp.DepositRule),
	}, nil
}

type calendarResponse struct {
	Sites        []siteDTO        `json:"sites"`
	Reservations []reservationDTO `json:"reservations"`
	Blackouts    []blackoutDTO    `json:"blackouts"`
}

// Inventory loads the sites, reservations and blackouts touching window.
// Malformed rows are skipped and logged so one bad record cannot blank the
// board.
func (c *Client) Inventory(ctx context.Context, campgroundID string, window daterange.DateRange) (reservation.Inventory, error) {
	q := url.Values{}
	q.Set("startDate", window.ArrivalKey())
	q.Set("endDate", window.DepartureKey())
	var resp calendarResponse
	if err := c.do(ctx, "inventory", http.MethodGet, campgroundPath(campgroundID, "/calendar"), q, nil, &resp); err != nil {
		return reservation.Inventory{}, err
	}

	inv := reservation.Inventory{
		Sites:        make([]reservation.Site, 0, len(resp.Sites)),
		Reservations: make([]reservation.Reservation, 0, len(resp.Reservations)),
		Blackouts:    make([]reservation.Blackout, 0, len(resp.Blackouts)),
	}
	for _, s := range resp.Sites {
		inv.Sites = append(inv.Sites, s.toDomain())
	}
	for _, r := range resp.Reservations {
		res, err := r.toDomain()
		if err != nil {
			c.logError(ctx, "skipping malformed reservation", err)
			continue
		}
		inv.Reservations = append(inv.Reservations, res)
	}
	for _, b := range resp.Blackouts {
		bo, err := b.toDomain()
		if err != nil {
			c.logError(ctx, "skipping malformed blackout", err)
			continue
		}
		inv.Blackouts = append(inv.Blackouts, bo)
	}
	return inv, nil
}

// UpdateReservation implements updateReservation for moves, extensions and
// site reassignment alike.
func (c *Client) UpdateReservation(ctx context.Context, id reservation.ID, site reservation.SiteID, dr daterange.DateRange) (reservation.Reservation, error) {
	var resp reservationDTO
	if err := c.do(ctx, "update reservation", http.MethodPatch, "/reservations/"+url.PathEscape(string(id)), nil, newRangePayload(site, dr), &resp); err != nil {
		return reservation.Reservation{}, err
	}
	if resp.ID == "" {
		return reservation.Reservation{ID: id, SiteID: site, Range: dr}, nil
	}
	return resp.toDomain()
}

type segmentDTO struct {
	SiteID    string `json:"siteId"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// SplitReservation implements splitReservation.
func (c *Client) SplitReservation(ctx context.Context, id reservation.ID, segments []reservation.Segment) error {
	body := struct {
		Segments []segmentDTO `json:"segments"`
	}{Segments: make([]segmentDTO, 0, len(segments))}
	for _, s := range segments {
		body.Segments = append(body.Segments, segmentDTO{SiteID: string(s.SiteID), StartDate: s.Range.ArrivalKey(), EndDate: s.Range.DepartureKey()})
	}
	return c.do(ctx, "split reservation", http.MethodPost, "/reservations/"+url.PathEscape(string(id))+"/split", nil, body, nil)
}

type holdRequest struct {
	rangePayload
	HoldMinutes int `json:"holdMinutes"`
}

type holdResponse struct {
	ID            string    `json:"id"`
	SiteID        string    `json:"siteId"`
	ArrivalDate   string    `json:"arrivalDate"`
	DepartureDate string    `json:"departureDate"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// CreateHold implements createHold.
func (c *Client) CreateHold(ctx context.Context, campgroundID string, site reservation.SiteID, dr daterange.DateRange, minutes int) (reservation.Hold, error) {
	var resp holdResponse
	body := holdRequest{rangePayload: newRangePayload(site, dr), HoldMinutes: minutes}
	if err := c.do(ctx, "create hold", http.MethodPost, campgroundPath(campgroundID, "/holds"), nil, body, &resp); err != nil {
		return reservation.Hold{}, err
	}
	hold := reservation.Hold{ID: resp.ID, SiteID: site, Range: dr, ExpiresAt: resp.ExpiresAt}
	if resp.SiteID != "" {
		hold.SiteID = reservation.SiteID(resp.SiteID)
	}
	if got, err := daterange.Parse(resp.ArrivalDate, resp.DepartureDate); err == nil {
		hold.Range = got
	}
	return hold, nil
}
