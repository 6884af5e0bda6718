package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/infra/storage/memory"
)

type fixtureFile struct {
	Sites        []fixtureSite        `json:"sites"`
	Reservations []fixtureReservation `json:"reservations"`
	Blackouts    []fixtureBlackout    `json:"blackouts"`
}

type fixtureSite struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SiteClassID string `json:"site_class_id"`
}

type fixtureReservation struct {
	ID         string `json:"id"`
	SiteID     string `json:"site_id"`
	Arrival    string `json:"arrival_date"`
	Departure  string `json:"departure_date"`
	Status     string `json:"status"`
	Guest      string `json:"guest_last_name"`
	TotalCents int64  `json:"total_cents"`
	PaidCents  int64  `json:"paid_cents"`
	SiteLocked bool   `json:"site_locked"`
}

type fixtureBlackout struct {
	ID     string `json:"id"`
	SiteID string `json:"site_id"`
	Start  string `json:"start_date"`
	End    string `json:"end_date"`
	Reason string `json:"reason"`
}

// loadFixtures seeds the in-process campground. Invalid rows are logged and
// skipped.
func loadFixtures(path string, cg *memory.Campground, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("calendar fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fx fixtureFile
	if err := json.Unmarshal(data, &fx); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	for _, s := range fx.Sites {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		cg.AddSite(reservation.Site{ID: reservation.SiteID(s.ID), Name: name, SiteClassID: s.SiteClassID})
	}
	for _, r := range fx.Reservations {
		dr, err := daterange.Parse(r.Arrival, r.Departure)
		if err != nil {
			logger.Error("fixture reservation invalid", "reservation_id", r.ID, "error", err)
			continue
		}
		cg.AddReservation(reservation.Reservation{
			ID:         reservation.ID(r.ID),
			SiteID:     reservation.SiteID(r.SiteID),
			Range:      dr,
			Status:     reservation.ParseStatus(r.Status),
			Guest:      reservation.Guest{LastName: r.Guest},
			TotalCents: r.TotalCents,
			PaidCents:  r.PaidCents,
			SiteLocked: r.SiteLocked,
		})
	}
	for _, b := range fx.Blackouts {
		start, err := daterange.FromDateKey(b.Start)
		if err != nil {
			logger.Error("fixture blackout invalid", "blackout_id", b.ID, "error", err)
			continue
		}
		end, err := daterange.FromDateKey(b.End)
		if err != nil || end.Before(start) {
			logger.Error("fixture blackout invalid", "blackout_id", b.ID, "error", err)
			continue
		}
		cg.AddBlackout(reservation.Blackout{ID: b.ID, SiteID: reservation.SiteID(b.SiteID), Start: start, End: end, Reason: b.Reason})
	}
	logger.Info("calendar fixtures imported",
		"sites", len(fx.Sites), "reservations", len(fx.Reservations), "blackouts", len(fx.Blackouts))
	return nil
}
