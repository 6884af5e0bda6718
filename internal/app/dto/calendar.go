package dto

import (
	"campcal/internal/domain/grid"
	"campcal/internal/domain/render"
	"campcal/internal/domain/reservation"
)

type Day struct {
	Date      string `json:"date"`
	Index     int    `json:"day_index"`
	IsWeekend bool   `json:"is_weekend"`
	IsToday   bool   `json:"is_today"`
}

type Site struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SiteClassID string `json:"site_class_id,omitempty"`
}

type GridItem struct {
	Layer         string `json:"layer"`
	ZIndex        int    `json:"z_index"`
	SiteID        string `json:"site_id,omitempty"`
	ColumnStart   int    `json:"column_start"`
	ColumnSpan    int    `json:"column_span"`
	ReservationID string `json:"reservation_id,omitempty"`
	BlackoutID    string `json:"blackout_id,omitempty"`
	Status        string `json:"status,omitempty"`
	Label         string `json:"label,omitempty"`
	Conflicted    bool   `json:"conflicted,omitempty"`
	Blocked       bool   `json:"blocked,omitempty"`
	ParkWide      bool   `json:"park_wide,omitempty"`
}

type Conflict struct {
	SiteID       string `json:"site_id"`
	OverlapStart string `json:"overlap_start"`
	OverlapEnd   string `json:"overlap_end"`
	ReservationA string `json:"reservation_a"`
	ReservationB string `json:"reservation_b"`
}

type Grid struct {
	CampgroundID string     `json:"campground_id"`
	Start        string     `json:"start"`
	DayCount     int        `json:"day_count"`
	Days         []Day      `json:"days"`
	Sites        []Site     `json:"sites"`
	Items        []GridItem `json:"items"`
	Conflicts    []Conflict `json:"conflicts"`
}

func MapDays(days []grid.Day) []Day {
	out := make([]Day, 0, len(days))
	for _, d := range days {
		out = append(out, Day{Date: d.Key(), Index: d.Index, IsWeekend: d.IsWeekend, IsToday: d.IsToday})
	}
	return out
}

func MapSites(sites []reservation.Site) []Site {
	out := make([]Site, 0, len(sites))
	for _, s := range sites {
		out = append(out, Site{ID: string(s.ID), Name: s.Name, SiteClassID: s.SiteClassID})
	}
	return out
}

func MapItems(items []render.Item) []GridItem {
	out := make([]GridItem, 0, len(items))
	for _, it := range items {
		out = append(out, GridItem{
			Layer:         it.Layer.String(),
			ZIndex:        int(it.Layer),
			SiteID:        string(it.SiteID),
			ColumnStart:   it.Span.ColumnStart,
			ColumnSpan:    it.Span.ColumnSpan,
			ReservationID: string(it.ReservationID),
			BlackoutID:    it.BlackoutID,
			Status:        string(it.Status),
			Label:         it.Label,
			Conflicted:    it.Conflicted,
			Blocked:       it.Blocked,
			ParkWide:      it.ParkWide,
		})
	}
	return out
}

func MapConflicts(conflicts []reservation.Conflict) []Conflict {
	out := make([]Conflict, 0, len(conflicts))
	for _, c := range conflicts {
		out = append(out, Conflict{
			SiteID:       string(c.SiteID),
			OverlapStart: c.OverlapStart.Format("2006-01-02"),
			OverlapEnd:   c.OverlapEnd.Format("2006-01-02"),
			ReservationA: string(c.A),
			ReservationB: string(c.B),
		})
	}
	return out
}
