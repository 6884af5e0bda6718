package datalayer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/app/policies"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &Client{BaseURL: srv.URL + "/", HTTP: srv.Client(), Headers: map[string]string{"X-Service": "campcal"}}
}

func TestQuoteRequestShape(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/campgrounds/cg-1/quote", r.URL.Path)
		assert.Equal(t, "campcal", r.Header.Get("X-Service"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"nights":3,"baseSubtotalCents":30000,"rulesDeltaCents":3000,"totalCents":33000,"perNightCents":11000,"depositRule":"first_night"}`))
	})

	dr := daterange.MustParse("2024-01-01", "2024-01-04")
	q, err := c.Quote(context.Background(), "cg-1", "s1", dr)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"siteId": "s1", "arrivalDate": "2024-01-01", "departureDate": "2024-01-04"}, got)
	assert.Equal(t, int64(33000), q.Total.Amount)
	assert.Equal(t, "USD", q.Total.Currency)
	require.NoError(t, q.Validate(dr))
}

func TestOverlapExcludesReservation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "r1", body["ignoreReservationId"])
		_, _ = w.Write([]byte(`{"conflict":true}`))
	})
	conflict, err := c.CheckOverlap(context.Background(), "cg-1", policies.OverlapRequest{
		SiteID:  "s1",
		Range:   daterange.MustParse("2024-01-01", "2024-01-03"),
		Exclude: "r1",
	})
	require.NoError(t, err)
	assert.True(t, conflict)
}

func TestInventorySkipsMalformedRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/campgrounds/cg-1/calendar", r.URL.Path)
		assert.Equal(t, "2024-01-01", r.URL.Query().Get("startDate"))
		_, _ = w.Write([]byte(`{
			"sites":[{"id":"s1","name":"A1"}],
			"reservations":[
				{"id":"r1","siteId":"s1","arrivalDate":"2024-01-02","departureDate":"2024-01-04","status":"checked_in","totalAmount":20000,"guest":{"primaryFirstName":"Ada","primaryLastName":"Park"}},
				{"id":"bad","siteId":"s1","arrivalDate":"2024-01-04","departureDate":"2024-01-04","status":"confirmed"}
			],
			"blackouts":[{"id":"b1","startDate":"2024-01-06","endDate":"2024-01-07","reason":"storm"}]
		}`))
	})
	inv, err := c.Inventory(context.Background(), "cg-1", daterange.MustParse("2024-01-01", "2024-01-15"))
	require.NoError(t, err)
	require.Len(t, inv.Reservations, 1)
	assert.Equal(t, reservation.StatusCheckedIn, inv.Reservations[0].Status)
	assert.Equal(t, "Ada Park", inv.Reservations[0].Guest.DisplayName())
	require.Len(t, inv.Blackouts, 1)
	assert.True(t, inv.Blackouts[0].ParkWide())
}

func TestStatusErrorsWrapSentinels(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/reservations/missing" {
			http.Error(w, "no such reservation", http.StatusNotFound)
			return
		}
		http.Error(w, "site is locked", http.StatusConflict)
	})
	dr := daterange.MustParse("2024-01-01", "2024-01-03")

	_, err := c.UpdateReservation(context.Background(), "missing", "s1", dr)
	assert.ErrorIs(t, err, ErrNotFound)

	err = c.SplitReservation(context.Background(), "r1", []reservation.Segment{{SiteID: "s1", Range: dr}})
	assert.ErrorIs(t, err, ErrRejected)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusConflict, se.Status)
	assert.Contains(t, se.Body, "locked")
}

func TestCreateHold(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.EqualValues(t, 15, body["holdMinutes"])
		_, _ = w.Write([]byte(`{"id":"h1","siteId":"s2","arrivalDate":"2024-01-01","departureDate":"2024-01-02","expiresAt":"2024-01-01T10:15:00Z"}`))
	})
	hold, err := c.CreateHold(context.Background(), "cg-1", "s2", daterange.MustParse("2024-01-01", "2024-01-02"), 15)
	require.NoError(t, err)
	assert.Equal(t, "h1", hold.ID)
	assert.Equal(t, 1, hold.Range.Nights())
	assert.False(t, hold.ExpiresAt.IsZero())
}

func TestUnconfiguredClient(t *testing.T) {
	var c *Client
	_, err := c.AvailableSites(context.Background(), "cg", daterange.MustParse("2024-01-01", "2024-01-02"))
	assert.ErrorIs(t, err, ErrNotConfigured)
}
