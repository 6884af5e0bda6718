package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/money"
	"campcal/internal/infra/storage/memory"
)

func TestLoadFixturesSkipsInvalidRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calendar.json")
	body := `{
		"sites": [{"id": "A1"}, {"id": "A2", "name": "Lakeside"}],
		"reservations": [
			{"id": "r1", "site_id": "A1", "arrival_date": "2024-01-01", "departure_date": "2024-01-03", "status": "confirmed"},
			{"id": "bad", "site_id": "A1", "arrival_date": "2024-01-05", "departure_date": "2024-01-05"}
		],
		"blackouts": [
			{"id": "b1", "start_date": "2024-01-10", "end_date": "2024-01-11", "reason": "storm"},
			{"id": "b2", "start_date": "2024-01-12", "end_date": "2024-01-11"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cg := memory.NewCampground("cg", pricing.RateCard{Nightly: money.Must(1000, "USD")})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, loadFixtures(path, cg, logger))

	inv, err := cg.Inventory(context.Background(), "cg", daterange.MustParse("2024-01-01", "2024-01-31"))
	require.NoError(t, err)
	assert.Len(t, inv.Sites, 2)
	require.Len(t, inv.Reservations, 1)
	assert.Equal(t, reservation.StatusConfirmed, inv.Reservations[0].Status)
	require.Len(t, inv.Blackouts, 1)
	assert.True(t, inv.Blackouts[0].ParkWide())
}

func TestLoadFixturesMissingFile(t *testing.T) {
	cg := memory.NewCampground("cg", pricing.RateCard{})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	assert.NoError(t, loadFixtures(filepath.Join(t.TempDir(), "none.json"), cg, logger))
}
