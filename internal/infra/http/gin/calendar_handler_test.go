package ginserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campcal/internal/app/calendar"
	"campcal/internal/app/commands"
	"campcal/internal/app/handlers/availability"
	"campcal/internal/app/handlers/reservations"
	"campcal/internal/app/queries"
	"campcal/internal/app/quote"
	"campcal/internal/app/resolver"
	"campcal/internal/domain/pricing"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/domain/shared/money"
	"campcal/internal/infra/config"
	"campcal/internal/infra/obs"
	"campcal/internal/infra/session"
	"campcal/internal/infra/storage/memory"
)

func newTestRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	cg := memory.NewCampground("cg-1", pricing.RateCard{Nightly: money.Must(10000, "USD")})
	for _, id := range []reservation.SiteID{"s1", "s2", "s3"} {
		cg.AddSite(reservation.Site{ID: id, Name: string(id)})
	}
	cg.AddReservation(reservation.Reservation{
		ID: "r1", SiteID: "s1", Range: daterange.MustParse("2024-01-01", "2024-01-03"),
		Status: reservation.StatusConfirmed, TotalCents: 20000,
	})

	box := memory.NewOutbox(memory.DefaultOutboxCapacity)
	cmdBus := commands.NewInMemoryBus()
	reservations.Handlers{
		Move:  &reservations.MoveReservationHandler{Reservations: cg, Outbox: box},
		Hold:  &reservations.CreateHoldHandler{Holds: cg, Outbox: box},
		Split: &reservations.SplitReservationHandler{Reservations: cg, Outbox: box},
	}.Register(cmdBus)
	queryBus := queries.NewInMemoryBus()
	availability.Register(queryBus, &availability.GetGridHandler{Inventory: cg})

	deps := calendar.Deps{
		Inventory: cg,
		Resolver:  &resolver.Resolver{Availability: cg, Overlap: cg},
		Quotes:    &quote.Engine{Quotes: cg},
		Commands:  cmdBus,
		Queries:   queryBus,
		Outbox:    box,
	}
	h := CalendarHandler{
		Sessions:     session.NewRegistry(time.Minute, nil),
		NewEngine:    func(c calendar.Config) *calendar.Engine { return calendar.New(c, deps) },
		CampgroundID: "cg-1",
		WindowDays:   14,
		HoldMinutes:  15,
		Now:          func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) },
	}
	cfg.Env = "test"
	return NewRouter(cfg, obs.Middleware{}, obs.HealthHandlers{}, Handlers{Calendar: h})
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func openSession(t *testing.T, r http.Handler, canMutate bool) string {
	t.Helper()
	rec, body := do(t, r, http.MethodPost, "/api/v1/calendar/sessions", gin.H{"start": "2024-01-01", "days": 14, "can_mutate": canMutate})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "cg-1", body["campground_id"])
	assert.EqualValues(t, 14, body["day_count"])
	return body["session_id"].(string)
}

func TestSelectQuoteAndHold(t *testing.T) {
	r := newTestRouter(t, config.Config{})
	base := "/api/v1/calendar/sessions/" + openSession(t, r, true)

	rec, _ := do(t, r, http.MethodPost, base+"/pointer/down", gin.H{"kind": "cell", "site_id": "s2", "index": 4})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, fast := do(t, r, http.MethodPost, base+"/pointer/move", gin.H{"site_id": "s2", "index": 6})
	require.Equal(t, http.StatusOK, rec.Code)
	span := fast["span"].(map[string]any)["span"].(map[string]any)
	assert.EqualValues(t, 4, span["column_start"])
	assert.EqualValues(t, 3, span["column_span"])

	rec, view := do(t, r, http.MethodPost, base+"/pointer/up", gin.H{"site_id": "s2", "index": 6})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sel := view["selection"].(map[string]any)
	assert.Equal(t, "2024-01-05", sel["arrival_date"])
	assert.Equal(t, "2024-01-08", sel["departure_date"])
	assert.EqualValues(t, 30000, sel["quote"].(map[string]any)["total_cents"])

	rec, _ = do(t, r, http.MethodGet, base+"/grid", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, view = do(t, r, http.MethodPost, base+"/hold", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Nil(t, view["selection"])
	assert.Equal(t, "s2", view["last_hold"].(map[string]any)["site_id"])

	rec, _ = do(t, r, http.MethodPost, base+"/hold", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSamePriceMoveCommits(t *testing.T) {
	r := newTestRouter(t, config.Config{})
	base := "/api/v1/calendar/sessions/" + openSession(t, r, true)

	rec, _ := do(t, r, http.MethodPost, base+"/pointer/down", gin.H{"kind": "pill", "site_id": "s1", "index": 0, "reservation_id": "r1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec, view := do(t, r, http.MethodPost, base+"/pointer/up", gin.H{"site_id": "s3", "index": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "committed", view["gate_state"])
	require.NotNil(t, view["last_move"])

	rec, _ = do(t, r, http.MethodPost, base+"/pending/confirm", gin.H{"path": "collect"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec, _ = do(t, r, http.MethodDelete, base+"/pending", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestReadOnlySessionCannotHold(t *testing.T) {
	r := newTestRouter(t, config.Config{})
	base := "/api/v1/calendar/sessions/" + openSession(t, r, false)

	do(t, r, http.MethodPost, base+"/pointer/down", gin.H{"kind": "cell", "site_id": "s2", "index": 4})
	rec, _ := do(t, r, http.MethodPost, base+"/pointer/up", gin.H{"site_id": "s2", "index": 5})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, body := do(t, r, http.MethodPost, base+"/hold", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NotNil(t, body["view"])
}

func TestBadRequests(t *testing.T) {
	r := newTestRouter(t, config.Config{})
	base := "/api/v1/calendar/sessions/" + openSession(t, r, true)

	rec, _ := do(t, r, http.MethodGet, "/api/v1/calendar/sessions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, r, http.MethodPost, base+"/pointer/down", gin.H{"kind": "balloon", "site_id": "s1", "index": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, r, http.MethodPost, base+"/pointer/down", gin.H{"kind": "pill", "site_id": "s1", "index": 0, "reservation_id": "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body := do(t, r, http.MethodPost, base+"/split", gin.H{"reservation_id": "r1", "at": "2024-01-01", "target_site_id": "s2"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "not_movable", body["reason"])

	rec, _ = do(t, r, http.MethodPost, base+"/pending/confirm", gin.H{"path": "later"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = do(t, r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSplitThroughSession(t *testing.T) {
	r := newTestRouter(t, config.Config{})
	base := "/api/v1/calendar/sessions/" + openSession(t, r, true)

	rec, view := do(t, r, http.MethodPost, base+"/split", gin.H{"reservation_id": "r1", "at": "2024-01-02", "target_site_id": "s2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotNil(t, view["last_split"])
}

func TestMutatingRoutesAreRateLimited(t *testing.T) {
	r := newTestRouter(t, config.Config{RateLimitPerSec: 0.001, RateLimitBurst: 1})
	rec, _ := do(t, r, http.MethodPost, "/api/v1/calendar/sessions", nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec, _ = do(t, r, http.MethodPost, "/api/v1/calendar/sessions", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec, _ = do(t, r, http.MethodGet, "/livez", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, r, http.MethodGet, "/swagger/openapi.json", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
