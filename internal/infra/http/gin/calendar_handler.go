package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"campcal/internal/app/calendar"
	"campcal/internal/app/gate"
	"campcal/internal/app/middleware"
	"campcal/internal/domain/drag"
	"campcal/internal/domain/grid"
	"campcal/internal/domain/reservation"
	"campcal/internal/domain/shared/daterange"
	"campcal/internal/infra/datalayer"
	"campcal/internal/infra/session"
)

// EngineFactory builds the engine behind a new session.
type EngineFactory func(cfg calendar.Config) *calendar.Engine

type CalendarHandler struct {
	Sessions     *session.Registry
	NewEngine    EngineFactory
	CampgroundID string
	WindowDays   int
	HoldMinutes  int
	Now          func() time.Time
	Logger       *slog.Logger
}

type createSessionRequest struct {
	CampgroundID string `json:"campground_id"`
	Start        string `json:"start"`
	Days         int    `json:"days"`
	CanMutate    bool   `json:"can_mutate"`
}

type pointerDownRequest struct {
	Kind          string `json:"kind" binding:"required"`
	SiteID        string `json:"site_id" binding:"required"`
	Index         *int   `json:"index" binding:"required"`
	ReservationID string `json:"reservation_id"`
}

type pointerMoveRequest struct {
	SiteID string `json:"site_id" binding:"required"`
	Index  *int   `json:"index" binding:"required"`
}

// pointerUpRequest leaves SiteID empty when the pointer was released
// outside the grid.
type pointerUpRequest struct {
	SiteID string `json:"site_id"`
	Index  int    `json:"index"`
}

type confirmRequest struct {
	Path string `json:"path" binding:"required"`
}

type splitRequest struct {
	ReservationID string `json:"reservation_id" binding:"required"`
	At            string `json:"at" binding:"required"`
	TargetSiteID  string `json:"target_site_id"`
}

type fastSpanResponse struct {
	Writes uint64              `json:"writes"`
	Span   *calendar.SpanWrite `json:"span,omitempty"`
}

func (h CalendarHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondWithError(c, http.StatusBadRequest, err)
			return
		}
	}
	if h.NewEngine == nil || h.Sessions == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("calendar sessions unavailable"))
		return
	}

	today := daterange.Normalize(h.now())
	start := today
	if raw := strings.TrimSpace(req.Start); raw != "" {
		parsed, err := daterange.FromDateKey(raw)
		if err != nil {
			h.respondWithError(c, http.StatusBadRequest, err)
			return
		}
		start = parsed
	}
	days := req.Days
	if days == 0 {
		days = h.WindowDays
	}
	window, err := grid.NewWindow(start, days)
	if err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	campground := strings.TrimSpace(req.CampgroundID)
	if campground == "" {
		campground = h.CampgroundID
	}

	engine := h.NewEngine(calendar.Config{
		SessionID:    uuid.NewString(),
		CampgroundID: campground,
		Window:       window,
		CanMutate:    req.CanMutate,
		HoldMinutes:  h.HoldMinutes,
		Today:        today,
	})
	h.Sessions.Put(engine)
	c.JSON(http.StatusCreated, engine.View().DTO())
}

func (h CalendarHandler) GetSession(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, engine.View().DTO())
}

func (h CalendarHandler) DeleteSession(c *gin.Context) {
	if !h.Sessions.Delete(c.Param("id")) {
		h.handleError(c, session.ErrSessionNotFound)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h CalendarHandler) Grid(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	result, err := engine.Grid(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CalendarHandler) PointerDown(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	var req pointerDownRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	kind, valid := drag.ParseTargetKind(req.Kind)
	if !valid {
		h.respondWithError(c, http.StatusBadRequest, drag.ErrInvalidTarget)
		return
	}
	snap, err := engine.PointerDown(c.Request.Context(), calendar.Pointer{
		Kind:          kind,
		SiteID:        reservation.SiteID(req.SiteID),
		Index:         *req.Index,
		ReservationID: reservation.ID(req.ReservationID),
	})
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h CalendarHandler) PointerMove(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	var req pointerMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	if err := engine.PointerMove(reservation.SiteID(req.SiteID), *req.Index); err != nil {
		h.handleError(c, err)
		return
	}
	fast := engine.FastSpan()
	c.JSON(http.StatusOK, fastSpanResponse{Writes: fast.Writes(), Span: fast.Load()})
}

func (h CalendarHandler) PointerUp(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	var req pointerUpRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.respondWithError(c, http.StatusBadRequest, err)
			return
		}
	}
	var at *calendar.Cell
	if req.SiteID != "" {
		at = &calendar.Cell{SiteID: reservation.SiteID(req.SiteID), Index: req.Index}
	}
	view, err := engine.PointerUp(c.Request.Context(), at)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, view.DTO())
}

func (h CalendarHandler) PointerCancel(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": engine.CancelDrag()})
}

func (h CalendarHandler) ClearSelection(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, engine.ClearSelection().DTO())
}

func (h CalendarHandler) Hold(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	view, err := engine.Hold(c.Request.Context())
	h.respondView(c, view, err)
}

func (h CalendarHandler) CreateReservation(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	view, err := engine.CreateReservation(c.Request.Context())
	h.respondView(c, view, err)
}

func (h CalendarHandler) ConfirmPending(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	view, err := engine.ConfirmPending(c.Request.Context(), strings.TrimSpace(req.Path))
	h.respondView(c, view, err)
}

func (h CalendarHandler) CancelPending(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	view, cancelled := engine.CancelPending()
	if !cancelled {
		h.handleError(c, gate.ErrNothingPending)
		return
	}
	c.JSON(http.StatusOK, view.DTO())
}

func (h CalendarHandler) Split(c *gin.Context) {
	engine, ok := h.engine(c)
	if !ok {
		return
	}
	var req splitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	at, err := daterange.FromDateKey(strings.TrimSpace(req.At))
	if err != nil {
		h.respondWithError(c, http.StatusBadRequest, err)
		return
	}
	view, err := engine.Split(c.Request.Context(), reservation.ID(req.ReservationID), at, reservation.SiteID(req.TargetSiteID))
	h.respondView(c, view, err)
}

func (h CalendarHandler) engine(c *gin.Context) (*calendar.Engine, bool) {
	if h.Sessions == nil {
		h.respondWithError(c, http.StatusServiceUnavailable, errors.New("calendar sessions unavailable"))
		return nil, false
	}
	engine, err := h.Sessions.Get(c.Param("id"))
	if err != nil {
		h.handleError(c, err)
		return nil, false
	}
	return engine, true
}

// respondView answers with the view even when the action failed, so the
// board can show the error next to its unchanged state.
func (h CalendarHandler) respondView(c *gin.Context, view calendar.View, err error) {
	if err == nil {
		c.JSON(http.StatusOK, view.DTO())
		return
	}
	status := statusFor(err)
	h.logFailure(c, status, err)
	body := gin.H{"error": err.Error(), "view": view.DTO()}
	var b *gate.BlockedError
	if errors.As(err, &b) {
		body["reason"] = string(b.Reason)
		body["message"] = b.Message
	}
	c.JSON(status, body)
}

func (h CalendarHandler) handleError(c *gin.Context, err error) {
	status := statusFor(err)
	var b *gate.BlockedError
	if errors.As(err, &b) {
		h.logFailure(c, status, err)
		c.JSON(status, gin.H{"error": err.Error(), "reason": string(b.Reason), "message": b.Message})
		return
	}
	h.respondWithError(c, status, err)
}

func statusFor(err error) int {
	var (
		b          *gate.BlockedError
		mutation   *gate.MutationError
		validation *middleware.ValidationError
	)
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, calendar.ErrUnknownPill),
		errors.Is(err, reservation.ErrReservationNotFound):
		return http.StatusNotFound
	case errors.Is(err, gate.ErrNotPermitted):
		return http.StatusForbidden
	case errors.As(err, &b):
		return http.StatusUnprocessableEntity
	case errors.As(err, &mutation):
		if errors.Is(err, datalayer.ErrRejected) || !mutation.Retryable() {
			return http.StatusConflict
		}
		return http.StatusBadGateway
	case errors.Is(err, gate.ErrPendingOpen),
		errors.Is(err, gate.ErrBusy),
		errors.Is(err, gate.ErrNothingPending),
		errors.Is(err, gate.ErrWrongPath),
		errors.Is(err, calendar.ErrNoSelection),
		errors.Is(err, calendar.ErrStillLoading):
		return http.StatusConflict
	case errors.As(err, &validation),
		errors.Is(err, calendar.ErrConfirmPath),
		errors.Is(err, drag.ErrInvalidTarget),
		errors.Is(err, grid.ErrOutOfWindow),
		errors.Is(err, grid.ErrInvalidWindow),
		errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, daterange.ErrInvalidKey),
		errors.Is(err, reservation.ErrInvalidSegments):
		return http.StatusBadRequest
	case errors.Is(err, datalayer.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h CalendarHandler) respondWithError(c *gin.Context, status int, err error) {
	h.logFailure(c, status, err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h CalendarHandler) logFailure(c *gin.Context, status int, err error) {
	if h.Logger == nil {
		return
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.Logger.Log(c.Request.Context(), level, "calendar request failed",
		"status", status, "error", err, "path", c.FullPath(), "session_id", c.Param("id"))
}

func (h CalendarHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

var _ CalendarHTTP = CalendarHandler{}
