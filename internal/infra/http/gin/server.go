package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"campcal/internal/infra/config"
	"campcal/internal/infra/obs"
)

type CalendarHTTP interface {
	CreateSession(c *gin.Context)
	GetSession(c *gin.Context)
	DeleteSession(c *gin.Context)
	Grid(c *gin.Context)
	PointerDown(c *gin.Context)
	PointerMove(c *gin.Context)
	PointerUp(c *gin.Context)
	PointerCancel(c *gin.Context)
	ClearSelection(c *gin.Context)
	Hold(c *gin.Context)
	CreateReservation(c *gin.Context)
	ConfirmPending(c *gin.Context)
	CancelPending(c *gin.Context)
	Split(c *gin.Context)
}

type Handlers struct {
	Calendar CalendarHTTP
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// NewRouter builds the gin engine. Pointer moves are not rate limited; every
// other mutating route is.
func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))

	registerSwaggerRoutes(router)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	limited := func(c *gin.Context) { c.Next() }
	if cfg.RateLimitPerSec > 0 {
		limited = NewClientRateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst).Middleware()
	}

	api := router.Group("/api/v1")
	if h.Calendar != nil {
		api.POST("/calendar/sessions", limited, h.Calendar.CreateSession)
		sess := api.Group("/calendar/sessions/:id")
		sess.GET("", h.Calendar.GetSession)
		sess.DELETE("", h.Calendar.DeleteSession)
		sess.GET("/grid", h.Calendar.Grid)
		sess.POST("/pointer/down", h.Calendar.PointerDown)
		sess.POST("/pointer/move", h.Calendar.PointerMove)
		sess.POST("/pointer/up", h.Calendar.PointerUp)
		sess.POST("/pointer/cancel", h.Calendar.PointerCancel)
		sess.DELETE("/selection", h.Calendar.ClearSelection)
		sess.POST("/hold", limited, h.Calendar.Hold)
		sess.POST("/reservations/intent", h.Calendar.CreateReservation)
		sess.POST("/pending/confirm", limited, h.Calendar.ConfirmPending)
		sess.DELETE("/pending", h.Calendar.CancelPending)
		sess.POST("/split", limited, h.Calendar.Split)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
