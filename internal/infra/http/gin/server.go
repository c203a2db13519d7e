package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentbox/internal/infra/config"
	"rentbox/internal/infra/obs"
)

type AvailabilityHTTP interface {
	Get(c *gin.Context)
}

type ReservationHTTP interface {
	Create(c *gin.Context)
	ByPaymentReference(c *gin.Context)
}

type WebhookHTTP interface {
	Stripe(c *gin.Context)
	Payments(c *gin.Context)
}

type AdminHTTP interface {
	Login(c *gin.Context)
	Reservations(c *gin.Context)
	BlockedDates(c *gin.Context)
	AddBlockedDate(c *gin.Context)
	RemoveBlockedDate(c *gin.Context)
}

// Handlers groups the route handlers. A nil group leaves its routes unregistered.
type Handlers struct {
	Availability AvailabilityHTTP
	Reservations ReservationHTTP
	Webhooks     WebhookHTTP
	Admin        AdminHTTP
	// AdminAuth guards every admin route except login.
	AdminAuth gin.HandlerFunc
	// CreateLimit and LoginLimit throttle abusive clients; nil disables them.
	CreateLimit gin.HandlerFunc
	LoginLimit  gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.Tracing())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: allowOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"Retry-After",
		},
		MaxAge: 12 * time.Hour,
	}))

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)

	api := router.Group("/api/v1")
	if h.Availability != nil {
		api.GET("/availability", h.Availability.Get)
	}
	if h.Reservations != nil {
		api.POST("/reservations", optional(h.CreateLimit), h.Reservations.Create)
		api.GET("/reservations/by-payment/:reference", h.Reservations.ByPaymentReference)
	}
	if h.Webhooks != nil {
		api.POST("/webhooks/stripe", h.Webhooks.Stripe)
		api.POST("/webhooks/payments", h.Webhooks.Payments)
	}
	if h.Admin != nil {
		api.POST("/admin/login", optional(h.LoginLimit), h.Admin.Login)
		admin := api.Group("/admin", optional(h.AdminAuth))
		admin.GET("/reservations", h.Admin.Reservations)
		admin.GET("/blocked-dates", h.Admin.BlockedDates)
		admin.POST("/blocked-dates", h.Admin.AddBlockedDate)
		admin.DELETE("/blocked-dates/:date", h.Admin.RemoveBlockedDate)
	}
	return router
}

func optional(h gin.HandlerFunc) gin.HandlerFunc {
	if h == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return h
}

func allowOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
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
