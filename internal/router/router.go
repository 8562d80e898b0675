package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/booking-api/internal/middleware"
	"github.com/jwalitptl/booking-api/pkg/logger"
	"github.com/jwalitptl/booking-api/pkg/metrics"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type AdminHandler interface {
	RegisterAdminRoutes(*gin.RouterGroup)
}

type RootHandler interface {
	RegisterRoutes(gin.IRoutes)
}

// Handlers groups everything the router mounts.
type Handlers struct {
	Availability interface {
		Handler
		AdminHandler
	}
	Catalog     Handler
	Appointment Handler
	Admin       Handler
	Health      RootHandler
	Metrics     RootHandler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	// RedisLimiter, when set, replaces the per-process limiter.
	RedisLimiter   *middleware.RedisRateLimiter
	CORSConfig     middleware.CORSConfig
	RequestTimeout time.Duration
	MaxBodySize    int64
	AdminToken     string
}

type Router struct {
	engine   *gin.Engine
	handlers Handlers
	config   RouterConfig
}

func NewRouter(handlers Handlers, log *logger.Logger, m *metrics.Metrics, config RouterConfig) *Router {
	engine := gin.New()

	if config.MaxBodySize <= 0 {
		config.MaxBodySize = middleware.DefaultSizeLimitConfig().MaxBodySize
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = middleware.DefaultTimeoutConfig().Duration
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.Metrics(m),
		middleware.ErrorHandler(log),
		middleware.SecurityHeaders(),
		middleware.CORS(config.CORSConfig),
	)

	return &Router{
		engine:   engine,
		handlers: handlers,
		config:   config,
	}
}

func (r *Router) Setup() {
	r.handlers.Health.RegisterRoutes(r.engine)
	r.handlers.Metrics.RegisterRoutes(r.engine)

	api := r.engine.Group("/api/v1")
	api.Use(
		middleware.SizeLimit(middleware.SizeLimitConfig{MaxBodySize: r.config.MaxBodySize}),
		middleware.Timeout(middleware.TimeoutConfig{Duration: r.config.RequestTimeout}),
	)
	if r.config.RateLimitEnabled {
		if r.config.RedisLimiter != nil {
			api.Use(r.config.RedisLimiter.RateLimit())
		} else {
			limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
				Rate:  r.config.RateLimit,
				Burst: r.config.RateBurst,
			})
			api.Use(limiter.RateLimit())
		}
	}

	r.setupPublicRoutes(api)

	admin := api.Group("/admin")
	admin.Use(middleware.AdminGuard(r.config.AdminToken))
	r.setupAdminRoutes(admin)
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	r.handlers.Availability.RegisterRoutes(rg)
	r.handlers.Catalog.RegisterRoutes(rg)
	r.handlers.Appointment.RegisterRoutes(rg)
}

func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	r.handlers.Availability.RegisterAdminRoutes(rg)
	r.handlers.Admin.RegisterRoutes(rg)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
