package router

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/Thykp/SPM-Team2-sub002/internal/handler"
	"github.com/Thykp/SPM-Team2-sub002/internal/middleware"
)

// Handler registers its routes on the shared group.
type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Config struct {
	RateLimit  rate.Limit
	RateBurst  int
	CORSConfig middleware.CORSConfig
}

func DefaultConfig() Config {
	return Config{
		RateLimit:  100,
		RateBurst:  200,
		CORSConfig: middleware.DefaultCORSConfig(),
	}
}

type Router struct {
	engine        *gin.Engine
	notificationH Handler
	h             *handler.Handler
	config        Config
}

func NewRouter(notificationH Handler, h *handler.Handler, config Config) *Router {
	gin.SetMode(gin.ReleaseMode)

	return &Router{
		engine:        gin.New(),
		notificationH: notificationH,
		h:             h,
		config:        config,
	}
}

func (r *Router) Setup() {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:  r.config.RateLimit,
		Burst: r.config.RateBurst,
	})

	r.engine.Use(
		middleware.RequestID(),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(r.config.CORSConfig),
		limiter.RateLimit(),
	)

	r.engine.GET("/healthz", r.h.HealthCheck)
	r.engine.GET("/metrics", r.h.MetricsHandler)

	api := r.engine.Group("/")
	r.notificationH.RegisterRoutes(api)
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
