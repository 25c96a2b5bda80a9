package routes

import (
	"time"

	"linkinbio-service/internal/api/handlers"
	"linkinbio-service/internal/api/middleware"
	"linkinbio-service/internal/services"
	"linkinbio-service/internal/websocket"

	_ "linkinbio-service/docs"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Dependencies are the collaborators the HTTP surface is built from.
// ImageStore, RateLimiter, Gatherer and HealthChecks are optional.
type Dependencies struct {
	Auth           services.Authenticator
	PostService    *services.PostService
	WSServer       *websocket.Server
	ImageStore     handlers.ImageStore
	RateLimiter    middleware.RateLimiter
	Gatherer       prometheus.Gatherer
	HealthChecks   []handlers.HealthCheck
	AllowedOrigins []string
	WebsocketPath  string
	RateLimit      int
	RateWindow     time.Duration
}

type Router struct {
	engine        *gin.Engine
	deps          Dependencies
	postHandler   *handlers.PostHandler
	imageHandler  *handlers.ImageHandler
	wsHandler     *handlers.WSHandler
	healthHandler *handlers.HealthHandler
	rateLimitMW   *middleware.RateLimitMiddleware
	authMW        *middleware.AuthMiddleware
}

func NewRouter(deps Dependencies) *Router {
	if deps.WebsocketPath == "" {
		deps.WebsocketPath = "/updates"
	}

	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi())

	r := &Router{
		engine:        engine,
		deps:          deps,
		postHandler:   handlers.NewPostHandler(deps.PostService),
		wsHandler:     handlers.NewWSHandler(deps.WSServer),
		healthHandler: handlers.NewHealthHandler(deps.HealthChecks...),
		rateLimitMW:   middleware.NewRateLimitMiddleware(deps.RateLimiter),
		authMW:        middleware.NewAuthMiddleware(deps.Auth),
	}
	if deps.ImageStore != nil {
		r.imageHandler = handlers.NewImageHandler(deps.ImageStore)
	}
	return r
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.healthHandler.Health)
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if r.deps.Gatherer != nil {
		r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// Credentials travel inside the subscribe message, not on the upgrade
	r.engine.GET(r.deps.WebsocketPath,
		r.rateLimitMW.RateLimitIP(r.deps.RateLimit, r.deps.RateWindow),
		r.wsHandler.HandleWebSocket,
	)

	// Authenticated routes
	api := r.engine.Group("/")
	api.Use(r.authMW.RequireAuth())
	api.Use(r.rateLimitMW.RateLimit(r.deps.RateLimit, r.deps.RateWindow))
	{
		r.postHandler.RegisterRoutes(api)
		if r.imageHandler != nil {
			r.imageHandler.RegisterRoutes(api)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
