package main

// @title           Linkinbio Posts Service API
// @version         1.0
// @description     Link-in-bio post CRUD with real-time updates over websocket
// @host            localhost:8080
// @BasePath        /
// @schemes         http https

// @securityDefinitions.apikey TokenAuth
// @in header
// @name Token
// @description User token resolved to a user id.

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkinbio-service/internal/adapters/kafka"
	"linkinbio-service/internal/adapters/storage"
	"linkinbio-service/internal/api/handlers"
	"linkinbio-service/internal/api/routes"
	"linkinbio-service/internal/config"
	"linkinbio-service/internal/database"
	"linkinbio-service/internal/protocol"
	"linkinbio-service/internal/repositories/memory"
	"linkinbio-service/internal/repositories/postgres"
	"linkinbio-service/internal/services"
	"linkinbio-service/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// Initialize logger
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.LogLevel)})))
	gin.SetMode(gin.ReleaseMode)
	slog.Info("Starting linkinbio server")

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	var healthChecks []handlers.HealthCheck

	// Post store
	var store services.PostStore
	if cfg.Database.Driver == config.DriverMemory {
		slog.Warn("Using in-memory post store, posts are lost on restart")
		store = memory.NewPostRepository()
	} else {
		db, err := database.NewConnection(cfg.Database)
		if err != nil {
			slog.Error("Failed to connect to database", "driver", cfg.Database.Driver, "error", err)
			os.Exit(1)
		}
		defer database.Close(db)

		store = postgres.NewPostRepository(db)
		healthChecks = append(healthChecks, handlers.HealthCheck{
			Name: "database",
			Check: func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		})
	}

	// Metrics
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := websocket.NewMetrics(promRegistry)

	registryOpts := []websocket.RegistryOption{websocket.WithObserver(metrics)}

	// Redis is optional: rate limiting and the session presence mirror
	var redisService *services.RedisService
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisConnection(cfg.Redis)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		redisService = services.NewRedisService(redisClient, cfg.Redis.PresenceTTL)
		registryOpts = append(registryOpts, websocket.WithObserver(redisService))
		go redisService.RunPresence(rootCtx)
		healthChecks = append(healthChecks, handlers.HealthCheck{Name: "redis", Check: redisService.Ping})
	}

	auth, err := services.NewAuthenticator(cfg.Auth)
	if err != nil {
		slog.Error("Failed to initialize authenticator", "error", err)
		os.Exit(1)
	}

	// Update protocol
	sessions := websocket.NewRegistry(registryOpts...)
	hub := websocket.NewHub(sessions, metrics, slog.Default())
	engine := websocket.NewEngine(sessions, auth, protocol.Advice{
		Reconnect: "retry",
		Interval:  cfg.Websocket.AdviceInterval,
		Timeout:   cfg.Websocket.AdviceTimeout,
	}, metrics, slog.Default())
	wsServer := websocket.NewServer(sessions, engine, websocket.ServerConfig{
		SendBuffer:       cfg.Websocket.SendBuffer,
		MaxMessageSize:   cfg.Websocket.MaxMessageSize,
		PingPeriod:       cfg.Websocket.PingPeriod,
		AllowedOrigins:   cfg.Websocket.AllowedOrigins,
		HandshakeTimeout: cfg.Websocket.HandshakeTimeout,
	}, slog.Default())

	publishers := []services.PostEventPublisher{hub}

	// Kafka is optional: mirrors post events to a topic
	if len(cfg.Kafka.Brokers) > 0 {
		syncProducer, err := kafka.InitKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			slog.Error("Failed to create Kafka producer", "brokers", cfg.Kafka.Brokers, "error", err)
			os.Exit(1)
		}
		producer := kafka.NewProducer(syncProducer, cfg.Kafka.Topic, slog.Default())
		defer producer.Close()
		publishers = append(publishers, producer)
	}

	postService := services.NewPostService(store, slog.Default(), publishers...)

	deps := routes.Dependencies{
		Auth:           auth,
		PostService:    postService,
		WSServer:       wsServer,
		Gatherer:       promRegistry,
		HealthChecks:   healthChecks,
		AllowedOrigins: cfg.Websocket.AllowedOrigins,
		WebsocketPath:  cfg.Websocket.Path,
		RateLimit:      cfg.RateLimit.Requests,
		RateWindow:     cfg.RateLimit.Window,
	}
	if redisService != nil {
		deps.RateLimiter = redisService
	}

	// MinIO is optional: post image uploads
	if cfg.MinIO.Endpoint != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		images, err := storage.NewMinIOClient(ctx, cfg.MinIO)
		cancel()
		if err != nil {
			slog.Error("Failed to connect to MinIO", "error", err)
			os.Exit(1)
		}
		deps.ImageStore = images
	}

	router := routes.NewRouter(deps)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr, "websocket", cfg.Websocket.Path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by http.Server
	if err := wsServer.Shutdown(ctx); err != nil {
		slog.Error("Websocket connections did not drain", "error", err)
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
