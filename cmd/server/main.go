package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	donorapp "github.com/pledgehub/backend/internal/application/donor"
	paymentapp "github.com/pledgehub/backend/internal/application/payment"
	planapp "github.com/pledgehub/backend/internal/application/plan"
	ratesapp "github.com/pledgehub/backend/internal/application/rates"
	"github.com/pledgehub/backend/internal/infrastructure/config"
	"github.com/pledgehub/backend/internal/infrastructure/event"
	"github.com/pledgehub/backend/internal/infrastructure/logger"
	"github.com/pledgehub/backend/internal/infrastructure/persistence"
	"github.com/pledgehub/backend/internal/infrastructure/rates"
	"github.com/pledgehub/backend/internal/infrastructure/scheduler"
	"github.com/pledgehub/backend/internal/interfaces/http/handler"
	"github.com/pledgehub/backend/internal/interfaces/http/middleware"
	"github.com/pledgehub/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting PledgeHub Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed gorm logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Redis is optional; without it the rate cache is process-local
	var redisClient *redis.Client
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Warn("Redis unreachable, rate cache falls back to in-process only", zap.Error(err))
			redisClient = nil
		}
	}

	// Exchange-rate provider
	var rateSource handler.RateSource
	if cfg.Rates.URL != "" {
		fetcher := rates.NewClient(cfg.Rates.URL, cfg.Rates.FetchTimeout, log)
		rateSource = rates.NewCachedProvider(fetcher, redisClient, cfg.Rates.CacheTTL, log)
	} else {
		log.Warn("No rate feed configured, serving static fallback rates")
		rateSource = rates.StaticProvider{}
	}

	// Repositories
	contactRepo := persistence.NewGormContactRepository(db.DB)
	pledgeRepo := persistence.NewGormPledgeRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	planRepo := persistence.NewGormPlanRepository(db.DB)

	// Application services
	eventBus := event.NewInMemoryBus(log)
	eventBus.Subscribe(event.NewAuditLogHandler(log))
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = eventBus.Stop(ctx)
	}()

	contactService := donorapp.NewContactService(contactRepo, pledgeRepo, eventBus, log)
	pledgeService := donorapp.NewPledgeService(pledgeRepo, contactRepo, paymentRepo, planRepo, rateSource, eventBus, log)
	paymentService := paymentapp.NewService(paymentRepo, pledgeRepo, rateSource, eventBus, log)
	planService := planapp.NewService(planRepo, pledgeRepo, paymentService, eventBus, log)
	ratesService := ratesapp.NewService(rateSource, log)

	// Overdue plan sweep
	if cfg.Scheduler.Enabled {
		sweeper, err := scheduler.NewOverdueSweeper(planService.MarkOverduePlans, cfg.Scheduler.SweepInterval, log)
		if err != nil {
			log.Fatal("Failed to create overdue sweeper", zap.Error(err))
		}
		if err := sweeper.Start(context.Background()); err != nil {
			log.Fatal("Failed to start overdue sweeper", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := sweeper.Stop(ctx); err != nil {
				log.Error("Error stopping overdue sweeper", zap.Error(err))
			}
		}()
	}

	// Request validation, including the currency whitelist
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up validator", zap.Error(err))
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Fatal("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	}
	if cfg.HTTP.RateLimitPerMinute > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitPerMinute, time.Minute)
		engine.Use(limiter.Middleware())
	}

	// Routes
	systemHandler := handler.NewSystemHandler(db)
	engine.GET("/health", systemHandler.Health)
	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Register(systemHandler).
		Register(handler.NewRatesHandler(rateSource, ratesService)).
		Register(handler.NewContactHandler(contactService)).
		Register(handler.NewPledgeHandler(pledgeService)).
		Register(handler.NewPaymentHandler(paymentService)).
		Register(handler.NewPlanHandler(planService)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
