package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	importapp "github.com/brandinglab/backend/internal/application/importing"
	shippingapp "github.com/brandinglab/backend/internal/application/shipping"
	"github.com/brandinglab/backend/internal/infrastructure/cache"
	"github.com/brandinglab/backend/internal/infrastructure/config"
	"github.com/brandinglab/backend/internal/infrastructure/crm"
	"github.com/brandinglab/backend/internal/infrastructure/eventbus"
	"github.com/brandinglab/backend/internal/infrastructure/labeling"
	"github.com/brandinglab/backend/internal/infrastructure/logger"
	"github.com/brandinglab/backend/internal/infrastructure/notify"
	"github.com/brandinglab/backend/internal/infrastructure/persistence"
	"github.com/brandinglab/backend/internal/infrastructure/queue"
	"github.com/brandinglab/backend/internal/interfaces/http/handler"
	"github.com/brandinglab/backend/internal/interfaces/http/middleware"
	"github.com/brandinglab/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting BrandingLab backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	db, err := persistence.NewDatabase(cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	log.Info("Database connected")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("Redis unreachable at startup", zap.Error(err))
	}

	// Repositories
	jobRepo := persistence.NewImportJobRepository(db)
	templateRepo := persistence.NewMappingTemplateRepository(db)
	labelRepo := persistence.NewLabelRecordRepository(db)
	mergeRepo := persistence.NewMergedOrderRepository(db)
	lockStore := cache.NewRedisLockStore(redisClient)

	// Outbound clients
	crmClient := crm.NewClient(cfg.CRM, log)
	labelClient := labeling.NewClient(cfg.Labeling, log)
	webhooks := notify.NewWebhookNotifier(cfg.Notify, log)
	whatsapp := notify.NewWhatsAppSender(cfg.Notify, log)

	events := eventbus.New(log)

	// Queue-mode imports are optional; without a broker every job runs
	// in-process.
	var rabbit *queue.Rabbit
	var publisher importapp.RowPublisher
	if cfg.Queue.Enabled {
		rabbit, err = queue.Connect(cfg.Queue, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer rabbit.Close()
		publisher = rabbit
		log.Info("Queue mode available", zap.String("queue", cfg.Queue.RowQueue))
	}

	syncFor := func(stageID string) importapp.RowSyncer {
		if stageID == "" {
			stageID = cfg.CRM.DefaultStageID
		}
		return crm.NewSyncContext(crmClient, stageID, log)
	}

	// Application services
	jobService := importapp.NewJobService(jobRepo, lockStore, syncFor, publisher, events, cfg.Import, log)
	templateService := importapp.NewTemplateService(templateRepo, log)
	workstation := shippingapp.NewWorkstationService(
		labelRepo, mergeRepo, labelClient, webhooks, whatsapp, cfg.Labeling, cfg.Notify, log)

	// ConsumeRows blocks until the context is cancelled, so it gets its
	// own goroutine; the server must keep serving HTTP either way.
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if rabbit != nil {
		go func() {
			if err := rabbit.ConsumeRows(consumerCtx, jobService.HandleRowTask); err != nil {
				log.Error("Row consumer stopped", zap.Error(err))
			}
		}()
	}

	// HTTP handlers
	importHandler := handler.NewImportHandler(jobService, templateService)
	templateHandler := handler.NewTemplateHandler(templateService)
	shippingHandler := handler.NewShippingHandler(workstation)
	systemHandler := handler.NewSystemHandler(db, redisClient)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/healthz", systemHandler.Health)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(importHandler).
		Register(templateHandler).
		Register(shippingHandler).
		Register(systemHandler)
	r.Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down")
	stopConsumer()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
	log.Info("Server stopped")
}
