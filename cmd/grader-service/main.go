package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/common/http/middleware"
	"codearena/internal/common/mq"
	"codearena/internal/common/storage"
	"codearena/internal/grader/controller"
	"codearena/internal/grader/evaluator"
	"codearena/internal/grader/feedback"
	"codearena/internal/grader/repository"
	"codearena/internal/grader/runtime"
	"codearena/internal/grader/sandbox"
	"codearena/internal/grader/service"
	"codearena/internal/leaderboard"
	"codearena/pkg/utils/logger"

	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/grader_service.yaml", "path to config file")
	flag.Parse()

	cfg, err := loadAppConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}

	if err := logger.Init(cfg.Logger); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.NewMySQLWithConfig(&cfg.Database)
	if err != nil {
		logger.Fatal(ctx, "connect database failed", zap.Error(err))
	}
	defer database.Close()
	if err := database.Ping(ctx); err != nil {
		logger.Fatal(ctx, "ping database failed", zap.Error(err))
	}

	var submissionCache cache.Cache
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCacheWithConfig(&cfg.Redis.RedisConfig)
		if err != nil {
			logger.Fatal(ctx, "connect redis failed", zap.Error(err))
		}
		defer redisCache.Close()
		submissionCache = redisCache
	}

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := mq.NewKafkaProducer(cfg.Kafka.KafkaConfig)
		if err != nil {
			logger.Fatal(ctx, "init kafka producer failed", zap.Error(err))
		}
		defer producer.Close()
		publisher = service.NewResolvedEventPublisher(producer)
	}

	var archiver service.Archiver
	if cfg.MinIO.Enabled {
		store, err := storage.NewMinIOStorage(cfg.MinIO.MinIOConfig)
		if err != nil {
			logger.Fatal(ctx, "init object storage failed", zap.Error(err))
		}
		sourceArchiver, err := service.NewSourceArchiver(store, cfg.MinIO.Bucket)
		if err != nil {
			logger.Fatal(ctx, "init source archiver failed", zap.Error(err))
		}
		archiver = sourceArchiver
	}

	var explainer feedback.Explainer
	if cfg.Feedback.Enabled {
		client, err := feedback.NewClient(cfg.Feedback.Config)
		if err != nil {
			logger.Fatal(ctx, "init feedback client failed", zap.Error(err))
		}
		explainer = client
	}

	registry := runtime.NewRegistry(cfg.Languages)
	runner := sandbox.NewProcessRunner(cfg.Runner.MaxOutputBytes)
	eval, err := evaluator.New(evaluator.Config{
		Registry:         registry,
		Runner:           runner,
		WorkRoot:         cfg.Runner.WorkRoot,
		CompileTimeLimit: cfg.Evaluator.CompileTimeLimit,
	})
	if err != nil {
		logger.Fatal(ctx, "init evaluator failed", zap.Error(err))
	}

	submissionRepo := repository.NewSubmissionRepository(database, submissionCache)
	questionRepo := repository.NewQuestionRepository(database)
	eventRepo := repository.NewEventRepository(database)

	grader, err := service.NewGraderService(service.Config{
		Submissions:     submissionRepo,
		Questions:       questionRepo,
		Registry:        registry,
		Evaluator:       eval,
		Explainer:       explainer,
		Publisher:       publisher,
		Archiver:        archiver,
		PoolSize:        cfg.Evaluator.PoolSize,
		FeedbackTimeout: cfg.Evaluator.FeedbackTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "init grader service failed", zap.Error(err))
	}

	aggregator := leaderboard.NewAggregator(eventRepo, questionRepo, submissionRepo)

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.TraceContextMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		if err := database.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	ctl := controller.NewGraderController(grader, aggregator)
	ctl.RegisterRoutes(router.Group("/api/v1"))

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info(ctx, "grader service listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown failed", zap.Error(err))
	}
	// Let in-flight evaluations settle so no submission is stranded pending.
	if err := grader.Shutdown(shutdownCtx); err != nil {
		logger.Warn(shutdownCtx, "evaluations still running at shutdown", zap.Error(err))
	}
}
