package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/pkg/config"
	"github.com/wyfcoding/pkg/database"
	"github.com/wyfcoding/pkg/httpclient"
	"github.com/wyfcoding/pkg/limiter"
	"github.com/wyfcoding/pkg/logging"
	"github.com/wyfcoding/pkg/messagequeue/kafka"
	"github.com/wyfcoding/pkg/metrics"
	"github.com/wyfcoding/pkg/middleware"
	"github.com/wyfcoding/pkg/redis"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/application"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/infrastructure/client"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/infrastructure/messaging"
	"github.com/wyfcoding/quantanalytics/internal/derivatives/infrastructure/persistence/mysql"
	persistence_redis "github.com/wyfcoding/quantanalytics/internal/derivatives/infrastructure/persistence/redis"
	httpserver "github.com/wyfcoding/quantanalytics/internal/derivatives/interfaces/http"
	"golang.org/x/sync/errgroup"
)

var configPath = flag.String("config", "configs/derivatives/config.toml", "config file path")

func main() {
	flag.Parse()

	// 1. Config
	var cfg config.Config
	if err := config.Load(*configPath, &cfg); err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 2. Logger
	logger := logging.NewFromConfig(&logging.Config{
		Service:    cfg.Server.Name,
		Module:     "derivatives",
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	})
	slog.SetDefault(logger.Logger)

	// 3. Metrics
	metricsImpl := metrics.NewMetrics(cfg.Server.Name)
	if cfg.Metrics.Enabled {
		stopMetrics := metricsImpl.ExposeHTTP(cfg.Metrics.Port)
		defer stopMetrics()
	}

	// 4. MySQL
	db, err := database.NewDB(cfg.Data.Database, cfg.CircuitBreaker, logger, metricsImpl)
	if err != nil {
		slog.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	if cfg.Server.Environment == "dev" {
		if err := db.RawDB().AutoMigrate(&mysql.SurfaceSnapshotModel{}); err != nil {
			slog.Error("failed to migrate database", "error", err)
		}
	}

	// 5. Redis
	redisClient, redisCleanup, err := redis.NewClient(&cfg.Data.Redis, logger)
	if err != nil {
		slog.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	defer redisCleanup()

	// 6. Kafka
	producer := kafka.NewProducer(&cfg.MessageQueue.Kafka, logger, metricsImpl)
	defer producer.Close()

	// 7. Repository & Application
	chainGateway := cfg.GetHTTPAddr("marketdata")
	chainHTTP := httpclient.NewFromConfig(cfg.HTTPClient, logger, metricsImpl)
	chainClient := client.NewChainClient(chainHTTP, chainGateway)

	surfaceRepo := mysql.NewSurfaceRepository(db.RawDB())
	surfaceCache := persistence_redis.NewSurfaceCache(redisClient)
	publisher := messaging.NewKafkaEventPublisher(producer)

	svc := application.NewDerivativesService(chainClient, surfaceRepo, surfaceCache, publisher)

	// 8. HTTP
	gin.SetMode(gin.ReleaseMode)
	if cfg.Server.Environment == "dev" {
		gin.SetMode(gin.DebugMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		rateLimiter := limiter.NewRedisLimiter(redisClient, cfg.RateLimit.Rate, cfg.RateLimit.Burst)
		r.Use(middleware.RateLimitWithLimiter(rateLimiter))
	}

	handler := httpserver.NewDerivativesHandler(svc)
	handler.RegisterRoutes(r.Group(""))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   cfg.Server.Name,
			"timestamp": time.Now().Unix(),
		})
	})

	// 9. Start
	g, ctx := errgroup.WithContext(context.Background())

	addr := fmt.Sprintf(":%d", cfg.Server.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: r}

	g.Go(func() error {
		slog.Info("HTTP server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
			slog.Info("shutting down server...")
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down...")
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server exited with error", "error", err)
	}
}
