package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recovery-service/controllers"
	"recovery-service/database"
	"recovery-service/kafka"
	"recovery-service/models"
	aws_pkg "recovery-service/pkg/aws"
	"recovery-service/repository"
	"recovery-service/routes"
	servicepkg "recovery-service/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg := LoadConfig()

	if err := database.Connect(logger); err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close() //nolint:errcheck

	redisClient := database.NewRedisClient(cfg.RedisURL)

	// AWS clients
	var snsClient aws_pkg.SNSPublisher
	if awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background()); awsErr != nil {
		logger.Warn("AWS config unavailable, SNS disabled", zap.Error(awsErr))
	} else {
		snsClient = aws_pkg.NewSNSClient(awsCfg)
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer producer.Close() //nolint:errcheck

	// Repositories and DI chain
	cartRepo := repository.NewGormCartRepository(database.DB)
	storeRepo := repository.NewGormStoreRepository(database.DB)
	catalogRepo := repository.NewGormCatalogRepository(database.DB)

	engineFactory := func(store *models.Store) (servicepkg.RecoveryEngine, error) {
		return servicepkg.NewRecoveryService(store, cartRepo, catalogRepo, producer, logger)
	}

	scanService := servicepkg.NewScanService(
		storeRepo,
		cartRepo,
		engineFactory,
		servicepkg.ScanConfig{
			DormantAfter:  cfg.DormantAfter,
			FollowUpAfter: cfg.FollowUpAfter,
			ExpireAfter:   cfg.ExpireAfter,
		},
		redisClient,
		snsClient,
		cfg.ScanSNSTopicARN,
		logger,
	)
	manager := servicepkg.NewRecoveryManager(cartRepo, storeRepo, engineFactory, redisClient, cfg.StatsCacheTTL, logger)
	recoveryController := controllers.NewRecoveryController(scanService, manager)

	r := gin.New()

	// Global request-logging middleware
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", duration),
		)
	})

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "recovery-service"})
	})

	routes.RegisterRecoveryRoutes(r, recoveryController)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Scheduled scan passes
	scanCtx, stopScans := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cfg.ScanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-scanCtx.Done():
				return
			case <-ticker.C:
				if _, err := scanService.RunScan(scanCtx); err != nil {
					logger.Error("Scheduled scan failed", zap.Error(err))
				}
			}
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Recovery service started",
		zap.String("port", cfg.Port),
		zap.Duration("scan_interval", cfg.ScanInterval),
	)
	<-quit
	logger.Info("Shutting down recovery service...")
	stopScans()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited cleanly")
}
