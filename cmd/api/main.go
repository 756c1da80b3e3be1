package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/abduss/certvault/internal/auth"
	"github.com/abduss/certvault/internal/certificate"
	"github.com/abduss/certvault/internal/config"
	"github.com/abduss/certvault/internal/logger"
	"github.com/abduss/certvault/internal/metrics"
	"github.com/abduss/certvault/internal/object"
	"github.com/abduss/certvault/internal/presigned"
	"github.com/abduss/certvault/internal/server"
	"github.com/abduss/certvault/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	zl, err := logger.Init()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		zl.Fatal("load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := storage.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		zl.Fatal("connect postgres", zap.Error(err))
	}
	defer dbPool.Close()

	if err := storage.Migrate(ctx, dbPool); err != nil {
		zl.Fatal("apply schema", zap.Error(err))
	}

	minioClient, err := storage.NewMinIOClient(cfg.MinIO)
	if err != nil {
		zl.Fatal("connect minio", zap.Error(err))
	}
	if err := storage.EnsureBucket(ctx, minioClient, cfg.MinIO.Bucket, cfg.MinIO.Region); err != nil {
		zl.Fatal("ensure bucket", zap.Error(err))
	}

	metrics.InitMetrics()
	gin.SetMode(gin.ReleaseMode)

	authService := auth.NewService(auth.NewRepository(dbPool), cfg.Auth)
	certificateService := certificate.NewService(certificate.NewRepository(dbPool))
	objectService := object.NewService(object.NewMinIOStore(minioClient), cfg.MinIO.Bucket, cfg.Upload.MaxFileSize)
	signer := presigned.NewService(minioClient, cfg.MinIO.Bucket, cfg.Signing.Secret, cfg.Server.PublicURL)

	router := server.NewRouter(server.Dependencies{
		Config: cfg,
		Checks: []server.ReadinessCheck{
			server.PostgresCheck(dbPool),
			server.MinIOCheck(minioClient, cfg.MinIO.Bucket),
		},
		AuthService:        authService,
		CertificateService: certificateService,
		ObjectService:      objectService,
		Signer:             signer,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		zl.Info("CertVault API listening", zap.String("addr", cfg.Server.Address()), zap.String("public_url", cfg.Server.PublicURL))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	zl.Info("shutting down gracefully")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("shutdown", zap.Error(err))
	}
}
