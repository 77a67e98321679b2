package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	gcs "cloud.google.com/go/storage"

	"homefolio/config"
	"homefolio/config/database"
	"homefolio/internal/bundle"
	"homefolio/internal/compose"
	"homefolio/internal/fetch"
	"homefolio/internal/ratelimit"
	reportHandler "homefolio/internal/report"
	"homefolio/internal/report/repository"
	"homefolio/internal/report/service"
	"homefolio/internal/storage"
	"homefolio/pkg/logger"
	"homefolio/router"
)

const pruneInterval = 15 * time.Minute

// longestWindow is how long rate-limit log rows stay relevant.
func longestWindow(limits map[string]config.Limit) time.Duration {
	var d time.Duration
	for _, l := range limits {
		d = max(d, l.Window)
	}
	return d
}

func main() {
	logger.Init()
	defer logger.Log.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	if cfg.StoreBackend == "postgres" || cfg.RateLimitBackend == "postgres" {
		db, err = database.Connect(cfg.DSN())
		if err != nil {
			logger.Sugar.Fatalf("Database unavailable: %v", err)
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logger.Sugar.Fatalf("Migration failed: %v", err)
		}
	}

	var repo repository.Repository
	switch cfg.StoreBackend {
	case "firestore":
		client, err := firestore.NewClient(ctx, cfg.FirestoreProjectID)
		if err != nil {
			logger.Sugar.Fatalf("Firestore client: %v", err)
		}
		defer client.Close()
		repo = repository.NewFirestoreRepository(client)
	default:
		repo = repository.NewReportRepository(db)
	}

	var limiter ratelimit.Limiter
	switch cfg.RateLimitBackend {
	case "postgres":
		limiter = ratelimit.NewPostgresLimiter(db, cfg.RateLimitFailOpen)
		go ratelimit.NewPruner(db, longestWindow(cfg.Settings.Limits), pruneInterval).Run(ctx)
	default:
		limiter = ratelimit.NewMemoryLimiter()
	}

	var signer storage.Signer
	switch cfg.StorageBackend {
	case "gcs":
		client, err := gcs.NewClient(ctx)
		if err != nil {
			logger.Sugar.Fatalf("GCS client: %v", err)
		}
		defer client.Close()
		signer = storage.NewGCSSigner(client, cfg.GCSBucket)
	default:
		signer, err = storage.NewS3Signer(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			logger.Sugar.Fatalf("S3 signer: %v", err)
		}
	}

	s := cfg.Settings
	fetcher := fetch.NewClient(s.FetchTimeout, s.FetchMaxSize)
	bundler := bundle.NewBundler(signer, fetcher, s.SignedURLTTL)
	composer := compose.NewComposer(s, fetcher, signer, bundler)
	svc := service.NewReportService(repo, limiter, composer, s.Limits)

	proxies, err := ratelimit.ParseProxies(cfg.TrustedProxies)
	if err != nil {
		logger.Sugar.Fatalf("Invalid TRUSTED_PROXIES: %v", err)
	}

	srv := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: router.Setup(router.Deps{
			Reports:        reportHandler.NewReportHandler(svc, proxies),
			JWTSecret:      cfg.JWTSecret,
			AllowedOrigins: cfg.AllowedOrigins,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Report service listening on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
	}
}
