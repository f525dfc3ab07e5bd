package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/captolab/gpuhub/internal/config"
	"github.com/captolab/gpuhub/internal/db"
	"github.com/captolab/gpuhub/internal/router"
	"github.com/captolab/gpuhub/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, cfg.DBDriver); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	log.Println("database migrations applied")

	authSvc := service.NewAuthService(database, cfg.JWTSecret, time.Duration(cfg.TokenExpiryHours)*time.Hour)
	if err := authSvc.EnsureAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	// Pending-input records live in Redis when configured so a restart (or
	// a second instance) can resume suspended sessions; otherwise in-process.
	var pending service.PendingStore
	if cfg.RedisURL != "" {
		store, err := service.NewRedisPendingStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		pending = store
		log.Println("pending-input store: redis")
	} else {
		pending = service.NewMemoryPendingStore()
		log.Println("pending-input store: in-memory")
	}

	quota := service.NewQuotaLedger(database, cfg.DailyQuotaMinutes)
	exec := service.NewPythonExecutor(cfg.PythonBin)
	coord := service.NewCoordinator(database, quota, pending, exec,
		cfg.WorkDir, time.Duration(cfg.ExecTimeoutSeconds)*time.Second)

	if cfg.MinioEndpoint != "" {
		archive, err := service.NewArtifactArchive(cfg.MinioEndpoint,
			cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			log.Fatalf("artifact archive: %v", err)
		}
		coord.SetArchive(archive)
		log.Printf("artifact archive: %s/%s", cfg.MinioEndpoint, cfg.MinioBucket)
	}

	handler := router.New(cfg, database, coord)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: time.Duration(cfg.ExecTimeoutSeconds+30) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("gpuhub listening on :%s (driver=%s quota=%dm)", cfg.Port, cfg.DBDriver, cfg.DailyQuotaMinutes)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-done
	log.Println("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	log.Println("stopped")
}
