package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brandbolt/roasrobo/internal/api"
	"github.com/brandbolt/roasrobo/internal/artifacts"
	"github.com/brandbolt/roasrobo/internal/auth"
	"github.com/brandbolt/roasrobo/internal/config"
	"github.com/brandbolt/roasrobo/internal/dashboard"
	"github.com/brandbolt/roasrobo/internal/notify"
	"github.com/brandbolt/roasrobo/internal/pkg/logger"
	"github.com/brandbolt/roasrobo/internal/pkg/runlock"
	"github.com/brandbolt/roasrobo/internal/runner"
	"github.com/brandbolt/roasrobo/internal/scheduler"
	"github.com/brandbolt/roasrobo/internal/status"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		logger.SetLevel(logger.ParseLevel(lvl))
	}

	if err := checkPortAvailable(cfg.Server.Host, cfg.Server.Port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}

	// Persistence backend: Postgres when a DSN is configured, local file
	// otherwise. Both hold the same single JSON document.
	var persister status.Persister
	var db *sql.DB
	if cfg.Storage.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.Storage.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		db.SetMaxOpenConns(5)
		persister, err = status.NewPostgresPersister(db)
		if err != nil {
			log.Fatalf("Failed to initialize Postgres persistence: %v", err)
		}
		log.Println("Status persistence: PostgreSQL")
	} else {
		persister, err = status.NewFilePersister(cfg.Storage.StatusPath)
		if err != nil {
			log.Fatalf("Failed to initialize file persistence: %v", err)
		}
		log.Printf("Status persistence: file (%s)", cfg.Storage.StatusPath)
	}

	store, err := status.NewStore(persister)
	if err != nil {
		log.Fatalf("Failed to initialize status store: %v", err)
	}

	// Diagnostic artifacts: S3 when a bucket is configured, local directory
	// otherwise.
	var artifactStore artifacts.Store
	if cfg.Artifacts.S3Bucket != "" {
		artifactStore, err = artifacts.NewS3Store(context.Background(), cfg.Artifacts.S3Bucket, "captures/", cfg.Artifacts.S3Region)
		if err != nil {
			log.Fatalf("Failed to initialize S3 artifact store: %v", err)
		}
	} else {
		artifactStore, err = artifacts.NewLocalStore(cfg.Artifacts.LocalDir)
		if err != nil {
			log.Fatalf("Failed to initialize artifact store: %v", err)
		}
	}

	extractTimeout := time.Duration(cfg.Dashboard.TimeoutSeconds) * time.Second
	extractor := dashboard.NewClient(cfg.Dashboard.ReportURL, cfg.Dashboard.AuthStatePath, extractTimeout, artifactStore)
	executor := dashboard.NewExecutor(time.Minute)

	var notifier runner.Notifier
	if cfg.Email.Enabled {
		mailer, err := notify.NewSESMailer(cfg.Email.AccessKey, cfg.Email.SecretKey, cfg.Email.Region, cfg.Email.From)
		if err != nil {
			log.Fatalf("Failed to initialize SES mailer: %v", err)
		}
		notifier = notify.NewEmailNotifier(mailer, cfg.Email.To)
		log.Printf("Email reports enabled (region %s)", cfg.Email.Region)
	} else {
		log.Println("Email reports disabled")
	}

	run := runner.New(store, extractor, executor, notifier)

	// Optional cross-host run lock for deployments sharing a status backend.
	if cfg.Storage.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		run.SetRunLock(runlock.New(redisClient, "roasrobo:run-lock", 15*time.Minute))
		log.Printf("Cross-host run lock enabled (redis %s)", cfg.Storage.RedisAddr)
	}

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		sched = scheduler.New(store, run.RunNow, cfg.Scheduler.MinuteOffset)
		sched.Start()
		log.Printf("Hourly scheduler started (minute offset %d)", cfg.Scheduler.MinuteOffset)
	} else {
		log.Println("Scheduler disabled; runs are manual only")
	}

	var authManager *auth.AuthManager
	if cfg.Auth.Enabled {
		baseURL := fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
		if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
			baseURL = v
		}
		authManager = auth.NewAuthManager(&cfg.Auth, baseURL)
		authManager.CleanupExpiredSessions()
		log.Printf("Google OAuth enabled (%d authorized emails)", len(cfg.Auth.AuthorizedEmails))
	} else {
		log.Println("Authentication disabled")
	}

	handlers := api.NewHandlers(store, run, authManager, cfg.Email.To)
	server := api.NewServer(cfg.Server, handlers, authManager)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	if sched != nil {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if db != nil {
		db.Close()
	}

	log.Println("Server stopped")
}
