package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prep-portal/internal/db"
	"prep-portal/internal/server"
)

func main() {
	addr := getenvDefault("PREP_ADDR", ":8080")

	build := server.BuildInfo{
		Version: getenvDefault("PREP_VERSION", "dev"),
		Commit:  getenvDefault("PREP_COMMIT", "unknown"),
	}

	// Fail fast on broken configuration.
	validator := server.NewConfigValidator()
	validator.ValidateEnv()
	if validator.HasErrors() {
		log.Printf("service=backend msg=%q err=%q", "invalid_configuration", validator.Summary())
		os.Exit(1)
	}

	auth := server.AuthConfig{
		SessionSecret: os.Getenv("PREP_SESSION_SECRET"),
		SessionTTL:    12 * time.Hour,
		CookieName:    "prep_session",
		SecureCookie:  getenvDefault("PREP_ENV", "") == "production",
	}

	// Database
	dsn := getenvDefault("DATABASE_URL", "")
	dbConn, err := server.OpenDB(dsn)
	if err != nil {
		log.Printf("service=backend msg=%q err=%v", "db_connect_failed", err)
		os.Exit(1)
	}
	defer func() { _ = dbConn.Close() }()

	// Run migrations
	log.Printf("service=backend msg=%q", "running_migrations")
	if err := db.RunMigrations(dbConn); err != nil {
		log.Printf("service=backend msg=%q err=%v", "migration_failed", err)
		os.Exit(1)
	}
	log.Printf("service=backend msg=%q", "migrations_complete")

	// Seed the default portal user (insert-if-absent).
	defaultUser := getenvDefault("PREP_DEFAULT_USER", "admin")
	defaultPass := os.Getenv("PREP_DEFAULT_PASS")
	if defaultPass != "" {
		if err := server.SeedDefaultUser(dbConn, defaultUser, defaultPass); err != nil {
			log.Printf("service=backend msg=%q err=%v", "seed_user_failed", err)
			os.Exit(1)
		}
	}

	auth.DB = dbConn

	// Object storage for general files; optional in small deployments.
	var cfg = server.Config{
		Addr:  addr,
		Build: build,
		Auth:  auth,
		DB:    dbConn,
	}
	if os.Getenv("PREP_S3_ENDPOINT") != "" {
		mc, bucket, err := server.NewMinioClient()
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "minio_connect_failed", err)
			os.Exit(1)
		}
		cfg.Minio = mc
		cfg.Bucket = bucket
	} else {
		log.Printf("service=backend msg=%q", "minio_not_configured")
	}

	// Scheduled database backups (no-op unless enabled).
	backups := server.NewBackupManager(server.LoadBackupConfig(), cfg.Minio, cfg.Bucket)
	backups.Start()
	defer backups.Stop()

	srv := server.New(cfg)

	// Start the HTTP server in a background goroutine so we can listen
	// for OS signals while the server runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=backend msg=%q addr=%s version=%s commit=%s",
			"starting", addr, build.Version, build.Commit)
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	// Block until either a shutdown signal is received or the server
	// encounters an error.
	select {
	case sig := <-sigCh:
		log.Printf("service=backend msg=%q signal=%s", "shutting_down", sig.String())
		// Give the server 5 seconds to finish in-flight requests.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=backend msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=backend msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=backend msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// getenvDefault reads an environment variable and returns a default
// value if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
