package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
}

// Config carries everything the HTTP layer needs. Minio may be nil;
// the general file repository is then disabled and its routes answer
// 503.
type Config struct {
	Addr   string // e.g. ":8080"
	Build  BuildInfo
	Auth   AuthConfig
	DB     *sql.DB
	Minio  *minio.Client
	Bucket string
}

// Server wraps the http.Server plus the dependencies the health
// handlers probe.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	minio      *minio.Client
	bucket     string
	version    string
}

// rateLimitFromEnv reads PREP_RATE_LIMIT (requests per minute per IP).
func rateLimitFromEnv() int {
	if raw := os.Getenv("PREP_RATE_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			return n
		}
	}
	return 300
}

// New wires the routes and middleware chain and returns a Server ready
// to Start.
func New(cfg Config) *Server {
	mux := http.NewServeMux()

	// Auth
	mux.Handle("/login", cfg.Auth.loginHandler())
	mux.Handle("/logout", cfg.Auth.logoutHandler())
	mux.Handle("/me", cfg.Auth.whoamiHandler())

	// Key-value sync: GET pulls the whole mapping, POST pushes a batch.
	kvPull := cfg.kvPullHandler()
	kvPush := cfg.kvPushHandler()
	mux.Handle("/progress", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			kvPull.ServeHTTP(w, r)
			return
		}
		kvPush.ServeHTTP(w, r)
	}))
	mux.Handle("/progress/delete", cfg.kvDeleteHandler())

	// PDF repository (filename-keyed, rows in Postgres)
	mux.Handle("/pdfs", cfg.pdfListHandler())
	mux.Handle("/pdfs/upload", cfg.pdfUploadHandler())
	mux.Handle("/pdfs/", cfg.pdfFileHandler())

	// General file repository (opaque ids, bytes in MinIO)
	if cfg.Minio != nil {
		mux.Handle("/files", cfg.filesListHandler())
		mux.Handle("/files/upload", cfg.filesUploadHandler())
		mux.Handle("/files/", cfg.filesByIDHandler())
	} else {
		unavailable := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "file storage not configured", http.StatusServiceUnavailable)
		})
		mux.Handle("/files", unavailable)
		mux.Handle("/files/", unavailable)
	}

	// Exam lists and announcements
	mux.Handle("/exams", cfg.examsHandler())
	mux.Handle("/announcements", cfg.announcementsHandler())
	mux.Handle("/announcements/", cfg.announcementByIDHandler())

	s := &Server{
		db:      cfg.DB,
		minio:   cfg.Minio,
		bucket:  cfg.Bucket,
		version: cfg.Build.Version,
	}

	// Probes and metrics
	mux.HandleFunc("/health", s.HandleHealth)
	mux.HandleFunc("/ready", s.HandleReady)
	mux.HandleFunc("/live", s.HandleLive)
	mux.Handle("/metrics", NewPrometheusExporter(cfg.Build.Version).Handler())

	// Middleware chain, innermost first:
	// requestID -> logging -> security headers -> compression -> ratelimit -> mux
	var handler http.Handler = mux
	handler = newRateLimiter(rateLimitFromEnv(), time.Minute).middleware(handler)
	handler = compressionMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
