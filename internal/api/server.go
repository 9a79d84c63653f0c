// File path: internal/api/server.go
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contentlake/contentlake/internal/common"
	"github.com/contentlake/contentlake/internal/data/orchestrator"
	"github.com/contentlake/contentlake/internal/lake"
)

// Config controls the HTTP server.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the baseline server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         ":8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// LoadConfig builds a Config from defaults and environment variables.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if value := strings.TrimSpace(os.Getenv("CONTENTLAKE_API_ADDR")); value != "" {
		cfg.Addr = value
	}
	if value := strings.TrimSpace(os.Getenv("CONTENTLAKE_API_READ_TIMEOUT")); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse CONTENTLAKE_API_READ_TIMEOUT: %w", err)
		}
		cfg.ReadTimeout = d
	}
	if value := strings.TrimSpace(os.Getenv("CONTENTLAKE_API_WRITE_TIMEOUT")); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			return Config{}, fmt.Errorf("parse CONTENTLAKE_API_WRITE_TIMEOUT: %w", err)
		}
		cfg.WriteTimeout = d
	}
	return cfg, nil
}

// Server exposes the data lake over HTTP. It holds no state of its own;
// every request goes through the orchestrator's stores.
type Server struct {
	cfg    Config
	orch   *orchestrator.Orchestrator
	router chi.Router
}

// NewServer constructs a Server over an orchestrator.
func NewServer(orch *orchestrator.Orchestrator, cfg *Config) (*Server, error) {
	if orch == nil {
		return nil, errors.New("api: orchestrator required")
	}
	effective := DefaultConfig()
	if cfg != nil {
		effective = *cfg
	}
	s := &Server{cfg: effective, orch: orch, router: chi.NewRouter()}
	s.routes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe blocks serving HTTP on the configured address.
func (s *Server) ListenAndServe() error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	common.Logger().Info("api: listening", "addr", s.cfg.Addr)
	return srv.ListenAndServe()
}

func (s *Server) routes() {
	logger := common.Logger()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.Post("/v1/activities", s.handleAppend)
	s.router.Get("/v1/activities", s.handleQuery)
	s.router.Get("/v1/activities/{id}", s.handleGetActivity)
	s.router.Post("/v1/manifest/build", s.handleBuild)
	s.router.Post("/v1/indexes/refresh", s.handleRefreshIndexes)
	s.router.Get("/v1/stats", s.handleStats)
	s.router.Get("/v1/platforms", s.handlePlatforms)
	s.router.Post("/v1/enhancements/{type}/compute", s.handleCompute)
	s.router.Get("/v1/enhancements/{type}/history", s.handleHistory)
	s.router.Get("/v1/enhancements/{type}/timeline", s.handleTimeline)
	s.router.Get("/v1/audit", s.handleAudit)
	s.router.Get("/v1/logs", s.handleLogs)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"logs": common.LogEntries()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusFor maps the error taxonomy to HTTP statuses: validation problems
// are the client's fault, everything else is ours.
func statusFor(err error) int {
	if lake.IsValidation(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
