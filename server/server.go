package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/umputun/habemus/pkg/journal"
	"github.com/umputun/habemus/pkg/monitor"
)

//go:generate moq -out mocks/config.go -pkg mocks -skip-ensure -fmt goimports . ConfigProvider
//go:generate moq -out mocks/monitor.go -pkg mocks -skip-ensure -fmt goimports . Monitor
//go:generate moq -out mocks/journal.go -pkg mocks -skip-ensure -fmt goimports . Journal

// Server represents HTTP server instance
type Server struct {
	config  ConfigProvider
	monitor Monitor
	journal Journal
	version string
	debug   bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
	baseCtx    context.Context
	scanning   atomic.Bool
}

// Monitor interface for status and on-demand scans
type Monitor interface {
	LastReport() monitor.Report
	Evidence() map[string][]string
	ScanOnce(ctx context.Context) (monitor.Report, error)
}

// Journal interface for alert history
type Journal interface {
	List(ctx context.Context, limit int) ([]journal.Entry, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// New initializes a new server instance, jrn can be nil if the journal is disabled
func New(cfg ConfigProvider, mon Monitor, jrn Journal, version string, debug bool) *Server {
	s := &Server{
		config:  cfg,
		monitor: mon,
		journal: jrn,
		version: version,
		debug:   debug,
		router:  routegroup.New(http.NewServeMux()),
		baseCtx: context.Background(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.baseCtx = ctx
	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           s.router,
		ReadHeaderTimeout: timeout,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("habemus", "umputun", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(64 * 1024))
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)
		r.HandleFunc("GET /evidence", s.evidenceHandler)
		r.HandleFunc("GET /alerts", s.alertsHandler)
		r.HandleFunc("POST /scan", s.scanHandler)
	})
}

// statusHandler returns server status with the last cycle report
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"status":      "ok",
		"version":     s.version,
		"time":        time.Now().UTC(),
		"scanning":    s.scanning.Load(),
		"last_report": s.monitor.LastReport(),
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// evidenceHandler returns ids of surfaced items per candidate
func (s *Server) evidenceHandler(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, http.StatusOK, s.monitor.Evidence())
}

// alertsHandler returns recent journal entries, limit query param is optional
func (s *Server) alertsHandler(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		RenderJSON(w, r, http.StatusOK, []journal.Entry{})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil || l < 1 || l > 1000 {
			RenderError(w, r, errors.New("invalid limit"), http.StatusBadRequest)
			return
		}
		limit = l
	}

	entries, err := s.journal.List(r.Context(), limit)
	if err != nil {
		lgr.Printf("[ERROR] failed to list alerts: %v", err)
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []journal.Entry{}
	}
	RenderJSON(w, r, http.StatusOK, entries)
}

// scanHandler triggers a cycle in background, only one triggered cycle at a time
func (s *Server) scanHandler(w http.ResponseWriter, r *http.Request) {
	if !s.scanning.CompareAndSwap(false, true) {
		RenderError(w, r, errors.New("scan already in progress"), http.StatusConflict)
		return
	}

	s.lock.Lock()
	ctx := s.baseCtx
	s.lock.Unlock()

	go func() {
		defer s.scanning.Store(false)
		if _, err := s.monitor.ScanOnce(ctx); err != nil {
			lgr.Printf("[WARN] triggered scan failed: %v", err)
		}
	}()
	RenderJSON(w, r, http.StatusAccepted, map[string]string{"status": "scan started"})
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, _ *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, r, code, map[string]string{"error": errMsg})
}
