// Package httpserver exposes the monitor's state over HTTP: health,
// per-appliance status, and recent cycle history. The server is optional
// and only started when a listen port is configured.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/hometools/internal/appliance"
	"github.com/MrSnakeDoc/hometools/internal/logger"
	storeredis "github.com/MrSnakeDoc/hometools/internal/store/redis"
)

// Deps carries everything the handlers need. Cycles is nil when no history
// store is configured.
type Deps struct {
	Logger    logger.Logger
	Version   string
	StartTime time.Time
	Status    func() []appliance.Status
	Cycles    func(ctx context.Context, n int) ([]storeredis.CycleRecord, error)
}

// Server wraps the HTTP listener.
type Server struct {
	deps Deps
	srv  *http.Server
}

func New(port string, deps Deps) *Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(deps.Logger))

	s := &Server{deps: deps}
	r.Get("/healthz", s.handleHealthz)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/cycles", s.handleCycles)

	s.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start begins serving in a goroutine. Listener failures other than a
// clean shutdown are reported on the returned channel.
func (s *Server) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.deps.Logger.Info("🌐 status server listening", logger.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("status server failed: %w", err)
		}
	}()
	return errCh
}

// Stop drains in-flight requests until the context expires.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.deps.Version,
		"uptime_seconds": int64(time.Since(s.deps.StartTime).Seconds()),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"appliances": s.deps.Status(),
	})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	if s.deps.Cycles == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "cycle history is not configured",
		})
		return
	}

	n := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "limit must be a positive integer",
			})
			return
		}
		n = parsed
	}

	records, err := s.deps.Cycles(r.Context(), n)
	if err != nil {
		s.deps.Logger.Error("failed to load cycle history", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "cycle history unavailable",
		})
		return
	}
	if records == nil {
		records = []storeredis.CycleRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cycles": records,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// requestLogger logs one line per request with status and duration.
func requestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.Status()),
				logger.Duration("duration", time.Since(start)))
		})
	}
}
