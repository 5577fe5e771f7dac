package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/specialistvlad/labbench/internal/stats"
)

const statusShutdownTimeout = 5 * time.Second

// statusServer exposes liveness and live statistics while a load run is in progress.
type statusServer struct {
	logger   *slog.Logger
	snapshot func() stats.Snapshot
	srv      *http.Server
	ln       net.Listener
}

func newStatusServer(logger *slog.Logger, snapshot func() stats.Snapshot) *statusServer {
	s := &statusServer{logger: logger, snapshot: snapshot}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /stats", s.statsHandler)
	s.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *statusServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (s *statusServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Debug("Stats endpoint hit.", "remote_addr", r.RemoteAddr)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.snapshot()); err != nil {
		s.logger.Error("Failed to encode stats snapshot", "error", err)
	}
}

// Start binds addr and serves in the background. The listener is bound
// before Start returns so a bad port fails the run immediately.
func (s *statusServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start status server on %s: %w", addr, err)
	}
	s.ln = ln

	go func() {
		s.logger.Info("🩺 Status server starting", "address", fmt.Sprintf("http://%s/health", ln.Addr()))
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server failed unexpectedly", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, nil before Start.
func (s *statusServer) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown stops the server, waiting at most statusShutdownTimeout.
func (s *statusServer) Shutdown(ctx context.Context) error {
	if s.ln == nil {
		s.logger.Debug("Status server was not running.")
		return nil
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusShutdownTimeout)
	defer cancel()

	s.logger.Debug("Shutting down status server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		s.logger.Error("Status server shutdown failed", "error", err)
		return err
	}
	s.logger.Debug("Status server shut down gracefully.")
	return nil
}
