package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/aatumaykin/hostkeeper/internal/logger"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the /metrics endpoint in daemon mode.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer creates a metrics server listening on addr.
func NewServer(addr string, log *logger.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start serves in the background until Stop is called.
func (s *Server) Start() {
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("telemetry server failed", err,
					logger.Field{Key: "addr", Value: s.httpServer.Addr})
			}
		}
	}()
	if s.logger != nil {
		s.logger.Info("telemetry server started",
			logger.Field{Key: "addr", Value: s.httpServer.Addr})
	}
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
