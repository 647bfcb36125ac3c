// Package server assembles the HTTP surface of the assessment API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tarkai/trustlens/internal/adapters/web/handlers"
	"github.com/tarkai/trustlens/internal/adapters/web/websocket"
	"github.com/tarkai/trustlens/internal/core/ports"
	"github.com/tarkai/trustlens/internal/core/services/assessment"
)

// Server handles HTTP and WebSocket connections.
type Server struct {
	Addr string

	AssessmentHandler *handlers.AssessmentHandler
	VulnHandler       *handlers.VulnerabilityHandler
	WSManager         *websocket.Manager

	srv *http.Server
}

// NewServer creates a new web server over the assessment service and the
// vulnerability cache.
func NewServer(addr string, service *assessment.Service, cache ports.CVECache, wsManager *websocket.Manager) *Server {
	return &Server{
		Addr:              addr,
		AssessmentHandler: handlers.NewAssessmentHandler(service),
		VulnHandler:       handlers.NewVulnerabilityHandler(cache),
		WSManager:         wsManager,
	}
}

// Run starts the server and blocks until ctx is cancelled or the listener
// fails.
func (s *Server) Run(ctx context.Context) error {
	handler := SetupRoutes(s)

	// Instrument with OpenTelemetry.
	instrumentedHandler := otelhttp.NewHandler(handler, "trustlens-server")

	s.srv = &http.Server{
		Addr:              s.Addr,
		Handler:           instrumentedHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		<-ctx.Done()
		slog.Info("Web server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Web server shutdown error", "error", err)
		}
	}()

	slog.Info("Web server listening", "addr", s.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
