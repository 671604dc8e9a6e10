// Package server wraps the gin engine in an http.Server with the configured
// timeouts and graceful drain.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/chosencharacters/Tankmas2024-Server/internal/application/container"
	"github.com/chosencharacters/Tankmas2024-Server/internal/infrastructure/observability/logging"
	"github.com/chosencharacters/Tankmas2024-Server/internal/presentation/http/routes"
	"github.com/chosencharacters/Tankmas2024-Server/pkg/config"
)

// Server owns the listener lifecycle for the HTTP surface.
type Server struct {
	httpServer *http.Server
	logger     *logging.ChanneledLogger
}

// New builds the router over the container's services and binds it to port.
func New(port string, appContainer *container.Container) *Server {
	router := routes.SetupRoutes(appContainer)

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      router,
			ReadTimeout:  config.ServerReadTimeout,
			WriteTimeout: config.ServerWriteTimeout,
			IdleTimeout:  config.ServerIdleTimeout,
		},
		logger: appContainer.Logger,
	}
}

// Start listens for HTTP requests until the server is stopped. A normal
// shutdown is not reported as an error.
func (s *Server) Start() error {
	s.logger.System().Info("HTTP server listening", "address", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Stop drains in-flight requests and shuts the listener down, honoring the
// context deadline.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Shutdown().Info("Draining HTTP connections...")
	return s.httpServer.Shutdown(ctx)
}
