package server

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Start serves the API until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	httpServer := s.setupHTTPServer()

	if err := s.configureTLS(ctx, httpServer); err != nil {
		return err
	}

	s.logServerInfo()

	serverErrors := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting HTTP server",
			"address", httpServer.Addr,
			"tls_enabled", httpServer.TLSConfig != nil)

		var err error
		if httpServer.TLSConfig != nil {
			// Certificates come from GetCertificate
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}

		if err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err, ok := <-serverErrors:
		if ok {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.Logger.Info("Received shutdown signal, starting graceful shutdown")
		return s.performGracefulShutdown(httpServer)
	}
}

// setupHTTPServer creates and configures the HTTP server
func (s *Server) setupHTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.Host, s.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.ReadTimeout,
		WriteTimeout:      s.WriteTimeout,
		IdleTimeout:       s.IdleTimeout,
	}
}

func (s *Server) performGracefulShutdown(server *http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.Logger.Info("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		s.Logger.LogError(err, "Failed to shutdown server gracefully, forcing close")
		return server.Close()
	}

	s.Logger.Info("Server shutdown completed successfully")
	return nil
}

// logServerInfo logs the endpoints and request limits
func (s *Server) logServerInfo() {
	s.Logger.Info("Available endpoints",
		"health", "GET /health",
		"stats", "GET /stats",
		"rank", "POST /rank-candidates")

	if s.MaxRequestSize <= 0 {
		s.Logger.Warn("No request size limit configured")
	}
	s.Logger.Info("Request limits",
		"max_request_size_bytes", s.MaxRequestSize,
		"max_candidates", s.MaxCandidates)
}
