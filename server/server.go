package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sugarcan0067/Nixe-Watch-CTS/bluetooth"
	"github.com/Sugarcan0067/Nixe-Watch-CTS/utils"
)

// Server exposes the daemon's status surface: a small JSON API, the
// WebSocket event stream, and Prometheus metrics.
type Server struct {
	manager *bluetooth.Manager
	store   *utils.ConfigStore
	wsHub   *utils.WebSocketHub
	router  *http.ServeMux
	httpSrv *http.Server
}

// NewServer creates a new Server instance.
func NewServer(manager *bluetooth.Manager, store *utils.ConfigStore, wsHub *utils.WebSocketHub) *Server {
	s := &Server{
		manager: manager,
		store:   store,
		wsHub:   wsHub,
		router:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/api/status", corsMiddleware(s.handleStatus))
	s.router.HandleFunc("/api/config", corsMiddleware(s.handleConfig))
	s.router.HandleFunc("/api/sync", corsMiddleware(s.handleSyncNow))
	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.Handle("/metrics", promhttp.Handler())
}

// Start begins serving in the background.
func (s *Server) Start(port int) {
	s.httpSrv = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: s.router,
	}

	go func() {
		log.Printf("Starting status server on :%d", port)
		if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not start server: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
