package opsapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"
)

// Server is the operator HTTP+WebSocket introspection surface.
type Server struct {
	hub        *hub
	snapshot   atomic.Pointer[Snapshot]
	httpServer *http.Server
	port       int
}

// NewServer builds a Server listening on port once Start is called.
func NewServer(port int) *Server {
	return &Server{hub: newHub(), port: port}
}

// Start begins serving HTTP and WebSocket traffic in the background.
func (s *Server) Start() {
	s.hub.start()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.Handle("/ws", websocket.Handler(s.hub.handleWebSocket))

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[opsapi] server starting on :%d", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[opsapi] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the HTTP server and WebSocket hub.
func (s *Server) Stop() {
	s.hub.stop()
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		s.httpServer.Shutdown(ctx)
	}
}

// UpdateSnapshot atomically publishes snap and broadcasts it to every
// connected WebSocket client.
func (s *Server) UpdateSnapshot(snap Snapshot) {
	s.snapshot.Store(&snap)
	s.hub.broadcastSnapshot(snap)
}
