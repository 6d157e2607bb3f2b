// Package server exposes the latest inventory snapshot over a small
// read-only JSON API.
package server

import (
	"net/http"
	"time"

	"github.com/go-kit/log"
)

type Config struct {
	ListenAddr string
}

type Server struct {
	Config Config
	Store  *SnapshotStore
	Router *http.ServeMux

	logger log.Logger
}

func New(cfg Config, store *SnapshotStore, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		Config: cfg,
		Store:  store,
		Router: http.NewServeMux(),
		logger: logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/devices", s.handleDevices)
	s.Router.HandleFunc("/api/v1/devices/mass-storage", s.handleMassStorage)
	s.Router.HandleFunc("/api/v1/version", s.handleVersion)
	s.Router.HandleFunc("/health", s.handleHealth)
}

// HTTPServer builds the configured http.Server; an outer mux may wrap the
// router to add endpoints like /metrics.
func (s *Server) HTTPServer(handler http.Handler) *http.Server {
	if handler == nil {
		handler = s.Router
	}
	return &http.Server{
		Addr:         s.Config.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 40 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}
