// Package api exposes on-demand checks and health over HTTP for external schedulers.
package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/user/ferry-watch/internal/domain"
	"github.com/user/ferry-watch/internal/monitoring"
	"github.com/user/ferry-watch/internal/storage"
)

// Runner performs one availability check.
type Runner interface {
	Run(ctx context.Context) (*domain.CheckResult, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	port         string
	checkTimeout time.Duration
	router       http.Handler
	httpServer   *http.Server
	runner       Runner
	recorders    []storage.Recorder
	metrics      *monitoring.Metrics
	logger       *zap.Logger

	// busy admits one check at a time; the browser flow is not reentrant.
	busy sync.Mutex
}

func NewServer(port string, checkTimeout time.Duration, runner Runner, recorders []storage.Recorder, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		port:         port,
		checkTimeout: checkTimeout,
		runner:       runner,
		recorders:    recorders,
		metrics:      m,
		logger:       l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: s.checkTimeout + 10*time.Second,
	}
	s.logger.Info("api server listening", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
