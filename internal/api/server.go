// Package api exposes the card commands over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/user/armory-card/internal/command"
	"github.com/user/armory-card/internal/domain"
	"github.com/user/armory-card/internal/monitoring"
	"go.uber.org/zap"
)

// Commands runs commands synchronously.
type Commands interface {
	Execute(ctx context.Context, cmd string, req domain.CommandRequest) (*command.Reply, error)
	FailureReply(req domain.CommandRequest, err error) *command.Reply
}

// Queue accepts deferred commands.
type Queue interface {
	Submit(job command.Job) error
}

// Pinger is a dependency checked by the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	port       string
	router     http.Handler
	httpServer *http.Server
	commands   Commands
	queue      Queue
	checks     map[string]Pinger
	gatherer   prometheus.Gatherer
	metrics    *monitoring.Metrics
	logger     *zap.Logger
}

// NewServer wires the router. checks names the stores the health endpoint pings.
func NewServer(port string, c Commands, q Queue, checks map[string]Pinger, g prometheus.Gatherer, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		port:     port,
		commands: c,
		queue:    q,
		checks:   checks,
		gatherer: g,
		metrics:  m,
		logger:   l,
	}
	s.router = s.setupRouter()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 90 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
