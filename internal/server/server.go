// Package server implements the HTTP and WebSocket server for the chat service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Tyrowin/livechat/internal/chat"
)

// Server owns the chat hub and the HTTP surface that feeds it connections.
type Server struct {
	cfg      Config
	hub      *chat.Hub
	base     *zap.Logger
	logger   *zap.Logger
	upgrader websocket.Upgrader
	origins  *originPolicy
	stats    *StatsReporter
	http     *http.Server

	clients sync.WaitGroup
}

// New builds a Server from cfg. The returned Server has not started listening.
func New(cfg *Config, logger *zap.Logger) (*Server, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sanitized := cfg.sanitize()

	loc, err := time.LoadLocation(sanitized.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", sanitized.TimeZone, err)
	}

	s := &Server{
		cfg:     sanitized,
		hub:     chat.NewHub(logger, chat.LocalClock(loc)),
		base:    logger,
		logger:  logger.Named("http"),
		origins: newOriginPolicy(sanitized.AllowedOrigins, logger.Named("origin")),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}

	if sanitized.StatsSchedule != "" {
		s.stats, err = NewStatsReporter(sanitized.StatsSchedule, s.hub, logger)
		if err != nil {
			return nil, err
		}
	}

	s.http = CreateServer(sanitized.Port, s.Routes())
	return s, nil
}

// Hub returns the chat hub served by s.
func (s *Server) Hub() *chat.Hub {
	return s.hub
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe starts the stats reporter and blocks serving HTTP until
// Shutdown is called. It returns nil after a clean shutdown.
func (s *Server) ListenAndServe() error {
	if s.stats != nil {
		s.stats.Start()
	}
	s.logger.Info("server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, closes every WebSocket client and waits
// for their pumps to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if s.stats != nil {
		s.stats.Stop()
	}

	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	s.hub.CloseAll()

	done := make(chan struct{})
	go func() {
		s.clients.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("all clients disconnected")
	case <-ctx.Done():
		s.logger.Warn("shutdown deadline reached with clients still running")
		errs = append(errs, ctx.Err())
	}

	return errors.Join(errs...)
}

func (s *Server) serveClient(client *Client) {
	s.clients.Add(1)
	go func() {
		defer s.clients.Done()
		client.Run()
	}()
}
