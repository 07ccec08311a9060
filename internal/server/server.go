package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

// Middleware wraps an [http.Handler].
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows the paths it serves.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router registers handlers behind a middleware stack.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}

// CallbackServer is a local listener for the OAuth redirect.
type CallbackServer struct {
	srv      *http.Server
	listener net.Listener
	logger   *log.Logger
}

// Listen binds addr and prepares a server for h. Binding happens immediately so a
// busy port is reported before the browser is opened.
func Listen(addr string, h http.Handler, logger *log.Logger) (*CallbackServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if logger == nil {
		logger = log.Default()
	}

	return &CallbackServer{
		srv: &http.Server{
			Handler:           h,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}, nil
}

// Addr returns the bound address.
func (s *CallbackServer) Addr() string {
	return s.listener.Addr().String()
}

// Serve blocks until the server is shut down. A graceful shutdown returns nil.
func (s *CallbackServer) Serve() error {
	s.logger.Debug("callback server listening", "addr", s.Addr())
	if err := s.srv.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
