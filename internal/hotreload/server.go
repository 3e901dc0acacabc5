package hotreload

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/conneroisu/rune/internal/logging"
)

// DefaultProbe is how many consecutive ports Listen tries.
const DefaultProbe = 20

// Listen binds the first free port in [start, start+probe).
func Listen(host string, start, probe int) (net.Listener, int, error) {
	if probe <= 0 {
		probe = 1
	}

	var lastErr error
	for port := start; port < start+probe && port <= 65535; port++ {
		ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
		if err == nil {
			return ln, ln.Addr().(*net.TCPAddr).Port, nil
		}
		lastErr = err
	}

	return nil, 0, fmt.Errorf("no free port in %d-%d: %w", start, start+probe-1, lastErr)
}

// Server serves a Hub on its own listener.
type Server struct {
	hub      *Hub
	logger   logging.Logger
	listener net.Listener
	port     int
	http     *http.Server
}

// NewServer binds the first free port at or above port on host.
func NewServer(hub *Hub, host string, port int, logger logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	ln, bound, err := Listen(host, port, DefaultProbe)
	if err != nil {
		return nil, err
	}

	return &Server{
		hub:      hub,
		logger:   logger.WithComponent("hotreload"),
		listener: ln,
		port:     bound,
		http: &http.Server{
			Handler:           hub,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Port returns the bound port.
func (s *Server) Port() int { return s.port }

// Hub returns the served hub.
func (s *Server) Hub() *Hub { return s.hub }

// Serve blocks until the server is shut down.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info(ctx, "Hot reload server listening", "port", s.port)

	if err := s.http.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("hot reload server: %w", err)
	}

	return nil
}

// Shutdown closes the hub and the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	_ = s.hub.Shutdown(ctx)

	return s.http.Shutdown(ctx)
}
