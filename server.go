package respwire

import (
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"
)

// ErrServerClosed is returned by Serve and ListenAndServe after Close.
var ErrServerClosed = errors.New("respwire: server closed")

// ServerConfig holds the server configuration.
type ServerConfig struct {
	// Logger receives connection lifecycle and protocol fault events.
	// Defaults to slog.Default().
	Logger *slog.Logger

	// IdleTimeout closes connections with no inbound traffic for this
	// long. Zero disables the timeout.
	IdleTimeout time.Duration
}

// Server accepts connections and runs one dispatcher goroutine per
// connection. Each connection handles its commands sequentially in arrival
// order; connections run concurrently and share nothing but the handler.
type Server struct {
	handler     Handler
	logger      *slog.Logger
	idleTimeout time.Duration

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a server dispatching to handler.
func NewServer(handler Handler, config ServerConfig) *Server {
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		handler:     handler,
		logger:      logger,
		idleTimeout: config.IdleTimeout,
		conns:       make(map[net.Conn]struct{}),
	}
}

// ListenAndServe listens on the TCP address addr and serves until Close.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Serve accepts connections from ln until Close. It always returns a
// non-nil error; after Close the error is ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("serving", "address", ln.Addr())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			return err
		}
		if !s.track(conn) {
			conn.Close()
			return ErrServerClosed
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrack(conn)
			d := newConnDispatcher(conn, s.handler, s.logger, s.idleTimeout)
			d.serve()
		}()
	}
}

// Close stops accepting, closes all live connections, and waits for their
// dispatchers to finish.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	ln := s.ln
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}
	s.wg.Wait()
	return err
}

func (s *Server) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Server) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}
