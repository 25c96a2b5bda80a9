package websocket

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"linkinbio-service/internal/protocol"

	"github.com/gorilla/websocket"
)

const handlerDrainTimeout = 5 * time.Second

type ServerConfig struct {
	SendBuffer     int
	MaxMessageSize int64
	// PingPeriod <= 0 selects the default keepalive period
	PingPeriod time.Duration
	// AllowedOrigins empty or containing "*" accepts every origin
	AllowedOrigins []string
	// HandshakeTimeout bounds the HTTP upgrade, zero means no limit
	HandshakeTimeout time.Duration
}

// Server accepts duplex connections and runs the update protocol on them.
type Server struct {
	registry *Registry
	engine   *Engine
	config   ServerConfig
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	conns   map[*Connection]struct{}
	wg      sync.WaitGroup
	closing atomic.Bool
}

func NewServer(registry *Registry, engine *Engine, config ServerConfig, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if config.PingPeriod <= 0 {
		config.PingPeriod = pingPeriod
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = maxMessageSize
	}

	return &Server{
		registry: registry,
		engine:   engine,
		config:   config,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
			CheckOrigin:      checkOrigin(config.AllowedOrigins),
		},
		logger: logger,
		conns:  make(map[*Connection]struct{}),
	}
}

// checkOrigin allows configured origins, localhost variations and
// non-browser clients that send no Origin header.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	for _, o := range allowed {
		if strings.TrimSpace(o) == "*" {
			return func(*http.Request) bool { return true }
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if origin == strings.TrimSpace(o) {
				return true
			}
		}
		// For development/testing, allow any localhost variations
		return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
	}
}

// ServeWS upgrades the request and serves the connection until it closes.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if s.closing.Load() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	s.Serve(conn)
}

// Serve runs the protocol on an established duplex stream and blocks until
// the stream closes. The session owned by the stream is removed on return.
func (s *Server) Serve(conn Conn) {
	c := NewConnection(conn, s.config.SendBuffer, s.logger)
	if !s.track(c) {
		c.Close()
		return
	}
	defer s.untrack(c)

	c.logger.Info("Connection opened")
	c.Start(s.config.PingPeriod)

	err := c.readPump(s.config.MaxMessageSize, readWait(s.config.PingPeriod), func(data []byte) {
		// Handlers run concurrently; ordering between steps is enforced by
		// session preconditions in the engine.
		c.Go(func(ctx context.Context) {
			s.handleFrame(ctx, c, data)
		})
	})

	c.Close()
	c.Wait(handlerDrainTimeout)
	s.registry.RemoveConnection(c)
	c.logger.Info("Connection closed", "reason", err)
}

func (s *Server) handleFrame(ctx context.Context, c *Connection, data []byte) {
	var resp protocol.Message

	req, err := protocol.DecodeRequest(data)
	if err != nil {
		var perr *protocol.Error
		if !errors.As(err, &perr) {
			perr = protocol.Wrap(protocol.KindMalformedMessage, err, "undecodable frame")
		}
		c.logger.Warn("Invalid frame", "kind", perr.Kind, "error", perr.Message)
		errResp := protocol.NewErrorResponse(nil, "", perr)
		errResp.ID = protocol.PeekID(data)
		resp = errResp
	} else {
		resp = s.engine.Handle(ctx, c, req)
	}

	out, err := protocol.Encode(resp)
	if err != nil {
		c.logger.Error("Failed to encode response", "error", err)
		return
	}
	if err := c.Send(out); err != nil {
		c.logger.Debug("Response dropped", "error", err)
	}
}

func (s *Server) track(c *Connection) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing.Load() {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
	s.wg.Done()
}

// Connections returns the number of open duplex streams.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown closes every connection and waits for their sessions to be
// released, or for ctx to end.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing.Store(true)
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("WebSocket server stopped", "connections", len(conns))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
