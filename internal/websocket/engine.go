package websocket

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"linkinbio-service/internal/protocol"
)

// Authenticator resolves the credentials carried by subscription requests.
type Authenticator interface {
	// ResolveUser returns the user id a user token belongs to.
	ResolveUser(ctx context.Context, token string) (string, error)
	// ValidateWebsocketToken checks the websocket-level credential.
	ValidateWebsocketToken(token string) bool
}

// DefaultAdvice is sent with handshake and connect responses.
var DefaultAdvice = protocol.Advice{Reconnect: "retry", Interval: 0, Timeout: 45000}

// Engine validates incoming requests against the session registry and
// produces their responses. Session state lives in the registry, never in
// the engine, so one Engine serves every connection.
type Engine struct {
	registry *Registry
	auth     Authenticator
	advice   protocol.Advice
	metrics  *Metrics
	logger   *slog.Logger
}

func NewEngine(registry *Registry, auth Authenticator, advice protocol.Advice, metrics *Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if advice.Reconnect == "" {
		advice = DefaultAdvice
	}
	return &Engine{
		registry: registry,
		auth:     auth,
		advice:   advice,
		metrics:  metrics,
		logger:   logger,
	}
}

// Handle runs one request arriving on conn. The result is either the
// request's success response or an *protocol.ErrorResponse, never nil.
func (e *Engine) Handle(ctx context.Context, conn *Connection, req protocol.Message) protocol.Message {
	var (
		resp protocol.Message
		perr *protocol.Error
		cid  string
	)

	switch r := req.(type) {
	case *protocol.HandshakeRequest:
		resp, perr = e.handshake(conn, r)
	case *protocol.ConnectionRequest:
		cid = r.ClientID
		resp, perr = e.connect(conn, r)
	case *protocol.SubscriptionRequest:
		cid = r.ClientID
		resp, perr = e.subscribe(ctx, conn, r)
	case *protocol.UnsubscriptionRequest:
		cid = r.ClientID
		resp, perr = e.unsubscribe(conn, r)
	default:
		perr = protocol.Errorf(protocol.KindUnknownMessageType, "unexpected request %T", req)
	}

	channel := ""
	if req != nil {
		channel = req.MessageChannel()
	}

	if perr != nil {
		e.logger.Warn("Request rejected",
			"connID", conn.ID(),
			"clientID", cid,
			"channel", channel,
			"kind", perr.Kind,
			"error", perr.Message)
		e.metrics.observeRequest(channel, string(perr.Kind))
		return protocol.NewErrorResponse(req, cid, perr)
	}

	e.metrics.observeRequest(channel, "ok")
	return resp
}

func (e *Engine) handshake(conn *Connection, req *protocol.HandshakeRequest) (protocol.Message, *protocol.Error) {
	if !slices.Contains(req.SupportedConnectionTypes, protocol.ConnectionTypeWebsocket) {
		return nil, protocol.Errorf(protocol.KindUnsupportedConnectionType,
			"client supports %v, server requires %s", req.SupportedConnectionTypes, protocol.ConnectionTypeWebsocket)
	}

	session := e.registry.Create(conn)
	// the read loop may have ended while this handler ran
	if conn.IsClosed() {
		e.registry.Remove(session.ClientID)
		return nil, protocol.Errorf(protocol.KindTransport, "connection closed during handshake")
	}

	e.logger.Info("Session created", "connID", conn.ID(), "clientID", session.ClientID)

	return &protocol.HandshakeResponse{
		ID:                       req.ID,
		ClientID:                 session.ClientID,
		Channel:                  protocol.ChannelHandshake,
		SupportedConnectionTypes: []string{protocol.ConnectionTypeWebsocket},
		Version:                  protocol.ServerVersion,
		Successful:               true,
		Advice:                   e.advice,
	}, nil
}

func (e *Engine) connect(conn *Connection, req *protocol.ConnectionRequest) (protocol.Message, *protocol.Error) {
	err := e.registry.update(req.ClientID, func(s *Session) error {
		if req.ConnectionType != protocol.ConnectionTypeWebsocket {
			return protocol.Errorf(protocol.KindUnsupportedConnectionType, "connection type %q is not supported", req.ConnectionType)
		}
		if s.Conn != conn {
			return protocol.Errorf(protocol.KindConnectionMismatch, "client %s belongs to another connection", req.ClientID)
		}
		s.Registered = true
		return nil
	})
	if perr := sessionError(req.ClientID, err); perr != nil {
		return nil, perr
	}

	e.logger.Info("Session registered", "connID", conn.ID(), "clientID", req.ClientID)

	return &protocol.ConnectionResponse{
		ID:         req.ID,
		ClientID:   req.ClientID,
		Channel:    protocol.ChannelConnect,
		Successful: true,
		Advice:     e.advice,
	}, nil
}

func (e *Engine) subscribe(ctx context.Context, conn *Connection, req *protocol.SubscriptionRequest) (protocol.Message, *protocol.Error) {
	// session checks run before token resolution
	session, ok := e.registry.Lookup(req.ClientID)
	if !ok {
		return nil, protocol.Errorf(protocol.KindSessionNotFound, "no session for client %s", req.ClientID)
	}
	if perr := checkSession(&session, conn, req.ClientID); perr != nil {
		return nil, perr
	}

	if !protocol.IsUserChannel(req.Subscription) {
		return nil, protocol.Errorf(protocol.KindInvalidChannel, "%q is not a user channel", req.Subscription)
	}

	creds := req.Authentication
	if e.auth == nil || !e.auth.ValidateWebsocketToken(creds.WebsocketToken) {
		return nil, protocol.Errorf(protocol.KindInvalidWebsocketToken, "websocket token rejected")
	}

	userID, err := e.auth.ResolveUser(ctx, creds.UserToken)
	if err != nil {
		return nil, protocol.Wrap(protocol.KindInvalidUserToken, err, "user token rejected")
	}
	if userID != creds.UserID {
		return nil, protocol.Errorf(protocol.KindInvalidUserToken, "token belongs to user %s, not %s", userID, creds.UserID)
	}
	if req.Subscription != protocol.UserChannel(userID) {
		return nil, protocol.Errorf(protocol.KindChannelMismatch, "user %s cannot subscribe to %s", userID, req.Subscription)
	}

	// the session may have changed while the token was resolved
	err = e.registry.update(req.ClientID, func(s *Session) error {
		if perr := checkSession(s, conn, req.ClientID); perr != nil {
			return perr
		}
		s.Subscriptions[req.Subscription] = struct{}{}
		return nil
	})
	if perr := sessionError(req.ClientID, err); perr != nil {
		return nil, perr
	}

	e.logger.Info("Session subscribed", "connID", conn.ID(), "clientID", req.ClientID, "channel", req.Subscription)

	return &protocol.SubscriptionResponse{
		ID:           req.ID,
		ClientID:     req.ClientID,
		Channel:      protocol.ChannelSubscribe,
		Subscription: req.Subscription,
		Successful:   true,
	}, nil
}

func (e *Engine) unsubscribe(conn *Connection, req *protocol.UnsubscriptionRequest) (protocol.Message, *protocol.Error) {
	if !protocol.IsUserChannel(req.Subscription) {
		return nil, protocol.Errorf(protocol.KindInvalidChannel, "%q is not a user channel", req.Subscription)
	}

	var removed bool
	err := e.registry.update(req.ClientID, func(s *Session) error {
		if perr := checkSession(s, conn, req.ClientID); perr != nil {
			return perr
		}
		_, removed = s.Subscriptions[req.Subscription]
		delete(s.Subscriptions, req.Subscription)
		return nil
	})
	if perr := sessionError(req.ClientID, err); perr != nil {
		return nil, perr
	}

	e.logger.Info("Session unsubscribed",
		"connID", conn.ID(),
		"clientID", req.ClientID,
		"channel", req.Subscription,
		"removed", removed)

	return &protocol.UnsubscriptionResponse{
		ID:           req.ID,
		ClientID:     req.ClientID,
		Channel:      protocol.ChannelUnsubscribe,
		Subscription: req.Subscription,
		Successful:   true,
	}, nil
}

// checkSession enforces that a session is registered and owned by conn.
func checkSession(s *Session, conn *Connection, clientID string) *protocol.Error {
	if s.Conn != conn {
		return protocol.Errorf(protocol.KindConnectionMismatch, "client %s belongs to another connection", clientID)
	}
	if !s.Registered {
		return protocol.Errorf(protocol.KindSessionNotRegistered, "client %s has not connected", clientID)
	}
	return nil
}

func sessionError(clientID string, err error) *protocol.Error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionNotFound) {
		return protocol.Errorf(protocol.KindSessionNotFound, "no session for client %s", clientID)
	}
	var perr *protocol.Error
	if errors.As(err, &perr) {
		return perr
	}
	return protocol.Wrap(protocol.KindTransport, err, "session update failed")
}
