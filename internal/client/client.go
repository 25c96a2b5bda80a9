package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"linkinbio-service/internal/protocol"

	"github.com/gorilla/websocket"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	defaultUpdateBuffer   = 64
	defaultOutboundBuffer = 16
	closeGrace            = time.Second
)

var (
	ErrAlreadyConnected = errors.New("client already connected")
	ErrClientClosed     = errors.New("client connection closed")
)

// Config configures a Client.
type Config struct {
	// URL of the update stream, e.g. ws://localhost:8080/updates
	URL string
	// WebsocketToken is the websocket-level credential sent with subscriptions.
	WebsocketToken string
	Header         http.Header
	Dialer         *websocket.Dialer

	HandshakeTimeout time.Duration
	ConnectTimeout   time.Duration
	SubscribeTimeout time.Duration

	// UpdateBuffer bounds the Updates channel; events beyond it are dropped.
	UpdateBuffer int
	Logger       *slog.Logger
}

// Client drives one duplex stream through handshake, connect and
// subscriptions and exposes the update events pushed by the server.
type Client struct {
	cfg     Config
	state   *stateCell
	updates chan *protocol.UpdateEvent
	logger  *slog.Logger

	mu       sync.Mutex
	link     *link
	clientID string
}

// link is everything owned by one open stream. Its tasks are joined on
// teardown, so nothing outlives the stream.
type link struct {
	conn       *websocket.Conn
	outbound   chan []byte
	correlator *Correlator
	state      *stateCell

	ctx    context.Context
	cancel context.CancelFunc
	tasks  sync.WaitGroup
}

func New(cfg Config) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultRequestTimeout
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultRequestTimeout
	}
	if cfg.SubscribeTimeout <= 0 {
		cfg.SubscribeTimeout = DefaultRequestTimeout
	}
	if cfg.UpdateBuffer <= 0 {
		cfg.UpdateBuffer = defaultUpdateBuffer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		cfg:     cfg,
		state:   newStateCell(),
		updates: make(chan *protocol.UpdateEvent, cfg.UpdateBuffer),
		logger:  cfg.Logger,
	}
}

func (c *Client) State() State {
	return c.state.Get()
}

// AwaitState blocks until pred holds for the client state or ctx ends.
func (c *Client) AwaitState(ctx context.Context, pred func(State) bool) (State, error) {
	return c.state.Await(ctx, pred)
}

// ClientID returns the identifier assigned by the last successful handshake.
func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// Updates delivers the events of every subscribed channel. The channel stays
// open across reconnects.
func (c *Client) Updates() <-chan *protocol.UpdateEvent {
	return c.updates
}

// Connect opens the stream and negotiates a registered session. On failure
// the stream is torn down and the client ends DISCONNECTED.
func (c *Client) Connect(ctx context.Context) error {
	if !c.state.CompareAndSet(Connecting, NotConnected, Disconnected) {
		return ErrAlreadyConnected
	}

	conn, _, err := c.cfg.Dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		c.state.Set(Disconnected)
		return protocol.Wrap(protocol.KindTransport, err, "dial "+c.cfg.URL)
	}

	l := c.open(conn)

	resp, err := c.call(ctx, l, c.cfg.HandshakeTimeout, protocol.KindHandshakeTimeout, func(id string) protocol.Message {
		return &protocol.HandshakeRequest{
			ID:                       id,
			Version:                  protocol.ClientVersion,
			SupportedConnectionTypes: []string{protocol.ConnectionTypeWebsocket},
		}
	})
	if err != nil {
		c.teardown(l)
		return err
	}
	hs, ok := resp.(*protocol.HandshakeResponse)
	if !ok {
		c.teardown(l)
		return protocol.Errorf(protocol.KindMalformedMessage, "unexpected handshake response %T", resp)
	}

	c.mu.Lock()
	c.clientID = hs.ClientID
	c.mu.Unlock()

	resp, err = c.call(ctx, l, c.cfg.ConnectTimeout, protocol.KindConnectTimeout, func(id string) protocol.Message {
		return &protocol.ConnectionRequest{
			ID:             id,
			ClientID:       hs.ClientID,
			ConnectionType: protocol.ConnectionTypeWebsocket,
		}
	})
	if err != nil {
		c.teardown(l)
		return err
	}
	if _, ok := resp.(*protocol.ConnectionResponse); !ok {
		c.teardown(l)
		return protocol.Errorf(protocol.KindMalformedMessage, "unexpected connect response %T", resp)
	}

	if !c.state.CompareAndSet(Connected, Connecting) {
		c.teardown(l)
		return protocol.Errorf(protocol.KindTransport, "stream closed while connecting")
	}
	c.logger.Info("Connected to update stream", "clientID", hs.ClientID, "url", c.cfg.URL)
	return nil
}

// Subscribe waits for the client to be CONNECTED and subscribes to the
// channel of userID. An empty token sends userID as the token placeholder.
func (c *Client) Subscribe(ctx context.Context, userID, token string) error {
	l, clientID, err := c.awaitConnected(ctx)
	if err != nil {
		return err
	}
	if token == "" {
		token = userID
	}

	channel := protocol.UserChannel(userID)
	resp, err := c.call(ctx, l, c.cfg.SubscribeTimeout, protocol.KindSubscribeTimeout, func(id string) protocol.Message {
		return &protocol.SubscriptionRequest{
			ID:           id,
			ClientID:     clientID,
			Subscription: channel,
			Authentication: protocol.Authentication{
				UserID:         userID,
				UserToken:      token,
				WebsocketToken: c.cfg.WebsocketToken,
			},
		}
	})
	if err != nil {
		return err
	}
	if _, ok := resp.(*protocol.SubscriptionResponse); !ok {
		return protocol.Errorf(protocol.KindMalformedMessage, "unexpected subscribe response %T", resp)
	}

	c.logger.Info("Subscribed", "clientID", clientID, "channel", channel)
	return nil
}

// Unsubscribe stops the updates of userID's channel.
func (c *Client) Unsubscribe(ctx context.Context, userID string) error {
	l, clientID, err := c.awaitConnected(ctx)
	if err != nil {
		return err
	}

	resp, err := c.call(ctx, l, c.cfg.SubscribeTimeout, protocol.KindSubscribeTimeout, func(id string) protocol.Message {
		return &protocol.UnsubscriptionRequest{
			ID:           id,
			ClientID:     clientID,
			Subscription: protocol.UserChannel(userID),
		}
	})
	if err != nil {
		return err
	}
	if _, ok := resp.(*protocol.UnsubscriptionResponse); !ok {
		return protocol.Errorf(protocol.KindMalformedMessage, "unexpected unsubscribe response %T", resp)
	}
	return nil
}

// Disconnect closes the stream and returns once DISCONNECTED was observed
// and the stream tasks finished, also when another Disconnect is already in
// progress. Disconnecting an idle client is a no-op.
func (c *Client) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	l := c.link
	c.mu.Unlock()

	if l == nil {
		return nil
	}
	if !c.state.CompareAndSet(Disconnecting, Connecting, Connected) {
		if c.state.Get() != Disconnecting {
			return nil
		}
		// another caller or the listener is already tearing the stream down
		if _, err := c.state.Await(ctx, isDisconnected); err != nil {
			return err
		}
		l.tasks.Wait()
		return nil
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := l.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace)); err != nil {
		l.conn.Close()
	}

	waitCtx, cancel := context.WithTimeout(ctx, closeGrace)
	defer cancel()
	if _, err := c.state.Await(waitCtx, isDisconnected); err != nil {
		// the peer did not close in time
		l.conn.Close()
		c.state.Await(context.Background(), isDisconnected)
	}

	l.cancel()
	l.tasks.Wait()
	c.logger.Info("Disconnected from update stream")
	return nil
}

func isDisconnected(s State) bool {
	return s == Disconnected
}

func (c *Client) awaitConnected(ctx context.Context) (*link, string, error) {
	s, err := c.state.Await(ctx, func(s State) bool {
		return s == Connected || s == Disconnecting || s == Disconnected
	})
	if err != nil {
		return nil, "", err
	}
	if s != Connected {
		return nil, "", protocol.Errorf(protocol.KindNotConnected, "client is %s", s)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.link == nil {
		return nil, "", protocol.Errorf(protocol.KindNotConnected, "client has no stream")
	}
	return c.link, c.clientID, nil
}

// call bounds one request/response exchange; running out of time fails with kind.
func (c *Client) call(ctx context.Context, l *link, timeout time.Duration, kind protocol.ErrorKind, build func(id string) protocol.Message) (protocol.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := l.correlator.Call(ctx, build)
	if errors.Is(err, context.DeadlineExceeded) {
		return nil, protocol.Wrap(kind, err, fmt.Sprintf("no response within %s", timeout))
	}
	return resp, err
}

func (c *Client) open(conn *websocket.Conn) *link {
	ctx, cancel := context.WithCancel(context.Background())
	l := &link{
		conn:     conn,
		outbound: make(chan []byte, defaultOutboundBuffer),
		state:    c.state,
		ctx:      ctx,
		cancel:   cancel,
	}
	l.correlator = NewCorrelator(l)

	c.mu.Lock()
	c.link = l
	c.mu.Unlock()

	l.tasks.Add(2)
	go c.listen(l)
	go c.sendLoop(l)
	return l
}

// teardown closes a stream that failed to negotiate and joins its tasks.
func (c *Client) teardown(l *link) {
	l.conn.Close()
	c.state.Await(context.Background(), isDisconnected)
	l.cancel()
	l.tasks.Wait()
}

// listen reads frames in arrival order. Its exit is the only path into
// DISCONNECTED.
func (c *Client) listen(l *link) {
	defer l.tasks.Done()

	for {
		_, data, err := l.conn.ReadMessage()
		if err != nil {
			if c.state.Get() != Disconnecting {
				c.logger.Warn("Update stream closed", "error", err)
			}
			l.correlator.Close(protocol.Wrap(protocol.KindTransport, err, "stream closed"))
			l.cancel()
			l.conn.Close()
			c.state.Set(Disconnected)
			return
		}

		msg, err := protocol.DecodeResponse(data)
		if err != nil {
			c.logger.Warn("Dropping undecodable frame", "error", err)
			continue
		}

		if event, ok := msg.(*protocol.UpdateEvent); ok {
			select {
			case c.updates <- event:
			default:
				c.logger.Warn("Update buffer full, dropping event", "channel", event.Channel, "id", event.ID)
			}
			continue
		}

		if !l.correlator.Resolve(msg) {
			c.logger.Debug("Unmatched response", "id", msg.MessageID(), "channel", msg.MessageChannel())
		}
	}
}

// sendLoop is the single writer of the stream.
func (c *Client) sendLoop(l *link) {
	defer l.tasks.Done()

	for {
		select {
		case data := <-l.outbound:
			if err := l.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("Error writing message", "error", err)
				l.conn.Close()
				return
			}
		case <-l.ctx.Done():
			return
		}
	}
}

// Send implements Transport. Only a handshake may be sent before the
// client started connecting.
func (l *link) Send(ctx context.Context, msg protocol.Message) error {
	if _, isHandshake := msg.(*protocol.HandshakeRequest); !isHandshake {
		if s := l.state.Get(); s == NotConnected || s == Disconnected {
			return protocol.Errorf(protocol.KindNotConnected, "cannot send %s while %s", msg.MessageChannel(), s)
		}
	}

	data, err := protocol.Encode(msg)
	if err != nil {
		return err
	}

	select {
	case l.outbound <- data:
		return nil
	case <-l.ctx.Done():
		return ErrClientClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
