package protocol

import (
	"strings"

	"linkinbio-service/internal/models"
)

// Meta channels of the negotiation protocol
const (
	ChannelHandshake   = "/meta/handshake"
	ChannelConnect     = "/meta/connect"
	ChannelSubscribe   = "/meta/subscribe"
	ChannelUnsubscribe = "/meta/unsubscribe"

	UserChannelPrefix = "/user/"

	ConnectionTypeWebsocket = "websocket"
	ServerVersion           = "0.0.1"
	ClientVersion           = "1.0"
)

// Update payload names
const (
	UpdateCreated = "create_linkinbio_post"
	UpdateUpdated = "update_linkinbio_post"
	UpdateDeleted = "delete_linkinbio_post"
)

// UserChannel returns the fanout channel of a user.
func UserChannel(userID string) string {
	return UserChannelPrefix + userID
}

// IsUserChannel reports whether channel is a well-formed user channel.
func IsUserChannel(channel string) bool {
	id, ok := strings.CutPrefix(channel, UserChannelPrefix)
	return ok && id != "" && !strings.Contains(id, "/")
}

// Message is implemented by every protocol variant.
type Message interface {
	MessageID() string
	MessageChannel() string
}

// Advice tells the client how to behave when the connection drops.
type Advice struct {
	Reconnect string `json:"reconnect"`
	Interval  int    `json:"interval"`
	Timeout   int    `json:"timeout"`
}

// Authentication is the credential block attached to subscriptions.
type Authentication struct {
	UserID         string `json:"userId"`
	UserToken      string `json:"token"`
	WebsocketToken string `json:"websocketToken"`
}

/** -------------------- Requests -------------------- */

type HandshakeRequest struct {
	ID                       string   `json:"id"`
	Channel                  string   `json:"channel"`
	Version                  string   `json:"version"`
	SupportedConnectionTypes []string `json:"supportedConnectionTypes"`
}

type ConnectionRequest struct {
	ID             string `json:"id"`
	Channel        string `json:"channel"`
	ClientID       string `json:"clientId"`
	ConnectionType string `json:"connectionType"`
}

type SubscriptionRequest struct {
	ID             string         `json:"id"`
	Channel        string         `json:"channel"`
	ClientID       string         `json:"clientId"`
	Subscription   string         `json:"subscription"`
	Authentication Authentication `json:"ext"`
}

type UnsubscriptionRequest struct {
	ID           string `json:"id"`
	Channel      string `json:"channel"`
	ClientID     string `json:"clientId"`
	Subscription string `json:"subscription"`
}

/** -------------------- Responses -------------------- */

type HandshakeResponse struct {
	ID                       string   `json:"id"`
	ClientID                 string   `json:"clientId"`
	Channel                  string   `json:"channel"`
	SupportedConnectionTypes []string `json:"supportedConnectionTypes"`
	Version                  string   `json:"version"`
	Successful               bool     `json:"successful"`
	Error                    string   `json:"error,omitempty"`
	Advice                   Advice   `json:"advice"`
}

type ConnectionResponse struct {
	ID         string `json:"id"`
	ClientID   string `json:"clientId"`
	Channel    string `json:"channel"`
	Successful bool   `json:"successful"`
	Advice     Advice `json:"advice"`
}

type SubscriptionResponse struct {
	ID           string `json:"id"`
	ClientID     string `json:"clientId"`
	Channel      string `json:"channel"`
	Subscription string `json:"subscription"`
	Successful   bool   `json:"successful"`
	Error        string `json:"error,omitempty"`
}

type UnsubscriptionResponse struct {
	ID           string `json:"id"`
	ClientID     string `json:"clientId"`
	Channel      string `json:"channel"`
	Subscription string `json:"subscription"`
	Successful   bool   `json:"successful"`
	Error        string `json:"error,omitempty"`
}

// ErrorResponse answers any request the server rejected.
type ErrorResponse struct {
	ID           string `json:"id,omitempty"`
	ClientID     string `json:"clientId,omitempty"`
	Channel      string `json:"channel,omitempty"`
	Subscription string `json:"subscription,omitempty"`
	Successful   bool   `json:"successful"`
	Error        string `json:"error"`
}

// Err converts the wire rejection back into a typed error.
func (r *ErrorResponse) Err() *Error {
	return ParseWireError(r.Error)
}

// NewErrorResponse builds the rejection for a request.
func NewErrorResponse(req Message, clientID string, err *Error) *ErrorResponse {
	resp := &ErrorResponse{
		ClientID:   clientID,
		Successful: false,
		Error:      err.WireString(),
	}
	if req != nil {
		resp.ID = req.MessageID()
		resp.Channel = req.MessageChannel()
		switch r := req.(type) {
		case *SubscriptionRequest:
			resp.Subscription = r.Subscription
		case *UnsubscriptionRequest:
			resp.Subscription = r.Subscription
		}
	}
	return resp
}

/** -------------------- Updates -------------------- */

// UpdateEvent is pushed by the server to every session subscribed to Channel.
type UpdateEvent struct {
	ID      string     `json:"id"`
	Channel string     `json:"channel"`
	Data    UpdateData `json:"data"`
}

// UpdateData is tagged by Name with one of the Update* constants.
type UpdateData struct {
	Name string   `json:"name"`
	Data PostData `json:"data"`
}

type PostData struct {
	Post models.Post `json:"LinkinbioPost"`
}

// NewUpdateEvent wraps a post mutation for channel.
func NewUpdateEvent(id, channel, name string, post models.Post) *UpdateEvent {
	return &UpdateEvent{
		ID:      id,
		Channel: channel,
		Data: UpdateData{
			Name: name,
			Data: PostData{Post: post},
		},
	}
}

func (m *HandshakeRequest) MessageID() string { return m.ID }
func (m *HandshakeRequest) MessageChannel() string { return ChannelHandshake }
func (m *ConnectionRequest) MessageID() string { return m.ID }
func (m *ConnectionRequest) MessageChannel() string { return ChannelConnect }
func (m *SubscriptionRequest) MessageID() string { return m.ID }
func (m *SubscriptionRequest) MessageChannel() string { return ChannelSubscribe }
func (m *UnsubscriptionRequest) MessageID() string { return m.ID }
func (m *UnsubscriptionRequest) MessageChannel() string { return ChannelUnsubscribe }

func (m *HandshakeResponse) MessageID() string { return m.ID }
func (m *HandshakeResponse) MessageChannel() string { return ChannelHandshake }
func (m *ConnectionResponse) MessageID() string { return m.ID }
func (m *ConnectionResponse) MessageChannel() string { return ChannelConnect }
func (m *SubscriptionResponse) MessageID() string { return m.ID }
func (m *SubscriptionResponse) MessageChannel() string { return ChannelSubscribe }
func (m *UnsubscriptionResponse) MessageID() string { return m.ID }
func (m *UnsubscriptionResponse) MessageChannel() string { return ChannelUnsubscribe }
func (m *ErrorResponse) MessageID() string { return m.ID }
func (m *ErrorResponse) MessageChannel() string { return m.Channel }
func (m *UpdateEvent) MessageID() string { return m.ID }
func (m *UpdateEvent) MessageChannel() string { return m.Channel }
