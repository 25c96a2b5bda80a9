package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind identifies why a protocol operation failed. Kinds travel on the
// wire inside the error field of rejection responses.
type ErrorKind string

const (
	KindUnknownMessageType        ErrorKind = "UnknownMessageType"
	KindMalformedMessage          ErrorKind = "MalformedMessage"
	KindUnsupportedConnectionType ErrorKind = "UnsupportedConnectionType"
	KindSessionNotFound           ErrorKind = "SessionNotFound"
	KindConnectionMismatch        ErrorKind = "ConnectionMismatch"
	KindSessionNotRegistered      ErrorKind = "SessionNotRegistered"
	KindInvalidWebsocketToken     ErrorKind = "InvalidWebsocketToken"
	KindInvalidUserToken          ErrorKind = "InvalidUserToken"
	KindChannelMismatch           ErrorKind = "ChannelMismatch"
	KindInvalidChannel            ErrorKind = "InvalidChannel"
	KindHandshakeTimeout          ErrorKind = "HandshakeTimeout"
	KindConnectTimeout            ErrorKind = "ConnectTimeout"
	KindSubscribeTimeout          ErrorKind = "SubscribeTimeout"
	KindRequestTimeout            ErrorKind = "RequestTimeout"
	KindNotConnected              ErrorKind = "NotConnected"
	KindTransport                 ErrorKind = "Transport"
	KindDelivery                  ErrorKind = "Delivery"
	// KindRejected is used when a peer answered successful=false with an
	// error string that carries no recognizable kind.
	KindRejected ErrorKind = "Rejected"
)

// Category groups error kinds by how they propagate.
type Category string

const (
	CategoryTransport          Category = "TransportError"
	CategoryProtocolViolation  Category = "ProtocolViolation"
	CategoryAuthorization      Category = "AuthorizationFailure"
	CategoryCorrelationTimeout Category = "CorrelationTimeout"
	CategoryDelivery           Category = "DeliveryFailure"
)

func (k ErrorKind) String() string {
	return string(k)
}

// Category returns the propagation category for the kind.
func (k ErrorKind) Category() Category {
	switch k {
	case KindTransport, KindNotConnected:
		return CategoryTransport
	case KindHandshakeTimeout, KindConnectTimeout, KindSubscribeTimeout, KindRequestTimeout:
		return CategoryCorrelationTimeout
	case KindDelivery:
		return CategoryDelivery
	case KindSessionNotFound, KindConnectionMismatch, KindSessionNotRegistered,
		KindInvalidWebsocketToken, KindInvalidUserToken, KindChannelMismatch:
		return CategoryAuthorization
	default:
		return CategoryProtocolViolation
	}
}

var knownKinds = map[ErrorKind]bool{
	KindUnknownMessageType: true, KindMalformedMessage: true, KindUnsupportedConnectionType: true,
	KindSessionNotFound: true, KindConnectionMismatch: true, KindSessionNotRegistered: true,
	KindInvalidWebsocketToken: true, KindInvalidUserToken: true, KindChannelMismatch: true,
	KindInvalidChannel: true, KindHandshakeTimeout: true, KindConnectTimeout: true,
	KindSubscribeTimeout: true, KindRequestTimeout: true, KindNotConnected: true,
	KindTransport: true, KindDelivery: true, KindRejected: true,
}

// Error is the typed error for every protocol failure.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error around a cause.
func Wrap(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports a match when target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// WireString is the representation placed in the error field of a response.
func (e *Error) WireString() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// KindOf extracts the kind of a protocol error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// ParseWireError turns an error field received on the wire back into an *Error.
func ParseWireError(s string) *Error {
	kind, msg, found := strings.Cut(s, ": ")
	if found && knownKinds[ErrorKind(kind)] {
		return &Error{Kind: ErrorKind(kind), Message: msg}
	}
	return &Error{Kind: KindRejected, Message: s}
}
