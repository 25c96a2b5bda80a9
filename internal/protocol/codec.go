package protocol

import (
	"encoding/json"
	"strings"
)

// envelope is the first-pass view of any frame. Only the fields that select
// the concrete variant are read.
type envelope struct {
	ID         string  `json:"id"`
	Channel    *string `json:"channel"`
	Successful *bool   `json:"successful"`
}

// Encode serializes a message. Requests get their channel discriminator
// filled in from their type.
func Encode(msg Message) ([]byte, error) {
	switch m := msg.(type) {
	case *HandshakeRequest:
		c := *m
		c.Channel = ChannelHandshake
		return json.Marshal(&c)
	case *ConnectionRequest:
		c := *m
		c.Channel = ChannelConnect
		return json.Marshal(&c)
	case *SubscriptionRequest:
		c := *m
		c.Channel = ChannelSubscribe
		return json.Marshal(&c)
	case *UnsubscriptionRequest:
		c := *m
		c.Channel = ChannelUnsubscribe
		return json.Marshal(&c)
	case nil:
		return nil, Errorf(KindMalformedMessage, "cannot encode nil message")
	default:
		return json.Marshal(msg)
	}
}

// PeekID returns the id of a frame when it is at least valid JSON.
func PeekID(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.ID
}

// DecodeRequest decodes a client-to-server frame using its channel field.
func DecodeRequest(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Wrap(KindMalformedMessage, err, "invalid request frame")
	}
	if env.Channel == nil {
		return nil, Errorf(KindUnknownMessageType, "request has no channel")
	}

	var msg Message
	switch *env.Channel {
	case ChannelHandshake:
		msg = &HandshakeRequest{}
	case ChannelConnect:
		msg = &ConnectionRequest{}
	case ChannelSubscribe:
		msg = &SubscriptionRequest{}
	case ChannelUnsubscribe:
		msg = &UnsubscriptionRequest{}
	default:
		return nil, Errorf(KindUnknownMessageType, "unknown request channel %q", *env.Channel)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, Wrap(KindMalformedMessage, err, "invalid "+*env.Channel+" request")
	}
	return msg, nil
}

// DecodeResponse decodes a server-to-client frame. Responses carry no type
// tag, so the variant is chosen from the successful flag and the channel:
//
//	successful == false      -> *ErrorResponse
//	/meta/handshake          -> *HandshakeResponse
//	/meta/connect            -> *ConnectionResponse
//	/meta/subscribe          -> *SubscriptionResponse
//	/meta/unsubscribe        -> *UnsubscriptionResponse
//	/user/...                -> *UpdateEvent
//
// Anything else fails with KindUnknownMessageType.
func DecodeResponse(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, Wrap(KindMalformedMessage, err, "invalid response frame")
	}

	var msg Message
	switch {
	case env.Successful != nil && !*env.Successful:
		msg = &ErrorResponse{}
	case env.Channel == nil:
		return nil, Errorf(KindUnknownMessageType, "response has no channel")
	case *env.Channel == ChannelHandshake:
		msg = &HandshakeResponse{}
	case *env.Channel == ChannelConnect:
		msg = &ConnectionResponse{}
	case *env.Channel == ChannelSubscribe:
		msg = &SubscriptionResponse{}
	case *env.Channel == ChannelUnsubscribe:
		msg = &UnsubscriptionResponse{}
	case strings.HasPrefix(*env.Channel, UserChannelPrefix):
		msg = &UpdateEvent{}
	default:
		return nil, Errorf(KindUnknownMessageType, "unknown response channel %q", *env.Channel)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, Wrap(KindMalformedMessage, err, "invalid response body")
	}
	return msg, nil
}
