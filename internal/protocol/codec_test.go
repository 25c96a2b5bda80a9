package protocol

import (
	"errors"
	"testing"

	"linkinbio-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRequestRoundTrip(t *testing.T) {
	frames := map[string]string{
		"handshake":   `{"id":"1","channel":"/meta/handshake","version":"1.0","supportedConnectionTypes":["websocket"]}`,
		"connect":     `{"id":"2","channel":"/meta/connect","clientId":"C1","connectionType":"websocket"}`,
		"subscribe":   `{"id":"3","channel":"/meta/subscribe","clientId":"C1","subscription":"/user/42","ext":{"userId":"42","token":"tok","websocketToken":"ws"}}`,
		"unsubscribe": `{"id":"4","channel":"/meta/unsubscribe","clientId":"C1","subscription":"/user/42"}`,
	}

	for name, frame := range frames {
		t.Run(name, func(t *testing.T) {
			msg, err := DecodeRequest([]byte(frame))
			require.NoError(t, err)

			encoded, err := Encode(msg)
			require.NoError(t, err)
			assert.JSONEq(t, frame, string(encoded))
		})
	}
}

func TestDecodeRequestVariants(t *testing.T) {
	msg, err := DecodeRequest([]byte(`{"id":"3","channel":"/meta/subscribe","clientId":"C1","subscription":"/user/42","ext":{"userId":"42","token":"tok","websocketToken":"ws"}}`))
	require.NoError(t, err)

	sub, ok := msg.(*SubscriptionRequest)
	require.True(t, ok, "expected *SubscriptionRequest, got %T", msg)
	assert.Equal(t, "C1", sub.ClientID)
	assert.Equal(t, "/user/42", sub.Subscription)
	assert.Equal(t, Authentication{UserID: "42", UserToken: "tok", WebsocketToken: "ws"}, sub.Authentication)
}

func TestDecodeRequestErrors(t *testing.T) {
	_, err := DecodeRequest([]byte(`{"id":"1","channel":"/meta/publish"}`))
	assert.Equal(t, KindUnknownMessageType, KindOf(err))

	_, err = DecodeRequest([]byte(`{"id":"1"}`))
	assert.Equal(t, KindUnknownMessageType, KindOf(err))

	_, err = DecodeRequest([]byte(`not json`))
	assert.Equal(t, KindMalformedMessage, KindOf(err))

	_, err = DecodeRequest([]byte(`{"id":"1","channel":"/meta/connect","clientId":7}`))
	assert.Equal(t, KindMalformedMessage, KindOf(err))
}

func TestEncodeFillsRequestChannel(t *testing.T) {
	data, err := Encode(&ConnectionRequest{ID: "9", ClientID: "C1", ConnectionType: ConnectionTypeWebsocket})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"9","channel":"/meta/connect","clientId":"C1","connectionType":"websocket"}`, string(data))
}

func TestDecodeResponseRoundTrip(t *testing.T) {
	post := models.Post{ID: "p1", User: "42", URL: "example.com", Image: "example.com/image/1"}
	messages := []Message{
		&HandshakeResponse{
			ID: "1", ClientID: "C1", Channel: ChannelHandshake,
			SupportedConnectionTypes: []string{ConnectionTypeWebsocket}, Version: ServerVersion,
			Successful: true, Advice: Advice{Reconnect: "retry", Interval: 0, Timeout: 45000},
		},
		&ConnectionResponse{
			ID: "2", ClientID: "C1", Channel: ChannelConnect, Successful: true,
			Advice: Advice{Reconnect: "retry", Timeout: 45000},
		},
		&SubscriptionResponse{ID: "3", ClientID: "C1", Channel: ChannelSubscribe, Subscription: "/user/42", Successful: true},
		&UnsubscriptionResponse{ID: "4", ClientID: "C1", Channel: ChannelUnsubscribe, Subscription: "/user/42", Successful: true},
		NewUpdateEvent("5", "/user/42", UpdateCreated, post),
		NewUpdateEvent("6", "/user/42", UpdateUpdated, post),
		NewUpdateEvent("7", "/user/42", UpdateDeleted, post),
	}

	for _, want := range messages {
		data, err := Encode(want)
		require.NoError(t, err)

		got, err := DecodeResponse(data)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		again, err := Encode(got)
		require.NoError(t, err)
		assert.JSONEq(t, string(data), string(again))
	}
}

func TestDecodeResponseDispatch(t *testing.T) {
	cases := []struct {
		frame string
		want  Message
	}{
		{`{"id":"1","clientId":"C1","channel":"/meta/handshake","successful":true}`, &HandshakeResponse{}},
		{`{"id":"1","clientId":"C1","channel":"/meta/connect","successful":true}`, &ConnectionResponse{}},
		{`{"id":"1","clientId":"C1","channel":"/meta/subscribe","successful":true}`, &SubscriptionResponse{}},
		{`{"id":"1","clientId":"C1","channel":"/meta/unsubscribe","successful":true}`, &UnsubscriptionResponse{}},
		{`{"id":"1","channel":"/user/42","data":{"name":"delete_linkinbio_post","data":{"LinkinbioPost":{"id":"p"}}}}`, &UpdateEvent{}},
		{`{"id":"1","channel":"/meta/subscribe","successful":false,"error":"ChannelMismatch: no"}`, &ErrorResponse{}},
	}

	for _, tc := range cases {
		got, err := DecodeResponse([]byte(tc.frame))
		require.NoError(t, err, tc.frame)
		assert.IsType(t, tc.want, got, tc.frame)
	}
}

func TestDecodeResponseUnknown(t *testing.T) {
	_, err := DecodeResponse([]byte(`{"id":"1","channel":"/meta/publish","successful":true}`))
	assert.Equal(t, KindUnknownMessageType, KindOf(err))

	_, err = DecodeResponse([]byte(`{"id":"1","successful":true}`))
	assert.Equal(t, KindUnknownMessageType, KindOf(err))
}

func TestErrorResponseCarriesKind(t *testing.T) {
	req := &SubscriptionRequest{ID: "3", ClientID: "C1", Subscription: "/user/99"}
	resp := NewErrorResponse(req, "C1", Errorf(KindChannelMismatch, "subscription does not match user %s", "42"))

	data, err := Encode(resp)
	require.NoError(t, err)

	msg, err := DecodeResponse(data)
	require.NoError(t, err)
	decoded, ok := msg.(*ErrorResponse)
	require.True(t, ok)

	assert.Equal(t, "3", decoded.ID)
	assert.Equal(t, ChannelSubscribe, decoded.Channel)
	assert.Equal(t, "/user/99", decoded.Subscription)
	assert.False(t, decoded.Successful)

	werr := decoded.Err()
	assert.Equal(t, KindChannelMismatch, werr.Kind)
	assert.True(t, errors.Is(werr, &Error{Kind: KindChannelMismatch}))
	assert.Equal(t, CategoryAuthorization, werr.Kind.Category())
}

func TestParseWireErrorUnknownKind(t *testing.T) {
	err := ParseWireError("403::denied")
	assert.Equal(t, KindRejected, err.Kind)
	assert.Equal(t, "403::denied", err.Message)
}

func TestIsUserChannel(t *testing.T) {
	assert.True(t, IsUserChannel("/user/42"))
	assert.False(t, IsUserChannel("/user/"))
	assert.False(t, IsUserChannel("/user/42/posts"))
	assert.False(t, IsUserChannel("/users/42"))
	assert.Equal(t, "/user/42", UserChannel("42"))
}
