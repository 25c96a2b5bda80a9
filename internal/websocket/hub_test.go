package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/protocol"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubPublishDeliversOnlyToSubscribers(t *testing.T) {
	r := NewRegistry()
	metrics := NewMetrics(prometheus.NewRegistry())
	hub := NewHub(r, metrics, nil)

	const sessions, subscribed = 7, 4
	var targets, others []*mockConn

	for i := 0; i < sessions; i++ {
		conn, mc := newTestConnection(t)
		s := r.Create(conn)
		if i < subscribed {
			require.NoError(t, r.AddSubscription(s.ClientID, "/user/42"))
			targets = append(targets, mc)
		} else {
			require.NoError(t, r.AddSubscription(s.ClientID, "/user/7"))
			others = append(others, mc)
		}
	}

	delivered := hub.Publish("/user/42", []byte(`{"id":"e1"}`))
	assert.Equal(t, subscribed, delivered)

	for _, mc := range targets {
		msgs := mc.waitMessages(t, 1)
		assert.Len(t, msgs, 1)
		assert.JSONEq(t, `{"id":"e1"}`, string(msgs[0]))
	}
	for _, mc := range others {
		assert.Empty(t, mc.getMessages())
	}

	assert.Equal(t, float64(subscribed), testutil.ToFloat64(metrics.deliveries))
}

func TestHubPublishIsolatesFailures(t *testing.T) {
	r := NewRegistry()
	metrics := NewMetrics(prometheus.NewRegistry())
	hub := NewHub(r, metrics, nil)

	healthy, mc := newTestConnection(t)
	broken, _ := newTestConnection(t)
	for _, conn := range []*Connection{broken, healthy} {
		s := r.Create(conn)
		require.NoError(t, r.AddSubscription(s.ClientID, "/user/42"))
	}
	broken.Close()

	delivered := hub.Publish("/user/42", []byte(`{"id":"e2"}`))

	assert.Equal(t, 1, delivered)
	assert.Len(t, mc.waitMessages(t, 1), 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.deliveryFailures))
}

func TestHubNoRetroactiveDelivery(t *testing.T) {
	r := NewRegistry()
	hub := NewHub(r, nil, nil)
	conn, mc := newTestConnection(t)
	s := r.Create(conn)

	assert.Equal(t, 0, hub.Publish("/user/42", []byte(`{"id":"early"}`)))

	require.NoError(t, r.AddSubscription(s.ClientID, "/user/42"))
	assert.Equal(t, 1, hub.Publish("/user/42", []byte(`{"id":"late"}`)))

	msgs := mc.waitMessages(t, 1)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"id":"late"}`, string(msgs[0]))
}

func TestHubPublishPostEvent(t *testing.T) {
	r := NewRegistry()
	metrics := NewMetrics(prometheus.NewRegistry())
	hub := NewHub(r, metrics, nil)
	conn, mc := newTestConnection(t)
	s := r.Create(conn)
	require.NoError(t, r.AddSubscription(s.ClientID, "/user/42"))

	post := models.Post{ID: "p1", User: "42", URL: "example.com", Image: "example.com/image/1"}
	require.NoError(t, hub.PublishPostEvent(context.Background(), protocol.UpdateCreated, post))

	msgs := mc.waitMessages(t, 1)
	msg, err := protocol.DecodeResponse(msgs[0])
	require.NoError(t, err)

	event, ok := msg.(*protocol.UpdateEvent)
	require.True(t, ok)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, "/user/42", event.Channel)
	assert.Equal(t, protocol.UpdateCreated, event.Data.Name)
	assert.Equal(t, post, event.Data.Data.Post)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(msgs[0], &raw))
	assert.Contains(t, raw["data"].(map[string]any)["data"], "LinkinbioPost")

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.publishes.WithLabelValues(protocol.UpdateCreated)))
}
