package websocket

import (
	"context"
	"fmt"
	"log/slog"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/protocol"

	"github.com/google/uuid"
)

// Hub fans update events out to the sessions subscribed to a channel.
// Delivery is best-effort and at-most-once: only sessions subscribed at the
// time of the call receive the event, nothing is buffered for later.
type Hub struct {
	registry *Registry
	metrics  *Metrics
	logger   *slog.Logger
}

func NewHub(registry *Registry, metrics *Metrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		registry: registry,
		metrics:  metrics,
		logger:   logger,
	}
}

// Publish queues payload on every subscriber of channel and returns how many
// sessions accepted it. A failing session is logged and skipped.
func (h *Hub) Publish(channel string, payload []byte) int {
	delivered := 0
	for _, conn := range h.registry.Subscribers(channel) {
		if err := conn.Send(payload); err != nil {
			h.logger.Warn("Failed to deliver update", "channel", channel, "connID", conn.ID(), "error", err)
			h.metrics.observeDelivery(false)
			continue
		}
		h.metrics.observeDelivery(true)
		delivered++
	}

	h.logger.Debug("Update broadcasted", "channel", channel, "sessions", delivered)
	return delivered
}

// PublishUpdate encodes event and publishes it on the event's channel.
func (h *Hub) PublishUpdate(event *protocol.UpdateEvent) (int, error) {
	data, err := protocol.Encode(event)
	if err != nil {
		return 0, fmt.Errorf("failed to encode update: %w", err)
	}
	return h.Publish(event.Channel, data), nil
}

// PublishPostEvent notifies the owner's channel about a post mutation.
func (h *Hub) PublishPostEvent(_ context.Context, name string, post models.Post) error {
	event := protocol.NewUpdateEvent(uuid.New().String(), protocol.UserChannel(post.User), name, post)
	if _, err := h.PublishUpdate(event); err != nil {
		return err
	}
	h.metrics.observePublish(name)
	return nil
}
