package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/protocol"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProducerPublishPostEvent(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	defer mock.Close()

	var sent []byte
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "42" {
			return errors.New("message not keyed by owner")
		}
		sent, err = msg.Value.Encode()
		return err
	})

	p := NewProducer(mock, "linkinbio-posts", nil)
	post := models.Post{ID: "p1", User: "42", URL: "example.com", Image: "img"}
	require.NoError(t, p.PublishPostEvent(context.Background(), protocol.UpdateCreated, post))

	var event protocol.UpdateEvent
	require.NoError(t, json.Unmarshal(sent, &event))
	assert.Equal(t, "/user/42", event.Channel)
	assert.Equal(t, protocol.UpdateCreated, event.Data.Name)
	assert.Equal(t, "p1", event.Data.Data.Post.ID)
	assert.NotEmpty(t, event.ID)
}

func TestProducerPublishFailure(t *testing.T) {
	mock := mocks.NewSyncProducer(t, nil)
	defer mock.Close()
	mock.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewProducer(mock, "linkinbio-posts", nil)
	err := p.PublishPostEvent(context.Background(), protocol.UpdateDeleted, models.Post{ID: "p1", User: "42"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}
