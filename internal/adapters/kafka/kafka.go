package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"linkinbio-service/internal/models"
	"linkinbio-service/internal/protocol"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

func InitKafkaProducer(brokers []string, clientID string) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy  // Enable compression
	config.Producer.Partitioner = sarama.NewHashPartitioner // Events of one user stay ordered
	config.Version = sarama.V2_0_0_0
	config.ClientID = clientID
	config.Producer.MaxMessageBytes = 1000000

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return producer, nil
}

// Producer mirrors post mutations onto a topic, keyed by owner.
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

// PublishPostEvent writes the same update document the websocket subscribers receive.
func (p *Producer) PublishPostEvent(_ context.Context, name string, post models.Post) error {
	event := protocol.NewUpdateEvent(uuid.New().String(), protocol.UserChannel(post.User), name, post)
	value, err := protocol.Encode(event)
	if err != nil {
		return fmt.Errorf("encode post event: %w", err)
	}

	partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(post.User),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event"), Value: []byte(name)},
		},
	})
	if err != nil {
		return fmt.Errorf("send post event: %w", err)
	}

	p.logger.Debug("Post event published", "topic", p.topic, "partition", partition, "offset", offset, "name", name)
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
