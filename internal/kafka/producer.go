// Package kafka provides the producer side of the messaging layer.
// The data source behind the pipeline under test is pluggable: tests
// substitute the in-memory producer for a real broker connection.
package kafka

import (
	"context"
	"fmt"

	"github.com/IBM/sarama"
)

// Producer publishes wire-ready records
type Producer interface {
	// Produce sends a single message
	Produce(ctx context.Context, msg *sarama.ProducerMessage) error

	// ProduceBatch sends multiple messages
	ProduceBatch(ctx context.Context, msgs []*sarama.ProducerMessage) error

	// Flush flushes pending messages
	Flush(ctx context.Context) error

	// Close closes the producer
	Close() error
}

// SyncProducer wraps a Sarama sync producer
type SyncProducer struct {
	client   sarama.Client
	producer sarama.SyncProducer
}

// NewSyncProducer connects a synchronous producer to the given brokers
func NewSyncProducer(brokers []string) (*SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to create sync producer: %w", err)
	}

	return &SyncProducer{client: client, producer: producer}, nil
}

func (p *SyncProducer) Produce(ctx context.Context, msg *sarama.ProducerMessage) error {
	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *SyncProducer) ProduceBatch(ctx context.Context, msgs []*sarama.ProducerMessage) error {
	return p.producer.SendMessages(msgs)
}

func (p *SyncProducer) Flush(ctx context.Context) error {
	// Sarama sync producer flushes automatically
	return nil
}

func (p *SyncProducer) Close() error {
	if p.producer != nil {
		if err := p.producer.Close(); err != nil {
			return err
		}
	}
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}
