package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/IBM/sarama"
)

// Sink receives every message published through a MemoryProducer
type Sink func(msg *sarama.ProducerMessage) error

// MemoryProducer is the synthetic in-memory data source used in place
// of a real broker connection. Published messages are retained in
// order and optionally handed to a sink.
type MemoryProducer struct {
	mu       sync.Mutex
	sink     Sink
	messages []*sarama.ProducerMessage
	closed   bool
}

// NewMemoryProducer creates an in-memory producer. A nil sink only
// records messages.
func NewMemoryProducer(sink Sink) *MemoryProducer {
	return &MemoryProducer{sink: sink}
}

func (p *MemoryProducer) Produce(ctx context.Context, msg *sarama.ProducerMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("producer is closed")
	}
	p.messages = append(p.messages, msg)
	sink := p.sink
	p.mu.Unlock()

	if sink != nil {
		return sink(msg)
	}
	return nil
}

func (p *MemoryProducer) ProduceBatch(ctx context.Context, msgs []*sarama.ProducerMessage) error {
	for _, msg := range msgs {
		if err := p.Produce(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

func (p *MemoryProducer) Flush(ctx context.Context) error {
	return nil
}

func (p *MemoryProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// Messages returns a snapshot of everything produced so far, in order
func (p *MemoryProducer) Messages() []*sarama.ProducerMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*sarama.ProducerMessage, len(p.messages))
	copy(out, p.messages)
	return out
}
