package harness

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/internal/kafka"
	"github.com/quantica-technologies/kafka-backup-harness/internal/record"
	"github.com/quantica-technologies/kafka-backup-harness/internal/storage"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/utils"
)

// LoopbackRunner is an in-process stand-in for the backup pipeline:
// it drains an in-memory producer, groups records by key, and uploads
// one gzip-compressed JSON segment per key. It exists so the harness
// plumbing can be exercised without a broker or a real pipeline
// deployment.
type LoopbackRunner struct {
	store  storage.API
	source *kafka.MemoryProducer
	bucket string
	prefix string
}

// NewLoopbackRunner creates a runner writing segments into the given
// bucket under prefix
func NewLoopbackRunner(store storage.API, source *kafka.MemoryProducer, bucket, prefix string) *LoopbackRunner {
	return &LoopbackRunner{
		store:  store,
		source: source,
		bucket: bucket,
		prefix: prefix,
	}
}

func (r *LoopbackRunner) Run(ctx context.Context) error {
	msgs := r.source.Messages()

	groups := make(map[string][]domain.Record)
	var order []string

	for i, msg := range msgs {
		rec := domain.Record{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    int64(i),
			Timestamp: msg.Timestamp,
		}
		if msg.Key != nil {
			key, err := msg.Key.Encode()
			if err != nil {
				return fmt.Errorf("failed to encode message key: %w", err)
			}
			rec.Key = key
		}
		if msg.Value != nil {
			value, err := msg.Value.Encode()
			if err != nil {
				return fmt.Errorf("failed to encode message value: %w", err)
			}
			rec.Value = value
		}

		// Only a truly key-less record joins the sentinel segment; an
		// empty-but-present key keeps its own group.
		groupKey := string(rec.Key)
		if rec.Key == nil {
			groupKey = "sentinel"
		}
		if _, ok := groups[groupKey]; !ok {
			order = append(order, groupKey)
		}
		groups[groupKey] = append(groups[groupKey], rec)
	}

	for _, groupKey := range order {
		data, err := record.Encode(groups[groupKey])
		if err != nil {
			return err
		}
		compressed, err := utils.Compress(data)
		if err != nil {
			return err
		}

		objectKey := path.Join(r.prefix, groupKey+".json.gz")
		if err := r.store.PutObject(ctx, r.bucket, objectKey, bytes.NewReader(compressed)); err != nil {
			return fmt.Errorf("failed to store segment %s: %w", objectKey, err)
		}
	}

	return nil
}
