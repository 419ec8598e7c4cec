// Package harness ties the bucket lifecycle, poller, generator and
// storage surfaces together into the facade test authors use to drive
// a backup pipeline test end to end.
package harness

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/quantica-technologies/kafka-backup-harness/internal/bucket"
	"github.com/quantica-technologies/kafka-backup-harness/internal/config"
	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/internal/generator"
	"github.com/quantica-technologies/kafka-backup-harness/internal/kafka"
	"github.com/quantica-technologies/kafka-backup-harness/internal/poller"
	"github.com/quantica-technologies/kafka-backup-harness/internal/record"
	"github.com/quantica-technologies/kafka-backup-harness/internal/storage"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/logger"
)

// Runner is the backup pipeline under test. The harness only starts it
// and observes its output through the storage listing.
type Runner interface {
	Run(ctx context.Context) error
}

// Harness wires the test-support components around one storage backend
// and one producer
type Harness struct {
	cfg      *config.Config
	store    storage.API
	producer kafka.Producer
	buckets  *bucket.Manager
	log      logger.Logger
}

// New creates a harness. The bucket registry is owned by the harness
// and torn down by Teardown.
func New(cfg *config.Config, store storage.API, producer kafka.Producer, log logger.Logger) *Harness {
	buckets := bucket.NewManager(store, bucket.Config{
		CleanupEnabled:    cfg.Bucket.CleanupEnabled,
		InitialDelay:      cfg.Bucket.CleanupInitialDelay.Std(),
		MaxCleanupTimeout: cfg.Bucket.MaxCleanupTimeout.Std(),
	}, log)

	return &Harness{
		cfg:      cfg,
		store:    store,
		producer: producer,
		buckets:  buckets,
		log:      log,
	}
}

// Store exposes the storage backend for direct listing and fetching
func (h *Harness) Store() storage.API {
	return h.store
}

// BucketName generates a fresh, isolated bucket name under the
// configured prefix
func (h *Harness) BucketName() string {
	return fmt.Sprintf("%s-%s", h.cfg.Bucket.Prefix, uuid.NewString())
}

// CreateBucket provisions a clean bucket and tracks it for cleanup
func (h *Harness) CreateBucket(ctx context.Context, name string) error {
	return h.buckets.CreateBucket(ctx, name)
}

// PollOptions returns the configured consistency-poller bounds
func (h *Harness) PollOptions() poller.Options {
	return poller.Options{
		Attempts: h.cfg.Poll.Attempts,
		Delay:    h.cfg.Poll.Delay.Std(),
	}
}

// Produce converts the wire records to producer messages and publishes
// them through the configured producer
func (h *Harness) Produce(ctx context.Context, records []record.Wire) error {
	msgs, err := generator.ProducerMessages(records)
	if err != nil {
		return err
	}
	if err := h.producer.ProduceBatch(ctx, msgs); err != nil {
		return fmt.Errorf("failed to produce %d messages: %w", len(msgs), err)
	}
	return h.producer.Flush(ctx)
}

// RunPipeline starts the backup pipeline under test; its output is
// observed only through the storage listing
func (h *Harness) RunPipeline(ctx context.Context, r Runner) error {
	return r.Run(ctx)
}

// WaitForObjectCount polls the bucket listing until it holds exactly
// count objects under the prefix
func (h *Harness) WaitForObjectCount(ctx context.Context, bucketName, prefix string, count int) ([]domain.ObjectInfo, error) {
	return poller.WaitFor(ctx,
		func(ctx context.Context) ([]domain.ObjectInfo, error) {
			return h.store.ListObjects(ctx, bucketName, prefix)
		},
		func(snapshot []domain.ObjectInfo) poller.Outcome[[]domain.ObjectInfo] {
			if len(snapshot) == count {
				return poller.Ready(snapshot)
			}
			return poller.NotReady[[]domain.ObjectInfo](fmt.Sprintf("want %d objects, listed %d", count, len(snapshot)))
		},
		h.PollOptions(),
	)
}

// FetchRecords downloads one segment and decodes it, dropping sentinel
// entries
func (h *Harness) FetchRecords(ctx context.Context, bucketName, key string) ([]domain.Record, error) {
	body, err := h.store.GetObject(ctx, bucketName, key)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s/%s: %w", bucketName, key, err)
	}

	entries, err := record.Decode(data)
	if err != nil {
		return nil, err
	}
	return record.Compact(entries), nil
}

// Teardown is the suite-level afterAll hook: it drains the cleanup
// queue and deletes every tracked bucket
func (h *Harness) Teardown(ctx context.Context) error {
	return h.buckets.Shutdown(ctx)
}
