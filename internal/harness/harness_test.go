package harness

import (
	"context"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"github.com/quantica-technologies/kafka-backup-harness/internal/config"
	"github.com/quantica-technologies/kafka-backup-harness/internal/generator"
	"github.com/quantica-technologies/kafka-backup-harness/internal/kafka"
	"github.com/quantica-technologies/kafka-backup-harness/internal/record"
	"github.com/quantica-technologies/kafka-backup-harness/internal/storage"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/errors"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/logger"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Bucket.Prefix = "harness-test"
	cfg.Bucket.MaxCleanupTimeout = config.Duration(5 * time.Second)
	cfg.Poll.Attempts = 10
	cfg.Poll.Delay = config.Duration(5 * time.Millisecond)
	return cfg
}

func TestBucketNameUsesPrefix(t *testing.T) {
	h := New(testConfig(), storage.NewMemoryStore(), kafka.NewMemoryProducer(nil), logger.Nop())

	first := h.BucketName()
	second := h.BucketName()
	require.NotEqual(t, first, second)
	require.Contains(t, first, "harness-test-")
}

func TestWaitForObjectCountExhausts(t *testing.T) {
	store := storage.NewMemoryStore()
	h := New(testConfig(), store, kafka.NewMemoryProducer(nil), logger.Nop())

	ctx := context.Background()
	name := h.BucketName()
	require.NoError(t, h.CreateBucket(ctx, name))

	_, err := h.WaitForObjectCount(ctx, name, "", 3)
	require.Error(t, err)
	require.Equal(t, errors.ErrCodePollingExhausted, errors.Code(err))
}

// TestBackupRoundTrip drives the full harness cycle against the
// in-memory store with listing lag: generate 20 records across 20
// distinct keys plus a trailing sentinel, emit them throttled, push
// them through the loopback pipeline, poll until the listing
// converges, then compare the downloaded records grouped by key
// against the input.
func TestBackupRoundTrip(t *testing.T) {
	const (
		keys    = 20
		perKey  = 1
		padding = time.Second
	)

	ctx := context.Background()
	store := storage.NewMemoryStore(storage.WithListingLag(2))
	producer := kafka.NewMemoryProducer(nil)
	h := New(testConfig(), store, producer, logger.Nop())

	bucketName := h.BucketName()
	require.NoError(t, h.CreateBucket(ctx, bucketName))

	fixtures := generator.Series("orders", 3, keys, perKey, padding)
	require.Len(t, fixtures, keys*perKey+1)

	var emitted []record.Wire
	for w := range generator.Emit(ctx, fixtures, 100*time.Millisecond) {
		emitted = append(emitted, w)
	}
	require.Equal(t, fixtures, emitted, "throttling must not reorder or drop records")

	require.NoError(t, h.Produce(ctx, emitted))

	pipeline := NewLoopbackRunner(store, producer, bucketName, "backup")
	require.NoError(t, h.RunPipeline(ctx, pipeline))

	// 20 key segments plus the sentinel segment; the lagging listing
	// forces the poller to retry before converging
	objects, err := h.WaitForObjectCount(ctx, bucketName, "backup", keys+1)
	require.NoError(t, err)

	downloaded := make(map[string][][]byte)
	for _, obj := range objects {
		records, err := h.FetchRecords(ctx, bucketName, obj.Key)
		require.NoError(t, err)
		for _, rec := range records {
			key := string(rec.Key)
			downloaded[key] = append(downloaded[key], rec.Value)
		}
	}

	expected := make(map[string][][]byte)
	for _, w := range fixtures {
		if w.IsSentinel() {
			continue
		}
		rec, err := w.Record()
		require.NoError(t, err)
		expected[string(rec.Key)] = append(expected[string(rec.Key)], rec.Value)
	}

	require.Equal(t, expected, downloaded)
	require.Len(t, downloaded, keys)

	require.NoError(t, h.Teardown(ctx))
	require.False(t, store.BucketExists(bucketName), "teardown must delete the tracked bucket")
}

// An empty-but-present key is a real key: it must land in its own
// segment instead of being folded into the key-less sentinel segment.
func TestLoopbackKeepsEmptyKeyOutOfSentinelSegment(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	producer := kafka.NewMemoryProducer(nil)
	h := New(testConfig(), store, producer, logger.Nop())

	bucketName := h.BucketName()
	require.NoError(t, h.CreateBucket(ctx, bucketName))

	require.NoError(t, producer.Produce(ctx, &sarama.ProducerMessage{
		Topic: "orders",
		Key:   sarama.ByteEncoder([]byte{}),
		Value: sarama.ByteEncoder("value-empty-key"),
	}))
	require.NoError(t, producer.Produce(ctx, &sarama.ProducerMessage{
		Topic: "orders",
	}))

	pipeline := NewLoopbackRunner(store, producer, bucketName, "backup")
	require.NoError(t, h.RunPipeline(ctx, pipeline))

	objects, err := h.WaitForObjectCount(ctx, bucketName, "backup", 2)
	require.NoError(t, err)

	keys := make([]string, 0, len(objects))
	for _, obj := range objects {
		keys = append(keys, obj.Key)
	}
	require.ElementsMatch(t, []string{"backup/.json.gz", "backup/sentinel.json.gz"}, keys)

	records, err := h.FetchRecords(ctx, bucketName, "backup/.json.gz")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.NotNil(t, records[0].Key)
	require.Empty(t, records[0].Key)
	require.Equal(t, []byte("value-empty-key"), records[0].Value)

	sentinels, err := h.FetchRecords(ctx, bucketName, "backup/sentinel.json.gz")
	require.NoError(t, err)
	require.Empty(t, sentinels, "sentinel segment holds only value-less entries")
}

func TestTeardownWithCleanupDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Bucket.CleanupEnabled = false

	store := storage.NewMemoryStore()
	h := New(cfg, store, kafka.NewMemoryProducer(nil), logger.Nop())

	ctx := context.Background()
	name := h.BucketName()
	require.NoError(t, h.CreateBucket(ctx, name))

	require.NoError(t, h.Teardown(ctx))
	require.True(t, store.BucketExists(name), "disabled cleanup must leave buckets alone")
}

func TestCreateBucketConflictSurfaces(t *testing.T) {
	store := storage.NewMemoryStore(storage.WithDeniedBuckets("taken"))
	h := New(testConfig(), store, kafka.NewMemoryProducer(nil), logger.Nop())

	err := h.CreateBucket(context.Background(), "taken")
	require.Error(t, err)
	require.Equal(t, errors.ErrCodeBucketConflict, errors.Code(err))
}
