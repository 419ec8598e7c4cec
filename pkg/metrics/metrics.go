package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bucket lifecycle metrics
	BucketsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_backup_harness_buckets_created_total",
			Help: "Total number of bucket creations by outcome",
		},
		[]string{"outcome"}, // created, recreated, conflict
	)

	BucketsCleaned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_backup_harness_buckets_cleaned_total",
			Help: "Total number of bucket cleanups by outcome",
		},
		[]string{"outcome"}, // deleted, skipped, absent, error
	)

	CleanupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kafka_backup_harness_cleanup_duration_seconds",
			Help:    "Duration of the teardown cleanup phase",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Poller metrics
	PollAttempts = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "kafka_backup_harness_poll_attempts",
			Help:    "Listing attempts needed before the storage state converged",
			Buckets: prometheus.LinearBuckets(1, 1, 10),
		},
	)

	// Generator metrics
	RecordsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "kafka_backup_harness_records_generated_total",
			Help: "Total number of test records emitted by the generator",
		},
	)

	// Storage metrics
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kafka_backup_harness_storage_operations_total",
			Help: "Total object-storage operations",
		},
		[]string{"operation", "status"},
	)
)

// ObserveStorage records one storage operation
func ObserveStorage(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StorageOperations.WithLabelValues(operation, status).Inc()
}
