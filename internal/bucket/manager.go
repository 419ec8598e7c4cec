// Package bucket provisions ephemeral test buckets and guarantees
// their cleanup at harness shutdown. A bucket is tracked for cleanup
// if and only if cleanup is enabled and the harness itself created or
// recreated it.
package bucket

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/internal/storage"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/errors"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/logger"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/metrics"
)

// DefaultMaxCleanupTimeout bounds the whole teardown phase
const DefaultMaxCleanupTimeout = 10 * time.Minute

// Config holds lifecycle settings
type Config struct {
	// CleanupEnabled tracks created buckets for deletion at shutdown
	CleanupEnabled bool

	// InitialDelay lets final eventually-consistent writes settle
	// before cleanup starts
	InitialDelay time.Duration

	// MaxCleanupTimeout bounds the concurrent teardown of all tracked
	// buckets; exceeding it indicates leaked cloud resources
	MaxCleanupTimeout time.Duration
}

// Manager creates buckets and owns the pending-cleanup registry. It is
// safe for concurrent use by parallel test executions.
type Manager struct {
	store storage.API
	cfg   Config
	log   logger.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

// NewManager creates a lifecycle manager around the given store
func NewManager(store storage.API, cfg Config, log logger.Logger) *Manager {
	return &Manager{
		store:   store,
		cfg:     cfg,
		log:     log,
		pending: make(map[string]struct{}),
	}
}

// CreateBucket provisions a clean bucket. A pre-existing bucket owned
// by this principal is emptied and recreated so every test starts from
// a known state; a bucket owned by someone else fails immediately with
// BUCKET_CONFLICT, since silently writing next to foreign data can
// corrupt a whole test run.
func (m *Manager) CreateBucket(ctx context.Context, name string) error {
	state, err := m.store.BucketAccess(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check access to bucket %s: %w", name, err)
	}

	switch state {
	case domain.AccessDenied:
		metrics.BucketsCreated.WithLabelValues("conflict").Inc()
		return errors.Newf(errors.ErrCodeBucketConflict,
			"bucket %s already exists and is not owned by this principal", name)

	case domain.AccessGranted:
		m.log.Warn("Bucket already exists, recreating", "bucket", name)
		if err := m.store.DeleteBucketRecursive(ctx, name); err != nil {
			return fmt.Errorf("failed to delete pre-existing bucket %s: %w", name, err)
		}
		if err := m.store.CreateBucket(ctx, name); err != nil {
			return fmt.Errorf("failed to recreate bucket %s: %w", name, err)
		}
		metrics.BucketsCreated.WithLabelValues("recreated").Inc()

	case domain.AccessAbsent:
		if err := m.store.CreateBucket(ctx, name); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", name, err)
		}
		metrics.BucketsCreated.WithLabelValues("created").Inc()
	}

	m.track(name)
	m.log.Info("Created bucket", "bucket", name)
	return nil
}

// track enqueues the bucket for cleanup, deduplicated
func (m *Manager) track(name string) {
	if !m.cfg.CleanupEnabled {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[name] = struct{}{}
}

// Pending returns the bucket names currently queued for cleanup
func (m *Manager) Pending() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.pending))
	for name := range m.pending {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// drain empties the registry; the queue is drained exactly once
func (m *Manager) drain() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.pending))
	for name := range m.pending {
		names = append(names, name)
	}
	m.pending = make(map[string]struct{})
	return names
}

// Shutdown cleans every queued bucket concurrently. Per-bucket errors
// are logged and never propagated so that one stubborn bucket cannot
// abort cleanup of the others; exceeding the overall timeout is a hard
// failure because it means cloud resources leaked.
func (m *Manager) Shutdown(ctx context.Context) error {
	if !m.cfg.CleanupEnabled {
		return nil
	}

	names := m.drain()
	if len(names) == 0 {
		return nil
	}

	if m.cfg.InitialDelay > 0 {
		m.log.Info("Waiting before cleanup", "delay", m.cfg.InitialDelay.String())
		select {
		case <-time.After(m.cfg.InitialDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timeout := m.cfg.MaxCleanupTimeout
	if timeout <= 0 {
		timeout = DefaultMaxCleanupTimeout
	}

	cleanupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	m.log.Info("Cleaning up buckets", "count", len(names))
	start := time.Now()

	g, gctx := errgroup.WithContext(cleanupCtx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			m.cleanBucket(gctx, name)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-cleanupCtx.Done():
	}
	metrics.CleanupDuration.Observe(time.Since(start).Seconds())

	if err := cleanupCtx.Err(); err != nil {
		if err == context.DeadlineExceeded {
			return errors.Newf(errors.ErrCodeCleanupTimeout,
				"cleanup of %d buckets did not finish within %s", len(names), timeout)
		}
		return err
	}

	m.log.Info("Bucket cleanup finished", "elapsed", time.Since(start).String())
	return nil
}

// cleanBucket deletes one bucket, absorbing every failure. Buckets the
// harness does not own are never force-deleted.
func (m *Manager) cleanBucket(ctx context.Context, name string) {
	state, err := m.store.BucketAccess(ctx, name)
	if err != nil {
		m.log.Error("Failed to check bucket during cleanup", "bucket", name, "error", err)
		metrics.BucketsCleaned.WithLabelValues("error").Inc()
		return
	}

	switch state {
	case domain.AccessDenied:
		m.log.Warn("Skipping bucket not owned by this principal", "bucket", name)
		metrics.BucketsCleaned.WithLabelValues("skipped").Inc()

	case domain.AccessAbsent:
		metrics.BucketsCleaned.WithLabelValues("absent").Inc()

	case domain.AccessGranted:
		if err := m.store.DeleteBucketRecursive(ctx, name); err != nil {
			m.log.Error("Failed to delete bucket", "bucket", name, "error", err)
			metrics.BucketsCleaned.WithLabelValues("error").Inc()
			return
		}
		m.log.Info("Deleted bucket", "bucket", name)
		metrics.BucketsCleaned.WithLabelValues("deleted").Inc()
	}
}
