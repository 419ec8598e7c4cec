package bucket

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/errors"
	"github.com/quantica-technologies/kafka-backup-harness/pkg/logger"
)

// stubStore records every mutating call so tests can assert the exact
// operation sequence of the creation state machine
type stubStore struct {
	mu          sync.Mutex
	access      map[string]domain.AccessState
	deleteErrs  map[string]error
	blockDelete map[string]bool

	creates []string
	deletes []string
}

func newStubStore() *stubStore {
	return &stubStore{
		access:      make(map[string]domain.AccessState),
		deleteErrs:  make(map[string]error),
		blockDelete: make(map[string]bool),
	}
}

func (s *stubStore) setAccess(name string, state domain.AccessState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[name] = state
}

func (s *stubStore) BucketAccess(_ context.Context, name string) (domain.AccessState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access[name], nil
}

func (s *stubStore) CreateBucket(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, name)
	s.access[name] = domain.AccessGranted
	return nil
}

func (s *stubStore) DeleteBucketRecursive(ctx context.Context, name string) error {
	s.mu.Lock()
	blocked := s.blockDelete[name]
	s.mu.Unlock()

	if blocked {
		<-ctx.Done()
		return ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.deleteErrs[name]; err != nil {
		return err
	}
	s.deletes = append(s.deletes, name)
	s.access[name] = domain.AccessAbsent
	return nil
}

func (s *stubStore) ListObjects(context.Context, string, string) ([]domain.ObjectInfo, error) {
	return nil, nil
}

func (s *stubStore) GetObject(context.Context, string, string) (io.ReadCloser, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubStore) PutObject(context.Context, string, string, io.Reader) error {
	return nil
}

func (s *stubStore) createCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.creates...)
}

func (s *stubStore) deleteCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deletes...)
}

func newTestManager(store *stubStore, cfg Config) *Manager {
	return NewManager(store, cfg, logger.Nop())
}

func TestCreateBucketAbsent(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, Config{CleanupEnabled: true})

	require.NoError(t, m.CreateBucket(context.Background(), "fresh"))

	require.Equal(t, []string{"fresh"}, store.createCalls())
	require.Empty(t, store.deleteCalls())
	require.Equal(t, []string{"fresh"}, m.Pending())
}

func TestCreateBucketGrantedRecreates(t *testing.T) {
	store := newStubStore()
	store.setAccess("stale", domain.AccessGranted)
	m := newTestManager(store, Config{CleanupEnabled: true})

	require.NoError(t, m.CreateBucket(context.Background(), "stale"))

	require.Equal(t, []string{"stale"}, store.deleteCalls())
	require.Equal(t, []string{"stale"}, store.createCalls())
}

func TestCreateBucketDeniedConflicts(t *testing.T) {
	store := newStubStore()
	store.setAccess("foreign", domain.AccessDenied)
	m := newTestManager(store, Config{CleanupEnabled: true})

	err := m.CreateBucket(context.Background(), "foreign")
	require.Error(t, err)
	require.Equal(t, errors.ErrCodeBucketConflict, errors.Code(err))

	require.Empty(t, store.createCalls(), "denied bucket must not be mutated")
	require.Empty(t, store.deleteCalls())
	require.Empty(t, m.Pending(), "conflicting bucket must not be tracked")
}

func TestCreateBucketEnqueueIdempotent(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, Config{CleanupEnabled: true})

	require.NoError(t, m.CreateBucket(context.Background(), "dup"))
	// second creation finds the bucket granted and recreates it; the
	// queue must still hold the name once
	require.NoError(t, m.CreateBucket(context.Background(), "dup"))

	require.Equal(t, []string{"dup"}, m.Pending())
}

func TestCreateBucketCleanupDisabled(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, Config{CleanupEnabled: false})

	require.NoError(t, m.CreateBucket(context.Background(), "untracked"))
	require.Empty(t, m.Pending())
}

func TestCreateBucketConcurrent(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, Config{CleanupEnabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("bucket-%d", i)
			require.NoError(t, m.CreateBucket(context.Background(), name))
		}(i)
	}
	wg.Wait()

	require.Len(t, m.Pending(), 8)
}

func TestShutdownDisabled(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, Config{CleanupEnabled: false})

	require.NoError(t, m.Shutdown(context.Background()))
	require.Empty(t, store.deleteCalls())
}

func TestShutdownCleansAllBuckets(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, Config{CleanupEnabled: true, MaxCleanupTimeout: 5 * time.Second})

	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, m.CreateBucket(context.Background(), name))
	}

	require.NoError(t, m.Shutdown(context.Background()))
	require.ElementsMatch(t, []string{"a", "b", "c"}, store.deleteCalls())
	require.Empty(t, m.Pending(), "queue is drained exactly once")

	// a second shutdown finds nothing to do
	require.NoError(t, m.Shutdown(context.Background()))
	require.Len(t, store.deleteCalls(), 3)
}

func TestShutdownSwallowsPerBucketErrors(t *testing.T) {
	store := newStubStore()
	store.deleteErrs["bad"] = fmt.Errorf("simulated delete failure")
	m := newTestManager(store, Config{CleanupEnabled: true, MaxCleanupTimeout: 5 * time.Second})

	require.NoError(t, m.CreateBucket(context.Background(), "bad"))
	require.NoError(t, m.CreateBucket(context.Background(), "good"))

	require.NoError(t, m.Shutdown(context.Background()),
		"one failing bucket must not fail the whole cleanup")
	require.Equal(t, []string{"good"}, store.deleteCalls())
}

func TestShutdownSkipsDeniedBuckets(t *testing.T) {
	store := newStubStore()
	m := newTestManager(store, Config{CleanupEnabled: true, MaxCleanupTimeout: 5 * time.Second})

	require.NoError(t, m.CreateBucket(context.Background(), "mine"))
	// ownership changes between creation and teardown
	store.setAccess("mine", domain.AccessDenied)

	require.NoError(t, m.Shutdown(context.Background()))
	require.Empty(t, store.deleteCalls(), "denied buckets are never force-deleted")
}

func TestShutdownTimeout(t *testing.T) {
	store := newStubStore()
	store.blockDelete["slow"] = true
	m := newTestManager(store, Config{CleanupEnabled: true, MaxCleanupTimeout: 50 * time.Millisecond})

	require.NoError(t, m.CreateBucket(context.Background(), "slow"))

	err := m.Shutdown(context.Background())
	require.Error(t, err)
	require.Equal(t, errors.ErrCodeCleanupTimeout, errors.Code(err))
}

func TestShutdownWaitsInitialDelay(t *testing.T) {
	store := newStubStore()
	delay := 50 * time.Millisecond
	m := newTestManager(store, Config{
		CleanupEnabled:    true,
		InitialDelay:      delay,
		MaxCleanupTimeout: 5 * time.Second,
	})

	require.NoError(t, m.CreateBucket(context.Background(), "settle"))

	start := time.Now()
	require.NoError(t, m.Shutdown(context.Background()))
	require.GreaterOrEqual(t, time.Since(start), delay)
}
