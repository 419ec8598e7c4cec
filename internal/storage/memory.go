package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quantica-technologies/kafka-backup-harness/internal/domain"
)

type memObject struct {
	data     []byte
	etag     string
	modified time.Time
	putSeq   int // value of the bucket's list counter at write time
}

type memBucket struct {
	objects   map[string]*memObject
	listCalls int
}

// MemoryStore is an in-memory API implementation for tests and the
// offline smoke mode. Listing visibility can lag configurably behind
// writes to mimic an eventually consistent service.
type MemoryStore struct {
	mu         sync.Mutex
	buckets    map[string]*memBucket
	denied     map[string]struct{}
	deleteErrs map[string]error
	listLag    int
	putCount   int
}

// MemoryOption configures a MemoryStore
type MemoryOption func(*MemoryStore)

// WithListingLag makes each object invisible to the first n listing
// calls issued after it was written
func WithListingLag(n int) MemoryOption {
	return func(s *MemoryStore) { s.listLag = n }
}

// WithDeniedBuckets marks bucket names as owned by another principal
func WithDeniedBuckets(names ...string) MemoryOption {
	return func(s *MemoryStore) {
		for _, name := range names {
			s.denied[name] = struct{}{}
		}
	}
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		buckets:    make(map[string]*memBucket),
		denied:     make(map[string]struct{}),
		deleteErrs: make(map[string]error),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FailDeletes makes DeleteBucketRecursive fail for the given bucket
func (s *MemoryStore) FailDeletes(name string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteErrs[name] = err
}

func (s *MemoryStore) BucketAccess(_ context.Context, name string) (domain.AccessState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.denied[name]; ok {
		return domain.AccessDenied, nil
	}
	if _, ok := s.buckets[name]; ok {
		return domain.AccessGranted, nil
	}
	return domain.AccessAbsent, nil
}

func (s *MemoryStore) CreateBucket(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.buckets[name]; ok {
		return fmt.Errorf("bucket %s already exists", name)
	}
	s.buckets[name] = &memBucket{objects: make(map[string]*memObject)}
	return nil
}

func (s *MemoryStore) DeleteBucketRecursive(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.deleteErrs[name]; ok {
		return err
	}
	if _, ok := s.buckets[name]; !ok {
		return fmt.Errorf("bucket %s does not exist", name)
	}
	delete(s.buckets, name)
	return nil
}

func (s *MemoryStore) ListObjects(_ context.Context, bucket, prefix string) ([]domain.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}
	b.listCalls++

	var objects []domain.ObjectInfo
	for key, obj := range b.objects {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		// stale listing: the object surfaces only after listLag
		// further listing calls
		if b.listCalls-obj.putSeq <= s.listLag {
			continue
		}
		objects = append(objects, domain.ObjectInfo{
			Key:          key,
			Size:         int64(len(obj.data)),
			ETag:         obj.etag,
			LastModified: obj.modified,
		})
	}

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (s *MemoryStore) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		return nil, fmt.Errorf("bucket %s does not exist", bucket)
	}
	obj, ok := b.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s/%s does not exist", bucket, key)
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) PutObject(_ context.Context, bucket, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("failed to read object body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucket]
	if !ok {
		return fmt.Errorf("bucket %s does not exist", bucket)
	}
	s.putCount++
	b.objects[key] = &memObject{
		data:     data,
		etag:     fmt.Sprintf("%d", s.putCount),
		modified: time.Now().UTC(),
		putSeq:   b.listCalls,
	}
	return nil
}

// BucketExists reports whether the store currently holds the bucket
func (s *MemoryStore) BucketExists(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.buckets[name]
	return ok
}
