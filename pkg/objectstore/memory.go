package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

type memoryObject struct {
	data         []byte
	lastModified time.Time
}

// MemoryStore is a Store held in process memory. It is safe for concurrent
// use. Buckets must be created before use, as with a real store.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]memoryObject
	now     func() time.Time
	seq     uint64
}

// NewMemoryStore creates an empty store. now stamps LastModified on Put;
// nil means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		buckets: make(map[string]map[string]memoryObject),
		now:     now,
	}
}

// CreateBucket adds an empty bucket. Creating an existing bucket is a no-op.
func (m *MemoryStore) CreateBucket(bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string]memoryObject)
	}
}

// PutObject stores data with an explicit timestamp, bypassing the clock.
func (m *MemoryStore) PutObject(bucket, key string, data []byte, lastModified time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return noSuchBucket("put", bucket, key)
	}
	objects[key] = memoryObject{data: append([]byte(nil), data...), lastModified: lastModified}
	return nil
}

// List returns keys in lexical order, like S3.
func (m *MemoryStore) List(ctx context.Context, bucket string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list s3://%s: %w", bucket, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, noSuchBucket("list", bucket, "")
	}

	keys := make([]string, 0, len(objects))
	for key := range objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns a copy of the stored object.
func (m *MemoryStore) Get(ctx context.Context, bucket, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return Object{}, noSuchBucket("get", bucket, key)
	}
	obj, ok := objects[key]
	if !ok {
		return Object{}, &Error{
			Op:         "get",
			Bucket:     bucket,
			Key:        key,
			StatusCode: http.StatusNotFound,
			Code:       "NoSuchKey",
			Message:    "The specified key does not exist.",
			Err:        ErrNoSuchKey,
		}
	}

	return Object{
		Key:          key,
		LastModified: obj.lastModified,
		Data:         append([]byte(nil), obj.data...),
	}, nil
}

// Put reads body from the start and stores it stamped with the store clock.
// Request ids are sequential per store.
func (m *MemoryStore) Put(ctx context.Context, bucket, key string, body io.ReadSeeker) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}
	if _, err := body.Seek(0, io.SeekStart); err != nil {
		return Receipt{}, fmt.Errorf("rewind body for s3://%s/%s: %w", bucket, key, err)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return Receipt{}, fmt.Errorf("read body for s3://%s/%s: %w", bucket, key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	objects, ok := m.buckets[bucket]
	if !ok {
		return Receipt{}, noSuchBucket("put", bucket, key)
	}
	objects[key] = memoryObject{data: data, lastModified: m.now()}
	m.seq++

	return Receipt{
		Key:       key,
		RequestID: fmt.Sprintf("mem-%08d", m.seq),
	}, nil
}

func noSuchBucket(op, bucket, key string) *Error {
	return &Error{
		Op:         op,
		Bucket:     bucket,
		Key:        key,
		StatusCode: http.StatusNotFound,
		Code:       "NoSuchBucket",
		Message:    "The specified bucket does not exist.",
		Err:        ErrNoSuchBucket,
	}
}
