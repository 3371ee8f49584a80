// Package objectstore is the object-store client the gateway sits in front of.
//
// Store is implemented by S3Store for AWS S3 and S3-compatible services and by
// MemoryStore for local runs and tests. Every failure the store itself reports
// is an *Error carrying the transport status code.
package objectstore

import (
	"context"
	"io"
	"time"
)

//go:generate mockgen -source=api.go -destination=gen_StoreMock.go -package=objectstore github.com/eunmann/s3-proxy/pkg/objectstore Store

// Object is one retrieved blob with its metadata.
type Object struct {
	Key          string
	LastModified time.Time
	Data         []byte
}

// Receipt identifies a stored object and the store request that wrote it.
type Receipt struct {
	Key       string
	RequestID string
	ETag      string
}

// Store lists, reads and writes objects in a named bucket.
type Store interface {
	// List returns the keys of a single listing call against bucket.
	List(ctx context.Context, bucket string) ([]string, error)
	// Get reads the whole object and its last-modified time.
	Get(ctx context.Context, bucket, key string) (Object, error)
	// Put writes body under key. body must be replayable.
	Put(ctx context.Context, bucket, key string, body io.ReadSeeker) (Receipt, error)
}
