// Package ingest stores inbound payloads under freshly generated keys.
//
// The whole payload is held in memory so the store client gets a seekable
// body; upload size is bounded by available memory. Ingest never retries,
// so a retried client call stores a second object under a new key.
package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/eunmann/s3-proxy/internal/logctx"
	"github.com/eunmann/s3-proxy/pkg/objectstore"
	"github.com/eunmann/s3-proxy/pkg/uniqueid"
)

// Ingester writes payloads to a Store.
type Ingester struct {
	store objectstore.Store
	ids   uniqueid.Generator
}

// New creates an Ingester. A nil generator uses random UUIDs.
func New(store objectstore.Store, ids uniqueid.Generator) *Ingester {
	if ids == nil {
		ids = uniqueid.NewGenerator()
	}
	return &Ingester{store: store, ids: ids}
}

// Ingest stores payload in bucket under a new key and returns the receipt.
// Store failures are returned unchanged so callers can read the status code
// with objectstore.AsError.
func (i *Ingester) Ingest(ctx context.Context, bucket string, payload []byte) (objectstore.Receipt, error) {
	key := i.ids.Generate()
	logger := logctx.FromContext(ctx).With().Str("bucket", bucket).Str("key", key).Logger()

	receipt, err := i.store.Put(ctx, bucket, key, bytes.NewReader(payload))
	if err != nil {
		logger.Error().Err(err).Msg("upload object failed")
		if _, ok := objectstore.AsError(err); ok {
			return objectstore.Receipt{}, err
		}
		return objectstore.Receipt{}, fmt.Errorf("ingest %s: %w", key, err)
	}
	if receipt.Key == "" {
		receipt.Key = key
	}

	logger.Info().
		Str("store_request_id", receipt.RequestID).
		Int("bytes", len(payload)).
		Msg("uploaded object")
	return receipt, nil
}
