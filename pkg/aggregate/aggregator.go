// Package aggregate reads every object of a bucket concurrently and returns
// their contents ordered by last-modified time.
//
// Aggregate lists the bucket once, starts one retrieval per key on a bounded
// errgroup, waits for all of them, hands the outcomes to a Policy and orders
// what survives. Each retrieval writes only its own slot of the outcome
// slice; the Wait is the only synchronization point.
package aggregate

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/s3-proxy/internal/logctx"
	"github.com/eunmann/s3-proxy/pkg/objectstore"
	"github.com/eunmann/s3-proxy/pkg/result"
)

// DefaultConcurrency bounds in-flight retrievals when Options leaves it unset.
const DefaultConcurrency = 16

// Options configures an Aggregator.
type Options struct {
	// Concurrency is the maximum number of simultaneous Get calls.
	Concurrency int
	// Policy resolves partial failures. Default: FailFast.
	Policy Policy
}

// Aggregator fans retrievals out over a Store.
type Aggregator struct {
	store       objectstore.Store
	concurrency int
	policy      Policy
}

// New creates an Aggregator.
func New(store objectstore.Store, opts Options) *Aggregator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Policy == nil {
		opts.Policy = FailFast{}
	}
	return &Aggregator{
		store:       store,
		concurrency: opts.Concurrency,
		policy:      opts.Policy,
	}
}

// Aggregate returns the contents of every object in bucket ordered by
// (LastModified, Key). A listing failure returns immediately without any
// retrieval. Retrieval failures are resolved by the configured Policy after
// all retrievals have finished.
func (a *Aggregator) Aggregate(ctx context.Context, bucket string) result.Result {
	start := time.Now()
	ctx = logctx.WithStr(ctx, "bucket", bucket)
	logger := logctx.FromContext(ctx)

	keys, err := a.store.List(ctx, bucket)
	if err != nil {
		logger.Error().Err(err).Msg("list bucket failed")
		return result.FromError(err)
	}

	outcomes := a.retrieveAll(ctx, bucket, keys)

	records, failure := a.policy.Resolve(outcomes)
	if failure != nil {
		logger.Error().
			Err(failure.Err).
			Str("key", failure.Key).
			Stringer("kind", failure.Kind).
			Int("objects", len(keys)).
			Msg("aggregation failed")
		return failure.Result()
	}

	contents := Order(records)
	logger.Info().
		Int("objects", len(contents)).
		Dur("duration", time.Since(start)).
		Msg("aggregated bucket")
	return result.Success(contents)
}

// retrieveAll returns exactly one outcome per key, in listing order.
func (a *Aggregator) retrieveAll(ctx context.Context, bucket string, keys []string) []Outcome {
	outcomes := make([]Outcome, len(keys))
	if len(keys) == 0 {
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for i, key := range keys {
		g.Go(func() error {
			outcomes[i] = a.retrieve(ctx, bucket, key)
			return nil
		})
	}

	// Retrievals report failure through their outcome, never through Wait.
	_ = g.Wait()
	return outcomes
}

func (a *Aggregator) retrieve(ctx context.Context, bucket, key string) Outcome {
	obj, err := a.store.Get(ctx, bucket, key)
	if err != nil {
		logger := logctx.FromContext(ctx)
		logger.Warn().Err(err).Str("key", key).Msg("retrieve object failed")
		return failed(key, err)
	}

	// Invalid UTF-8 sequences become U+FFFD rather than failing the object.
	return succeeded(ObjectRecord{
		Key:          key,
		LastModified: obj.LastModified,
		Content:      strings.ToValidUTF8(string(obj.Data), "\uFFFD"),
	})
}
