package aggregate

import (
	"time"

	"github.com/eunmann/s3-proxy/pkg/objectstore"
	"github.com/eunmann/s3-proxy/pkg/result"
)

// ObjectRecord is one retrieved object. Key and LastModified travel together
// so ordering never has to look a timestamp up by key.
type ObjectRecord struct {
	Key          string
	LastModified time.Time
	Content      string
}

// ErrorKind classifies a failed retrieval.
type ErrorKind int

const (
	// KindNone marks a successful outcome.
	KindNone ErrorKind = iota
	// KindStore is a failure reported by the object store.
	KindStore
	// KindGeneric is any other failure.
	KindGeneric
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindStore:
		return "store"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Outcome is the terminal state of one retrieval: either Record is set or
// Err is non-nil. Status is the store's HTTP status for KindStore failures.
type Outcome struct {
	Key    string
	Record ObjectRecord
	Kind   ErrorKind
	Status int
	Err    error
}

// Succeeded reports whether the retrieval produced a record.
func (o Outcome) Succeeded() bool {
	return o.Err == nil
}

func succeeded(record ObjectRecord) Outcome {
	return Outcome{Key: record.Key, Record: record}
}

func failed(key string, err error) Outcome {
	if storeErr, ok := objectstore.AsError(err); ok {
		return Outcome{Key: key, Kind: KindStore, Status: storeErr.HTTPStatus(), Err: err}
	}
	return Outcome{Key: key, Kind: KindGeneric, Err: err}
}

// Result renders a failed outcome as the matching error variant.
func (o Outcome) Result() result.Result {
	if o.Kind == KindStore {
		return result.StoreFailure(o.Status, o.Err.Error())
	}
	return result.Failure(o.Err.Error())
}
