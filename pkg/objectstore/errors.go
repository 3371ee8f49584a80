package objectstore

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNoSuchBucket is wrapped by store errors for a missing bucket.
	ErrNoSuchBucket = errors.New("bucket does not exist")
	// ErrNoSuchKey is wrapped by store errors for a missing object.
	ErrNoSuchKey = errors.New("object does not exist")
)

// Error is a failure reported by the object store. StatusCode is the
// transport status the store answered with, 0 when the request never got
// a response.
type Error struct {
	Op         string
	Bucket     string
	Key        string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *Error) Error() string {
	target := e.Bucket
	if e.Key != "" {
		target = e.Bucket + "/" + e.Key
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s s3://%s: %s (status %d): %s", e.Op, target, e.Code, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s s3://%s: status %d: %s", e.Op, target, e.StatusCode, msg)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns StatusCode, or 500 when the store gave none.
func (e *Error) HTTPStatus() int {
	if e.StatusCode <= 0 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}

// AsError reports whether err is, or wraps, a store error.
func AsError(err error) (*Error, bool) {
	var storeErr *Error
	if errors.As(err, &storeErr) {
		return storeErr, true
	}
	return nil, false
}
