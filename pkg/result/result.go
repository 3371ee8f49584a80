// Package result is the envelope returned at the gateway boundary.
//
// A Result is one of three variants discriminated by ResponseCode:
//
//	OK            ordered content in Messages
//	StoreError    object-store failure, Message set, status mirrors the store
//	GenericError  any other failure, Message set
package result

import (
	"fmt"
	"net/http"

	"github.com/eunmann/s3-proxy/pkg/objectstore"
)

// ResponseCode discriminates the Result variants. The numeric values are
// part of the wire format.
type ResponseCode int

const (
	// OK carries the ordered contents.
	OK ResponseCode = iota
	// StoreError is a failure reported by the object store.
	StoreError
	// GenericError is any other failure.
	GenericError
)

func (c ResponseCode) String() string {
	switch c {
	case OK:
		return "ok"
	case StoreError:
		return "store_error"
	case GenericError:
		return "error"
	default:
		return fmt.Sprintf("ResponseCode(%d)", int(c))
	}
}

// Result is immutable after construction; use the constructors.
type Result struct {
	ResponseCode ResponseCode `json:"responseCode"`
	// Message is empty on success.
	Message  string   `json:"message"`
	Messages []string `json:"messages"`

	statusCode int
}

// Success wraps ordered content. A nil slice is rendered as [].
func Success(contents []string) Result {
	if contents == nil {
		contents = []string{}
	}
	return Result{ResponseCode: OK, Messages: contents}
}

// StoreFailure carries the store's status code and message.
func StoreFailure(statusCode int, message string) Result {
	return Result{ResponseCode: StoreError, Message: message, statusCode: statusCode}
}

// Failure is the generic, non-store error variant.
func Failure(message string) Result {
	return Result{ResponseCode: GenericError, Message: message}
}

// FromError picks StoreError when err wraps an *objectstore.Error and
// GenericError otherwise.
func FromError(err error) Result {
	if storeErr, ok := objectstore.AsError(err); ok {
		return StoreFailure(storeErr.HTTPStatus(), err.Error())
	}
	return Failure(err.Error())
}

// HTTPStatus is the transport status for the variant.
func (r Result) HTTPStatus() int {
	switch r.ResponseCode {
	case OK:
		return http.StatusOK
	case StoreError:
		if r.statusCode > 0 {
			return r.statusCode
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// IsOK reports whether r is the success variant.
func (r Result) IsOK() bool {
	return r.ResponseCode == OK
}
