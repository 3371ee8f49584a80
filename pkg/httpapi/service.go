// Package httpapi exposes aggregation and ingestion over HTTP.
//
//	GET /objects            all objects, ordered, as an indented JSON envelope
//	PUT /objects/{payload}  store the path segment as a new object
//
// The same routes are also served under /api/s3proxy.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/eunmann/s3-proxy/internal/logctx"
	"github.com/eunmann/s3-proxy/pkg/objectstore"
	"github.com/eunmann/s3-proxy/pkg/result"
)

// Route prefixes served by the gateway.
var routePrefixes = []string{"/objects", "/api/s3proxy"}

// Aggregator is satisfied by *aggregate.Aggregator.
type Aggregator interface {
	Aggregate(ctx context.Context, bucket string) result.Result
}

// Ingester is satisfied by *ingest.Ingester.
type Ingester interface {
	Ingest(ctx context.Context, bucket string, payload []byte) (objectstore.Receipt, error)
}

// Service serves one configured bucket.
type Service struct {
	bucket     string
	aggregator Aggregator
	ingester   Ingester
}

// NewService creates a Service for bucket.
func NewService(bucket string, aggregator Aggregator, ingester Ingester) *Service {
	return &Service{
		bucket:     bucket,
		aggregator: aggregator,
		ingester:   ingester,
	}
}

// RegisterEndpoint adds the gateway routes and request logging to router.
// Routes match the escaped path so a payload may contain an encoded slash.
func (s *Service) RegisterEndpoint(router *mux.Router) *mux.Router {
	router.UseEncodedPath()
	router.Use(requestLogging)
	for _, prefix := range routePrefixes {
		router.HandleFunc(prefix, s.getObjects).Methods(http.MethodGet)
		router.HandleFunc(prefix+"/{payload}", s.putObject).Methods(http.MethodPut)
	}
	return router
}

func (s *Service) getObjects(w http.ResponseWriter, r *http.Request) {
	writeResult(w, r, s.aggregator.Aggregate(r.Context(), s.bucket))
}

func (s *Service) putObject(w http.ResponseWriter, r *http.Request) {
	payload, err := url.PathUnescape(mux.Vars(r)["payload"])
	if err != nil {
		writeText(w, http.StatusBadRequest, "invalid payload encoding")
		return
	}

	receipt, err := s.ingester.Ingest(r.Context(), s.bucket, []byte(payload))
	if err != nil {
		if storeErr, ok := objectstore.AsError(err); ok {
			msg := storeErr.Message
			if msg == "" {
				msg = storeErr.Error()
			}
			writeText(w, storeErr.HTTPStatus(), msg)
			return
		}
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("X-Object-Key", receipt.Key)
	w.WriteHeader(http.StatusOK)
}

func writeResult(w http.ResponseWriter, r *http.Request, res result.Result) {
	body, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger := logctx.FromContext(r.Context())
		logger.Error().Err(err).Msg("encode result")
		writeText(w, http.StatusInternalServerError, "Error encoding result")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.HTTPStatus())
	w.Write(append(body, '\n'))
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogging attaches a request-scoped logger and logs each request once
// it completes. An incoming X-Request-Id is reused.
func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		ctx := logctx.WithRequest(r.Context(), requestID, r.Method, r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		logger := logctx.FromContext(ctx)
		logger.Info().
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
