package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunmann/s3-proxy/internal/logctx"
	"github.com/eunmann/s3-proxy/pkg/aggregate"
	"github.com/eunmann/s3-proxy/pkg/ingest"
	"github.com/eunmann/s3-proxy/pkg/objectstore"
	"github.com/eunmann/s3-proxy/pkg/uniqueid"
)

const bucket = "messages"

func TestAll(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	forbidden := &objectstore.Error{Op: "get", Bucket: bucket, Key: "b", StatusCode: http.StatusForbidden, Code: "AccessDenied", Message: "Access Denied"}
	noBucket := &objectstore.Error{Op: "list", Bucket: bucket, StatusCode: http.StatusNotFound, Code: "NoSuchBucket", Message: "The specified bucket does not exist"}

	testCases := []struct {
		name                    string
		store                   objectstore.Store
		request                 *http.Request
		expectedResponseStatus  int
		expectedResponsePayload string
		expectedContentType     string
	}{
		{
			name: "Aggregate: ordered success",
			store: listAndGet(ctrl, map[string]objectstore.Object{
				"a": {Key: "a", LastModified: t0.Add(time.Minute), Data: []byte("newer")},
				"b": {Key: "b", LastModified: t0, Data: []byte("older")},
			}, nil),
			request:                 httpRequest(t, "GET", "/objects"),
			expectedResponseStatus:  200,
			expectedResponsePayload: "{\n  \"responseCode\": 0,\n  \"message\": \"\",\n  \"messages\": [\n    \"older\",\n    \"newer\"\n  ]\n}\n",
			expectedContentType:     "application/json",
		},
		{
			name:                    "Aggregate: legacy route",
			store:                   listAndGet(ctrl, map[string]objectstore.Object{}, nil),
			request:                 httpRequest(t, "GET", "/api/s3proxy"),
			expectedResponseStatus:  200,
			expectedResponsePayload: "{\n  \"responseCode\": 0,\n  \"message\": \"\",\n  \"messages\": []\n}\n",
			expectedContentType:     "application/json",
		},
		{
			name:                   "Aggregate: list failure mirrors store status",
			store:                  listFails(ctrl, noBucket),
			request:                httpRequest(t, "GET", "/objects"),
			expectedResponseStatus: 404,
			expectedContentType:    "application/json",
		},
		{
			name: "Aggregate: one object fails",
			store: listAndGet(ctrl, map[string]objectstore.Object{
				"a": {Key: "a", LastModified: t0, Data: []byte("a")},
			}, map[string]error{"b": forbidden}),
			request:                httpRequest(t, "GET", "/objects"),
			expectedResponseStatus: 403,
			expectedContentType:    "application/json",
		},
		{
			name:                   "Ingest: success",
			store:                  putReturns(ctrl, "hello world", objectstore.Receipt{Key: "key-1", RequestID: "REQ"}, nil),
			request:                httpRequest(t, "PUT", "/objects/hello%20world"),
			expectedResponseStatus: 200,
		},
		{
			name:                   "Ingest: encoded slash stays in the payload",
			store:                  putReturns(ctrl, "a/b", objectstore.Receipt{Key: "key-1"}, nil),
			request:                httpRequest(t, "PUT", "/objects/a%2Fb"),
			expectedResponseStatus: 200,
		},
		{
			name:                   "Ingest: encoded question mark",
			store:                  putReturns(ctrl, "?tail", objectstore.Receipt{Key: "key-1"}, nil),
			request:                httpRequest(t, "PUT", "/objects/%3Ftail"),
			expectedResponseStatus: 200,
		},
		{
			name:                    "Ingest: store error mirrors status and message",
			store:                   putReturns(ctrl, "hi", objectstore.Receipt{}, forbidden),
			request:                 httpRequest(t, "PUT", "/api/s3proxy/hi"),
			expectedResponseStatus:  403,
			expectedResponsePayload: "Access Denied",
			expectedContentType:     "text/plain; charset=utf-8",
		},
		{
			name:                    "Ingest: generic error",
			store:                   putReturns(ctrl, "hi", objectstore.Receipt{}, errors.New("connection reset")),
			request:                 httpRequest(t, "PUT", "/objects/hi"),
			expectedResponseStatus:  500,
			expectedResponsePayload: "ingest key-1: connection reset",
		},
		{
			name:                   "Unknown method",
			store:                  nil,
			request:                httpRequest(t, "DELETE", "/objects"),
			expectedResponseStatus: 405,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// setup
			service := newService(tc.store)

			// when
			httpResp := httptest.NewRecorder()
			service.RegisterEndpoint(mux.NewRouter()).ServeHTTP(httpResp, tc.request)

			// then
			assert.Equal(t, tc.expectedResponseStatus, httpResp.Code)
			if tc.expectedResponsePayload != "" {
				assert.Equal(t, tc.expectedResponsePayload, httpResp.Body.String())
			}
			if tc.expectedContentType != "" {
				assert.Equal(t, tc.expectedContentType, httpResp.Header().Get("Content-Type"))
			}
		})
	}
}

func TestPutObjectRejectsInvalidEscape(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	service := newService(objectstore.NewMockStore(ctrl))
	req := mux.SetURLVars(httpRequest(t, "PUT", "/objects/x"), map[string]string{"payload": "%zz"})

	httpResp := httptest.NewRecorder()
	service.putObject(httpResp, req)

	assert.Equal(t, http.StatusBadRequest, httpResp.Code)
	assert.Equal(t, "invalid payload encoding", httpResp.Body.String())
}

func TestAggregateErrorEnvelope(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	noBucket := &objectstore.Error{Op: "list", Bucket: bucket, StatusCode: http.StatusNotFound, Code: "NoSuchBucket", Message: "The specified bucket does not exist"}
	service := newService(listFails(ctrl, noBucket))

	httpResp := httptest.NewRecorder()
	service.RegisterEndpoint(mux.NewRouter()).ServeHTTP(httpResp, httpRequest(t, "GET", "/objects"))

	var body struct {
		ResponseCode int       `json:"responseCode"`
		Message      string    `json:"message"`
		Messages     *[]string `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(httpResp.Body.Bytes(), &body))
	assert.Equal(t, 1, body.ResponseCode)
	assert.Contains(t, body.Message, "The specified bucket does not exist")
	assert.Nil(t, body.Messages)
}

func TestIngestThenAggregateRoundTrip(t *testing.T) {
	store := objectstore.NewMemoryStore(nil)
	store.CreateBucket(bucket)
	service := NewService(bucket, aggregate.New(store, aggregate.Options{}), ingest.New(store, nil))
	router := service.RegisterEndpoint(mux.NewRouter())

	putResp := httptest.NewRecorder()
	router.ServeHTTP(putResp, httpRequest(t, "PUT", "/objects/round-trip"))
	require.Equal(t, http.StatusOK, putResp.Code)
	key := putResp.Header().Get("X-Object-Key")
	require.NotEmpty(t, key)

	obj, err := store.Get(context.Background(), bucket, key)
	require.NoError(t, err)
	assert.Equal(t, "round-trip", string(obj.Data))

	getResp := httptest.NewRecorder()
	router.ServeHTTP(getResp, httpRequest(t, "GET", "/objects"))
	require.Equal(t, http.StatusOK, getResp.Code)
	assert.Contains(t, getResp.Body.String(), `"round-trip"`)
}

func TestRequestLogging(t *testing.T) {
	var buf bytes.Buffer
	prev := logctx.DefaultLogger()
	logctx.SetDefaultLogger(zerolog.New(&buf))
	defer logctx.SetDefaultLogger(prev)

	store := objectstore.NewMemoryStore(nil)
	store.CreateBucket(bucket)
	service := NewService(bucket, aggregate.New(store, aggregate.Options{}), ingest.New(store, nil))

	req := httpRequest(t, "GET", "/objects")
	req.Header.Set("X-Request-Id", "req-42")
	httpResp := httptest.NewRecorder()
	service.RegisterEndpoint(mux.NewRouter()).ServeHTTP(httpResp, req)

	assert.Equal(t, "req-42", httpResp.Header().Get("X-Request-Id"))
	logs := buf.String()
	assert.Contains(t, logs, `"request_id":"req-42"`)
	assert.Contains(t, logs, `"bucket":"messages"`)
	assert.Contains(t, logs, `"status":200`)
	assert.Contains(t, logs, "request handled")
}

func TestRequestLoggingKeepsRequestIDOnIngest(t *testing.T) {
	var buf bytes.Buffer
	prev := logctx.DefaultLogger()
	logctx.SetDefaultLogger(zerolog.New(&buf))
	defer logctx.SetDefaultLogger(prev)

	store := objectstore.NewMemoryStore(nil)
	store.CreateBucket(bucket)
	service := NewService(bucket, aggregate.New(store, aggregate.Options{}), ingest.New(store, nil))

	req := httpRequest(t, "PUT", "/objects/hello")
	req.Header.Set("X-Request-Id", "req-43")
	httpResp := httptest.NewRecorder()
	service.RegisterEndpoint(mux.NewRouter()).ServeHTTP(httpResp, req)
	require.Equal(t, http.StatusOK, httpResp.Code)

	var uploadLine []byte
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if bytes.Contains(line, []byte("uploaded object")) {
			uploadLine = line
		}
	}
	require.NotNil(t, uploadLine, "no upload log line in: %s", buf.String())
	assert.Equal(t, 1, bytes.Count(uploadLine, []byte(`"request_id":`)), "duplicate request_id in: %s", uploadLine)

	var uploaded map[string]any
	require.NoError(t, json.Unmarshal(uploadLine, &uploaded))
	assert.Equal(t, "req-43", uploaded["request_id"])
	assert.Equal(t, "mem-00000001", uploaded["store_request_id"])
}

func newService(store objectstore.Store) *Service {
	return NewService(bucket,
		aggregate.New(store, aggregate.Options{Concurrency: 4}),
		ingest.New(store, uniqueid.Func(func() string { return "key-1" })))
}

func httpRequest(t *testing.T, method, url string) *http.Request {
	httpReq, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatalf("Error creating http-request: %s", err)
	}
	httpReq.RequestURI = url
	return httpReq
}

func listAndGet(ctrlr *gomock.Controller, objects map[string]objectstore.Object, failures map[string]error) objectstore.Store {
	storeMock := objectstore.NewMockStore(ctrlr)

	keys := make([]string, 0, len(objects)+len(failures))
	for k := range objects {
		keys = append(keys, k)
	}
	for k := range failures {
		keys = append(keys, k)
	}
	storeMock.
		EXPECT().
		List(gomock.Any(), bucket).
		Return(keys, nil)

	for k, obj := range objects {
		storeMock.
			EXPECT().
			Get(gomock.Any(), bucket, k).
			Return(obj, nil)
	}
	for k, err := range failures {
		storeMock.
			EXPECT().
			Get(gomock.Any(), bucket, k).
			Return(objectstore.Object{}, err)
	}

	return storeMock
}

func listFails(ctrlr *gomock.Controller, err error) objectstore.Store {
	storeMock := objectstore.NewMockStore(ctrlr)
	storeMock.
		EXPECT().
		List(gomock.Any(), bucket).
		Return(nil, err)
	return storeMock
}

func putReturns(ctrlr *gomock.Controller, expectedPayload string, receipt objectstore.Receipt, err error) objectstore.Store {
	storeMock := objectstore.NewMockStore(ctrlr)
	storeMock.
		EXPECT().
		Put(gomock.Any(), bucket, "key-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, body io.ReadSeeker) (objectstore.Receipt, error) {
			data, readErr := io.ReadAll(body)
			if readErr != nil || string(data) != expectedPayload {
				return objectstore.Receipt{}, errors.New("unexpected payload " + string(data))
			}
			return receipt, err
		})
	return storeMock
}
