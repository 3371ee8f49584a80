package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunmann/s3-proxy/pkg/objectstore"
)

func TestVariants(t *testing.T) {
	storeErr := &objectstore.Error{Op: "list", Bucket: "b", StatusCode: http.StatusForbidden, Code: "AccessDenied", Message: "denied"}

	testCases := []struct {
		name         string
		result       Result
		expectedCode ResponseCode
		expectedHTTP int
		expectedJSON string
	}{
		{
			name:         "success",
			result:       Success([]string{"a", "b"}),
			expectedCode: OK,
			expectedHTTP: http.StatusOK,
			expectedJSON: `{"responseCode":0,"message":"","messages":["a","b"]}`,
		},
		{
			name:         "empty success renders empty list",
			result:       Success(nil),
			expectedCode: OK,
			expectedHTTP: http.StatusOK,
			expectedJSON: `{"responseCode":0,"message":"","messages":[]}`,
		},
		{
			name:         "store failure mirrors status",
			result:       StoreFailure(http.StatusNotFound, "no such bucket"),
			expectedCode: StoreError,
			expectedHTTP: http.StatusNotFound,
			expectedJSON: `{"responseCode":1,"message":"no such bucket","messages":null}`,
		},
		{
			name:         "store failure without status",
			result:       StoreFailure(0, "boom"),
			expectedCode: StoreError,
			expectedHTTP: http.StatusInternalServerError,
			expectedJSON: `{"responseCode":1,"message":"boom","messages":null}`,
		},
		{
			name:         "generic failure",
			result:       Failure("decode failed"),
			expectedCode: GenericError,
			expectedHTTP: http.StatusInternalServerError,
			expectedJSON: `{"responseCode":2,"message":"decode failed","messages":null}`,
		},
		{
			name:         "from wrapped store error",
			result:       FromError(fmt.Errorf("aggregate: %w", storeErr)),
			expectedCode: StoreError,
			expectedHTTP: http.StatusForbidden,
		},
		{
			name:         "from plain error",
			result:       FromError(errors.New("plain")),
			expectedCode: GenericError,
			expectedHTTP: http.StatusInternalServerError,
			expectedJSON: `{"responseCode":2,"message":"plain","messages":null}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedCode, tc.result.ResponseCode)
			assert.Equal(t, tc.expectedHTTP, tc.result.HTTPStatus())
			assert.Equal(t, tc.expectedCode == OK, tc.result.IsOK())

			if tc.expectedJSON != "" {
				raw, err := json.Marshal(tc.result)
				require.NoError(t, err)
				assert.JSONEq(t, tc.expectedJSON, string(raw))
			}
		})
	}
}

func TestResponseCodeString(t *testing.T) {
	assert.Equal(t, "ok", OK.String())
	assert.Equal(t, "store_error", StoreError.String())
	assert.Equal(t, "error", GenericError.String())
	assert.Equal(t, "ResponseCode(7)", ResponseCode(7).String())
}
