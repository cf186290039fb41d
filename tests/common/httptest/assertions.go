//go:build unit || e2e

package httptest

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"cinema-booking/internal/handler/httperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONResponse checks the status and decodes a 2xx body into target.
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, status int, target any) {
	t.Helper()

	if !assert.Equal(t, status, w.Code, "unexpected status, body: %s", w.Body.String()) {
		return
	}
	if target != nil && status >= 200 && status < 300 {
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "decode body: %s", w.Body.String())
	}
}

// AssertErrorResponse checks the status and that the error message contains msg.
// An empty msg only checks the body shape.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	t.Helper()

	assert.Equal(t, status, w.Code, "unexpected status, body: %s", w.Body.String())

	var resp httperr.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "decode error body: %s", w.Body.String())
	if msg != "" {
		assert.Contains(t, resp.Error.Message, msg)
	}
}

// AssertRequestID checks that the logging middleware tagged the response.
func AssertRequestID(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	id := w.Header().Get("X-Request-ID")
	assert.NotEmpty(t, id, "X-Request-ID header missing")
	return id
}
