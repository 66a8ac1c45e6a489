package httputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trimslot/trimslot/pkg/observability"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteSuccess(rec, map[string]string{"organization_id": "org-1"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "org-1", decodeBody(t, rec)["organization_id"])
}

func TestWriteCreated(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteCreated(rec, map[string]string{"fingerprint": "abc"}))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "abc", decodeBody(t, rec)["fingerprint"])
}

func TestWriteNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteNoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestErrorHelpersShareOneShape(t *testing.T) {
	cases := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "expires_at is required") }, http.StatusBadRequest},
		{"validation", func(w http.ResponseWriter) { WriteValidationError(w, "reason is required") }, http.StatusBadRequest},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "authentication required") }, http.StatusUnauthorized},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "not authorized") }, http.StatusForbidden},
		{"not found", func(w http.ResponseWriter) { WriteNotFoundError(w, "principal not found") }, http.StatusNotFound},
		{"internal", func(w http.ResponseWriter) {
			WriteInternalError(w, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("boom"))
		}, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.write(rec)

			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Len(t, body, 1, "error body carries only the error field")
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestWriteInternalErrorHidesCause(t *testing.T) {
	var buf bytes.Buffer
	logger := observability.NewLogger(observability.ErrorLevel, &buf)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(observability.WithLogger(req.Context(), logger))
	rec := httptest.NewRecorder()

	WriteInternalError(rec, req, errors.New(`pq: connection refused on host "db-1:5432"`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db-1")
	assert.Equal(t, "internal server error", decodeBody(t, rec)["error"])
	assert.Contains(t, buf.String(), "db-1:5432", "cause is logged, not echoed")
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusConflict, errors.New("slug already in use"))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slug already in use", decodeBody(t, rec)["error"])
}
