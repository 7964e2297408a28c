package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/jwols/nws-extract/internal/extract"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestHandler() (*ExtractHandler, *mux.Router) {
	h := NewExtractHandler(extract.NewInMemoryStore(), zap.NewNop())
	r := mux.NewRouter()
	h.RegisterRoutes(r, zap.NewNop())
	return h, r
}

func insertExtract(t *testing.T, r *mux.Router, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	bodyBytes, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/v1/extracts", bytes.NewReader(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestExtractHandler_InsertAndQueryByTimeRange(t *testing.T) {
	_, r := setupTestHandler()

	w := insertExtract(t, r, map[string]interface{}{
		"run_ts_utc": "2024-01-01T00:00:00Z",
		"location":   "Huntsville, AL",
		"lat":        34.73,
		"lon":        -86.59,
		"source_url": "https://api.weather.gov/gridpoints/HUN/46,44/forecast/hourly",
		"payload":    map[string]interface{}{"temperature": 72, "unit": "F"},
	})
	require.Equal(t, http.StatusCreated, w.Code, "expected status 201")

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, float64(1), created["id"])

	getReq := httptest.NewRequest(http.MethodGet,
		"/v1/extracts?start=2024-01-01T00:00:00Z&end=2024-01-01T12:00:00Z", nil)
	getW := httptest.NewRecorder()
	r.ServeHTTP(getW, getReq)
	require.Equal(t, http.StatusOK, getW.Code, "expected status 200")

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(getW.Body.Bytes(), &resp))
	require.Equal(t, float64(1), resp["count"])
	records, ok := resp["records"].([]interface{})
	require.True(t, ok, "expected records to be a slice")
	require.Len(t, records, 1)

	rec := records[0].(map[string]interface{})
	require.Equal(t, "Huntsville, AL", rec["location"])
	payload, ok := rec["payload"].(map[string]interface{})
	require.True(t, ok, "expected payload to round-trip as an object")
	require.Equal(t, "F", payload["unit"])
}

func TestExtractHandler_InsertMissingRequiredField(t *testing.T) {
	_, r := setupTestHandler()

	w := insertExtract(t, r, map[string]interface{}{
		"run_ts_utc": "2024-01-01T00:00:00Z",
		"payload":    map[string]interface{}{"unit": "F"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code, "expected status 422")
}

func TestExtractHandler_InsertOptionalFieldsOmitted(t *testing.T) {
	_, r := setupTestHandler()

	w := insertExtract(t, r, map[string]interface{}{
		"run_ts_utc": "2024-01-01T00:00:00Z",
		"location":   "Huntsville, AL",
		"payload":    map[string]interface{}{"unit": "F"},
	})
	require.Equal(t, http.StatusCreated, w.Code, "expected status 201")
}

func TestExtractHandler_QueryByTimeRangeBadParams(t *testing.T) {
	_, r := setupTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/v1/extracts?start=yesterday&end=2024-01-01T12:00:00Z", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code, "expected status 400")

	req = httptest.NewRequest(http.MethodGet, "/v1/extracts?start=2024-01-01T00:00:00Z", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code, "expected status 400")
}

func TestExtractHandler_QueryByPayload(t *testing.T) {
	_, r := setupTestHandler()

	w := insertExtract(t, r, map[string]interface{}{
		"run_ts_utc": "2024-01-01T00:00:00Z",
		"location":   "Huntsville, AL",
		"payload":    map[string]interface{}{"temperature": 72, "unit": "F"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	query := func(predicate string) map[string]interface{} {
		req := httptest.NewRequest(http.MethodPost, "/v1/extracts/query", bytes.NewReader([]byte(predicate)))
		req.Header.Set("Content-Type", "application/json")
		qw := httptest.NewRecorder()
		r.ServeHTTP(qw, req)
		require.Equal(t, http.StatusOK, qw.Code, "expected status 200")
		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(qw.Body.Bytes(), &resp))
		return resp
	}

	resp := query(`{"unit": "F"}`)
	require.Equal(t, float64(1), resp["count"])

	resp = query(`{"unit": "C"}`)
	require.Equal(t, float64(0), resp["count"])
}

func TestExtractHandler_QueryByPayloadInvalidJSON(t *testing.T) {
	_, r := setupTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/v1/extracts/query", bytes.NewReader([]byte(`{"unit":`)))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code, "expected status 400")
}
