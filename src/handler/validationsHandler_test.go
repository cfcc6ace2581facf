package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"sectorsguard/src/model"
	"sectorsguard/src/persistence"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRunner struct {
	dataset, start, end string
	result              *model.ValidationResult
	summary             *model.BatchSummary
}

func (m *mockRunner) Validate(_ context.Context, dataset, start, end string) *model.ValidationResult {
	m.dataset, m.start, m.end = dataset, start, end
	return m.result
}

func (m *mockRunner) ValidateAll(_ context.Context, start, end string) *model.BatchSummary {
	m.start, m.end = start, end
	return m.summary
}

type mockHistory struct {
	rows    []model.ValidationResultRecord
	err     error
	dataset string
	limit   int
	latest  bool
	single  bool
	since   time.Time
	counts  map[string]int64
}

func (m *mockHistory) History(_ context.Context, dataset string, limit int) ([]model.ValidationResultRecord, error) {
	m.dataset, m.limit = dataset, limit
	return m.rows, m.err
}

func (m *mockHistory) LatestByDataset(_ context.Context, dataset string) (*model.ValidationResultRecord, error) {
	m.single, m.dataset = true, dataset
	if len(m.rows) == 0 {
		return nil, m.err
	}
	return &m.rows[0], m.err
}

func (m *mockHistory) LatestPerDataset(context.Context) ([]model.ValidationResultRecord, error) {
	m.latest = true
	return m.rows, m.err
}

func (m *mockHistory) StatusCounts(_ context.Context, since time.Time) (map[string]int64, error) {
	m.since = since
	return m.counts, m.err
}

type mockDatasets []string

func (m mockDatasets) Datasets() []string { return m }

type mockExceptions struct {
	rows    []model.Exception
	err     error
	dataset string
	limit   int
}

func (m *mockExceptions) Recent(_ context.Context, dataset string, limit int) ([]model.Exception, error) {
	m.dataset, m.limit = dataset, limit
	return m.rows, m.err
}

type mockLocal struct {
	results []persistence.LocalResult
}

func (m *mockLocal) LoadLocal(int) ([]persistence.LocalResult, error) {
	return m.results, nil
}

type mockConfigStore struct {
	cfg      *model.ValidationConfig
	err      error
	upserted *model.ValidationConfig
}

func (m *mockConfigStore) FindByDataset(context.Context, string) (*model.ValidationConfig, error) {
	return m.cfg, m.err
}

func (m *mockConfigStore) Upsert(_ context.Context, cfg *model.ValidationConfig) error {
	m.upserted = cfg
	return m.err
}

func route(method, pattern string, h http.HandlerFunc) http.Handler {
	r := chi.NewRouter()
	r.Method(method, pattern, h)
	return r
}

func TestValidateDatasetHandler_Success(t *testing.T) {
	runner := &mockRunner{result: &model.ValidationResult{DatasetName: "idx_dividend", Status: model.StatusWarning}}
	h := route(http.MethodPost, "/validations/{dataset}", ValidateDatasetHandler(runner))

	req := httptest.NewRequest(http.MethodPost, "/validations/idx_dividend?start_date=2024-01-01&end_date=2024-06-30", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idx_dividend", runner.dataset)
	assert.Equal(t, "2024-01-01", runner.start)
	assert.Equal(t, "2024-06-30", runner.end)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "warning", body["status"])
	assert.Equal(t, "idx_dividend", body["table_name"])
}

func TestValidateDatasetHandler_FailedRun(t *testing.T) {
	runner := &mockRunner{result: &model.ValidationResult{DatasetName: "nope", Status: model.StatusError, Error: "unknown dataset: nope"}}
	h := route(http.MethodPost, "/validations/{dataset}", ValidateDatasetHandler(runner))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/validations/nope", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "unknown dataset")
}

func TestValidateAllHandler(t *testing.T) {
	runner := &mockRunner{summary: &model.BatchSummary{TotalTables: 9, SuccessfulValidations: 8, TotalAnomalies: 3}}
	h := route(http.MethodPost, "/validations", ValidateAllHandler(runner))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/validations?start_date=2024-06-01", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "2024-06-01", runner.start)
	assert.JSONEq(t, `{"total_tables":9,"successful_validations":8,"total_anomalies":3,"results":null}`, rr.Body.String())
}

func TestResultsHandler(t *testing.T) {
	history := &mockHistory{rows: []model.ValidationResultRecord{{DatasetName: "idx_filings", Status: "error"}}}
	local := &mockLocal{results: []persistence.LocalResult{{ID: "idx_filings_x", Result: &model.ValidationResult{DatasetName: "idx_filings"}}}}
	h := route(http.MethodGet, "/validations/results", ResultsHandler(history, local))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results?dataset=idx_filings&limit=5", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idx_filings", history.dataset)
	assert.Equal(t, 5, history.limit)
	assert.False(t, history.latest)

	var body resultsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Results, 1)
	require.Len(t, body.LocalResults, 1)
	assert.Equal(t, "idx_filings_x", body.LocalResults[0].ID)
}

func TestResultsHandler_LatestAndErrors(t *testing.T) {
	history := &mockHistory{}
	h := route(http.MethodGet, "/validations/results", ResultsHandler(history, nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results?latest=true", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, history.latest)
	assert.JSONEq(t, `{"results":[],"local_results":[]}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results?limit=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	history.err = assert.AnError
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestResultsHandler_LatestForOneDataset(t *testing.T) {
	history := &mockHistory{rows: []model.ValidationResultRecord{{DatasetName: "idx_dividend", Status: "warning"}}}
	h := route(http.MethodGet, "/validations/results", ResultsHandler(history, nil))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results?latest=true&dataset=idx_dividend", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, history.single)
	assert.False(t, history.latest)
	assert.Equal(t, "idx_dividend", history.dataset)

	var body resultsResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Results, 1)
	assert.Equal(t, "warning", body.Results[0].Status)

	history.rows = nil
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results?latest=true&dataset=idx_unknown", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"results":[],"local_results":[]}`, rr.Body.String())
}

func TestDatasetsHandler(t *testing.T) {
	h := route(http.MethodGet, "/validations/datasets", DatasetsHandler(mockDatasets{"idx_dividend", "idx_filings"}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/datasets", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"datasets":["idx_dividend","idx_filings"]}`, rr.Body.String())
}

func TestResultsSummaryHandler(t *testing.T) {
	now := time.Date(2024, 6, 28, 12, 0, 0, 0, time.UTC)
	history := &mockHistory{counts: map[string]int64{"success": 7, "error": 2}}
	h := route(http.MethodGet, "/validations/results/summary", ResultsSummaryHandler(history, func() time.Time { return now }))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results/summary?since_hours=6", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, now.Add(-6*time.Hour), history.since)
	assert.JSONEq(t, `{"since":"2024-06-28T06:00:00Z","counts":{"success":7,"error":2}}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results/summary", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, now.Add(-24*time.Hour), history.since)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results/summary?since_hours=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	history.err = assert.AnError
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/results/summary", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestExceptionsHandler(t *testing.T) {
	store := &mockExceptions{rows: []model.Exception{{Method: "ValidateAll", Dataset: "idx_filings", Level: "fatal"}}}
	h := route(http.MethodGet, "/validations/exceptions", ExceptionsHandler(store))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/exceptions?dataset=idx_filings&limit=3", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "idx_filings", store.dataset)
	assert.Equal(t, 3, store.limit)
	assert.Contains(t, rr.Body.String(), `"level":"fatal"`)

	store.rows = nil
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/exceptions", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 50, store.limit)
	assert.JSONEq(t, `{"exceptions":[]}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/exceptions?limit=0", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestGetConfigHandler(t *testing.T) {
	store := &mockConfigStore{}
	h := route(http.MethodGet, "/validations/config/{dataset}", GetConfigHandler(store))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/config/payments", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	store.cfg = &model.ValidationConfig{DatasetName: "payments", ErrorThreshold: 3, Enabled: true}
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/validations/config/payments", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"error_threshold":3`)
}

func TestPutConfigHandler(t *testing.T) {
	store := &mockConfigStore{}
	h := route(http.MethodPut, "/validations/config/{dataset}", PutConfigHandler(store))

	body := `{"validation_rules":{"time_column":"ts"},"validation_types":["time_series"],"email_recipients":["ops@example.com"],"enabled":false}`
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/validations/config/payments", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, store.upserted)
	assert.Equal(t, "payments", store.upserted.DatasetName)
	assert.Equal(t, 5, store.upserted.ErrorThreshold)
	assert.False(t, store.upserted.Enabled)
	assert.Equal(t, []string{"time_series"}, store.upserted.Kinds())
	assert.Equal(t, []string{"ops@example.com"}, store.upserted.Recipients())
	assert.Equal(t, "ts", store.upserted.Rules()["time_column"])
}

func TestPutConfigHandler_BadInput(t *testing.T) {
	store := &mockConfigStore{}
	h := route(http.MethodPut, "/validations/config/{dataset}", PutConfigHandler(store))

	for _, body := range []string{"{", `{"error_threshold":-1}`} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/validations/config/payments", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
	assert.Nil(t, store.upserted)
}
