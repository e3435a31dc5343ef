package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/artifacts"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/jobs"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/logging"
	"github.com/sajjadgill720/Automated-Machine-Learning-AutoML-Platform/pkg/pipeline"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerWithCap(t, 0)
}

func newTestServerWithCap(t *testing.T, maxSampleRows int) *Server {
	t.Helper()
	arts := artifacts.NewManager(t.TempDir(), logging.Global())
	runner := pipeline.NewRunner(arts, 2, logging.Global())
	manager := jobs.NewManager(jobs.NewMemoryStore(), runner, arts, 2, time.Hour, logging.Global())
	t.Cleanup(manager.Shutdown)
	return NewServer(":0", manager, maxSampleRows, logging.Global())
}

func trainBody(t *testing.T, rows int) []byte {
	t.Helper()
	payload := map[string]any{
		"dataset": map[string]any{
			"name": "churn",
			"rows": makeRows(rows),
		},
		"config": map[string]any{
			"target_column": "churn",
			"task_type":     "classification",
		},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return body
}

func makeRows(n int) []map[string]any {
	rows := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		label := "no"
		if i%10 >= 5 {
			label = "yes"
		}
		rows[i] = map[string]any{
			"x1":    float64(i % 10),
			"x2":    float64(i % 3),
			"churn": label,
		}
	}
	return rows
}

func doRequest(s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(s, http.MethodGet, "/ready", nil).Code)
}

func TestTrainAccepted(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/train", trainBody(t, 60))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["job_id"])
}

func TestTrainMalformedBody(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/train", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestTrainInvalidConfig(t *testing.T) {
	s := newTestServer(t)
	payload := map[string]any{
		"dataset": map[string]any{"name": "d", "rows": makeRows(20)},
		"config":  map[string]any{"target_column": "churn", "task_type": "clustering"},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := doRequest(s, http.MethodPost, "/api/train", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrainEmptyDataset(t *testing.T) {
	s := newTestServer(t)
	body := []byte(`{"dataset":{"name":"d","rows":[]},"config":{"target_column":"y","task_type":"classification"}}`)
	rec := doRequest(s, http.MethodPost, "/api/train", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrainAppliesServerSampleCap(t *testing.T) {
	s := newTestServerWithCap(t, 4)

	// The request leaves max_sample_rows unset, so the server default applies.
	rec := doRequest(s, http.MethodPost, "/api/train", trainBody(t, 60))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var submit map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submit))

	statusPath := fmt.Sprintf("/api/jobs/%s/status", submit["job_id"])
	var status map[string]any
	require.Eventually(t, func() bool {
		r := doRequest(s, http.MethodGet, statusPath, nil)
		if r.Code != http.StatusOK {
			return false
		}
		status = map[string]any{}
		if err := json.Unmarshal(r.Body.Bytes(), &status); err != nil {
			return false
		}
		st := status["status"].(string)
		return st == "completed" || st == "error"
	}, 30*time.Second, 50*time.Millisecond)

	// A four-row sample cannot be split, so the run fails during
	// preprocessing; without the cap the same dataset trains fine.
	require.Equal(t, "error", status["status"])
	assert.Contains(t, status["error"], "need at least 5 rows")
}

func TestStatusUnknownJob(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/jobs/does-not-exist/status", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultUnknownJob(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/api/jobs/does-not-exist/result", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelUnknownJob(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/api/jobs/does-not-exist/cancel", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusPollingToCompletion(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/train", trainBody(t, 60))
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submit map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submit))
	jobID := submit["job_id"]

	statusPath := fmt.Sprintf("/api/jobs/%s/status", jobID)
	var status map[string]any
	require.Eventually(t, func() bool {
		r := doRequest(s, http.MethodGet, statusPath, nil)
		if r.Code != http.StatusOK {
			return false
		}
		status = map[string]any{}
		if err := json.Unmarshal(r.Body.Bytes(), &status); err != nil {
			return false
		}
		st := status["status"].(string)
		return st == "completed" || st == "error"
	}, 60*time.Second, 100*time.Millisecond)

	require.Equal(t, "completed", status["status"], "job error: %v", status["error"])
	assert.Equal(t, float64(100), status["progress"])

	rec = doRequest(s, http.MethodGet, fmt.Sprintf("/api/jobs/%s/result", jobID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result["run_id"])
	assert.NotEmpty(t, result["best_model_name"])

	// Cancelling a finished job conflicts.
	rec = doRequest(s, http.MethodPost, fmt.Sprintf("/api/jobs/%s/cancel", jobID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListJobs(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/api/train", trainBody(t, 60))
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = doRequest(s, http.MethodGet, "/api/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string][]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp["jobs"], 1)
}
