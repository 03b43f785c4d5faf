package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/common"
	"github.com/ternarybob/cogsim/internal/interfaces"
	"github.com/ternarybob/cogsim/internal/models"
	"github.com/ternarybob/cogsim/internal/services/simulation"
)

// stubAdapter is a minimal always-succeeding backend for route tests.
type stubAdapter struct {
	name string
}

func (a *stubAdapter) BackendName() string { return a.name }

func (a *stubAdapter) CreateJob(jobID, workdir string, inputs map[string]interface{}) (*models.SimulationJob, error) {
	jobDir := filepath.Join(workdir, jobID)
	if err := os.MkdirAll(jobDir, 0755); err != nil {
		return nil, err
	}
	if inputs == nil {
		inputs = map[string]interface{}{}
	}
	return &models.SimulationJob{JobID: jobID, Backend: a.name, Workdir: jobDir, Inputs: inputs}, nil
}

func (a *stubAdapter) Run(ctx context.Context, job *models.SimulationJob) *models.SimulationResult {
	return &models.SimulationResult{
		JobID:   job.JobID,
		Status:  models.JobStatusCompleted,
		Metrics: map[string]float64{"residual_final_last": 1e-6},
	}
}

func (a *stubAdapter) ParseResults(job *models.SimulationJob) *models.SimulationResult {
	return a.Run(context.Background(), job)
}

func newTestServer(t *testing.T, mutate func(*common.Config)) *Server {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Workdir = t.TempDir()
	cfg.Audit.Path = filepath.Join(cfg.Workdir, "audit.jsonl")
	if mutate != nil {
		mutate(cfg)
	}

	logger := arbor.NewLogger()
	registry := map[string]interfaces.SimulationAdapter{
		"cfd-driver": &stubAdapter{name: "cfd-driver"},
	}
	svc, err := simulation.NewServiceWithAdapters(cfg, registry, logger)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	srv := New(cfg, svc, logger)
	t.Cleanup(func() { srv.audit.Close() })
	return srv
}

func doRequest(t *testing.T, srv *Server, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.RemoteAddr = "10.1.2.3:54321"
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	envelope, ok := body["error"].(map[string]interface{})
	require.True(t, ok, "expected error envelope, got %s", rec.Body.String())
	code, _ := envelope["code"].(string)
	return code
}

func TestServer_HealthEndpoints(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodGet, "/health/live", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "ts")

	rec = doRequest(t, srv, http.MethodGet, "/health/ready", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Contains(t, body, "summary")

	rec = doRequest(t, srv, http.MethodGet, "/health/backends", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_VersionAndEffectiveConfig(t *testing.T) {
	srv := newTestServer(t, func(cfg *common.Config) {
		cfg.Auth.APIKey = "super-secret"
	})

	headers := map[string]string{"X-API-Key": "super-secret"}

	rec := doRequest(t, srv, http.MethodGet, "/version", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeBody(t, rec), "version")

	rec = doRequest(t, srv, http.MethodGet, "/config/effective", nil, headers)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["api_key_required"])
	assert.NotContains(t, rec.Body.String(), "super-secret", "effective config must never leak the key")
}

func TestServer_JobLifecycleRoutes(t *testing.T) {
	srv := newTestServer(t, nil)

	// Create
	rec := doRequest(t, srv, http.MethodPost, "/jobs",
		map[string]interface{}{"backend": "cfd-driver", "inputs": map[string]interface{}{"mesh": "fine"}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decodeBody(t, rec)
	jobID := created["job_id"].(string)
	require.NotEmpty(t, jobID)

	// Detail
	rec = doRequest(t, srv, http.MethodGet, "/jobs/"+jobID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody(t, rec)
	assert.NotNil(t, detail["job"])

	// Enqueue with an explicit budget
	rec = doRequest(t, srv, http.MethodPost, "/jobs/"+jobID+"/enqueue?max_attempts=2", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Worker step
	rec = doRequest(t, srv, http.MethodPost, "/queue/run-next", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	step := decodeBody(t, rec)
	assert.Equal(t, string(models.WorkerStepProcessed), step["status"])
	assert.Equal(t, jobID, step["job_id"])

	// Queue record reflects completion
	rec = doRequest(t, srv, http.MethodGet, "/queue/"+jobID, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	record := decodeBody(t, rec)
	assert.Equal(t, "completed", record["state"])

	// List contains the job
	rec = doRequest(t, srv, http.MethodGet, "/jobs?limit=10", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, jobID, list[0]["job_id"])

	// Summary aggregates it
	rec = doRequest(t, srv, http.MethodGet, "/summary", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decodeBody(t, rec)
	assert.Equal(t, float64(1), summary["total_jobs"])
}

func TestServer_CancelCarriesReason(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/jobs",
		map[string]interface{}{"backend": "cfd-driver"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	jobID := decodeBody(t, rec)["job_id"].(string)

	rec = doRequest(t, srv, http.MethodPost, "/jobs/"+jobID+"/enqueue", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv, http.MethodPost, "/queue/"+jobID+"/cancel?reason=wrong+mesh", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decodeBody(t, rec)
	queue := body["queue"].(map[string]interface{})
	assert.Equal(t, "cancelled", queue["state"])
	assert.Equal(t, "wrong mesh", queue["error"])
}

func TestServer_WorkerStepAlias(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/queue/worker-step", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	step := decodeBody(t, rec)
	assert.Equal(t, string(models.WorkerStepIdle), step["status"])
}

func TestServer_ErrorEnvelopes(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := doRequest(t, srv, http.MethodPost, "/jobs",
		map[string]interface{}{"backend": "warp-drive"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CREATE_JOB_FAILED", errorCode(t, rec))

	rec = doRequest(t, srv, http.MethodGet, "/jobs/job-missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "JOB_NOT_FOUND", errorCode(t, rec))

	rec = doRequest(t, srv, http.MethodPost, "/queue/job-missing/cancel", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "QUEUE_NOT_FOUND", errorCode(t, rec))

	rec = doRequest(t, srv, http.MethodDelete, "/jobs", nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "METHOD_NOT_ALLOWED", errorCode(t, rec))
}

func TestServer_SuggestEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)

	valid := map[string]interface{}{
		"domain":       "aero",
		"planner":      "baseline",
		"design_space": map[string]interface{}{"x": []float64{0, 10}},
		"objectives": []map[string]interface{}{
			{"name": "yield", "direction": "maximize", "weight": 1.0},
		},
		"n": 2,
	}

	rec := doRequest(t, srv, http.MethodPost, "/experiments/suggest", valid, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var results []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "aero-exp-1", results[0]["experiment_id"])

	// Missing objectives fails struct validation
	invalid := map[string]interface{}{
		"domain":       "aero",
		"planner":      "baseline",
		"design_space": map[string]interface{}{"x": []float64{0, 10}},
	}
	rec = doRequest(t, srv, http.MethodPost, "/experiments/suggest", invalid, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "SUGGEST_FAILED", errorCode(t, rec))
}

func TestServer_APIKeyGate(t *testing.T) {
	srv := newTestServer(t, func(cfg *common.Config) {
		cfg.Auth.APIKey = "secret"
	})

	rec := doRequest(t, srv, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, rec))

	rec = doRequest(t, srv, http.MethodGet, "/health/live", nil, map[string]string{"X-API-Key": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, srv, http.MethodGet, "/health/live", nil, map[string]string{"X-API-Key": "secret"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RateLimit(t *testing.T) {
	srv := newTestServer(t, func(cfg *common.Config) {
		cfg.RateLimit.MaxRequests = 3
		cfg.RateLimit.WindowSec = 60
	})

	for i := 0; i < 3; i++ {
		rec := doRequest(t, srv, http.MethodGet, "/health/live", nil, nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := doRequest(t, srv, http.MethodGet, "/health/live", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, rec))

	// A different key has its own window
	rec = doRequest(t, srv, http.MethodGet, "/health/live", nil, map[string]string{"X-API-Key": "other"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_AuditTrail(t *testing.T) {
	var auditPath string
	srv := newTestServer(t, func(cfg *common.Config) {
		cfg.Auth.APIKey = "secret"
		auditPath = cfg.Audit.Path
	})

	doRequest(t, srv, http.MethodGet, "/health/live", nil, map[string]string{"X-API-Key": "secret"})
	doRequest(t, srv, http.MethodGet, "/version", nil, nil) // refused by auth
	srv.audit.Close()

	f, err := os.Open(auditPath)
	require.NoError(t, err)
	defer f.Close()

	type auditLine struct {
		TS        string `json:"ts"`
		Method    string `json:"method"`
		Path      string `json:"path"`
		Status    int    `json:"status"`
		LatencyMS *int64 `json:"latency_ms"`
		Client    string `json:"client"`
		HasAPIKey bool   `json:"has_api_key"`
	}

	var lines []auditLine
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line auditLine
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	assert.Equal(t, "/health/live", lines[0].Path)
	assert.Equal(t, http.StatusOK, lines[0].Status)
	assert.True(t, lines[0].HasAPIKey)
	assert.Equal(t, "10.1.2.3", lines[0].Client)
	require.NotNil(t, lines[0].LatencyMS)
	assert.True(t, strings.HasSuffix(lines[0].TS, "Z"))

	// Refused requests are audited too
	assert.Equal(t, "/version", lines[1].Path)
	assert.Equal(t, http.StatusUnauthorized, lines[1].Status)
	assert.False(t, lines[1].HasAPIKey)
}
