package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clock "k8s.io/utils/clock/testing"

	"github.com/agentgate/agentgate/internal/common/health"
	"github.com/agentgate/agentgate/internal/common/requestid"
	"github.com/agentgate/agentgate/internal/scheduler"
	"github.com/agentgate/agentgate/internal/scheduler/configuration"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, slots int) (*Server, *health.StartupCompleteChecker) {
	config := configuration.DefaultSchedulingConfig()
	config.MaxConcurrentSlots = slots
	testClock := clock.NewFakeClock(testNow)
	sched, err := scheduler.New(config, scheduler.WithClock(testClock))
	require.NoError(t, err)
	startup := health.NewStartupCompleteChecker()
	return New(sched, startup, WithClock(testClock)), startup
}

func do(t *testing.T, srv http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func submitRequest(jobId, tenantId, tier string) *submitJobRequest {
	return &submitJobRequest{
		JobId:                    jobId,
		TenantId:                 tenantId,
		TargetId:                 "target-" + jobId,
		Tier:                     tier,
		EstimatedDurationMinutes: 10,
		CreatedAt:                testNow,
	}
}

func TestSubmitJob(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	w := do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-1", "alice", "free"))
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[submitJobResponse](t, w)
	assert.True(t, resp.Admitted)
	assert.Equal(t, 0, resp.Position)
	assert.True(t, testNow.Equal(resp.EstimatedStart))

	w = do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-2", "bob", "FREE"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[submitJobResponse](t, w).Admitted)

	w = do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-3", "carol", "FREE"))
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[submitJobResponse](t, w)
	assert.False(t, resp.Admitted)
	assert.Equal(t, 1, resp.Position)
	assert.True(t, testNow.Add(450*time.Second).Equal(resp.EstimatedStart), resp.EstimatedStart)
}

func TestSubmitJob_DefaultsCreatedAt(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	req := submitRequest("job-1", "alice", "PRO")
	req.CreatedAt = time.Time{}
	w := do(t, srv, http.MethodPost, "/api/v1/jobs", req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[submitJobResponse](t, w).Admitted)
}

func TestSubmitJob_Invalid(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	w := do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("", "", "PRO"))
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[errorResponse](t, w)
	assert.Equal(t, w.Header().Get(requestid.HeaderKey), resp.RequestId)
	fields := make([]string, len(resp.Fields))
	for i, field := range resp.Fields {
		fields[i] = field.Field
	}
	assert.ElementsMatch(t, []string{"id", "tenantId"}, fields)
}

func TestSubmitJob_MalformedBody(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/jobs", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[errorResponse](t, w)
	if assert.Len(t, resp.Fields, 1) {
		assert.Equal(t, "body", resp.Fields[0].Field)
	}
}

func TestSubmitJob_BodyTooLarge(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	req := submitRequest("job-1", "alice", "PRO")
	req.TargetId = strings.Repeat("x", maxRequestBodyBytes)
	w := do(t, srv, http.MethodPost, "/api/v1/jobs", req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[errorResponse](t, w)
	if assert.Len(t, resp.Fields, 1) {
		assert.Equal(t, "body", resp.Fields[0].Field)
	}

	// Nothing was submitted.
	w = do(t, srv, http.MethodGet, "/api/v1/scheduler", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, decode[snapshotResponse](t, w).ActiveJobs)
}

func TestNotFound(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	w := do(t, srv, http.MethodGet, "/api/v1/nothing-here", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decode[errorResponse](t, w)
	assert.Contains(t, resp.Error, "/api/v1/nothing-here")
	assert.Equal(t, w.Header().Get(requestid.HeaderKey), resp.RequestId)
}

func TestSubmitJob_Duplicate(t *testing.T) {
	srv, _ := newTestServer(t, 2)

	w := do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-1", "alice", "PRO"))
	require.Equal(t, http.StatusOK, w.Code)
	w = do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-1", "alice", "PRO"))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCompleteJob(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-1", "alice", "MAX"))
	do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-2", "bob", "PRO"))

	w := do(t, srv, http.MethodPost, "/api/v1/jobs/job-1/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[completeJobResponse](t, w)
	if assert.Len(t, resp.Promoted, 1) {
		assert.Equal(t, "job-2", resp.Promoted[0].JobId)
		assert.Equal(t, "bob", resp.Promoted[0].TenantId)
		assert.Equal(t, "PRO", resp.Promoted[0].Tier)
		assert.True(t, testNow.Equal(resp.Promoted[0].Started))
	}

	// Completing an unknown job is not an error.
	w = do(t, srv, http.MethodPost, "/api/v1/jobs/job-unknown/complete", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[completeJobResponse](t, w).Promoted)
}

func TestGetTenantStatus(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-1", "alice", "MAX"))
	do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-2", "bob", "PRO"))
	do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-3", "carol", "FREE"))

	w := do(t, srv, http.MethodGet, "/api/v1/tenants/carol/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[tenantStatusResponse](t, w)
	assert.Equal(t, "carol", resp.TenantId)
	assert.Equal(t, 2, resp.Position)
	assert.Equal(t, 15.0, resp.EstimatedWaitMinutes)
	assert.Equal(t, 0, resp.ActiveCount)

	w = do(t, srv, http.MethodGet, "/api/v1/tenants/alice/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp = decode[tenantStatusResponse](t, w)
	assert.Equal(t, 0, resp.Position)
	assert.Equal(t, 1, resp.ActiveCount)
}

func TestGetSnapshot(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-1", "alice", "MAX"))
	do(t, srv, http.MethodPost, "/api/v1/jobs", submitRequest("job-2", "alice", "MAX"))

	w := do(t, srv, http.MethodGet, "/api/v1/scheduler", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, snapshotResponse{
		MaxConcurrentSlots:        1,
		TierConcurrencyLimits:     map[string]int{"FREE": 1, "PRO": 3, "MAX": 8},
		AverageJobDurationMinutes: 15,
		PeakHour:                  true,
		ActiveJobs:                1,
		WaitingJobs:               1,
		Tenants: map[string]*tenantSnapshotResponse{
			"alice": {ActiveJobs: 1, WaitingJobs: 1},
		},
	}, decode[snapshotResponse](t, w))
}

func TestHealth(t *testing.T) {
	srv, startup := newTestServer(t, 1)

	w := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	startup.MarkComplete()
	w = do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestIdIsPropagated(t *testing.T) {
	srv, _ := newTestServer(t, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/scheduler", nil)
	req.Header.Set(requestid.HeaderKey, "my-request")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, "my-request", w.Header().Get(requestid.HeaderKey))
}
