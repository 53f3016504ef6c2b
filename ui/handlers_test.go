package ui

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"flakewatch/app"
	"flakewatch/domain/core"
	"flakewatch/domain/run"
	"flakewatch/domain/stability"
	"flakewatch/internal/testkit"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var outcomes []run.Outcome
	for i := 0; i < 100; i++ {
		outcomes = append(outcomes, run.Outcome{EntityID: "sharks", Snapshot: jan.Add(time.Duration(i) * time.Hour), Failed: i < 5})
		outcomes = append(outcomes, run.Outcome{EntityID: "sharks", Snapshot: jan.AddDate(0, 1, 0).Add(time.Duration(i) * time.Hour), Failed: i < 40})
	}

	svc := app.NewStabilityService(testkit.NewMemorySource(outcomes), stability.DefaultConfig(), nil)
	srv, err := NewServer(svc, Config{DefaultGranularity: core.GranularityMonth}, nil)
	require.NoError(t, err)
	return srv
}

func TestHandleStability_ReturnsSortedGrid(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stability", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var report app.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&report))
	require.Len(t, report.Results, 1)
	require.Equal(t, "sharks", report.Results[0].EntityID)
	require.Equal(t, stability.VerdictReject, report.Results[0].Verdict)
}

func TestHandleStability_RejectsBadGranularity(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stability?granularity=fortnight", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEntityDetail_UnknownEntityIs404(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stability/unknown", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleEntityDetail_IncludesBuckets(t *testing.T) {
	srv := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/stability/sharks", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var res app.EntityResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Equal(t, "sharks", res.EntityID)
	require.Len(t, res.Buckets, 2)
	require.True(t, res.Buckets[0].Period.Before(res.Buckets[1].Period))
}

func TestHandleIndexAndReport_RenderHTML(t *testing.T) {
	srv := testServer(t)

	for _, path := range []string{"/", "/report"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, path)
		require.Contains(t, rec.Header().Get("Content-Type"), "text/html", path)
		require.Contains(t, rec.Body.String(), "sharks", path)
	}
}
