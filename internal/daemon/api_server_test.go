package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vigil/internal/alerts"
	"vigil/internal/api"
	"vigil/internal/config"
	"vigil/internal/queue"
	"vigil/internal/testsupport"
)

type apiFixture struct {
	srv        *apiServer
	daemon     *Daemon
	store      queue.Store
	alertStore *alerts.Store
}

func newTestAPIServer(t *testing.T, cfg *config.Config) *apiFixture {
	t.Helper()

	d, store, alertStore, _ := newTestDaemon(t, cfg)
	srv, err := newAPIServer(cfg, d, nil)
	if err != nil {
		t.Fatalf("newAPIServer failed: %v", err)
	}
	if srv == nil {
		t.Fatal("expected server for configured bind address")
	}
	return &apiFixture{srv: srv, daemon: d, store: store, alertStore: alertStore}
}

func (f *apiFixture) do(t *testing.T, method, target, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func TestAPIServerDisabledWithoutBind(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIBind = ""

	srv, err := newAPIServer(cfg, nil, nil)
	if err != nil {
		t.Fatalf("newAPIServer failed: %v", err)
	}
	if srv != nil {
		t.Fatal("expected nil server when bind address is empty")
	}
	if err := srv.start(context.Background()); err != nil {
		t.Fatalf("nil server start must be a no-op, got %v", err)
	}
	srv.stop()
}

func TestAPIServerHealth(t *testing.T) {
	f := newTestAPIServer(t, testsupport.NewConfig(t))

	rec := f.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	health := decodeBody[api.HealthResponse](t, rec)
	if health.Status != "ok" {
		t.Fatalf("unexpected health status %q", health.Status)
	}
	if health.Running {
		t.Fatal("daemon was never started, Running should be false")
	}
}

func TestAPIServerSubmit(t *testing.T) {
	f := newTestAPIServer(t, testsupport.NewConfig(t))

	body := `{"streamId":"cam-nursery","scenario":"baby","trigger":"motion","magnitude":0.9,"framePath":"/tmp/frame.jpg"}`
	rec := f.do(t, http.MethodPost, "/api/jobs", body, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[api.SubmitResponse](t, rec)
	if resp.ID == 0 {
		t.Fatal("expected job id in response")
	}
	if resp.Priority != queue.PriorityUrgent.String() {
		t.Fatalf("expected urgent priority, got %q", resp.Priority)
	}

	stored, err := f.store.GetByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored == nil || stored.StreamID != "cam-nursery" {
		t.Fatalf("submitted job not persisted: %+v", stored)
	}
}

func TestAPIServerSubmitRejections(t *testing.T) {
	f := newTestAPIServer(t, testsupport.NewConfig(t))

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"streamId":`},
		{"unknown scenario", `{"streamId":"cam","scenario":"aquarium","trigger":"motion","framePath":"/tmp/f.jpg"}`},
		{"missing payload", `{"streamId":"cam","scenario":"pet","trigger":"motion"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/api/jobs", tc.body, nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			var fail map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &fail); err != nil || fail["error"] == "" {
				t.Fatalf("expected error body, got %q", rec.Body.String())
			}
		})
	}

	jobs, err := f.store.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("rejected submissions must not create job records, have %d", len(jobs))
	}
}

func TestAPIServerJobs(t *testing.T) {
	f := newTestAPIServer(t, testsupport.NewConfig(t))

	testsupport.MustEnqueue(t, f.store, testsupport.FrameJob("cam-yard", "pet", queue.PriorityNormal))
	failed := testsupport.MustEnqueue(t, f.store, testsupport.FrameJob("cam-door", "elderly", queue.PriorityHigh))
	failed.SetFailed("backend offline")
	if err := f.store.Update(context.Background(), failed); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	rec := f.do(t, http.MethodGet, "/api/jobs", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[api.JobListResponse](t, rec)
	if len(list.Jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(list.Jobs))
	}

	rec = f.do(t, http.MethodGet, "/api/jobs?status=failed", "", nil)
	list = decodeBody[api.JobListResponse](t, rec)
	if len(list.Jobs) != 1 || list.Jobs[0].Status != "failed" {
		t.Fatalf("unexpected filtered list: %+v", list.Jobs)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs?status=bogus", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestAPIServerJobByID(t *testing.T) {
	f := newTestAPIServer(t, testsupport.NewConfig(t))
	job := testsupport.MustEnqueue(t, f.store, testsupport.FrameJob("cam-yard", "pet", queue.PriorityNormal))

	rec := f.do(t, http.MethodGet, fmt.Sprintf("/api/jobs/%d", job.ID), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody[api.JobResponse](t, rec)
	if resp.Job.ID != job.ID || resp.Job.StreamID != "cam-yard" {
		t.Fatalf("unexpected job payload: %+v", resp.Job)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs/99999", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs/notanumber", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestAPIServerStats(t *testing.T) {
	f := newTestAPIServer(t, testsupport.NewConfig(t))
	testsupport.MustEnqueue(t, f.store, testsupport.FrameJob("cam-yard", "pet", queue.PriorityNormal))

	rec := f.do(t, http.MethodGet, "/api/stats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stats := decodeBody[api.StatsResponse](t, rec)
	if stats.Total != 1 || stats.Counts["pending"] != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.Running {
		t.Fatal("scheduler was never started, Running should be false")
	}
}

func TestAPIServerAlerts(t *testing.T) {
	f := newTestAPIServer(t, testsupport.NewConfig(t))
	alert := alerts.NewSystemAlert(alerts.SeverityWarning, "camera_removed", "camera detached: /dev/video0")
	f.alertStore.Add(alert)

	rec := f.do(t, http.MethodGet, "/api/alerts", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	list := decodeBody[api.AlertListResponse](t, rec)
	if len(list.Alerts) != 1 || list.Alerts[0].ID != alert.ID {
		t.Fatalf("unexpected alert list: %+v", list.Alerts)
	}
	if list.Alerts[0].Acknowledged {
		t.Fatal("alert should start unacknowledged")
	}

	rec = f.do(t, http.MethodGet, "/api/alerts?limit=notanumber", "", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed limit, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodPost, "/api/alerts/"+alert.ID+"/ack", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	ack := decodeBody[api.AckResponse](t, rec)
	if ack.ID != alert.ID || !ack.Acknowledged {
		t.Fatalf("unexpected ack response: %+v", ack)
	}

	rec = f.do(t, http.MethodPost, "/api/alerts/missing/ack", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown alert, got %d", rec.Code)
	}
}

func TestAPIServerAuth(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Paths.APIToken = "secret"
	f := newTestAPIServer(t, cfg)

	rec := f.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health must stay public, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs", "", map[string]string{"Authorization": "Bearer wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/jobs", "", map[string]string{"Authorization": "Bearer secret"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d: %s", rec.Code, rec.Body.String())
	}
}
