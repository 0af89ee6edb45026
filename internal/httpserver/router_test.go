package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"buildflow/internal/handler"
	"buildflow/internal/jobs"
	"buildflow/internal/progress"
	"buildflow/internal/repository"
	"buildflow/internal/service"
	"buildflow/internal/util"
	"buildflow/pkg/dateutil"
	"buildflow/pkg/rbac"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

type fakeMetrics struct {
	gotDay time.Time
}

func (f *fakeMetrics) ProjectMetrics(ctx context.Context, projectID int, today time.Time) (progress.ProjectMetrics, error) {
	f.gotDay = today
	if projectID == 404 {
		return progress.ProjectMetrics{}, repository.ErrNotFound
	}
	return progress.ProjectMetrics{ProjectID: projectID, ProgressPercent: 20, ProgressSource: progress.SourceSchedule}, nil
}

type fakeDraws struct{}

func (fakeDraws) SynchronizeDrawDueDates(ctx context.Context, projectID int) service.SyncReport {
	return service.SyncReport{ProjectID: projectID, Updated: 2, Errors: []error{errors.New("draw 6 failed")}}
}

type fakeRunner struct {
	err    error
	gotDay time.Time
}

func (f *fakeRunner) RunPhaseProgressionFor(ctx context.Context, today time.Time) (service.ProgressionResult, error) {
	f.gotDay = today
	return service.ProgressionResult{
		ProjectsChecked: 3,
		ProjectsUpdated: 1,
		Errors:          []service.ProjectError{{ProjectID: 9, Err: errors.New("boom")}},
	}, f.err
}

func (f *fakeRunner) Today() time.Time { return dateutil.Date(2024, 6, 1) }

type testServer struct {
	router  *Router
	metrics *fakeMetrics
	runner  *fakeRunner
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := &fakeMetrics{}
	r := &fakeRunner{}
	today := func() time.Time { return dateutil.Date(2024, 6, 1) }
	ph := handler.NewProjectHandler(m, fakeDraws{}, today, zap.NewNop())
	ah := handler.NewAdminHandler(r, zap.NewNop())
	return &testServer{
		router:  NewRouter(ph, ah, testSecret, fakePinger{}, nil, zap.NewNop()),
		metrics: m,
		runner:  r,
	}
}

func (s *testServer) do(t *testing.T, method, path, role string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := util.GenerateJWT(1, role, testSecret, time.Hour)
		if err != nil {
			t.Fatalf("GenerateJWT: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if w := s.do(t, http.MethodGet, path, ""); w.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, w.Code)
		}
	}
}

func TestReadyzReportsDatabase(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := NewRouter(nil, nil, testSecret, fakePinger{err: errors.New("down")}, nil, zap.NewNop())
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)
	if w := s.do(t, http.MethodGet, "/api/projects/1/metrics", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestGetMetrics(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/projects/1/metrics?date=2024-01-05", rbac.RoleViewer)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var body progress.ProjectMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ProgressPercent != 20 || !s.metrics.gotDay.Equal(dateutil.Date(2024, 1, 5)) {
		t.Fatalf("unexpected body %+v for day %v", body, s.metrics.gotDay)
	}

	if w := s.do(t, http.MethodGet, "/api/projects/404/metrics", rbac.RoleViewer); w.Code != http.StatusNotFound {
		t.Fatalf("missing project status = %d, want 404", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/projects/abc/metrics", rbac.RoleViewer); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id status = %d, want 400", w.Code)
	}
	if w := s.do(t, http.MethodGet, "/api/projects/1/metrics?date=01/05/2024", rbac.RoleViewer); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date status = %d, want 400", w.Code)
	}
}

func TestSyncDrawsRequiresManager(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodPost, "/api/projects/1/draws/sync", rbac.RoleViewer); w.Code != http.StatusForbidden {
		t.Fatalf("viewer status = %d, want 403", w.Code)
	}
	w := s.do(t, http.MethodPost, "/api/projects/1/draws/sync", rbac.RoleManager)
	if w.Code != http.StatusOK {
		t.Fatalf("manager status = %d", w.Code)
	}
	var body struct {
		Updated int      `json:"updated"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Updated != 2 || len(body.Errors) != 1 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestRunPhaseProgression(t *testing.T) {
	s := newTestServer(t)

	if w := s.do(t, http.MethodPost, "/api/admin/phase-progression/run", rbac.RoleManager); w.Code != http.StatusForbidden {
		t.Fatalf("manager status = %d, want 403", w.Code)
	}

	w := s.do(t, http.MethodPost, "/api/admin/phase-progression/run", rbac.RoleAdmin)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !s.runner.gotDay.Equal(dateutil.Date(2024, 6, 1)) {
		t.Fatalf("default day = %v, want scheduler today", s.runner.gotDay)
	}
	var body struct {
		Date    string `json:"date"`
		Checked int    `json:"projects_checked"`
		Errors  []struct {
			ProjectID int `json:"project_id"`
		} `json:"per_project_errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Date != "2024-06-01" || body.Checked != 3 || len(body.Errors) != 1 || body.Errors[0].ProjectID != 9 {
		t.Fatalf("unexpected body %+v", body)
	}

	s.do(t, http.MethodPost, "/api/admin/phase-progression/run?date=2024-02-03", rbac.RoleAdmin)
	if !s.runner.gotDay.Equal(dateutil.Date(2024, 2, 3)) {
		t.Fatalf("explicit day = %v", s.runner.gotDay)
	}

	s.runner.err = jobs.ErrRunInProgress
	if w := s.do(t, http.MethodPost, "/api/admin/phase-progression/run", rbac.RoleAdmin); w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestTraceHeaderEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Trace-ID", "abc123")
	w := httptest.NewRecorder()
	s.router.Engine.ServeHTTP(w, req)
	if got := w.Header().Get("X-Trace-ID"); got != "abc123" {
		t.Fatalf("trace header = %q", got)
	}
}
