package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/model"
	"github.com/jamesrpstewart1/missing-fields-report-sub000/pkg/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubStore struct {
	runs    []store.RunMeta
	reports map[string]model.Report
}

var _ ReportStore = (*stubStore)(nil)

func (s *stubStore) ListRuns(_ context.Context, limit int) ([]store.RunMeta, error) {
	if limit < len(s.runs) {
		return s.runs[:limit], nil
	}
	return s.runs, nil
}

func (s *stubStore) LatestRunID(context.Context) (string, error) {
	if len(s.runs) == 0 {
		return "", store.ErrNotFound
	}
	return s.runs[0].ID, nil
}

func (s *stubStore) LoadReport(_ context.Context, runID string) (model.Report, error) {
	report, ok := s.reports[runID]
	if !ok {
		return model.Report{}, store.ErrNotFound
	}
	return report, nil
}

func testStore() *stubStore {
	now := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	report := model.Report{
		Summary: model.RunSummary{
			GeneratedAt: now,
			WindowStart: now.AddDate(0, 0, -30),
			WindowEnd:   now,
			Classified:  2,
		},
		Aggregation: model.Aggregation{GrandTotal: 2},
	}
	return &stubStore{
		runs: []store.RunMeta{
			{ID: "run-2", GeneratedAt: now, Classified: 2, GrandTotal: 2},
			{ID: "run-1", GeneratedAt: now.AddDate(0, 0, -1), Classified: 5, GrandTotal: 5},
		},
		reports: map[string]model.Report{"run-2": report},
	}
}

func doGet(t *testing.T, r http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	w := doGet(t, New(testStore()), "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestListRuns(t *testing.T) {
	r := New(testStore())

	w := doGet(t, r, "/api/runs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Runs []store.RunMeta `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Runs) != 2 {
		t.Errorf("got %d runs, want 2", len(body.Runs))
	}

	w = doGet(t, r, "/api/runs?limit=1")
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Runs) != 1 || body.Runs[0].ID != "run-2" {
		t.Errorf("limit=1: got %+v, want just run-2", body.Runs)
	}

	if w := doGet(t, r, "/api/runs?limit=abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad limit: status = %d, want 400", w.Code)
	}
	if w := doGet(t, r, "/api/runs?limit=-3"); w.Code != http.StatusBadRequest {
		t.Errorf("negative limit: status = %d, want 400", w.Code)
	}
}

func TestGetRun(t *testing.T) {
	r := New(testStore())

	w := doGet(t, r, "/api/runs/run-2")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		ID     string       `json:"id"`
		Report model.Report `json:"report"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.ID != "run-2" || body.Report.Aggregation.GrandTotal != 2 {
		t.Errorf("got id=%s grandTotal=%d, want run-2 with 2", body.ID, body.Report.Aggregation.GrandTotal)
	}

	if w := doGet(t, r, "/api/runs/nope"); w.Code != http.StatusNotFound {
		t.Errorf("unknown run: status = %d, want 404", w.Code)
	}
}

func TestLatestRun(t *testing.T) {
	w := doGet(t, New(testStore()), "/api/runs/latest")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	empty := &stubStore{reports: map[string]model.Report{}}
	if w := doGet(t, New(empty), "/api/runs/latest"); w.Code != http.StatusNotFound {
		t.Errorf("empty store: status = %d, want 404", w.Code)
	}
}
