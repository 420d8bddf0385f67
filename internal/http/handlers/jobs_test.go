package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"server/internal/adapter/repo"
	"server/internal/domain"
	"server/internal/infra"
	"server/internal/ledger"
)

func newTestApp(t *testing.T) (*App, *repo.JobRepositoryMemory, *ledger.MemoryLedger) {
	t.Helper()
	jobs := repo.NewJobRepositoryMemory()
	led := ledger.NewMemoryLedger()
	app := NewApp(jobs, led, infra.Logger(zerolog.New(io.Discard)))
	return app, jobs, led
}

func testRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/jobs", app.CreateJob)
	r.Get("/v1/jobs/{job_id}", app.JobStatus)
	r.Get("/v1/jobs/{job_id}/result", app.JobResult)
	r.Get("/v1/tenants/{tenant_id}/balance", app.TenantBalance)
	return r
}

func TestCreateJobQueuesPending(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	router := testRouter(app)

	body := `{"tenant_id":"tenant-1","customer_id":"cust-1","input_refs":["subject.png","garment.png"],"product_tags":["jeans"]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != string(domain.JobStatusPending) {
		t.Fatalf("status = %q, want PENDING", resp.Status)
	}

	stored, err := jobs.GetByID(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not stored: %v", err)
	}
	if stored.Kind != domain.JobKindFresh {
		t.Fatalf("kind = %q, want fresh", stored.Kind)
	}
}

func TestCreateJobRejectsBadInputRefs(t *testing.T) {
	app, _, _ := newTestApp(t)
	router := testRouter(app)

	cases := []string{
		`{"tenant_id":"t","customer_id":"c","input_refs":[]}`,
		`{"tenant_id":"t","customer_id":"c","input_refs":["a","b","c","d","e"]}`,
		`{"tenant_id":"t","customer_id":"c","input_refs":["a",""]}`,
		`{"tenant_id":"","customer_id":"c","input_refs":["a"]}`,
	}
	for _, body := range cases {
		req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestCreateJobRemixKind(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	router := testRouter(app)

	body := `{"tenant_id":"t","customer_id":"c","input_refs":["s.png","g1.png","g2.png"],"remix":true,"scenario_category":"urban"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	stored, err := jobs.GetByID(context.Background(), resp.JobID)
	if err != nil {
		t.Fatalf("job not stored: %v", err)
	}
	if stored.Kind != domain.JobKindRemix || stored.ScenarioCategory != "urban" {
		t.Fatalf("stored = kind %q category %q, want remix/urban", stored.Kind, stored.ScenarioCategory)
	}
}

func TestJobStatusReportsFailureDetail(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	router := testRouter(app)

	now := time.Now().UTC()
	job := &domain.Job{
		ID:         "job-1",
		TenantID:   "t",
		CustomerID: "c",
		Kind:       domain.JobKindFresh,
		Status:     domain.JobStatusFailed,
		InputRefs:  []string{"s.png"},
		ErrorDetail: &domain.ErrorDetail{
			ReasonCode: domain.ReasonInsufficientFunds,
			Message:    "insufficient funds",
		},
		CreatedAt:   now,
		CompletedAt: &now,
	}
	if err := jobs.Create(context.Background(), job); err != nil {
		t.Fatalf("create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != string(domain.JobStatusFailed) {
		t.Fatalf("status = %v, want FAILED", resp["status"])
	}
	if resp["reason_code"] != string(domain.ReasonInsufficientFunds) {
		t.Fatalf("reason_code = %v, want insufficient_funds", resp["reason_code"])
	}
}

func TestJobStatusNotFound(t *testing.T) {
	app, _, _ := newTestApp(t)
	router := testRouter(app)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestJobResultOnlyWhenCompleted(t *testing.T) {
	app, jobs, _ := newTestApp(t)
	router := testRouter(app)

	job := &domain.Job{
		ID:        "job-2",
		TenantID:  "t",
		Status:    domain.JobStatusProcessing,
		InputRefs: []string{"s.png"},
		CreatedAt: time.Now().UTC(),
	}
	_ = jobs.Create(context.Background(), job)

	req := httptest.NewRequest(http.MethodGet, "/v1/jobs/job-2/result", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 while processing", rec.Code)
	}

	job.Status = domain.JobStatusCompleted
	job.ResultAssetURL = "http://localhost:8080/static/generated/tryon/job-2/composite.png"
	_ = jobs.Update(context.Background(), job)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/jobs/job-2/result", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 once completed", rec.Code)
	}
}

func TestTenantBalanceReadsThroughLedger(t *testing.T) {
	app, _, led := newTestApp(t)
	router := testRouter(app)

	led.SetBalances(domain.TenantBalances{TenantID: "tenant-1", PackCredits: 7, SubscriptionCredits: 2})

	req := httptest.NewRequest(http.MethodGet, "/v1/tenants/tenant-1/balance", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["pack_credits"].(float64) != 7 {
		t.Fatalf("pack_credits = %v, want 7", resp["pack_credits"])
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/tenants/ghost/balance", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for unknown tenant", rec.Code)
	}
}
