package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"server/internal/domain"
)

type createJobRequest struct {
	TenantID   string `json:"tenant_id"`
	CustomerID string `json:"customer_id"`
	// InputRefs: subject photo first, garment photos after. 1..4 entries.
	InputRefs   []string `json:"input_refs"`
	ProductTags []string `json:"product_tags"`
	Remix       bool     `json:"remix"`
	// ScenarioCategory pins a remix to the category of the composition it
	// derives from. Ignored for fresh jobs.
	ScenarioCategory string `json:"scenario_category"`
}

type jobResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// CreateJob accepts a try-on generation request and queues it for the
// worker. Validation failures are rejected here, before any job row or
// ledger activity exists; balance checks happen later, in the pipeline.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.TenantID == "" || req.CustomerID == "" {
		a.error(w, http.StatusBadRequest, "validation", "tenant_id and customer_id are required")
		return
	}
	if err := domain.ValidateInputRefs(req.InputRefs); err != nil {
		a.error(w, http.StatusBadRequest, "validation", "input_refs must contain 1 to 4 non-empty references")
		return
	}

	kind := domain.JobKindFresh
	if req.Remix {
		kind = domain.JobKindRemix
	}
	job := &domain.Job{
		ID:               uuid.NewString(),
		TenantID:         req.TenantID,
		CustomerID:       req.CustomerID,
		Kind:             kind,
		Status:           domain.JobStatusPending,
		InputRefs:        req.InputRefs,
		ProductTags:      req.ProductTags,
		ScenarioCategory: req.ScenarioCategory,
		CreatedAt:        time.Now().UTC(),
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("api: create job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}
	a.json(w, http.StatusAccepted, jobResponse{JobID: job.ID, Status: string(job.Status)})
}

// JobStatus returns the full job document for polling clients.
func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("api: load job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}

	resp := map[string]any{
		"id":           job.ID,
		"tenant_id":    job.TenantID,
		"customer_id":  job.CustomerID,
		"kind":         job.Kind,
		"status":       job.Status,
		"result_url":   job.ResultAssetURL,
		"created_at":   job.CreatedAt,
		"started_at":   job.StartedAt,
		"completed_at": job.CompletedAt,
	}
	if job.ErrorDetail != nil {
		resp["reason_code"] = job.ErrorDetail.ReasonCode
		resp["error_message"] = job.ErrorDetail.Message
	}
	a.json(w, http.StatusOK, resp)
}

// JobResult returns the stable asset URL once the job has completed.
func (a *App) JobResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "job not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load job")
		return
	}
	if job.Status != domain.JobStatusCompleted {
		a.error(w, http.StatusConflict, "not_ready", "job has not completed")
		return
	}
	a.json(w, http.StatusOK, map[string]string{"job_id": job.ID, "result_url": job.ResultAssetURL})
}

// TenantBalance exposes the visible pool balances. Reads go through the
// ledger like every other balance access.
func (a *App) TenantBalance(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenant_id")
	bal, err := a.Ledger.Balances(r.Context(), tenantID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "tenant not found")
			return
		}
		a.error(w, http.StatusInternalServerError, "internal", "failed to load balances")
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"tenant_id":            bal.TenantID,
		"vip":                  bal.VIP,
		"pack_credits":         bal.PackCredits,
		"subscription_credits": bal.SubscriptionCredits,
	})
}
