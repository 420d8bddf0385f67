package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"server/internal/domain"
)

// JobRepositoryMemory keeps jobs in process memory. Used by tests and by
// single-node development setups without a database.
type JobRepositoryMemory struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

// NewJobRepositoryMemory initializes an empty in-memory job repository.
func NewJobRepositoryMemory() *JobRepositoryMemory {
	return &JobRepositoryMemory{jobs: make(map[string]*domain.Job)}
}

// Create stores a new job record.
func (r *JobRepositoryMemory) Create(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := cloneJob(job)
	r.jobs[job.ID] = copied
	return nil
}

// Update overwrites the stored job with the caller's view.
func (r *JobRepositoryMemory) Update(ctx context.Context, job *domain.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetByID returns a copy of the stored job.
func (r *JobRepositoryMemory) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneJob(job), nil
}

// ClaimPending claims the oldest PENDING job, mirroring the Postgres claim
// semantics.
func (r *JobRepositoryMemory) ClaimPending(ctx context.Context) (*domain.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*domain.Job
	for _, job := range r.jobs {
		if job.Status == domain.JobStatusPending {
			pending = append(pending, job)
		}
	}
	if len(pending) == 0 {
		return nil, domain.ErrNotFound
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	claimed := pending[0]
	now := time.Now().UTC()
	claimed.Status = domain.JobStatusProcessing
	claimed.StartedAt = &now
	return cloneJob(claimed), nil
}

func cloneJob(job *domain.Job) *domain.Job {
	copied := *job
	copied.InputRefs = append([]string(nil), job.InputRefs...)
	copied.ProductTags = append([]string(nil), job.ProductTags...)
	if job.ErrorDetail != nil {
		detail := *job.ErrorDetail
		copied.ErrorDetail = &detail
	}
	if job.StartedAt != nil {
		t := *job.StartedAt
		copied.StartedAt = &t
	}
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		copied.CompletedAt = &t
	}
	return &copied
}

var _ domain.JobRepository = (*JobRepositoryMemory)(nil)
