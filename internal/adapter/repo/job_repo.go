package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
	"server/internal/sqlinline"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	_, err := r.pool.Exec(ctx, sqlinline.QInsertTryonJob,
		job.ID,
		job.TenantID,
		job.CustomerID,
		job.Kind,
		job.Status,
		job.InputRefs,
		job.ProductTags,
		job.ScenarioCategory,
		job.CreatedAt,
	)
	return err
}

// Update persists the mutable job fields. The orchestrator is the only
// writer after creation.
func (r *JobRepositoryPG) Update(ctx context.Context, job *domain.Job) error {
	var reason, message string
	if job.ErrorDetail != nil {
		reason = string(job.ErrorDetail.ReasonCode)
		message = job.ErrorDetail.Message
	}
	_, err := r.pool.Exec(ctx, sqlinline.QUpdateTryonJob,
		job.ID,
		job.Status,
		job.ReservationID,
		job.ResultAssetURL,
		job.ScenarioCategory,
		nullableText(reason),
		nullableText(message),
		job.StartedAt,
		job.CompletedAt,
	)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QSelectTryonJobByID, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending atomically claims the oldest PENDING job and returns it, or
// domain.ErrNotFound when the queue is empty. Claiming flips the status to
// PROCESSING so competing workers skip the row.
func (r *JobRepositoryPG) ClaimPending(ctx context.Context) (*domain.Job, error) {
	row := r.pool.QueryRow(ctx, sqlinline.QClaimPendingTryonJob)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var job domain.Job
	var reason, message *string
	if err := row.Scan(
		&job.ID,
		&job.TenantID,
		&job.CustomerID,
		&job.Kind,
		&job.Status,
		&job.InputRefs,
		&job.ProductTags,
		&job.ScenarioCategory,
		&job.ReservationID,
		&job.ResultAssetURL,
		&reason,
		&message,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		return nil, err
	}
	if reason != nil {
		job.ErrorDetail = &domain.ErrorDetail{ReasonCode: domain.ReasonCode(*reason)}
		if message != nil {
			job.ErrorDetail.Message = *message
		}
	}
	return &job, nil
}

func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
