package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"server/internal/domain"
	"server/internal/infra"
	"server/internal/providers/synthesis"
	"server/internal/scenario"
)

// Orchestrator drives a claimed job through the generation pipeline:
// reserve credits, resolve a scenario, call the synthesis provider, persist
// the asset, then commit the reservation. Any failure after a hold rolls the
// reservation back exactly once before the job is finalized as FAILED.
type Orchestrator struct {
	jobs      domain.JobRepository
	ledger    domain.Ledger
	scenarios *scenario.Resolver
	generator synthesis.Generator
	assets    domain.AssetStore
	logger    infra.Logger

	// cost is the fixed credit price of one generation. Configuration, not
	// user input.
	cost int
}

// Options wires the orchestrator dependencies.
type Options struct {
	Jobs      domain.JobRepository
	Ledger    domain.Ledger
	Scenarios *scenario.Resolver
	Generator synthesis.Generator
	Assets    domain.AssetStore
	Logger    infra.Logger
	Cost      int
}

// DefaultGenerationCost is the fallback credit price per generation.
const DefaultGenerationCost = 1

// New constructs an Orchestrator.
func New(opts Options) *Orchestrator {
	cost := opts.Cost
	if cost <= 0 {
		cost = DefaultGenerationCost
	}
	return &Orchestrator{
		jobs:      opts.Jobs,
		ledger:    opts.Ledger,
		scenarios: opts.Scenarios,
		generator: opts.Generator,
		assets:    opts.Assets,
		logger:    opts.Logger,
		cost:      cost,
	}
}

// Process runs one claimed job to a terminal state. It returns the error
// that failed the job, if any; the job row itself always ends COMPLETED or
// FAILED, and a held reservation is never left outstanding.
func (o *Orchestrator) Process(ctx context.Context, job *domain.Job) error {
	if job.Status.Terminal() {
		return fmt.Errorf("orchestrator: job %s already terminal (%s)", job.ID, job.Status)
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusProcessing
	job.StartedAt = &now
	if err := o.jobs.Update(ctx, job); err != nil {
		return o.finish(ctx, job, false, fmt.Errorf("mark processing: %w", domain.ErrPersistence))
	}

	if err := domain.ValidateInputRefs(job.InputRefs); err != nil {
		return o.finish(ctx, job, false, err)
	}

	// Funds are secured before any compute is spent.
	res, err := o.ledger.Reserve(ctx, job.TenantID, job.CustomerID, o.cost)
	if err != nil {
		return o.finish(ctx, job, false, err)
	}
	job.ReservationID = res.ID
	if err := o.jobs.Update(ctx, job); err != nil {
		return o.finish(ctx, job, true, fmt.Errorf("persist reservation handle: %w", domain.ErrPersistence))
	}

	profile := o.resolveScenario(job)
	result, err := o.generator.Generate(ctx, synthesis.Request{
		Prompt:      buildPrompt(job, profile),
		ImageRefs:   imageRefs(job),
		AspectRatio: "3:4",
		NewPose:     job.Kind == domain.JobKindRemix,
		RequestID:   job.ID,
	})
	if err != nil {
		return o.finish(ctx, job, true, err)
	}

	key := fmt.Sprintf("generated/tryon/%s/composite", job.ID)
	publicURL, err := o.assets.Put(ctx, key, result.Data, result.MIME)
	if err != nil {
		return o.finish(ctx, job, true, fmt.Errorf("persist asset: %v: %w", err, domain.ErrPersistence))
	}

	// Commit only after the artifact is durably stored; billed work must
	// always have an artifact behind it.
	if err := o.ledger.Commit(ctx, job.ReservationID); err != nil {
		return o.finish(ctx, job, true, fmt.Errorf("commit reservation: %v: %w", err, domain.ErrPersistence))
	}

	done := time.Now().UTC()
	job.Status = domain.JobStatusCompleted
	job.ResultAssetURL = publicURL
	job.ScenarioCategory = profile.Category
	job.CompletedAt = &done
	if err := o.jobs.Update(ctx, job); err != nil {
		// The reservation is committed and the asset exists; surface the
		// write failure but do not roll back billed work.
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: persist completed job failed")
		return err
	}
	o.logger.Info().
		Str("job_id", job.ID).
		Str("tenant_id", job.TenantID).
		Str("scenario", profile.Name).
		Msg("orchestrator: job completed")
	return nil
}

// finish rolls back a held reservation when one exists, records the failure
// classification and finalizes the job as FAILED. Finalization runs on a
// context detached from cancellation: a cancelled generation must still
// restore credits.
func (o *Orchestrator) finish(ctx context.Context, job *domain.Job, held bool, cause error) error {
	finalCtx := context.WithoutCancel(ctx)

	if held && job.ReservationID != "" {
		if err := o.rollback(finalCtx, job.ReservationID); err != nil {
			o.logger.Error().Err(err).
				Str("job_id", job.ID).
				Str("reservation_id", job.ReservationID).
				Msg("orchestrator: rollback exhausted, reservation left held")
		}
	}

	now := time.Now().UTC()
	job.Status = domain.JobStatusFailed
	job.CompletedAt = &now
	job.ErrorDetail = &domain.ErrorDetail{
		ReasonCode: domain.ClassifyReason(cause),
		Message:    cause.Error(),
	}
	if err := o.jobs.Update(finalCtx, job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("orchestrator: persist failed job failed")
	}
	o.logger.Warn().
		Str("job_id", job.ID).
		Str("tenant_id", job.TenantID).
		Str("reason", string(job.ErrorDetail.ReasonCode)).
		Err(cause).
		Msg("orchestrator: job failed")
	return cause
}

// rollbackBackoff spaces the re-attempts when releasing a hold fails. A
// FAILED job must never leave its reservation outstanding, so a transient
// ledger error is not allowed to end the hold's lifecycle.
var rollbackBackoff = []time.Duration{0, 200 * time.Millisecond, time.Second}

// rollback releases a held reservation, re-attempting on error. Rollback is
// idempotent, so re-running it after an ambiguous failure cannot
// double-restore credits.
func (o *Orchestrator) rollback(ctx context.Context, reservationID string) error {
	var lastErr error
	for i, wait := range rollbackBackoff {
		if wait > 0 {
			time.Sleep(wait)
		}
		if lastErr = o.ledger.Rollback(ctx, reservationID); lastErr == nil {
			return nil
		}
		o.logger.Warn().Err(lastErr).
			Str("reservation_id", reservationID).
			Int("attempt", i+1).
			Msg("orchestrator: rollback attempt failed")
	}
	return lastErr
}

func (o *Orchestrator) resolveScenario(job *domain.Job) domain.ScenarioProfile {
	if job.Kind == domain.JobKindRemix {
		category := job.ScenarioCategory
		if category == "" {
			category = o.scenarios.Resolve(job.ProductTags).Category
		}
		return o.scenarios.ResolveRandomWithinCategory(category)
	}
	return o.scenarios.Resolve(job.ProductTags)
}

func buildPrompt(job *domain.Job, profile domain.ScenarioProfile) string {
	var b strings.Builder
	b.WriteString("Photorealistic virtual try-on composite. ")
	garments := len(job.GarmentRefs())
	switch {
	case garments > 1:
		fmt.Fprintf(&b, "Dress the subject from the first image in all %d garments from the following images. ", garments)
	case garments == 1:
		b.WriteString("Dress the subject from the first image in the garment from the second image. ")
	default:
		b.WriteString("Re-render the subject from the first image. ")
	}
	if job.Kind == domain.JobKindRemix {
		b.WriteString("Use a new natural pose, different from the original photo. ")
	} else {
		b.WriteString("Keep the subject's pose and framing. ")
	}
	b.WriteString("Scene: ")
	b.WriteString(profile.LightingPrompt)
	b.WriteString(".")
	return b.String()
}

func imageRefs(job *domain.Job) []synthesis.ImageRef {
	refs := []synthesis.ImageRef{{URL: job.SubjectRef()}}
	for _, garment := range job.GarmentRefs() {
		refs = append(refs, synthesis.ImageRef{URL: garment})
	}
	return refs
}
