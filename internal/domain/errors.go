package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("invalid input")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRateLimited       = errors.New("rate limited")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrPersistence       = errors.New("persistence failed")
)

// ReasonCode is the machine-readable failure classification surfaced on a
// FAILED job.
type ReasonCode string

const (
	ReasonValidation        ReasonCode = "validation"
	ReasonInsufficientFunds ReasonCode = "insufficient_funds"
	ReasonGenerationFailed  ReasonCode = "generation_failed"
	ReasonPersistenceFailed ReasonCode = "persistence_failed"
)

// ClassifyReason maps an error reaching the orchestrator to the reason code
// recorded on the job. Rate limiting never surfaces directly; the generation
// client absorbs it and reports exhausted retries as a generation failure.
func ClassifyReason(err error) ReasonCode {
	switch {
	case errors.Is(err, ErrValidation):
		return ReasonValidation
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrPersistence):
		return ReasonPersistenceFailed
	default:
		return ReasonGenerationFailed
	}
}
