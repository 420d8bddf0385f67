package domain

import "time"

// JobKind enumerates supported try-on generation variants.
type JobKind string

const (
	// JobKindFresh composes the subject with the primary garment against a
	// deterministically matched scenario.
	JobKindFresh JobKind = "fresh"
	// JobKindRemix re-composes a prior result with every garment reference,
	// a new pose and a randomly drawn scenario from the same category.
	JobKindRemix JobKind = "remix"
)

// JobStatus enumerates job lifecycle states. COMPLETED and FAILED are
// terminal; a job never leaves a terminal state.
type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ErrorDetail carries the machine-readable failure classification recorded
// on a FAILED job alongside a human message.
type ErrorDetail struct {
	ReasonCode ReasonCode
	Message    string
}

// Job tracks one try-on generation request through its terminal state.
// Jobs are created PENDING by the intake API and mutated exclusively by the
// orchestrator; they are never deleted, only finished.
type Job struct {
	ID         string
	TenantID   string
	CustomerID string
	Kind       JobKind
	Status     JobStatus

	// InputRefs holds ordered input image references: the first entry is the
	// subject photo, the remainder are garment photos. Between 1 and 4 entries.
	InputRefs []string

	// ProductTags describe the primary garment and steer scenario matching.
	ProductTags []string

	// ScenarioCategory pins remix jobs to the category of the original
	// composition. Empty for fresh jobs.
	ScenarioCategory string

	// ReservationID is set once a credit reservation is held and is the sole
	// handle used for commit or rollback. Never re-derived.
	ReservationID string

	ResultAssetURL string
	ErrorDetail    *ErrorDetail

	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// MaxInputRefs bounds the subject photo plus garment references per job.
const MaxInputRefs = 4

// ValidateInputRefs checks the intake contract for input references.
func ValidateInputRefs(refs []string) error {
	if len(refs) == 0 || len(refs) > MaxInputRefs {
		return ErrValidation
	}
	for _, ref := range refs {
		if ref == "" {
			return ErrValidation
		}
	}
	return nil
}

// SubjectRef returns the subject photo reference.
func (j *Job) SubjectRef() string {
	if len(j.InputRefs) == 0 {
		return ""
	}
	return j.InputRefs[0]
}

// GarmentRefs returns the garment references applied by this job. Fresh jobs
// use only the primary garment; remix jobs apply every garment reference.
func (j *Job) GarmentRefs() []string {
	if len(j.InputRefs) < 2 {
		return nil
	}
	if j.Kind == JobKindRemix {
		return j.InputRefs[1:]
	}
	return j.InputRefs[1:2]
}
