package synthesis

import "context"

// ImageRef points at one conditioning input for the synthesis call, either
// by URL or as inline bytes.
type ImageRef struct {
	URL  string
	Data []byte
	MIME string
}

// Request is the normalized input for one composite generation.
type Request struct {
	Prompt         string
	NegativePrompt string
	// ImageRefs carries the subject photo first, garment photos after.
	ImageRefs   []ImageRef
	AspectRatio string
	// NewPose asks the model for a fresh pose instead of reusing the prior
	// composition's pose. Set for remix jobs.
	NewPose   bool
	RequestID string
}

// Result is one generated composite image, materialized to bytes. The
// caller is responsible for durable persistence.
type Result struct {
	Data   []byte
	MIME   string
	Width  int
	Height int
}

// Generator is the contract implemented by the synthesis client and its
// retry decorator.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
