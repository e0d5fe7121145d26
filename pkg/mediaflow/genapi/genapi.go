// Package genapi is the client for the remote media-generation service.
//
// The service is an opaque black box reached through three calls: submit
// a job, poll its status, cancel it. Job execution itself is entirely
// server-side.
package genapi

import "context"

// State is a remote job status as reported by the service.
type State string

// Remote job states.
const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// SubmitRequest carries everything the service needs to start a job.
type SubmitRequest struct {
	Model             string `json:"model"`
	Prompt            string `json:"prompt"`
	AspectRatio       string `json:"aspectRatio,omitempty"`
	Size              string `json:"size,omitempty"`
	Duration          int    `json:"duration,omitempty"`
	ReferenceImageURL string `json:"referenceImageUrl,omitempty"`
}

// JobStatus is one poll result for a submitted job.
type JobStatus struct {
	State        State   `json:"status"`
	Progress     int     `json:"progress,omitempty"`
	URL          string  `json:"url,omitempty"`
	OutputType   string  `json:"outputType,omitempty"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
	Cost         float64 `json:"cost,omitempty"`
}

// Client is the generation service contract the engine depends on.
type Client interface {
	// Submit starts a job of the given kind ("image", "video") and
	// returns the remote job handle.
	Submit(ctx context.Context, kind string, req SubmitRequest) (string, error)

	// Status polls a job by handle.
	Status(ctx context.Context, id string) (JobStatus, error)

	// Cancel asks the service to abandon a job. Best-effort; callers
	// proceed locally regardless of the result.
	Cancel(ctx context.Context, id string) error
}
