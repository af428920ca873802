// Package dispatch hands queued calculation jobs to a calculator. The
// calculator reports back through the job webhook, except for Local which
// runs the calculation in-process.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrQueueFull is returned by Local when every queue slot is taken.
	ErrQueueFull = errors.New("dispatch: queue full")
	// ErrStopped is returned after Stop or Close.
	ErrStopped = errors.New("dispatch: dispatcher stopped")
)

// Request is the envelope sent to a calculator.
type Request struct {
	JobID      string          `json:"job_id"`
	UserID     string          `json:"user_id"`
	Payload    json.RawMessage `json:"payload"`
	WebhookURL string          `json:"webhook_url,omitempty"`
}

// Dispatcher accepts a job for calculation. A nil error only means the job
// was handed over; the outcome arrives later.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) error
}
