// Package jobs holds the state machine of asynchronous calculation requests:
// pending moves to done or error, and both are terminal.
package jobs

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/example/prayer-debt/internal/domain"
)

// New returns a pending job.
func New(id, userID string, payload json.RawMessage, now time.Time) domain.CalculationJob {
	at := now.UTC()
	return domain.CalculationJob{
		ID:        id,
		UserID:    userID,
		Status:    domain.JobPending,
		Payload:   payload,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// Resolve moves a pending job to status. done carries result and clears the
// error; error carries errMsg and clears the result.
//
// Resolving a terminal job again with the same status and outcome returns
// the job unchanged. Any other transition out of a terminal state, or to
// pending, fails with domain.KindInvalidTransition.
func Resolve(job domain.CalculationJob, status domain.JobStatus, result *domain.Snapshot, errMsg string, now time.Time) (domain.CalculationJob, error) {
	if !status.Terminal() {
		return job, domain.NewError(domain.KindInvalidTransition, string(status),
			"job %s cannot move from %s to %s", job.ID, job.Status, status)
	}
	if status == domain.JobDone && result == nil {
		return job, domain.NewError(domain.KindInvalidTransition, string(status), "job %s cannot be done without a result", job.ID)
	}

	if job.Status.Terminal() {
		if sameOutcome(job, status, result, errMsg) {
			return job, nil
		}
		return job, domain.NewError(domain.KindInvalidTransition, string(status),
			"job %s is already %s", job.ID, job.Status)
	}

	next := job
	next.Status = status
	next.UpdatedAt = now.UTC()
	switch status {
	case domain.JobDone:
		next.Result = result
		next.Error = ""
	case domain.JobError:
		next.Result = nil
		next.Error = errMsg
	}
	return next, nil
}

func sameOutcome(job domain.CalculationJob, status domain.JobStatus, result *domain.Snapshot, errMsg string) bool {
	if job.Status != status {
		return false
	}
	if status == domain.JobError {
		return job.Error == errMsg
	}
	if job.Result == nil || result == nil {
		return job.Result == result
	}
	a, errA := json.Marshal(job.Result)
	b, errB := json.Marshal(result)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}
