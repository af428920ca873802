package jobs

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/prayer-debt/internal/domain"
)

var (
	created  = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	resolved = created.Add(5 * time.Minute)
)

func sampleResult() *domain.Snapshot {
	return &domain.Snapshot{
		UserID:      "user-1",
		Madhab:      domain.Hanafi,
		Calculation: domain.DebtCalculation{TotalDays: 10, EffectiveDays: 10},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	job := New("job-12345", "user-1", json.RawMessage(`{"madhab":"hanafi"}`), created)
	assert.Equal(t, domain.JobPending, job.Status)
	assert.Equal(t, created, job.CreatedAt)
	assert.Equal(t, created, job.UpdatedAt)
	assert.JSONEq(t, `{"madhab":"hanafi"}`, string(job.Payload))
}

func TestResolve_PendingToTerminal(t *testing.T) {
	t.Parallel()

	job := New("job-12345", "user-1", nil, created)

	done, err := Resolve(job, domain.JobDone, sampleResult(), "", resolved)
	require.NoError(t, err)
	assert.Equal(t, domain.JobDone, done.Status)
	assert.Equal(t, resolved, done.UpdatedAt)
	assert.Equal(t, created, done.CreatedAt)
	require.NotNil(t, done.Result)
	assert.Equal(t, 10, done.Result.Calculation.EffectiveDays)

	failed, err := Resolve(job, domain.JobError, nil, "calculator unavailable", resolved)
	require.NoError(t, err)
	assert.Equal(t, domain.JobError, failed.Status)
	assert.Equal(t, "calculator unavailable", failed.Error)
	assert.Nil(t, failed.Result)

	assert.Equal(t, domain.JobPending, job.Status, "input must not change")
}

func TestResolve_IdenticalReResolutionIsIdempotent(t *testing.T) {
	t.Parallel()

	job := New("job-12345", "user-1", nil, created)
	done, err := Resolve(job, domain.JobDone, sampleResult(), "", resolved)
	require.NoError(t, err)

	again, err := Resolve(done, domain.JobDone, sampleResult(), "", resolved.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, done, again)

	failed, err := Resolve(job, domain.JobError, nil, "boom", resolved)
	require.NoError(t, err)
	again, err = Resolve(failed, domain.JobError, nil, "boom", resolved.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, failed, again)
}

func TestResolve_InvalidTransitions(t *testing.T) {
	t.Parallel()

	pending := New("job-12345", "user-1", nil, created)
	done, err := Resolve(pending, domain.JobDone, sampleResult(), "", resolved)
	require.NoError(t, err)

	other := sampleResult()
	other.Calculation.EffectiveDays = 11

	cases := []struct {
		name   string
		job    domain.CalculationJob
		status domain.JobStatus
		result *domain.Snapshot
		errMsg string
	}{
		{name: "done to error", job: done, status: domain.JobError, errMsg: "late failure"},
		{name: "done with different result", job: done, status: domain.JobDone, result: other},
		{name: "back to pending", job: done, status: domain.JobPending},
		{name: "pending to pending", job: pending, status: domain.JobPending},
		{name: "done without result", job: pending, status: domain.JobDone},
		{name: "unknown status", job: pending, status: domain.JobStatus("queued")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tc.job, tc.status, tc.result, tc.errMsg, resolved.Add(time.Hour))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
			assert.Equal(t, tc.job, got)
		})
	}
}
