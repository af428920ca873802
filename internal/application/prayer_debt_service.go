package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/example/prayer-debt/internal/debt"
	"github.com/example/prayer-debt/internal/dispatch"
	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/jobs"
	"github.com/example/prayer-debt/internal/keylock"
	"github.com/example/prayer-debt/internal/ledger"
	"github.com/example/prayer-debt/internal/metrics"
	"github.com/example/prayer-debt/internal/persistence"
	"github.com/example/prayer-debt/internal/secure"
)

const serviceName = "PrayerDebtService"

// PrayerDebtDeps are the collaborators of PrayerDebtService. Snapshots,
// History and Jobs are required; the others are optional.
type PrayerDebtDeps struct {
	Snapshots  persistence.SnapshotRepository
	History    persistence.HistoryRepository
	Jobs       persistence.JobRepository
	Audit      persistence.AuditRepository
	Locker     keylock.Locker
	Dispatcher dispatch.Dispatcher
	Metrics    *metrics.Metrics

	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// PrayerDebtService persists calculations, applies repayment progress under a
// per-user lock and drives asynchronous calculation jobs.
type PrayerDebtService struct {
	snapshots  persistence.SnapshotRepository
	history    persistence.HistoryRepository
	jobs       persistence.JobRepository
	audit      persistence.AuditRepository
	locker     keylock.Locker
	dispatcher dispatch.Dispatcher
	metrics    *metrics.Metrics
	calculator *debt.Calculator
	cache      *snapshotCache
	settings   Settings

	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewPrayerDebtService wires the service. Zero settings take the
// DefaultSettings values.
func NewPrayerDebtService(deps PrayerDebtDeps, settings Settings) *PrayerDebtService {
	defaults := DefaultSettings()
	if settings.CalcVersion == "" {
		settings.CalcVersion = defaults.CalcVersion
	}
	if settings.DefaultMadhab == "" {
		settings.DefaultMadhab = defaults.DefaultMadhab
	}
	if settings.MaxProgressAmount <= 0 {
		settings.MaxProgressAmount = defaults.MaxProgressAmount
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = uuid.NewString
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	locker := deps.Locker
	if locker == nil {
		locker = keylock.NewLocal()
	}

	return &PrayerDebtService{
		snapshots:   deps.Snapshots,
		history:     deps.History,
		jobs:        deps.Jobs,
		audit:       deps.Audit,
		locker:      locker,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		calculator:  debt.NewCalculator(now),
		cache:       newSnapshotCache(settings.SnapshotCacheTTL, 0, now),
		settings:    settings,
		idGenerator: idGen,
		now:         now,
		logger:      defaultLogger(deps.Logger),
	}
}

func (s *PrayerDebtService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, serviceName, operation, attrs...)
}

// Calculate computes the user's debt and stores it as the new snapshot.
// Progress carries over when the madhab is unchanged, clamped to the new
// missed counts; otherwise it restarts from zero.
func (s *PrayerDebtService) Calculate(ctx context.Context, params CalculateParams) (snapshot domain.Snapshot, err error) {
	if s == nil {
		err = fmt.Errorf("PrayerDebtService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Calculate", "user_id", params.UserID)
	defer func() {
		s.metrics.CalculationObserved(err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to calculate prayer debt", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "prayer debt calculated",
			"madhab", snapshot.Madhab,
			"effective_days", snapshot.Calculation.EffectiveDays,
		)
	}()

	if err = requireUser(params.UserID); err != nil {
		return
	}

	var (
		input  debt.Input
		method domain.CalculationMethod
	)
	input, method, err = buildCalculationInput(params.Request, s.settings.DefaultMadhab)
	if err != nil {
		return
	}

	var result debt.Result
	result, err = s.calculator.Calculate(input)
	if err != nil {
		return
	}

	var release func()
	release, err = s.locker.Lock(ctx, params.UserID)
	if err != nil {
		err = fmt.Errorf("lock user %s: %w", params.UserID, err)
		return
	}
	defer release()

	now := s.now().UTC()
	snapshot = domain.Snapshot{
		UserID:            params.UserID,
		CalcVersion:       s.settings.CalcVersion,
		Madhab:            result.Madhab,
		CalculationMethod: method,
		Personal:          result.Personal,
		Women:             result.Women,
		Travel:            result.Travel,
		Calculation:       result.Calculation,
		Progress:          domain.RepaymentProgress{LastUpdated: now},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	carried := false
	previous, getErr := s.snapshots.GetSnapshot(ctx, params.UserID)
	switch {
	case getErr == nil:
		snapshot.CreatedAt = previous.CreatedAt
		if previous.Madhab == snapshot.Madhab {
			snapshot.Progress = ledger.ClampTo(previous.Progress, snapshot.Calculation.Missed())
			carried = true
		}
	case !errors.Is(getErr, persistence.ErrNotFound):
		err = mapRepoError(getErr)
		return
	}

	if err = s.snapshots.SaveSnapshot(ctx, snapshot); err != nil {
		err = mapRepoError(err)
		return
	}
	s.cache.Invalidate(params.UserID)

	s.recordAudit(ctx, logger, persistence.AuditDebtCalculated, params.UserID, persistence.EntityPrayerDebt, params.UserID, map[string]any{
		"madhab":             snapshot.Madhab,
		"calculation_method": snapshot.CalculationMethod,
		"effective_days":     snapshot.Calculation.EffectiveDays,
		"progress_carried":   carried,
	})
	return
}

// Snapshot returns the user's current snapshot.
func (s *PrayerDebtService) Snapshot(ctx context.Context, userID string) (snapshot domain.Snapshot, err error) {
	if s == nil {
		err = fmt.Errorf("PrayerDebtService is nil")
		return
	}
	if err = requireUser(userID); err != nil {
		return
	}

	if cached, ok := s.cache.Get(userID); ok {
		return cached, nil
	}

	snapshot, err = s.snapshots.GetSnapshot(ctx, userID)
	if err != nil {
		err = mapRepoError(err)
		if !errors.Is(err, ErrNotFound) {
			s.loggerWith(ctx, "Snapshot", "user_id", userID).
				ErrorContext(ctx, "failed to load snapshot", "error", err, "error_kind", ErrorKind(err))
		}
		return
	}
	s.cache.Store(snapshot)
	return
}

// UpdateProgress applies a batch of repayment entries. The whole batch is
// rejected when any entry is invalid. Progress and the day's history entry
// are stored together.
func (s *PrayerDebtService) UpdateProgress(ctx context.Context, params UpdateProgressParams) (progress domain.RepaymentProgress, err error) {
	if s == nil {
		err = fmt.Errorf("PrayerDebtService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateProgress",
		"user_id", params.UserID,
		"entry_count", len(params.Entries),
	)
	defer func() {
		s.metrics.ProgressUpdateObserved(err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to update progress", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "progress updated", "total_completed", progress.TotalCompleted())
	}()

	if err = requireUser(params.UserID); err != nil {
		return
	}
	if vErr := validateEntries(params.Entries); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = ledger.CheckAmounts(params.Entries, s.settings.MaxProgressAmount); err != nil {
		return
	}

	var release func()
	release, err = s.locker.Lock(ctx, params.UserID)
	if err != nil {
		err = fmt.Errorf("lock user %s: %w", params.UserID, err)
		return
	}
	defer release()

	var snapshot domain.Snapshot
	snapshot, err = s.snapshots.GetSnapshot(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	now := s.now().UTC()
	progress, err = ledger.ApplyEntries(snapshot.Progress, snapshot.Calculation.Missed(), snapshot.Madhab, params.Entries, now)
	if err != nil {
		return
	}

	entry := persistence.HistoryEntry{
		UserID:    params.UserID,
		Date:      historyDay(now),
		Completed: progress.TotalCompleted(),
		UpdatedAt: now,
	}
	if err = s.snapshots.SaveProgress(ctx, params.UserID, progress, entry); err != nil {
		err = mapRepoError(err)
		return
	}
	s.cache.Invalidate(params.UserID)

	s.recordAudit(ctx, logger, persistence.AuditProgressUpdated, params.UserID, persistence.EntityPrayerDebt, params.UserID, map[string]any{
		"entries":         params.Entries,
		"total_completed": entry.Completed,
	})
	return
}

// ProgressHistory returns the per-day completed totals of the user. Without
// a snapshot the history is still returned with a zero total. The total is
// read from the repository, not the snapshot cache, which is per process.
func (s *PrayerDebtService) ProgressHistory(ctx context.Context, params ProgressHistoryParams) (points []ProgressPoint, err error) {
	if s == nil {
		err = fmt.Errorf("PrayerDebtService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ProgressHistory", "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to load progress history", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if err = requireUser(params.UserID); err != nil {
		return
	}

	var from, to string
	if from, err = normalizeDay(params.StartDate); err != nil {
		return
	}
	if to, err = normalizeDay(params.EndDate); err != nil {
		return
	}

	total := 0
	snapshot, snapErr := s.snapshots.GetSnapshot(ctx, params.UserID)
	switch {
	case snapErr == nil:
		total = snapshot.Calculation.Missed().Total()
	case !errors.Is(snapErr, persistence.ErrNotFound):
		err = mapRepoError(snapErr)
		return
	}

	var entries []persistence.HistoryEntry
	entries, err = s.history.ListHistory(ctx, params.UserID, from, to)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	points = make([]ProgressPoint, 0, len(entries))
	for _, e := range entries {
		points = append(points, ProgressPoint{Date: e.Date, Completed: e.Completed, Total: total})
	}
	return
}

// EnqueueCalculation validates the request, stores a pending job and hands
// it to the dispatcher. A dispatch failure resolves the job to error and is
// reported through the returned job, not as an error.
func (s *PrayerDebtService) EnqueueCalculation(ctx context.Context, params CalculateParams) (job domain.CalculationJob, err error) {
	if s == nil {
		err = fmt.Errorf("PrayerDebtService is nil")
		return
	}

	logger := s.loggerWith(ctx, "EnqueueCalculation", "user_id", params.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to enqueue calculation", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "calculation enqueued", "job_id", job.ID, "status", job.Status)
	}()

	if err = requireUser(params.UserID); err != nil {
		return
	}
	if _, _, err = buildCalculationInput(params.Request, s.settings.DefaultMadhab); err != nil {
		return
	}

	var payload []byte
	payload, err = json.Marshal(params.Request)
	if err != nil {
		err = fmt.Errorf("encode calculation payload: %w", err)
		return
	}

	job = jobs.New(s.idGenerator(), params.UserID, payload, s.now())
	if err = s.jobs.CreateJob(ctx, job); err != nil {
		err = mapRepoError(err)
		return
	}
	s.metrics.JobObserved(string(domain.JobPending))
	s.recordAudit(ctx, logger, persistence.AuditJobCreated, params.UserID, persistence.EntityCalculationJob, job.ID, nil)

	if s.dispatcher == nil {
		logger.WarnContext(ctx, "no dispatcher configured, job stays pending", "job_id", job.ID)
		return
	}

	req := dispatch.Request{
		JobID:      job.ID,
		UserID:     job.UserID,
		Payload:    job.Payload,
		WebhookURL: s.settings.WebhookURL,
	}
	if dispatchErr := s.dispatcher.Dispatch(ctx, req); dispatchErr != nil {
		logger.WarnContext(ctx, "dispatch failed, resolving job to error", "job_id", job.ID, "error", dispatchErr)
		job, err = s.ResolveJob(ctx, ResolveJobParams{
			JobID:  job.ID,
			Status: domain.JobError,
			Error:  fmt.Sprintf("dispatch failed: %v", dispatchErr),
		})
	}
	return
}

// CalculationStatus returns a job. When userID is set, jobs of other users
// are reported as not found.
func (s *PrayerDebtService) CalculationStatus(ctx context.Context, userID, jobID string) (job domain.CalculationJob, err error) {
	if s == nil {
		err = fmt.Errorf("PrayerDebtService is nil")
		return
	}

	job, err = s.jobs.GetJob(ctx, jobID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if userID != "" && job.UserID != userID {
		return domain.CalculationJob{}, ErrNotFound
	}
	return
}

// VerifyWebhook checks the HMAC signature of a webhook body. Verification is
// disabled when no secret is configured.
func (s *PrayerDebtService) VerifyWebhook(body []byte, signature string) error {
	if s == nil {
		return fmt.Errorf("PrayerDebtService is nil")
	}
	if err := secure.Verify(s.settings.WebhookSecret, body, signature); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// ResolveJob records the outcome of a job. A pending status changes nothing.
// Re-reporting the same outcome is accepted; any other change to a finished
// job fails with domain.KindInvalidTransition.
func (s *PrayerDebtService) ResolveJob(ctx context.Context, params ResolveJobParams) (job domain.CalculationJob, err error) {
	if s == nil {
		err = fmt.Errorf("PrayerDebtService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ResolveJob",
		"job_id", params.JobID,
		"status", params.Status,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to resolve job", "error", err, "error_kind", ErrorKind(err))
		}
	}()

	if vErr := validateResolveJob(params); vErr.HasErrors() {
		err = vErr
		return
	}

	var release func()
	release, err = s.locker.Lock(ctx, "job:"+params.JobID)
	if err != nil {
		err = fmt.Errorf("lock job %s: %w", params.JobID, err)
		return
	}
	defer release()

	job, err = s.jobs.GetJob(ctx, params.JobID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if params.Status == domain.JobPending {
		logger.InfoContext(ctx, "pending status reported, nothing to do")
		return
	}

	alreadyTerminal := job.Status.Terminal()
	var next domain.CalculationJob
	next, err = jobs.Resolve(job, params.Status, params.Result, params.Error, s.now())
	if err != nil {
		return
	}
	if alreadyTerminal {
		logger.InfoContext(ctx, "job already resolved with the same outcome")
		return
	}

	if err = s.jobs.UpdateJob(ctx, next); err != nil {
		err = mapRepoError(err)
		return
	}
	job = next
	s.metrics.JobObserved(string(job.Status))

	action := persistence.AuditJobCompleted
	details := map[string]any{"status": job.Status}
	if job.Status == domain.JobError {
		action = persistence.AuditJobFailed
		details["error"] = job.Error
	}
	s.recordAudit(ctx, logger, action, job.UserID, persistence.EntityCalculationJob, job.ID, details)
	logger.InfoContext(ctx, "job resolved")
	return
}

// RunCalculation executes a queued job in-process: the calculation is stored
// as the user's snapshot and the job resolved with it. It is the runner of
// the local dispatcher.
func (s *PrayerDebtService) RunCalculation(ctx context.Context, jobID string) error {
	if s == nil {
		return fmt.Errorf("PrayerDebtService is nil")
	}

	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return mapRepoError(err)
	}
	if job.Status.Terminal() {
		return nil
	}

	var req CalculationRequest
	if err := json.Unmarshal(job.Payload, &req); err != nil {
		_, resolveErr := s.ResolveJob(ctx, ResolveJobParams{JobID: jobID, Status: domain.JobError, Error: "malformed payload"})
		return errors.Join(fmt.Errorf("decode job payload: %w", err), resolveErr)
	}

	snapshot, calcErr := s.Calculate(ctx, CalculateParams{UserID: job.UserID, Request: req})
	if calcErr != nil {
		_, resolveErr := s.ResolveJob(ctx, ResolveJobParams{JobID: jobID, Status: domain.JobError, Error: calcErr.Error()})
		return errors.Join(calcErr, resolveErr)
	}

	_, err = s.ResolveJob(ctx, ResolveJobParams{JobID: jobID, Status: domain.JobDone, Result: &snapshot})
	return err
}

// recordAudit appends an audit entry. Failures are logged and never
// returned.
func (s *PrayerDebtService) recordAudit(ctx context.Context, logger *slog.Logger, action persistence.AuditAction, userID, entityType, entityID string, details map[string]any) {
	if s.audit == nil {
		return
	}
	entry := persistence.AuditEntry{
		ID:         s.idGenerator(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  s.now().UTC(),
	}
	if len(details) > 0 {
		raw, err := json.Marshal(details)
		if err != nil {
			logger.WarnContext(ctx, "failed to encode audit details", "action", action, "error", err)
		} else {
			entry.Details = raw
		}
	}
	if err := s.audit.AppendAudit(ctx, entry); err != nil {
		logger.WarnContext(ctx, "failed to write audit log", "action", action, "error", err)
	}
}

func requireUser(userID string) error {
	if userID != "" {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("user_id", "user_id is required")
	return vErr
}

func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("snapshot", "stored values violate a constraint")
		return vErr
	}
	return err
}
