// Package memory keeps every repository in process memory. It backs tests
// and offline runs of the CLI.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/persistence"
)

// Store implements the persistence repositories with maps guarded by a
// single lock. Values are deep-copied on the way in and out.
type Store struct {
	mu        sync.RWMutex
	snapshots map[string]domain.Snapshot
	jobs      map[string]domain.CalculationJob
	history   map[string]map[string]persistence.HistoryEntry
	audit     []persistence.AuditEntry
}

var (
	_ persistence.SnapshotRepository = (*Store)(nil)
	_ persistence.HistoryRepository  = (*Store)(nil)
	_ persistence.JobRepository      = (*Store)(nil)
	_ persistence.AuditRepository    = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{
		snapshots: make(map[string]domain.Snapshot),
		jobs:      make(map[string]domain.CalculationJob),
		history:   make(map[string]map[string]persistence.HistoryEntry),
	}
}

// --- SnapshotRepository implementation ---

// GetSnapshot returns the snapshot stored for userID.
func (s *Store) GetSnapshot(ctx context.Context, userID string) (domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[userID]
	if !ok {
		return domain.Snapshot{}, persistence.ErrNotFound
	}
	return cloneSnapshot(snapshot), nil
}

// SaveSnapshot inserts or replaces the snapshot of snapshot.UserID. A
// replacement keeps the original CreatedAt.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if snapshot.UserID == "" || !snapshot.Madhab.Valid() {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.snapshots[snapshot.UserID]; ok {
		snapshot.CreatedAt = existing.CreatedAt
	}
	s.snapshots[snapshot.UserID] = cloneSnapshot(snapshot)
	return nil
}

// SaveProgress replaces the progress of the stored snapshot and upserts the
// history entry under the same lock.
func (s *Store) SaveProgress(ctx context.Context, userID string, progress domain.RepaymentProgress, entry persistence.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, ok := s.snapshots[userID]
	if !ok {
		return persistence.ErrNotFound
	}
	snapshot.Progress = progress
	snapshot.UpdatedAt = progress.LastUpdated
	s.snapshots[userID] = snapshot

	days, ok := s.history[userID]
	if !ok {
		days = make(map[string]persistence.HistoryEntry)
		s.history[userID] = days
	}
	entry.UserID = userID
	days[entry.Date] = entry
	return nil
}

// --- HistoryRepository implementation ---

// ListHistory returns the entries of userID between from and to, oldest first.
func (s *Store) ListHistory(ctx context.Context, userID, from, to string) ([]persistence.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]persistence.HistoryEntry, 0, len(s.history[userID]))
	for date, entry := range s.history[userID] {
		if from != "" && date < from {
			continue
		}
		if to != "" && date > to {
			continue
		}
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// --- JobRepository implementation ---

// CreateJob stores a new job.
func (s *Store) CreateJob(ctx context.Context, job domain.CalculationJob) error {
	if job.ID == "" {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("memory: job %s: %w", job.ID, persistence.ErrDuplicate)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// GetJob returns the job stored under id.
func (s *Store) GetJob(ctx context.Context, id string) (domain.CalculationJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return domain.CalculationJob{}, persistence.ErrNotFound
	}
	return cloneJob(job), nil
}

// UpdateJob replaces an existing job.
func (s *Store) UpdateJob(ctx context.Context, job domain.CalculationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// --- AuditRepository implementation ---

// AppendAudit records entry.
func (s *Store) AppendAudit(ctx context.Context, entry persistence.AuditEntry) error {
	if entry.ID == "" || entry.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.Details = cloneRaw(entry.Details)
	s.audit = append(s.audit, entry)
	return nil
}

// ListAudit returns the entries of userID in insertion order.
func (s *Store) ListAudit(ctx context.Context, userID string) ([]persistence.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []persistence.AuditEntry
	for _, entry := range s.audit {
		if entry.UserID != userID {
			continue
		}
		entry.Details = cloneRaw(entry.Details)
		out = append(out, entry)
	}
	return out, nil
}

func cloneSnapshot(s domain.Snapshot) domain.Snapshot {
	out := s
	if s.Women != nil {
		women := *s.Women
		out.Women = &women
	}
	out.Travel.Periods = clonePeriods(s.Travel.Periods)
	return out
}

func clonePeriods(periods []domain.TravelPeriod) []domain.TravelPeriod {
	if periods == nil {
		return nil
	}
	out := make([]domain.TravelPeriod, len(periods))
	for i, p := range periods {
		out[i] = p
		if p.DaysCount != nil {
			days := *p.DaysCount
			out[i].DaysCount = &days
		}
	}
	return out
}

func cloneJob(job domain.CalculationJob) domain.CalculationJob {
	out := job
	out.Payload = cloneRaw(job.Payload)
	if job.Result != nil {
		result := cloneSnapshot(*job.Result)
		out.Result = &result
	}
	return out
}

func cloneRaw(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}
