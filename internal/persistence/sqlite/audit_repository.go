package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/example/prayer-debt/internal/persistence"
)

type auditRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	Action     string         `db:"action"`
	EntityType string         `db:"entity_type"`
	EntityID   string         `db:"entity_id"`
	Details    sql.NullString `db:"details"`
	CreatedAt  string         `db:"created_at"`
}

// AppendAudit records entry.
func (s *Storage) AppendAudit(ctx context.Context, entry persistence.AuditEntry) error {
	if entry.ID == "" || entry.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	row := auditRow{
		ID:         entry.ID,
		UserID:     entry.UserID,
		Action:     string(entry.Action),
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		CreatedAt:  formatTime(entry.CreatedAt),
	}
	if len(entry.Details) > 0 {
		row.Details = sql.NullString{String: string(entry.Details), Valid: true}
	}
	const query = `
		INSERT INTO audit_log (id, user_id, action, entity_type, entity_id, details, created_at)
		VALUES (:id, :user_id, :action, :entity_type, :entity_id, :details, :created_at)`
	return s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().NamedExecContext(ctx, query, row)
		return err
	})
}

// ListAudit returns the entries of userID, oldest first.
func (s *Storage) ListAudit(ctx context.Context, userID string) ([]persistence.AuditEntry, error) {
	var rows []auditRow
	const query = `
		SELECT id, user_id, action, entity_type, entity_id, details, created_at
		FROM audit_log
		WHERE user_id = ?
		ORDER BY created_at ASC, rowid ASC`
	if err := s.pool.DB().SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, s.mapper.MapError(err)
	}

	entries := make([]persistence.AuditEntry, 0, len(rows))
	for _, row := range rows {
		createdAt, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, err
		}
		entry := persistence.AuditEntry{
			ID:         row.ID,
			UserID:     row.UserID,
			Action:     persistence.AuditAction(row.Action),
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			CreatedAt:  createdAt,
		}
		if row.Details.Valid {
			entry.Details = json.RawMessage(row.Details.String)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
