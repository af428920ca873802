package sqlite

import (
	"context"
	"strings"

	"github.com/example/prayer-debt/internal/persistence"
)

type historyRow struct {
	UserID         string `db:"user_id"`
	Date           string `db:"date"`
	TotalCompleted int    `db:"total_completed"`
	UpdatedAt      string `db:"updated_at"`
}

// ListHistory returns the history of userID between from and to inclusive,
// oldest first. Empty bounds are open.
func (s *Storage) ListHistory(ctx context.Context, userID, from, to string) ([]persistence.HistoryEntry, error) {
	var (
		clauses = []string{"user_id = ?"}
		args    = []any{userID}
	)
	if from != "" {
		clauses = append(clauses, "date >= ?")
		args = append(args, from)
	}
	if to != "" {
		clauses = append(clauses, "date <= ?")
		args = append(args, to)
	}

	query := `SELECT user_id, date, total_completed, updated_at FROM progress_history WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY date ASC`

	var rows []historyRow
	if err := s.pool.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, s.mapper.MapError(err)
	}

	entries := make([]persistence.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		updatedAt, err := parseTime(row.UpdatedAt)
		if err != nil {
			return nil, err
		}
		entries = append(entries, persistence.HistoryEntry{
			UserID:    row.UserID,
			Date:      row.Date,
			Completed: row.TotalCompleted,
			UpdatedAt: updatedAt,
		})
	}
	return entries, nil
}
