package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/prayer-debt/internal/domain"
	"github.com/example/prayer-debt/internal/persistence"
)

type snapshotRow struct {
	UserID            string         `db:"user_id"`
	CalcVersion       string         `db:"calc_version"`
	Madhab            string         `db:"madhab"`
	CalculationMethod string         `db:"calculation_method"`
	PersonalData      string         `db:"personal_data"`
	WomenData         sql.NullString `db:"women_data"`
	TravelData        string         `db:"travel_data"`
	DebtCalculation   string         `db:"debt_calculation"`
	RepaymentProgress string         `db:"repayment_progress"`
	CreatedAt         string         `db:"created_at"`
	UpdatedAt         string         `db:"updated_at"`
}

// GetSnapshot returns the snapshot stored for userID.
func (s *Storage) GetSnapshot(ctx context.Context, userID string) (domain.Snapshot, error) {
	if userID == "" {
		return domain.Snapshot{}, persistence.ErrNotFound
	}

	var row snapshotRow
	const query = `
		SELECT user_id, calc_version, madhab, calculation_method, personal_data, women_data,
		       travel_data, debt_calculation, repayment_progress, created_at, updated_at
		FROM snapshots
		WHERE user_id = ?`
	if err := s.pool.DB().GetContext(ctx, &row, query, userID); err != nil {
		return domain.Snapshot{}, s.mapper.MapError(err)
	}
	return s.decodeSnapshot(row)
}

// SaveSnapshot inserts the snapshot or replaces every column but created_at.
func (s *Storage) SaveSnapshot(ctx context.Context, snapshot domain.Snapshot) error {
	if snapshot.UserID == "" {
		return persistence.ErrConstraintViolation
	}
	row, err := s.encodeSnapshot(snapshot)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO snapshots (user_id, calc_version, madhab, calculation_method, personal_data, women_data,
		                       travel_data, debt_calculation, repayment_progress, created_at, updated_at)
		VALUES (:user_id, :calc_version, :madhab, :calculation_method, :personal_data, :women_data,
		        :travel_data, :debt_calculation, :repayment_progress, :created_at, :updated_at)
		ON CONFLICT(user_id) DO UPDATE SET
			calc_version = excluded.calc_version,
			madhab = excluded.madhab,
			calculation_method = excluded.calculation_method,
			personal_data = excluded.personal_data,
			women_data = excluded.women_data,
			travel_data = excluded.travel_data,
			debt_calculation = excluded.debt_calculation,
			repayment_progress = excluded.repayment_progress,
			updated_at = excluded.updated_at`
	return s.retry.WithRetry(ctx, func() error {
		_, err := s.pool.DB().NamedExecContext(ctx, query, row)
		return err
	})
}

// SaveProgress updates the snapshot progress and upserts the day's history
// entry in one transaction.
func (s *Storage) SaveProgress(ctx context.Context, userID string, progress domain.RepaymentProgress, entry persistence.HistoryEntry) error {
	encoded, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("sqlite: encode progress: %w", err)
	}

	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sqlx.Tx) error {
			result, err := tx.ExecContext(ctx,
				`UPDATE snapshots SET repayment_progress = ?, updated_at = ? WHERE user_id = ?`,
				string(encoded), formatTime(progress.LastUpdated), userID)
			if err != nil {
				return err
			}
			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			if affected == 0 {
				return persistence.ErrNotFound
			}

			_, err = tx.ExecContext(ctx, `
				INSERT INTO progress_history (user_id, date, total_completed, updated_at)
				VALUES (?, ?, ?, ?)
				ON CONFLICT(user_id, date) DO UPDATE SET
					total_completed = excluded.total_completed,
					updated_at = excluded.updated_at`,
				userID, entry.Date, entry.Completed, formatTime(entry.UpdatedAt))
			return err
		})
	})
}

func (s *Storage) encodeSnapshot(snapshot domain.Snapshot) (snapshotRow, error) {
	personal, err := s.sealJSON(snapshot.Personal)
	if err != nil {
		return snapshotRow{}, err
	}
	var women sql.NullString
	if snapshot.Women != nil {
		sealed, err := s.sealJSON(snapshot.Women)
		if err != nil {
			return snapshotRow{}, err
		}
		women = sql.NullString{String: sealed, Valid: true}
	}
	travel, err := json.Marshal(snapshot.Travel)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("sqlite: encode travel data: %w", err)
	}
	calculation, err := json.Marshal(snapshot.Calculation)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("sqlite: encode debt calculation: %w", err)
	}
	progress, err := json.Marshal(snapshot.Progress)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("sqlite: encode progress: %w", err)
	}

	return snapshotRow{
		UserID:            snapshot.UserID,
		CalcVersion:       snapshot.CalcVersion,
		Madhab:            string(snapshot.Madhab),
		CalculationMethod: string(snapshot.CalculationMethod),
		PersonalData:      personal,
		WomenData:         women,
		TravelData:        string(travel),
		DebtCalculation:   string(calculation),
		RepaymentProgress: string(progress),
		CreatedAt:         formatTime(snapshot.CreatedAt),
		UpdatedAt:         formatTime(snapshot.UpdatedAt),
	}, nil
}

func (s *Storage) decodeSnapshot(row snapshotRow) (domain.Snapshot, error) {
	snapshot := domain.Snapshot{
		UserID:            row.UserID,
		CalcVersion:       row.CalcVersion,
		Madhab:            domain.Madhab(row.Madhab),
		CalculationMethod: domain.CalculationMethod(row.CalculationMethod),
	}
	if err := s.openJSON(row.PersonalData, &snapshot.Personal); err != nil {
		return domain.Snapshot{}, fmt.Errorf("sqlite: decode personal data: %w", err)
	}
	if row.WomenData.Valid {
		var women domain.WomenFacts
		if err := s.openJSON(row.WomenData.String, &women); err != nil {
			return domain.Snapshot{}, fmt.Errorf("sqlite: decode women data: %w", err)
		}
		snapshot.Women = &women
	}
	if err := json.Unmarshal([]byte(row.TravelData), &snapshot.Travel); err != nil {
		return domain.Snapshot{}, fmt.Errorf("sqlite: decode travel data: %w", err)
	}
	if err := json.Unmarshal([]byte(row.DebtCalculation), &snapshot.Calculation); err != nil {
		return domain.Snapshot{}, fmt.Errorf("sqlite: decode debt calculation: %w", err)
	}
	if err := json.Unmarshal([]byte(row.RepaymentProgress), &snapshot.Progress); err != nil {
		return domain.Snapshot{}, fmt.Errorf("sqlite: decode progress: %w", err)
	}

	var err error
	if snapshot.CreatedAt, err = parseTime(row.CreatedAt); err != nil {
		return domain.Snapshot{}, err
	}
	if snapshot.UpdatedAt, err = parseTime(row.UpdatedAt); err != nil {
		return domain.Snapshot{}, err
	}
	return snapshot, nil
}

func (s *Storage) sealJSON(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode: %w", err)
	}
	sealed, err := s.sealer.Seal(raw)
	if err != nil {
		return "", fmt.Errorf("sqlite: seal: %w", err)
	}
	return sealed, nil
}

func (s *Storage) openJSON(value string, dst any) error {
	raw, err := s.sealer.Open(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
