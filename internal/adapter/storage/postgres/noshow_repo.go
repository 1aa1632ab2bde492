package postgres

import (
	"context"
	"fmt"

	"ride-token-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const penaltyColumns = `id, user_id, trip_id, report_id, penalty_type, severity, reason, tokens_deducted, expires_at, is_active, created_at`

// NoShowRepo implements ports.NoShowRepository.
type NoShowRepo struct {
	pool Pool
}

// NewNoShowRepo creates a new NoShowRepo.
func NewNoShowRepo(pool Pool) *NoShowRepo {
	return &NoShowRepo{pool: pool}
}

// CreateReport inserts a report within the sanction transaction.
func (r *NoShowRepo) CreateReport(ctx context.Context, tx pgx.Tx, report *domain.NoShowReport) error {
	query := `INSERT INTO no_show_reports (id, trip_id, reporter_id, reported_user_id, user_type, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		report.ID, report.TripID, report.ReporterID, report.ReportedUserID,
		report.UserType, report.Reason, report.Status, report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert no-show report: %w", err)
	}
	return nil
}

// CreatePenalty inserts a penalty record within the sanction transaction.
func (r *NoShowRepo) CreatePenalty(ctx context.Context, tx pgx.Tx, penalty *domain.NoShowPenalty) error {
	query := `INSERT INTO user_penalties (id, user_id, trip_id, report_id, penalty_type, severity, reason, tokens_deducted, expires_at, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := tx.Exec(ctx, query,
		penalty.ID, penalty.UserID, penalty.TripID, penalty.ReportID,
		penalty.PenaltyType, penalty.Severity, penalty.Reason,
		penalty.TokensDeducted, penalty.ExpiresAt, penalty.IsActive, penalty.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert penalty: %w", err)
	}
	return nil
}

// ListReportsByUser returns reports filed against a user, newest first.
func (r *NoShowRepo) ListReportsByUser(ctx context.Context, userID uuid.UUID) ([]domain.NoShowReport, error) {
	query := `SELECT id, trip_id, reporter_id, reported_user_id, user_type, reason, status, created_at
		FROM no_show_reports WHERE reported_user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list no-show reports: %w", err)
	}
	defer rows.Close()

	var reports []domain.NoShowReport
	for rows.Next() {
		var rep domain.NoShowReport
		if err := rows.Scan(
			&rep.ID, &rep.TripID, &rep.ReporterID, &rep.ReportedUserID,
			&rep.UserType, &rep.Reason, &rep.Status, &rep.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan no-show report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// ListActivePenalties returns a user's active penalties, newest first.
func (r *NoShowRepo) ListActivePenalties(ctx context.Context, userID uuid.UUID) ([]domain.NoShowPenalty, error) {
	query := `SELECT ` + penaltyColumns + ` FROM user_penalties
		WHERE user_id = $1 AND is_active = TRUE ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list active penalties: %w", err)
	}
	defer rows.Close()

	var penalties []domain.NoShowPenalty
	for rows.Next() {
		var p domain.NoShowPenalty
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.TripID, &p.ReportID, &p.PenaltyType,
			&p.Severity, &p.Reason, &p.TokensDeducted, &p.ExpiresAt,
			&p.IsActive, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan penalty: %w", err)
		}
		penalties = append(penalties, p)
	}
	return penalties, rows.Err()
}

// CountActivePenalties counts a user's active penalties.
func (r *NoShowRepo) CountActivePenalties(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM user_penalties WHERE user_id = $1 AND is_active = TRUE`

	var count int64
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active penalties: %w", err)
	}
	return count, nil
}

// DeactivateExpired flips is_active off for penalties whose window has passed.
// Returns the number of penalties deactivated.
func (r *NoShowRepo) DeactivateExpired(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `UPDATE user_penalties SET is_active = FALSE
		WHERE user_id = $1 AND is_active = TRUE
		AND expires_at IS NOT NULL AND expires_at < NOW()`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("deactivate expired penalties: %w", err)
	}
	return tag.RowsAffected(), nil
}
