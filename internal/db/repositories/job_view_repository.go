// job_view_repository.go implements JobViewRepository, providing the append-only
// raw view log, the transactional daily counter upsert, and the dashboard series.
package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// JobViewRepository handles database operations for job view tracking
type JobViewRepository struct {
	db *sqlx.DB
}

// NewJobViewRepository creates a new job view repository
func NewJobViewRepository(db *sqlx.DB) *JobViewRepository {
	return &JobViewRepository{db: db}
}

// RecordView appends a raw view row and bumps the daily counter for the view's
// day, both inside one transaction so the aggregate can never drift from the log.
func (r *JobViewRepository) RecordView(ctx context.Context, v *models.JobView) error {
	if v.DayKey == "" {
		v.DayKey = time.Now().UTC().Format(models.DayKeyFormat)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO job_views (org_id, job_pub_id, day_key, referrer, user_agent, viewer_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, viewed_at`,
		v.OrgID, v.JobPubID, v.DayKey, v.Referrer, v.UserAgent, v.ViewerID,
	).Scan(&v.ID, &v.ViewedAt)
	if err != nil {
		return fmt.Errorf("failed to insert job view: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO job_view_daily (org_id, day_key, count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (org_id, day_key) DO UPDATE SET count = job_view_daily.count + 1`,
		v.OrgID, v.DayKey,
	); err != nil {
		return fmt.Errorf("failed to increment daily counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit view: %w", err)
	}

	return nil
}

// DailySeries returns the per-day counters for the last n days, newest first
func (r *JobViewRepository) DailySeries(ctx context.Context, orgID string, days int) ([]*models.JobViewDaily, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(models.DayKeyFormat)

	query := `
		SELECT org_id, day_key, count
		FROM job_view_daily
		WHERE org_id = $1 AND day_key >= $2
		ORDER BY day_key DESC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily series: %w", err)
	}
	defer rows.Close()

	series := make([]*models.JobViewDaily, 0)
	for rows.Next() {
		d := &models.JobViewDaily{}
		if err := rows.Scan(&d.OrgID, &d.DayKey, &d.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily counter: %w", err)
		}
		series = append(series, d)
	}

	return series, rows.Err()
}

// TotalViews returns the all-time view count for an organization
func (r *JobViewRepository) TotalViews(ctx context.Context, orgID string) (int64, error) {
	var total int64
	query := `SELECT COALESCE(SUM(count), 0) FROM job_view_daily WHERE org_id = $1`
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}

	return total, nil
}

// DeleteRawViewsBefore removes raw view rows older than the cutoff. The daily
// aggregates are kept; only the per-request log is pruned.
func (r *JobViewRepository) DeleteRawViewsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM job_views WHERE viewed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune job views: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return n, nil
}
