// application_repository.go implements ApplicationRepository, providing database
// queries for public applicant submissions, the review lifecycle, and the
// notification outbox scan.
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// ApplicationRepository handles database operations for job applications
type ApplicationRepository struct {
	db *sql.DB
}

// NewApplicationRepository creates a new application repository
func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const applicationColumns = `id, org_id, job_pub_id, name, contact, message, status, notified_at, created_at, updated_at`

func scanApplication(row interface{ Scan(...interface{}) error }) (*models.Application, error) {
	a := &models.Application{}
	err := row.Scan(
		&a.ID,
		&a.OrgID,
		&a.JobPubID,
		&a.Name,
		&a.Contact,
		&a.Message,
		&a.Status,
		&a.NotifiedAt,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	a, err := scanApplication(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return a, nil
}

// Create inserts a new application. New applications always start pending.
func (r *ApplicationRepository) Create(ctx context.Context, a *models.Application) error {
	a.Status = models.ApplicationPending

	query := `
		INSERT INTO applications (org_id, job_pub_id, name, contact, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		a.OrgID,
		a.JobPubID,
		a.Name,
		a.Contact,
		a.Message,
		a.Status,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// UpdateStatus moves an application through the review lifecycle
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus) error {
	if !status.Valid() {
		return fmt.Errorf("invalid application status: %s", status)
	}

	query := `UPDATE applications SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update application status: %w", err)
	}

	return nil
}

// List retrieves an organization's applications, newest first
func (r *ApplicationRepository) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE org_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]*models.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, a)
	}

	return apps, rows.Err()
}

// Count returns the total number of applications for an organization
func (r *ApplicationRepository) Count(ctx context.Context, orgID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM applications WHERE org_id = $1`
	err := r.db.QueryRowContext(ctx, query, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", err)
	}

	return count, nil
}

// ListUnnotified retrieves applications whose notification email has not been
// sent yet, oldest first so the outbox drains in order.
func (r *ApplicationRepository) ListUnnotified(ctx context.Context, limit int) ([]*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE notified_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unnotified applications: %w", err)
	}
	defer rows.Close()

	apps := make([]*models.Application, 0)
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, a)
	}

	return apps, rows.Err()
}

// MarkNotified stamps the notification time so the outbox scan skips the row.
// Dry-run deliveries stamp it too; otherwise an unconfigured SMTP host would
// make the scan grow without bound.
func (r *ApplicationRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE applications SET notified_at = $2 WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("failed to mark application notified: %w", err)
	}

	return nil
}
