// job_repository.go implements JobRepository, providing database queries for
// editable job drafts and the metadata records of published postings.
package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/TakashiSato01/licope-lab/internal/db/models"
)

// JobRepository handles database operations for job drafts and published job metadata
type JobRepository struct {
	db *sql.DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobDraftColumns = `id, org_id, title, wage, description, facility_name, facility_address,
	facility_type, employment_type, working_hours, requirements, benefits,
	created_by, created_at, updated_at`

func scanJobDraft(row interface{ Scan(...interface{}) error }) (*models.JobDraft, error) {
	d := &models.JobDraft{}
	err := row.Scan(
		&d.ID,
		&d.OrgID,
		&d.Title,
		&d.Wage,
		&d.Description,
		&d.FacilityName,
		&d.FacilityAddress,
		&d.FacilityType,
		&d.EmploymentType,
		&d.WorkingHours,
		&d.Requirements,
		&d.Benefits,
		&d.CreatedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	return d, err
}

// GetDraft retrieves a job draft by ID
func (r *JobRepository) GetDraft(ctx context.Context, id string) (*models.JobDraft, error) {
	query := `SELECT ` + jobDraftColumns + ` FROM job_drafts WHERE id = $1`

	d, err := scanJobDraft(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get job draft: %w", err)
	}

	return d, nil
}

// CreateDraft creates a new job draft
func (r *JobRepository) CreateDraft(ctx context.Context, d *models.JobDraft) error {
	query := `
		INSERT INTO job_drafts (org_id, title, wage, description, facility_name, facility_address,
			facility_type, employment_type, working_hours, requirements, benefits, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		d.OrgID,
		d.Title,
		d.Wage,
		d.Description,
		d.FacilityName,
		d.FacilityAddress,
		d.FacilityType,
		d.EmploymentType,
		d.WorkingHours,
		d.Requirements,
		d.Benefits,
		d.CreatedBy,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create job draft: %w", err)
	}

	return nil
}

// UpdateDraft updates an existing job draft
func (r *JobRepository) UpdateDraft(ctx context.Context, d *models.JobDraft) error {
	query := `
		UPDATE job_drafts
		SET title = $2, wage = $3, description = $4, facility_name = $5, facility_address = $6,
			facility_type = $7, employment_type = $8, working_hours = $9,
			requirements = $10, benefits = $11, updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID,
		d.Title,
		d.Wage,
		d.Description,
		d.FacilityName,
		d.FacilityAddress,
		d.FacilityType,
		d.EmploymentType,
		d.WorkingHours,
		d.Requirements,
		d.Benefits,
	)
	if err != nil {
		return fmt.Errorf("failed to update job draft: %w", err)
	}

	return nil
}

// DeleteDraft deletes a job draft
func (r *JobRepository) DeleteDraft(ctx context.Context, id string) error {
	query := `DELETE FROM job_drafts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete job draft: %w", err)
	}

	return nil
}

// ListDrafts retrieves all job drafts of an organization, newest first
func (r *JobRepository) ListDrafts(ctx context.Context, orgID string) ([]*models.JobDraft, error) {
	query := `SELECT ` + jobDraftColumns + ` FROM job_drafts WHERE org_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job drafts: %w", err)
	}
	defer rows.Close()

	drafts := make([]*models.JobDraft, 0)
	for rows.Next() {
		d, err := scanJobDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job draft: %w", err)
		}
		drafts = append(drafts, d)
	}

	return drafts, rows.Err()
}

// CountDrafts returns the number of job drafts an organization holds
func (r *JobRepository) CountDrafts(ctx context.Context, orgID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM job_drafts WHERE org_id = $1`
	if err := r.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count job drafts: %w", err)
	}

	return count, nil
}

const publicJobColumns = `id, org_id, title, storage_path, thumbnail_path, thumbnail_url,
	published_by, published_at, updated_by, updated_at`

func scanPublicJob(row interface{ Scan(...interface{}) error }) (*models.PublicJob, error) {
	j := &models.PublicJob{}
	err := row.Scan(
		&j.ID,
		&j.OrgID,
		&j.Title,
		&j.StoragePath,
		&j.ThumbnailPath,
		&j.ThumbnailURL,
		&j.PublishedBy,
		&j.PublishedAt,
		&j.UpdatedBy,
		&j.UpdatedAt,
	)
	return j, err
}

// GetPublicJob retrieves published job metadata by org and publication ID
func (r *JobRepository) GetPublicJob(ctx context.Context, orgID, pubID string) (*models.PublicJob, error) {
	query := `SELECT ` + publicJobColumns + ` FROM public_jobs WHERE org_id = $1 AND id = $2`

	j, err := scanPublicJob(r.db.QueryRowContext(ctx, query, orgID, pubID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get public job: %w", err)
	}

	return j, nil
}

// CreatePublicJob inserts metadata for a newly published job. The caller
// allocates the publication ID so it matches the blob paths already written.
func (r *JobRepository) CreatePublicJob(ctx context.Context, j *models.PublicJob) error {
	query := `
		INSERT INTO public_jobs (id, org_id, title, storage_path, thumbnail_path, thumbnail_url, published_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING published_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		j.ID,
		j.OrgID,
		j.Title,
		j.StoragePath,
		j.ThumbnailPath,
		j.ThumbnailURL,
		j.PublishedBy,
	).Scan(&j.PublishedAt, &j.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create public job: %w", err)
	}

	return nil
}

// UpdatePublicJob patches the metadata record after a republish
func (r *JobRepository) UpdatePublicJob(ctx context.Context, j *models.PublicJob) error {
	query := `
		UPDATE public_jobs
		SET title = $3, storage_path = $4, thumbnail_path = $5, thumbnail_url = $6,
			updated_by = $7, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
	`

	_, err := r.db.ExecContext(ctx, query,
		j.OrgID,
		j.ID,
		j.Title,
		j.StoragePath,
		j.ThumbnailPath,
		j.ThumbnailURL,
		j.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update public job: %w", err)
	}

	return nil
}

// ListPublicJobs retrieves an organization's published job metadata, newest first
func (r *JobRepository) ListPublicJobs(ctx context.Context, orgID string) ([]*models.PublicJob, error) {
	query := `SELECT ` + publicJobColumns + ` FROM public_jobs WHERE org_id = $1 ORDER BY published_at DESC`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list public jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]*models.PublicJob, 0)
	for rows.Next() {
		j, err := scanPublicJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan public job: %w", err)
		}
		jobs = append(jobs, j)
	}

	return jobs, rows.Err()
}

// CountPublicJobs returns the number of published jobs an organization holds
func (r *JobRepository) CountPublicJobs(ctx context.Context, orgID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM public_jobs WHERE org_id = $1`
	if err := r.db.QueryRowContext(ctx, query, orgID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count public jobs: %w", err)
	}

	return count, nil
}
